package process

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// BotConfig holds configuration for launching the trading bot worker.
type BotConfig struct {
	// Interpreter is the interpreter binary used to run the script.
	Interpreter string

	// Script is the path to the worker script.
	Script string

	// WorkDir is the working directory for the worker. Empty means the
	// supervisor's own working directory.
	WorkDir string
}

// BotRunner implements Runner for the Python trading bot worker.
type BotRunner struct {
	config *BotConfig
}

// NewBotRunner creates a runner for the given worker configuration.
func NewBotRunner(cfg *BotConfig) *BotRunner {
	return &BotRunner{config: cfg}
}

// Name returns "bot".
func (r *BotRunner) Name() string {
	return "bot"
}

// BuildCommand creates an exec.Cmd for the worker: interpreter plus a
// single script argument, the supervisor's working directory, and the
// host environment extended with a PYTHONPATH entry for the script's
// source directory. All standard streams are piped by the spawner.
func (r *BotRunner) BuildCommand(ctx context.Context) (*exec.Cmd, error) {
	if r.config.Script == "" {
		return nil, fmt.Errorf("worker script not configured")
	}

	cmd := exec.CommandContext(ctx, r.config.Interpreter, r.config.Script)
	cmd.Dir = r.config.WorkDir
	cmd.Env = r.buildEnv()

	return cmd, nil
}

// buildEnv merges the host environment with a PYTHONPATH addition
// pointing at the worker's source directory, so the script's local
// imports resolve regardless of the invocation directory.
func (r *BotRunner) buildEnv() []string {
	scriptDir := r.sourceDir()

	env := os.Environ()
	for i, kv := range env {
		if strings.HasPrefix(kv, "PYTHONPATH=") {
			env[i] = kv + string(os.PathListSeparator) + scriptDir
			return env
		}
	}
	return append(env, "PYTHONPATH="+scriptDir)
}

// sourceDir returns the directory holding the worker script, resolved
// against the working directory when the script path is relative.
func (r *BotRunner) sourceDir() string {
	script := r.config.Script
	if !filepath.IsAbs(script) && r.config.WorkDir != "" {
		script = filepath.Join(r.config.WorkDir, script)
	}
	if abs, err := filepath.Abs(script); err == nil {
		script = abs
	}
	return filepath.Dir(script)
}

// Config returns the worker configuration.
func (r *BotRunner) Config() *BotConfig {
	return r.config
}

// CommandString returns the command that would be executed (for -print-cmd).
func (r *BotRunner) CommandString() string {
	return r.config.Interpreter + " " + r.config.Script
}
