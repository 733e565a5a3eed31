// Package config provides configuration management for botkeeper.
package config

import (
	"os"
	"time"
)

const (
	// EnvInterpreter is the environment variable that overrides the
	// worker interpreter path.
	EnvInterpreter = "PYTHON_BIN"

	// EnvPort overrides the status server port (Render-style PORT).
	EnvPort = "PORT"

	// DefaultInterpreter is used when no override is configured.
	DefaultInterpreter = "python3"
)

// Config holds all configuration options for the supervisor.
type Config struct {
	// Worker
	Script      string `json:"script" yaml:"script"`
	Interpreter string `json:"interpreter" yaml:"interpreter"` // empty = PYTHON_BIN or python3
	WorkDir     string `json:"work_dir" yaml:"work_dir"`
	EnvFile     string `json:"env_file" yaml:"env_file"`

	// Restart policy
	MaxRestarts  int           `json:"max_restarts" yaml:"max_restarts"`
	RestartDelay time.Duration `json:"restart_delay" yaml:"restart_delay"`
	KillTimeout  time.Duration `json:"kill_timeout" yaml:"kill_timeout"`

	// Observability
	StatusAddr     string        `json:"status_addr" yaml:"status_addr"`
	SampleInterval time.Duration `json:"sample_interval" yaml:"sample_interval"`
	Verbose        bool          `json:"verbose" yaml:"verbose"`
	LogFormat      string        `json:"log_format" yaml:"log_format"` // json, text
	LogLevel       string        `json:"log_level" yaml:"log_level"`

	// Dashboard
	TUIEnabled bool `json:"tui" yaml:"tui"`

	// Diagnostic modes
	PrintCmd      bool `json:"print_cmd" yaml:"-"`
	Install       bool `json:"install" yaml:"-"`
	SkipPreflight bool `json:"skip_preflight" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		// Worker
		Script:  "bot.py",
		WorkDir: ".",
		EnvFile: ".env",

		// Restart policy
		MaxRestarts:  5,
		RestartDelay: 30 * time.Second,
		KillTimeout:  10 * time.Second,

		// Observability
		StatusAddr:     "0.0.0.0:10000",
		SampleInterval: 2 * time.Second,
		LogFormat:      "json",
		LogLevel:       "info",
	}
}

// ResolveInterpreter returns the interpreter to launch the worker with:
// the configured path, the PYTHON_BIN environment variable, or python3.
func (c *Config) ResolveInterpreter() string {
	if c.Interpreter != "" {
		return c.Interpreter
	}
	if env := os.Getenv(EnvInterpreter); env != "" {
		return env
	}
	return DefaultInterpreter
}

// ApplyEnvOverrides applies environment-derived settings. PORT replaces
// the port of the status address, matching the original deployment
// contract where the platform assigns the listen port.
func (c *Config) ApplyEnvOverrides() {
	if port := os.Getenv(EnvPort); port != "" {
		c.StatusAddr = "0.0.0.0:" + port
	}
}
