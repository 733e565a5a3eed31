// Package preflight provides startup validation checks.
package preflight

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
)

// Check represents the result of a single preflight check.
type Check struct {
	Name    string // Name of the check
	Passed  bool   // Whether the check passed
	Warning bool   // True if it's a warning (non-fatal)
	Message string // Additional context
}

// Result holds the results of all preflight checks.
type Result struct {
	Checks []Check
	Passed bool
}

// String returns a human-readable summary of the check.
func (c Check) String() string {
	status := "✓"
	if !c.Passed {
		status = "✗"
	} else if c.Warning {
		status = "⚠"
	}
	return fmt.Sprintf("  %s %s: %s", status, c.Name, c.Message)
}

// RunAll executes all preflight checks for the given worker setup.
func RunAll(interpreter, script, workDir string) *Result {
	result := &Result{
		Checks: make([]Check, 0, 4),
		Passed: true,
	}

	for _, c := range []Check{
		checkInterpreter(interpreter),
		checkScript(script, workDir),
		checkWorkDir(workDir),
		checkFileDescriptors(),
	} {
		result.Checks = append(result.Checks, c)
		if !c.Passed {
			result.Passed = false
		}
	}

	return result
}

// checkInterpreter verifies the interpreter is available and runnable.
func checkInterpreter(interpreter string) Check {
	cmd := exec.Command(interpreter, "--version")
	// Python 2 printed its version to stderr.
	output, err := cmd.CombinedOutput()
	if err != nil {
		return Check{
			Name:    "interpreter",
			Passed:  false,
			Message: fmt.Sprintf("%s not runnable: %v", interpreter, err),
		}
	}

	version := strings.TrimSpace(strings.SplitN(string(output), "\n", 2)[0])
	if version == "" {
		version = "unknown version"
	}

	return Check{
		Name:    "interpreter",
		Passed:  true,
		Message: fmt.Sprintf("%s (%s)", interpreter, version),
	}
}

// checkScript verifies the worker script exists and is a regular file.
func checkScript(script, workDir string) Check {
	path := script
	if !filepath.IsAbs(path) && workDir != "" {
		path = filepath.Join(workDir, path)
	}

	info, err := os.Stat(path)
	if err != nil {
		return Check{
			Name:    "script",
			Passed:  false,
			Message: fmt.Sprintf("%s: %v", path, err),
		}
	}
	if info.IsDir() {
		return Check{
			Name:    "script",
			Passed:  false,
			Message: fmt.Sprintf("%s is a directory", path),
		}
	}

	return Check{
		Name:    "script",
		Passed:  true,
		Message: fmt.Sprintf("%s (%d bytes)", path, info.Size()),
	}
}

// checkWorkDir verifies the working directory exists and is writable.
func checkWorkDir(workDir string) Check {
	if workDir == "" {
		workDir = "."
	}

	info, err := os.Stat(workDir)
	if err != nil {
		return Check{
			Name:    "workdir",
			Passed:  false,
			Message: fmt.Sprintf("%s: %v", workDir, err),
		}
	}
	if !info.IsDir() {
		return Check{
			Name:    "workdir",
			Passed:  false,
			Message: fmt.Sprintf("%s is not a directory", workDir),
		}
	}

	// Workers commonly write state and log files next to themselves.
	probe, err := os.CreateTemp(workDir, ".botkeeper-preflight-*")
	if err != nil {
		return Check{
			Name:    "workdir",
			Passed:  true,
			Warning: true,
			Message: fmt.Sprintf("%s is not writable: %v", workDir, err),
		}
	}
	probe.Close()
	os.Remove(probe.Name())

	return Check{
		Name:    "workdir",
		Passed:  true,
		Message: workDir,
	}
}

// checkFileDescriptors verifies basic file descriptor headroom. The
// supervisor needs pipes for the worker plus the status listener.
func checkFileDescriptors() Check {
	var limit syscall.Rlimit
	if err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &limit); err != nil {
		return Check{
			Name:    "file_descriptors",
			Passed:  true,
			Warning: true,
			Message: fmt.Sprintf("unable to check: %v", err),
		}
	}

	const required = 64
	actual := int(limit.Cur)

	return Check{
		Name:    "file_descriptors",
		Passed:  actual >= required,
		Message: fmt.Sprintf("ulimit -n %d (need %d)", actual, required),
	}
}
