// Package process provides abstractions for running the worker process.
package process

import (
	"context"
	"io"
	"os"
	"os/exec"
)

// Runner creates executable commands for the worker.
// This interface keeps the spawner decoupled from interpreter specifics.
type Runner interface {
	// BuildCommand returns a ready-to-start command.
	// The command should NOT be started yet.
	BuildCommand(ctx context.Context) (*exec.Cmd, error)

	// Name returns a human-readable name for this worker type.
	Name() string
}

// ExitStatus captures the outcome of one worker incarnation.
type ExitStatus struct {
	// Code is the exit code; signal deaths map to 128 + signal number.
	Code int

	// Signaled is true when the worker died from a signal.
	Signaled bool

	// Err is the underlying wait error, if any.
	Err error
}

// Worker is a handle to a live worker process. At most one Worker is
// live per supervisor at any time; only the supervisor may signal it.
type Worker interface {
	// PID returns the OS process ID.
	PID() int

	// Signal sends a signal to the worker's process group.
	Signal(sig os.Signal) error

	// Kill forcefully terminates the worker's process group.
	Kill() error

	// Done returns a channel that delivers the exit status exactly once
	// and is then closed. Receives after the first return the zero
	// status immediately.
	Done() <-chan ExitStatus
}

// Spawner starts worker incarnations. The supervisor depends on this
// interface so its restart logic is testable without real OS processes.
type Spawner interface {
	Spawn(ctx context.Context) (Worker, error)
	Name() string
}

// OutputHandler receives the worker's piped output streams.
type OutputHandler interface {
	HandleReader(stream string, r io.Reader)
}
