package process

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"syscall"
)

// ExecSpawner starts real OS worker processes built by a Runner.
type ExecSpawner struct {
	runner Runner
	output OutputHandler
	logger *slog.Logger
}

// NewExecSpawner creates a spawner. output may be nil, in which case
// the worker's streams are discarded.
func NewExecSpawner(runner Runner, output OutputHandler, logger *slog.Logger) *ExecSpawner {
	return &ExecSpawner{
		runner: runner,
		output: output,
		logger: logger,
	}
}

// Name returns the underlying runner's name.
func (s *ExecSpawner) Name() string {
	return s.runner.Name()
}

// Spawn builds and starts one worker incarnation. The returned Worker
// reports the exit status on its Done channel exactly once.
func (s *ExecSpawner) Spawn(ctx context.Context) (Worker, error) {
	cmd, err := s.runner.BuildCommand(ctx)
	if err != nil {
		return nil, err
	}

	var stdout, stderr io.ReadCloser
	if s.output != nil {
		stdout, err = cmd.StdoutPipe()
		if err != nil {
			return nil, err
		}
		stderr, err = cmd.StderrPipe()
		if err != nil {
			return nil, err
		}
	} else {
		cmd.Stdout = io.Discard
		cmd.Stderr = io.Discard
	}

	// Own process group so termination signals reach the whole worker tree.
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
	}

	if err := cmd.Start(); err != nil {
		return nil, err
	}

	w := &execWorker{
		cmd:  cmd,
		done: make(chan ExitStatus, 1),
	}

	// Wait must not reap the process before the pipe readers finish,
	// or trailing output is lost.
	if s.output != nil {
		w.readers.Add(2)
		go func() {
			defer w.readers.Done()
			s.output.HandleReader("stdout", stdout)
		}()
		go func() {
			defer w.readers.Done()
			s.output.HandleReader("stderr", stderr)
		}()
	}
	go w.wait()

	s.logger.Debug("worker_spawned",
		"worker", s.runner.Name(),
		"pid", cmd.Process.Pid,
	)

	return w, nil
}

// execWorker wraps a started exec.Cmd.
type execWorker struct {
	cmd     *exec.Cmd
	readers sync.WaitGroup
	done    chan ExitStatus
}

// wait reaps the process and delivers its exit status.
func (w *execWorker) wait() {
	w.readers.Wait()
	err := w.cmd.Wait()
	w.done <- extractExitStatus(err)
	close(w.done)
}

// PID returns the worker's process ID.
func (w *execWorker) PID() int {
	return w.cmd.Process.Pid
}

// Signal sends sig to the worker's process group, falling back to the
// process itself when the group cannot be resolved.
func (w *execWorker) Signal(sig os.Signal) error {
	if s, ok := sig.(syscall.Signal); ok {
		if pgid, err := syscall.Getpgid(w.cmd.Process.Pid); err == nil {
			return syscall.Kill(-pgid, s)
		}
	}
	return w.cmd.Process.Signal(sig)
}

// Kill forcefully terminates the worker's process group.
func (w *execWorker) Kill() error {
	if pgid, err := syscall.Getpgid(w.cmd.Process.Pid); err == nil {
		return syscall.Kill(-pgid, syscall.SIGKILL)
	}
	return w.cmd.Process.Kill()
}

// Done returns the exit notification channel.
func (w *execWorker) Done() <-chan ExitStatus {
	return w.done
}

// extractExitStatus converts a Wait() error into an ExitStatus.
func extractExitStatus(err error) ExitStatus {
	if err == nil {
		return ExitStatus{Code: 0}
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if status, ok := exitErr.Sys().(syscall.WaitStatus); ok {
			if status.Signaled() {
				// Signal exit: 128 + signal number
				return ExitStatus{
					Code:     128 + int(status.Signal()),
					Signaled: true,
					Err:      err,
				}
			}
			return ExitStatus{Code: status.ExitStatus(), Err: err}
		}
	}

	// Unknown error, assume exit code 1
	return ExitStatus{Code: 1, Err: err}
}
