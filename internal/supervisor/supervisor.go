package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/quantfold/botkeeper/internal/process"
)

const (
	// DefaultKillTimeout is how long Shutdown waits after SIGTERM before
	// escalating to SIGKILL.
	DefaultKillTimeout = 10 * time.Second
)

// ExhaustedError is the terminal failure returned by Wait when the worker
// kept crashing until the restart budget ran out.
type ExhaustedError struct {
	// ExitCode is the last observed worker exit code.
	ExitCode int

	// Attempts is the number of restart attempts consumed.
	Attempts int
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("worker failed permanently after %d restart attempts (last exit code %d)",
		e.Attempts, e.ExitCode)
}

// Callbacks contains optional callback functions for supervisor events.
// All callbacks are invoked from the supervision goroutine and must not block.
type Callbacks struct {
	// OnStateChange is called when the supervisor state changes.
	OnStateChange func(oldState, newState State)

	// OnStart is called when a worker incarnation starts.
	OnStart func(pid int)

	// OnExit is called when a worker incarnation exits.
	OnExit func(exitCode int, signaled bool, uptime time.Duration)

	// OnRestart is called when a restart is scheduled.
	OnRestart func(attempt int, delay time.Duration)
}

// Config holds the supervisor's dependencies and restart policy.
type Config struct {
	Spawner   process.Spawner
	Logger    *slog.Logger
	Callbacks Callbacks

	// MaxRestarts is the restart budget for crashed workers.
	MaxRestarts int

	// RestartDelay is the pause before each respawn.
	RestartDelay time.Duration

	// KillTimeout is the SIGTERM grace period before SIGKILL.
	KillTimeout time.Duration

	// ExitFunc terminates the host process at the end of Shutdown and
	// after terminal failure. Defaults to os.Exit.
	ExitFunc func(code int)

	// NotifySignals and StopSignals override OS signal registration.
	// Defaults to signal.Notify / signal.Stop.
	NotifySignals func(c chan<- os.Signal, sig ...os.Signal)
	StopSignals   func(c chan<- os.Signal)
}

// Status is a point-in-time snapshot of the supervisor.
type Status struct {
	State              string        `json:"state"`
	Running            bool          `json:"running"`
	WorkerAlive        bool          `json:"worker_alive"`
	PID                int           `json:"pid,omitempty"`
	RestartAttempts    int           `json:"restart_attempts"`
	MaxRestartAttempts int           `json:"max_restart_attempts"`
	Uptime             time.Duration `json:"uptime_ns"`
	LastExitCode       int           `json:"last_exit_code"`
}

// Supervisor runs the worker process, restarting it on crashes up to a
// fixed budget. A single supervision goroutine owns the restart loop, so
// restarts are strictly sequential.
type Supervisor struct {
	spawner   process.Spawner
	logger    *slog.Logger
	callbacks Callbacks

	maxRestarts  int
	restartDelay time.Duration
	killTimeout  time.Duration

	exitFn   func(code int)
	notifyFn func(c chan<- os.Signal, sig ...os.Signal)
	stopFn   func(c chan<- os.Signal)

	mu              sync.Mutex
	state           State
	worker          process.Worker
	running         bool
	restartAttempts int
	lastExitCode    int
	startTime       time.Time

	sigCh    chan os.Signal
	sigOnce  sync.Once
	stopOnce sync.Once

	shutdownOnce sync.Once

	done     chan struct{}
	doneOnce sync.Once
	doneErr  error
}

// New creates a supervisor from cfg. The spawner and logger are required.
func New(cfg Config) *Supervisor {
	if cfg.KillTimeout <= 0 {
		cfg.KillTimeout = DefaultKillTimeout
	}
	if cfg.ExitFunc == nil {
		cfg.ExitFunc = os.Exit
	}
	if cfg.NotifySignals == nil {
		cfg.NotifySignals = signal.Notify
	}
	if cfg.StopSignals == nil {
		cfg.StopSignals = signal.Stop
	}

	return &Supervisor{
		spawner:      cfg.Spawner,
		logger:       cfg.Logger,
		callbacks:    cfg.Callbacks,
		maxRestarts:  cfg.MaxRestarts,
		restartDelay: cfg.RestartDelay,
		killTimeout:  cfg.KillTimeout,
		exitFn:       cfg.ExitFunc,
		notifyFn:     cfg.NotifySignals,
		stopFn:       cfg.StopSignals,
		state:        StateCreated,
		done:         make(chan struct{}),
	}
}

// Start spawns the first worker incarnation and begins supervision.
// Signal handlers are registered exactly once, before the spawn is issued.
// A first-spawn failure is returned to the caller; no restart is attempted.
func (s *Supervisor) Start(ctx context.Context) error {
	s.registerSignals()

	s.mu.Lock()
	if s.state != StateCreated {
		s.mu.Unlock()
		return errors.New("supervisor already started")
	}
	// Optimistic: set before the spawn resolves.
	s.running = true
	s.mu.Unlock()

	s.setState(StateStarting)

	w, err := s.spawn(ctx)
	if err != nil {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		s.setState(StateFailed)
		s.finish(err)
		return fmt.Errorf("starting worker: %w", err)
	}

	go s.supervise(ctx, w)

	return nil
}

// Wait blocks until supervision ends. It returns nil on a clean stop,
// ctx's error on cancellation, or an *ExhaustedError on terminal failure.
func (s *Supervisor) Wait() error {
	<-s.done
	return s.doneErr
}

// Status returns a snapshot of the supervisor.
func (s *Supervisor) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		State:              s.state.String(),
		Running:            s.running,
		WorkerAlive:        s.worker != nil,
		RestartAttempts:    s.restartAttempts,
		MaxRestartAttempts: s.maxRestarts,
		LastExitCode:       s.lastExitCode,
	}
	if s.worker != nil {
		st.PID = s.worker.PID()
		st.Uptime = time.Since(s.startTime)
	}
	return st
}

// State returns the current supervisor state.
func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Shutdown gracefully stops the worker and terminates the host process
// with a zero exit status, regardless of prior worker failures. It is
// safe to call from any goroutine and any number of times; only the
// first invocation acts.
func (s *Supervisor) Shutdown() {
	s.shutdownOnce.Do(func() {
		s.logger.Info("shutting_down")

		s.mu.Lock()
		w := s.worker
		s.mu.Unlock()

		if w != nil {
			s.terminate(w)
		}

		s.mu.Lock()
		s.running = false
		s.worker = nil
		s.mu.Unlock()

		s.setState(StateStopped)
		s.releaseSignals()
		s.finish(nil)
		s.exitFn(0)
	})
}

// Close releases the signal registration without exiting the host.
// Intended for callers that never reach Shutdown.
func (s *Supervisor) Close() {
	s.releaseSignals()
}

// terminate asks the worker to exit with SIGTERM and escalates to
// SIGKILL when it has not exited within the kill timeout.
func (s *Supervisor) terminate(w process.Worker) {
	s.logger.Info("stopping_worker", "pid", w.PID())

	if err := w.Signal(syscall.SIGTERM); err != nil {
		s.logger.Warn("sigterm_failed", "error", err)
	}

	select {
	case <-w.Done():
		s.logger.Info("worker_stopped")
	case <-time.After(s.killTimeout):
		s.logger.Warn("force_killing_worker",
			"pid", w.PID(),
			"timeout", s.killTimeout.String(),
		)
		if err := w.Kill(); err != nil {
			s.logger.Warn("sigkill_failed", "error", err)
		}
		<-w.Done()
	}
}

// supervise is the restart loop. It runs on a single goroutine, so at
// most one worker incarnation is live and restarts never overlap.
func (s *Supervisor) supervise(ctx context.Context, w process.Worker) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("supervision_panic", "panic", r)
			s.Shutdown()
		}
	}()

	st, ok := s.awaitExit(ctx, w)
	if !ok {
		return
	}

	for {
		if st.Code == 0 {
			s.logger.Info("worker_finished")
			s.setState(StateStopped)
			s.finish(nil)
			return
		}

		s.mu.Lock()
		attempts := s.restartAttempts
		s.mu.Unlock()

		if attempts >= s.maxRestarts {
			err := &ExhaustedError{ExitCode: st.Code, Attempts: attempts}
			s.logger.Error("restart_budget_exhausted",
				"exit_code", st.Code,
				"attempts", attempts,
			)
			s.setState(StateFailed)
			s.finish(err)
			return
		}

		s.mu.Lock()
		s.restartAttempts++
		attempt := s.restartAttempts
		s.mu.Unlock()

		s.logger.Warn("scheduling_restart",
			"attempt", attempt,
			"max_attempts", s.maxRestarts,
			"delay", s.restartDelay.String(),
		)
		if cb := s.callbacks.OnRestart; cb != nil {
			cb(attempt, s.restartDelay)
		}
		s.setState(StateBackoff)

		select {
		case <-ctx.Done():
			s.setState(StateStopped)
			s.finish(ctx.Err())
			return
		case <-time.After(s.restartDelay):
		}

		w, err := s.spawn(ctx)
		if err != nil {
			// A failed respawn consumes the attempt like a crash would.
			st = process.ExitStatus{Code: 1, Err: err}
			continue
		}

		st, ok = s.awaitExit(ctx, w)
		if !ok {
			return
		}
	}
}

// spawn starts one worker incarnation and records it.
func (s *Supervisor) spawn(ctx context.Context) (process.Worker, error) {
	w, err := s.spawner.Spawn(ctx)
	if err != nil {
		s.logger.Error("spawn_failed",
			"worker", s.spawner.Name(),
			"error", err,
		)
		return nil, err
	}

	s.mu.Lock()
	s.worker = w
	s.running = true
	s.startTime = time.Now()
	s.mu.Unlock()

	s.setState(StateRunning)
	s.logger.Info("worker_started",
		"worker", s.spawner.Name(),
		"pid", w.PID(),
	)
	if cb := s.callbacks.OnStart; cb != nil {
		cb(w.PID())
	}

	return w, nil
}

// awaitExit blocks until the worker exits or ctx is cancelled. The
// returned bool is false when supervision should end due to cancellation.
func (s *Supervisor) awaitExit(ctx context.Context, w process.Worker) (process.ExitStatus, bool) {
	select {
	case st := <-w.Done():
		s.mu.Lock()
		s.worker = nil
		s.running = false
		s.lastExitCode = st.Code
		uptime := time.Since(s.startTime)
		s.mu.Unlock()

		s.logger.Info("worker_exited",
			"exit_code", st.Code,
			"signaled", st.Signaled,
			"uptime", uptime.String(),
		)
		if cb := s.callbacks.OnExit; cb != nil {
			cb(st.Code, st.Signaled, uptime)
		}
		return st, true

	case <-ctx.Done():
		s.setState(StateStopped)
		s.finish(ctx.Err())
		return process.ExitStatus{}, false
	}
}

// registerSignals installs the SIGTERM/SIGINT handler exactly once.
func (s *Supervisor) registerSignals() {
	s.sigOnce.Do(func() {
		s.sigCh = make(chan os.Signal, 1)
		s.notifyFn(s.sigCh, syscall.SIGTERM, syscall.SIGINT)

		go func() {
			sig, ok := <-s.sigCh
			if !ok {
				return
			}
			s.logger.Info("signal_received", "signal", fmt.Sprint(sig))
			s.Shutdown()
		}()
	})
}

// releaseSignals unregisters the handler and stops the relay goroutine.
func (s *Supervisor) releaseSignals() {
	s.stopOnce.Do(func() {
		if s.sigCh != nil {
			s.stopFn(s.sigCh)
			close(s.sigCh)
		}
	})
}

// setState transitions the supervisor state and fires OnStateChange.
func (s *Supervisor) setState(next State) {
	s.mu.Lock()
	old := s.state
	if old == next {
		s.mu.Unlock()
		return
	}
	s.state = next
	s.mu.Unlock()

	s.logger.Debug("state_transition",
		"from", old.String(),
		"to", next.String(),
	)
	if cb := s.callbacks.OnStateChange; cb != nil {
		cb(old, next)
	}
}

// finish resolves Wait exactly once.
func (s *Supervisor) finish(err error) {
	s.doneOnce.Do(func() {
		s.doneErr = err
		close(s.done)
	})
}
