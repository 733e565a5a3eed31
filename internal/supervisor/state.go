// Package supervisor manages the lifecycle of the trading bot worker process.
package supervisor

// State represents the current state of the supervised worker.
type State int

const (
	// StateCreated is the initial state before the worker has started.
	StateCreated State = iota

	// StateStarting indicates the worker process is being spawned.
	StateStarting

	// StateRunning indicates the worker process is actively running.
	StateRunning

	// StateBackoff indicates the supervisor is waiting out the restart delay.
	StateBackoff

	// StateStopped indicates supervision ended without terminal failure
	// (clean worker exit or shutdown).
	StateStopped

	// StateFailed indicates the restart budget was exhausted.
	StateFailed
)

// String returns a human-readable name for the state.
func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateBackoff:
		return "backoff"
	case StateStopped:
		return "stopped"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// IsActive returns true while the worker is running or a restart is pending.
func (s State) IsActive() bool {
	return s == StateStarting || s == StateRunning || s == StateBackoff
}

// IsTerminal returns true once supervision has permanently ended.
func (s State) IsTerminal() bool {
	return s == StateStopped || s == StateFailed
}
