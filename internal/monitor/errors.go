package monitor

import "errors"

// Sentinel errors naming the engine's own failure conditions, distinct from
// whatever the pane adapter or registry return beneath them. Only
// ErrRetryBudgetExhausted is produced by the engine (in the error event's
// data); a missing session or a gone pane stops monitoring without an error.
var (
	// ErrSessionMissing means the registry returned no record for a
	// session the engine was asked to monitor.
	ErrSessionMissing = errors.New("monitor: session missing from registry")

	// ErrPaneGone means the pane-exists probe reported the pane is no
	// longer addressable.
	ErrPaneGone = errors.New("monitor: pane no longer exists")

	// ErrRetryBudgetExhausted means a session's consecutive poll failures
	// reached maxRetries.
	ErrRetryBudgetExhausted = errors.New("monitor: retry budget exhausted")
)
