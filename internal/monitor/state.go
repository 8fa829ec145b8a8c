package monitor

import (
	"context"
	"time"
)

// sessionState is the in-memory runtime state for one monitored session. It
// is created by StartMonitoring and discarded by StopMonitoring; only that
// session's own poll cycle ever touches it, so it carries no lock of its
// own (single-writer, see the engine's concurrency notes).
type sessionState struct {
	lastOutput           string
	lastOutputChangeTime time.Time

	limitDetectedAt             time.Time
	awaitingContinuation        bool
	immediateContinueAttempted  bool
	lastContinuationTime        time.Time
	scheduledResetTime          time.Time

	quotaCommandSent bool

	lastTaskCompletionNotification time.Time

	lastApprovalQuestion string

	retryCount int
}

// sessionHandle ties a session's runtime state to the context that cancels
// its poll loop.
type sessionHandle struct {
	id     string
	state  *sessionState
	cancel context.CancelFunc
	done   chan struct{}
}
