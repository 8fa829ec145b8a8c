// Package registry defines the session-record storage contract the
// monitoring engine reads and writes. The engine never touches a session's
// on-disk representation directly; it only calls Registry.
package registry

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get when no record exists for the given id.
var ErrNotFound = errors.New("registry: session not found")

// Status is the lifecycle state of a monitored session's last known pane.
type Status string

// Known session statuses.
const (
	StatusActive          Status = "active"
	StatusWaiting         Status = "waiting"
	StatusWaitingApproval Status = "waiting_approval"
	StatusEnded           Status = "ended"
)

// QuotaSchedule is a recurring daily command the engine stages and fires
// inside the pane to keep usage accounting aligned.
type QuotaSchedule struct {
	TimeOfDay     string    `json:"timeOfDay"`
	Command       string    `json:"command"`
	NextExecution time.Time `json:"nextExecution"`
}

// SessionRecord is the durable state for one monitored pane.
type SessionRecord struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	PaneID        string         `json:"paneId"`
	Created       time.Time      `json:"created"`
	Status        Status         `json:"status"`
	QuotaSchedule *QuotaSchedule `json:"quotaSchedule,omitempty"`
}

// Registry is the narrow persistence contract the engine depends on.
type Registry interface {
	// Get returns the record for id, or ErrNotFound.
	Get(ctx context.Context, id string) (SessionRecord, error)

	// Update applies mutate to the current record for id and persists the
	// result. mutate receives the existing record (zero value if none yet
	// exists) and returns the record to store.
	Update(ctx context.Context, id string, mutate func(SessionRecord) SessionRecord) (SessionRecord, error)

	// List returns every known record, in no particular order.
	List(ctx context.Context) ([]SessionRecord, error)
}
