package monitor

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType identifies what kind of thing happened inside the engine.
type EventType string

// Known event types.
const (
	EventLimitDetected  EventType = "limit_detected"
	EventApprovalNeeded EventType = "approval_needed"
	EventTaskCompleted  EventType = "task_completed"
	EventError          EventType = "error"
)

// MonitorEvent is published to in-process subscribers (telemetry, tests).
type MonitorEvent struct {
	ID        string
	Type      EventType
	SessionID string
	Data      any
	Timestamp time.Time
}

const (
	eventBusBuffer          = 16
	maxBackpressureRetries  = 3
	backpressureRetryDelay  = 10 * time.Millisecond
)

// EventBus fans MonitorEvents out to subscribers without ever blocking the
// publisher. A slow subscriber gets a few short retries on its own
// goroutine and is then simply skipped for that event.
type EventBus struct {
	mu          sync.Mutex
	subscribers map[int]chan MonitorEvent
	nextID      int
}

// NewEventBus returns an empty EventBus.
func NewEventBus() *EventBus {
	return &EventBus{subscribers: make(map[int]chan MonitorEvent)}
}

// Subscribe registers a new listener and returns its channel along with an
// unsubscribe function. The channel is buffered and must be drained by the
// caller; a slow reader loses events, it never blocks Publish.
func (b *EventBus) Subscribe() (<-chan MonitorEvent, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan MonitorEvent, eventBusBuffer)
	b.subscribers[id] = ch

	unsubscribe := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if existing, ok := b.subscribers[id]; ok {
			delete(b.subscribers, id)
			close(existing)
		}
	}
	return ch, unsubscribe
}

// Publish delivers evt to every current subscriber. Delivery never blocks
// the caller: a full channel is retried briefly on a separate goroutine,
// then dropped.
func (b *EventBus) Publish(evt MonitorEvent) {
	if evt.ID == "" {
		evt.ID = uuid.NewString()
	}
	b.mu.Lock()
	subs := make([]chan MonitorEvent, 0, len(b.subscribers))
	for _, ch := range b.subscribers {
		subs = append(subs, ch)
	}
	b.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- evt:
		default:
			go retrySend(ch, evt)
		}
	}
}

func retrySend(ch chan MonitorEvent, evt MonitorEvent) {
	for i := 0; i < maxBackpressureRetries; i++ {
		time.Sleep(backpressureRetryDelay)
		select {
		case ch <- evt:
			return
		default:
		}
	}
}
