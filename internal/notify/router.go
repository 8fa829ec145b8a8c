package notify

import (
	"log"
	"sync"
)

// Router fans a single Notification out to every registered channel
// concurrently. A channel's failure is logged and swallowed; it never
// prevents the other channels from firing.
type Router struct {
	logger   *log.Logger
	channels []Notifier
}

// NewRouter returns a Router that fans out to channels.
func NewRouter(logger *log.Logger, channels ...Notifier) *Router {
	if logger == nil {
		logger = log.Default()
	}
	return &Router{logger: logger, channels: channels}
}

var _ Notifier = (*Router)(nil)

// Notify implements Notifier by dispatching to every channel in its own
// goroutine and returning immediately without waiting for any of them.
func (r *Router) Notify(n Notification) error {
	for _, ch := range r.channels {
		ch := ch
		go func() {
			defer func() {
				if rec := recover(); rec != nil {
					r.logger.Printf("[NOTIFY] channel panicked: %v", rec)
				}
			}()
			if err := ch.Notify(n); err != nil {
				r.logger.Printf("[NOTIFY] channel failed for session %s (%s): %v", n.SessionID, n.Kind, err)
			}
		}()
	}
	return nil
}

// NotifyAndWait behaves like Notify but blocks until every channel has
// returned, collecting no errors (each channel's failure is logged). Intended for
// callers that need delivery to have been attempted before proceeding,
// e.g. tests and graceful shutdown.
func (r *Router) NotifyAndWait(n Notification) {
	var wg sync.WaitGroup
	for _, ch := range r.channels {
		ch := ch
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				if rec := recover(); rec != nil {
					r.logger.Printf("[NOTIFY] channel panicked: %v", rec)
				}
			}()
			if err := ch.Notify(n); err != nil {
				r.logger.Printf("[NOTIFY] channel failed for session %s (%s): %v", n.SessionID, n.Kind, err)
			}
		}()
	}
	wg.Wait()
}
