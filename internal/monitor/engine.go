// Package monitor implements the Session Monitoring Engine: the per-session
// poll loop and the state machines that react to usage-limit notices,
// approval dialogs, idle completion, and scheduled quota commands.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/watchpane/sessionwatch/internal/notify"
	"github.com/watchpane/sessionwatch/internal/paneio"
	"github.com/watchpane/sessionwatch/internal/registry"
)

// Default configuration values, per the external-interfaces contract.
const (
	DefaultPollInterval = 2000 * time.Millisecond
	DefaultMaxRetries   = 3
	DefaultAutoRestart  = true
)

// Config holds the engine's construction-time configuration.
type Config struct {
	// PollInterval is the time between poll cycles for a session. Must be
	// >= 250ms; zero means DefaultPollInterval.
	PollInterval time.Duration

	// MaxRetries is the number of consecutive transient errors tolerated
	// before a session's monitoring self-stops. Zero means DefaultMaxRetries.
	MaxRetries int

	// AutoRestart is accepted for parity with the source configuration
	// surface but is not consulted anywhere in the engine; it is reserved
	// for whatever process supervisor restarts the daemon.
	AutoRestart bool
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	return c
}

// Engine drives the poll loop for every session it is told to monitor. It
// owns no cross-session mutable state beyond the map of per-session
// handles, guarded against concurrent start/stop.
type Engine struct {
	adapter  paneio.Adapter
	registry registry.Registry
	notifier notify.Notifier
	clock    Clock
	sleep    func(time.Duration)
	cfg      Config
	logger   *log.Logger
	Events   *EventBus

	mu       sync.Mutex
	sessions map[string]*sessionHandle
}

// New builds an Engine from its required collaborators. clock and logger
// default to production values when nil.
func New(adapter paneio.Adapter, reg registry.Registry, notifier notify.Notifier, cfg Config, clock Clock, logger *log.Logger) *Engine {
	if clock == nil {
		clock = SystemClock
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Engine{
		adapter:  adapter,
		registry: reg,
		notifier: notifier,
		clock:    clock,
		sleep:    time.Sleep,
		cfg:      cfg.withDefaults(),
		logger:   logger,
		Events:   NewEventBus(),
		sessions: make(map[string]*sessionHandle),
	}
}

// StartMonitoring begins polling sessionID. Calling it again for an already
// monitored session is a no-op.
func (e *Engine) StartMonitoring(sessionID string) error {
	e.mu.Lock()
	if _, exists := e.sessions[sessionID]; exists {
		e.mu.Unlock()
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	h := &sessionHandle{
		id:     sessionID,
		state:  &sessionState{},
		cancel: cancel,
		done:   make(chan struct{}),
	}
	e.sessions[sessionID] = h
	e.mu.Unlock()

	go e.loop(ctx, h)
	return nil
}

// StopMonitoring cancels sessionID's next tick immediately. A cycle already
// in flight is permitted to complete; its side effects may still fire.
func (e *Engine) StopMonitoring(sessionID string) {
	e.mu.Lock()
	h, exists := e.sessions[sessionID]
	if exists {
		delete(e.sessions, sessionID)
	}
	e.mu.Unlock()
	if exists {
		h.cancel()
	}
}

// StopAll cancels every monitored session.
func (e *Engine) StopAll() {
	e.mu.Lock()
	handles := make([]*sessionHandle, 0, len(e.sessions))
	for _, h := range e.sessions {
		handles = append(handles, h)
	}
	e.sessions = make(map[string]*sessionHandle)
	e.mu.Unlock()

	for _, h := range handles {
		h.cancel()
	}
}

// ActiveSessions returns the ids currently being monitored.
func (e *Engine) ActiveSessions() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	ids := make([]string, 0, len(e.sessions))
	for id := range e.sessions {
		ids = append(ids, id)
	}
	return ids
}

func (e *Engine) loop(ctx context.Context, h *sessionHandle) {
	defer close(h.done)
	ticker := time.NewTicker(e.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.runCycle(ctx, h)
		}
	}
}

// runCycle executes one registry-lookup -> capture -> analyze -> act cycle
// for h, per the poll loop contract.
func (e *Engine) runCycle(ctx context.Context, h *sessionHandle) {
	rec, err := e.registry.Get(ctx, h.id)
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			e.logger.Printf("[MONITOR] session %s missing from registry, stopping", h.id)
			e.StopMonitoring(h.id)
			return
		}
		e.handleCycleError(h, fmt.Errorf("registry lookup: %w", err))
		return
	}

	exists, err := e.adapter.PaneExists(ctx, rec.PaneID)
	if err != nil && !errors.Is(err, paneio.ErrTimeout) {
		e.handleCycleError(h, fmt.Errorf("pane-exists check: %w", err))
		return
	}
	if !exists {
		e.logger.Printf("[MONITOR] pane gone for session %s, stopping", h.id)
		e.StopMonitoring(h.id)
		return
	}

	st := h.state
	now := e.clock.Now()

	if !st.scheduledResetTime.IsZero() && !now.Before(st.scheduledResetTime) {
		st.scheduledResetTime = time.Time{}
		e.performContinuation(ctx, h, rec, now)
		return
	}

	if rec.QuotaSchedule != nil {
		e.runQuotaGate(ctx, h, rec, now)
	}

	current, err := e.adapter.CapturePlain(ctx, rec.PaneID)
	if err != nil {
		e.handleCycleError(h, fmt.Errorf("capture pane: %w", err))
		return
	}

	if current != st.lastOutput {
		slice := newSlice(st.lastOutput, current)
		st.lastOutputChangeTime = now
		st.lastOutput = current

		e.runLimitDetector(ctx, h, rec, slice, current, now)
		e.runApprovalDetector(ctx, h, rec, slice, current, now)
	}
	e.runIdleDetector(h, rec, current, now)

	st.retryCount = 0
}

func (e *Engine) handleCycleError(h *sessionHandle, cause error) {
	h.state.retryCount++
	if h.state.retryCount >= e.cfg.MaxRetries {
		e.Events.Publish(MonitorEvent{
			Type:      EventError,
			SessionID: h.id,
			Data:      fmt.Errorf("%w: %v", ErrRetryBudgetExhausted, cause).Error(),
			Timestamp: e.clock.Now(),
		})
		e.logger.Printf("[MONITOR] session %s exhausted retry budget: %v", h.id, cause)
		e.StopMonitoring(h.id)
		return
	}
	e.logger.Printf("[MONITOR] session %s transient error (%d/%d): %v", h.id, h.state.retryCount, e.cfg.MaxRetries, cause)
}

// newSlice returns the part of current that is new relative to last: the
// suffix if current extends last, otherwise the whole of current.
func newSlice(last, current string) string {
	if last != "" && strings.HasPrefix(current, last) {
		return current[len(last):]
	}
	return current
}

func (e *Engine) setStatus(ctx context.Context, sessionID string, status registry.Status) {
	if _, err := e.registry.Update(ctx, sessionID, func(r registry.SessionRecord) registry.SessionRecord {
		r.Status = status
		return r
	}); err != nil {
		e.logger.Printf("[MONITOR] session %s: update status to %s: %v", sessionID, status, err)
	}
}

// notify delivers a Notification through the engine's Notifier, logging and
// swallowing any error or panic so monitoring never halts on it.
func (e *Engine) notify(sessionID, sessionName string, kind notify.Kind, message string, metadata map[string]string) {
	if e.notifier == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			e.logger.Printf("[MONITOR] notifier panicked for session %s: %v", sessionID, r)
		}
	}()
	n := notify.Notification{
		Kind:        kind,
		SessionID:   sessionID,
		SessionName: sessionName,
		Message:     message,
		Metadata:    metadata,
	}
	if err := e.notifier.Notify(n); err != nil {
		e.logger.Printf("[MONITOR] notification failed for session %s (%s): %v", sessionID, kind, err)
	}
}

// lastNLines returns the last n non-trailing-empty-stripped lines of text.
func lastNLines(text string, n int) string {
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	if len(lines) <= n {
		return text
	}
	return strings.Join(lines[len(lines)-n:], "\n")
}
