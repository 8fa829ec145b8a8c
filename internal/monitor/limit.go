package monitor

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/watchpane/sessionwatch/internal/notify"
	"github.com/watchpane/sessionwatch/internal/patterns"
	"github.com/watchpane/sessionwatch/internal/registry"
)

const (
	limitCooldown         = 5 * time.Minute
	immediateContinueWait = 3 * time.Second
	sanityCap             = 5 * time.Hour
)

// runLimitDetector drives the Limit Recovery Machine's clear -> detected ->
// immediate_try -> {resolved|failed} -> {scheduled|resolved} transitions for
// one cycle.
func (e *Engine) runLimitDetector(ctx context.Context, h *sessionHandle, rec registry.SessionRecord, slice, current string, now time.Time) {
	st := h.state

	if !st.awaitingContinuation {
		if !patterns.LimitPresent(slice) || !patterns.ActiveTerminalState(slice) {
			return
		}
		if !st.lastContinuationTime.IsZero() && now.Sub(st.lastContinuationTime) < limitCooldown {
			return
		}

		st.limitDetectedAt = now
		st.awaitingContinuation = true
		e.Events.Publish(MonitorEvent{Type: EventLimitDetected, SessionID: h.id, Data: slice, Timestamp: now})
	}

	if !st.immediateContinueAttempted {
		e.attemptImmediateContinue(ctx, h, rec, now)
		return
	}

	// Already tried once this episode and still awaiting continuation:
	// fall straight to scheduling (idempotent if already scheduled).
	e.scheduleOrResolve(ctx, h, rec, current, now)
}

func (e *Engine) attemptImmediateContinue(ctx context.Context, h *sessionHandle, rec registry.SessionRecord, now time.Time) {
	st := h.state
	st.immediateContinueAttempted = true

	before, err := e.adapter.CapturePlain(ctx, rec.PaneID)
	if err != nil {
		e.logger.Printf("[MONITOR] session %s: capture before continue: %v", h.id, err)
		e.scheduleOrResolve(ctx, h, rec, before, now)
		return
	}
	if err := e.adapter.SendContinueSequence(ctx, rec.PaneID); err != nil {
		e.logger.Printf("[MONITOR] session %s: send continue sequence: %v", h.id, err)
		e.scheduleOrResolve(ctx, h, rec, before, now)
		return
	}

	e.sleep(immediateContinueWait)

	after, err := e.adapter.CapturePlain(ctx, rec.PaneID)
	if err != nil {
		e.logger.Printf("[MONITOR] session %s: capture after continue: %v", h.id, err)
		e.scheduleOrResolve(ctx, h, rec, before, now)
		return
	}

	if classifyContinueAttempt(before, after) {
		e.resolveLimit(ctx, h, now)
		return
	}
	e.scheduleOrResolve(ctx, h, rec, after, now)
}

// classifyContinueAttempt reports whether the continue attempt resolved the
// limit episode, per the three cases in the Limit Recovery Machine's
// immediate-try classification.
func classifyContinueAttempt(before, after string) bool {
	if !patterns.LimitPresent(after) {
		return true
	}
	delta := len(after) - len(before)
	if delta < 0 {
		delta = -delta
	}
	if delta < 50 {
		return false
	}
	tail := lastNLines(after, 15)
	if patterns.LimitPresent(tail) && patterns.ActiveTerminalState(tail) {
		return false
	}
	return true
}

func (e *Engine) resolveLimit(ctx context.Context, h *sessionHandle, now time.Time) {
	st := h.state
	st.lastContinuationTime = now
	st.awaitingContinuation = false
	st.immediateContinueAttempted = false
	e.setStatus(ctx, h.id, registry.StatusActive)
}

// scheduleOrResolve extracts a reset time from richText, schedules a deferred
// continuation when it parses to a deadline within the sanity cap, and emits
// one limit notification carrying the raw reset-time string (or the
// "Monitoring for availability" sentinel when no reset time is found). It
// does nothing once a continuation is already scheduled.
func (e *Engine) scheduleOrResolve(ctx context.Context, h *sessionHandle, rec registry.SessionRecord, richText string, now time.Time) {
	st := h.state
	if !st.scheduledResetTime.IsZero() {
		return
	}

	message := "Monitoring for availability"
	var metadata map[string]string

	resetStr := patterns.ExtractResetTime(richText)
	if resetStr != "" {
		message = resetStr
		metadata = map[string]string{"resetTime": resetStr}
		if deadline, ok := parseResetDeadline(resetStr, now); ok {
			st.scheduledResetTime = deadline
		}
	}

	e.setStatus(ctx, h.id, registry.StatusWaiting)
	e.notify(h.id, rec.Name, notify.KindLimit, message, metadata)
}

func (e *Engine) performContinuation(ctx context.Context, h *sessionHandle, rec registry.SessionRecord, now time.Time) {
	if err := e.adapter.SendContinueSequence(ctx, rec.PaneID); err != nil {
		e.logger.Printf("[MONITOR] session %s: scheduled continuation failed: %v", h.id, err)
		return
	}
	st := h.state
	st.lastContinuationTime = now
	st.awaitingContinuation = false
	st.immediateContinueAttempted = false
	e.setStatus(ctx, h.id, registry.StatusActive)
	e.notify(h.id, rec.Name, notify.KindContinued, "Scheduled continuation resumed the session", nil)
}

var resetTimeFormat = regexp.MustCompile(`(?i)^(\d{1,2})(?::(\d{2}))?\s*(am|pm)?$`)

// parseResetDeadline parses a raw reset-time string ("4am", "3:45pm", "11")
// into a concrete wall-clock deadline relative to now, applying the 12-hour
// conversion, today-or-tomorrow rollover, and 5-hour sanity cap.
func parseResetDeadline(raw string, now time.Time) (time.Time, bool) {
	m := resetTimeFormat.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return time.Time{}, false
	}
	hour, err := strconv.Atoi(m[1])
	if err != nil {
		return time.Time{}, false
	}
	minute := 0
	if m[2] != "" {
		minute, err = strconv.Atoi(m[2])
		if err != nil {
			return time.Time{}, false
		}
	}
	switch strings.ToLower(m[3]) {
	case "pm":
		if hour != 12 {
			hour += 12
		}
	case "am":
		if hour == 12 {
			hour = 0
		}
	}
	if hour > 23 || minute > 59 {
		return time.Time{}, false
	}

	deadline := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !deadline.After(now) {
		deadline = deadline.AddDate(0, 0, 1)
	}
	if deadline.Sub(now) >= sanityCap {
		return time.Time{}, false
	}
	return deadline, true
}
