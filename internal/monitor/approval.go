package monitor

import (
	"context"
	"time"

	"github.com/watchpane/sessionwatch/internal/notify"
	"github.com/watchpane/sessionwatch/internal/patterns"
	"github.com/watchpane/sessionwatch/internal/registry"
)

// runApprovalDetector drives the Approval Arbiter for one cycle. Limit
// recovery outranks approval: a genuine limit disables interactivity, so
// this is skipped whenever runLimitDetector has set awaitingContinuation.
func (e *Engine) runApprovalDetector(ctx context.Context, h *sessionHandle, rec registry.SessionRecord, slice, current string, now time.Time) {
	st := h.state
	if st.awaitingContinuation {
		return
	}
	if !patterns.ApprovalDialogPresent(slice) {
		return
	}

	colored, err := e.adapter.CaptureColored(ctx, rec.PaneID)
	if err != nil {
		e.logger.Printf("[MONITOR] session %s: capture colored for approval check: %v", h.id, err)
		return
	}
	if !patterns.InteractiveApproval(colored) {
		e.logger.Printf("[MONITOR] session %s: approval dialog text looks pasted, ignoring", h.id)
		return
	}

	info := patterns.ExtractApprovalInfo(current)
	if info.Question == "" || info.Question == st.lastApprovalQuestion {
		return
	}
	st.lastApprovalQuestion = info.Question

	e.Events.Publish(MonitorEvent{Type: EventApprovalNeeded, SessionID: h.id, Data: info.Question, Timestamp: now})

	metadata := map[string]string{
		"tool":     info.Tool,
		"question": info.Question,
		"options":  patterns.FormatOptionsForDisplay(info.Options),
	}
	e.notify(h.id, rec.Name, notify.KindApproval, info.Action, metadata)
	e.setStatus(ctx, h.id, registry.StatusWaitingApproval)
}
