package monitor

import (
	"fmt"
	"strconv"
	"time"

	"github.com/watchpane/sessionwatch/internal/notify"
	"github.com/watchpane/sessionwatch/internal/patterns"
	"github.com/watchpane/sessionwatch/internal/registry"
)

const (
	idleThreshold       = 10 * time.Second
	completionCooldown  = 5 * time.Minute
)

// runIdleDetector drives the Idle/Completion Detector for one cycle. It
// runs on every cycle against the current snapshot, not just on change.
func (e *Engine) runIdleDetector(h *sessionHandle, rec registry.SessionRecord, current string, now time.Time) {
	st := h.state
	if st.awaitingContinuation {
		return
	}
	if st.lastOutputChangeTime.IsZero() {
		return
	}

	quiet := now.Sub(st.lastOutputChangeTime)
	if quiet <= idleThreshold {
		return
	}
	if !patterns.WaitingForInput(current) || !patterns.NotProcessing(current) {
		return
	}
	if !st.lastTaskCompletionNotification.IsZero() && now.Sub(st.lastTaskCompletionNotification) <= completionCooldown {
		return
	}

	st.lastTaskCompletionNotification = now
	idleSeconds := int(quiet.Seconds())

	e.Events.Publish(MonitorEvent{Type: EventTaskCompleted, SessionID: h.id, Data: idleSeconds, Timestamp: now})
	e.notify(h.id, rec.Name, notify.KindTaskCompleted,
		fmt.Sprintf("Task completed, idle %ds", idleSeconds),
		map[string]string{"idleDurationSeconds": strconv.Itoa(idleSeconds)})
}
