package monitor

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/watchpane/sessionwatch/internal/notify"
	"github.com/watchpane/sessionwatch/internal/registry"
)

const quotaStageMinAge = 5 * time.Second

// runQuotaGate drives the Quota Scheduler's stage/fire two-phase logic for
// one cycle.
func (e *Engine) runQuotaGate(ctx context.Context, h *sessionHandle, rec registry.SessionRecord, now time.Time) {
	st := h.state
	sched := rec.QuotaSchedule
	if sched == nil {
		return
	}

	if !st.quotaCommandSent {
		if now.Sub(rec.Created) < quotaStageMinAge {
			return
		}
		if err := e.adapter.SendRaw(ctx, rec.PaneID, sched.Command); err != nil {
			e.logger.Printf("[MONITOR] session %s: stage quota command: %v", h.id, err)
			return
		}
		st.quotaCommandSent = true
		return
	}

	if now.Before(sched.NextExecution) {
		return
	}

	if err := e.adapter.SendRaw(ctx, rec.PaneID, "Enter"); err != nil {
		e.logger.Printf("[MONITOR] session %s: fire quota command: %v", h.id, err)
		return
	}

	nextExecution, nextCommand := rollQuotaSchedule(sched, now)
	if _, err := e.registry.Update(ctx, h.id, func(r registry.SessionRecord) registry.SessionRecord {
		r.QuotaSchedule = &registry.QuotaSchedule{
			TimeOfDay:     sched.TimeOfDay,
			Command:       nextCommand,
			NextExecution: nextExecution,
		}
		return r
	}); err != nil {
		e.logger.Printf("[MONITOR] session %s: persist rolled quota schedule: %v", h.id, err)
	}

	st.quotaCommandSent = false
	e.notify(h.id, rec.Name, notify.KindContinued, "Daily quota command executed", nil)
}

// NextQuotaExecution computes the next wall-clock firing time for timeOfDay
// ("HH:MM", or any form parseTimeOfDay accepts) relative to now: today if the time hasn't passed yet, tomorrow
// otherwise. Used to seed a freshly configured QuotaSchedule's
// NextExecution before the engine has ever rolled it forward.
func NextQuotaExecution(timeOfDay string, now time.Time) (time.Time, bool) {
	hour, minute, ok := parseTimeOfDay(timeOfDay)
	if !ok {
		return time.Time{}, false
	}
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next, true
}

// rollQuotaSchedule computes the next day's firing time and a refreshed
// command carrying that date, per §4.J: daily recurrence always rolls to
// tomorrow regardless of how late "now" has drifted past nextExecution.
func rollQuotaSchedule(sched *registry.QuotaSchedule, now time.Time) (time.Time, string) {
	hour, minute, ok := parseTimeOfDay(sched.TimeOfDay)
	if !ok {
		hour, minute = now.Hour(), now.Minute()
	}
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location()).AddDate(0, 0, 1)
	return next, regenerateCommand(sched.Command, next)
}

// parseTimeOfDay parses a time of day ("05:00", "5am", "6:30pm"): "H" or
// "H:MM" with an optional am/pm suffix, using parseResetDeadline's 12-hour
// conversion and rejecting out-of-range values. Unlike parseResetDeadline
// this never applies the 5-hour cap: quota windows recur daily by design.
func parseTimeOfDay(raw string) (hour, minute int, ok bool) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	meridiem := ""
	if strings.HasSuffix(raw, "am") || strings.HasSuffix(raw, "pm") {
		raw, meridiem = strings.TrimSpace(raw[:len(raw)-2]), raw[len(raw)-2:]
	}
	parts := strings.SplitN(raw, ":", 2)
	h, err := strconv.Atoi(parts[0])
	if err != nil || h > 23 || h < 0 {
		return 0, 0, false
	}
	m := 0
	if len(parts) == 2 {
		m, err = strconv.Atoi(parts[1])
		if err != nil || m > 59 || m < 0 {
			return 0, 0, false
		}
	}
	if meridiem == "pm" && h != 12 {
		h += 12
	} else if meridiem == "am" && h == 12 {
		h = 0
	}
	if h > 23 {
		return 0, 0, false
	}
	return h, m, true
}

var quotaCommandDateSuffix = regexp.MustCompile(`\s+\d{4}-\d{2}-\d{2}$`)

// regenerateCommand strips any trailing "YYYY-MM-DD" date stamp the
// previous day's staged command carried and appends next's date. The rest
// of the command text is opaque to the engine.
func regenerateCommand(command string, next time.Time) string {
	base := strings.TrimSpace(quotaCommandDateSuffix.ReplaceAllString(command, ""))
	return fmt.Sprintf("%s %s", base, next.Format("2006-01-02"))
}
