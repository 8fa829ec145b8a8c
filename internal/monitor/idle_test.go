package monitor

import (
	"context"
	"testing"
	"time"

	"github.com/watchpane/sessionwatch/internal/notify"
	"github.com/watchpane/sessionwatch/internal/registry"
)

func TestRunCycle_Scenario5_IdleCompletionAndCooldown(t *testing.T) {
	text := "Task finished\n> "
	adapter := newFakeAdapter()
	adapter.plainQueue = []string{text}

	reg := newFakeRegistry()
	reg.put(registry.SessionRecord{ID: "s6", Name: "agent-6", PaneID: "%6", Status: registry.StatusActive})

	notifier := &fakeNotifier{}
	clock := newFakeClock(time.Date(2026, 7, 29, 9, 0, 0, 0, time.UTC))

	e := newTestEngine(adapter, reg, notifier, clock)
	h := newHandle("s6")

	// t0: pane settles, output changes from "" to text. No idle fire yet.
	e.runCycle(context.Background(), h)
	if notifier.count() != 0 {
		t.Fatalf("at t0, notifier.count() = %d, want 0", notifier.count())
	}

	// t0+12s, no change: idle detector fires.
	clock.Advance(12 * time.Second)
	e.runCycle(context.Background(), h)
	if notifier.count() != 1 {
		t.Fatalf("at t0+12s, notifier.count() = %d, want 1", notifier.count())
	}
	n := notifier.last()
	if n.Kind != notify.KindTaskCompleted {
		t.Errorf("Kind = %q, want task_completed", n.Kind)
	}
	if n.Metadata["idleDurationSeconds"] != "12" {
		t.Errorf("idleDurationSeconds = %q, want 12", n.Metadata["idleDurationSeconds"])
	}

	// 30s later: suppressed by the 5-minute cooldown.
	clock.Advance(30 * time.Second)
	e.runCycle(context.Background(), h)
	if notifier.count() != 1 {
		t.Fatalf("after cooldown-suppressed cycle, notifier.count() = %d, want still 1", notifier.count())
	}
}

func TestRunCycle_IdleBoundaryExactly10sDoesNotFire(t *testing.T) {
	text := "Task finished\n> "
	adapter := newFakeAdapter()
	adapter.plainQueue = []string{text}

	reg := newFakeRegistry()
	reg.put(registry.SessionRecord{ID: "s7", Name: "agent-7", PaneID: "%7", Status: registry.StatusActive})

	notifier := &fakeNotifier{}
	clock := newFakeClock(time.Date(2026, 7, 29, 9, 0, 0, 0, time.UTC))

	e := newTestEngine(adapter, reg, notifier, clock)
	h := newHandle("s7")

	e.runCycle(context.Background(), h)
	clock.Advance(10 * time.Second)
	e.runCycle(context.Background(), h)
	if notifier.count() != 0 {
		t.Fatalf("at exactly 10s idle, notifier.count() = %d, want 0", notifier.count())
	}

	clock.Advance(1 * time.Millisecond)
	e.runCycle(context.Background(), h)
	if notifier.count() != 1 {
		t.Fatalf("just past 10s idle, notifier.count() = %d, want 1", notifier.count())
	}
}

func TestRunCycle_CompletionCooldownBoundaryExactly5MinDoesNotFire(t *testing.T) {
	text := "Task finished\n> "
	adapter := newFakeAdapter()
	adapter.plainQueue = []string{text}

	reg := newFakeRegistry()
	reg.put(registry.SessionRecord{ID: "s8", Name: "agent-8", PaneID: "%8", Status: registry.StatusActive})

	notifier := &fakeNotifier{}
	clock := newFakeClock(time.Date(2026, 7, 29, 9, 0, 0, 0, time.UTC))

	e := newTestEngine(adapter, reg, notifier, clock)
	h := newHandle("s8")

	e.runCycle(context.Background(), h)
	clock.Advance(11 * time.Second)
	e.runCycle(context.Background(), h)
	if notifier.count() != 1 {
		t.Fatalf("initial idle fire: notifier.count() = %d, want 1", notifier.count())
	}

	clock.Advance(5 * time.Minute)
	e.runCycle(context.Background(), h)
	if notifier.count() != 1 {
		t.Fatalf("at exactly 5min cooldown, notifier.count() = %d, want still 1", notifier.count())
	}

	clock.Advance(1 * time.Millisecond)
	e.runCycle(context.Background(), h)
	if notifier.count() != 2 {
		t.Fatalf("just past 5min cooldown, notifier.count() = %d, want 2", notifier.count())
	}
}
