package monitor

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/watchpane/sessionwatch/internal/notify"
	"github.com/watchpane/sessionwatch/internal/paneio"
	"github.com/watchpane/sessionwatch/internal/registry"
)

var errTransient = errors.New("transient failure")

// fakeAdapter implements paneio.Adapter over canned responses. CapturePlain
// and CaptureColored pop from a queue, repeating the last entry once the
// queue is drained, so a test can script a sequence of distinct captures
// (e.g. "before"/"after" a continue attempt) while later cycles keep seeing
// steady-state output.
type fakeAdapter struct {
	mu sync.Mutex

	plainQueue   []string
	coloredQueue []string

	paneExists bool
	existsErr  error

	sendCookedCalls []string
	sendRawCalls    []string
	continueCalls   int
}

var _ paneio.Adapter = (*fakeAdapter)(nil)

func newFakeAdapter() *fakeAdapter {
	return &fakeAdapter{paneExists: true}
}

func (f *fakeAdapter) popPlain() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.plainQueue) == 0 {
		return ""
	}
	v := f.plainQueue[0]
	if len(f.plainQueue) > 1 {
		f.plainQueue = f.plainQueue[1:]
	}
	return v
}

func (f *fakeAdapter) popColored() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.coloredQueue) == 0 {
		return ""
	}
	v := f.coloredQueue[0]
	if len(f.coloredQueue) > 1 {
		f.coloredQueue = f.coloredQueue[1:]
	}
	return v
}

func (f *fakeAdapter) CapturePlain(_ context.Context, _ string) (string, error) {
	return f.popPlain(), nil
}

func (f *fakeAdapter) CaptureColored(_ context.Context, _ string) (string, error) {
	return f.popColored(), nil
}

func (f *fakeAdapter) PaneExists(_ context.Context, _ string) (bool, error) {
	return f.paneExists, f.existsErr
}

func (f *fakeAdapter) SendCooked(_ context.Context, _, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sendCookedCalls = append(f.sendCookedCalls, text)
	return nil
}

func (f *fakeAdapter) SendRaw(_ context.Context, _, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sendRawCalls = append(f.sendRawCalls, token)
	return nil
}

func (f *fakeAdapter) SendContinueSequence(_ context.Context, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.continueCalls++
	return nil
}

// fakeRegistry implements registry.Registry in memory.
type fakeRegistry struct {
	mu      sync.Mutex
	records map[string]registry.SessionRecord
}

var _ registry.Registry = (*fakeRegistry)(nil)

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{records: make(map[string]registry.SessionRecord)}
}

func (f *fakeRegistry) put(rec registry.SessionRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[rec.ID] = rec
}

func (f *fakeRegistry) Get(_ context.Context, id string) (registry.SessionRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[id]
	if !ok {
		return registry.SessionRecord{}, registry.ErrNotFound
	}
	return rec, nil
}

func (f *fakeRegistry) Update(_ context.Context, id string, mutate func(registry.SessionRecord) registry.SessionRecord) (registry.SessionRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	updated := mutate(f.records[id])
	updated.ID = id
	f.records[id] = updated
	return updated, nil
}

func (f *fakeRegistry) List(_ context.Context) ([]registry.SessionRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]registry.SessionRecord, 0, len(f.records))
	for _, rec := range f.records {
		out = append(out, rec)
	}
	return out, nil
}

// fakeNotifier records every notification delivered to it.
type fakeNotifier struct {
	mu   sync.Mutex
	sent []notify.Notification
}

var _ notify.Notifier = (*fakeNotifier)(nil)

func (f *fakeNotifier) Notify(n notify.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, n)
	return nil
}

func (f *fakeNotifier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func (f *fakeNotifier) last() notify.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sent[len(f.sent)-1]
}

// fakeClock is a mutable, test-controlled Clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

var _ Clock = (*fakeClock)(nil)

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{now: start}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// newTestEngine wires an Engine with fakes and a no-op sleep so the
// ~3s immediate-continue wait does not slow down tests.
func newTestEngine(adapter *fakeAdapter, reg *fakeRegistry, notifier *fakeNotifier, clock *fakeClock) *Engine {
	e := New(adapter, reg, notifier, Config{}, clock, nil)
	e.sleep = func(time.Duration) {}
	return e
}

func newHandle(id string) *sessionHandle {
	return &sessionHandle{id: id, state: &sessionState{}}
}
