package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/watchpane/sessionwatch/internal/monitor"
	"github.com/watchpane/sessionwatch/internal/registry"
)

type fakeRegistry struct {
	records map[string]registry.SessionRecord
}

func (f *fakeRegistry) Get(_ context.Context, id string) (registry.SessionRecord, error) {
	rec, ok := f.records[id]
	if !ok {
		return registry.SessionRecord{}, registry.ErrNotFound
	}
	return rec, nil
}

func (f *fakeRegistry) Update(_ context.Context, id string, mutate func(registry.SessionRecord) registry.SessionRecord) (registry.SessionRecord, error) {
	updated := mutate(f.records[id])
	updated.ID = id
	f.records[id] = updated
	return updated, nil
}

func (f *fakeRegistry) List(_ context.Context) ([]registry.SessionRecord, error) {
	out := make([]registry.SessionRecord, 0, len(f.records))
	for _, r := range f.records {
		out = append(out, r)
	}
	return out, nil
}

type nopAdapter struct{}

func (nopAdapter) CapturePlain(context.Context, string) (string, error)    { return "", nil }
func (nopAdapter) CaptureColored(context.Context, string) (string, error)  { return "", nil }
func (nopAdapter) PaneExists(context.Context, string) (bool, error)        { return true, nil }
func (nopAdapter) SendCooked(context.Context, string, string) error        { return nil }
func (nopAdapter) SendRaw(context.Context, string, string) error           { return nil }
func (nopAdapter) SendContinueSequence(context.Context, string) error      { return nil }

func TestHandleGetSessionNotFound(t *testing.T) {
	reg := &fakeRegistry{records: map[string]registry.SessionRecord{}}
	engine := monitor.New(nopAdapter{}, reg, nil, monitor.Config{}, nil, nil)
	defer engine.StopAll()

	srv := New(reg, engine, nil)
	defer srv.Close()

	req := httptest.NewRequest(http.MethodGet, "/sessions/nope", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestHandleListSessions(t *testing.T) {
	reg := &fakeRegistry{records: map[string]registry.SessionRecord{
		"s1": {ID: "s1", Name: "agent-1", Status: registry.StatusActive},
	}}
	engine := monitor.New(nopAdapter{}, reg, nil, monitor.Config{}, nil, nil)
	defer engine.StopAll()

	srv := New(reg, engine, nil)
	defer srv.Close()

	req := httptest.NewRequest(http.MethodGet, "/sessions", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var got []registry.SessionRecord
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(got) != 1 || got[0].ID != "s1" {
		t.Fatalf("got %+v, want one record s1", got)
	}
}

func TestEventsBroadcastToWebSocketClients(t *testing.T) {
	reg := &fakeRegistry{records: map[string]registry.SessionRecord{}}
	engine := monitor.New(nopAdapter{}, reg, nil, monitor.Config{}, nil, nil)
	defer engine.StopAll()

	srv := New(reg, engine, nil)
	defer srv.Close()

	ts := httptest.NewServer(srv)
	defer ts.Close()
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Give the hub's event pump a moment to subscribe and register the client.
	time.Sleep(20 * time.Millisecond)

	engine.Events.Publish(monitor.MonitorEvent{Type: monitor.EventTaskCompleted, SessionID: "s1", Timestamp: time.Now()})

	conn.SetReadDeadline(time.Now().Add(time.Second))
	var got monitor.MonitorEvent
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("read event: %v", err)
	}
	if got.Type != monitor.EventTaskCompleted || got.SessionID != "s1" {
		t.Errorf("got event %+v, want task_completed for s1", got)
	}
}
