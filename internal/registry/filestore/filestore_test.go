package filestore

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/watchpane/sessionwatch/internal/registry"
)

func TestUpdateThenFlushPersistsToDisk(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir, 20*time.Millisecond, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx := context.Background()
	rec, err := s.Update(ctx, "sess-1", func(r registry.SessionRecord) registry.SessionRecord {
		r.Name = "build-agent"
		r.PaneID = "%3"
		r.Status = registry.StatusActive
		return r
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if rec.ID != "sess-1" {
		t.Errorf("ID = %q, want sess-1", rec.ID)
	}

	s.Flush("sess-1")

	path := filepath.Join(dir, "sess-1.json")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("expected file on disk: %v", err)
	}
	var persisted registry.SessionRecord
	if err := json.Unmarshal(data, &persisted); err != nil {
		t.Fatalf("unmarshal persisted: %v", err)
	}
	if persisted.Name != "build-agent" {
		t.Errorf("persisted.Name = %q, want build-agent", persisted.Name)
	}
}

func TestGetMissingReturnsErrNotFound(t *testing.T) {
	s, err := New(t.TempDir(), time.Second, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := s.Get(context.Background(), "nope"); err != registry.ErrNotFound {
		t.Errorf("Get missing = %v, want ErrNotFound", err)
	}
}

func TestNewLoadsExistingRecordsFromDisk(t *testing.T) {
	dir := t.TempDir()
	rec := registry.SessionRecord{ID: "sess-2", Name: "preexisting", Status: registry.StatusWaiting}
	data, _ := json.Marshal(rec)
	if err := os.WriteFile(filepath.Join(dir, "sess-2.json"), data, 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	s, err := New(dir, time.Second, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got, err := s.Get(context.Background(), "sess-2")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Name != "preexisting" {
		t.Errorf("Name = %q, want preexisting", got.Name)
	}
}

func TestUpdateDebouncesRepeatedWrites(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir, 30*time.Millisecond, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := s.Update(ctx, "sess-3", func(r registry.SessionRecord) registry.SessionRecord {
			r.Status = registry.StatusActive
			return r
		}); err != nil {
			t.Fatalf("Update: %v", err)
		}
	}

	path := filepath.Join(dir, "sess-3.json")
	if _, err := os.Stat(path); err == nil {
		t.Fatal("expected no file on disk before debounce window elapses")
	}

	time.Sleep(60 * time.Millisecond)
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected file on disk after debounce window: %v", err)
	}
}
