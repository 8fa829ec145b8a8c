// Package filestore implements registry.Registry as one JSON file per
// session under a directory, with debounced saves so a burst of updates to
// the same session collapses into a single write.
package filestore

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/watchpane/sessionwatch/internal/registry"
)

// Store persists SessionRecords as individual JSON files under Dir.
type Store struct {
	dir          string
	debounce     time.Duration
	logger       *log.Logger

	mu      sync.Mutex
	records map[string]registry.SessionRecord
	timers  map[string]*time.Timer
}

var _ registry.Registry = (*Store)(nil)

// New returns a Store rooted at dir, creating it if necessary. Writes to a
// given session are coalesced within debounce of each other.
func New(dir string, debounce time.Duration, logger *log.Logger) (*Store, error) {
	if logger == nil {
		logger = log.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("filestore: create dir: %w", err)
	}
	s := &Store{
		dir:      dir,
		debounce: debounce,
		logger:   logger,
		records:  make(map[string]registry.SessionRecord),
		timers:   make(map[string]*time.Timer),
	}
	if err := s.loadAll(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) loadAll() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("filestore: read dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		path := filepath.Join(s.dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			s.logger.Printf("[REGISTRY] skip unreadable file %s: %v", path, err)
			continue
		}
		var rec registry.SessionRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			s.logger.Printf("[REGISTRY] skip corrupt file %s: %v", path, err)
			continue
		}
		s.records[rec.ID] = rec
	}
	return nil
}

// Get implements registry.Registry.
func (s *Store) Get(_ context.Context, id string) (registry.SessionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return registry.SessionRecord{}, registry.ErrNotFound
	}
	return rec, nil
}

// List implements registry.Registry.
func (s *Store) List(_ context.Context) ([]registry.SessionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]registry.SessionRecord, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec)
	}
	return out, nil
}

// Update implements registry.Registry, scheduling a debounced save after
// applying mutate in memory.
func (s *Store) Update(_ context.Context, id string, mutate func(registry.SessionRecord) registry.SessionRecord) (registry.SessionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing := s.records[id]
	updated := mutate(existing)
	updated.ID = id
	s.records[id] = updated

	s.scheduleSaveLocked(id)
	return updated, nil
}

func (s *Store) scheduleSaveLocked(id string) {
	if t, ok := s.timers[id]; ok {
		t.Stop()
	}
	s.timers[id] = time.AfterFunc(s.debounce, func() { s.flush(id) })
}

func (s *Store) flush(id string) {
	s.mu.Lock()
	rec, ok := s.records[id]
	delete(s.timers, id)
	s.mu.Unlock()
	if !ok {
		return
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		s.logger.Printf("[REGISTRY] marshal %s: %v", id, err)
		return
	}
	path := filepath.Join(s.dir, id+".json")
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		s.logger.Printf("[REGISTRY] write %s: %v", id, err)
		return
	}
	if err := os.Rename(tmp, path); err != nil {
		s.logger.Printf("[REGISTRY] rename %s: %v", id, err)
	}
}

// Flush forces any pending debounced write for id to happen immediately.
// Intended for graceful-shutdown paths.
func (s *Store) Flush(id string) {
	s.mu.Lock()
	if t, ok := s.timers[id]; ok {
		t.Stop()
		delete(s.timers, id)
	}
	s.mu.Unlock()
	s.flush(id)
}

// FlushAll forces every pending debounced write to happen immediately.
func (s *Store) FlushAll() {
	s.mu.Lock()
	ids := make([]string, 0, len(s.records))
	for id := range s.records {
		ids = append(ids, id)
	}
	s.mu.Unlock()
	for _, id := range ids {
		s.Flush(id)
	}
}
