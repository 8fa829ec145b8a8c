// Package server exposes a small read-only status API over the engine:
// an HTTP surface for session snapshots and a websocket hub that relays
// MonitorEvents live. This is the seam an external chat-bot transport (kept
// out of the core) would consume; it is distinct from the Notifier's direct
// outbound webhooks.
package server

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/watchpane/sessionwatch/internal/monitor"
	"github.com/watchpane/sessionwatch/internal/registry"
)

// Server serves session status and a live event websocket.
type Server struct {
	registry registry.Registry
	engine   *monitor.Engine
	hub      *hub
	logger   *log.Logger
	router   *mux.Router
}

// New builds a Server. It subscribes to engine's event bus for the
// lifetime of the process; call Close to release that subscription.
func New(reg registry.Registry, engine *monitor.Engine, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	s := &Server{
		registry: reg,
		engine:   engine,
		hub:      newHub(logger),
		logger:   logger,
	}
	s.router = mux.NewRouter()
	s.router.HandleFunc("/sessions", s.handleListSessions).Methods(http.MethodGet)
	s.router.HandleFunc("/sessions/{id}", s.handleGetSession).Methods(http.MethodGet)
	s.router.HandleFunc("/ws", s.hub.handleWebSocket).Methods(http.MethodGet)

	go s.hub.pumpFrom(engine.Events)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Close stops the hub's event pump.
func (s *Server) Close() {
	s.hub.close()
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	records, err := s.registry.List(ctx)
	if err != nil {
		s.logger.Printf("[SERVER] list sessions: %v", err)
		http.Error(w, "failed to list sessions", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	rec, err := s.registry.Get(ctx, id)
	if err != nil {
		if err == registry.ErrNotFound {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}
		s.logger.Printf("[SERVER] get session %s: %v", id, err)
		http.Error(w, "failed to load session", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
