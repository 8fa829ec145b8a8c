package server

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/watchpane/sessionwatch/internal/monitor"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

const writeTimeout = 5 * time.Second

// hub relays MonitorEvents to every connected websocket client.
type hub struct {
	logger *log.Logger

	mu          sync.Mutex
	clients     map[*websocket.Conn]struct{}
	unsubscribe func()
	closed      bool
}

func newHub(logger *log.Logger) *hub {
	return &hub{logger: logger, clients: make(map[*websocket.Conn]struct{})}
}

func (h *hub) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("[SERVER] websocket upgrade failed: %v", err)
		return
	}

	h.mu.Lock()
	h.clients[conn] = struct{}{}
	h.mu.Unlock()

	go h.drainClient(conn)
}

// drainClient reads and discards frames from conn, purely so the
// connection's close and error conditions surface; the hub never accepts
// inbound commands over this channel.
func (h *hub) drainClient(conn *websocket.Conn) {
	defer h.removeClient(conn)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *hub) removeClient(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
	conn.Close()
}

func (h *hub) broadcast(evt monitor.MonitorEvent) {
	payload, err := json.Marshal(evt)
	if err != nil {
		h.logger.Printf("[SERVER] marshal event: %v", err)
		return
	}

	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for c := range h.clients {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	for _, conn := range conns {
		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			h.removeClient(conn)
		}
	}
}

// pumpFrom subscribes to bus and broadcasts every event until unsubscribed.
func (h *hub) pumpFrom(bus *monitor.EventBus) {
	events, unsubscribe := bus.Subscribe()
	h.mu.Lock()
	h.unsubscribe = unsubscribe
	h.mu.Unlock()

	for evt := range events {
		h.broadcast(evt)
	}
}

func (h *hub) close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	unsub := h.unsubscribe
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for c := range h.clients {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	if unsub != nil {
		unsub()
	}
	for _, c := range conns {
		c.Close()
	}
}
