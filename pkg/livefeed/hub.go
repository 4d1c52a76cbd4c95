// Package livefeed serves the most recent readings over HTTP and websocket,
// and provides the client side used to follow such a feed.
package livefeed

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/NotCoffee418/p1_forwarder/pkg/types"
)

const (
	writeTimeout  = 5 * time.Second
	pendingBuffer = 16
)

type client struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (c *client) write(payload []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}

// Hub keeps the latest reading and fans every new one out to the
// connected websocket clients.
type Hub struct {
	logger   *slog.Logger
	upgrader websocket.Upgrader

	clientsMu sync.RWMutex
	clients   map[*client]bool

	latestMu sync.RWMutex
	latest   *types.Reading

	pending chan *types.Reading
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		logger: logger,
		upgrader: websocket.Upgrader{
			// The feed is read-only and unauthenticated.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[*client]bool),
		pending: make(chan *types.Reading, pendingBuffer),
	}
}

// Broadcast stores reading as the latest and queues it for the websocket
// clients. It never blocks: with a full buffer the clients miss this reading.
func (h *Hub) Broadcast(reading *types.Reading) {
	h.latestMu.Lock()
	h.latest = reading
	h.latestMu.Unlock()

	select {
	case h.pending <- reading:
	default:
		h.logger.Debug("Live feed buffer full, skipping reading")
	}
}

// Run fans queued readings out to the clients until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return nil
		case reading := <-h.pending:
			h.send(reading)
		}
	}
}

// send writes reading to every client. Clients that fail to receive it are
// dropped.
func (h *Hub) send(reading *types.Reading) {
	payload := reading.ToJsonBytes()
	if payload == nil {
		return
	}

	h.clientsMu.RLock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.clientsMu.RUnlock()

	for _, c := range clients {
		if err := c.write(payload); err != nil {
			h.logger.Debug("Dropping websocket client", "remote", c.conn.RemoteAddr(), "error", err)
			h.removeClient(c)
		}
	}
}

func (h *Hub) Latest() *types.Reading {
	h.latestMu.RLock()
	defer h.latestMu.RUnlock()
	return h.latest
}

func (h *Hub) ClientCount() int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients)
}

// Handler exposes "/" (status), "/latest" and "/ws".
func (h *Hub) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", h.handleStatus)
	mux.HandleFunc("/latest", h.handleLatest)
	mux.HandleFunc("/ws", h.handleWebSocket)
	return mux
}

func (h *Hub) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "P1 Forwarder",
		"status":  "running",
	})
}

func (h *Hub) handleLatest(w http.ResponseWriter, r *http.Request) {
	reading := h.Latest()
	if reading == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "No readings available yet",
		})
		return
	}
	writeJSON(w, http.StatusOK, reading)
}

func (h *Hub) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade error", "error", err)
		return
	}

	c := &client{conn: conn}
	h.addClient(c)

	if reading := h.Latest(); reading != nil {
		if err := c.write(reading.ToJsonBytes()); err != nil {
			h.removeClient(c)
			return
		}
	}

	// Drain until the peer goes away; control frames are handled by the reads.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			h.removeClient(c)
			return
		}
	}
}

func (h *Hub) closeAll() {
	h.clientsMu.Lock()
	clients := h.clients
	h.clients = make(map[*client]bool)
	h.clientsMu.Unlock()

	for c := range clients {
		c.conn.Close()
	}
}

func (h *Hub) addClient(c *client) {
	h.clientsMu.Lock()
	h.clients[c] = true
	h.clientsMu.Unlock()
}

func (h *Hub) removeClient(c *client) {
	h.clientsMu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	h.clientsMu.Unlock()

	if ok {
		c.conn.Close()
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
