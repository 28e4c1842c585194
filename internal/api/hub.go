package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"apextrader/internal/engine"
	"apextrader/internal/scanner"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = 30 * time.Second
	sendBufferSize = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// Client is a single WebSocket peer. Slow peers get dropped rather
// than backing up the hub.
type client struct {
	conn *websocket.Conn
	send chan []byte
	hub  *Hub
}

// Hub pushes engine status and scan updates to WebSocket subscribers.
// It implements the engine's publisher port; new clients immediately
// receive the latest snapshot of each channel.
type Hub struct {
	log *slog.Logger

	mu      sync.RWMutex
	clients map[*client]struct{}
	latest  map[string][]byte // last envelope per channel
}

// NewHub creates an empty hub.
func NewHub(log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		log:     log,
		clients: make(map[*client]struct{}),
		latest:  make(map[string][]byte),
	}
}

// PublishStatus broadcasts an engine status snapshot.
func (h *Hub) PublishStatus(_ context.Context, st engine.Status) {
	h.broadcast("status", st)
}

// PublishScan broadcasts a completed scan result.
func (h *Hub) PublishScan(_ context.Context, res *scanner.Result) {
	if res != nil {
		h.broadcast("scan", res)
	}
}

func (h *Hub) broadcast(channel string, v any) {
	envelope, err := json.Marshal(map[string]any{
		"channel": channel,
		"data":    v,
		"ts":      time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		h.log.Warn("ws envelope marshal failed", "channel", channel, "err", err)
		return
	}

	h.mu.Lock()
	h.latest[channel] = envelope
	for c := range h.clients {
		select {
		case c.send <- envelope:
		default:
			// slow consumer, drop it
			delete(h.clients, c)
			close(c.send)
		}
	}
	h.mu.Unlock()
}

// ServeWS upgrades the connection and registers the client.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", "err", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBufferSize), hub: h}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	for _, envelope := range h.latest {
		select {
		case c.send <- envelope:
		default:
		}
	}
	h.mu.Unlock()

	go c.writePump()
	go c.readPump()
}

// ClientCount returns the number of connected subscribers.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards client messages; it exists to process pongs and
// detect disconnects.
func (c *client) readPump() {
	defer func() {
		c.hub.remove(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(1024)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
