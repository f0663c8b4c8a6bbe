// Package stream broadcasts session log entries to WebSocket clients.
package stream

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// MessageType is the type of a stream message.
type MessageType string

const (
	// TypeEntry carries one log entry.
	TypeEntry MessageType = "entry"

	// TypeState carries the session state after an operation.
	TypeState MessageType = "state"

	// TypeReset tells clients the session was reset.
	TypeReset MessageType = "reset"
)

// Message is sent to clients as a JSON text frame.
type Message struct {
	Type MessageType `json:"type"`

	// Seq numbers messages per hub, starting at 1.
	Seq uint64 `json:"seq"`

	Entry string `json:"entry,omitempty"`
	State any    `json:"state,omitempty"`
}

const (
	writeWait = 5 * time.Second

	// sendBuffer is the number of messages queued per client. A client that
	// falls further behind is disconnected.
	sendBuffer = 256
)

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// writeLoop drains the client's queue until it is closed.
func (c *client) writeLoop(h *Hub) {
	for data := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.logger.Debug("stream: dropping client", "error", err)
			h.remove(c)
			return
		}
	}
}

// Hub manages WebSocket connections of one session. Publishing never blocks
// on the network: messages are queued per client and written by one
// goroutine per connection, in Seq order.
type Hub struct {
	clients  map[*client]struct{}
	mu       sync.RWMutex
	seq      uint64
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewHub creates a hub. A nil logger means slog.Default().
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients: make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		logger: logger,
	}
}

// ServeHTTP upgrades the request and keeps the connection registered until
// the client disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	conn, err := h.upgrader.Upgrade(w, req, nil)
	if err != nil {
		h.logger.Warn("stream: upgrade failed", "error", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.logger.Debug("stream: client connected", "remote", req.RemoteAddr)

	go c.writeLoop(h)

	// Clients never send; reading detects the close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.remove(c)
	h.logger.Debug("stream: client disconnected", "remote", req.RemoteAddr)
}

// PublishEntry sends one log entry to all clients.
func (h *Hub) PublishEntry(entry string) {
	h.broadcast(Message{Type: TypeEntry, Entry: entry})
}

// PublishState sends state, which must marshal to JSON, to all clients.
func (h *Hub) PublishState(state any) {
	h.broadcast(Message{Type: TypeState, State: state})
}

// PublishReset tells all clients the session was reset.
func (h *Hub) PublishReset() {
	h.broadcast(Message{Type: TypeReset})
}

// broadcast assigns the next Seq and queues msg for every client under one
// lock, so every client sees Seq in increasing order.
func (h *Hub) broadcast(msg Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.seq++
	msg.Seq = h.seq
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("stream: encode message", "type", msg.Type, "error", err)
		return
	}

	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.logger.Warn("stream: client too slow, disconnecting", "seq", msg.Seq)
			h.drop(c)
		}
	}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.drop(c)
}

// drop unregisters c and closes its queue and connection. h.mu must be held.
func (h *Hub) drop(c *client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
	c.conn.Close()
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close closes all client connections.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		h.drop(c)
	}
}
