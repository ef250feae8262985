// Package ws broadcasts job updates to websocket clients. Polling the jobs
// API stays the primary interface; the feed is a convenience for UIs.
package ws

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/videoarena/videoarena/pkg/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

const (
	// sendBuffer is how many snapshots a client may fall behind before it
	// is dropped.
	sendBuffer = 16

	writeTimeout = 10 * time.Second
)

// client is one websocket connection with its own writer goroutine. All
// writes go through send so broadcasting never waits on the network.
type client struct {
	conn *websocket.Conn
	send chan *models.Job
}

// Hub manages websocket connections and fans job snapshots out to them.
type Hub struct {
	mu      sync.Mutex
	clients map[*client]bool
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[*client]bool)}
}

// Handler upgrades the request and registers the connection.
func (h *Hub) Handler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}
	h.add(conn)
}

func (h *Hub) add(conn *websocket.Conn) {
	c := &client{conn: conn, send: make(chan *models.Job, sendBuffer)}

	h.mu.Lock()
	h.clients[c] = true
	n := len(h.clients)
	h.mu.Unlock()

	slog.Info("websocket client connected", "clients", n)

	go h.writeLoop(c)

	// reader goroutine: we ignore client messages, but reading is how we
	// notice a dropped connection
	go func() {
		defer func() {
			h.remove(c)
			slog.Info("websocket client disconnected")
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// writeLoop drains the client's send channel onto the connection. It exits
// when the channel is closed by remove or when a write fails.
func (h *Hub) writeLoop(c *client) {
	for job := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteJSON(job); err != nil {
			slog.Warn("websocket write failed, dropping client", "error", err)
			h.remove(c)
			return
		}
	}
}

// remove unregisters the client and closes its connection. Safe to call more
// than once; the send channel is closed exactly once.
func (h *Hub) remove(c *client) {
	h.mu.Lock()
	if h.clients[c] {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
	c.conn.Close()
}

// JobUpdated implements queue.Notifier: every job update is pushed to all
// connected clients. The send is non-blocking; a client whose buffer is full
// is not keeping up and gets dropped, so a stalled connection can never hold
// up the job pipeline.
func (h *Hub) JobUpdated(job *models.Job) {
	var stalled []*client

	h.mu.Lock()
	for c := range h.clients {
		select {
		case c.send <- job:
		default:
			stalled = append(stalled, c)
		}
	}
	h.mu.Unlock()

	for _, c := range stalled {
		slog.Warn("websocket client not keeping up, dropping")
		h.remove(c)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}
