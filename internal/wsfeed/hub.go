// Package wsfeed broadcasts worker-pool job lifecycle events to connected
// operator consoles over a websocket. A slow client gets disconnected
// instead of blocking the broadcaster.
package wsfeed

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Hub manages the set of currently connected operator consoles.
type Hub struct {
	log *zap.Logger

	clients    map[*Client]struct{}
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
}

// Client is one connected websocket consumer of the job feed.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// Event is one job lifecycle notification pushed to the feed.
type Event struct {
	Type      string      `json:"type"` // "job_enqueued", "job_completed", "job_failed"
	JobID     string      `json:"job_id"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// NewHub builds an idle Hub. Call Run in its own goroutine to start it.
func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		log:        log,
		clients:    make(map[*Client]struct{}),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run processes register/unregister/broadcast events until the given
// channel loop is torn down by process shutdown; it has no stop signal of
// its own since it holds no resources beyond in-memory channels.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = struct{}{}
			h.mu.Unlock()
			h.log.Debug("wsfeed client connected", zap.Int("clients", len(h.clients)))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			h.log.Debug("wsfeed client disconnected", zap.Int("clients", len(h.clients)))

		case message := <-h.broadcast:
			h.mu.RLock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					h.log.Warn("wsfeed client send buffer full, dropping client")
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Publish broadcasts a job lifecycle event to every connected console.
// Non-blocking: if the broadcast channel itself is saturated the event is
// dropped rather than stalling the worker that published it.
func (h *Hub) Publish(eventType, jobID string, data interface{}) {
	msg := Event{
		Type:      eventType,
		JobID:     jobID,
		Data:      data,
		Timestamp: time.Now().Unix(),
	}

	jsonData, err := json.Marshal(msg)
	if err != nil {
		h.log.Error("failed to marshal wsfeed event", zap.Error(err))
		return
	}

	select {
	case h.broadcast <- jsonData:
	default:
		h.log.Warn("wsfeed broadcast channel full, dropping event", zap.String("type", eventType), zap.String("job_id", jobID))
	}
}

// ServeWS upgrades the HTTP connection and registers it as a feed client.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("wsfeed upgrade failed", zap.Error(err))
		return
	}

	client := &Client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, 256),
	}

	h.register <- client

	go client.writePump()
	go client.readPump()
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Debug("wsfeed read error", zap.Error(err))
			}
			break
		}
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()
	for {
		message, ok := <-c.send
		if !ok {
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
}
