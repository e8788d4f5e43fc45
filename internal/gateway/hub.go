// Package gateway serves the dashboard API: the /prices poll endpoint,
// settlement routes, a bhavcopy upload trigger and a WebSocket hub that
// pushes every refreshed price book to connected clients.
package gateway

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"commodity-systemv1/internal/metrics"
	"commodity-systemv1/internal/model"
)

// Hub manages WebSocket clients and fans each refreshed price book out to
// all of them.
type Hub struct {
	metrics *metrics.Metrics

	mu      sync.RWMutex
	clients map[*client]bool
	latest  []byte // last broadcast envelope, sent to new clients
}

// NewHub creates a hub. m may be nil.
func NewHub(m *metrics.Metrics) *Hub {
	return &Hub{
		metrics: m,
		clients: make(map[*client]bool),
	}
}

// BroadcastBook envelopes a freshly built price book and queues it to every
// connected client. Slow clients drop the frame rather than block the feed.
func (h *Hub) BroadcastBook(book model.PriceBook) {
	envelope, err := json.Marshal(map[string]interface{}{
		"type":   "prices",
		"prices": book,
		"ts":     time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		log.Printf("[api_gateway] WARNING: encode broadcast: %v", err)
		return
	}

	h.mu.Lock()
	h.latest = envelope
	for c := range h.clients {
		select {
		case c.send <- envelope:
		default:
		}
	}
	h.mu.Unlock()
}

// HandleWSRequest registers an upgraded connection and starts its pumps.
func (h *Hub) HandleWSRequest(conn *websocket.Conn) {
	c := &client{
		conn: conn,
		send: make(chan []byte, 16),
		hub:  h,
	}

	h.mu.Lock()
	h.clients[c] = true
	count := len(h.clients)
	initial := h.latest
	h.mu.Unlock()

	if h.metrics != nil {
		h.metrics.WSClients.Set(float64(count))
	}
	log.Printf("[api_gateway] ws client connected (%d total)", count)

	if initial != nil {
		c.send <- initial
	}
	go c.writePump()
	go c.readPump()
}

// ClientCount returns the number of connected WS clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) removeClient(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	count := len(h.clients)
	h.mu.Unlock()
	close(c.send)

	if h.metrics != nil {
		h.metrics.WSClients.Set(float64(count))
	}
}

// client is a single WebSocket peer.
type client struct {
	conn *websocket.Conn
	send chan []byte
	hub  *Hub
}

func (c *client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
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
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *client) readPump() {
	defer func() {
		c.hub.removeClient(c)
		c.conn.Close()
		log.Println("[api_gateway] ws client disconnected")
	}()

	c.conn.SetReadLimit(1024)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			break
		}

		var base struct {
			Ping int64 `json:"ping"`
		}
		if json.Unmarshal(msg, &base) != nil || base.Ping <= 0 {
			continue
		}
		pong, _ := json.Marshal(map[string]interface{}{
			"type":      "pong",
			"ping":      base.Ping,
			"server_ts": time.Now().UnixMilli(),
		})
		select {
		case c.send <- pong:
		default:
		}
	}
}
