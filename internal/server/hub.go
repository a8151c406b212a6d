// Package server provides the HTTP+WebSocket front-end for the memory
// store: a REST surface mirroring the CLI/MCP operations, and a live
// activity feed driven by the filesystem event notifications the engine
// emits whenever it records history: on capture (including merges and
// supersedes), consolidate, search, and show. Relating memories emits none.
package server

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"nhooyr.io/websocket"
)

// Hub manages WebSocket connections and broadcasts activity events to all
// of them.
type Hub struct {
	clients    map[*wsClient]bool
	broadcast  chan interface{}
	register   chan *wsClient
	unregister chan *wsClient
	mu         sync.RWMutex
	ctx        context.Context
	cancel     context.CancelFunc
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

// NewHub creates a Hub. Call Run in a goroutine to start it.
func NewHub() *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:    make(map[*wsClient]bool),
		broadcast:  make(chan interface{}, 256),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Run processes registrations, unregistrations, and broadcasts until Stop
// is called.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			data, err := json.Marshal(message)
			if err != nil {
				log.Printf("server: marshal activity event: %v", err)
				continue
			}
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- data:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()

		case <-h.ctx.Done():
			return
		}
	}
}

// Stop closes every connected client and stops the run loop.
func (h *Hub) Stop() {
	h.cancel()
	h.mu.Lock()
	for client := range h.clients {
		close(client.send)
		_ = client.conn.Close(websocket.StatusNormalClosure, "")
	}
	h.clients = make(map[*wsClient]bool)
	h.mu.Unlock()
}

// Broadcast sends an activity event to every connected client. Non-blocking:
// a full channel drops the event rather than stalling the caller.
func (h *Hub) Broadcast(eventType, memoryID string) {
	select {
	case h.broadcast <- activityEvent{Type: eventType, MemoryID: memoryID, Time: time.Now().UTC()}:
	default:
		log.Println("server: activity broadcast channel full, dropping event")
	}
}

type activityEvent struct {
	Type     string    `json:"type"`
	MemoryID string    `json:"memory_id"`
	Time     time.Time `json:"time"`
}

// ServeHTTP upgrades the request to a WebSocket and streams activity events
// to it until the connection closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"localhost:*", "127.0.0.1:*"},
	})
	if err != nil {
		log.Printf("server: websocket upgrade failed: %v", err)
		return
	}

	client := &wsClient{conn: conn, send: make(chan []byte, 64)}
	h.register <- client

	go client.writePump(h)
	client.readPump(h)
}

func (c *wsClient) writePump(h *Hub) {
	defer func() {
		_ = c.conn.Close(websocket.StatusNormalClosure, "")
	}()
	for message := range c.send {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := c.conn.Write(ctx, websocket.MessageText, message)
		cancel()
		if err != nil {
			return
		}
	}
}

func (c *wsClient) readPump(h *Hub) {
	defer func() {
		h.unregister <- c
	}()
	for {
		if _, _, err := c.conn.Read(context.Background()); err != nil {
			return
		}
	}
}
