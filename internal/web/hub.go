package web

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"wallet-fleet-go/internal/engine"
)

// WSEvent is the envelope pushed to connected observers.
type WSEvent struct {
	Data any    `json:"data"`
	Type string `json:"type"` // "snapshot"
}

const (
	writeWait  = 10 * time.Second
	pongWait   = 30 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// The hub binds to an operator-chosen address and carries no
		// secrets beyond what the operator already sees on stdout.
		return true
	},
}

// Client is one connected observer.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// Hub maintains active observer connections and broadcasts pass snapshots
// to them. Slow consumers are dropped rather than allowed to block a pass.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan any
	register   chan *Client
	unregister chan *Client
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan any, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Broadcast queues an event for all connected observers. It never blocks;
// when the queue is full the event is dropped.
func (h *Hub) Broadcast(eventType string, data any) {
	select {
	case h.broadcast <- WSEvent{Type: eventType, Data: data}:
	default:
	}
}

// Run processes registrations and broadcasts until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	engine.Logger.Info("STATUS_HUB_STARTED")
	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				close(client.send)
			}
			return
		case client := <-h.register:
			h.clients[client] = true
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
		case event := <-h.broadcast:
			payload, err := json.Marshal(event)
			if err != nil {
				continue
			}
			for client := range h.clients {
				select {
				case client.send <- payload:
				default:
					delete(h.clients, client)
					close(client.send)
				}
			}
		}
	}
}

// ServeWS upgrades an HTTP request into an observer connection.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		engine.Logger.Warn("WS_UPGRADE_FAILED", "error", err.Error())
		return
	}
	client := &Client{hub: h, conn: conn, send: make(chan []byte, 16)}
	h.register <- client

	go client.writePump()
	go client.readPump()
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
