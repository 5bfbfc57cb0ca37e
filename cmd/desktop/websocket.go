// WebSocket event channel for the desktop shell (sync status badge).
package main

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/facturo/backend/internal/logger"
	"github.com/facturo/backend/internal/uuid"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Only the local shell may connect
		return strings.HasPrefix(r.Host, "localhost") || strings.HasPrefix(r.Host, "127.0.0.1")
	},
}

// Event types pushed to the shell.
const (
	EventSyncStarted   = "sync.started"
	EventSyncCompleted = "sync.completed"
	EventSyncFailed    = "sync.failed"
	EventQueuePending  = "queue.pending"
)

// WSEnvelope wraps all WebSocket messages.
type WSEnvelope struct {
	Type      string                 `json:"type"`
	Data      map[string]interface{} `json:"data"`
	Timestamp int64                  `json:"timestamp"`
}

// WSClient represents one connected shell window.
type WSClient struct {
	id   string
	conn *websocket.Conn
	send chan []byte
	hub  *WSHub
}

// WSHub maintains active client connections and broadcasts events.
type WSHub struct {
	clients    map[string]*WSClient
	broadcast  chan []byte
	register   chan *WSClient
	unregister chan *WSClient
}

// NewWSHub creates a hub and starts its dispatch loop.
func NewWSHub() *WSHub {
	hub := &WSHub{
		clients:    make(map[string]*WSClient),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *WSClient),
		unregister: make(chan *WSClient),
	}
	go hub.run()
	return hub
}

func (h *WSHub) run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client.id] = client
			logger.Log.Debug("websocket client connected",
				zap.String("id", client.id), zap.Int("total", len(h.clients)))

		case client := <-h.unregister:
			if _, ok := h.clients[client.id]; ok {
				delete(h.clients, client.id)
				close(client.send)
			}
			logger.Log.Debug("websocket client disconnected",
				zap.String("id", client.id), zap.Int("total", len(h.clients)))

		case message := <-h.broadcast:
			for id, client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Client send buffer is full, drop the connection
					close(client.send)
					delete(h.clients, id)
				}
			}
		}
	}
}

// Broadcast sends an event envelope to all connected clients.
func (h *WSHub) Broadcast(eventType string, data map[string]interface{}) {
	envelope := WSEnvelope{
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now().Unix(),
	}

	payload, err := json.Marshal(envelope)
	if err != nil {
		logger.Log.Warn("failed to marshal websocket event", zap.Error(err))
		return
	}

	h.broadcast <- payload
}

// SyncStarted implements sync.Broadcaster.
func (h *WSHub) SyncStarted() {
	h.Broadcast(EventSyncStarted, map[string]interface{}{
		"status": "started",
	})
}

// SyncCompleted implements sync.Broadcaster.
func (h *WSHub) SyncCompleted(synced, failed int) {
	h.Broadcast(EventSyncCompleted, map[string]interface{}{
		"synced": synced,
		"failed": failed,
		"status": "completed",
	})
}

// SyncFailed implements sync.Broadcaster.
func (h *WSHub) SyncFailed(message string) {
	h.Broadcast(EventSyncFailed, map[string]interface{}{
		"error":  message,
		"status": "failed",
	})
}

// PendingCount implements sync.Broadcaster.
func (h *WSHub) PendingCount(count int) {
	h.Broadcast(EventQueuePending, map[string]interface{}{
		"pending": count,
	})
}

// ServeWS upgrades an HTTP request to a WebSocket connection.
func (h *WSHub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &WSClient{
		id:   uuid.New(),
		conn: conn,
		send: make(chan []byte, 64),
		hub:  h,
	}
	h.register <- client

	go client.writePump()
	go client.readPump()
}

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

func (c *WSClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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

// readPump drains incoming frames so pings/pongs and close messages are
// processed; the shell never sends application data.
func (c *WSClient) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
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
