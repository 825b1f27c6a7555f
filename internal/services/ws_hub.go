package services

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	wsSendBuffer   = 32
	wsWriteTimeout = 10 * time.Second
)

// WSMessage represents a WebSocket message
type WSMessage struct {
	Type      string      `json:"type"`
	Timestamp int64       `json:"timestamp,omitempty"`
	Message   string      `json:"message,omitempty"`
	Data      interface{} `json:"data,omitempty"`
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte

	mu     sync.Mutex
	closed bool
}

func (c *wsClient) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// trySend queues data without blocking. full is true when the buffer is full.
func (c *wsClient) trySend(data []byte) (sent, full bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false, false
	}
	select {
	case c.send <- data:
		return true, false
	default:
		return false, true
	}
}

// writePump is the only writer on the connection
func (c *wsClient) writePump(userID string) {
	defer c.conn.Close()
	for data := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Warn().Err(err).Str("user_id", userID).Msg("Failed to write WebSocket message")
			return
		}
	}
	_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

// WSHub manages dashboard WebSocket connections and streams inbox changes
// to them
type WSHub struct {
	mu          sync.RWMutex
	connections map[string]*wsClient
	messages    *MessageStore
	stopWatch   func()
}

// NewWSHub creates a new WebSocket hub following the message store
func NewWSHub(messages *MessageStore) *WSHub {
	h := &WSHub{
		connections: make(map[string]*wsClient),
		messages:    messages,
	}
	h.stopWatch = messages.Watch(h.onMessageChange)
	return h
}

// Register registers a new WebSocket connection for a user, replacing any
// previous one, and sends the current inbox status
func (h *WSHub) Register(userID string, conn *websocket.Conn) {
	client := &wsClient{conn: conn, send: make(chan []byte, wsSendBuffer)}

	h.mu.Lock()
	if existing, exists := h.connections[userID]; exists {
		existing.close()
	}
	h.connections[userID] = client
	h.mu.Unlock()

	go client.writePump(userID)
	log.Info().Str("user_id", userID).Msg("WebSocket connection registered")

	if err := h.SendToUser(userID, h.inboxStatus()); err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to send inbox status")
	}
}

// Unregister removes the WebSocket connection of a user if it is still conn
func (h *WSHub) Unregister(userID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if client, exists := h.connections[userID]; exists && client.conn == conn {
		client.close()
		delete(h.connections, userID)
		log.Info().Str("user_id", userID).Msg("WebSocket connection unregistered")
	}
}

// SendToUser queues a message for a specific user
func (h *WSHub) SendToUser(userID string, message WSMessage) error {
	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	h.mu.RLock()
	client, exists := h.connections[userID]
	h.mu.RUnlock()
	if !exists {
		return fmt.Errorf("user %s is not connected", userID)
	}

	if !h.enqueue(userID, client, data) {
		return fmt.Errorf("user %s connection is closing", userID)
	}
	return nil
}

// Broadcast queues a message for every connected dashboard
func (h *WSHub) Broadcast(message WSMessage) {
	data, err := json.Marshal(message)
	if err != nil {
		log.Error().Err(err).Str("type", message.Type).Msg("Failed to marshal broadcast")
		return
	}

	h.mu.RLock()
	clients := make(map[string]*wsClient, len(h.connections))
	for userID, client := range h.connections {
		clients[userID] = client
	}
	h.mu.RUnlock()

	for userID, client := range clients {
		h.enqueue(userID, client, data)
	}
}

// IsOnline checks if a user has a dashboard open
func (h *WSHub) IsOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, exists := h.connections[userID]
	return exists
}

// Close stops following the inbox and closes every connection
func (h *WSHub) Close() {
	h.stopWatch()

	h.mu.Lock()
	defer h.mu.Unlock()
	for userID, client := range h.connections {
		client.close()
		delete(h.connections, userID)
	}
}

// enqueue never blocks; a client whose buffer is full is dropped
func (h *WSHub) enqueue(userID string, client *wsClient, data []byte) bool {
	sent, full := client.trySend(data)
	if full {
		log.Warn().Str("user_id", userID).Msg("WebSocket client too slow, dropping connection")
		h.Unregister(userID, client.conn)
	}
	return sent
}

func (h *WSHub) onMessageChange(change MessageChange) {
	h.Broadcast(WSMessage{
		Type:      "message_change",
		Timestamp: time.Now().UnixMilli(),
		Data:      change,
	})
	h.Broadcast(h.inboxStatus())
}

func (h *WSHub) inboxStatus() WSMessage {
	return WSMessage{
		Type: "inbox_status",
		Data: map[string]interface{}{
			"unread": h.messages.UnreadCount(),
		},
	}
}
