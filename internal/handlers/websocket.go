package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"church-site-backend/internal/services"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // dashboards are served from other origins
	},
}

// WebSocketHandler handles dashboard WebSocket connections
type WebSocketHandler struct {
	hub      *services.WSHub
	gate     *services.AuthGate
	messages *services.MessageStore
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(hub *services.WSHub, gate *services.AuthGate, messages *services.MessageStore) *WebSocketHandler {
	return &WebSocketHandler{
		hub:      hub,
		gate:     gate,
		messages: messages,
	}
}

// HandleWebSocket handles GET /api/v1/ws?token=...
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		respondError(w, "token required", http.StatusUnauthorized)
		return
	}

	identity, err := h.gate.Resolve(r.Context(), token)
	if err != nil {
		respondError(w, "invalid token", http.StatusUnauthorized)
		return
	}
	if !identity.ProfileComplete {
		respondError(w, "Profile incomplete", http.StatusForbidden)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}

	userID := identity.UserID
	h.hub.Register(userID, conn)
	defer h.hub.Unregister(userID, conn)

	log.Info().Str("user_id", userID).Msg("WebSocket connection established")

	ctx := context.WithoutCancel(r.Context())
	for {
		_, messageBytes, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Error().Err(err).Str("user_id", userID).Msg("WebSocket error")
			}
			break
		}

		var msg services.WSMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			log.Error().Err(err).Str("user_id", userID).Msg("Failed to parse WebSocket message")
			h.sendError(userID, "Invalid message format")
			continue
		}

		h.handleMessage(ctx, userID, msg)
	}
}

// handleMessage processes incoming WebSocket messages
func (h *WebSocketHandler) handleMessage(ctx context.Context, userID string, msg services.WSMessage) {
	switch msg.Type {
	case "ping":
		_ = h.hub.SendToUser(userID, services.WSMessage{Type: "pong", Timestamp: time.Now().UnixMilli()})
	case "mark_read":
		if msg.Message == "" {
			h.sendError(userID, "message id is required")
			return
		}
		if _, err := h.messages.MarkAsRead(ctx, msg.Message); err != nil {
			log.Error().Err(err).Str("user_id", userID).Str("message_id", msg.Message).Msg("Failed to mark message as read")
			h.sendError(userID, "Failed to mark message as read")
		}
	default:
		h.sendError(userID, "Unknown message type")
	}
}

// sendError sends an error message to a user
func (h *WebSocketHandler) sendError(userID, message string) {
	if err := h.hub.SendToUser(userID, services.WSMessage{Type: "error", Message: message}); err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("Failed to send WebSocket error")
	}
}
