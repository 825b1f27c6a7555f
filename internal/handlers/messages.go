package handlers

import (
	"net/http"

	"church-site-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// MessageHandler handles the prayer request and testimony inbox
type MessageHandler struct {
	messages *services.MessageStore
}

// NewMessageHandler creates a new message handler
func NewMessageHandler(messages *services.MessageStore) *MessageHandler {
	return &MessageHandler{messages: messages}
}

// SubmitMessage handles POST /api/v1/messages from the public contact form
func (h *MessageHandler) SubmitMessage(w http.ResponseWriter, r *http.Request) {
	var req services.MessageInput
	if !decodeJSON(w, r, &req) {
		return
	}
	msg, err := h.messages.AddMessage(r.Context(), req)
	if err != nil {
		respondServiceError(w, err, "submit message")
		return
	}

	log.Info().
		Str("message_id", msg.ID).
		Str("type", msg.Type).
		Msg("Message submitted")

	respondOK(w, map[string]string{"id": msg.ID}, http.StatusCreated)
}

// GetMessages handles GET /api/v1/messages
func (h *MessageHandler) GetMessages(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]interface{}{
		"messages": h.messages.Messages(),
		"unread":   h.messages.UnreadCount(),
		"loading":  h.messages.Loading(),
	}, http.StatusOK)
}

// MarkAsRead handles PUT /api/v1/messages/{id}/read
func (h *MessageHandler) MarkAsRead(w http.ResponseWriter, r *http.Request) {
	msg, err := h.messages.MarkAsRead(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, err, "mark message as read")
		return
	}
	respondOK(w, msg, http.StatusOK)
}

// DeleteMessage handles DELETE /api/v1/messages/{id}
func (h *MessageHandler) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	if err := h.messages.DeleteMessage(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondServiceError(w, err, "delete message")
		return
	}
	respondOK(w, nil, http.StatusOK)
}
