package handlers

import (
	"net/http"

	"church-site-backend/internal/middleware"
	"church-site-backend/internal/services"

	"github.com/rs/zerolog/log"
)

// AuthHandler handles dashboard sign-in and the signed-in user's profile
type AuthHandler struct {
	gate *services.AuthGate
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(gate *services.AuthGate) *AuthHandler {
	return &AuthHandler{gate: gate}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login handles POST /api/v1/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	session, identity, err := h.gate.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		respondServiceError(w, err, "sign in")
		return
	}

	log.Info().
		Str("user_id", identity.UserID).
		Bool("profile_complete", identity.ProfileComplete).
		Msg("User signed in")

	respondOK(w, map[string]interface{}{
		"session": session,
		"user":    identity,
	}, http.StatusOK)
}

// Logout handles POST /api/v1/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token, ok := middleware.BearerToken(r)
	if !ok {
		respondError(w, "Authorization header required", http.StatusUnauthorized)
		return
	}
	if err := h.gate.SignOut(r.Context(), token); err != nil {
		respondServiceError(w, err, "sign out")
		return
	}
	respondOK(w, nil, http.StatusOK)
}

// Me handles GET /api/v1/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, middleware.GetIdentity(r.Context()), http.StatusOK)
}

// UpdateProfile handles PUT /api/v1/profile
func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req services.ProfileInput
	if !decodeJSON(w, r, &req) {
		return
	}
	current := middleware.GetIdentity(r.Context())

	identity, err := h.gate.UpdateProfile(r.Context(), current.UserID, current.Email, req)
	if err != nil {
		respondServiceError(w, err, "update profile")
		return
	}
	respondOK(w, identity, http.StatusOK)
}

type pushTokenRequest struct {
	PushToken string `json:"push_token"`
}

// SetPushToken handles PUT /api/v1/profile/push-token. An empty token
// unregisters the device.
func (h *AuthHandler) SetPushToken(w http.ResponseWriter, r *http.Request) {
	var req pushTokenRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	current := middleware.GetIdentity(r.Context())

	if err := h.gate.SetPushToken(r.Context(), current.UserID, current.Email, req.PushToken); err != nil {
		respondServiceError(w, err, "update push token")
		return
	}
	respondOK(w, nil, http.StatusOK)
}
