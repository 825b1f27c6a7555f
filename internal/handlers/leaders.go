package handlers

import (
	"net/http"

	"church-site-backend/internal/services"

	"github.com/go-chi/chi/v5"
)

// LeaderHandler handles church leaders
type LeaderHandler struct {
	leaders *services.LeaderStore
}

// NewLeaderHandler creates a new leader handler
func NewLeaderHandler(leaders *services.LeaderStore) *LeaderHandler {
	return &LeaderHandler{leaders: leaders}
}

// GetLeaders handles GET /api/v1/leaders
func (h *LeaderHandler) GetLeaders(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, h.leaders.Leaders(), http.StatusOK)
}

func leaderInputFromForm(r *http.Request) services.LeaderInput {
	return services.LeaderInput{
		Name:        r.FormValue("name"),
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
	}
}

// CreateLeader handles POST /api/v1/leaders (multipart, optional "image")
func (h *LeaderHandler) CreateLeader(w http.ResponseWriter, r *http.Request) {
	if !parseMultipart(w, r, h.leaders.MaxImageBytes(), 1) {
		return
	}
	image, done, err := formImage(r, "image")
	if err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}
	defer done()

	leader, err := h.leaders.AddLeader(r.Context(), leaderInputFromForm(r), image)
	if err != nil {
		respondServiceError(w, err, "add leader")
		return
	}
	respondOK(w, leader, http.StatusCreated)
}

// UpdateLeader handles PUT /api/v1/leaders/{id}
func (h *LeaderHandler) UpdateLeader(w http.ResponseWriter, r *http.Request) {
	if !parseMultipart(w, r, h.leaders.MaxImageBytes(), 1) {
		return
	}
	image, done, err := formImage(r, "image")
	if err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}
	defer done()

	leader, err := h.leaders.UpdateLeader(r.Context(), chi.URLParam(r, "id"), leaderInputFromForm(r), image)
	if err != nil {
		respondServiceError(w, err, "update leader")
		return
	}
	respondOK(w, leader, http.StatusOK)
}

// DeleteLeader handles DELETE /api/v1/leaders/{id}
func (h *LeaderHandler) DeleteLeader(w http.ResponseWriter, r *http.Request) {
	if err := h.leaders.DeleteLeader(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondServiceError(w, err, "delete leader")
		return
	}
	respondOK(w, nil, http.StatusOK)
}
