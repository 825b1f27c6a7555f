package handlers

import (
	"net/http"

	"church-site-backend/internal/services"

	"github.com/go-chi/chi/v5"
)

// VideoHandler handles sermon videos
type VideoHandler struct {
	videos *services.VideoStore
}

// NewVideoHandler creates a new video handler
func NewVideoHandler(videos *services.VideoStore) *VideoHandler {
	return &VideoHandler{videos: videos}
}

// GetVideos handles GET /api/v1/videos
func (h *VideoHandler) GetVideos(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, h.videos.Videos(), http.StatusOK)
}

// CreateVideo handles POST /api/v1/videos
func (h *VideoHandler) CreateVideo(w http.ResponseWriter, r *http.Request) {
	var req services.VideoInput
	if !decodeJSON(w, r, &req) {
		return
	}
	video, err := h.videos.AddVideo(r.Context(), req)
	if err != nil {
		respondServiceError(w, err, "add video")
		return
	}
	respondOK(w, video, http.StatusCreated)
}

// UpdateVideo handles PUT /api/v1/videos/{id}
func (h *VideoHandler) UpdateVideo(w http.ResponseWriter, r *http.Request) {
	var req services.VideoInput
	if !decodeJSON(w, r, &req) {
		return
	}
	video, err := h.videos.UpdateVideo(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		respondServiceError(w, err, "update video")
		return
	}
	respondOK(w, video, http.StatusOK)
}

// DeleteVideo handles DELETE /api/v1/videos/{id}
func (h *VideoHandler) DeleteVideo(w http.ResponseWriter, r *http.Request) {
	if err := h.videos.DeleteVideo(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondServiceError(w, err, "delete video")
		return
	}
	respondOK(w, nil, http.StatusOK)
}
