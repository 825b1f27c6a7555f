package handlers

import (
	"net/http"

	"church-site-backend/internal/services"

	"github.com/go-chi/chi/v5"
)

// ContentHandler handles slides and editable pages
type ContentHandler struct {
	content *services.ContentStore
}

// NewContentHandler creates a new content handler
func NewContentHandler(content *services.ContentStore) *ContentHandler {
	return &ContentHandler{content: content}
}

// GetSlides handles GET /api/v1/slides
func (h *ContentHandler) GetSlides(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, h.content.Slides(), http.StatusOK)
}

// AddSlide handles POST /api/v1/slides
func (h *ContentHandler) AddSlide(w http.ResponseWriter, r *http.Request) {
	if !parseMultipart(w, r, h.content.MaxImageBytes(), 1) {
		return
	}
	image, done, err := formImage(r, "image")
	if err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}
	defer done()
	if image == nil {
		respondError(w, "image file is required", http.StatusBadRequest)
		return
	}

	slide, err := h.content.AddSlide(r.Context(), image)
	if err != nil {
		respondServiceError(w, err, "add slide")
		return
	}
	respondOK(w, slide, http.StatusCreated)
}

// RemoveSlide handles DELETE /api/v1/slides/{id}
func (h *ContentHandler) RemoveSlide(w http.ResponseWriter, r *http.Request) {
	if err := h.content.RemoveSlide(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondServiceError(w, err, "remove slide")
		return
	}
	respondOK(w, nil, http.StatusOK)
}

// ResetSlides handles POST /api/v1/slides/reset
func (h *ContentHandler) ResetSlides(w http.ResponseWriter, r *http.Request) {
	h.content.ResetToDefaults(r.Context())
	respondOK(w, h.content.Slides(), http.StatusOK)
}

// GetPages handles GET /api/v1/pages
func (h *ContentHandler) GetPages(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, h.content.Pages(), http.StatusOK)
}

// GetPage handles GET /api/v1/pages/{slug}. A 404 tells the client to show
// its built-in content.
func (h *ContentHandler) GetPage(w http.ResponseWriter, r *http.Request) {
	page, ok := h.content.Page(chi.URLParam(r, "slug"))
	if !ok {
		respondError(w, "page not found", http.StatusNotFound)
		return
	}
	respondJSON(w, page, http.StatusOK)
}

type updatePageRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// UpdatePage handles PUT /api/v1/pages/{slug}
func (h *ContentHandler) UpdatePage(w http.ResponseWriter, r *http.Request) {
	var req updatePageRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	page, err := h.content.UpdatePage(r.Context(), chi.URLParam(r, "slug"), req.Title, req.Content)
	if err != nil {
		respondServiceError(w, err, "update page")
		return
	}
	respondOK(w, page, http.StatusOK)
}
