package handlers

import (
	"fmt"
	"net/http"

	"church-site-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// maxPhotoBatch bounds the images accepted by one upload request
const maxPhotoBatch = 20

// GalleryHandler handles albums and their photos
type GalleryHandler struct {
	gallery *services.GalleryStore
}

// NewGalleryHandler creates a new gallery handler
func NewGalleryHandler(gallery *services.GalleryStore) *GalleryHandler {
	return &GalleryHandler{gallery: gallery}
}

// GetAlbums handles GET /api/v1/albums
func (h *GalleryHandler) GetAlbums(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, h.gallery.Albums(), http.StatusOK)
}

// GetPhotos handles GET /api/v1/albums/{id}/photos
func (h *GalleryHandler) GetPhotos(w http.ResponseWriter, r *http.Request) {
	albumID := chi.URLParam(r, "id")
	photos := h.gallery.Photos(r.Context(), albumID)

	respondJSON(w, map[string]interface{}{
		"photos": photos,
		"total":  len(photos),
	}, http.StatusOK)
}

// CreateAlbum handles POST /api/v1/albums
func (h *GalleryHandler) CreateAlbum(w http.ResponseWriter, r *http.Request) {
	var req services.AlbumInput
	if !decodeJSON(w, r, &req) {
		return
	}
	album, err := h.gallery.CreateAlbum(r.Context(), req)
	if err != nil {
		respondServiceError(w, err, "create album")
		return
	}
	respondOK(w, album, http.StatusCreated)
}

// UpdateAlbum handles PUT /api/v1/albums/{id}
func (h *GalleryHandler) UpdateAlbum(w http.ResponseWriter, r *http.Request) {
	var req services.AlbumInput
	if !decodeJSON(w, r, &req) {
		return
	}
	album, err := h.gallery.UpdateAlbum(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		respondServiceError(w, err, "update album")
		return
	}
	respondOK(w, album, http.StatusOK)
}

// DeleteAlbum handles DELETE /api/v1/albums/{id}
func (h *GalleryHandler) DeleteAlbum(w http.ResponseWriter, r *http.Request) {
	if err := h.gallery.DeleteAlbum(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondServiceError(w, err, "delete album")
		return
	}
	respondOK(w, nil, http.StatusOK)
}

// UploadPhotos handles POST /api/v1/albums/{id}/photos. Every file under
// "images" is uploaded in turn; the first failure stops the batch.
func (h *GalleryHandler) UploadPhotos(w http.ResponseWriter, r *http.Request) {
	albumID := chi.URLParam(r, "id")
	if !parseMultipart(w, r, h.gallery.MaxImageBytes(), maxPhotoBatch) {
		return
	}
	if r.MultipartForm == nil || len(r.MultipartForm.File["images"]) == 0 {
		respondError(w, "at least one image is required", http.StatusBadRequest)
		return
	}
	if len(r.MultipartForm.File["images"]) > maxPhotoBatch {
		respondError(w, fmt.Sprintf("at most %d images can be uploaded at once", maxPhotoBatch), http.StatusBadRequest)
		return
	}

	uploaded := make([]interface{}, 0, len(r.MultipartForm.File["images"]))
	for _, header := range r.MultipartForm.File["images"] {
		file, err := header.Open()
		if err != nil {
			respondError(w, "Failed to read image", http.StatusBadRequest)
			return
		}
		photo, err := h.gallery.UploadPhoto(r.Context(), albumID, imageFromHeader(file, header))
		_ = file.Close()
		if err != nil {
			log.Warn().Err(err).Str("album_id", albumID).Int("uploaded", len(uploaded)).Msg("Photo batch stopped")
			respondServiceError(w, err, "upload photo")
			return
		}
		uploaded = append(uploaded, photo)
	}

	respondOK(w, uploaded, http.StatusCreated)
}

// DeletePhoto handles DELETE /api/v1/photos/{id}
func (h *GalleryHandler) DeletePhoto(w http.ResponseWriter, r *http.Request) {
	if err := h.gallery.DeletePhoto(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondServiceError(w, err, "delete photo")
		return
	}
	respondOK(w, nil, http.StatusOK)
}
