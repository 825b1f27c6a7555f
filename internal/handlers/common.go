package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"

	"church-site-backend/internal/auth"
	"church-site-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

const (
	multipartMemory = 8 << 20
	// multipartOverhead covers form fields and part headers next to the images
	multipartOverhead = 512 << 10
)

// Result is the body of every mutation response
type Result struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// respondJSON sends v with the given status
func respondJSON(w http.ResponseWriter, v interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

// respondOK sends a successful mutation result
func respondOK(w http.ResponseWriter, data interface{}, statusCode int) {
	respondJSON(w, Result{Success: true, Data: data}, statusCode)
}

// respondError sends an error response
func respondError(w http.ResponseWriter, message string, statusCode int) {
	respondJSON(w, Result{Success: false, Error: message}, statusCode)
}

// respondServiceError maps a store error to its status code
func respondServiceError(w http.ResponseWriter, err error, action string) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Msg("Failed to " + action)
		respondError(w, "Failed to "+action, status)
		return
	}
	log.Debug().Err(err).Int("status", status).Msg("Request rejected")
	respondError(w, err.Error(), status)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrValidation), errors.Is(err, services.ErrInvalidVideoID):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrInvalidSession):
		return http.StatusUnauthorized
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, services.ErrTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON reads the request body into v
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

// parseMultipart parses a multipart form carrying at most maxFiles images of
// maxImage bytes each. Larger bodies are cut off before they are spooled.
// Requests that are not multipart are accepted with an empty form.
func parseMultipart(w http.ResponseWriter, r *http.Request, maxImage int64, maxFiles int) bool {
	limit := maxImage*int64(maxFiles) + multipartOverhead
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	err := r.ParseMultipartForm(multipartMemory)
	if err == nil || errors.Is(err, http.ErrNotMultipart) {
		return true
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) || r.ContentLength > limit {
		respondError(w, fmt.Sprintf("File size exceeds %dMB. Please choose a smaller image.", maxImage>>20), http.StatusBadRequest)
		return false
	}
	respondError(w, "Invalid multipart form", http.StatusBadRequest)
	return false
}

// formImage returns the image uploaded under field, or nil when there is
// none. The returned close func must be called once the image is consumed.
func formImage(r *http.Request, field string) (*services.ImageFile, func(), error) {
	if r.MultipartForm == nil {
		return nil, func() {}, nil
	}
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, func() {}, nil
	}
	if err != nil {
		return nil, func() {}, fmt.Errorf("failed to read %s: %w", field, err)
	}
	return imageFromHeader(file, header), func() { _ = file.Close() }, nil
}

func imageFromHeader(file multipart.File, header *multipart.FileHeader) *services.ImageFile {
	return &services.ImageFile{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Reader:      file,
	}
}

// int64Param parses a numeric URL parameter
func int64Param(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	v, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil {
		respondError(w, "Invalid "+name, http.StatusBadRequest)
		return 0, false
	}
	return v, true
}
