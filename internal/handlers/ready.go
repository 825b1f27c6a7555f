package handlers

import (
	"net/http"

	"church-site-backend/internal/services"
)

// ReadyHandler reports whether the stores behind the splash screen have
// finished their initial read
type ReadyHandler struct {
	splash []services.Loadable
	named  map[string]services.Loadable
}

// NewReadyHandler creates a ready handler. splash lists the stores the site
// waits on; named lists every store for the per-store report.
func NewReadyHandler(splash []services.Loadable, named map[string]services.Loadable) *ReadyHandler {
	return &ReadyHandler{splash: splash, named: named}
}

// Ready handles GET /api/v1/ready
func (h *ReadyHandler) Ready(w http.ResponseWriter, r *http.Request) {
	loading := make(map[string]bool, len(h.named))
	for name, s := range h.named {
		loading[name] = s.Loading()
	}
	respondJSON(w, map[string]interface{}{
		"ready":   services.ContentReady(h.splash...),
		"loading": loading,
	}, http.StatusOK)
}
