package handlers

import (
	"net/http"

	"github.com/agentstation/catalogd/internal/server/response"
)

// HandleHealth handles GET /health (liveness).
func (h *Handlers) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	response.OK(w, map[string]any{
		"status":  "healthy",
		"service": "catalogd",
	})
}

// HandleReady handles GET /v1/ready. It answers 503 until the initial
// catalog load has completed.
func (h *Handlers) HandleReady(w http.ResponseWriter, _ *http.Request) {
	if !h.engine.AreCatalogsReady() {
		response.ServiceUnavailable(w, "Catalogs are not loaded yet")
		return
	}

	response.OK(w, map[string]any{
		"status":   "ready",
		"catalogs": len(h.engine.Applied()),
	})
}
