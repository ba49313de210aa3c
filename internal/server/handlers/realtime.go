package handlers

import (
	"net/http"
)

// HandleWebSocket handles WebSocket connections at /v1/events/ws.
func (h *Handlers) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	h.wsHub.ServeHTTP(w, r)
}

// HandleSSE handles Server-Sent Events at /v1/events.
func (h *Handlers) HandleSSE(w http.ResponseWriter, r *http.Request) {
	h.sseBroadcaster.ServeHTTP(w, r)
}
