package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/agentstation/catalogd/internal/server/handlers"
	"github.com/agentstation/catalogd/internal/server/middleware"
)

// setupRouter creates the HTTP handler with routes and middleware.
func (s *Server) setupRouter() http.Handler {
	mux := http.NewServeMux()

	var announcer handlers.Announcer
	if s.deps.Announcer != nil {
		announcer = s.deps.Announcer
	}
	h := handlers.New(
		s.deps.Engine,
		announcer,
		s.deps.Connectors,
		s.cache,
		s.wsHub,
		s.sseBroadcaster,
		s.logger,
	)

	s.registerRoutes(mux, h)

	return s.applyMiddleware(mux)
}

// registerRoutes registers all HTTP routes.
func (s *Server) registerRoutes(mux *http.ServeMux, h *handlers.Handlers) {
	prefix := s.config.PathPrefix

	// Probes
	mux.HandleFunc("GET /health", h.HandleHealth)
	mux.HandleFunc("GET "+prefix+"/health", h.HandleHealth)
	mux.HandleFunc("GET "+prefix+"/ready", h.HandleReady)

	// Catalogs
	mux.HandleFunc("GET "+prefix+"/catalogs", h.HandleListCatalogs)
	mux.HandleFunc("GET "+prefix+"/catalogs/{name}", func(w http.ResponseWriter, r *http.Request) {
		h.HandleGetCatalog(w, r, r.PathValue("name"))
	})
	mux.HandleFunc("POST "+prefix+"/catalogs/reload", h.HandleReload)
	mux.HandleFunc("GET "+prefix+"/announcement", h.HandleAnnouncement)
	mux.HandleFunc("GET "+prefix+"/connectors", h.HandleConnectors)
	mux.HandleFunc("GET "+prefix+"/status", h.HandleStatus)

	// Real-time
	mux.HandleFunc("GET "+prefix+"/events", h.HandleSSE)
	mux.HandleFunc("GET "+prefix+"/events/ws", h.HandleWebSocket)

	if s.config.MetricsEnabled {
		mux.Handle("GET /metrics", promhttp.Handler())
	}
}

// applyMiddleware wraps handler with middleware chain.
func (s *Server) applyMiddleware(handler http.Handler) http.Handler {
	return middleware.Chain(
		middleware.Recovery(s.logger),
		middleware.Logger(s.logger),
		middleware.Auth(middleware.AuthConfig{
			Token:      s.config.AdminToken,
			HeaderName: s.config.TokenHeader,
		}, s.logger),
	)(handler)
}
