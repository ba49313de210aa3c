// Package server provides the catalogd admin HTTP server: health and
// readiness probes, read access to the applied catalogs and the
// announcement, manual reload, Prometheus metrics, and real-time catalog
// events over WebSocket and SSE.
package server

import (
	"context"
	"net/http"
	"sync"

	"github.com/rs/zerolog"

	"github.com/agentstation/catalogd"
	"github.com/agentstation/catalogd/internal/announce"
	"github.com/agentstation/catalogd/internal/server/cache"
	"github.com/agentstation/catalogd/internal/server/events"
	"github.com/agentstation/catalogd/internal/server/events/adapters"
	"github.com/agentstation/catalogd/internal/server/handlers"
	"github.com/agentstation/catalogd/internal/server/sse"
	ws "github.com/agentstation/catalogd/internal/server/websocket"
	"github.com/agentstation/catalogd/pkg/catalogs"
	"github.com/agentstation/catalogd/pkg/constants"
	"github.com/agentstation/catalogd/pkg/errors"
	"github.com/agentstation/catalogd/pkg/logging"
)

// Engine is the reconciliation engine as seen by the server.
type Engine interface {
	handlers.Engine
	OnCatalogAdded(fn catalogd.CatalogAddedHook)
	OnCatalogRemoved(fn catalogd.CatalogRemovedHook)
	OnCycle(fn catalogd.CycleHook)
}

// Announcer is the announcement state as seen by the server.
type Announcer interface {
	handlers.Announcer
	OnChange(fn func(announce.Announcement))
}

// Deps are the collaborators the server exposes. Only Engine is required.
type Deps struct {
	Engine     Engine
	Announcer  Announcer
	Connectors handlers.ConnectorLister
	Logger     *zerolog.Logger
}

// Server holds the HTTP server state and dependencies.
type Server struct {
	deps           Deps
	cache          *cache.Cache
	broker         *events.Broker
	wsHub          *ws.Hub
	sseBroadcaster *sse.Broadcaster
	handler        http.Handler
	logger         *zerolog.Logger
	config         Config
	ctx            context.Context
	cancel         context.CancelFunc
	wg             sync.WaitGroup
}

// New creates a new server instance with the given configuration.
func New(deps Deps, cfg Config) (*Server, error) {
	if deps.Engine == nil {
		return nil, errors.NewValidationError("engine", nil, "is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = logging.Default()
	}

	defaults := DefaultConfig()
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = defaults.CacheTTL
	}
	if cfg.PathPrefix == "" {
		cfg.PathPrefix = defaults.PathPrefix
	}
	if cfg.TokenHeader == "" {
		cfg.TokenHeader = defaults.TokenHeader
	}

	broker := events.NewBroker(logger)
	wsHub := ws.NewHub(logger)
	sseBroadcaster := sse.NewBroadcaster(logger)

	broker.Subscribe(adapters.NewWebSocketSubscriber(wsHub))
	broker.Subscribe(adapters.NewSSESubscriber(sseBroadcaster))

	ctx, cancel := context.WithCancel(context.Background())

	s := &Server{
		deps:           deps,
		cache:          cache.New(cfg.CacheTTL, cfg.CacheTTL*2),
		broker:         broker,
		wsHub:          wsHub,
		sseBroadcaster: sseBroadcaster,
		logger:         logger,
		config:         cfg,
		ctx:            ctx,
		cancel:         cancel,
	}
	s.handler = s.setupRouter()
	s.connectHooks()

	logger.Debug().
		Str("addr", cfg.Addr()).
		Str("prefix", cfg.PathPrefix).
		Bool("auth", cfg.AdminToken != "").
		Msg("Server instance created")
	return s, nil
}

// connectHooks turns engine and announcer callbacks into broker events and
// drops cached payloads that the change invalidates.
func (s *Server) connectHooks() {
	s.deps.Engine.OnCatalogAdded(func(r catalogs.Record) {
		s.cache.Delete(cache.KeyCatalogs)
		s.broker.Publish(events.CatalogAdded, r.Summary())
	})

	s.deps.Engine.OnCatalogRemoved(func(r catalogs.Record) {
		s.cache.Delete(cache.KeyCatalogs)
		s.broker.Publish(events.CatalogRemoved, r.Summary())
	})

	s.deps.Engine.OnCycle(func(result catalogd.CycleResult, err error) {
		if err != nil {
			s.broker.Publish(events.CycleFailed, map[string]any{
				"id":    result.ID,
				"error": err.Error(),
			})
			return
		}
		for _, failure := range result.Failed {
			var ce *errors.ConnectorCreationError
			if errors.As(failure, &ce) {
				s.broker.Publish(events.CatalogFailed, map[string]any{
					"catalog":   ce.Catalog,
					"connector": ce.Connector,
					"error":     ce.Err.Error(),
				})
			}
		}
		// Quiet cycles are not broadcast.
		if result.Changed() || len(result.Failed) > 0 {
			s.broker.Publish(events.CycleCompleted, result)
		}
	})

	if s.deps.Announcer != nil {
		s.deps.Announcer.OnChange(func(a announce.Announcement) {
			s.cache.Delete(cache.KeyAnnouncement)
			s.broker.Publish(events.AnnouncementChanged, a)
		})
	}
}

// Start starts background services (broker, WebSocket hub, SSE broadcaster).
func (s *Server) Start() {
	for _, run := range []func(context.Context){s.broker.Run, s.wsHub.Run, s.sseBroadcaster.Run} {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			run(s.ctx)
		}()
	}
	s.logger.Debug().Msg("Background services started")
}

// Handler returns the configured http.Handler with middleware chain applied.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ListenAndServe starts background services and serves HTTP on the
// configured address until ctx is canceled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:         s.config.Addr(),
		Handler:      s.handler,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	s.Start()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", httpServer.Addr).Msg("Admin server listening")
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		s.cancel()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.WrapResource("listen", "server", httpServer.Addr, err)
	case <-ctx.Done():
	}

	s.logger.Info().Msg("Shutting down admin server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.DefaultShutdownTimeout)
	defer cancel()

	// Background services go first so open streams end and Shutdown does
	// not wait on them.
	if err := s.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn().Err(err).Msg("Background services did not stop in time")
	}
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return errors.WrapResource("shutdown", "server", httpServer.Addr, err)
	}
	s.logger.Info().Msg("Admin server stopped")
	return nil
}

// Shutdown stops background services and waits for them to exit.
// Connected WebSocket and SSE clients are disconnected.
func (s *Server) Shutdown(ctx context.Context) error {
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Cache returns the server's cache instance.
func (s *Server) Cache() *cache.Cache {
	return s.cache
}

// Broker returns the event broker for publishing events.
func (s *Server) Broker() *events.Broker {
	return s.broker
}
