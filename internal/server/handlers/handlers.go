// Package handlers implements the admin API endpoints.
package handlers

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/agentstation/catalogd"
	"github.com/agentstation/catalogd/internal/announce"
	"github.com/agentstation/catalogd/internal/server/cache"
	"github.com/agentstation/catalogd/internal/server/sse"
	ws "github.com/agentstation/catalogd/internal/server/websocket"
	"github.com/agentstation/catalogd/pkg/catalogs"
	"github.com/agentstation/catalogd/pkg/connectors"
)

// Engine is the part of *catalogd.Engine the handlers use.
type Engine interface {
	AreCatalogsReady() bool
	Applied() []catalogs.Record
	Status() catalogd.Status
	Trigger()
	Reconcile(ctx context.Context) (catalogd.CycleResult, error)
}

// Announcer exposes the current announcement.
type Announcer interface {
	Snapshot() announce.Announcement
}

// ConnectorLister lists live connectors.
type ConnectorLister interface {
	List() []connectors.Handle
}

// Handlers provides access to all HTTP handlers.
type Handlers struct {
	engine         Engine
	announcer      Announcer
	connectors     ConnectorLister
	cache          *cache.Cache
	wsHub          *ws.Hub
	sseBroadcaster *sse.Broadcaster
	logger         *zerolog.Logger
}

// New creates a new Handlers instance. announcer and lister may be nil.
func New(
	engine Engine,
	announcer Announcer,
	lister ConnectorLister,
	cache *cache.Cache,
	wsHub *ws.Hub,
	sseBroadcaster *sse.Broadcaster,
	logger *zerolog.Logger,
) *Handlers {
	return &Handlers{
		engine:         engine,
		announcer:      announcer,
		connectors:     lister,
		cache:          cache,
		wsHub:          wsHub,
		sseBroadcaster: sseBroadcaster,
		logger:         logger,
	}
}
