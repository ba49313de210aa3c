// Package connectors is an in-process connector registry. Connectors are
// built by factories keyed by connector name and tracked by catalog name.
package connectors

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sort"
	"sync"

	"github.com/agentstation/utc"
	"github.com/rs/zerolog"

	"github.com/agentstation/catalogd/pkg/connectors"
	"github.com/agentstation/catalogd/pkg/errors"
	"github.com/agentstation/catalogd/pkg/logging"
)

// Connector is a live connector instance.
type Connector interface {
	Close() error
}

// Factory builds a connector for catalog from its properties.
type Factory func(ctx context.Context, catalog string, properties map[string]string) (Connector, error)

type instance struct {
	handle    connectors.Handle
	connector Connector
}

// Registry implements connectors.Registry.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	fallback  Factory
	live      map[string]instance
	logger    *zerolog.Logger
}

var _ connectors.Registry = (*Registry)(nil)

// NewRegistry creates an empty registry.
func NewRegistry(logger *zerolog.Logger) *Registry {
	if logger == nil {
		logger = logging.Default()
	}
	return &Registry{
		factories: make(map[string]Factory),
		live:      make(map[string]instance),
		logger:    logger,
	}
}

// Register adds a factory for connectorName.
// Panics if the connector name is already registered.
func (r *Registry) Register(connectorName string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[connectorName]; exists {
		panic(fmt.Sprintf("connector factory already registered: %s", connectorName))
	}
	r.factories[connectorName] = factory
}

// SetFallback sets the factory used for connector names with no registered
// factory. Without one, such names are rejected.
func (r *Registry) SetFallback(factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallback = factory
}

// Factories returns the registered connector names, sorted.
func (r *Registry) Factories() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.factories))
}

// CreateConnector builds and tracks a connector for catalog name.
func (r *Registry) CreateConnector(ctx context.Context, name, connectorName string, properties map[string]string) (connectors.Handle, error) {
	r.mu.RLock()
	_, exists := r.live[name]
	factory, ok := r.factories[connectorName]
	if !ok {
		factory = r.fallback
	}
	r.mu.RUnlock()

	if exists {
		return connectors.Handle{}, fmt.Errorf("catalog %s: %w", name, errors.ErrAlreadyExists)
	}
	if factory == nil {
		return connectors.Handle{}, &errors.NotFoundError{Resource: "connector factory", ID: connectorName}
	}

	conn, err := factory(ctx, name, properties)
	if err != nil {
		return connectors.Handle{}, errors.WrapResource("create", "connector", name, err)
	}

	handle := connectors.Handle{Catalog: name, Connector: connectorName, CreatedAt: utc.Now().Time}

	r.mu.Lock()
	defer r.mu.Unlock()
	// Lost a race with another create for the same name.
	if _, exists := r.live[name]; exists {
		_ = conn.Close()
		return connectors.Handle{}, fmt.Errorf("catalog %s: %w", name, errors.ErrAlreadyExists)
	}
	r.live[name] = instance{handle: handle, connector: conn}

	r.logger.Debug().Str("catalog", name).Str("connector", connectorName).Msg("Connector created")
	return handle, nil
}

// DropConnector closes and forgets the connector for name. Unknown names are
// ignored.
func (r *Registry) DropConnector(_ context.Context, name string) {
	r.mu.Lock()
	inst, ok := r.live[name]
	delete(r.live, name)
	r.mu.Unlock()

	if !ok {
		return
	}
	if err := inst.connector.Close(); err != nil {
		r.logger.Warn().Err(err).Str("catalog", name).Msg("Failed to close connector")
		return
	}
	r.logger.Debug().Str("catalog", name).Msg("Connector dropped")
}

// Get returns the handle for catalog name.
func (r *Registry) Get(name string) (connectors.Handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	inst, ok := r.live[name]
	return inst.handle, ok
}

// List returns the handles of all live connectors sorted by catalog name.
func (r *Registry) List() []connectors.Handle {
	r.mu.RLock()
	defer r.mu.RUnlock()

	handles := make([]connectors.Handle, 0, len(r.live))
	for _, inst := range r.live {
		handles = append(handles, inst.handle)
	}
	sort.Slice(handles, func(i, j int) bool {
		return handles[i].Catalog < handles[j].Catalog
	})
	return handles
}

// Close closes every live connector.
func (r *Registry) Close() error {
	r.mu.Lock()
	live := r.live
	r.live = make(map[string]instance)
	r.mu.Unlock()

	var errs []error
	for name, inst := range live {
		if err := inst.connector.Close(); err != nil {
			errs = append(errs, errors.WrapResource("close", "connector", name, err))
		}
	}
	return errors.Join(errs...)
}
