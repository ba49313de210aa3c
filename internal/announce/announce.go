// Package announce tracks the catalogs this node advertises to the cluster.
package announce

import (
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/agentstation/catalogd/pkg/connectors"
	"github.com/agentstation/catalogd/pkg/logging"
)

// PropertyConnectorIDs is the announcement property listing served catalogs.
const PropertyConnectorIDs = "connectorIds"

// Announcer keeps the set of published catalog names. Every change bumps the
// version so peers polling Properties can detect updates cheaply.
type Announcer struct {
	mu        sync.RWMutex
	published map[string]struct{}
	version   uint64
	logger    *zerolog.Logger
	onChange  []func(Announcement)
}

var _ connectors.Announcer = (*Announcer)(nil)

// Announcement is the current announcement state.
type Announcement struct {
	Version    uint64            `json:"version" yaml:"version"`
	Catalogs   []string          `json:"catalogs" yaml:"catalogs"`
	Properties map[string]string `json:"properties" yaml:"properties"`
}

// New creates an empty announcer.
func New(logger *zerolog.Logger) *Announcer {
	if logger == nil {
		logger = logging.Default()
	}
	return &Announcer{
		published: make(map[string]struct{}),
		logger:    logger,
	}
}

// Publish adds catalogName to the announcement.
func (a *Announcer) Publish(catalogName string) {
	a.update(catalogName, true)
}

// Retract removes catalogName from the announcement.
func (a *Announcer) Retract(catalogName string) {
	a.update(catalogName, false)
}

// OnChange registers fn to run after every change to the announcement.
func (a *Announcer) OnChange(fn func(Announcement)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onChange = append(a.onChange, fn)
}

func (a *Announcer) update(name string, publish bool) {
	a.mu.Lock()
	_, present := a.published[name]
	if present == publish {
		a.mu.Unlock()
		return
	}
	if publish {
		a.published[name] = struct{}{}
	} else {
		delete(a.published, name)
	}
	a.version++
	snapshot := a.snapshotLocked()
	hooks := slices.Clone(a.onChange)
	a.mu.Unlock()

	a.logger.Debug().
		Str("catalog", name).
		Bool("published", publish).
		Uint64("version", snapshot.Version).
		Msg("Announcement updated")

	for _, fn := range hooks {
		fn(snapshot)
	}
}

// Catalogs returns the published catalog names, sorted.
func (a *Announcer) Catalogs() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return slices.Sorted(maps.Keys(a.published))
}

// Version returns the number of changes made so far.
func (a *Announcer) Version() uint64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.version
}

// Properties returns the announcement properties.
func (a *Announcer) Properties() map[string]string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.snapshotLocked().Properties
}

// Snapshot returns the current announcement.
func (a *Announcer) Snapshot() Announcement {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.snapshotLocked()
}

func (a *Announcer) snapshotLocked() Announcement {
	names := slices.Sorted(maps.Keys(a.published))
	return Announcement{
		Version:  a.version,
		Catalogs: names,
		Properties: map[string]string{
			PropertyConnectorIDs: strings.Join(names, ","),
		},
	}
}
