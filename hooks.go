package catalogd

import (
	"sync"

	"github.com/agentstation/catalogd/pkg/catalogs"
)

// Hook function types for catalog events
type (
	// CatalogAddedHook is called after a catalog's connector was created and
	// announced.
	CatalogAddedHook func(record catalogs.Record)

	// CatalogRemovedHook is called after a catalog's connector was dropped and
	// its announcement retracted.
	CatalogRemovedHook func(record catalogs.Record)

	// CycleHook is called at the end of every reconcile cycle, including the
	// initial load. err is non-nil when the source could not be loaded.
	CycleHook func(result CycleResult, err error)
)

// hooks manages event callbacks for applied catalog changes
type hooks struct {
	mu               sync.RWMutex
	onCatalogAdded   []CatalogAddedHook
	onCatalogRemoved []CatalogRemovedHook
	onCycle          []CycleHook
}

func newHooks() *hooks {
	return &hooks{}
}

// OnCatalogAdded registers a callback for applied catalogs.
func (h *hooks) OnCatalogAdded(fn CatalogAddedHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onCatalogAdded = append(h.onCatalogAdded, fn)
}

// OnCatalogRemoved registers a callback for removed catalogs.
func (h *hooks) OnCatalogRemoved(fn CatalogRemovedHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onCatalogRemoved = append(h.onCatalogRemoved, fn)
}

// OnCycle registers a callback for finished cycles.
func (h *hooks) OnCycle(fn CycleHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onCycle = append(h.onCycle, fn)
}

func (h *hooks) catalogAdded(r catalogs.Record) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, fn := range h.onCatalogAdded {
		fn(r)
	}
}

func (h *hooks) catalogRemoved(r catalogs.Record) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, fn := range h.onCatalogRemoved {
		fn(r)
	}
}

func (h *hooks) cycleFinished(result CycleResult, err error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, fn := range h.onCycle {
		fn(result, err)
	}
}
