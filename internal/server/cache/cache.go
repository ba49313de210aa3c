// Package cache holds rendered admin API payloads between reconcile cycles.
// Entries expire after a TTL and are flushed whenever the applied catalog
// set or the announcement changes.
package cache

import (
	"sync/atomic"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Keys for cached payloads.
const (
	KeyCatalogs     = "catalogs"
	KeyAnnouncement = "announcement"
)

// Cache wraps go-cache with hit and miss counters.
type Cache struct {
	store  *gocache.Cache
	hits   atomic.Uint64
	misses atomic.Uint64
}

// New creates a cache whose entries live for ttl. Expired entries are
// purged every cleanupInterval.
func New(ttl, cleanupInterval time.Duration) *Cache {
	return &Cache{
		store: gocache.New(ttl, cleanupInterval),
	}
}

// Get retrieves a value from the cache.
func (c *Cache) Get(key string) (any, bool) {
	v, ok := c.store.Get(key)
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return v, ok
}

// Set stores a value with the default TTL.
func (c *Cache) Set(key string, value any) {
	c.store.Set(key, value, gocache.DefaultExpiration)
}

// GetOrLoad returns the cached value for key, computing and storing it with
// load on a miss.
func (c *Cache) GetOrLoad(key string, load func() any) any {
	if v, ok := c.Get(key); ok {
		return v
	}
	v := load()
	c.Set(key, v)
	return v
}

// Delete removes a value from the cache.
func (c *Cache) Delete(key string) {
	c.store.Delete(key)
}

// Clear removes all items from the cache.
func (c *Cache) Clear() {
	c.store.Flush()
}

// Stats reports cache usage.
type Stats struct {
	ItemCount int    `json:"item_count"`
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
}

// GetStats returns current cache statistics.
func (c *Cache) GetStats() Stats {
	return Stats{
		ItemCount: c.store.ItemCount(),
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
	}
}
