// Package cache holds the process-wide read-through cache for profile values.
//
// Entries never expire; they are dropped only by Invalidate or Flush after a
// write has been persisted. A version counter lets a reader that loaded a
// value from the database refuse to publish it when a write completed while
// it was loading, so a slow reader can never re-insert a value older than
// the last invalidation.
package cache

import (
	"sync"

	gocache "github.com/patrickmn/go-cache"

	"github.com/nzaccagnino/notedeck/internal/metrics"
)

type Cache interface {
	Get(key string) (any, bool)
	// Version changes every time an entry is invalidated.
	Version() uint64
	// Fill stores value only if no invalidation happened since version was read.
	Fill(key string, value any, version uint64) bool
	Invalidate(key string)
	Flush()
}

type ConfigCache struct {
	mu      sync.Mutex
	items   *gocache.Cache
	version uint64
	metrics *metrics.CacheMetrics
}

// New returns an empty cache. m may be nil.
func New(m *metrics.CacheMetrics) *ConfigCache {
	return &ConfigCache{
		// No expiration and no janitor goroutine.
		items:   gocache.New(gocache.NoExpiration, 0),
		metrics: m,
	}
}

func (c *ConfigCache) Get(key string) (any, bool) {
	v, ok := c.items.Get(key)
	if c.metrics != nil {
		if ok {
			c.metrics.Hits.Inc()
		} else {
			c.metrics.Misses.Inc()
		}
	}
	return v, ok
}

func (c *ConfigCache) Version() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.version
}

func (c *ConfigCache) Fill(key string, value any, version uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if version != c.version {
		return false
	}
	c.items.Set(key, value, gocache.NoExpiration)
	return true
}

func (c *ConfigCache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items.Delete(key)
	c.version++
	if c.metrics != nil {
		c.metrics.Invalidations.Inc()
	}
}

func (c *ConfigCache) Flush() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items.Flush()
	c.version++
}

// Len reports the number of cached keys.
func (c *ConfigCache) Len() int {
	return c.items.ItemCount()
}
