package blobstore

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// DefaultCacheTTL bounds how long a loaded object is served from the
// cache before the next read goes back to storage.
const DefaultCacheTTL = time.Hour

// DefaultCacheSize is the number of loaded objects kept per process.
// Coordinate sets are the largest cached values, so this stays small.
const DefaultCacheSize = 64

// Cache is the read-through cache contract used by the storage round
// trips: reads consult Get first, writes refresh with Set so a
// write-then-read of the same key observes the just-written object
// without a storage round trip, and deletes evict with Invalidate.
type Cache interface {
	Get(key string) (any, bool)
	Set(key string, value any)
	Invalidate(key string)
}

// LRUCache is the default Cache: a fixed-size LRU whose entries expire
// after a TTL. Eviction and expiry are deterministic, which the
// write-then-read coherence contract depends on.
type LRUCache struct {
	lru *expirable.LRU[string, any]
}

// NewLRUCache creates a cache holding up to size entries for ttl.
// Zero values fall back to DefaultCacheSize and DefaultCacheTTL.
func NewLRUCache(size int, ttl time.Duration) *LRUCache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &LRUCache{lru: expirable.NewLRU[string, any](size, nil, ttl)}
}

// Get returns the cached object for key, if present and unexpired.
func (c *LRUCache) Get(key string) (any, bool) {
	return c.lru.Get(key)
}

// Set stores or refreshes the cached object for key.
func (c *LRUCache) Set(key string, value any) {
	c.lru.Add(key, value)
}

// Invalidate evicts the cached object for key.
func (c *LRUCache) Invalidate(key string) {
	c.lru.Remove(key)
}

// NopCache disables caching; every read goes to storage.
type NopCache struct{}

func (NopCache) Get(string) (any, bool) { return nil, false }
func (NopCache) Set(string, any)        {}
func (NopCache) Invalidate(string)      {}

var _ Cache = (*LRUCache)(nil)
var _ Cache = NopCache{}
