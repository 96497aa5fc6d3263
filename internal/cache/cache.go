// Package cache provides a TTL keyed store used to memoize tool results.
//
// Entries are evicted lazily on access and by a periodic background sweep.
// There is no size bound: the expected key population (tool name plus
// normalized arguments) is small and short-lived. Callers that need an
// upper bound should front this with their own eviction policy.
package cache

import (
	"time"

	"github.com/alphadose/haxmap"
)

type entry[V any] struct {
	value     V
	createdAt time.Time
	expiresAt time.Time
}

func (e entry[V]) expired(now time.Time) bool {
	return now.After(e.expiresAt)
}

// Cache is a concurrency-safe key/value store with per-entry TTLs.
type Cache[V any] struct {
	entries *haxmap.Map[string, entry[V]]
	stop    chan struct{}
}

// New creates a cache and starts its background sweep. The sweep removes
// expired entries every sweepEvery; a non-positive value disables it.
func New[V any](sweepEvery time.Duration) *Cache[V] {
	c := &Cache[V]{
		entries: haxmap.New[string, entry[V]](),
		stop:    make(chan struct{}),
	}
	if sweepEvery > 0 {
		go c.sweepLoop(sweepEvery)
	}
	return c
}

// Get returns the value for key. Expired entries behave as absent and are
// removed on access.
func (c *Cache[V]) Get(key string) (V, bool) {
	e, ok := c.entries.Get(key)
	if !ok {
		var zero V
		return zero, false
	}
	if e.expired(time.Now()) {
		c.entries.Del(key)
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set stores value under key for the given TTL.
func (c *Cache[V]) Set(key string, value V, ttl time.Duration) {
	now := time.Now()
	c.entries.Set(key, entry[V]{
		value:     value,
		createdAt: now,
		expiresAt: now.Add(ttl),
	})
}

// Has reports whether key holds a live entry, evicting it when stale.
func (c *Cache[V]) Has(key string) bool {
	_, ok := c.Get(key)
	return ok
}

// Delete removes key from the cache.
func (c *Cache[V]) Delete(key string) {
	c.entries.Del(key)
}

// Clear removes every entry.
func (c *Cache[V]) Clear() {
	c.entries.ForEach(func(key string, _ entry[V]) bool {
		c.entries.Del(key)
		return true
	})
}

// Len returns the number of stored entries, including any not yet swept.
func (c *Cache[V]) Len() int {
	return int(c.entries.Len())
}

// Close stops the background sweep. The cache remains usable afterwards;
// eviction then happens only lazily.
func (c *Cache[V]) Close() {
	select {
	case <-c.stop:
	default:
		close(c.stop)
	}
}

func (c *Cache[V]) sweepLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			now := time.Now()
			c.entries.ForEach(func(key string, e entry[V]) bool {
				if e.expired(now) {
					c.entries.Del(key)
				}
				return true
			})
		}
	}
}
