// Package cache is a keyed in-memory store with a single freshness window.
// Entries are never evicted by age: an expired entry stops being served by
// Get but stays available to GetStale until it is overwritten or removed.
package cache

import (
	"strings"
	"sync"
	"time"
)

type entry[T any] struct {
	value    T
	storedAt time.Time
}

// Cache maps keys to values stamped with the time they were stored.
type Cache[T any] struct {
	mu    sync.RWMutex
	items map[string]entry[T]
	ttl   time.Duration
	now   func() time.Time
}

// New creates a cache whose entries are fresh for ttl. A nil clock means time.Now.
func New[T any](ttl time.Duration, now func() time.Time) *Cache[T] {
	if now == nil {
		now = time.Now
	}
	return &Cache[T]{
		items: make(map[string]entry[T]),
		ttl:   ttl,
		now:   now,
	}
}

// TTL returns the freshness window.
func (c *Cache[T]) TTL() time.Duration { return c.ttl }

// Get returns the value only while now - storedAt < ttl.
func (c *Cache[T]) Get(key string) (T, bool) {
	c.mu.RLock()
	e, ok := c.items[key]
	c.mu.RUnlock()
	if !ok || c.now().Sub(e.storedAt) >= c.ttl {
		var zero T
		return zero, false
	}
	return e.value, true
}

// GetStale returns the value regardless of age.
func (c *Cache[T]) GetStale(key string) (T, bool) {
	c.mu.RLock()
	e, ok := c.items[key]
	c.mu.RUnlock()
	return e.value, ok
}

// Set stores value under key, overwriting any prior entry.
func (c *Cache[T]) Set(key string, value T) {
	c.mu.Lock()
	c.items[key] = entry[T]{value: value, storedAt: c.now()}
	c.mu.Unlock()
}

// Invalidate removes a single entry.
func (c *Cache[T]) Invalidate(key string) {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
}

// InvalidatePrefix removes every entry whose key starts with prefix.
func (c *Cache[T]) InvalidatePrefix(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for k := range c.items {
		if strings.HasPrefix(k, prefix) {
			delete(c.items, k)
			n++
		}
	}
	return n
}

// InvalidateFunc removes every entry for which match returns true, fresh or
// not. match runs under the cache lock and must not call back into c.
func (c *Cache[T]) InvalidateFunc(match func(key string, value T) bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for k, e := range c.items {
		if match(k, e.value) {
			delete(c.items, k)
			n++
		}
	}
	return n
}

// Clear removes all entries.
func (c *Cache[T]) Clear() {
	c.mu.Lock()
	c.items = make(map[string]entry[T])
	c.mu.Unlock()
}

// Len returns the number of stored entries, fresh or not.
func (c *Cache[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
