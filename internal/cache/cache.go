// Package cache provides small in-process caches for hot lookups.
package cache

import (
	"sync"
	"time"

	"github.com/heraerp/hera/internal/clock"
)

// Cache is a key/value store whose entries expire.
type Cache[K comparable, V any] interface {
	Get(key K) (V, bool)
	Set(key K, value V, ttl time.Duration)
	Delete(key K)
	Len() int
}

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

type ttlCache[K comparable, V any] struct {
	mu    sync.Mutex
	clock clock.Clock
	items map[K]entry[V]
}

// NewTTLCache returns a mutex-guarded cache using the system clock.
func NewTTLCache[K comparable, V any]() Cache[K, V] {
	return NewTTLCacheWithClock[K, V](clock.SystemClock{})
}

func NewTTLCacheWithClock[K comparable, V any](c clock.Clock) Cache[K, V] {
	if c == nil {
		c = clock.SystemClock{}
	}
	return &ttlCache[K, V]{clock: c, items: map[K]entry[V]{}}
}

func (c *ttlCache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	item, ok := c.items[key]
	if !ok {
		return zero, false
	}
	if !c.clock.Now().Before(item.expiresAt) {
		delete(c.items, key)
		return zero, false
	}
	return item.value, true
}

// Set stores value; a non-positive ttl removes the key instead.
func (c *ttlCache[K, V]) Set(key K, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ttl <= 0 {
		delete(c.items, key)
		return
	}
	c.items[key] = entry[V]{value: value, expiresAt: c.clock.Now().Add(ttl)}
}

func (c *ttlCache[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

func (c *ttlCache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}
