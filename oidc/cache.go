package oidc

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// ttlCache caches values fetched from the identity provider for a bounded time.
//
// Entries are replaced wholesale: a reader either observes a complete entry or
// none at all. An expired entry counts as missing, get never returns stale values.
type ttlCache[T any] struct {
	ttl   time.Duration
	clock clockwork.Clock

	mu      sync.RWMutex
	entries map[string]cacheEntry[T]
}

type cacheEntry[T any] struct {
	value     T
	expiresAt time.Time
}

func newTTLCache[T any](ttl time.Duration) *ttlCache[T] {
	return &ttlCache[T]{
		ttl:     ttl,
		clock:   clockwork.NewRealClock(),
		entries: make(map[string]cacheEntry[T]),
	}
}

func (c *ttlCache[T]) get(key string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	if !ok || !entry.expiresAt.After(c.clock.Now()) {
		var zero T

		return zero, false
	}

	return entry.value, true
}

func (c *ttlCache[T]) set(key string, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = cacheEntry[T]{
		value:     value,
		expiresAt: c.clock.Now().Add(c.ttl),
	}
}

// invalidate drops every entry.
//
// It backs the provider change hook: results cached for a previous provider
// must never be served for a new one.
func (c *ttlCache[T]) invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]cacheEntry[T])
}
