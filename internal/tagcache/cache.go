// Package tagcache holds a short-lived, per-user cache of each user's
// distinct tag vocabulary, so repeated "what tags do I have" commands don't
// hit the upstream service.
package tagcache

import (
	"context"
	"sort"
	"sync"
	"time"
)

// DefaultTTL is the validity window for a cached tag list
const DefaultTTL = 60 * time.Second

// Cache is the tag-list cache contract. Keys are partitioned by user id, so
// no cross-user visibility is possible by construction.
type Cache interface {
	// Get returns the cached tag list for the user, or false on a miss.
	// An expired entry is a miss.
	Get(ctx context.Context, userID string) ([]string, bool)

	// Set stores the user's tag list, replacing any existing entry
	Set(ctx context.Context, userID string, tags []string)

	// Invalidate drops the user's entry regardless of remaining TTL
	Invalidate(ctx context.Context, userID string)
}

type entry struct {
	tags      []string
	expiresAt time.Time
}

// MemoryCache is the in-process Cache implementation. Reads on different
// users run in parallel; writes on the same key are atomic replaces with
// last-writer-wins semantics.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]entry
	ttl     time.Duration
	now     func() time.Time
}

// Option configures a MemoryCache
type Option func(*MemoryCache)

// WithTTL overrides the default entry TTL
func WithTTL(ttl time.Duration) Option {
	return func(c *MemoryCache) { c.ttl = ttl }
}

// WithClock injects a clock, so expiry is deterministic in tests
func WithClock(now func() time.Time) Option {
	return func(c *MemoryCache) { c.now = now }
}

// NewMemoryCache creates an in-process tag cache
func NewMemoryCache(opts ...Option) *MemoryCache {
	c := &MemoryCache{
		entries: make(map[string]entry),
		ttl:     DefaultTTL,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached tags for the user if the entry has not expired
func (c *MemoryCache) Get(_ context.Context, userID string) ([]string, bool) {
	c.mu.RLock()
	e, ok := c.entries[userID]
	c.mu.RUnlock()

	if !ok || !c.now().Before(e.expiresAt) {
		return nil, false
	}

	out := make([]string, len(e.tags))
	copy(out, e.tags)
	return out, true
}

// Set stores the user's tags, sorted, with a fresh TTL
func (c *MemoryCache) Set(_ context.Context, userID string, tags []string) {
	stored := make([]string, len(tags))
	copy(stored, tags)
	sort.Strings(stored)

	c.mu.Lock()
	c.entries[userID] = entry{tags: stored, expiresAt: c.now().Add(c.ttl)}
	c.mu.Unlock()
}

// Invalidate removes the user's entry. A following Get is a miss.
func (c *MemoryCache) Invalidate(_ context.Context, userID string) {
	c.mu.Lock()
	delete(c.entries, userID)
	c.mu.Unlock()
}
