// Package cache holds answered queries for a fixed time.
package cache

import (
	"strings"
	"sync"
	"time"

	"eidrag/internal/domain"
)

// DefaultTTL is how long an answer stays fresh.
const DefaultTTL = 30 * time.Minute

type entry struct {
	result  domain.SearchResult
	created time.Time
}

// Cache maps normalized queries to results. Stale entries are skipped on
// lookup and replaced on the next Set; nothing is purged in the background.
type Cache struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.RWMutex
	entries map[string]entry
}

// New returns a cache with the given TTL (DefaultTTL when <= 0).
func New(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{ttl: ttl, now: time.Now, entries: make(map[string]entry)}
}

// WithClock replaces the time source.
func (c *Cache) WithClock(now func() time.Time) *Cache {
	c.now = now
	return c
}

// Key normalizes a query into its cache key.
func Key(query string) string {
	return strings.ToLower(strings.TrimSpace(query))
}

// Get returns the fresh result stored for query.
func (c *Cache) Get(query string) (domain.SearchResult, bool) {
	c.mu.RLock()
	e, ok := c.entries[Key(query)]
	c.mu.RUnlock()
	if !ok || c.now().Sub(e.created) >= c.ttl {
		return domain.SearchResult{}, false
	}
	return e.result, true
}

// Set stores result under query, replacing any previous entry.
func (c *Cache) Set(query string, result domain.SearchResult) {
	c.mu.Lock()
	c.entries[Key(query)] = entry{result: result, created: c.now()}
	c.mu.Unlock()
}

// Clear drops every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]entry)
	c.mu.Unlock()
}

// Len returns the number of stored entries, fresh or not.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
