// Package cache provides a small in-process TTL memo. Expiry is pull-based:
// entries are checked and evicted on read, so no sweeper goroutine exists.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"sync"
	"time"
)

type entry[V any] struct {
	value     V
	createdAt time.Time
	expiresAt time.Time // zero means never expires
}

// Cache is a concurrent key→entry map with per-entry TTLs. Reads and writes
// from different requests interleave freely; there is no cross-key contention
// beyond the map lock itself.
type Cache[V any] struct {
	mu      sync.RWMutex
	entries map[string]entry[V]
}

// New creates an empty cache.
func New[V any]() *Cache[V] {
	return &Cache[V]{entries: make(map[string]entry[V])}
}

// Get returns the entry for key if present and unexpired. An expired entry is
// evicted and reported as a miss.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	var zero V
	if !ok {
		return zero, false
	}
	if !e.expiresAt.IsZero() && time.Now().After(e.expiresAt) {
		c.mu.Lock()
		// Re-check under the write lock; a concurrent Set may have renewed it.
		if cur, ok := c.entries[key]; ok && cur.expiresAt.Equal(e.expiresAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return zero, false
	}
	return e.value, true
}

// Set stores value under key with the given TTL. A non-positive TTL stores
// the entry without expiry.
func (c *Cache[V]) Set(key string, value V, ttl time.Duration) {
	e := entry[V]{value: value, createdAt: time.Now()}
	if ttl > 0 {
		e.expiresAt = e.createdAt.Add(ttl)
	}
	c.mu.Lock()
	c.entries[key] = e
	c.mu.Unlock()
}

// Len reports the number of stored entries, expired or not.
func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Key derives the semantic cache key: SHA-256 over the dialect, the question,
// and the sorted touched-table names.
func Key(dialect, question string, tables []string) string {
	sorted := make([]string, len(tables))
	copy(sorted, tables)
	sort.Strings(sorted)

	h := sha256.New()
	h.Write([]byte(dialect))
	h.Write([]byte("\n"))
	h.Write([]byte(question))
	h.Write([]byte("\n"))
	h.Write([]byte(strings.Join(sorted, ",")))
	return hex.EncodeToString(h.Sum(nil))
}
