// Package cache provides a small per-collector response cache so a
// collector that is rate-limited upstream (e.g. the Turkish gold/FX
// scrapers, which track a hard daily call quota) does not need to re-parse
// an identical upstream payload inside one rate-limit window. Entries are
// encoded with msgpack rather than JSON, since this is a private in-memory
// envelope never exposed on the wire -- the one concrete exercise of
// vmihailenco/msgpack in this module (the canonical wire format everywhere
// else stays JSON per spec §6).
package cache

import (
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// entry is a cached payload with the time it was stored.
type entry struct {
	data      []byte
	storedAt  time.Time
}

// ResponseCache holds at most one entry per key, with a caller-supplied TTL.
type ResponseCache struct {
	mu  sync.Mutex
	ttl time.Duration
	byKey map[string]entry
}

// New builds a cache with the given time-to-live per entry.
func New(ttl time.Duration) *ResponseCache {
	return &ResponseCache{ttl: ttl, byKey: make(map[string]entry)}
}

// Get decodes the cached value for key into dest, reporting false if the
// entry is absent or has expired.
func (c *ResponseCache) Get(key string, dest interface{}, now time.Time) bool {
	c.mu.Lock()
	e, ok := c.byKey[key]
	c.mu.Unlock()
	if !ok || now.Sub(e.storedAt) > c.ttl {
		return false
	}
	return msgpack.Unmarshal(e.data, dest) == nil
}

// Set encodes value and stores it under key, timestamped at now.
func (c *ResponseCache) Set(key string, value interface{}, now time.Time) error {
	data, err := msgpack.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.byKey[key] = entry{data: data, storedAt: now}
	c.mu.Unlock()
	return nil
}
