package collectors

import (
	"math/rand"
	"sync"
	"time"
)

// Per-symbol exponential backoff within a single collect call (spec §4.1).
const (
	backoffBase     = 1 * time.Second
	backoffMax      = 60 * time.Second
	backoffMaxRetry = 5
	backoffJitter   = 0.10
)

type backoffEntry struct {
	retryCount int
	lastTry    time.Time
}

// SymbolBackoff is a small per-symbol retry tracker, mutated only within the
// single serial collect pass for its owning collector (spec §5: "no
// cross-task visibility required"), so it needs no locking in production
// use; the mutex here only guards against accidental concurrent test use.
type SymbolBackoff struct {
	mu      sync.Mutex
	entries map[string]*backoffEntry
}

// NewSymbolBackoff creates an empty backoff tracker.
func NewSymbolBackoff() *SymbolBackoff {
	return &SymbolBackoff{entries: make(map[string]*backoffEntry)}
}

// ShouldSkip reports whether symbol must be skipped in the current pass:
// either its retry counter has reached the max, or its computed backoff
// delay has not yet elapsed since the last attempt.
func (b *SymbolBackoff) ShouldSkip(symbol string, now time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	entry, ok := b.entries[symbol]
	if !ok {
		return false
	}
	if entry.retryCount >= backoffMaxRetry {
		return true
	}
	delay := computeDelay(entry.retryCount)
	return now.Sub(entry.lastTry) < delay
}

// RecordFailure increments the symbol's retry counter and stamps the
// attempt time used for the next delay computation.
func (b *SymbolBackoff) RecordFailure(symbol string, now time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	entry, ok := b.entries[symbol]
	if !ok {
		entry = &backoffEntry{}
		b.entries[symbol] = entry
	}
	entry.retryCount++
	entry.lastTry = now
}

// RecordSuccess resets the symbol's retry counter and timestamp.
func (b *SymbolBackoff) RecordSuccess(symbol string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.entries, symbol)
}

// RetryCount exposes the current retry counter, for tests and diagnostics.
func (b *SymbolBackoff) RetryCount(symbol string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if entry, ok := b.entries[symbol]; ok {
		return entry.retryCount
	}
	return 0
}

// computeDelay is min(base*2^retry, max) + jitter in [0, 10% of delay).
func computeDelay(retryCount int) time.Duration {
	delay := backoffBase * time.Duration(1<<uint(retryCount))
	if delay > backoffMax {
		delay = backoffMax
	}
	jitter := time.Duration(rand.Float64() * backoffJitter * float64(delay))
	return delay + jitter
}
