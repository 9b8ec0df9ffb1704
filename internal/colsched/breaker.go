// Package colsched implements the collection scheduler (spec §4.2): a
// cron-driven periodic collector runner with a per-collector circuit
// breaker, exponential-backoff-free fast-fail semantics, and a bounded
// graceful shutdown. Grounded on internal/scheduler/scheduler.go's
// cron.New(cron.WithSeconds()) wrapper for the driver, and on
// original_source/services/ingestion/src/scheduler.py's CircuitBreaker
// class for the breaker state machine (threshold=5, reset_timeout=300s,
// decay-by-1 on success, full reset on a successful post-timeout probe).
package colsched

import (
	"sync"
	"time"

	"github.com/aristath/marketcore/internal/domain"
)

// DefaultThreshold and DefaultResetTimeout match spec §4.2.
const (
	DefaultThreshold    = 5
	DefaultResetTimeout = 300 * time.Second
)

// Breaker is a per-collector circuit breaker. Mutated only by the
// scheduler tick for its own collector (spec §5: "no locking required"),
// but it carries a mutex anyway since admin/status endpoints read its
// snapshot concurrently with the scheduler tick.
type Breaker struct {
	mu              sync.Mutex
	service         string
	threshold       int
	resetTimeout    time.Duration
	failureCount    int
	totalFailures   int
	lastFailureTime *time.Time
	isOpen          bool
}

// NewBreaker constructs a breaker for the named collector with the spec
// defaults. Pass zero values to get DefaultThreshold/DefaultResetTimeout.
func NewBreaker(service string, threshold int, resetTimeout time.Duration) *Breaker {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if resetTimeout <= 0 {
		resetTimeout = DefaultResetTimeout
	}
	return &Breaker{service: service, threshold: threshold, resetTimeout: resetTimeout}
}

// AllowProbe reports whether a tick while the breaker is open should be
// treated as a probe attempt (elapsed since last failure exceeds the reset
// timeout). It does not mutate state; RecordSuccess/RecordFailure do.
func (b *Breaker) AllowProbe(now time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.isOpen {
		return true
	}
	if b.lastFailureTime == nil {
		return false
	}
	return now.Sub(*b.lastFailureTime) > b.resetTimeout
}

// RecordFailure increments both the consecutive and lifetime failure
// counters and opens the breaker once the consecutive count reaches
// threshold. It returns true if this call opened (or re-opened) the breaker.
func (b *Breaker) RecordFailure(now time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failureCount++
	b.totalFailures++
	b.lastFailureTime = &now
	if b.failureCount >= b.threshold {
		b.isOpen = true
		return true
	}
	return false
}

// RecordSuccess handles both the normal decay path and the post-open probe
// path. If the breaker was open and the reset window has elapsed, success
// fully resets it; otherwise the consecutive-failure counter decays by one
// rather than resetting to zero, matching the original's flap-prevention
// behaviour.
func (b *Breaker) RecordSuccess(now time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.isOpen {
		if b.lastFailureTime != nil && now.Sub(*b.lastFailureTime) > b.resetTimeout {
			b.reset()
		}
		return
	}
	if b.failureCount > 0 {
		b.failureCount--
	}
}

func (b *Breaker) reset() {
	b.failureCount = 0
	b.isOpen = false
	b.lastFailureTime = nil
}

// IsOpen reports the current open/closed state.
func (b *Breaker) IsOpen() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.isOpen
}

// Snapshot returns the breaker's state as the wire-level domain type.
func (b *Breaker) Snapshot() domain.CircuitBreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return domain.CircuitBreakerState{
		Service:             b.service,
		FailureCount:        b.failureCount,
		LastFailureTime:     b.lastFailureTime,
		IsOpen:              b.isOpen,
		Threshold:           b.threshold,
		ResetTimeoutSeconds: int(b.resetTimeout.Seconds()),
		TotalFailures:       b.totalFailures,
	}
}
