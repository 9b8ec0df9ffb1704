package collectors

import (
	"context"
	"sync"
	"time"
)

// RateLimiter enforces a minimum interval between outbound requests for one
// collector (spec §4.1: min_interval_seconds = 60 / requests_per_minute).
// last_request_time is per-collector and accessed only by that collector's
// single in-flight tick (spec §5), so the mutex here is a defensive measure
// for collectors that issue concurrent sub-requests (e.g. per-symbol fan-out)
// within one collect pass rather than a cross-tick concern.
type RateLimiter struct {
	mu          sync.Mutex
	minInterval time.Duration
	last        time.Time
}

// NewRateLimiter builds a limiter from a requests-per-minute budget.
func NewRateLimiter(requestsPerMinute int) *RateLimiter {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 60
	}
	return &RateLimiter{minInterval: time.Minute / time.Duration(requestsPerMinute)}
}

// Wait blocks until the minimum interval has elapsed since the last
// request, or ctx is cancelled.
func (r *RateLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()
	now := time.Now()
	elapsed := now.Sub(r.last)
	var sleep time.Duration
	if elapsed < r.minInterval {
		sleep = r.minInterval - elapsed
	}
	r.last = now.Add(sleep)
	r.mu.Unlock()

	if sleep <= 0 {
		return nil
	}
	timer := time.NewTimer(sleep)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
