// Package errors implements the closed error taxonomy of the core pipeline
// (spec §7). Each type is a distinct Go error so callers can dispatch on it
// with errors.As rather than string matching, matching the teacher's typed
// connection errors in internal/clients/tradernet.
package errors

import "fmt"

// ExternalServiceError wraps any remote call failure. StatusCode is zero
// when the failure did not originate from an HTTP response (e.g. a dial
// timeout).
type ExternalServiceError struct {
	Service    string
	StatusCode int
	Details    string
	Err        error
}

func (e *ExternalServiceError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("external service %q failed (status %d): %s", e.Service, e.StatusCode, e.Details)
	}
	return fmt.Sprintf("external service %q failed: %s", e.Service, e.Details)
}

func (e *ExternalServiceError) Unwrap() error { return e.Err }

// CircuitBreakerOpen is raised by the scheduler to skip a tick without
// invoking the collector.
type CircuitBreakerOpen struct {
	Service string
}

func (e *CircuitBreakerOpen) Error() string {
	return fmt.Sprintf("circuit breaker open for %q", e.Service)
}

// RateLimitError is surfaced to push handlers so they can emit 429 with a
// Retry-After header.
type RateLimitError struct {
	RetryAfterSeconds int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited, retry after %ds", e.RetryAfterSeconds)
}

// PubSubError is a publisher batch partial failure. FirstErrors carries at
// most the first five per-event failure messages.
type PubSubError struct {
	Total       int
	Succeeded   int
	Failed      int
	FirstErrors []string
}

func (e *PubSubError) Error() string {
	return fmt.Sprintf("publish batch: %d/%d succeeded, %d failed", e.Succeeded, e.Total, e.Failed)
}

// ValidationError reports bad input to a pure operator or domain constructor.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %q: %s", e.Field, e.Reason)
}
