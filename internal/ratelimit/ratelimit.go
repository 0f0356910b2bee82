// Package ratelimit throttles chat traffic with an in-memory token bucket.
//
// Authenticated requests are keyed by user ID, so one chatty user cannot
// starve the classifier or the fallback provider for everyone else.
// Unauthenticated requests (token minting) are keyed by client IP.
package ratelimit

import "context"

// Limiter decides whether a request identified by key should proceed.
// Implementations must be safe for concurrent use. Errors signal a limiter
// malfunction; callers treat them as fail-open rather than blocking traffic.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)

	// Close releases resources (cleanup goroutines).
	Close() error
}

// NoopLimiter permits every request. Used when rate limiting is disabled.
type NoopLimiter struct{}

// Allow always returns true.
func (NoopLimiter) Allow(context.Context, string) (bool, error) { return true, nil }

// Close is a no-op.
func (NoopLimiter) Close() error { return nil }
