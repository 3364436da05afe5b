package muna

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitConfig holds rate limiting configuration for API requests
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate limit
	RequestsPerSecond float64
	// BurstSize is the maximum burst size
	BurstSize int
}

// DefaultRateLimit is applied when no configuration is given
var DefaultRateLimit = RateLimitConfig{RequestsPerSecond: 5, BurstSize: 10}

// RateLimiter is a token bucket that also honours server-requested backoff
type RateLimiter struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	retryAt time.Time
}

// NewRateLimiter creates a rate limiter. A non-positive rate disables limiting.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	limit := rate.Limit(cfg.RequestsPerSecond)
	if cfg.RequestsPerSecond <= 0 {
		limit = rate.Inf
	}
	burst := cfg.BurstSize
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		limiter: rate.NewLimiter(limit, burst),
	}
}

// Wait blocks until a request may be sent
func (r *RateLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()
	retryAt := r.retryAt
	r.mu.Unlock()

	if d := time.Until(retryAt); d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	return r.limiter.Wait(ctx)
}

// Backoff delays every request until d has elapsed
func (r *RateLimiter) Backoff(d time.Duration) {
	if d <= 0 {
		d = time.Second
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if at := time.Now().Add(d); at.After(r.retryAt) {
		r.retryAt = at
	}
}
