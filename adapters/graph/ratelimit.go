package graph

import (
	"context"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitConfig holds rate limiting configuration for the client.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate limit.
	RequestsPerSecond float64
	// BurstSize is the maximum burst size.
	BurstSize int
}

// DefaultRateLimit stays well under Graph's per-app quota
// (about 10,000 requests per 10 minutes).
var DefaultRateLimit = RateLimitConfig{RequestsPerSecond: 10.0, BurstSize: 15}

// defaultBackoff applies when a throttled response carries no usable
// Retry-After.
const defaultBackoff = 10 * time.Second

// RateLimiter is a token bucket shared by all requests of a client. The
// backoff window set from Retry-After is kept per key (the caller's access
// token), so one throttled user does not stall the others.
type RateLimiter struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	retryAt map[string]time.Time
	now     func() time.Time
}

func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	if cfg.RequestsPerSecond <= 0 {
		cfg = DefaultRateLimit
	}
	if cfg.BurstSize <= 0 {
		cfg.BurstSize = 1
	}
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.BurstSize),
		retryAt: make(map[string]time.Time),
		now:     time.Now,
	}
}

func (r *RateLimiter) backoffUntil(key string) time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.retryAt[key]
}

// Wait blocks until key may make a request without exceeding the rate limit.
// It also respects any backoff period set for key by RecordRateLimitError.
func (r *RateLimiter) Wait(ctx context.Context, key string) error {
	if wait := r.backoffUntil(key).Sub(r.now()); wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	return r.limiter.Wait(ctx)
}

// RecordRateLimitError sets the backoff window for key from a Retry-After
// header value in seconds. Missing or unparsable values back off for
// defaultBackoff. Elapsed windows of other keys are dropped.
func (r *RateLimiter) RecordRateLimitError(key, retryAfter string) {
	backoff := defaultBackoff
	if seconds, err := strconv.Atoi(retryAfter); err == nil && seconds > 0 {
		backoff = time.Duration(seconds) * time.Second
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	for k, at := range r.retryAt {
		if !at.After(now) {
			delete(r.retryAt, k)
		}
	}
	r.retryAt[key] = now.Add(backoff)
}

// Allow checks if key can make a request immediately without blocking.
func (r *RateLimiter) Allow(key string) bool {
	if r.now().Before(r.backoffUntil(key)) {
		return false
	}
	return r.limiter.Allow()
}
