package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/platinummonkey/huddle/pkg/httputil"
	"github.com/platinummonkey/huddle/pkg/observability"
	"github.com/platinummonkey/huddle/pkg/rbac"
)

// RateLimitConfig defines rate limiting configuration
type RateLimitConfig struct {
	// RequestsPerWindow is the max requests allowed in the time window
	RequestsPerWindow int
	// WindowDuration is the time window for rate limiting
	WindowDuration time.Duration
	// BurstSize allows temporary bursts above the rate
	BurstSize int
	// MaxKeys bounds the number of tracked callers; the least recently
	// seen are forgotten first
	MaxKeys int
}

// DefaultRateLimitConfig returns default rate limit settings
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerWindow: 100,
		WindowDuration:    time.Minute,
		BurstSize:         10,
		MaxKeys:           10000,
	}
}

// Limiter decides whether the caller identified by key may proceed
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	Config() RateLimitConfig
}

// RateLimiter implements an in-process token bucket per key
type RateLimiter struct {
	config  RateLimitConfig
	buckets *expirable.LRU[string, *bucket]
	mu      sync.Mutex
}

type bucket struct {
	tokens     int
	lastUpdate time.Time
	mu         sync.Mutex
}

// NewRateLimiter creates a new rate limiter. Idle buckets expire after two
// windows, by which time they would have refilled anyway.
func NewRateLimiter(config RateLimitConfig) *RateLimiter {
	if config.MaxKeys <= 0 {
		config.MaxKeys = DefaultRateLimitConfig().MaxKeys
	}
	return &RateLimiter{
		config:  config,
		buckets: expirable.NewLRU[string, *bucket](config.MaxKeys, nil, 2*config.WindowDuration),
	}
}

// Config implements Limiter
func (rl *RateLimiter) Config() RateLimitConfig {
	return rl.config
}

// Allow implements Limiter. It never fails.
func (rl *RateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	rl.mu.Lock()
	b, ok := rl.buckets.Get(key)
	if !ok {
		b = &bucket{tokens: rl.capacity(), lastUpdate: time.Now()}
		rl.buckets.Add(key, b)
	}
	rl.mu.Unlock()

	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(b.lastUpdate)

	// Refill tokens based on elapsed time
	tokensToAdd := int(elapsed.Seconds() * float64(rl.config.RequestsPerWindow) / rl.config.WindowDuration.Seconds())
	if tokensToAdd > 0 {
		b.tokens += tokensToAdd
		if b.tokens > rl.capacity() {
			b.tokens = rl.capacity()
		}
		b.lastUpdate = now
	}

	if b.tokens > 0 {
		b.tokens--
		return true, nil
	}
	return false, nil
}

// Remaining returns the number of remaining tokens for a key
func (rl *RateLimiter) Remaining(key string) int {
	b, ok := rl.buckets.Peek(key)
	if !ok {
		return rl.capacity()
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tokens
}

// Len returns the number of tracked keys
func (rl *RateLimiter) Len() int {
	return rl.buckets.Len()
}

func (rl *RateLimiter) capacity() int {
	return rl.config.RequestsPerWindow + rl.config.BurstSize
}

// RateLimitMiddleware limits authenticated callers by user id and anonymous
// callers by client address
type RateLimitMiddleware struct {
	userLimiter      Limiter
	anonymousLimiter Limiter
	rejected         *prometheus.CounterVec
}

// NewRateLimitMiddleware creates a new rate limit middleware. rejected may
// be nil.
func NewRateLimitMiddleware(users, anonymous Limiter, rejected *prometheus.CounterVec) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		userLimiter:      users,
		anonymousLimiter: anonymous,
		rejected:         rejected,
	}
}

// Handler wraps an HTTP handler with rate limiting. Limiter errors let the
// request through.
func (m *RateLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key, limiter, kind := "ip:"+httputil.ClientIP(r), m.anonymousLimiter, "anonymous"
		if caller := rbac.CallerFromContext(r.Context()); caller != nil {
			key, limiter, kind = "user:"+caller.UserID, m.userLimiter, "user"
		}

		allowed, err := limiter.Allow(r.Context(), key)
		if err != nil {
			observability.FromContext(r.Context()).
				WithError(err).
				WithField("limiter", kind).
				Warn("rate limiter unavailable, allowing request")
			next.ServeHTTP(w, r)
			return
		}

		cfg := limiter.Config()
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(cfg.RequestsPerWindow))
		if !allowed {
			if m.rejected != nil {
				m.rejected.WithLabelValues(kind).Inc()
			}
			retryAfter := fmt.Sprintf("%.0f", cfg.WindowDuration.Seconds())
			w.Header().Set("Retry-After", retryAfter)
			w.Header().Set("X-RateLimit-Remaining", "0")
			httputil.WriteTooManyRequests(w, "rate limit exceeded")
			return
		}

		next.ServeHTTP(w, r)
	})
}
