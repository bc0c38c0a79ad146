package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/huddle/pkg/auth"
	"github.com/platinummonkey/huddle/pkg/contextkeys"
	"github.com/platinummonkey/huddle/pkg/loader"
	"github.com/platinummonkey/huddle/pkg/rbac"
)

type fakeAuthenticator struct {
	callers map[string]*rbac.Caller
	err     error
}

func (f *fakeAuthenticator) Authenticate(ctx context.Context, token string) (*rbac.Caller, error) {
	if f.err != nil {
		return nil, f.err
	}
	if c, ok := f.callers[token]; ok {
		return c, nil
	}
	return nil, auth.ErrInvalidToken
}

func TestAuthMiddleware(t *testing.T) {
	authn := &fakeAuthenticator{callers: map[string]*rbac.Caller{"good": {UserID: "u1"}}}

	var seen *rbac.Caller
	var seenUserID string
	handler := NewAuthMiddleware(authn).Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = rbac.CallerFromContext(r.Context())
		seenUserID = contextkeys.GetUserID(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantCaller string
	}{
		{"anonymous", "", http.StatusNoContent, ""},
		{"valid token", "Bearer good", http.StatusNoContent, "u1"},
		{"lowercase scheme", "bearer good", http.StatusNoContent, "u1"},
		{"unknown token", "Bearer nope", http.StatusUnauthorized, ""},
		{"wrong scheme", "Basic good", http.StatusUnauthorized, ""},
		{"missing token", "Bearer ", http.StatusUnauthorized, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen, seenUserID = nil, ""
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantCaller == "" {
				assert.Nil(t, seen)
				return
			}
			require.NotNil(t, seen)
			assert.Equal(t, tt.wantCaller, seen.UserID)
			assert.Equal(t, tt.wantCaller, seenUserID)
		})
	}

	t.Run("store failure is a server error", func(t *testing.T) {
		h := NewAuthMiddleware(&fakeAuthenticator{err: errors.New("db down")}).Handler(http.NotFoundHandler())
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer good")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.NotContains(t, rec.Body.String(), "db down")
	})
}

func TestLoaderScope(t *testing.T) {
	var scope *loader.Scope
	handler := LoaderScope(loader.Options{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var ok bool
		scope, ok = loader.FromContext(r.Context())
		require.True(t, ok)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.NotNil(t, scope)

	users := loader.NewEntityLoader("test.byID", func(ctx context.Context, keys []string) (map[string]string, error) {
		return map[string]string{}, nil
	})
	_, err := users.Load(loader.Attach(context.Background(), scope), "x")
	assert.ErrorIs(t, err, loader.ErrScopeClosed)
}

func TestRateLimiter_Allow(t *testing.T) {
	config := RateLimitConfig{
		RequestsPerWindow: 10,
		WindowDuration:    time.Second,
		BurstSize:         2,
	}
	limiter := NewRateLimiter(config)
	ctx := context.Background()

	allowedCount := 0
	for i := 0; i < config.RequestsPerWindow+config.BurstSize+5; i++ {
		if ok, _ := limiter.Allow(ctx, "test-user"); ok {
			allowedCount++
		}
	}

	expected := config.RequestsPerWindow + config.BurstSize
	if allowedCount != expected {
		t.Errorf("Allowed %d requests, want %d", allowedCount, expected)
	}
	if remaining := limiter.Remaining("test-user"); remaining != 0 {
		t.Errorf("Remaining = %d, want 0", remaining)
	}

	time.Sleep(time.Second)
	if ok, _ := limiter.Allow(ctx, "test-user"); !ok {
		t.Error("Should allow request after refill")
	}
}

func TestRateLimiter_BoundedKeys(t *testing.T) {
	limiter := NewRateLimiter(RateLimitConfig{RequestsPerWindow: 1, WindowDuration: time.Minute, MaxKeys: 2})
	for _, key := range []string{"a", "b", "c"} {
		_, _ = limiter.Allow(context.Background(), key)
	}
	assert.Equal(t, 2, limiter.Len())
}

func TestDistributedRateLimiter(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	limiter := NewDistributedRateLimiter(client, RateLimitConfig{RequestsPerWindow: 3, WindowDuration: time.Minute}, "test")
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := limiter.Allow(ctx, "user:u1")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, err := limiter.Allow(ctx, "user:u1")
	require.NoError(t, err)
	assert.False(t, ok)

	remaining, err := limiter.Remaining(ctx, "user:u1")
	require.NoError(t, err)
	assert.Zero(t, remaining)

	ttl, err := limiter.TTL(ctx, "user:u1")
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	mr.FastForward(time.Minute)
	ok, err = limiter.Allow(ctx, "user:u1")
	require.NoError(t, err)
	assert.True(t, ok, "a new window opens after expiry")

	require.NoError(t, limiter.Reset(ctx, "user:u1"))
	remaining, err = limiter.Remaining(ctx, "user:u1")
	require.NoError(t, err)
	assert.Equal(t, 3, remaining)
}

func TestRateLimitMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	t.Run("anonymous callers limited by address", func(t *testing.T) {
		rejected := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "rejected"}, []string{"limiter"})
		users := NewRateLimiter(RateLimitConfig{RequestsPerWindow: 5, WindowDuration: time.Minute})
		anon := NewRateLimiter(RateLimitConfig{RequestsPerWindow: 1, WindowDuration: time.Minute})
		h := NewRateLimitMiddleware(users, anon, rejected).Handler(next)

		send := func(ip string, caller *rbac.Caller) *httptest.ResponseRecorder {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = ip + ":1234"
			if caller != nil {
				req = req.WithContext(rbac.WithCaller(req.Context(), caller))
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			return rec
		}

		assert.Equal(t, http.StatusOK, send("10.0.0.1", nil).Code)
		rec := send("10.0.0.1", nil)
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Equal(t, "60", rec.Header().Get("Retry-After"))
		assert.Equal(t, http.StatusOK, send("10.0.0.2", nil).Code)
		assert.Equal(t, http.StatusOK, send("10.0.0.1", &rbac.Caller{UserID: "u1"}).Code)
		assert.Equal(t, float64(1), testutil.ToFloat64(rejected.WithLabelValues("anonymous")))
	})

	t.Run("redis failure fails open", func(t *testing.T) {
		mr, err := miniredis.Run()
		require.NoError(t, err)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
		t.Cleanup(func() { client.Close() })
		limiter := NewDistributedRateLimiter(client, RateLimitConfig{RequestsPerWindow: 1, WindowDuration: time.Minute}, "")
		mr.Close()

		h := NewRateLimitMiddleware(limiter, limiter, nil).Handler(next)
		for i := 0; i < 3; i++ {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
			assert.Equal(t, http.StatusOK, rec.Code)
		}
	})
}
