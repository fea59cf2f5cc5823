package handlers_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/malbeclabs/airdrop/api/handlers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestAirdrop_API_RateLimiter_Allow(t *testing.T) {
	t.Parallel()
	limiter := handlers.NewRateLimiter(t.Context(), rate.Limit(5), 5)

	ip := "192.168.1.1"
	for i := 0; i < 5; i++ {
		assert.True(t, limiter.Allow(ip), "request %d should be allowed", i+1)
	}
	assert.False(t, limiter.Allow(ip), "request 6 should be denied")
	assert.True(t, limiter.Allow("192.168.1.2"), "different IP should be allowed")
}

func TestAirdrop_API_RateLimiter_Refill(t *testing.T) {
	t.Parallel()
	limiter := handlers.NewRateLimiter(t.Context(), rate.Limit(10), 2)

	ip := "192.168.1.1"
	assert.True(t, limiter.Allow(ip))
	assert.True(t, limiter.Allow(ip))
	allowed, retryAfter := limiter.AllowWithRetry(ip)
	assert.False(t, allowed)
	assert.Greater(t, retryAfter, time.Duration(0))

	time.Sleep(150 * time.Millisecond)
	assert.True(t, limiter.Allow(ip), "should be allowed after refill")
}

func TestAirdrop_API_RateLimitMiddleware(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	limiter := handlers.NewRateLimiter(ctx, rate.Every(time.Hour), 1)
	h := handlers.RateLimitMiddleware(limiter)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.RemoteAddr = "10.0.0.1:5555"

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.NotEmpty(t, rec.Header().Get("Retry-After"))
	require.Contains(t, rec.Body.String(), "rate_limit_exceeded")
}

func TestAirdrop_API_GetIPFromRequest(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"remote addr", nil, "10.1.2.3:4000", "10.1.2.3"},
		{"forwarded for", map[string]string{"X-Forwarded-For": "203.0.113.9, 10.0.0.1"}, "10.0.0.1:1", "203.0.113.9"},
		{"real ip", map[string]string{"X-Real-IP": "198.51.100.7"}, "10.0.0.1:1", "198.51.100.7"},
		{"no port", nil, "10.9.9.9", "10.9.9.9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			require.Equal(t, tt.want, handlers.GetIPFromRequest(req))
		})
	}
}
