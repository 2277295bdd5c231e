package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(context.Background(), 1, 2, time.Hour, time.Hour)
	defer rl.Shutdown()

	h := rl.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	hit := func(path, forwarded string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("X-Forwarded-For", forwarded)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusOK, hit("/api/v1/rates", "203.0.113.7").Code)
	assert.Equal(t, http.StatusOK, hit("/api/v1/rates", "203.0.113.7, 10.0.0.1").Code)
	limited := hit("/api/v1/rates", "203.0.113.7")
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.Equal(t, "1", limited.Header().Get("Retry-After"))

	// other clients and health checks are unaffected
	assert.Equal(t, http.StatusOK, hit("/api/v1/rates", "198.51.100.2").Code)
	assert.Equal(t, http.StatusOK, hit("/health", "203.0.113.7").Code)
}

func TestRateLimiterForgetsIdleClients(t *testing.T) {
	rl := NewRateLimiter(context.Background(), 1, 1, time.Hour, time.Minute)
	defer rl.Shutdown()

	now := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	rl.limiterFor("203.0.113.7")

	now = now.Add(2 * time.Minute)
	rl.limiterFor("198.51.100.2")
	rl.forgetIdle()

	assert.NotContains(t, rl.visitors, "203.0.113.7")
	assert.Contains(t, rl.visitors, "198.51.100.2")
}

func TestGetClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.10:5123"
	assert.Equal(t, "192.0.2.10", getClientIP(req))

	req.Header.Set("X-Real-IP", "192.0.2.11")
	assert.Equal(t, "192.0.2.11", getClientIP(req))

	req.Header.Set("X-Forwarded-For", " 192.0.2.12 , 10.0.0.1")
	assert.Equal(t, "192.0.2.12", getClientIP(req))
}
