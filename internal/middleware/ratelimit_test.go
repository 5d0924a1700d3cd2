package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func doRequest(handler http.Handler, path string, remoteAddr string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(http.MethodGet, path, nil)
	r.RemoteAddr = remoteAddr
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, r)
	return rec
}

func TestRateLimit_AuthBucketTighter(t *testing.T) {
	m := NewRateLimitMiddleware(100, 3)
	handler := m.Handler(okHandler())

	for i := 0; i < 3; i++ {
		rec := doRequest(handler, "/api/v1/auth/login", "10.0.0.1:1234")
		require.Equal(t, http.StatusOK, rec.Code, "request %d within burst", i)
	}

	rec := doRequest(handler, "/api/v1/auth/login", "10.0.0.1:1234")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))

	// The general bucket for the same client is untouched.
	rec = doRequest(handler, "/api/v1/users", "10.0.0.1:1234")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimit_ClientsIsolated(t *testing.T) {
	m := NewRateLimitMiddleware(100, 1)
	handler := m.Handler(okHandler())

	rec := doRequest(handler, "/api/v1/auth/login", "10.0.0.1:1234")
	require.Equal(t, http.StatusOK, rec.Code)
	rec = doRequest(handler, "/api/v1/auth/login", "10.0.0.1:1234")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)

	// A different client still has a full bucket.
	rec = doRequest(handler, "/api/v1/auth/login", "10.0.0.2:1234")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimit_DefaultsOnNonPositiveInput(t *testing.T) {
	m := NewRateLimitMiddleware(0, -1)
	assert.Equal(t, 100, m.generalRPM)
	assert.Equal(t, 10, m.authRPM)
}

func TestExtractClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "192.168.1.5:4321"
	assert.Equal(t, "192.168.1.5", extractClientIP(r))

	r.Header.Set("X-Real-IP", "203.0.113.7")
	assert.Equal(t, "203.0.113.7", extractClientIP(r))

	// X-Forwarded-For wins, first hop only.
	r.Header.Set("X-Forwarded-For", "198.51.100.9, 10.0.0.1")
	assert.Equal(t, "198.51.100.9", extractClientIP(r))
}
