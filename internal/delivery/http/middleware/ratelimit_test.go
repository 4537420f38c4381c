package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hashora/settlement-service/internal/delivery/http/middleware"
	"github.com/hashora/settlement-service/internal/ratelimit"
)

func limitedHandler(limit int) http.Handler {
	limiter := ratelimit.NewLimiter(map[string]ratelimit.Policy{
		ratelimit.OpAPI: {Window: time.Minute, Limit: limit},
	}, ratelimit.NewMemoryStore())

	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	return middleware.RateLimit(limiter, ratelimit.OpAPI, nil)(next)
}

func doRequest(h http.Handler, userID string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	req.RemoteAddr = "10.0.0.1:43210"
	if userID != "" {
		req.Header.Set("X-User-Id", userID)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRateLimitHeaders(t *testing.T) {
	h := limitedHandler(2)

	rec := doRequest(h, "user-1")
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	require.Equal(t, "1", rec.Header().Get("X-RateLimit-Remaining"))
	require.NotEmpty(t, rec.Header().Get("X-RateLimit-Reset"))
}

func TestRateLimitRejectsWith429(t *testing.T) {
	h := limitedHandler(1)

	require.Equal(t, http.StatusNoContent, doRequest(h, "user-1").Code)

	rec := doRequest(h, "user-1")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	require.NotEmpty(t, rec.Header().Get("Retry-After"))
	require.JSONEq(t, `{"error":"rate limit exceeded"}`, rec.Body.String())
}

func TestRateLimitActorsAreIndependent(t *testing.T) {
	h := limitedHandler(1)

	require.Equal(t, http.StatusNoContent, doRequest(h, "user-1").Code)
	require.Equal(t, http.StatusTooManyRequests, doRequest(h, "user-1").Code)

	// Another user, and the anonymous IP-keyed actor, have their own quotas.
	require.Equal(t, http.StatusNoContent, doRequest(h, "user-2").Code)
	require.Equal(t, http.StatusNoContent, doRequest(h, "").Code)
}
