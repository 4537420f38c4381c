package middleware

import (
	"net"
	"net/http"
	"strconv"

	"github.com/hashora/settlement-service/internal/infrastructure/metrics"
	"github.com/hashora/settlement-service/internal/ratelimit"
)

// RateLimit throttles per (operation, actor, path). The actor is the
// authenticated user when the gateway forwards one, otherwise the client IP,
// so anonymous abuse cannot drain an authenticated user's quota.
func RateLimit(limiter *ratelimit.Limiter, operation string, m *metrics.SettlementMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res := limiter.Allow(operation, actorFrom(r), r.URL.Path)

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))

			if !res.Allowed {
				if m != nil {
					m.RecordRateLimited(operation)
				}
				retryAfter := int(res.RetryAfter.Seconds())
				if retryAfter < 1 {
					retryAfter = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"error":"rate limit exceeded"}`))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func actorFrom(r *http.Request) string {
	if userID := r.Header.Get("X-User-Id"); userID != "" {
		return userID
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
