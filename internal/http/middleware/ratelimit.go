package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/httprate"

	"github.com/clockset/accountd/internal/httputil"
)

// RateLimit creates an IP-based rate limiter middleware with logging.
func RateLimit(requests int, window time.Duration, logger *slog.Logger) func(http.Handler) http.Handler {
	return httprate.Limit(
		requests,
		window,
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			if logger != nil {
				logger.Warn("rate limit exceeded",
					"ip", r.RemoteAddr,
					"path", r.URL.Path,
					"method", r.Method,
				)
			}
			httputil.Error(w, http.StatusTooManyRequests, "rate_limited")
		}),
	)
}
