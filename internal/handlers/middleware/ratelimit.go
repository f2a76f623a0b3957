package middleware

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"

	"github.com/nkiryanov/postboard/internal/handlers/render"
	"github.com/nkiryanov/postboard/internal/ratelimit"
)

type limiter interface {
	Allow(ctx context.Context, key string) (ratelimit.Result, error)
}

type warnLogger interface {
	Warn(msg string, args ...any)
}

// RateLimit throttles requests per client IP
// Limiter failures let request pass: throttling is not worth the outage
func RateLimit(name string, lim limiter, l warnLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := name + ":" + clientIP(r)

			res, err := lim.Allow(r.Context(), key)
			if err != nil {
				l.Warn("Rate limiter failed, request allowed", "key", key, "error", err)
				next.ServeHTTP(w, r)
				return
			}

			if !res.Allowed {
				secs := int(math.Ceil(res.RetryAfter.Seconds()))
				w.Header().Set("Retry-After", strconv.Itoa(secs))
				render.ServiceError(w, "Too many requests", http.StatusTooManyRequests)
				return
			}

			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
