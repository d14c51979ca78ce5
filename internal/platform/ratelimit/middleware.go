package ratelimit

import (
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"sante/pkg/platform/httputil"
	"sante/pkg/requestcontext"

	dErrors "sante/pkg/domain-errors"
)

// Middleware admits at most limit requests per client address per window.
// Store failures let the request through.
func Middleware(store Store, limit int, window time.Duration, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limit <= 0 {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()
			res, err := store.Allow(ctx, clientIP(r), limit, window)
			if err != nil {
				logger.ErrorContext(ctx, "rate limit check failed", "error", err)
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))
			if !res.Allowed {
				w.Header().Set("Retry-After", strconv.Itoa(res.RetryAfter(requestcontext.Now(ctx))))
				httputil.WriteError(w, dErrors.New(dErrors.CodeRateLimited, "too many requests, try again later"))
				return
			}
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
