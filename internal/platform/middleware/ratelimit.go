package middleware

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/ulule/limiter/v3"

	"person-registry/internal/platform/metrics"
	dErrors "person-registry/pkg/domain-errors"
	"person-registry/pkg/platform/httputil"
	"person-registry/pkg/requestcontext"
)

// RateLimit limits requests per client IP. Limiter store failures let the
// request through.
func RateLimit(l *limiter.Limiter, m *metrics.Metrics, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			key := requestcontext.ClientIP(ctx)
			if key == "" {
				key = r.RemoteAddr
			}

			lctx, err := l.Get(ctx, key)
			if err != nil {
				logger.WarnContext(ctx, "rate limiter unavailable",
					"request_id", GetRequestID(ctx),
					"error", err.Error(),
				)
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(lctx.Limit, 10))
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(lctx.Remaining, 10))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(lctx.Reset, 10))

			if lctx.Reached {
				if m != nil {
					m.IncrementRateLimited()
				}
				logger.InfoContext(ctx, "rate limit reached",
					"request_id", GetRequestID(ctx),
					"client_ip", key,
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeRateLimited, "too many requests"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
