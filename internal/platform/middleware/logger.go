package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"time"
)

const maxLoggedBody = 512

// responseRecorder captures the status, size and, when asked, the head of the
// body written by downstream handlers.
type responseRecorder struct {
	http.ResponseWriter
	status      int
	bytes       int
	captureBody bool
	body        bytes.Buffer
}

func (r *responseRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	if r.captureBody && r.body.Len() < maxLoggedBody {
		remaining := maxLoggedBody - r.body.Len()
		if len(b) < remaining {
			remaining = len(b)
		}
		r.body.Write(b[:remaining])
	}
	n, err := r.ResponseWriter.Write(b)
	r.bytes += n
	return n, err
}

func (r *responseRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func (r *responseRecorder) statusCode() int {
	if r.status == 0 {
		return http.StatusOK
	}
	return r.status
}

// Logger logs one line per request. At debug level it also logs the request
// headers and the beginning of the response body.
func Logger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			debug := logger.Enabled(ctx, slog.LevelDebug)
			rec := &responseRecorder{ResponseWriter: w, captureBody: debug}
			start := time.Now()

			if debug {
				logger.DebugContext(ctx, "request received",
					"request_id", GetRequestID(ctx),
					"method", r.Method,
					"path", r.URL.Path,
					"query", r.URL.RawQuery,
					"headers", redactHeaders(r.Header),
				)
			}

			next.ServeHTTP(rec, r)

			status := rec.statusCode()
			attrs := []any{
				"request_id", GetRequestID(ctx),
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"bytes", rec.bytes,
				"duration_ms", time.Since(start).Milliseconds(),
			}
			logger.Log(ctx, levelFor(status), "request completed", attrs...)

			if debug {
				logger.DebugContext(ctx, "response body",
					"request_id", GetRequestID(ctx),
					"body", rec.body.String(),
				)
			}
		})
	}
}

func levelFor(status int) slog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return slog.LevelError
	case status >= http.StatusBadRequest:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

var redactedHeaders = map[string]bool{
	"Authorization": true,
	"Cookie":        true,
	"Set-Cookie":    true,
}

func redactHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k := range h {
		if redactedHeaders[k] {
			out[k] = "[redacted]"
			continue
		}
		out[k] = h.Get(k)
	}
	return out
}
