// Package requesttime pins a single "now" per request so that every log line
// and event emitted while handling it carries the same timestamp.
package requesttime

import (
	"net/http"
	"time"

	"person-registry/pkg/requestcontext"
)

// Middleware captures the current time at the start of the request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now().UTC())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
