package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/ulule/limiter/v3"

	"person-registry/internal/platform/metrics"
	"person-registry/internal/platform/middleware"
	dErrors "person-registry/pkg/domain-errors"
	"person-registry/pkg/platform/httputil"
	"person-registry/pkg/platform/middleware/metadata"
	"person-registry/pkg/platform/middleware/requesttime"
)

// RouteRegistrar is implemented by module handlers.
type RouteRegistrar interface {
	Register(r chi.Router)
}

// Options configure the shared middleware chain and auxiliary endpoints.
type Options struct {
	Logger         *slog.Logger
	RequestTimeout time.Duration
	AllowedOrigins []string

	// Metrics and Gatherer are optional. MetricsPath is served only when
	// Gatherer is set.
	Metrics     *metrics.Metrics
	Gatherer    prometheus.Gatherer
	MetricsPath string

	// Limiter enables per-client rate limiting when set.
	Limiter *limiter.Limiter
}

// NewRouter builds the root router with the global middleware chain and
// mounts every module's routes.
func NewRouter(opts Options, modules ...RouteRegistrar) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(opts.Logger))
	r.Use(middleware.RequestID)
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)
	r.Use(middleware.Logger(opts.Logger))
	r.Use(middleware.CORS(opts.AllowedOrigins))
	if opts.Limiter != nil {
		r.Use(middleware.RateLimit(opts.Limiter, opts.Metrics, opts.Logger))
	}
	r.Use(middleware.LatencyMiddleware(opts.Metrics))
	if opts.RequestTimeout > 0 {
		r.Use(middleware.Timeout(opts.RequestTimeout))
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "route not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusMethodNotAllowed, httputil.ErrorResponse{
			Error:            "method_not_allowed",
			ErrorDescription: "method not allowed",
		})
	})

	if opts.Gatherer != nil && opts.MetricsPath != "" {
		r.Method(http.MethodGet, opts.MetricsPath, promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}

	for _, m := range modules {
		m.Register(r)
	}
	return r
}
