// Package status reports whether the service's backing stores are reachable.
package status

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"person-registry/pkg/requestcontext"
)

// Reachability values reported for each dependency.
const (
	Connected    = "connected"
	Disconnected = "disconnected"

	defaultCheckTimeout = 3 * time.Second
)

// Pinger is a dependency that can report its reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// Report is the outcome of one status check. Redis fields are empty when no
// Redis is configured.
type Report struct {
	Database   string `json:"database"`
	Error      string `json:"error,omitempty"`
	Redis      string `json:"redis,omitempty"`
	RedisError string `json:"redisError,omitempty"`
}

// Healthy reports whether the database is reachable. Redis is informational.
func (r Report) Healthy() bool {
	return r.Database == Connected
}

// Service checks the database and, optionally, Redis.
type Service struct {
	db      Pinger
	redis   Pinger
	timeout time.Duration
	logger  *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithRedis adds a Redis reachability check to the report.
func WithRedis(p Pinger) Option {
	return func(s *Service) {
		s.redis = p
	}
}

// WithLogger sets the logger used for failed checks.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithTimeout bounds each check. The default is 3s.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) {
		s.timeout = d
	}
}

// New constructs a Service that pings db.
func New(db Pinger, opts ...Option) *Service {
	s := &Service{
		db:      db,
		timeout: defaultCheckTimeout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetDBStatus pings the database, and Redis when configured, concurrently.
// Failures are reported in the result, never returned.
func (s *Service) GetDBStatus(ctx context.Context) Report {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var report Report
	var g errgroup.Group
	g.Go(func() error {
		report.Database, report.Error = s.check(ctx, "database", s.db)
		return nil
	})
	if s.redis != nil {
		g.Go(func() error {
			report.Redis, report.RedisError = s.check(ctx, "redis", s.redis)
			return nil
		})
	}
	_ = g.Wait()
	return report
}

func (s *Service) check(ctx context.Context, name string, p Pinger) (string, string) {
	if err := p.Ping(ctx); err != nil {
		s.logger.WarnContext(ctx, "dependency unreachable",
			"request_id", requestcontext.RequestID(ctx),
			"dependency", name,
			"error", err.Error(),
		)
		return Disconnected, err.Error()
	}
	return Connected, ""
}
