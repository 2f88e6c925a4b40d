package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	httpapi "person-registry/internal/http"
	"person-registry/internal/person/events"
	personhandler "person-registry/internal/person/handler"
	personmetrics "person-registry/internal/person/metrics"
	"person-registry/internal/person/service"
	"person-registry/internal/person/store"
	"person-registry/internal/platform/config"
	"person-registry/internal/platform/httpserver"
	"person-registry/internal/platform/metrics"
	"person-registry/internal/platform/postgres"
	"person-registry/internal/platform/redis"
	"person-registry/internal/status"
	statushandler "person-registry/internal/status/handler"
)

type personStore interface {
	service.PersonStore
	status.Pinger
}

type eventPublisher interface {
	service.EventPublisher
	Close()
}

func newServeCmd(envFiles *[]string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, closer, err := bootstrap(*envFiles)
			if err != nil {
				return err
			}
			defer closer.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, log)
		},
	}
}

func serve(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	httpMetrics := metrics.New(reg)
	personMetrics := personmetrics.New(reg)

	persons, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	redisClient, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	lim, err := newLimiter(cfg.RateLimit, redisClient)
	if err != nil {
		return err
	}

	publisher, err := newPublisher(ctx, cfg.Kafka, log, personMetrics)
	if err != nil {
		return err
	}
	defer publisher.Close()

	personService := service.New(persons,
		service.WithLogger(log),
		service.WithMetrics(personMetrics),
		service.WithEventPublisher(publisher),
	)

	statusOpts := []status.Option{status.WithLogger(log)}
	if redisClient != nil {
		statusOpts = append(statusOpts, status.WithRedis(status.PingFunc(redisClient.Health)))
	}
	statusService := status.New(persons, statusOpts...)

	routerOpts := httpapi.Options{
		Logger:         log,
		RequestTimeout: cfg.Server.RequestTimeout,
		AllowedOrigins: cfg.Server.CORSAllowedOrigins,
		Metrics:        httpMetrics,
		Limiter:        lim,
	}
	if cfg.Metrics.Enabled {
		routerOpts.Gatherer = reg
		routerOpts.MetricsPath = cfg.Metrics.Path
	}
	router := httpapi.NewRouter(routerOpts,
		personhandler.New(personService, log),
		statushandler.New(statusService),
	)

	srv := httpserver.New(cfg.Server.Addr(), router)
	errCh := make(chan error, 1)
	go func() {
		log.Info("starting person-registry",
			"addr", srv.Addr,
			"storage", cfg.Storage,
			"rate_limit", lim != nil,
			"kafka", len(cfg.Kafka.Brokers) > 0,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down", "timeout", cfg.Server.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

func openStore(ctx context.Context, cfg config.Config, log *slog.Logger) (personStore, func(), error) {
	if cfg.Storage == config.StorageMemory {
		log.Warn("using in-memory storage; data is lost on restart")
		return store.NewInMemory(), func() {}, nil
	}

	db, err := postgres.Open(ctx, cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Database.AutoMigrate {
		migrator, err := postgres.NewMigrator(db, log)
		if err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		if err := migrator.Up(ctx); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
	}
	return store.NewPostgres(db), func() { _ = db.Close() }, nil
}

// newLimiter returns nil when rate limiting is disabled. Counters live in
// Redis when it is configured, so that replicas share them.
func newLimiter(cfg config.RateLimit, redisClient *redis.Client) (*limiter.Limiter, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	rate, err := limiter.NewRateFromFormatted(cfg.Rate)
	if err != nil {
		return nil, fmt.Errorf("parse rate limit: %w", err)
	}
	if redisClient == nil {
		return limiter.New(memory.NewStore(), rate), nil
	}
	st, err := redisClient.LimiterStore()
	if err != nil {
		return nil, err
	}
	return limiter.New(st, rate), nil
}

func newPublisher(ctx context.Context, cfg config.Kafka, log *slog.Logger, m *personmetrics.Metrics) (eventPublisher, error) {
	if len(cfg.Brokers) == 0 {
		return events.NewLogPublisher(log), nil
	}
	return events.NewKafkaPublisher(ctx, events.KafkaConfig{
		Brokers:     cfg.Brokers,
		Topic:       cfg.Topic,
		CreateTopic: cfg.CreateTopic,
	}, log, m)
}
