package main

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"person-registry/internal/person/events"
	personmetrics "person-registry/internal/person/metrics"
	"person-registry/internal/person/store"
	"person-registry/internal/platform/config"
)

func TestNewLimiter(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		l, err := newLimiter(config.RateLimit{Enabled: false, Rate: "5-S"}, nil)
		require.NoError(t, err)
		assert.Nil(t, l)
	})

	t.Run("memory store without redis", func(t *testing.T) {
		l, err := newLimiter(config.RateLimit{Enabled: true, Rate: "5-S"}, nil)
		require.NoError(t, err)
		require.NotNil(t, l)
		assert.Equal(t, int64(5), l.Rate.Limit)
	})

	t.Run("invalid rate", func(t *testing.T) {
		_, err := newLimiter(config.RateLimit{Enabled: true, Rate: "lots"}, nil)
		assert.Error(t, err)
	})
}

func TestOpenStoreMemory(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s, closeStore, err := openStore(context.Background(), config.Config{Storage: config.StorageMemory}, logger)
	require.NoError(t, err)
	defer closeStore()

	assert.IsType(t, &store.InMemory{}, s)
	assert.NoError(t, s.Ping(context.Background()))
}

func TestNewPublisherWithoutBrokersLogs(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	p, err := newPublisher(context.Background(), config.Kafka{}, logger, personmetrics.New(prometheus.NewRegistry()))
	require.NoError(t, err)
	defer p.Close()
	assert.IsType(t, &events.LogPublisher{}, p)
}

func TestRootCommandWiring(t *testing.T) {
	root := newRootCmd()
	names := make([]string, 0)
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.Contains(t, names, "serve")
	assert.Contains(t, names, "migrate")

	migrate, _, err := root.Find([]string{"migrate", "status"})
	require.NoError(t, err)
	assert.Equal(t, "status", migrate.Name())
}
