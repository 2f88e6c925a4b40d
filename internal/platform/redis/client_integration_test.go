//go:build integration

package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/ulule/limiter/v3"

	"person-registry/internal/platform/config"
	"person-registry/internal/platform/redis"
	"person-registry/pkg/testutil/containers"
)

type RedisClientSuite struct {
	suite.Suite
	container *containers.RedisContainer
	client    *redis.Client
}

func TestRedisClientSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisClientSuite))
}

func (s *RedisClientSuite) SetupSuite() {
	s.container = containers.GetManager().GetRedis(s.T())
	client, err := redis.New(context.Background(), config.RedisConfig{
		URL:          s.container.Addr,
		PoolSize:     5,
		MinIdleConns: 1,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	s.Require().NoError(err)
	s.client = client
}

func (s *RedisClientSuite) TearDownSuite() {
	if s.client != nil {
		_ = s.client.Close()
	}
}

func (s *RedisClientSuite) SetupTest() {
	s.Require().NoError(s.container.FlushAll(context.Background()))
}

func (s *RedisClientSuite) TestHealth() {
	s.NoError(s.client.Health(context.Background()))
}

func (s *RedisClientSuite) TestLimiterStoreCountsAcrossInstances() {
	ctx := context.Background()
	store, err := s.client.LimiterStore()
	s.Require().NoError(err)

	rate := limiter.Rate{Period: time.Minute, Limit: 2}
	a := limiter.New(store, rate)
	b := limiter.New(store, rate)

	first, err := a.Get(ctx, "10.0.0.1")
	s.Require().NoError(err)
	s.False(first.Reached)

	second, err := b.Get(ctx, "10.0.0.1")
	s.Require().NoError(err)
	s.False(second.Reached)
	s.Equal(int64(0), second.Remaining)

	third, err := a.Get(ctx, "10.0.0.1")
	s.Require().NoError(err)
	s.True(third.Reached)
}

func TestNew_EmptyURLDisablesRedis(t *testing.T) {
	client, err := redis.New(context.Background(), config.RedisConfig{})
	require.NoError(t, err)
	require.Nil(t, client)
}
