package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/schoolpay/backend/internal/domain/finance"
	"github.com/schoolpay/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// redisSetNXer is the slice of the Redis API the idempotency store needs
type redisSetNXer interface {
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd
}

// NewRedisClient connects to Redis and verifies the connection
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// Factory builds cache components for the configured backend. The Redis
// client is created on first use and shared.
type Factory struct {
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool

	once      sync.Once
	client    *redis.Client
	clientErr error
}

// FactoryOption is a functional option for configuring the factory
type FactoryOption func(*Factory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) FactoryOption {
	return func(f *Factory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether an unreachable Redis falls back to
// in-memory components. Default is false.
func WithInMemoryFallback(allow bool) FactoryOption {
	return func(f *Factory) {
		f.allowInMemoryFallback = allow
	}
}

// NewFactory creates a new factory
func NewFactory(cfg config.RedisConfig, opts ...FactoryOption) *Factory {
	f := &Factory{
		redisConfig: cfg,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// RedisClient returns the shared client, connecting on first call
func (f *Factory) RedisClient(ctx context.Context) (*redis.Client, error) {
	f.once.Do(func() {
		f.client, f.clientErr = NewRedisClient(ctx, f.redisConfig)
	})
	return f.client, f.clientErr
}

// SummaryCache returns the summary cache for cfg.Backend
func (f *Factory) SummaryCache(ctx context.Context, cfg config.CacheConfig) (finance.SummaryCache, error) {
	if cfg.Backend != config.BackendRedis {
		return NewInMemorySummaryCache(cfg.SummaryTTL), nil
	}

	client, err := f.RedisClient(ctx)
	if err == nil {
		f.logger.Info("using Redis summary cache", zap.String("addr", f.redisConfig.Addr()))
		return NewRedisSummaryCache(client, cfg.KeyPrefix, cfg.SummaryTTL), nil
	}
	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("Redis required for summary cache but unavailable: %w", err)
	}
	f.logger.Warn("Redis unavailable, falling back to in-memory summary cache. "+
		"Invalidations will not reach other instances.",
		zap.Error(err),
	)
	return NewInMemorySummaryCache(cfg.SummaryTTL), nil
}

// IdempotencyStore returns a processed-task store for the backend
func (f *Factory) IdempotencyStore(ctx context.Context, backend string) (IdempotencyStore, error) {
	if backend != config.BackendRedis {
		return NewInMemoryIdempotencyStore(), nil
	}
	client, err := f.RedisClient(ctx)
	if err != nil {
		return nil, err
	}
	return NewRedisIdempotencyStore(client, ""), nil
}

// Close releases the Redis client if one was created
func (f *Factory) Close() error {
	if f.client != nil {
		return f.client.Close()
	}
	return nil
}
