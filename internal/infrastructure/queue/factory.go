package queue

import (
	"context"

	"github.com/schoolpay/backend/internal/domain/shared"
	"github.com/schoolpay/backend/internal/infrastructure/cache"
	"github.com/schoolpay/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// Runner is a task queue with a worker lifecycle
type Runner interface {
	shared.TaskQueue
	Register(h shared.TaskHandler)
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// ConfigFrom maps application configuration onto queue settings
func ConfigFrom(cfg config.QueueConfig) Config {
	return Config{
		Workers:     cfg.Workers,
		BufferSize:  cfg.BufferSize,
		PollTimeout: cfg.PollTimeout,
		ListKey:     cfg.ListKey,
	}.withDefaults()
}

// New builds the queue selected by cfg.Backend. The Redis backend shares the
// factory's client for both the list and the processed-task markers.
func New(ctx context.Context, cfg config.QueueConfig, factory *cache.Factory, logger *zap.Logger) (Runner, error) {
	processed, err := factory.IdempotencyStore(ctx, cfg.Backend)
	if err != nil {
		return nil, err
	}

	if cfg.Backend != config.BackendRedis {
		return NewMemoryQueue(ConfigFrom(cfg), processed, logger), nil
	}

	client, err := factory.RedisClient(ctx)
	if err != nil {
		return nil, err
	}
	return NewRedisQueue(client, ConfigFrom(cfg), processed, logger), nil
}
