package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/schoolpay/backend/internal/domain/shared"
	"github.com/schoolpay/backend/internal/infrastructure/cache"
	"go.uber.org/zap"
)

// RedisQueue shares tasks between processes through a Redis list.
// Producers LPUSH JSON tasks and workers BRPOP them.
type RedisQueue struct {
	*dispatcher

	client redis.UniversalClient

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

var _ shared.TaskQueue = (*RedisQueue)(nil)

// NewRedisQueue creates a new Redis-backed queue
func NewRedisQueue(client redis.UniversalClient, cfg Config, processed cache.IdempotencyStore, logger *zap.Logger) *RedisQueue {
	cfg = cfg.withDefaults()
	return &RedisQueue{
		dispatcher: newDispatcher(cfg, processed, logger),
		client:     client,
	}
}

// Enqueue pushes a task onto the list. It works whether or not this
// process runs consumers.
func (q *RedisQueue) Enqueue(ctx context.Context, task shared.Task) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("encode task: %w", err)
	}
	if err := q.client.LPush(ctx, q.config.ListKey, payload).Err(); err != nil {
		return fmt.Errorf("push task: %w", err)
	}
	return nil
}

// Pending returns the list length
func (q *RedisQueue) Pending(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.config.ListKey).Result()
}

// Start launches the consumers
func (q *RedisQueue) Start(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.isRunning {
		return nil
	}
	q.isRunning = true

	ctx, cancel := context.WithCancel(ctx)
	q.cancel = cancel

	for i := 0; i < q.config.Workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx, i)
	}

	q.logger.Info("Task queue started",
		zap.String("backend", "redis"),
		zap.String("list_key", q.config.ListKey),
		zap.Int("workers", q.config.Workers),
	)
	return nil
}

// Stop cancels the consumers and waits for in-flight tasks. Tasks left in
// the list stay there for the next consumer.
func (q *RedisQueue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if !q.isRunning {
		q.mu.Unlock()
		return nil
	}
	q.isRunning = false
	q.cancel()
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		q.logger.Info("Task queue stopped gracefully")
		return nil
	case <-ctx.Done():
		q.logger.Warn("Task queue stop timed out")
		return ctx.Err()
	}
}

func (q *RedisQueue) worker(ctx context.Context, workerID int) {
	defer q.wg.Done()

	for {
		if ctx.Err() != nil {
			return
		}

		task, ok := q.pop(ctx, workerID)
		if !ok {
			continue
		}

		// In-flight tasks finish even when Stop cancels the consumer context.
		taskCtx := context.WithoutCancel(ctx)
		if q.dispatch(taskCtx, task, workerID) == outcomeRetry {
			task.Attempt++
			if err := q.Enqueue(taskCtx, task); err != nil {
				q.logger.Warn("Failed to re-queue task for retry",
					zap.String("task_id", task.ID.String()),
					zap.Error(err),
				)
			}
		}
	}
}

func (q *RedisQueue) pop(ctx context.Context, workerID int) (shared.Task, bool) {
	res, err := q.client.BRPop(ctx, q.config.PollTimeout, q.config.ListKey).Result()
	if err != nil {
		switch {
		case errors.Is(err, redis.Nil), ctx.Err() != nil:
		default:
			q.logger.Warn("Failed to pop task",
				zap.Int("worker_id", workerID),
				zap.Error(err),
			)
			sleepCtx(ctx, time.Second)
		}
		return shared.Task{}, false
	}

	// BRPOP replies with [key, value]
	if len(res) != 2 {
		return shared.Task{}, false
	}

	var task shared.Task
	if err := json.Unmarshal([]byte(res[1]), &task); err != nil {
		q.logger.Error("Dropping malformed task",
			zap.Int("worker_id", workerID),
			zap.Error(err),
		)
		return shared.Task{}, false
	}
	return task, true
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
