package queue

import (
	"context"
	"fmt"
	"sync"

	"github.com/schoolpay/backend/internal/domain/shared"
	"github.com/schoolpay/backend/internal/infrastructure/cache"
	"go.uber.org/zap"
)

// MemoryQueue is a process-local task queue backed by a buffered channel
// and a fixed worker pool. Enqueue waits for buffer space, so producers are
// slowed down rather than losing tasks. Tasks still buffered at Stop are
// drained before the workers exit.
type MemoryQueue struct {
	*dispatcher

	tasks      chan shared.Task
	stopping   chan struct{}
	signalStop func()
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	mu         sync.RWMutex
	isRunning  bool
}

var _ shared.TaskQueue = (*MemoryQueue)(nil)

// NewMemoryQueue creates a new in-memory queue
func NewMemoryQueue(cfg Config, processed cache.IdempotencyStore, logger *zap.Logger) *MemoryQueue {
	cfg = cfg.withDefaults()
	return &MemoryQueue{
		dispatcher: newDispatcher(cfg, processed, logger),
		tasks:      make(chan shared.Task, cfg.BufferSize),
	}
}

// Start launches the worker pool
func (q *MemoryQueue) Start(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.isRunning {
		return nil
	}
	if q.tasks == nil {
		q.tasks = make(chan shared.Task, q.config.BufferSize)
	}
	stopping := make(chan struct{})
	q.stopping = stopping
	q.signalStop = sync.OnceFunc(func() { close(stopping) })
	q.isRunning = true

	ctx, cancel := context.WithCancel(ctx)
	q.cancel = cancel

	for i := 0; i < q.config.Workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx, q.tasks, i)
	}

	q.logger.Info("Task queue started",
		zap.String("backend", "memory"),
		zap.Int("workers", q.config.Workers),
		zap.Int("buffer_size", q.config.BufferSize),
	)
	return nil
}

// Stop stops accepting tasks and waits for buffered tasks to finish.
// Producers still waiting for buffer space get ErrQueueNotRunning.
func (q *MemoryQueue) Stop(ctx context.Context) error {
	q.mu.RLock()
	if !q.isRunning {
		q.mu.RUnlock()
		return nil
	}
	signal := q.signalStop
	q.mu.RUnlock()

	// Waiting producers hold the read lock until they see the signal.
	signal()

	q.mu.Lock()
	if !q.isRunning {
		q.mu.Unlock()
		return nil
	}
	q.isRunning = false
	close(q.tasks)
	q.tasks = nil
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		q.cancel()
		q.logger.Info("Task queue stopped gracefully")
		return nil
	case <-ctx.Done():
		q.cancel()
		q.logger.Warn("Task queue stop timed out")
		return ctx.Err()
	}
}

// Enqueue buffers a task, waiting for space while the buffer is full.
// It gives up with ErrQueueFull when ctx ends first and with
// ErrQueueNotRunning when the queue stops.
func (q *MemoryQueue) Enqueue(ctx context.Context, task shared.Task) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if !q.isRunning {
		return ErrQueueNotRunning
	}

	select {
	case q.tasks <- task:
	case <-q.stopping:
		return ErrQueueNotRunning
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrQueueFull, ctx.Err())
	}

	q.logger.Debug("Task enqueued",
		zap.String("task_id", task.ID.String()),
		zap.String("task_type", task.Type),
	)
	return nil
}

// Pending returns the number of buffered tasks
func (q *MemoryQueue) Pending() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.tasks)
}

// requeue puts a retry back in the buffer when there is room
func (q *MemoryQueue) requeue(task shared.Task) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if !q.isRunning {
		return false
	}
	select {
	case q.tasks <- task:
		return true
	default:
		return false
	}
}

func (q *MemoryQueue) worker(ctx context.Context, tasks <-chan shared.Task, workerID int) {
	defer q.wg.Done()

	for task := range tasks {
		for q.dispatch(ctx, task, workerID) == outcomeRetry {
			task.Attempt++
			if q.requeue(task) {
				break
			}
			// Buffer full or stopping: a worker must never wait on its own
			// buffer, so the retry runs here.
			q.logger.Debug("Retrying task inline",
				zap.String("task_id", task.ID.String()),
				zap.Int("attempt", task.Attempt),
			)
		}
	}
}
