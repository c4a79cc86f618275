package queue

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/schoolpay/backend/internal/domain/shared"
	"github.com/schoolpay/backend/internal/infrastructure/cache"
	"github.com/schoolpay/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// Config holds worker settings shared by every backend
type Config struct {
	Workers      int
	BufferSize   int
	MaxAttempts  int
	TaskTimeout  time.Duration
	ProcessedTTL time.Duration
	PollTimeout  time.Duration
	ListKey      string
}

// DefaultConfig returns default queue configuration
func DefaultConfig() Config {
	return Config{
		Workers:      4,
		BufferSize:   256,
		MaxAttempts:  3,
		TaskTimeout:  30 * time.Second,
		ProcessedTTL: time.Hour,
		PollTimeout:  5 * time.Second,
		ListKey:      "schoolpay:tasks",
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Workers < 1 {
		c.Workers = d.Workers
	}
	if c.BufferSize < 1 {
		c.BufferSize = d.BufferSize
	}
	if c.MaxAttempts < 1 {
		c.MaxAttempts = d.MaxAttempts
	}
	if c.TaskTimeout <= 0 {
		c.TaskTimeout = d.TaskTimeout
	}
	if c.ProcessedTTL <= 0 {
		c.ProcessedTTL = d.ProcessedTTL
	}
	if c.PollTimeout <= 0 {
		c.PollTimeout = d.PollTimeout
	}
	if c.ListKey == "" {
		c.ListKey = d.ListKey
	}
	return c
}

// outcome tells the backend what to do with a task after dispatch
type outcome int

const (
	outcomeDone outcome = iota
	outcomeRetry
	outcomeDrop
)

// dispatcher routes tasks to handlers by type, skips redelivered attempts
// and decides whether a failed task is retried
type dispatcher struct {
	config    Config
	logger    *zap.Logger
	processed cache.IdempotencyStore

	mu       sync.RWMutex
	handlers map[string]shared.TaskHandler
}

func newDispatcher(cfg Config, processed cache.IdempotencyStore, logger *zap.Logger) *dispatcher {
	if processed == nil {
		processed = cache.NewInMemoryIdempotencyStore()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &dispatcher{
		config:    cfg,
		logger:    logger,
		processed: processed,
		handlers:  make(map[string]shared.TaskHandler),
	}
}

// Register adds a handler for its task type, replacing any previous one
func (d *dispatcher) Register(h shared.TaskHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[h.TaskType()] = h
}

func (d *dispatcher) handler(taskType string) (shared.TaskHandler, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	h, ok := d.handlers[taskType]
	return h, ok
}

func (d *dispatcher) dispatch(ctx context.Context, task shared.Task, workerID int) outcome {
	log := d.logger.With(
		zap.Int("worker_id", workerID),
		zap.String("task_id", task.ID.String()),
		zap.String("task_type", task.Type),
		zap.Int("attempt", task.Attempt),
	)

	h, ok := d.handler(task.Type)
	if !ok {
		log.Error("Dropping task", zap.Error(ErrNoHandler))
		return outcomeDrop
	}

	key := task.ID.String() + ":" + strconv.Itoa(task.Attempt)
	fresh, err := d.processed.MarkProcessed(ctx, key, d.config.ProcessedTTL)
	if err != nil {
		log.Warn("Idempotency check failed, processing anyway", zap.Error(err))
	} else if !fresh {
		log.Debug("Skipping redelivered task")
		return outcomeDone
	}

	taskCtx, cancel := context.WithTimeout(ctx, d.config.TaskTimeout)
	defer cancel()
	taskCtx, span := telemetry.StartSpan(taskCtx, "queue.handle",
		telemetry.WithAttribute(telemetry.SpanAttrTaskType, task.Type))
	defer span.End()

	if err := safeHandle(taskCtx, h, task); err != nil {
		telemetry.RecordError(span, err)
		if task.Attempt+1 < d.config.MaxAttempts {
			log.Warn("Task failed, scheduling retry", zap.Error(err))
			return outcomeRetry
		}
		log.Error("Task failed permanently", zap.Error(err))
		return outcomeDrop
	}

	log.Debug("Task completed")
	return outcomeDone
}

func safeHandle(ctx context.Context, h shared.TaskHandler, task shared.Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task handler panic: %v", r)
		}
	}()
	return h.Handle(ctx, task)
}
