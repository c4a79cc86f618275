package finance

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/schoolpay/backend/internal/domain/shared"
	"github.com/schoolpay/backend/internal/domain/shared/valueobject"
	"github.com/schoolpay/backend/internal/infrastructure/logger"
	"github.com/schoolpay/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// TaskTypeInvalidateSummaries is the queue task type for summary cache
// invalidation
const TaskTypeInvalidateSummaries = "summary_cache.invalidate_users"

// DefaultChunkSize is the number of users per invalidation task
const DefaultChunkSize = 500

// defaultEnqueueTimeout bounds how long one fan-out waits for queue space
const defaultEnqueueTimeout = 30 * time.Second

// InvalidateUsersPayload is the payload of one invalidation task
type InvalidateUsersPayload struct {
	ConceptID uuid.UUID   `json:"concept_id"`
	UserIDs   []uuid.UUID `json:"user_ids"`
}

// AudienceDiff describes how a mutation moved users in and out of a
// concept's audience
type AudienceDiff struct {
	Added   []uuid.UUID `json:"added"`
	Removed []uuid.UUID `json:"removed"`
	Kept    []uuid.UUID `json:"kept"`
}

// AddedCount returns the number of users who now owe the concept
func (d AudienceDiff) AddedCount() int { return len(d.Added) }

// RemovedCount returns the number of users who no longer owe the concept
func (d AudienceDiff) RemovedCount() int { return len(d.Removed) }

// KeptCount returns the number of users in both audiences
func (d AudienceDiff) KeptCount() int { return len(d.Kept) }

// NewAudienceDiff compares the audience before and after a mutation
func NewAudienceDiff(before, after valueobject.IDSet) AudienceDiff {
	diff := valueobject.Diff(before, after)
	return AudienceDiff{
		Added:   valueobject.SortedIDs(diff.Added),
		Removed: valueobject.SortedIDs(diff.Removed),
		Kept:    valueobject.SortedIDs(diff.Kept),
	}
}

// FanOut turns audience changes into chunked cache invalidation tasks
type FanOut struct {
	queue          shared.TaskQueue
	chunkSize      int
	enqueueTimeout time.Duration
	metrics        *telemetry.FinanceMetrics
	now            func() time.Time
}

// NewFanOut creates a fan-out over queue. A chunk size below one falls
// back to DefaultChunkSize.
func NewFanOut(queue shared.TaskQueue, chunkSize int, metrics *telemetry.FinanceMetrics) *FanOut {
	if chunkSize < 1 {
		chunkSize = DefaultChunkSize
	}
	return &FanOut{
		queue:          queue,
		chunkSize:      chunkSize,
		enqueueTimeout: defaultEnqueueTimeout,
		metrics:        metrics,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// Invalidate enqueues one task per chunk of before ∪ after and returns how
// many tasks were accepted. Enqueueing waits for queue space and is not
// cut short when the caller's request ends, since the mutation has already
// committed. A chunk that still cannot be enqueued is logged; summary TTLs
// bound the staleness of its users.
func (f *FanOut) Invalidate(ctx context.Context, conceptID uuid.UUID, before, after valueobject.IDSet) int {
	toInvalidate := before.Union(after)
	if toInvalidate.IsEmpty() {
		return 0
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), f.enqueueTimeout)
	defer cancel()

	ctx, span := telemetry.StartServiceSpan(ctx, "fanout", "invalidate",
		telemetry.WithAttribute(telemetry.SpanAttrConceptID, conceptID.String()),
		telemetry.WithAttribute(telemetry.SpanAttrAudienceSize, toInvalidate.Len()),
	)
	defer span.End()

	log := logger.FromContext(ctx)
	chunks := valueobject.Chunk(valueobject.SortedIDs(toInvalidate), f.chunkSize)
	enqueued := 0
	for i, chunk := range chunks {
		task, err := shared.NewTask(TaskTypeInvalidateSummaries, InvalidateUsersPayload{
			ConceptID: conceptID,
			UserIDs:   chunk,
		}, f.now())
		if err == nil {
			err = f.queue.Enqueue(ctx, task)
		}
		if err != nil {
			telemetry.RecordError(span, err)
			log.Error("failed to enqueue summary invalidation",
				zap.String("concept_id", conceptID.String()),
				zap.Int("chunk", i),
				zap.Int("users", len(chunk)),
				zap.Error(err),
			)
			continue
		}
		enqueued++
	}

	telemetry.SetAttributes(span, telemetry.SpanAttrChunkCount, enqueued)
	f.metrics.RecordFanOut(ctx, TaskTypeInvalidateSummaries, enqueued, toInvalidate.Len())
	return enqueued
}
