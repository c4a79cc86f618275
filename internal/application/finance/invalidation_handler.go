package finance

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/schoolpay/backend/internal/domain/finance"
	"github.com/schoolpay/backend/internal/domain/shared"
	"github.com/schoolpay/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// InvalidationHandler consumes summary invalidation tasks. Dropping a user's
// cache entries twice is harmless, so redelivery needs no extra guard.
type InvalidationHandler struct {
	cache finance.SummaryCache
}

var _ shared.TaskHandler = (*InvalidationHandler)(nil)

// NewInvalidationHandler creates a handler that clears entries from cache
func NewInvalidationHandler(cache finance.SummaryCache) *InvalidationHandler {
	return &InvalidationHandler{cache: cache}
}

// TaskType returns the task type handled
func (h *InvalidationHandler) TaskType() string {
	return TaskTypeInvalidateSummaries
}

// Handle decodes the payload and invalidates every listed user
func (h *InvalidationHandler) Handle(ctx context.Context, task shared.Task) error {
	var payload InvalidateUsersPayload
	if err := json.Unmarshal(task.Payload, &payload); err != nil {
		return fmt.Errorf("decode invalidation payload: %w", err)
	}
	if len(payload.UserIDs) == 0 {
		return nil
	}
	if err := h.cache.InvalidateUsers(ctx, payload.UserIDs); err != nil {
		return fmt.Errorf("invalidate %d users: %w", len(payload.UserIDs), err)
	}
	logger.FromContext(ctx).Debug("summary cache invalidated",
		zap.String("task_id", task.ID.String()),
		zap.String("concept_id", payload.ConceptID.String()),
		zap.Int("users", len(payload.UserIDs)),
	)
	return nil
}
