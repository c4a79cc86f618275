package finance

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/schoolpay/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvalidationHandler(t *testing.T) {
	ctx := context.Background()
	cache := newMapCache()
	handler := NewInvalidationHandler(cache)
	assert.Equal(t, TaskTypeInvalidateSummaries, handler.TaskType())

	userID := uuid.New()
	require.NoError(t, cache.Set(ctx, userID, "pending:all", []byte(`{}`)))
	require.NoError(t, cache.Set(ctx, userID, "overdue:2026", []byte(`{}`)))

	task, err := shared.NewTask(TaskTypeInvalidateSummaries, InvalidateUsersPayload{
		ConceptID: uuid.New(),
		UserIDs:   []uuid.UUID{userID},
	}, testNow)
	require.NoError(t, err)

	require.NoError(t, handler.Handle(ctx, task))
	assert.Empty(t, cache.entries)

	// redelivery is harmless
	require.NoError(t, handler.Handle(ctx, task))
	assert.Equal(t, []uuid.UUID{userID, userID}, cache.invalidated)
}

func TestInvalidationHandler_MalformedPayload(t *testing.T) {
	handler := NewInvalidationHandler(newMapCache())

	err := handler.Handle(context.Background(), shared.Task{
		ID:      uuid.New(),
		Type:    TaskTypeInvalidateSummaries,
		Payload: []byte(`{"user_ids":`),
	})

	assert.Error(t, err)
}
