package finance

import (
	"context"

	"github.com/google/uuid"
)

// SummaryCache stores serialized per-user summaries. Entries for one user
// live together so a single invalidation clears every summary kind and scope.
type SummaryCache interface {
	// Get returns the cached value for the user's field, reporting a miss with false
	Get(ctx context.Context, userID uuid.UUID, field string) ([]byte, bool, error)

	// Set stores a value under the user's field
	Set(ctx context.Context, userID uuid.UUID, field string, value []byte) error

	// InvalidateUsers drops every cached summary of the given users
	InvalidateUsers(ctx context.Context, userIDs []uuid.UUID) error
}
