package shared

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Task is a unit of background work: a type name plus a JSON payload
type Task struct {
	ID         uuid.UUID       `json:"id"`
	Type       string          `json:"type"`
	Payload    json.RawMessage `json:"payload"`
	Attempt    int             `json:"attempt"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
}

// NewTask marshals payload into a fresh task
func NewTask(taskType string, payload any, now time.Time) (Task, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Task{}, fmt.Errorf("marshal %s payload: %w", taskType, err)
	}
	return Task{
		ID:         uuid.New(),
		Type:       taskType,
		Payload:    raw,
		EnqueuedAt: now,
	}, nil
}

// TaskQueue accepts tasks for asynchronous, at-least-once processing
type TaskQueue interface {
	Enqueue(ctx context.Context, task Task) error
}

// TaskHandler processes one task type. Handlers must be idempotent.
type TaskHandler interface {
	TaskType() string
	Handle(ctx context.Context, task Task) error
}
