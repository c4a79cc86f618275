package queue

import "errors"

var (
	// ErrQueueNotRunning is returned when enqueuing on a stopped queue
	ErrQueueNotRunning = errors.New("task queue is not running")

	// ErrQueueFull is returned when the in-memory buffer is full
	ErrQueueFull = errors.New("task queue is full")

	// ErrNoHandler is returned when a task type has no registered handler
	ErrNoHandler = errors.New("no handler registered for task type")
)
