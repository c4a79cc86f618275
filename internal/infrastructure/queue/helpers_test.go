package queue

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/schoolpay/backend/internal/domain/shared"
)

const testTaskType = "test.record"

// recordingHandler remembers every attempt it sees and fails the first
// failFirst attempts of each task.
type recordingHandler struct {
	mu        sync.Mutex
	seen      []shared.Task
	failFirst int
	block     chan struct{}
}

func (h *recordingHandler) TaskType() string { return testTaskType }

func (h *recordingHandler) Handle(_ context.Context, task shared.Task) error {
	if h.block != nil {
		<-h.block
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seen = append(h.seen, task)
	if task.Attempt < h.failFirst {
		return errors.New("transient")
	}
	return nil
}

func (h *recordingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.seen)
}

func (h *recordingHandler) attempts() []int {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]int, len(h.seen))
	for i, t := range h.seen {
		out[i] = t.Attempt
	}
	return out
}

type panicHandler struct{}

func (panicHandler) TaskType() string { return "test.panic" }

func (panicHandler) Handle(context.Context, shared.Task) error { panic("boom") }

func newTestTask(taskType string) shared.Task {
	task, err := shared.NewTask(taskType, map[string]int{"n": 1}, time.Now())
	if err != nil {
		panic(err)
	}
	return task
}

func testConfig() Config {
	return Config{
		Workers:     2,
		BufferSize:  16,
		MaxAttempts: 3,
		TaskTimeout: time.Second,
		PollTimeout: 50 * time.Millisecond,
	}
}
