package event

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/schoolpay/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type testEvent struct {
	shared.BaseDomainEvent
	Data string `json:"data"`
}

func newTestEvent(eventType string) *testEvent {
	return &testEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, "TestAggregate", uuid.New(), time.Now()),
		Data:            "test data",
	}
}

type testHandler struct {
	eventTypes []string
	handled    []shared.DomainEvent
	err        error
	mu         sync.Mutex
}

func newTestHandler(eventTypes ...string) *testHandler {
	return &testHandler{eventTypes: eventTypes}
}

func (h *testHandler) Handle(_ context.Context, event shared.DomainEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handled = append(h.handled, event)
	return h.err
}

func (h *testHandler) EventTypes() []string {
	return h.eventTypes
}

func (h *testHandler) getHandled() []shared.DomainEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]shared.DomainEvent(nil), h.handled...)
}

type panicHandler struct{}

func (panicHandler) Handle(context.Context, shared.DomainEvent) error { panic("boom") }
func (panicHandler) EventTypes() []string                             { return nil }

func TestInMemoryEventBus_Publish(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	handler := newTestHandler("TestEvent")
	bus.Subscribe(handler)

	event := newTestEvent("TestEvent")
	require.NoError(t, bus.Publish(context.Background(), event))

	require.Len(t, handler.getHandled(), 1)
	assert.Equal(t, event, handler.getHandled()[0])
}

func TestInMemoryEventBus_RoutesByType(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	created := newTestHandler()
	all := newTestHandler()
	bus.Subscribe(created, "Created")
	bus.Subscribe(all)

	require.NoError(t, bus.Publish(context.Background(),
		newTestEvent("Created"), newTestEvent("Changed"), newTestEvent("Created")))

	assert.Len(t, created.getHandled(), 2)
	assert.Len(t, all.getHandled(), 3)
}

func TestInMemoryEventBus_HandlerFailuresAreIsolated(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	bus := NewInMemoryEventBus(zap.New(core))

	failing := newTestHandler("E")
	failing.err = errors.New("handler error")
	healthy := newTestHandler("E")
	bus.Subscribe(failing)
	bus.Subscribe(panicHandler{}, "E")
	bus.Subscribe(healthy)

	require.NoError(t, bus.Publish(context.Background(), newTestEvent("E")))

	assert.Len(t, healthy.getHandled(), 1)
	assert.Equal(t, 2, logs.FilterMessage("handler failed to process event").Len())
}

func TestInMemoryEventBus_Unsubscribe(t *testing.T) {
	bus := NewInMemoryEventBus(nil)
	handler := newTestHandler("E")
	bus.Subscribe(handler)
	bus.Unsubscribe(handler)

	require.NoError(t, bus.Publish(context.Background(), newTestEvent("E")))
	assert.Empty(t, handler.getHandled())
}

func TestInMemoryEventBus_ConcurrentPublish(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	handler := newTestHandler("E")
	bus.Subscribe(handler)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = bus.Publish(context.Background(), newTestEvent("E"))
		}()
	}
	wg.Wait()

	assert.Len(t, handler.getHandled(), 20)
}
