package event

import (
	"context"
	"fmt"

	"github.com/schoolpay/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// InMemoryEventBus dispatches domain events to subscribed handlers in the
// publishing goroutine. A failing or panicking handler is logged and does not
// stop delivery to the others.
type InMemoryEventBus struct {
	registry *HandlerRegistry
	logger   *zap.Logger
}

var (
	_ shared.EventPublisher  = (*InMemoryEventBus)(nil)
	_ shared.EventSubscriber = (*InMemoryEventBus)(nil)
)

// NewInMemoryEventBus creates a new in-memory event bus
func NewInMemoryEventBus(logger *zap.Logger) *InMemoryEventBus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InMemoryEventBus{
		registry: NewHandlerRegistry(),
		logger:   logger,
	}
}

// Publish delivers events in order to every matching handler
func (b *InMemoryEventBus) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	for _, event := range events {
		for _, handler := range b.registry.GetHandlers(event.EventType()) {
			if err := b.dispatchToHandler(ctx, handler, event); err != nil {
				b.logger.Error("handler failed to process event",
					zap.String("event_type", event.EventType()),
					zap.String("event_id", event.EventID().String()),
					zap.Error(err),
				)
			}
		}
	}
	return nil
}

// Subscribe registers a handler. Without explicit event types the handler's
// own EventTypes are used, and an empty list subscribes to everything.
func (b *InMemoryEventBus) Subscribe(handler shared.EventHandler, eventTypes ...string) {
	if len(eventTypes) == 0 {
		eventTypes = handler.EventTypes()
	}
	b.registry.Register(handler, eventTypes...)
	b.logger.Debug("handler subscribed", zap.Strings("event_types", eventTypes))
}

// Unsubscribe removes a handler
func (b *InMemoryEventBus) Unsubscribe(handler shared.EventHandler) {
	b.registry.Unregister(handler)
}

func (b *InMemoryEventBus) dispatchToHandler(ctx context.Context, handler shared.EventHandler, event shared.DomainEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()

	return handler.Handle(ctx, event)
}
