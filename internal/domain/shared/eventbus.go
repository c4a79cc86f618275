package shared

import "context"

// EventHandler reacts to published domain events
type EventHandler interface {
	Handle(ctx context.Context, event DomainEvent) error
	// EventTypes lists the types the handler wants; empty means all
	EventTypes() []string
}

// EventPublisher delivers domain events to their handlers
type EventPublisher interface {
	Publish(ctx context.Context, events ...DomainEvent) error
}

// EventSubscriber registers handlers. Without explicit event types the
// handler's own EventTypes are used.
type EventSubscriber interface {
	Subscribe(handler EventHandler, eventTypes ...string)
}
