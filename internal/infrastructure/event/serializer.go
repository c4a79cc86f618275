package event

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/schoolpay/backend/internal/domain/shared"
)

// EventFactory returns an empty event ready to be decoded into
type EventFactory func() shared.DomainEvent

// EventSerializer encodes domain events as JSON and decodes them back
// through the factory registered for their type
type EventSerializer struct {
	mu        sync.RWMutex
	factories map[string]EventFactory
}

// NewEventSerializer creates an empty serializer
func NewEventSerializer() *EventSerializer {
	return &EventSerializer{factories: make(map[string]EventFactory)}
}

// Register binds eventType to factory, replacing any earlier binding
func (s *EventSerializer) Register(eventType string, factory EventFactory) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.factories[eventType] = factory
}

// IsRegistered reports whether eventType can be decoded
func (s *EventSerializer) IsRegistered(eventType string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.factories[eventType]
	return ok
}

// Serialize encodes an event
func (s *EventSerializer) Serialize(event shared.DomainEvent) ([]byte, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event %s: %w", event.EventType(), err)
	}
	return data, nil
}

// Deserialize decodes data into a fresh event of eventType. Payloads whose
// embedded type disagrees with eventType are rejected.
func (s *EventSerializer) Deserialize(eventType string, data []byte) (shared.DomainEvent, error) {
	s.mu.RLock()
	factory, ok := s.factories[eventType]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown event type: %s", eventType)
	}

	event := factory()
	if err := json.Unmarshal(data, event); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event: %w", err)
	}
	if got := event.EventType(); got != "" && got != eventType {
		return nil, fmt.Errorf("payload is a %s event, expected %s", got, eventType)
	}
	return event, nil
}
