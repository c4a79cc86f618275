package shared

import (
	"time"

	"github.com/google/uuid"
)

// DomainEvent is something that happened to an aggregate
type DomainEvent interface {
	EventID() uuid.UUID
	EventType() string
	OccurredAt() time.Time
	AggregateID() uuid.UUID
	AggregateType() string
}

// BaseDomainEvent implements the DomainEvent metadata. Concrete events
// embed it and add their payload fields.
type BaseDomainEvent struct {
	ID            uuid.UUID `json:"event_id"`
	Type          string    `json:"event_type"`
	At            time.Time `json:"occurred_at"`
	Aggregate     uuid.UUID `json:"aggregate_id"`
	AggregateKind string    `json:"aggregate_type"`
}

// NewBaseDomainEvent stamps a new event for the aggregate aggID
func NewBaseDomainEvent(eventType, aggType string, aggID uuid.UUID, at time.Time) BaseDomainEvent {
	return BaseDomainEvent{
		ID:            uuid.New(),
		Type:          eventType,
		At:            at.UTC(),
		Aggregate:     aggID,
		AggregateKind: aggType,
	}
}

func (e *BaseDomainEvent) EventID() uuid.UUID { return e.ID }
func (e *BaseDomainEvent) EventType() string { return e.Type }
func (e *BaseDomainEvent) OccurredAt() time.Time { return e.At }
func (e *BaseDomainEvent) AggregateID() uuid.UUID { return e.Aggregate }
func (e *BaseDomainEvent) AggregateType() string { return e.AggregateKind }
