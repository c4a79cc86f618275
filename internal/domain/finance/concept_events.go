package finance

import (
	"time"

	"github.com/schoolpay/backend/internal/domain/shared"
	"github.com/schoolpay/backend/internal/domain/shared/valueobject"
)

// Aggregate and event type names
const (
	AggregateTypePaymentConcept = "PaymentConcept"

	EventTypeConceptCreated          = "ConceptCreated"
	EventTypeConceptStatusChanged    = "ConceptStatusChanged"
	EventTypeConceptTargetingChanged = "ConceptTargetingChanged"
)

// ConceptCreatedEvent is raised when a new payment concept is created
type ConceptCreatedEvent struct {
	shared.BaseDomainEvent
	Name      string            `json:"name"`
	Amount    valueobject.Money `json:"amount"`
	Status    ConceptStatus     `json:"status"`
	AppliesTo AppliesTo         `json:"applies_to"`
}

// NewConceptCreatedEvent creates a new ConceptCreatedEvent
func NewConceptCreatedEvent(c *PaymentConcept) *ConceptCreatedEvent {
	return &ConceptCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeConceptCreated, AggregateTypePaymentConcept, c.ID, c.CreatedAt),
		Name:            c.Name,
		Amount:          c.Amount,
		Status:          c.Status,
		AppliesTo:       c.Targeting.AppliesTo,
	}
}

// ConceptStatusChangedEvent is raised on every lifecycle transition
type ConceptStatusChangedEvent struct {
	shared.BaseDomainEvent
	OldStatus ConceptStatus `json:"old_status"`
	NewStatus ConceptStatus `json:"new_status"`
}

// NewConceptStatusChangedEvent creates a new ConceptStatusChangedEvent
func NewConceptStatusChangedEvent(c *PaymentConcept, old ConceptStatus, at time.Time) *ConceptStatusChangedEvent {
	return &ConceptStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeConceptStatusChanged, AggregateTypePaymentConcept, c.ID, at),
		OldStatus:       old,
		NewStatus:       c.Status,
	}
}

// ConceptTargetingChangedEvent is raised when the mode, target sets or
// exceptions of a concept change
type ConceptTargetingChangedEvent struct {
	shared.BaseDomainEvent
	AppliesTo AppliesTo        `json:"applies_to"`
	Changes   []RelationChange `json:"changes"`
}

// NewConceptTargetingChangedEvent creates a new ConceptTargetingChangedEvent
func NewConceptTargetingChangedEvent(c *PaymentConcept, changes []RelationChange, at time.Time) *ConceptTargetingChangedEvent {
	return &ConceptTargetingChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeConceptTargetingChanged, AggregateTypePaymentConcept, c.ID, at),
		AppliesTo:       c.Targeting.AppliesTo,
		Changes:         changes,
	}
}
