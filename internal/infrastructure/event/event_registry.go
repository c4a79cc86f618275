package event

import (
	"github.com/schoolpay/backend/internal/domain/finance"
	"github.com/schoolpay/backend/internal/domain/shared"
)

// RegisterFinanceEvents registers the payment concept events
func RegisterFinanceEvents(serializer *EventSerializer) {
	serializer.Register(finance.EventTypeConceptCreated, func() shared.DomainEvent {
		return &finance.ConceptCreatedEvent{}
	})
	serializer.Register(finance.EventTypeConceptStatusChanged, func() shared.DomainEvent {
		return &finance.ConceptStatusChangedEvent{}
	})
	serializer.Register(finance.EventTypeConceptTargetingChanged, func() shared.DomainEvent {
		return &finance.ConceptTargetingChangedEvent{}
	})
}
