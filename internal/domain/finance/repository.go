package finance

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ConceptFilter selects candidate concepts for summaries
type ConceptFilter struct {
	Status      ConceptStatus
	ActiveAt    *time.Time // start_date <= ActiveAt and end_date null or >= ActiveAt
	StartedBy   *time.Time // start_date <= StartedBy
	CreatedYear int        // 0 means any year
}

// PaymentConceptRepository defines the interface for payment concept persistence.
// Implementations load and store the target and exception sets with the row.
type PaymentConceptRepository interface {
	// FindByID finds a concept by ID, returning ErrConceptNotFound when absent
	FindByID(ctx context.Context, id uuid.UUID) (*PaymentConcept, error)

	// FindByFilter returns concepts matching the filter, oldest first
	FindByFilter(ctx context.Context, filter ConceptFilter) ([]*PaymentConcept, error)

	// FindExpiredActive returns ACTIVO concepts whose end date is before now
	FindExpiredActive(ctx context.Context, now time.Time) ([]*PaymentConcept, error)

	// FindDeletedBefore returns ELIMINADO concepts soft-deleted at or before cutoff
	FindDeletedBefore(ctx context.Context, cutoff time.Time) ([]*PaymentConcept, error)

	// Save creates or updates the concept and its sets in one transaction
	Save(ctx context.Context, concept *PaymentConcept) error

	// HardDelete physically removes a concept and its sets
	HardDelete(ctx context.Context, id uuid.UUID) error
}

// PaymentFilter narrows payment queries for one user
type PaymentFilter struct {
	UserID       uuid.UUID
	ConceptIDs   []uuid.UUID // empty means any concept
	OnlyReceived bool        // amount_received is not null
	CreatedYear  int         // 0 means any year
	Page         int
	PerPage      int
}

// PaymentRepository defines the interface for payment persistence
type PaymentRepository interface {
	// FindByFilter returns matching payments, newest first
	FindByFilter(ctx context.Context, filter PaymentFilter) ([]*Payment, error)

	// FindPage returns one page of matching payments, newest first, and the total count
	FindPage(ctx context.Context, filter PaymentFilter) ([]*Payment, int64, error)

	// Save creates or updates a payment
	Save(ctx context.Context, payment *Payment) error
}
