package shared

import (
	"time"

	"github.com/google/uuid"
)

// BaseEntity carries the identity and timestamps shared by every entity.
// Timestamps are UTC.
type BaseEntity struct {
	ID        uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewBaseEntity creates an entity with a fresh ID created at now
func NewBaseEntity(now time.Time) BaseEntity {
	now = now.UTC()
	return BaseEntity{ID: uuid.New(), CreatedAt: now, UpdatedAt: now}
}

// Touch records a modification at now
func (e *BaseEntity) Touch(now time.Time) {
	e.UpdatedAt = now.UTC()
}

// BaseAggregateRoot is an entity that records domain events while it is
// modified. The application layer pulls them after a successful save.
type BaseAggregateRoot struct {
	BaseEntity
	// Version is the stored revision the aggregate was loaded at, zero
	// until it is first saved. Repositories use it for optimistic locking.
	Version int
	pending []DomainEvent
}

// GetVersion returns the aggregate version for optimistic locking
func (a *BaseAggregateRoot) GetVersion() int {
	return a.Version
}

// IsNew reports whether the aggregate has never been saved
func (a *BaseAggregateRoot) IsNew() bool {
	return a.Version == 0
}

// AddDomainEvent queues an event for publishing
func (a *BaseAggregateRoot) AddDomainEvent(event DomainEvent) {
	a.pending = append(a.pending, event)
}

// GetDomainEvents returns the queued events without clearing them
func (a *BaseAggregateRoot) GetDomainEvents() []DomainEvent {
	return a.pending
}

// ClearDomainEvents drops the queued events
func (a *BaseAggregateRoot) ClearDomainEvents() {
	a.pending = nil
}

// PullDomainEvents returns the queued events and clears the queue
func (a *BaseAggregateRoot) PullDomainEvents() []DomainEvent {
	events := a.pending
	a.pending = nil
	return events
}
