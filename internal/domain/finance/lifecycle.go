package finance

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// ConceptStatus is the lifecycle state of a payment concept
type ConceptStatus string

const (
	// ConceptStatusActive concepts are collected from their audience
	ConceptStatusActive ConceptStatus = "ACTIVO"
	// ConceptStatusDisabled concepts are paused and owe nothing
	ConceptStatusDisabled ConceptStatus = "DESACTIVADO"
	// ConceptStatusFinalized concepts are closed; remaining balances are overdue
	ConceptStatusFinalized ConceptStatus = "FINALIZADO"
	// ConceptStatusDeleted concepts are soft-deleted and wait for the purge sweep
	ConceptStatusDeleted ConceptStatus = "ELIMINADO"
)

// DefaultPurgeRetention is how long a soft-deleted concept is kept
const DefaultPurgeRetention = 30 * 24 * time.Hour

// conceptTransitions lists the legal next states for every status.
// Hard delete is not a status and is handled by the purge sweep.
var conceptTransitions = map[ConceptStatus][]ConceptStatus{
	ConceptStatusActive:    {ConceptStatusDisabled, ConceptStatusFinalized, ConceptStatusDeleted},
	ConceptStatusDisabled:  {ConceptStatusActive, ConceptStatusDeleted},
	ConceptStatusFinalized: {ConceptStatusDeleted},
	ConceptStatusDeleted:   {},
}

// TransitionTable returns a copy of the full transition table
func TransitionTable() map[ConceptStatus][]ConceptStatus {
	out := make(map[ConceptStatus][]ConceptStatus, len(conceptTransitions))
	for from, to := range conceptTransitions {
		out[from] = slices.Clone(to)
	}
	return out
}

// IsValid checks if the status is a known ConceptStatus
func (s ConceptStatus) IsValid() bool {
	_, ok := conceptTransitions[s]
	return ok
}

// String returns the string representation of ConceptStatus
func (s ConceptStatus) String() string {
	return string(s)
}

// AllowedTransitions returns the statuses reachable from s
func (s ConceptStatus) AllowedTransitions() []ConceptStatus {
	return slices.Clone(conceptTransitions[s])
}

// CanTransitionTo reports whether s -> target is legal
func (s ConceptStatus) CanTransitionTo(target ConceptStatus) bool {
	return slices.Contains(conceptTransitions[s], target)
}

// IsUpdatable reports whether fields and targeting may still be edited
func (s ConceptStatus) IsUpdatable() bool {
	return s == ConceptStatusActive || s == ConceptStatusDisabled
}

// OwesBalance reports whether users in the audience carry a balance for a
// concept in this status. Active concepts are pending and finalized ones
// overdue; the other statuses contribute nothing to any summary.
func (s ConceptStatus) OwesBalance() bool {
	return s == ConceptStatusActive || s == ConceptStatusFinalized
}

// StatusTransition records one status change for auditing
type StatusTransition struct {
	ID        uuid.UUID     `json:"id"`
	OldStatus ConceptStatus `json:"old_status"`
	NewStatus ConceptStatus `json:"new_status"`
}

// Activate moves a disabled concept back to ACTIVO. An expired concept
// cannot be reactivated; it has to be finalized instead.
func (c *PaymentConcept) Activate(now time.Time) error {
	if c.Status == ConceptStatusActive {
		return ErrConceptAlreadyActive
	}
	if err := c.guardTransition(ConceptStatusActive); err != nil {
		return err
	}
	if c.IsExpired(now) {
		return ErrInvalidTransition.WithMessage("Payment concept has already ended and cannot be activated")
	}
	return c.transition(ConceptStatusActive, now)
}

// Disable pauses an active concept
func (c *PaymentConcept) Disable(now time.Time) error {
	if c.Status == ConceptStatusDisabled {
		return ErrConceptAlreadyDisabled
	}
	if err := c.guardTransition(ConceptStatusDisabled); err != nil {
		return err
	}
	return c.transition(ConceptStatusDisabled, now)
}

// Finalize closes an active concept. EndDate is set to now when missing.
func (c *PaymentConcept) Finalize(now time.Time) error {
	if c.Status == ConceptStatusFinalized {
		return ErrConceptAlreadyFinalized
	}
	if err := c.guardTransition(ConceptStatusFinalized); err != nil {
		return err
	}
	if c.EndDate == nil {
		end := now
		c.EndDate = &end
	}
	return c.transition(ConceptStatusFinalized, now)
}

// SoftDelete moves the concept to ELIMINADO and stamps DeletedAt
func (c *PaymentConcept) SoftDelete(now time.Time) error {
	if err := c.guardTransition(ConceptStatusDeleted); err != nil {
		return err
	}
	deletedAt := now
	c.DeletedAt = &deletedAt
	return c.transition(ConceptStatusDeleted, now)
}

// IsExpired reports whether the end date has passed
func (c *PaymentConcept) IsExpired(now time.Time) bool {
	return c.EndDate != nil && c.EndDate.Before(now)
}

// ShouldAutoFinalize reports whether the finalize sweep must close this concept
func (c *PaymentConcept) ShouldAutoFinalize(now time.Time) bool {
	return c.Status == ConceptStatusActive && c.IsExpired(now)
}

// IsPurgeable reports whether a soft-deleted concept has outlived the retention window
func (c *PaymentConcept) IsPurgeable(now time.Time, retention time.Duration) bool {
	return c.Status == ConceptStatusDeleted && c.DeletedAt != nil && !c.DeletedAt.After(now.Add(-retention))
}

func (c *PaymentConcept) guardTransition(target ConceptStatus) error {
	if c.Status.CanTransitionTo(target) {
		return nil
	}
	if !c.Status.IsUpdatable() {
		return ErrConceptCannotBeUpdated
	}
	return ErrInvalidTransition.WithMessage(
		"Cannot move payment concept from " + c.Status.String() + " to " + target.String())
}

func (c *PaymentConcept) transition(target ConceptStatus, now time.Time) error {
	old := c.Status
	c.Status = target
	c.Touch(now)
	c.AddDomainEvent(NewConceptStatusChangedEvent(c, old, now))
	return nil
}
