package finance

import (
	"github.com/google/uuid"
	"github.com/schoolpay/backend/internal/domain/shared/valueobject"
)

// Exceptions only ever remove users from a concept's audience; they never
// add anyone the targeting mode would not already match.

// ReplaceExceptions swaps the exception set for ids and returns the diff
func (c *PaymentConcept) ReplaceExceptions(ids valueobject.IDSet) valueobject.SetDiff[uuid.UUID] {
	diff := valueobject.Diff(c.ExceptionUserIDs, ids)
	c.ExceptionUserIDs = ids
	return diff
}

// AddExceptions merges ids into the exception set
func (c *PaymentConcept) AddExceptions(ids ...uuid.UUID) valueobject.SetDiff[uuid.UUID] {
	return c.ReplaceExceptions(c.ExceptionUserIDs.Union(valueobject.NewIDSet(ids...)))
}

// RemoveAllExceptions clears the exception set. The resulting state equals
// ReplaceExceptions with an empty set.
func (c *PaymentConcept) RemoveAllExceptions() valueobject.SetDiff[uuid.UUID] {
	return c.ReplaceExceptions(valueobject.NewIDSet())
}

// IsException reports whether the user is excluded from the concept
func (c *PaymentConcept) IsException(userID uuid.UUID) bool {
	return c.ExceptionUserIDs.Contains(userID)
}
