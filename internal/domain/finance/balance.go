package finance

import "github.com/schoolpay/backend/internal/domain/shared/valueobject"

// Remaining returns what is still owed on the concept given the payments
// recorded for one user. Payments for other concepts are ignored, a
// terminal-paid payment settles the concept, and the result is never
// negative.
func Remaining(c *PaymentConcept, payments []*Payment) valueobject.Money {
	received := valueobject.Zero()
	for _, p := range payments {
		if p.PaymentConceptID != c.ID {
			continue
		}
		if p.Status.IsTerminalPaid() {
			return valueobject.Zero()
		}
		if amount, ok := p.Received(); ok {
			received = received.Add(amount)
		}
	}
	return c.Amount.Subtract(received).ClampZero()
}

// Outstanding returns the remaining balance and whether it counts toward
// pending or overdue totals
func Outstanding(c *PaymentConcept, payments []*Payment) (valueobject.Money, bool) {
	remaining := Remaining(c, payments)
	return remaining, remaining.IsPositive()
}
