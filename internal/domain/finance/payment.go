package finance

import (
	"time"

	"github.com/google/uuid"
	"github.com/schoolpay/backend/internal/domain/shared"
	"github.com/schoolpay/backend/internal/domain/shared/valueobject"
)

// PaymentStatus is the outcome reported by the payment gateway
type PaymentStatus string

const (
	PaymentStatusDefault        PaymentStatus = "DEFAULT"
	PaymentStatusUnderpaid      PaymentStatus = "UNDERPAID"
	PaymentStatusUnpaid         PaymentStatus = "UNPAID"
	PaymentStatusFailed         PaymentStatus = "FAILED"
	PaymentStatusRequiresAction PaymentStatus = "REQUIRES_ACTION"
	PaymentStatusPaid           PaymentStatus = "PAID"
	PaymentStatusSucceeded      PaymentStatus = "SUCCEEDED"
	PaymentStatusOverpaid       PaymentStatus = "OVERPAID"
)

// IsValid checks if the status is a known PaymentStatus
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusDefault, PaymentStatusUnderpaid, PaymentStatusUnpaid, PaymentStatusFailed,
		PaymentStatusRequiresAction, PaymentStatusPaid, PaymentStatusSucceeded, PaymentStatusOverpaid:
		return true
	}
	return false
}

// String returns the string representation of PaymentStatus
func (s PaymentStatus) String() string {
	return string(s)
}

// IsTerminalPaid reports whether the payment settles its concept in full,
// whatever the received amount says
func (s PaymentStatus) IsTerminalPaid() bool {
	return s == PaymentStatusSucceeded || s == PaymentStatusOverpaid
}

// Payment is a gateway-reported payment against a concept. Rows are
// written by the gateway integration and read here.
type Payment struct {
	shared.BaseEntity
	UserID           uuid.UUID
	PaymentConceptID uuid.UUID
	Amount           valueobject.Money
	AmountReceived   *valueobject.Money // nil until the gateway confirms funds
	Status           PaymentStatus
}

// NewPayment creates a pending payment for the concept amount
func NewPayment(userID, conceptID uuid.UUID, amount valueobject.Money, now time.Time) (*Payment, error) {
	if userID == uuid.Nil {
		return nil, ErrValidation.WithMessage("User ID cannot be empty")
	}
	if conceptID == uuid.Nil {
		return nil, ErrValidation.WithMessage("Payment concept ID cannot be empty")
	}
	if amount.IsNegative() {
		return nil, ErrValidation.WithMessage("Payment amount cannot be negative")
	}
	return &Payment{
		BaseEntity:       shared.NewBaseEntity(now),
		UserID:           userID,
		PaymentConceptID: conceptID,
		Amount:           amount,
		Status:           PaymentStatusDefault,
	}, nil
}

// Record stores the gateway outcome on the payment
func (p *Payment) Record(received valueobject.Money, status PaymentStatus, now time.Time) error {
	if !status.IsValid() {
		return ErrValidation.WithMessage("Unknown payment status: " + status.String())
	}
	if received.IsNegative() {
		return ErrValidation.WithMessage("Received amount cannot be negative")
	}
	p.AmountReceived = &received
	p.Status = status
	p.Touch(now)
	return nil
}

// Received returns the confirmed amount and whether one exists
func (p *Payment) Received() (valueobject.Money, bool) {
	if p.AmountReceived == nil {
		return valueobject.Zero(), false
	}
	return *p.AmountReceived, true
}
