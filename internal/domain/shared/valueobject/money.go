package valueobject

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// MoneyScale is the number of fraction digits every amount is held at
const MoneyScale int32 = 2

// Money is a value object representing a monetary amount in the school's
// single billing currency. It is immutable - all operations return new
// Money instances, and every instance is rounded to MoneyScale digits.
type Money struct {
	amount decimal.Decimal
}

// NewMoney creates Money from a decimal, rounded half-up to two places
func NewMoney(amount decimal.Decimal) Money {
	return Money{amount: amount.Round(MoneyScale)}
}

// NewMoneyFromInt creates Money from a whole amount
func NewMoneyFromInt(amount int64) Money {
	return NewMoney(decimal.NewFromInt(amount))
}

// NewMoneyFromString creates Money from a string representation
func NewMoneyFromString(amount string) (Money, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return Money{}, fmt.Errorf("invalid amount string: %w", err)
	}
	return NewMoney(d), nil
}

// MustMoney parses an amount and panics on malformed input.
// Intended for constants and tests.
func MustMoney(amount string) Money {
	m, err := NewMoneyFromString(amount)
	if err != nil {
		panic(err)
	}
	return m
}

// Zero returns a zero amount
func Zero() Money {
	return Money{amount: decimal.Zero}
}

// Amount returns the decimal amount
func (m Money) Amount() decimal.Decimal {
	return m.amount
}

// IsZero returns true if the amount is zero
func (m Money) IsZero() bool {
	return m.amount.IsZero()
}

// IsPositive returns true if the amount is positive
func (m Money) IsPositive() bool {
	return m.amount.IsPositive()
}

// IsNegative returns true if the amount is negative
func (m Money) IsNegative() bool {
	return m.amount.IsNegative()
}

// Add returns the sum of both amounts
func (m Money) Add(other Money) Money {
	return NewMoney(m.amount.Add(other.amount))
}

// Subtract returns the difference of both amounts
func (m Money) Subtract(other Money) Money {
	return NewMoney(m.amount.Sub(other.amount))
}

// ClampZero returns the amount, or zero when it is negative
func (m Money) ClampZero() Money {
	if m.amount.IsNegative() {
		return Zero()
	}
	return m
}

// Equals returns true if both amounts are equal
func (m Money) Equals(other Money) bool {
	return m.amount.Equal(other.amount)
}

// GreaterThan returns true if this amount is greater than the other
func (m Money) GreaterThan(other Money) bool {
	return m.amount.GreaterThan(other.amount)
}

// LessThan returns true if this amount is less than the other
func (m Money) LessThan(other Money) bool {
	return m.amount.LessThan(other.amount)
}

// String returns the amount with exactly two fraction digits, e.g. "1250.00"
func (m Money) String() string {
	return m.amount.StringFixed(MoneyScale)
}

// MarshalJSON encodes the amount as a decimal string, never a float
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON accepts both "12.50" and 12.50
func (m *Money) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		s = string(data)
	}
	parsed, err := NewMoneyFromString(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Value implements driver.Valuer for database storage
func (m Money) Value() (driver.Value, error) {
	return m.String(), nil
}

// Scan implements sql.Scanner for database retrieval
func (m *Money) Scan(value any) error {
	var d decimal.Decimal
	if err := d.Scan(value); err != nil {
		return fmt.Errorf("cannot scan %T into Money: %w", value, err)
	}
	*m = NewMoney(d)
	return nil
}

// Sum adds up a list of amounts
func Sum(amounts ...Money) Money {
	total := Zero()
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}
