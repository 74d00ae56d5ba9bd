package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrAmountNegative = errors.New("amount cannot be negative")
	ErrAmountZero     = errors.New("amount must be greater than zero")
)

// Amount is a monetary value in the smallest currency unit.
type Amount struct {
	value int64
}

// NewAmount validates and builds an Amount. Zero and negative values
// are both rejected, with distinct errors.
func NewAmount(value int64) (Amount, error) {
	if value < 0 {
		return Amount{}, ErrAmountNegative
	}
	if value == 0 {
		return Amount{}, ErrAmountZero
	}
	return Amount{value: value}, nil
}

func (a Amount) Value() int64 {
	return a.value
}

// Decimal returns the value expressed in major currency units.
func (a Amount) Decimal() decimal.Decimal {
	return decimal.NewFromInt(a.value).Div(decimal.NewFromInt(100))
}

func (a Amount) String() string {
	return fmt.Sprintf("$%s", a.Decimal().StringFixed(2))
}
