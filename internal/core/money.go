// Package core holds the domain model and the allocation engine.
//
// All monetary values are shopspring decimals at 2 decimal places. Sums are
// compared with exact decimal equality, never with tolerances.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// MoneyPrecision is the system's monetary precision in decimal places.
const MoneyPrecision = 2

var hundred = decimal.NewFromInt(100)

// ParseAmount parses a monetary string into a decimal, rejecting negatives and
// sub-cent precision. Accepts comma as decimal separator.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, err
	}
	if err := ValidateAmount(d); err != nil {
		return decimal.Zero, err
	}
	return d, nil
}

// ValidateAmount enforces the monetary invariants: non-negative and at most 2
// decimal places.
func ValidateAmount(d decimal.Decimal) error {
	if d.IsNegative() {
		return ErrNegativeAmount
	}
	cents := d.Mul(hundred)
	if !cents.Equal(cents.Floor()) {
		return ErrTooManyDecimals
	}
	return nil
}

// cents returns the amount as an integer number of cents. The amount must
// already satisfy ValidateAmount.
func cents(d decimal.Decimal) int64 {
	return d.Mul(hundred).IntPart()
}

// fromCents converts an integer number of cents back into a 2-dp decimal.
func fromCents(c int64) decimal.Decimal {
	return decimal.New(c, -MoneyPrecision)
}
