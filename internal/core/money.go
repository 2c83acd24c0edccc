// Package core provides money parsing and handling utilities.
//
// Amounts are kept as the decimal strings the user typed. Parsing goes
// through shopspring/decimal so that "12,50" and "12.50" are read the same
// and no precision is lost before conversion.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount validates a user-entered amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators.
// Returns ErrEmptyAmount for blank input and ErrInvalidAmount for anything
// that is not a number greater than zero.
//
// Examples:
//
//	ParseAmount("12.34") -> 12.34, nil
//	ParseAmount("12,34") -> 12.34, nil
//	ParseAmount("0")     -> 0, ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrEmptyAmount
	}
	d, err := decimal.NewFromString(normalizeAmount(s))
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if !d.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// AmountValue returns a stored amount as a float for aggregation.
// ok is false when the string is not a number at all; stored amounts are
// not re-validated, so zero and negative values pass through.
func AmountValue(s string) (value float64, ok bool) {
	d, err := decimal.NewFromString(normalizeAmount(strings.TrimSpace(s)))
	if err != nil {
		return 0, false
	}
	return d.InexactFloat64(), true
}

// FormatAmount renders a value with two decimals.
func FormatAmount(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

func normalizeAmount(s string) string {
	// Normalize decimal comma to dot
	return strings.ReplaceAll(s, ",", ".")
}
