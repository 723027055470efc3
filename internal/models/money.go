package models

import (
	"errors"
	"math"
)

// ErrAmountPrecision is returned when a monetary amount carries more than
// two fractional digits.
var ErrAmountPrecision = errors.New("amount must have at most two decimal places")

// ToMinorUnits converts a decimal amount to minor units (cents). Amounts
// with more than two fractional digits are rejected rather than rounded so
// balance arithmetic stays exact.
func ToMinorUnits(amount float64) (int64, error) {
	scaled := amount * 100
	rounded := math.Round(scaled)
	if math.Abs(scaled-rounded) > 1e-6 {
		return 0, ErrAmountPrecision
	}
	return int64(rounded), nil
}

// FromMinorUnits converts minor units back to a decimal amount.
func FromMinorUnits(cents int64) float64 {
	return float64(cents) / 100
}
