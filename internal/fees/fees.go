package fees

import (
	"fmt"
	"math"

	pkgerrors "github.com/moynul/taptosell-server/pkg/errors"
)

// DefaultRateBps is the platform fee applied to gross transfer amounts,
// in basis points (100 = 1%).
const DefaultRateBps = 100

// Breakdown splits a gross amount into fee and net. All values are in
// minor units and fee+net always equals total exactly.
type Breakdown struct {
	Fee   int64 `json:"fee"`
	Net   int64 `json:"net"`
	Total int64 `json:"total"`
}

// Calculator computes deterministic fee breakdowns. Zero value is not
// usable; construct with New.
type Calculator struct {
	rateBps int64
}

func New(rateBps int64) *Calculator {
	if rateBps <= 0 {
		rateBps = DefaultRateBps
	}
	return &Calculator{rateBps: rateBps}
}

// Compute applies the configured rate to a gross amount in minor units.
// The fee is rounded half-up to the nearest minor unit, so for any valid
// amount Fee+Net == Total with no residue.
func (c *Calculator) Compute(amount int64) (Breakdown, error) {
	if amount <= 0 {
		return Breakdown{}, fmt.Errorf("%w: amount must be positive, got %d", pkgerrors.ErrValidation, amount)
	}
	fee := (amount*c.rateBps + 5000) / 10000
	return Breakdown{
		Fee:   fee,
		Net:   amount - fee,
		Total: amount,
	}, nil
}

// MinorUnits converts a major-unit decimal amount (as decoded from JSON)
// into minor units, rejecting non-finite input before any arithmetic.
func MinorUnits(amount float64) (int64, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return 0, fmt.Errorf("%w: amount is not finite", pkgerrors.ErrValidation)
	}
	if amount <= 0 {
		return 0, fmt.Errorf("%w: amount must be positive", pkgerrors.ErrValidation)
	}
	return int64(math.Round(amount * 100)), nil
}
