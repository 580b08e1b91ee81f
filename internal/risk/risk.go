// Package risk enforces the capital budget shared by open positions and
// sizes entries off stop distance.
package risk

import "math"

// Budget tracks capital committed across open positions against a fixed
// ceiling. The running total must always equal the sum of the individual
// commitments; callers release exactly what they committed.
type Budget struct {
	ceiling float64
	used    float64
}

// NewBudget creates a budget with the given ceiling.
func NewBudget(ceiling float64) *Budget {
	return &Budget{ceiling: ceiling}
}

// Commit reserves capital for a new position. It reports false, without
// mutating the total, when the commitment would exceed the ceiling.
func (b *Budget) Commit(amount float64) bool {
	if amount <= 0 {
		return false
	}
	if b.used+amount > b.ceiling {
		return false
	}
	b.used += amount
	return true
}

// Release returns capital to the budget when a position closes.
func (b *Budget) Release(amount float64) {
	b.used -= amount
	if b.used < 0 {
		b.used = 0
	}
}

// Used reports the capital currently committed.
func (b *Budget) Used() float64 { return b.used }

// Ceiling reports the configured maximum.
func (b *Budget) Ceiling() float64 { return b.ceiling }

// Exhausted reports whether no further entries can be funded at all.
func (b *Budget) Exhausted() bool { return b.used >= b.ceiling }

// Quantity sizes an entry so the amount at risk (maxCapital * riskPct) is
// spread over the stop distance: floor(riskAmount / stopDistance). A
// non-positive stop distance sizes to zero.
func Quantity(maxCapital, riskPct, stopDistance float64) int {
	if stopDistance <= 0 || maxCapital <= 0 || riskPct <= 0 {
		return 0
	}
	return int(math.Floor(maxCapital * riskPct / stopDistance))
}
