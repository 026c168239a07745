package domain

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Allocation is the principal taken from a single position.
type Allocation struct {
	PositionID string
	Before     decimal.Decimal
	Deduction  decimal.Decimal
}

// After is the principal left on the position.
func (a Allocation) After() decimal.Decimal {
	return a.Before.Sub(a.Deduction)
}

// AllocationResult describes how a disinvestment request was spread over positions.
type AllocationResult struct {
	Requested   decimal.Decimal
	Realized    decimal.Decimal
	Shortfall   decimal.Decimal
	Allocations []Allocation
}

// AllocateFIFO reduces principal oldest position first until amount is
// covered or positions run out. Closed and empty positions are skipped.
// The input slice is not modified.
func AllocateFIFO(positions []*Position, amount decimal.Decimal) AllocationResult {
	ordered := make([]*Position, 0, len(positions))
	for _, p := range positions {
		if p.IsOpen() && p.Principal.IsPositive() {
			ordered = append(ordered, p)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].CreatedAt.Equal(ordered[j].CreatedAt) {
			return ordered[i].ID < ordered[j].ID
		}
		return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
	})

	result := AllocationResult{Requested: amount, Realized: decimal.Zero}
	remaining := amount

	for _, p := range ordered {
		if !remaining.IsPositive() {
			break
		}
		deduction := decimal.Min(p.Principal, remaining)
		result.Allocations = append(result.Allocations, Allocation{
			PositionID: p.ID,
			Before:     p.Principal,
			Deduction:  deduction,
		})
		result.Realized = result.Realized.Add(deduction)
		remaining = remaining.Sub(deduction)
	}

	if remaining.IsPositive() {
		result.Shortfall = remaining
	} else {
		result.Shortfall = decimal.Zero
	}
	return result
}
