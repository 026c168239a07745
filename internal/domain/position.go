package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PositionStatus is the lifecycle state of an investment position.
type PositionStatus string

const (
	PositionStatusOpen   PositionStatus = "open"
	PositionStatusClosed PositionStatus = "closed"
)

// AccrualPrecision is the number of decimal places kept on accrued return.
const AccrualPrecision = 18

// Position is one investment instance.
type Position struct {
	ID            string
	AccountID     string
	Plan          string
	Principal     decimal.Decimal
	Rate          decimal.Decimal
	AccruedReturn decimal.Decimal
	AccrualCursor *time.Time
	Status        PositionStatus
	StartedAt     time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Cursor returns the time up to which return has been accrued.
func (p *Position) Cursor() time.Time {
	if p.AccrualCursor != nil {
		return *p.AccrualCursor
	}
	return p.StartedAt
}

// IsOpen reports whether the position still accrues.
func (p *Position) IsOpen() bool {
	return p.Status == PositionStatusOpen
}

// Accrual is the outcome of computing one tick for a position.
type Accrual struct {
	ExpectedCursor *time.Time
	NewCursor      time.Time
	Increment      decimal.Decimal
	// Clamped is set when the inputs were invalid and the increment was forced to zero.
	Clamped bool
}

// Advances reports whether writing the accrual changes the position.
func (a Accrual) Advances() bool {
	if a.Increment.IsPositive() {
		return true
	}
	if a.ExpectedCursor == nil {
		return true
	}
	return a.NewCursor.After(*a.ExpectedCursor)
}

// ComputeAccrual returns the return earned between the cursor and now.
// The cursor never moves backward: a clock reading before the cursor keeps it in place.
func (p *Position) ComputeAccrual(now time.Time, period time.Duration) Accrual {
	cursor := p.Cursor()
	now = now.Truncate(time.Microsecond)

	acc := Accrual{
		ExpectedCursor: p.AccrualCursor,
		NewCursor:      cursor,
		Increment:      decimal.Zero,
	}

	elapsed := now.Sub(cursor)
	if elapsed <= 0 {
		return acc
	}
	acc.NewCursor = now

	if period <= 0 || p.Principal.IsNegative() || p.Rate.IsNegative() {
		acc.Clamped = true
		return acc
	}

	// principal * rate * elapsed / period, dividing last to keep precision.
	numerator := p.Principal.Mul(p.Rate).Mul(decimal.NewFromInt(int64(elapsed)))
	increment := numerator.DivRound(decimal.NewFromInt(int64(period)), AccrualPrecision+2).Truncate(AccrualPrecision)
	if !increment.IsPositive() {
		return acc
	}

	acc.Increment = increment
	return acc
}

// Plan is an investment product with a fixed per-period rate.
type Plan struct {
	Name      string
	DailyRate decimal.Decimal
	MinAmount decimal.Decimal
}
