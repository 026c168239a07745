package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// WithdrawalStatus is the state of a cash-out request.
type WithdrawalStatus string

const (
	WithdrawalStatusPending  WithdrawalStatus = "pending"
	WithdrawalStatusApproved WithdrawalStatus = "approved"
	WithdrawalStatusRejected WithdrawalStatus = "rejected"
)

// IsValid checks if the status is known.
func (s WithdrawalStatus) IsValid() bool {
	switch s {
	case WithdrawalStatusPending, WithdrawalStatusApproved, WithdrawalStatusRejected:
		return true
	default:
		return false
	}
}

// WithdrawalRequest is a cash-out request awaiting administrative disposition.
// Funds are deducted at creation; rejection refunds them.
type WithdrawalRequest struct {
	ID                 string
	AccountID          string
	Amount             decimal.Decimal
	DestinationAddress string
	Status             WithdrawalStatus
	EntryReference     string
	ChainTxHash        *string
	ProcessedBy        *string
	LockedAt           *time.Time
	RequestedAt        time.Time
	ProcessedAt        *time.Time
}

// IsTerminal reports whether no further disposition is allowed.
func (w *WithdrawalRequest) IsTerminal() bool {
	return w.Status == WithdrawalStatusApproved || w.Status == WithdrawalStatusRejected
}

// Validate validates a new withdrawal request.
func (w *WithdrawalRequest) Validate() error {
	if err := ValidateAmount(w.Amount); err != nil {
		return err
	}
	return ValidateAddress(w.DestinationAddress)
}

// WithdrawalFilter narrows withdrawal listings.
type WithdrawalFilter struct {
	AccountID string
	Status    WithdrawalStatus
	Limit     int
	Offset    int
}
