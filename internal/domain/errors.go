package domain

import (
	"errors"
	"fmt"
)

// ErrConflict is wrapped by every error raised when a conditional write lost a race.
var ErrConflict = errors.New("conflict")

var (
	// Account errors
	ErrAccountNotFound     = errors.New("account not found")
	ErrAccountExists       = errors.New("account already exists")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrInvalidBalanceField = errors.New("invalid balance field")

	// Claim errors
	ErrClaimInProgress = fmt.Errorf("%w: claim already in progress", ErrConflict)
	ErrNothingToClaim  = errors.New("nothing to claim")

	// Position errors
	ErrPositionNotFound   = errors.New("position not found")
	ErrPositionChanged    = fmt.Errorf("%w: position changed concurrently", ErrConflict)
	ErrNothingToDisinvest = errors.New("no invested principal to disinvest")
	ErrUnknownPlan        = errors.New("unknown investment plan")
	ErrBelowPlanMinimum   = errors.New("amount below plan minimum")

	// Entry errors
	ErrEntryNotFound      = errors.New("ledger entry not found")
	ErrInvalidCategory    = errors.New("invalid entry category")
	ErrInvalidReference   = errors.New("invalid reference")
	ErrEntryNotPending    = fmt.Errorf("%w: ledger entry is not pending", ErrConflict)
	ErrReferenceCollision = errors.New("reference already used by a different movement")

	// Withdrawal errors
	ErrWithdrawalNotFound   = errors.New("withdrawal not found")
	ErrWithdrawalNotPending = fmt.Errorf("%w: withdrawal already disposed", ErrConflict)
	ErrWithdrawalBusy       = fmt.Errorf("%w: withdrawal is being processed", ErrConflict)
	ErrWithdrawalPaid       = fmt.Errorf("%w: withdrawal already paid out", ErrConflict)
	ErrInvalidStatus        = errors.New("invalid status")

	// Settlement layer errors
	ErrTransferFailed     = errors.New("external transfer failed")
	ErrBalanceUnsupported = errors.New("balance query not supported")
)
