package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// EntryCategory classifies a money movement in the transaction log.
type EntryCategory string

const (
	CategoryDeposit       EntryCategory = "deposit"
	CategoryInvestment    EntryCategory = "investment"
	CategoryDisinvestment EntryCategory = "disinvestment"
	CategoryReturnAccrual EntryCategory = "return-accrual"
	CategoryReturnClaim   EntryCategory = "return-claim"
	CategoryWithdrawal    EntryCategory = "withdrawal"
)

var validCategories = map[EntryCategory]bool{
	CategoryDeposit:       true,
	CategoryInvestment:    true,
	CategoryDisinvestment: true,
	CategoryReturnAccrual: true,
	CategoryReturnClaim:   true,
	CategoryWithdrawal:    true,
}

// IsValid checks if the category is known.
func (c EntryCategory) IsValid() bool {
	return validCategories[c]
}

// Settleable reports whether the category credits the available balance
// through the settlement guard.
func (c EntryCategory) Settleable() bool {
	switch c {
	case CategoryDeposit, CategoryReturnClaim, CategoryDisinvestment:
		return true
	default:
		return false
	}
}

// EntryStatus is the state of a ledger entry.
type EntryStatus string

const (
	EntryStatusPending   EntryStatus = "pending"
	EntryStatusConfirmed EntryStatus = "confirmed"
	EntryStatusFailed    EntryStatus = "failed"
)

// LedgerEntry is one money movement. Reference is globally unique and an
// entry is written at most once per reference.
type LedgerEntry struct {
	ID          string
	AccountID   string
	Reference   string
	Category    EntryCategory
	Amount      decimal.Decimal
	Status      EntryStatus
	ChainTxHash *string
	Metadata    map[string]any
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// BalanceEffect is the signed change the entry implies for the available
// balance. Accrual entries and failed entries have none.
func (e *LedgerEntry) BalanceEffect() decimal.Decimal {
	if e.Status == EntryStatusFailed {
		return decimal.Zero
	}
	switch e.Category {
	case CategoryDeposit, CategoryReturnClaim, CategoryDisinvestment:
		return e.Amount
	case CategoryInvestment, CategoryWithdrawal:
		return e.Amount.Neg()
	default:
		return decimal.Zero
	}
}

// InvestmentReference is the internal reference of a position's funding entry.
func InvestmentReference(positionID string) string {
	return "investment:" + positionID
}

// WithdrawalReference is the internal reference of a withdrawal's entry.
func WithdrawalReference(withdrawalID string) string {
	return "withdrawal:" + withdrawalID
}

// AccrualReference identifies one cursor advance of a position. Cursor
// advances are totally ordered per position, so the reference is unique.
func AccrualReference(positionID string, cursor time.Time) string {
	return fmt.Sprintf("accrual:%s:%d", positionID, cursor.UnixMicro())
}
