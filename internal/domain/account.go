package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Account is a pool participant. AvailableBalance is withdrawable cash and is
// only ever changed through the store's atomic increment.
type Account struct {
	ID               string
	Name             string
	DepositAddress   string
	AvailableBalance decimal.Decimal
	ClaimLocked      bool
	ClaimLockedAt    *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// BalanceField names a balance column that may be moved by ApplyDelta.
type BalanceField string

// BalanceFieldAvailable receives every settlement credit.
const BalanceFieldAvailable BalanceField = "available_balance"

// IsValid reports whether the field is a known balance column.
func (f BalanceField) IsValid() bool {
	return f == BalanceFieldAvailable
}

// ValidateDeduct checks if amount can be taken from the available balance.
func (a *Account) ValidateDeduct(amount decimal.Decimal) error {
	if a.AvailableBalance.Sub(amount).IsNegative() {
		return ErrInsufficientFunds
	}
	return nil
}

// ClaimLockExpired reports whether a held claim lock is older than ttl and
// may be taken over.
func (a *Account) ClaimLockExpired(now time.Time, ttl time.Duration) bool {
	if !a.ClaimLocked {
		return true
	}
	if a.ClaimLockedAt == nil {
		return true
	}
	return now.Sub(*a.ClaimLockedAt) >= ttl
}

// NormalizeAddress lower-cases a hex address so lookups are case-insensitive.
func NormalizeAddress(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

// SameAddress compares two addresses ignoring case.
func SameAddress(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return NormalizeAddress(a) == NormalizeAddress(b)
}
