package domain

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Validation errors
var (
	ErrInvalidAmount      = errors.New("amount must be positive")
	ErrInvalidAccountName = errors.New("invalid account name")
	ErrInvalidAddress     = errors.New("invalid address")
	ErrAmountTooLarge     = errors.New("amount exceeds maximum allowed")
	ErrAmountTooSmall     = errors.New("amount below minimum allowed")
	ErrInvalidIDFormat    = errors.New("invalid ID format")
)

// Validation constants
const (
	MaxAccountNameLength = 255
	MinAccountNameLength = 1
	MaxReferenceLength   = 255
	MaxAmount            = "1000000000000" // 1 trillion tokens
	MinAmount            = "0.000001"

	// DefaultTokenDecimals applies when no token precision is configured.
	DefaultTokenDecimals int32 = 18
)

var addressRegex = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// ValidateAccountName validates account name
func ValidateAccountName(name string) error {
	name = strings.TrimSpace(name)

	if len(name) < MinAccountNameLength {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidAccountName)
	}

	if len(name) > MaxAccountNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidAccountName, MaxAccountNameLength)
	}

	return nil
}

// ValidateAmount validates a money movement amount
func ValidateAmount(amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}

	minAmount := decimal.RequireFromString(MinAmount)
	if amount.LessThan(minAmount) {
		return fmt.Errorf("%w: minimum amount is %s", ErrAmountTooSmall, MinAmount)
	}

	maxAmount := decimal.RequireFromString(MaxAmount)
	if amount.GreaterThan(maxAmount) {
		return fmt.Errorf("%w: maximum amount is %s", ErrAmountTooLarge, MaxAmount)
	}

	return nil
}

// ValidatePrecision rejects amounts finer than the token's smallest unit,
// which the chain could never move.
func ValidatePrecision(amount decimal.Decimal, decimals int32) error {
	if !amount.Equal(amount.Truncate(decimals)) {
		return fmt.Errorf("%w: %s has more than %d decimals", ErrInvalidAmount, amount, decimals)
	}
	return nil
}

// ValidateAddress checks for a 0x-prefixed 20-byte hex address.
func ValidateAddress(address string) error {
	if !addressRegex.MatchString(strings.TrimSpace(address)) {
		return fmt.Errorf("%w: %q", ErrInvalidAddress, address)
	}
	return nil
}

// ValidateReference validates an external reference.
func ValidateReference(reference string) error {
	if strings.TrimSpace(reference) == "" {
		return fmt.Errorf("%w: reference cannot be empty", ErrInvalidReference)
	}
	if len(reference) > MaxReferenceLength {
		return fmt.Errorf("%w: reference exceeds %d characters", ErrInvalidReference, MaxReferenceLength)
	}
	return nil
}

// ValidatePagination validates and limits pagination parameters
func ValidatePagination(limit, offset int) (int, int) {
	const MaxPageSize = 1000
	const DefaultPageSize = 50

	if limit <= 0 {
		limit = DefaultPageSize
	}

	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	if offset < 0 {
		offset = 0
	}

	return limit, offset
}
