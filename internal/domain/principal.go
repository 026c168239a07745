package domain

import (
	"errors"
)

// Principal is the authenticated caller. AccountID is the ledger account the
// caller acts on.
type Principal struct {
	AccountID string
	Email     string
	Role      Role
}

// Role represents a caller's access level
type Role string

const (
	// RoleAdmin may dispose withdrawals and provision accounts
	RoleAdmin Role = "admin"

	// RoleInvestor acts only on their own account
	RoleInvestor Role = "investor"
)

// IsValid checks if the role is a valid role
func (r Role) IsValid() bool {
	return r == RoleAdmin || r == RoleInvestor
}

// CanDisposeWithdrawals checks if the role may approve or reject withdrawals
func (r Role) CanDisposeWithdrawals() bool {
	return r == RoleAdmin
}

// Authentication errors
var (
	ErrUnauthorized     = errors.New("unauthorized")
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token has expired")
	ErrInsufficientRole = errors.New("insufficient role for this operation")
	ErrInvalidRole      = errors.New("invalid role")
)
