package dto

import (
	"github.com/shopspring/decimal"

	"github.com/iho/poolledger/internal/usecase"
)

// CreateAccountRequest represents a request to provision an account.
type CreateAccountRequest struct {
	ID             string `json:"id,omitempty"`
	Name           string `json:"name"`
	DepositAddress string `json:"deposit_address"`
}

// ToUseCaseInput converts to use case input.
func (r *CreateAccountRequest) ToUseCaseInput(createdBy string) usecase.CreateAccountInput {
	return usecase.CreateAccountInput{
		ID:             r.ID,
		Name:           r.Name,
		DepositAddress: r.DepositAddress,
		CreatedBy:      createdBy,
	}
}

// InvestRequest opens a position from the caller's available balance.
type InvestRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Plan   string          `json:"plan,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *InvestRequest) ToUseCaseInput(accountID string) usecase.InvestInput {
	return usecase.InvestInput{
		AccountID: accountID,
		Amount:    r.Amount,
		Plan:      r.Plan,
	}
}

// DisinvestRequest returns principal to the available balance.
type DisinvestRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// CreateWithdrawalRequest represents a cash-out request.
type CreateWithdrawalRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Destination string          `json:"destination"`
}

// ToUseCaseInput converts to use case input.
func (r *CreateWithdrawalRequest) ToUseCaseInput(accountID string) usecase.CreateWithdrawalInput {
	return usecase.CreateWithdrawalInput{
		AccountID:   accountID,
		Amount:      r.Amount,
		Destination: r.Destination,
	}
}
