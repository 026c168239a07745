package handler

import (
	"context"
	"net/http"

	"github.com/iho/poolledger/internal/domain"
)

// TokenIssuer signs access tokens.
type TokenIssuer interface {
	Generate(principal domain.Principal) (string, error)
}

// AccountLookup confirms the account a token is issued for exists.
type AccountLookup interface {
	GetAccount(ctx context.Context, id string) (*domain.Account, error)
}

// AuthHandler issues access tokens. Tokens are minted by an admin for an
// existing account; there is no password login.
type AuthHandler struct {
	issuer   TokenIssuer
	accounts AccountLookup
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(issuer TokenIssuer, accounts AccountLookup) *AuthHandler {
	return &AuthHandler{
		issuer:   issuer,
		accounts: accounts,
	}
}

// IssueTokenRequest names the account and role to sign for.
type IssueTokenRequest struct {
	AccountID string      `json:"account_id"`
	Email     string      `json:"email,omitempty"`
	Role      domain.Role `json:"role"`
}

// IssueTokenResponse carries the signed token.
type IssueTokenResponse struct {
	Token     string      `json:"token"`
	AccountID string      `json:"account_id"`
	Role      domain.Role `json:"role"`
}

// IssueToken signs a token for an account.
func (h *AuthHandler) IssueToken(w http.ResponseWriter, r *http.Request) {
	var req IssueTokenRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.AccountID == "" {
		writeError(w, http.StatusBadRequest, "missing account ID", "")
		return
	}
	if req.Role == "" {
		req.Role = domain.RoleInvestor
	}
	if !req.Role.IsValid() {
		writeDomainError(w, "failed to issue token", domain.ErrInvalidRole)
		return
	}

	// Admin tokens may name operators that have no ledger account.
	if req.Role != domain.RoleAdmin {
		if _, err := h.accounts.GetAccount(r.Context(), req.AccountID); err != nil {
			writeDomainError(w, "failed to issue token", err)
			return
		}
	}

	token, err := h.issuer.Generate(domain.Principal{
		AccountID: req.AccountID,
		Email:     req.Email,
		Role:      req.Role,
	})
	if err != nil {
		writeDomainError(w, "failed to issue token", err)
		return
	}

	writeJSON(w, http.StatusCreated, IssueTokenResponse{
		Token:     token,
		AccountID: req.AccountID,
		Role:      req.Role,
	})
}
