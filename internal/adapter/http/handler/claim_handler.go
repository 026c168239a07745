package handler

import (
	"context"
	"net/http"

	"github.com/iho/poolledger/internal/adapter/http/dto"
	"github.com/iho/poolledger/internal/usecase"
)

// ClaimService pays out accrued return.
type ClaimService interface {
	Claim(ctx context.Context, accountID string) (*usecase.ClaimResult, error)
}

// ClaimHandler handles return claims.
type ClaimHandler struct {
	claimUC ClaimService
}

// NewClaimHandler creates a new ClaimHandler.
func NewClaimHandler(claimUC ClaimService) *ClaimHandler {
	return &ClaimHandler{claimUC: claimUC}
}

// Claim pays the caller's accrued return into their available balance.
func (h *ClaimHandler) Claim(w http.ResponseWriter, r *http.Request) {
	p, ok := caller(w, r)
	if !ok {
		return
	}

	result, err := h.claimUC.Claim(r.Context(), p.AccountID)
	if err != nil {
		writeDomainError(w, "failed to claim", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ClaimFromUseCase(result))
}
