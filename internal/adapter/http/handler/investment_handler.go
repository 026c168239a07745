package handler

import (
	"context"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/iho/poolledger/internal/adapter/http/dto"
	"github.com/iho/poolledger/internal/domain"
	"github.com/iho/poolledger/internal/usecase"
)

// InvestmentService opens positions.
type InvestmentService interface {
	Invest(ctx context.Context, input usecase.InvestInput) (*domain.Position, error)
}

// DisinvestService returns principal to the available balance.
type DisinvestService interface {
	Disinvest(ctx context.Context, accountID string, amount decimal.Decimal) (*usecase.DisinvestResult, error)
}

// InvestmentHandler moves funds between the available balance and positions.
type InvestmentHandler struct {
	investUC    InvestmentService
	disinvestUC DisinvestService
}

// NewInvestmentHandler creates a new InvestmentHandler.
func NewInvestmentHandler(investUC InvestmentService, disinvestUC DisinvestService) *InvestmentHandler {
	return &InvestmentHandler{investUC: investUC, disinvestUC: disinvestUC}
}

// Invest opens a position for the caller.
func (h *InvestmentHandler) Invest(w http.ResponseWriter, r *http.Request) {
	p, ok := caller(w, r)
	if !ok {
		return
	}

	var req dto.InvestRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	position, err := h.investUC.Invest(r.Context(), req.ToUseCaseInput(p.AccountID))
	if err != nil {
		writeDomainError(w, "failed to invest", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.PositionFromDomain(position))
}

// Disinvest reduces the caller's principal oldest position first. A partial
// result is still a success; the response carries the shortfall.
func (h *InvestmentHandler) Disinvest(w http.ResponseWriter, r *http.Request) {
	p, ok := caller(w, r)
	if !ok {
		return
	}

	var req dto.DisinvestRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.disinvestUC.Disinvest(r.Context(), p.AccountID, req.Amount)
	if err != nil {
		writeDomainError(w, "failed to disinvest", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.DisinvestFromUseCase(result))
}
