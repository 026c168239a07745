package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/poolledger/internal/adapter/http/dto"
	"github.com/iho/poolledger/internal/domain"
	"github.com/iho/poolledger/internal/usecase"
)

// WithdrawalService manages cash-out requests.
type WithdrawalService interface {
	Create(ctx context.Context, input usecase.CreateWithdrawalInput) (*domain.WithdrawalRequest, error)
	Get(ctx context.Context, id string) (*domain.WithdrawalRequest, error)
	List(ctx context.Context, filter domain.WithdrawalFilter) ([]*domain.WithdrawalRequest, error)
	Approve(ctx context.Context, id, adminID string) (*domain.WithdrawalRequest, error)
	Reject(ctx context.Context, id, adminID string) (*domain.WithdrawalRequest, error)
}

// WithdrawalHandler handles withdrawal requests and their disposition.
type WithdrawalHandler struct {
	withdrawalUC WithdrawalService
}

// NewWithdrawalHandler creates a new WithdrawalHandler.
func NewWithdrawalHandler(withdrawalUC WithdrawalService) *WithdrawalHandler {
	return &WithdrawalHandler{withdrawalUC: withdrawalUC}
}

// Create requests a withdrawal from the caller's available balance.
func (h *WithdrawalHandler) Create(w http.ResponseWriter, r *http.Request) {
	p, ok := caller(w, r)
	if !ok {
		return
	}

	var req dto.CreateWithdrawalRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	withdrawal, err := h.withdrawalUC.Create(r.Context(), req.ToUseCaseInput(p.AccountID))
	if err != nil {
		writeDomainError(w, "failed to request withdrawal", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.WithdrawalFromDomain(withdrawal))
}

// Get returns a withdrawal. Investors only see their own.
func (h *WithdrawalHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, ok := caller(w, r)
	if !ok {
		return
	}

	withdrawal, err := h.withdrawalUC.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "failed to get withdrawal", err)
		return
	}
	if p.Role != domain.RoleAdmin && withdrawal.AccountID != p.AccountID {
		writeDomainError(w, "failed to get withdrawal", domain.ErrWithdrawalNotFound)
		return
	}

	writeJSON(w, http.StatusOK, dto.WithdrawalFromDomain(withdrawal))
}

// ListMine lists the caller's withdrawals.
func (h *WithdrawalHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	p, ok := caller(w, r)
	if !ok {
		return
	}
	h.list(w, r, p.AccountID)
}

// List lists withdrawals across accounts, optionally filtered by
// account_id and status.
func (h *WithdrawalHandler) List(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, r.URL.Query().Get("account_id"))
}

func (h *WithdrawalHandler) list(w http.ResponseWriter, r *http.Request, accountID string) {
	withdrawals, err := h.withdrawalUC.List(r.Context(), domain.WithdrawalFilter{
		AccountID: accountID,
		Status:    domain.WithdrawalStatus(r.URL.Query().Get("status")),
		Limit:     parseIntQuery(r, "limit", 20),
		Offset:    parseIntQuery(r, "offset", 0),
	})
	if err != nil {
		writeDomainError(w, "failed to list withdrawals", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.WithdrawalsFromDomain(withdrawals))
}

// Approve pays a pending withdrawal out.
func (h *WithdrawalHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.dispose(w, r, h.withdrawalUC.Approve)
}

// Reject refunds a pending withdrawal.
func (h *WithdrawalHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.dispose(w, r, h.withdrawalUC.Reject)
}

func (h *WithdrawalHandler) dispose(
	w http.ResponseWriter,
	r *http.Request,
	action func(ctx context.Context, id, adminID string) (*domain.WithdrawalRequest, error),
) {
	p, ok := caller(w, r)
	if !ok {
		return
	}
	if !p.Role.CanDisposeWithdrawals() {
		writeDomainError(w, "failed to process withdrawal", domain.ErrInsufficientRole)
		return
	}

	withdrawal, err := action(r.Context(), chi.URLParam(r, "id"), p.AccountID)
	if err != nil {
		writeDomainError(w, "failed to process withdrawal", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.WithdrawalFromDomain(withdrawal))
}
