package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/poolledger/internal/domain"
	"github.com/iho/poolledger/internal/usecase"
)

// AccountResponse represents an account in API responses.
type AccountResponse struct {
	ID               string          `json:"id"`
	Name             string          `json:"name"`
	DepositAddress   string          `json:"deposit_address"`
	AvailableBalance decimal.Decimal `json:"available_balance"`
	ClaimLocked      bool            `json:"claim_locked"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// AccountFromDomain converts domain account to response.
func AccountFromDomain(a *domain.Account) *AccountResponse {
	return &AccountResponse{
		ID:               a.ID,
		Name:             a.Name,
		DepositAddress:   a.DepositAddress,
		AvailableBalance: a.AvailableBalance,
		ClaimLocked:      a.ClaimLocked,
		CreatedAt:        a.CreatedAt,
		UpdatedAt:        a.UpdatedAt,
	}
}

// AccountsFromDomain converts domain accounts to responses.
func AccountsFromDomain(accounts []*domain.Account) []*AccountResponse {
	result := make([]*AccountResponse, len(accounts))
	for i, a := range accounts {
		result[i] = AccountFromDomain(a)
	}
	return result
}

// ListAccountsResponse represents a page of accounts.
type ListAccountsResponse struct {
	Accounts []*AccountResponse `json:"accounts"`
	Total    int64              `json:"total"`
}

// SummaryResponse is the caller's dashboard view.
type SummaryResponse struct {
	Account       *AccountResponse `json:"account"`
	Invested      decimal.Decimal  `json:"invested"`
	Accrued       decimal.Decimal  `json:"accrued"`
	Total         decimal.Decimal  `json:"total"`
	OpenPositions int              `json:"open_positions"`

	ClaimInProgress bool `json:"claim_in_progress"`
}

// SummaryFromUseCase converts an account summary to response.
func SummaryFromUseCase(s *usecase.AccountSummary) *SummaryResponse {
	return &SummaryResponse{
		Account:       AccountFromDomain(s.Account),
		Invested:      s.Invested,
		Accrued:       s.Accrued,
		Total:         s.Total,
		OpenPositions: s.OpenPositions,

		ClaimInProgress: s.ClaimInProgress,
	}
}

// PositionResponse represents a position in API responses.
type PositionResponse struct {
	ID            string          `json:"id"`
	AccountID     string          `json:"account_id"`
	Plan          string          `json:"plan"`
	Principal     decimal.Decimal `json:"principal"`
	Rate          decimal.Decimal `json:"rate"`
	AccruedReturn decimal.Decimal `json:"accrued_return"`
	AccruedUntil  time.Time       `json:"accrued_until"`
	Status        string          `json:"status"`
	StartedAt     time.Time       `json:"started_at"`
}

// PositionFromDomain converts domain position to response.
func PositionFromDomain(p *domain.Position) *PositionResponse {
	return &PositionResponse{
		ID:            p.ID,
		AccountID:     p.AccountID,
		Plan:          p.Plan,
		Principal:     p.Principal,
		Rate:          p.Rate,
		AccruedReturn: p.AccruedReturn,
		AccruedUntil:  p.Cursor(),
		Status:        string(p.Status),
		StartedAt:     p.StartedAt,
	}
}

// PositionsFromDomain converts domain positions to responses.
func PositionsFromDomain(positions []*domain.Position) []*PositionResponse {
	result := make([]*PositionResponse, len(positions))
	for i, p := range positions {
		result[i] = PositionFromDomain(p)
	}
	return result
}

// EntryResponse represents a log entry in API responses.
type EntryResponse struct {
	ID          string          `json:"id"`
	AccountID   string          `json:"account_id"`
	Reference   string          `json:"reference"`
	Category    string          `json:"category"`
	Amount      decimal.Decimal `json:"amount"`
	Status      string          `json:"status"`
	ChainTxHash *string         `json:"chain_tx_hash,omitempty"`
	Metadata    map[string]any  `json:"metadata,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// EntryFromDomain converts domain entry to response.
func EntryFromDomain(e *domain.LedgerEntry) *EntryResponse {
	return &EntryResponse{
		ID:          e.ID,
		AccountID:   e.AccountID,
		Reference:   e.Reference,
		Category:    string(e.Category),
		Amount:      e.Amount,
		Status:      string(e.Status),
		ChainTxHash: e.ChainTxHash,
		Metadata:    e.Metadata,
		CreatedAt:   e.CreatedAt,
	}
}

// EntriesFromDomain converts domain entries to responses.
func EntriesFromDomain(entries []*domain.LedgerEntry) []*EntryResponse {
	result := make([]*EntryResponse, len(entries))
	for i, e := range entries {
		result[i] = EntryFromDomain(e)
	}
	return result
}

// AuditLogResponse represents an audit log in API responses.
type AuditLogResponse struct {
	ID           string         `json:"id"`
	UserID       string         `json:"user_id"`
	Action       string         `json:"action"`
	ResourceType string         `json:"resource_type"`
	ResourceID   string         `json:"resource_id"`
	RequestID    string         `json:"request_id,omitempty"`
	BeforeState  map[string]any `json:"before_state,omitempty"`
	AfterState   map[string]any `json:"after_state,omitempty"`
	Status       string         `json:"status"`
	ErrorMessage string         `json:"error_message,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

// AuditLogsFromDomain converts audit logs to responses.
func AuditLogsFromDomain(logs []*domain.AuditLog) []*AuditLogResponse {
	result := make([]*AuditLogResponse, len(logs))
	for i, l := range logs {
		result[i] = &AuditLogResponse{
			ID:           l.ID,
			UserID:       l.UserID,
			Action:       l.Action,
			ResourceType: l.ResourceType,
			ResourceID:   l.ResourceID,
			RequestID:    l.RequestID,
			BeforeState:  l.BeforeState,
			AfterState:   l.AfterState,
			Status:       l.Status,
			ErrorMessage: l.ErrorMessage,
			CreatedAt:    l.CreatedAt,
		}
	}
	return result
}

// WithdrawalResponse represents a withdrawal request in API responses.
type WithdrawalResponse struct {
	ID          string          `json:"id"`
	AccountID   string          `json:"account_id"`
	Amount      decimal.Decimal `json:"amount"`
	Destination string          `json:"destination"`
	Status      string          `json:"status"`
	Reference   string          `json:"reference"`
	ChainTxHash *string         `json:"chain_tx_hash,omitempty"`
	ProcessedBy *string         `json:"processed_by,omitempty"`
	RequestedAt time.Time       `json:"requested_at"`
	ProcessedAt *time.Time      `json:"processed_at,omitempty"`
}

// WithdrawalFromDomain converts domain withdrawal to response.
func WithdrawalFromDomain(w *domain.WithdrawalRequest) *WithdrawalResponse {
	return &WithdrawalResponse{
		ID:          w.ID,
		AccountID:   w.AccountID,
		Amount:      w.Amount,
		Destination: w.DestinationAddress,
		Status:      string(w.Status),
		Reference:   w.EntryReference,
		ChainTxHash: w.ChainTxHash,
		ProcessedBy: w.ProcessedBy,
		RequestedAt: w.RequestedAt,
		ProcessedAt: w.ProcessedAt,
	}
}

// WithdrawalsFromDomain converts domain withdrawals to responses.
func WithdrawalsFromDomain(ws []*domain.WithdrawalRequest) []*WithdrawalResponse {
	result := make([]*WithdrawalResponse, len(ws))
	for i, w := range ws {
		result[i] = WithdrawalFromDomain(w)
	}
	return result
}

// ClaimResponse reports a completed claim.
type ClaimResponse struct {
	AccountID string          `json:"account_id"`
	Amount    decimal.Decimal `json:"amount"`
	Reference string          `json:"reference"`
	Balance   decimal.Decimal `json:"balance"`
	Positions int             `json:"positions"`
	Replayed  bool            `json:"replayed"`
}

// ClaimFromUseCase converts a claim result to response.
func ClaimFromUseCase(r *usecase.ClaimResult) *ClaimResponse {
	return &ClaimResponse{
		AccountID: r.AccountID,
		Amount:    r.Amount,
		Reference: r.Reference,
		Balance:   r.Balance,
		Positions: r.Positions,
		Replayed:  !r.Applied,
	}
}

// AllocationResponse is the principal taken from one position.
type AllocationResponse struct {
	PositionID string          `json:"position_id"`
	Deducted   decimal.Decimal `json:"deducted"`
	Remaining  decimal.Decimal `json:"remaining"`
}

// DisinvestResponse reports a disinvestment and its shortfall.
type DisinvestResponse struct {
	Requested   decimal.Decimal       `json:"requested"`
	Realized    decimal.Decimal       `json:"realized"`
	Shortfall   decimal.Decimal       `json:"shortfall"`
	Reference   string                `json:"reference"`
	Balance     decimal.Decimal       `json:"balance"`
	Allocations []*AllocationResponse `json:"allocations"`
}

// DisinvestFromUseCase converts a disinvestment result to response.
func DisinvestFromUseCase(r *usecase.DisinvestResult) *DisinvestResponse {
	resp := &DisinvestResponse{
		Requested:   r.Requested,
		Realized:    r.Realized,
		Shortfall:   r.Shortfall,
		Reference:   r.Reference,
		Balance:     r.Balance,
		Allocations: make([]*AllocationResponse, len(r.Allocations)),
	}
	for i, a := range r.Allocations {
		resp.Allocations[i] = &AllocationResponse{
			PositionID: a.PositionID,
			Deducted:   a.Deduction,
			Remaining:  a.After(),
		}
	}
	return resp
}

// DiscrepancyResponse is an account whose balance disagrees with its log.
type DiscrepancyResponse struct {
	AccountID  string          `json:"account_id"`
	Recorded   decimal.Decimal `json:"recorded"`
	Calculated decimal.Decimal `json:"calculated"`
	Difference decimal.Decimal `json:"difference"`
}

// ReconciliationResponse is the ledger-wide reconciliation report.
type ReconciliationResponse struct {
	Consistent    bool                   `json:"consistent"`
	TotalBalance  decimal.Decimal        `json:"total_balance"`
	TotalLogged   decimal.Decimal        `json:"total_logged"`
	Discrepancies []*DiscrepancyResponse `json:"discrepancies"`
	CheckedAt     time.Time              `json:"checked_at"`
}

// ReconciliationFromUseCase converts a report to response.
func ReconciliationFromUseCase(r *usecase.ReconciliationReport) *ReconciliationResponse {
	resp := &ReconciliationResponse{
		Consistent:    r.LedgerConsistent,
		TotalBalance:  r.TotalBalance,
		TotalLogged:   r.TotalLogged,
		Discrepancies: make([]*DiscrepancyResponse, len(r.Discrepancies)),
		CheckedAt:     r.CheckedAt,
	}
	for i, d := range r.Discrepancies {
		resp.Discrepancies[i] = DiscrepancyFromUseCase(d)
	}
	return resp
}

// DiscrepancyFromUseCase converts a single account reconciliation.
func DiscrepancyFromUseCase(d *usecase.ReconciliationResult) *DiscrepancyResponse {
	return &DiscrepancyResponse{
		AccountID:  d.AccountID,
		Recorded:   d.RecordedBalance,
		Calculated: d.CalculatedBalance,
		Difference: d.Difference,
	}
}

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
