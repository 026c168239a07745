package domain

import "time"

// Event types
const (
	EventTypeSettlementApplied   = "settlement.applied"
	EventTypePositionOpened      = "position.opened"
	EventTypePositionDisinvested = "position.disinvested"
	EventTypeReturnClaimed       = "return.claimed"
	EventTypeWithdrawalRequested = "withdrawal.requested"
	EventTypeWithdrawalApproved  = "withdrawal.approved"
	EventTypeWithdrawalRejected  = "withdrawal.rejected"
	EventTypeAccountCreated      = "account.created"
)

// Aggregate types
const (
	AggregateTypeAccount    = "account"
	AggregateTypePosition   = "position"
	AggregateTypeWithdrawal = "withdrawal"
)

// OutboxEvent represents an event to be published
type OutboxEvent struct {
	ID            string
	AggregateID   string
	AggregateType string
	EventType     string
	Payload       map[string]any
	CreatedAt     time.Time
	PublishedAt   *time.Time
	Published     bool
}

// SettlementAppliedEvent payload
type SettlementAppliedEvent struct {
	AccountID string `json:"account_id"`
	Category  string `json:"category"`
	Amount    string `json:"amount"`
	Reference string `json:"reference"`
	Balance   string `json:"balance"`
}

// WithdrawalEvent payload
type WithdrawalEvent struct {
	WithdrawalID string `json:"withdrawal_id"`
	AccountID    string `json:"account_id"`
	Amount       string `json:"amount"`
	Destination  string `json:"destination"`
	Status       string `json:"status"`
	TxHash       string `json:"tx_hash,omitempty"`
}

// PositionEvent payload
type PositionEvent struct {
	PositionID string `json:"position_id"`
	AccountID  string `json:"account_id"`
	Amount     string `json:"amount"`
	Principal  string `json:"principal"`
}
