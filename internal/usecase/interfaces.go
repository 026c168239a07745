package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/poolledger/internal/domain"
)

// AccountRepository defines data access for accounts.
type AccountRepository interface {
	Create(ctx context.Context, tx Transaction, account *domain.Account) error
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	GetByDepositAddress(ctx context.Context, address string) (*domain.Account, error)
	List(ctx context.Context, limit, offset int) ([]*domain.Account, error)
	// ApplyDelta atomically adds delta to field and returns the new value.
	// It fails with domain.ErrInsufficientFunds instead of going below zero.
	ApplyDelta(ctx context.Context, tx Transaction, id string, field domain.BalanceField, delta decimal.Decimal) (decimal.Decimal, error)
	// AcquireClaimLock sets the claim lock if it is free or was taken before staleBefore.
	AcquireClaimLock(ctx context.Context, id string, now, staleBefore time.Time) (bool, error)
	ReleaseClaimLock(ctx context.Context, id string) error
}

// PositionRepository defines data access for positions.
type PositionRepository interface {
	Create(ctx context.Context, tx Transaction, position *domain.Position) error
	GetByID(ctx context.Context, id string) (*domain.Position, error)
	// ListByAccount returns every position of the account, oldest first.
	ListByAccount(ctx context.Context, accountID string) ([]*domain.Position, error)
	// ListOpenAfter pages through open positions ordered by id.
	ListOpenAfter(ctx context.Context, afterID string, limit int) ([]*domain.Position, error)
	// AdvanceAccrual applies an accrual only if the position is open and its
	// cursor still equals expectedCursor.
	AdvanceAccrual(ctx context.Context, id string, expectedCursor *time.Time, newCursor time.Time, increment decimal.Decimal) (bool, error)
	// ReducePrincipal deducts from principal only if it still equals expected,
	// closing the position when nothing is left.
	ReducePrincipal(ctx context.Context, tx Transaction, id string, expected, deduction decimal.Decimal) (bool, error)
	RestorePrincipal(ctx context.Context, tx Transaction, id string, amount decimal.Decimal) error
	// DeductAccrued subtracts each share from its position's accrued return,
	// only where the accrued return still covers it. Returns rows affected.
	DeductAccrued(ctx context.Context, tx Transaction, shares []AccruedShare) (int64, error)
}

// AccruedShare is the part of a claim taken from one position.
type AccruedShare struct {
	PositionID string
	Amount     decimal.Decimal
}

// EntryRepository defines data access for the transaction log.
type EntryRepository interface {
	// InsertIfAbsent inserts the entry unless its reference already exists, in
	// which case the stored entry is returned.
	InsertIfAbsent(ctx context.Context, tx Transaction, entry *domain.LedgerEntry) (bool, *domain.LedgerEntry, error)
	GetByReference(ctx context.Context, reference string) (*domain.LedgerEntry, error)
	ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]*domain.LedgerEntry, error)
	// UpdateStatus moves a pending entry to status. Fails with domain.ErrEntryNotPending otherwise.
	UpdateStatus(ctx context.Context, tx Transaction, reference string, status domain.EntryStatus, chainTxHash *string, updatedAt time.Time) error
}

// WithdrawalRepository defines data access for withdrawal requests.
type WithdrawalRepository interface {
	Create(ctx context.Context, tx Transaction, withdrawal *domain.WithdrawalRequest) error
	GetByID(ctx context.Context, id string) (*domain.WithdrawalRequest, error)
	List(ctx context.Context, filter domain.WithdrawalFilter) ([]*domain.WithdrawalRequest, error)
	// AcquireProcessing marks a pending request as being disposed, unless another
	// disposition holds it and started after staleBefore.
	AcquireProcessing(ctx context.Context, id string, now, staleBefore time.Time) (bool, error)
	ReleaseProcessing(ctx context.Context, id string) error
	// RecordPayout durably notes a confirmed payout on a pending request.
	// Fails with domain.ErrWithdrawalPaid when a different payout is on record.
	RecordPayout(ctx context.Context, id, txHash string) error
	// Transition moves a pending request to a terminal status.
	// Fails with domain.ErrWithdrawalNotPending otherwise, and with
	// domain.ErrWithdrawalPaid when rejecting a request with a recorded payout.
	Transition(ctx context.Context, tx Transaction, id string, status domain.WithdrawalStatus, processedBy string, chainTxHash *string, at time.Time) error
}

// LedgerRepository defines data access for ledger-wide operations.
type LedgerRepository interface {
	// CheckConsistency returns the sum of available balances and the balance
	// implied by the transaction log.
	CheckConsistency(ctx context.Context) (totalBalance, totalLogged decimal.Decimal, err error)
	// ListDiscrepancies returns accounts whose balance differs from their log.
	ListDiscrepancies(ctx context.Context, limit int) ([]AccountDiscrepancy, error)
}

// AccountDiscrepancy is an account whose balance disagrees with its log.
type AccountDiscrepancy struct {
	AccountID string
	Balance   decimal.Decimal
	Logged    decimal.Decimal
}

// OutboxRepository defines data access for outbox events.
type OutboxRepository interface {
	Create(ctx context.Context, tx Transaction, event *domain.OutboxEvent) error
	GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error)
	MarkPublished(ctx context.Context, id string, publishedAt time.Time) error
	DeletePublished(ctx context.Context, before time.Time) error
}

// AuditRepository defines data access for audit logs.
type AuditRepository interface {
	Create(ctx context.Context, log *domain.AuditLog) error
	List(ctx context.Context, filter domain.AuditFilter) ([]*domain.AuditLog, error)
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionManager handles transaction lifecycle.
type TransactionManager interface {
	Begin(ctx context.Context) (Transaction, error)
}

// Retrier re-runs an operation while it fails with a retryable error.
type Retrier interface {
	Retry(ctx context.Context, operation func() error) error
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// Cache defines caching operations.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// IdempotencyStore handles idempotency key storage.
type IdempotencyStore interface {
	// CheckAndSet atomically checks if key exists, sets if not.
	// Returns (exists, existingValue, error).
	CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	// Update updates an existing key with the final response.
	Update(ctx context.Context, key string, response []byte, ttl time.Duration) error
	// Release drops a key whose request did not complete.
	Release(ctx context.Context, key string) error
}

// TransferClient moves tokens on the settlement layer. Calls block until the
// movement is final. idempotencyKey lets the gateway collapse retries.
type TransferClient interface {
	// Transfer pays amount from the pool wallet to destination.
	Transfer(ctx context.Context, destination string, amount decimal.Decimal, idempotencyKey string) (string, error)
	// Collect sweeps amount from a custodial deposit address into the pool wallet.
	Collect(ctx context.Context, source string, amount decimal.Decimal, idempotencyKey string) (string, error)
	// BalanceOf returns the token balance of address, or domain.ErrBalanceUnsupported.
	BalanceOf(ctx context.Context, address string) (decimal.Decimal, error)
}

// TransferEvent is one settled token transfer observed on the monitored contract.
type TransferEvent struct {
	From      string
	To        string
	Amount    decimal.Decimal
	Reference string
	Block     uint64
}

// TransferHandler consumes a transfer event. A nil error acknowledges it.
type TransferHandler func(ctx context.Context, event TransferEvent) error

// EventFeed delivers transfer events at least once until ctx is cancelled.
type EventFeed interface {
	Run(ctx context.Context, handle TransferHandler) error
}

// PlanCatalog resolves investment plans.
type PlanCatalog interface {
	Get(name string) (domain.Plan, bool)
	Default() domain.Plan
}
