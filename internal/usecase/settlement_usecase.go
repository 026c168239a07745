package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/poolledger/internal/domain"
	"github.com/iho/poolledger/internal/infrastructure/metrics"
)

// SettlementUseCase is the single path through which confirmed money
// movements credit an account. The entry is logged first and the balance is
// only credited when the log insert reports the reference was absent.
type SettlementUseCase struct {
	txManager   TransactionManager
	accountRepo AccountRepository
	entryRepo   EntryRepository
	outboxRepo  OutboxRepository
	idGen       IDGenerator
	retrier     Retrier
	metrics     *metrics.Metrics
	logger      zerolog.Logger
}

// NewSettlementUseCase creates a new SettlementUseCase.
func NewSettlementUseCase(
	txManager TransactionManager,
	accountRepo AccountRepository,
	entryRepo EntryRepository,
	outboxRepo OutboxRepository,
	idGen IDGenerator,
	retrier Retrier,
	metrics *metrics.Metrics,
	logger zerolog.Logger,
) *SettlementUseCase {
	return &SettlementUseCase{
		txManager:   txManager,
		accountRepo: accountRepo,
		entryRepo:   entryRepo,
		outboxRepo:  outboxRepo,
		idGen:       idGen,
		retrier:     retrier,
		metrics:     metrics,
		logger:      logger.With().Str("component", "settlement").Logger(),
	}
}

// SettleInput describes a money movement to apply.
type SettleInput struct {
	AccountID   string
	Category    domain.EntryCategory
	Amount      decimal.Decimal
	Reference   string
	ChainTxHash string
	Metadata    map[string]any
	// OnApplied runs inside the settlement transaction, only when the
	// balance is credited. It lets callers make dependent writes atomic
	// with the credit.
	OnApplied func(ctx context.Context, tx Transaction) error
}

// SettleResult reports whether the movement was applied by this call.
type SettleResult struct {
	Applied bool
	Entry   *domain.LedgerEntry
	Balance decimal.Decimal
}

// Settle logs the movement and credits the account at most once per reference.
// A repeated reference returns Applied=false and changes nothing.
func (uc *SettlementUseCase) Settle(ctx context.Context, input SettleInput) (*SettleResult, error) {
	if !input.Category.Settleable() {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidCategory, input.Category)
	}
	if err := domain.ValidateAmount(input.Amount); err != nil {
		return nil, err
	}
	if err := domain.ValidateReference(input.Reference); err != nil {
		return nil, err
	}

	var result *SettleResult
	operation := func() error {
		r, err := uc.settleOnce(ctx, input)
		if err != nil {
			return err
		}
		result = r
		return nil
	}

	var err error
	if uc.retrier != nil {
		err = uc.retrier.Retry(ctx, operation)
	} else {
		err = operation()
	}
	if err != nil {
		if uc.metrics != nil {
			uc.metrics.SettlementErrors.WithLabelValues(string(input.Category)).Inc()
		}
		return nil, err
	}

	if uc.metrics != nil {
		if result.Applied {
			uc.metrics.SettlementsApplied.WithLabelValues(string(input.Category)).Inc()
		} else {
			uc.metrics.SettlementsDuplicate.WithLabelValues(string(input.Category)).Inc()
		}
	}
	return result, nil
}

func (uc *SettlementUseCase) settleOnce(ctx context.Context, input SettleInput) (*SettleResult, error) {
	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	now := time.Now().UTC()
	entry := &domain.LedgerEntry{
		ID:        uc.idGen.Generate(),
		AccountID: input.AccountID,
		Reference: input.Reference,
		Category:  input.Category,
		Amount:    input.Amount,
		Status:    domain.EntryStatusConfirmed,
		Metadata:  input.Metadata,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if input.ChainTxHash != "" {
		hash := input.ChainTxHash
		entry.ChainTxHash = &hash
	}

	inserted, existing, err := uc.entryRepo.InsertIfAbsent(txCtx, tx, entry)
	if err != nil {
		return nil, fmt.Errorf("log settlement: %w", err)
	}
	if !inserted {
		if existing != nil && (existing.AccountID != input.AccountID || !existing.Amount.Equal(input.Amount)) {
			uc.logger.Warn().
				Str("reference", input.Reference).
				Str("account_id", input.AccountID).
				Str("logged_account_id", existing.AccountID).
				Msg("reference already logged for a different movement")
		}
		return &SettleResult{Applied: false, Entry: existing}, nil
	}

	balance, err := uc.accountRepo.ApplyDelta(txCtx, tx, input.AccountID, domain.BalanceFieldAvailable, input.Amount)
	if err != nil {
		return nil, fmt.Errorf("credit account: %w", err)
	}

	if input.OnApplied != nil {
		if err := input.OnApplied(txCtx, tx); err != nil {
			return nil, err
		}
	}

	payload := domain.SettlementAppliedEvent{
		AccountID: input.AccountID,
		Category:  string(input.Category),
		Amount:    input.Amount.String(),
		Reference: input.Reference,
		Balance:   balance.String(),
	}
	if err := emitEvent(txCtx, tx, uc.outboxRepo, uc.idGen, domain.AggregateTypeAccount, input.AccountID,
		domain.EventTypeSettlementApplied, payload, now); err != nil {
		return nil, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	uc.logger.Info().
		Str("account_id", input.AccountID).
		Str("category", string(input.Category)).
		Str("reference", input.Reference).
		Str("amount", input.Amount.String()).
		Msg("settlement applied")

	return &SettleResult{Applied: true, Entry: entry, Balance: balance}, nil
}
