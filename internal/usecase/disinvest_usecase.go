package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/poolledger/internal/domain"
	"github.com/iho/poolledger/internal/infrastructure/metrics"
)

// DisinvestUseCase returns invested principal to a participant, taking it
// from their positions oldest first.
type DisinvestUseCase struct {
	txManager    TransactionManager
	accountRepo  AccountRepository
	positionRepo PositionRepository
	outboxRepo   OutboxRepository
	settlement   *SettlementUseCase
	transfers    TransferClient
	idGen        IDGenerator
	decimals     int32
	metrics      *metrics.Metrics
	logger       zerolog.Logger
}

// NewDisinvestUseCase creates a new DisinvestUseCase.
func NewDisinvestUseCase(
	txManager TransactionManager,
	accountRepo AccountRepository,
	positionRepo PositionRepository,
	outboxRepo OutboxRepository,
	settlement *SettlementUseCase,
	transfers TransferClient,
	idGen IDGenerator,
	tokenDecimals int32,
	metrics *metrics.Metrics,
	logger zerolog.Logger,
) *DisinvestUseCase {
	if tokenDecimals < 0 {
		tokenDecimals = domain.DefaultTokenDecimals
	}
	return &DisinvestUseCase{
		txManager:    txManager,
		accountRepo:  accountRepo,
		positionRepo: positionRepo,
		outboxRepo:   outboxRepo,
		settlement:   settlement,
		transfers:    transfers,
		idGen:        idGen,
		decimals:     tokenDecimals,
		metrics:      metrics,
		logger:       logger.With().Str("component", "disinvest").Logger(),
	}
}

// DisinvestResult reports the realized amount and any shortfall.
type DisinvestResult struct {
	Requested   decimal.Decimal
	Realized    decimal.Decimal
	Shortfall   decimal.Decimal
	Reference   string
	Balance     decimal.Decimal
	Allocations []domain.Allocation
}

// Disinvest withdraws up to amount of principal. Requests larger than the
// invested principal are served partially and report the shortfall.
func (uc *DisinvestUseCase) Disinvest(ctx context.Context, accountID string, amount decimal.Decimal) (*DisinvestResult, error) {
	result, err := uc.disinvest(ctx, accountID, amount)
	if uc.metrics != nil {
		outcome := "success"
		switch {
		case err != nil:
			outcome = "error"
		case result.Shortfall.IsPositive():
			outcome = "partial"
		}
		uc.metrics.Disinvestments.WithLabelValues(outcome).Inc()
	}
	return result, err
}

func (uc *DisinvestUseCase) disinvest(ctx context.Context, accountID string, amount decimal.Decimal) (*DisinvestResult, error) {
	if err := domain.ValidateAmount(amount); err != nil {
		return nil, err
	}
	if err := domain.ValidatePrecision(amount, uc.decimals); err != nil {
		return nil, err
	}

	account, err := uc.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	positions, err := uc.positionRepo.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	allocation := domain.AllocateFIFO(positions, amount)
	if !allocation.Realized.IsPositive() {
		return nil, domain.ErrNothingToDisinvest
	}

	// Principal is reduced before any money moves.
	if err := uc.reducePrincipal(ctx, accountID, allocation); err != nil {
		return nil, err
	}

	txHash, err := uc.transfers.Transfer(ctx, account.DepositAddress, allocation.Realized, "disinvest:"+uuid.NewString())
	if err != nil {
		uc.logger.Error().Err(err).Str("account_id", accountID).Msg("disinvestment transfer failed, restoring principal")
		uc.restorePrincipal(ctx, allocation)
		return nil, transferError(err)
	}

	settled, err := uc.settlement.Settle(ctx, SettleInput{
		AccountID:   accountID,
		Category:    domain.CategoryDisinvestment,
		Amount:      allocation.Realized,
		Reference:   txHash,
		ChainTxHash: txHash,
		Metadata:    map[string]any{"requested": amount.String(), "positions": len(allocation.Allocations)},
	})
	if err != nil {
		uc.logger.Error().Err(err).
			Str("account_id", accountID).
			Str("tx_hash", txHash).
			Msg("disinvestment transferred but settlement failed")
		return nil, err
	}

	return &DisinvestResult{
		Requested:   allocation.Requested,
		Realized:    allocation.Realized,
		Shortfall:   allocation.Shortfall,
		Reference:   txHash,
		Balance:     settled.Balance,
		Allocations: allocation.Allocations,
	}, nil
}

func (uc *DisinvestUseCase) reducePrincipal(ctx context.Context, accountID string, allocation domain.AllocationResult) error {
	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	now := time.Now().UTC()
	for _, a := range allocation.Allocations {
		ok, err := uc.positionRepo.ReducePrincipal(txCtx, tx, a.PositionID, a.Before, a.Deduction)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrPositionChanged
		}

		payload := domain.PositionEvent{
			PositionID: a.PositionID,
			AccountID:  accountID,
			Amount:     a.Deduction.String(),
			Principal:  a.After().String(),
		}
		if err := emitEvent(txCtx, tx, uc.outboxRepo, uc.idGen, domain.AggregateTypePosition, a.PositionID,
			domain.EventTypePositionDisinvested, payload, now); err != nil {
			return err
		}
	}

	return tx.Commit(txCtx)
}

// restorePrincipal undoes reducePrincipal after a failed transfer.
func (uc *DisinvestUseCase) restorePrincipal(ctx context.Context, allocation domain.AllocationResult) {
	txCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		uc.logger.Error().Err(err).Msg("failed to begin principal restore")
		return
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	for _, a := range allocation.Allocations {
		if err := uc.positionRepo.RestorePrincipal(txCtx, tx, a.PositionID, a.Deduction); err != nil {
			uc.logger.Error().Err(err).Str("position_id", a.PositionID).Msg("failed to restore principal")
			return
		}
	}

	if err := tx.Commit(txCtx); err != nil {
		uc.logger.Error().Err(err).Msg("failed to commit principal restore")
	}
}
