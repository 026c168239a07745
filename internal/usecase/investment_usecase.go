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

// InvestmentUseCase commits available balance into new positions.
type InvestmentUseCase struct {
	txManager    TransactionManager
	accountRepo  AccountRepository
	positionRepo PositionRepository
	entryRepo    EntryRepository
	outboxRepo   OutboxRepository
	plans        PlanCatalog
	transfers    TransferClient
	idGen        IDGenerator
	metrics      *metrics.Metrics
	logger       zerolog.Logger
}

// NewInvestmentUseCase creates a new InvestmentUseCase.
func NewInvestmentUseCase(
	txManager TransactionManager,
	accountRepo AccountRepository,
	positionRepo PositionRepository,
	entryRepo EntryRepository,
	outboxRepo OutboxRepository,
	plans PlanCatalog,
	transfers TransferClient,
	idGen IDGenerator,
	metrics *metrics.Metrics,
	logger zerolog.Logger,
) *InvestmentUseCase {
	return &InvestmentUseCase{
		txManager:    txManager,
		accountRepo:  accountRepo,
		positionRepo: positionRepo,
		entryRepo:    entryRepo,
		outboxRepo:   outboxRepo,
		plans:        plans,
		transfers:    transfers,
		idGen:        idGen,
		metrics:      metrics,
		logger:       logger.With().Str("component", "investment").Logger(),
	}
}

// InvestInput represents input for opening a position.
type InvestInput struct {
	AccountID string
	Amount    decimal.Decimal
	Plan      string
}

// Invest deducts amount from the available balance and opens a position.
// The deduction, the position and its log entry commit together.
func (uc *InvestmentUseCase) Invest(ctx context.Context, input InvestInput) (*domain.Position, error) {
	if err := domain.ValidateAmount(input.Amount); err != nil {
		return nil, err
	}

	plan := uc.plans.Default()
	if input.Plan != "" {
		p, ok := uc.plans.Get(input.Plan)
		if !ok {
			return nil, fmt.Errorf("%w: %s", domain.ErrUnknownPlan, input.Plan)
		}
		plan = p
	}
	if input.Amount.LessThan(plan.MinAmount) {
		return nil, fmt.Errorf("%w: minimum is %s", domain.ErrBelowPlanMinimum, plan.MinAmount)
	}

	account, err := uc.accountRepo.GetByID(ctx, input.AccountID)
	if err != nil {
		return nil, err
	}
	if err := account.ValidateDeduct(input.Amount); err != nil {
		return nil, err
	}

	position, err := uc.open(ctx, account, plan, input.Amount)
	if err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.PositionsOpened.Inc()
	}

	uc.sweep(ctx, account, position)
	return position, nil
}

func (uc *InvestmentUseCase) open(ctx context.Context, account *domain.Account, plan domain.Plan, amount decimal.Decimal) (*domain.Position, error) {
	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	if _, err := uc.accountRepo.ApplyDelta(txCtx, tx, account.ID, domain.BalanceFieldAvailable, amount.Neg()); err != nil {
		return nil, err
	}

	now := time.Now().UTC().Truncate(time.Microsecond)
	position := &domain.Position{
		ID:            uc.idGen.Generate(),
		AccountID:     account.ID,
		Plan:          plan.Name,
		Principal:     amount,
		Rate:          plan.DailyRate,
		AccruedReturn: decimal.Zero,
		Status:        domain.PositionStatusOpen,
		StartedAt:     now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := uc.positionRepo.Create(txCtx, tx, position); err != nil {
		return nil, err
	}

	entry := &domain.LedgerEntry{
		ID:        uc.idGen.Generate(),
		AccountID: account.ID,
		Reference: domain.InvestmentReference(position.ID),
		Category:  domain.CategoryInvestment,
		Amount:    amount,
		Status:    domain.EntryStatusConfirmed,
		Metadata:  map[string]any{"position_id": position.ID, "plan": plan.Name},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, _, err := uc.entryRepo.InsertIfAbsent(txCtx, tx, entry); err != nil {
		return nil, err
	}

	payload := domain.PositionEvent{
		PositionID: position.ID,
		AccountID:  account.ID,
		Amount:     amount.String(),
		Principal:  amount.String(),
	}
	if err := emitEvent(txCtx, tx, uc.outboxRepo, uc.idGen, domain.AggregateTypePosition, position.ID,
		domain.EventTypePositionOpened, payload, now); err != nil {
		return nil, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}
	return position, nil
}

// sweep moves the invested funds from the deposit address into the pool
// wallet. The ledger already reflects the investment, so failure is only
// logged; the entry reference keys the gateway request so a later retry
// cannot move the funds twice.
func (uc *InvestmentUseCase) sweep(ctx context.Context, account *domain.Account, position *domain.Position) {
	reference := domain.InvestmentReference(position.ID)
	txHash, err := uc.transfers.Collect(ctx, account.DepositAddress, position.Principal, reference)
	if err != nil {
		if uc.metrics != nil {
			uc.metrics.SweepFailures.Inc()
		}
		uc.logger.Warn().Err(err).
			Str("account_id", account.ID).
			Str("position_id", position.ID).
			Msg("failed to sweep invested funds")
		return
	}

	uc.logger.Info().
		Str("account_id", account.ID).
		Str("position_id", position.ID).
		Str("tx_hash", txHash).
		Msg("invested funds swept to pool")
}
