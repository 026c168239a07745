package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/poolledger/internal/domain"
)

// AccountUseCase handles account business logic.
type AccountUseCase struct {
	txManager    TransactionManager
	accountRepo  AccountRepository
	positionRepo PositionRepository
	outboxRepo   OutboxRepository
	auditRepo    AuditRepository
	idGen        IDGenerator
}

// NewAccountUseCase creates a new AccountUseCase.
func NewAccountUseCase(
	txManager TransactionManager,
	accountRepo AccountRepository,
	positionRepo PositionRepository,
	outboxRepo OutboxRepository,
	auditRepo AuditRepository,
	idGen IDGenerator,
) *AccountUseCase {
	return &AccountUseCase{
		txManager:    txManager,
		accountRepo:  accountRepo,
		positionRepo: positionRepo,
		outboxRepo:   outboxRepo,
		auditRepo:    auditRepo,
		idGen:        idGen,
	}
}

// CreateAccountInput represents input for creating an account.
type CreateAccountInput struct {
	ID             string
	Name           string
	DepositAddress string
	CreatedBy      string
}

// CreateAccount provisions an account bound to its custodial deposit address.
func (uc *AccountUseCase) CreateAccount(ctx context.Context, input CreateAccountInput) (*domain.Account, error) {
	if err := domain.ValidateAccountName(input.Name); err != nil {
		return nil, err
	}
	if err := domain.ValidateAddress(input.DepositAddress); err != nil {
		return nil, err
	}

	id := input.ID
	if id == "" {
		id = uc.idGen.Generate()
	}

	now := time.Now().UTC()
	account := &domain.Account{
		ID:               id,
		Name:             input.Name,
		DepositAddress:   domain.NormalizeAddress(input.DepositAddress),
		AvailableBalance: decimal.Zero,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	if err := uc.accountRepo.Create(txCtx, tx, account); err != nil {
		return nil, err
	}

	payload := map[string]any{"account_id": account.ID, "deposit_address": account.DepositAddress}
	if err := emitEvent(txCtx, tx, uc.outboxRepo, uc.idGen, domain.AggregateTypeAccount, account.ID,
		domain.EventTypeAccountCreated, payload, now); err != nil {
		return nil, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	if uc.auditRepo != nil {
		actor := input.CreatedBy
		if actor == "" {
			actor = SystemActor
		}
		_ = uc.auditRepo.Create(ctx, &domain.AuditLog{
			ID:           uc.idGen.Generate(),
			UserID:       actor,
			Action:       string(domain.AuditActionAccountCreate),
			ResourceType: domain.AggregateTypeAccount,
			ResourceID:   account.ID,
			AfterState:   domain.MarshalState(account),
			Status:       string(domain.AuditStatusSuccess),
			CreatedAt:    now,
		})
	}

	return account, nil
}

// GetAccount retrieves an account by ID.
func (uc *AccountUseCase) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	return uc.accountRepo.GetByID(ctx, id)
}

// ListAccounts lists accounts with pagination.
func (uc *AccountUseCase) ListAccounts(ctx context.Context, limit, offset int) ([]*domain.Account, error) {
	limit, offset = domain.ValidatePagination(limit, offset)
	return uc.accountRepo.List(ctx, limit, offset)
}

// AccountSummary aggregates an account's cash and invested position.
type AccountSummary struct {
	Account       *domain.Account
	Invested      decimal.Decimal
	Accrued       decimal.Decimal
	Total         decimal.Decimal
	OpenPositions int

	// ClaimInProgress is set while a live claim holds the account lock.
	ClaimInProgress bool
}

// GetSummary returns balance, invested principal and unclaimed return.
func (uc *AccountUseCase) GetSummary(ctx context.Context, id string) (*AccountSummary, error) {
	account, err := uc.accountRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	positions, err := uc.positionRepo.ListByAccount(ctx, id)
	if err != nil {
		return nil, err
	}

	summary := &AccountSummary{
		Account:         account,
		Invested:        decimal.Zero,
		Accrued:         decimal.Zero,
		ClaimInProgress: !account.ClaimLockExpired(time.Now().UTC(), DefaultClaimLockTTL),
	}
	for _, p := range positions {
		summary.Accrued = summary.Accrued.Add(p.AccruedReturn)
		if p.IsOpen() {
			summary.Invested = summary.Invested.Add(p.Principal)
			summary.OpenPositions++
		}
	}
	summary.Total = account.AvailableBalance.Add(summary.Invested).Add(summary.Accrued)
	return summary, nil
}

// ListPositions returns the account's positions, oldest first.
func (uc *AccountUseCase) ListPositions(ctx context.Context, id string) ([]*domain.Position, error) {
	if _, err := uc.accountRepo.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return uc.positionRepo.ListByAccount(ctx, id)
}
