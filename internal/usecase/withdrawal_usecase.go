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

// WithdrawalUseCase drives cash-out requests from creation to disposition.
type WithdrawalUseCase struct {
	txManager      TransactionManager
	accountRepo    AccountRepository
	entryRepo      EntryRepository
	withdrawalRepo WithdrawalRepository
	outboxRepo     OutboxRepository
	auditRepo      AuditRepository
	transfers      TransferClient
	idGen          IDGenerator
	retrier        Retrier
	decimals       int32
	lockTTL        time.Duration
	metrics        *metrics.Metrics
	logger         zerolog.Logger
}

// NewWithdrawalUseCase creates a new WithdrawalUseCase.
func NewWithdrawalUseCase(
	txManager TransactionManager,
	accountRepo AccountRepository,
	entryRepo EntryRepository,
	withdrawalRepo WithdrawalRepository,
	outboxRepo OutboxRepository,
	auditRepo AuditRepository,
	transfers TransferClient,
	idGen IDGenerator,
	retrier Retrier,
	tokenDecimals int32,
	lockTTL time.Duration,
	metrics *metrics.Metrics,
	logger zerolog.Logger,
) *WithdrawalUseCase {
	if lockTTL <= 0 {
		lockTTL = DefaultWithdrawalLockTTL
	}
	if tokenDecimals < 0 {
		tokenDecimals = domain.DefaultTokenDecimals
	}
	return &WithdrawalUseCase{
		txManager:      txManager,
		accountRepo:    accountRepo,
		entryRepo:      entryRepo,
		withdrawalRepo: withdrawalRepo,
		outboxRepo:     outboxRepo,
		auditRepo:      auditRepo,
		transfers:      transfers,
		idGen:          idGen,
		retrier:        retrier,
		decimals:       tokenDecimals,
		lockTTL:        lockTTL,
		metrics:        metrics,
		logger:         logger.With().Str("component", "withdrawal").Logger(),
	}
}

// CreateWithdrawalInput represents input for requesting a withdrawal.
type CreateWithdrawalInput struct {
	AccountID   string
	Amount      decimal.Decimal
	Destination string
}

// Create deducts the amount from the available balance and records a
// pending request with its pending log entry, all in one transaction.
func (uc *WithdrawalUseCase) Create(ctx context.Context, input CreateWithdrawalInput) (*domain.WithdrawalRequest, error) {
	now := time.Now().UTC()
	id := uc.idGen.Generate()
	withdrawal := &domain.WithdrawalRequest{
		ID:                 id,
		AccountID:          input.AccountID,
		Amount:             input.Amount,
		DestinationAddress: input.Destination,
		Status:             domain.WithdrawalStatusPending,
		EntryReference:     domain.WithdrawalReference(id),
		RequestedAt:        now,
	}
	if err := withdrawal.Validate(); err != nil {
		return nil, err
	}
	if err := domain.ValidatePrecision(input.Amount, uc.decimals); err != nil {
		return nil, err
	}

	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	if _, err := uc.accountRepo.ApplyDelta(txCtx, tx, input.AccountID, domain.BalanceFieldAvailable, input.Amount.Neg()); err != nil {
		return nil, err
	}

	entry := &domain.LedgerEntry{
		ID:        uc.idGen.Generate(),
		AccountID: input.AccountID,
		Reference: withdrawal.EntryReference,
		Category:  domain.CategoryWithdrawal,
		Amount:    input.Amount,
		Status:    domain.EntryStatusPending,
		Metadata:  map[string]any{"withdrawal_id": id, "destination": input.Destination},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, _, err := uc.entryRepo.InsertIfAbsent(txCtx, tx, entry); err != nil {
		return nil, err
	}

	if err := uc.withdrawalRepo.Create(txCtx, tx, withdrawal); err != nil {
		return nil, err
	}

	if err := emitEvent(txCtx, tx, uc.outboxRepo, uc.idGen, domain.AggregateTypeWithdrawal, id,
		domain.EventTypeWithdrawalRequested, withdrawalPayload(withdrawal), now); err != nil {
		return nil, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	uc.countStatus(domain.WithdrawalStatusPending)
	return withdrawal, nil
}

// Get returns a withdrawal request.
func (uc *WithdrawalUseCase) Get(ctx context.Context, id string) (*domain.WithdrawalRequest, error) {
	return uc.withdrawalRepo.GetByID(ctx, id)
}

// List returns withdrawal requests matching filter.
func (uc *WithdrawalUseCase) List(ctx context.Context, filter domain.WithdrawalFilter) ([]*domain.WithdrawalRequest, error) {
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidStatus, filter.Status)
	}
	filter.Limit, filter.Offset = domain.ValidatePagination(filter.Limit, filter.Offset)
	return uc.withdrawalRepo.List(ctx, filter)
}

// Approve pays the request out and, only once the transfer is confirmed,
// marks it approved and its entry confirmed. A failed transfer leaves the
// request pending. The confirmed payout is recorded on the request before
// finalization, so a retried approval finalizes without paying again.
func (uc *WithdrawalUseCase) Approve(ctx context.Context, id, adminID string) (*domain.WithdrawalRequest, error) {
	withdrawal, err := uc.acquire(ctx, id)
	if err != nil {
		return nil, err
	}
	holdLock := false
	defer func() {
		if !holdLock {
			uc.release(ctx, id)
		}
	}()

	before := *withdrawal
	var txHash string
	if withdrawal.ChainTxHash != nil {
		txHash = *withdrawal.ChainTxHash
		uc.logger.Info().Str("withdrawal_id", id).Str("tx_hash", txHash).Msg("payout already on record, finalizing approval")
	} else {
		txHash, err = uc.transfers.Transfer(ctx, withdrawal.DestinationAddress, withdrawal.Amount, withdrawal.EntryReference)
		if err != nil {
			uc.logger.Error().Err(err).Str("withdrawal_id", id).Msg("withdrawal transfer failed, request stays pending")
			uc.audit(ctx, adminID, domain.AuditActionWithdrawalApprove, withdrawal, nil, err)
			return nil, transferError(err)
		}

		err = uc.retry(ctx, func() error {
			return uc.withdrawalRepo.RecordPayout(ctx, id, txHash)
		})
		if err != nil {
			// The lock stays held until it goes stale so no rejection can
			// refund a request that was paid.
			holdLock = true
			uc.logger.Error().Err(err).
				Str("withdrawal_id", id).
				Str("tx_hash", txHash).
				Msg("withdrawal paid but payout not recorded, holding lock")
			return nil, err
		}
		withdrawal.ChainTxHash = &txHash
	}

	now := time.Now().UTC()
	err = uc.retry(ctx, func() error {
		return uc.finalize(ctx, withdrawal, domain.WithdrawalStatusApproved, domain.EntryStatusConfirmed, adminID, &txHash, now)
	})
	if err != nil {
		uc.logger.Error().Err(err).
			Str("withdrawal_id", id).
			Str("tx_hash", txHash).
			Msg("withdrawal paid but approval not recorded")
		return nil, err
	}

	withdrawal.Status = domain.WithdrawalStatusApproved
	withdrawal.ProcessedBy = &adminID
	withdrawal.ProcessedAt = &now

	uc.countStatus(domain.WithdrawalStatusApproved)
	uc.audit(ctx, adminID, domain.AuditActionWithdrawalApprove, &before, withdrawal, nil)
	return withdrawal, nil
}

// Reject refunds the held amount and marks the entry failed. A request with
// a recorded payout can only be approved.
func (uc *WithdrawalUseCase) Reject(ctx context.Context, id, adminID string) (*domain.WithdrawalRequest, error) {
	withdrawal, err := uc.acquire(ctx, id)
	if err != nil {
		return nil, err
	}
	defer uc.release(ctx, id)

	if withdrawal.ChainTxHash != nil {
		uc.audit(ctx, adminID, domain.AuditActionWithdrawalReject, withdrawal, nil, domain.ErrWithdrawalPaid)
		return nil, domain.ErrWithdrawalPaid
	}

	before := *withdrawal
	now := time.Now().UTC()
	err = uc.retry(ctx, func() error {
		return uc.finalize(ctx, withdrawal, domain.WithdrawalStatusRejected, domain.EntryStatusFailed, adminID, nil, now)
	})
	if err != nil {
		uc.audit(ctx, adminID, domain.AuditActionWithdrawalReject, withdrawal, nil, err)
		return nil, err
	}

	withdrawal.Status = domain.WithdrawalStatusRejected
	withdrawal.ProcessedBy = &adminID
	withdrawal.ProcessedAt = &now

	uc.countStatus(domain.WithdrawalStatusRejected)
	uc.audit(ctx, adminID, domain.AuditActionWithdrawalReject, &before, withdrawal, nil)
	return withdrawal, nil
}

// acquire loads a pending request and takes its processing lock.
func (uc *WithdrawalUseCase) acquire(ctx context.Context, id string) (*domain.WithdrawalRequest, error) {
	withdrawal, err := uc.withdrawalRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if withdrawal.IsTerminal() {
		return nil, domain.ErrWithdrawalNotPending
	}

	now := time.Now().UTC()
	ok, err := uc.withdrawalRepo.AcquireProcessing(ctx, id, now, now.Add(-uc.lockTTL))
	if err != nil {
		return nil, err
	}
	if !ok {
		current, err := uc.withdrawalRepo.GetByID(ctx, id)
		if err == nil && current.IsTerminal() {
			return nil, domain.ErrWithdrawalNotPending
		}
		return nil, domain.ErrWithdrawalBusy
	}

	// Reload under the lock to see a payout recorded by an earlier holder.
	withdrawal, err = uc.withdrawalRepo.GetByID(ctx, id)
	if err != nil {
		uc.release(ctx, id)
		return nil, err
	}
	return withdrawal, nil
}

func (uc *WithdrawalUseCase) release(ctx context.Context, id string) {
	releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), DefaultTransactionTimeout)
	defer cancel()
	if err := uc.withdrawalRepo.ReleaseProcessing(releaseCtx, id); err != nil {
		uc.logger.Error().Err(err).Str("withdrawal_id", id).Msg("failed to release withdrawal lock")
	}
}

// finalize moves the request to its terminal status. Rejection refunds the
// amount in the same transaction.
func (uc *WithdrawalUseCase) finalize(
	ctx context.Context,
	withdrawal *domain.WithdrawalRequest,
	status domain.WithdrawalStatus,
	entryStatus domain.EntryStatus,
	adminID string,
	txHash *string,
	now time.Time,
) error {
	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	if err := uc.withdrawalRepo.Transition(txCtx, tx, withdrawal.ID, status, adminID, txHash, now); err != nil {
		return err
	}

	if status == domain.WithdrawalStatusRejected {
		if _, err := uc.accountRepo.ApplyDelta(txCtx, tx, withdrawal.AccountID, domain.BalanceFieldAvailable, withdrawal.Amount); err != nil {
			return err
		}
	}

	if err := uc.entryRepo.UpdateStatus(txCtx, tx, withdrawal.EntryReference, entryStatus, txHash, now); err != nil {
		return err
	}

	eventType := domain.EventTypeWithdrawalApproved
	if status == domain.WithdrawalStatusRejected {
		eventType = domain.EventTypeWithdrawalRejected
	}
	payload := withdrawalPayload(withdrawal)
	payload.Status = string(status)
	if txHash != nil {
		payload.TxHash = *txHash
	}
	if err := emitEvent(txCtx, tx, uc.outboxRepo, uc.idGen, domain.AggregateTypeWithdrawal, withdrawal.ID,
		eventType, payload, now); err != nil {
		return err
	}

	return tx.Commit(txCtx)
}

func (uc *WithdrawalUseCase) retry(ctx context.Context, operation func() error) error {
	if uc.retrier == nil {
		return operation()
	}
	return uc.retrier.Retry(ctx, operation)
}

func (uc *WithdrawalUseCase) countStatus(status domain.WithdrawalStatus) {
	if uc.metrics != nil {
		uc.metrics.Withdrawals.WithLabelValues(string(status)).Inc()
	}
}

// audit records an administrative disposition. Audit failures never undo it.
func (uc *WithdrawalUseCase) audit(ctx context.Context, adminID string, action domain.AuditAction, before, after *domain.WithdrawalRequest, actionErr error) {
	if uc.auditRepo == nil {
		return
	}

	log := &domain.AuditLog{
		ID:           uc.idGen.Generate(),
		UserID:       adminID,
		Action:       string(action),
		ResourceType: domain.AggregateTypeWithdrawal,
		ResourceID:   before.ID,
		BeforeState:  domain.MarshalState(before),
		Status:       string(domain.AuditStatusSuccess),
		CreatedAt:    time.Now().UTC(),
	}
	if after != nil {
		log.AfterState = domain.MarshalState(after)
	}
	if actionErr != nil {
		log.Status = string(domain.AuditStatusFailure)
		log.ErrorMessage = actionErr.Error()
	}

	if err := uc.auditRepo.Create(context.WithoutCancel(ctx), log); err != nil {
		uc.logger.Warn().Err(err).Str("withdrawal_id", before.ID).Msg("failed to write audit log")
		return
	}
	if uc.metrics != nil {
		uc.metrics.AuditLogsCreated.WithLabelValues(log.Action, log.Status).Inc()
	}
}

func withdrawalPayload(w *domain.WithdrawalRequest) domain.WithdrawalEvent {
	return domain.WithdrawalEvent{
		WithdrawalID: w.ID,
		AccountID:    w.AccountID,
		Amount:       w.Amount.String(),
		Destination:  w.DestinationAddress,
		Status:       string(w.Status),
	}
}
