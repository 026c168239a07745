package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/poolledger/internal/domain"
	"github.com/iho/poolledger/internal/infrastructure/postgres/generated"
	"github.com/iho/poolledger/internal/usecase"
)

// WithdrawalRepository implements usecase.WithdrawalRepository.
type WithdrawalRepository struct {
	pool    pgxPool
	queries *generated.Queries
}

// NewWithdrawalRepository creates a new WithdrawalRepository.
func NewWithdrawalRepository(pool *pgxpool.Pool) *WithdrawalRepository {
	return newWithdrawalRepositoryWithPool(pool)
}

func newWithdrawalRepositoryWithPool(pool pgxPool) *WithdrawalRepository {
	return &WithdrawalRepository{
		pool:    pool,
		queries: generated.New(pool),
	}
}

func (r *WithdrawalRepository) Create(ctx context.Context, tx usecase.Transaction, withdrawal *domain.WithdrawalRequest) error {
	return queriesFor(r.pool, tx).CreateWithdrawal(ctx, generated.CreateWithdrawalParams{
		ID:                 withdrawal.ID,
		AccountID:          withdrawal.AccountID,
		Amount:             decimalToNumeric(withdrawal.Amount),
		DestinationAddress: withdrawal.DestinationAddress,
		Status:             string(withdrawal.Status),
		EntryReference:     withdrawal.EntryReference,
		RequestedAt:        timeToPgTimestamptz(withdrawal.RequestedAt),
	})
}

func (r *WithdrawalRepository) GetByID(ctx context.Context, id string) (*domain.WithdrawalRequest, error) {
	row, err := r.queries.GetWithdrawalByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrWithdrawalNotFound
		}

		return nil, err
	}

	return rowToWithdrawal(row), nil
}

// List returns requests matching filter, newest first. Empty filter fields match everything.
func (r *WithdrawalRepository) List(ctx context.Context, filter domain.WithdrawalFilter) ([]*domain.WithdrawalRequest, error) {
	rows, err := r.queries.ListWithdrawals(ctx, generated.ListWithdrawalsParams{
		AccountID: filter.AccountID,
		Status:    string(filter.Status),
		Lim:       int32(filter.Limit),
		Off:       int32(filter.Offset),
	})
	if err != nil {
		return nil, err
	}

	withdrawals := make([]*domain.WithdrawalRequest, 0, len(rows))
	for _, row := range rows {
		withdrawals = append(withdrawals, rowToWithdrawal(row))
	}

	return withdrawals, nil
}

func (r *WithdrawalRepository) AcquireProcessing(ctx context.Context, id string, now, staleBefore time.Time) (bool, error) {
	n, err := r.queries.AcquireWithdrawalProcessing(ctx, generated.AcquireWithdrawalProcessingParams{
		Now:         timeToPgTimestamptz(now),
		ID:          id,
		StaleBefore: timeToPgTimestamptz(staleBefore),
	})
	if err != nil {
		return false, err
	}

	return n == 1, nil
}

func (r *WithdrawalRepository) ReleaseProcessing(ctx context.Context, id string) error {
	return r.queries.ReleaseWithdrawalProcessing(ctx, id)
}

// RecordPayout stores the hash of a confirmed payout on a pending request,
// outside of any transaction so it survives a failed finalization.
func (r *WithdrawalRepository) RecordPayout(ctx context.Context, id, txHash string) error {
	q := queriesFor(r.pool, nil)
	n, err := q.RecordWithdrawalPayout(ctx, generated.RecordWithdrawalPayoutParams{
		ChainTxHash: pgtype.Text{String: txHash, Valid: true},
		ID:          id,
	})
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}

	row, err := q.GetWithdrawalByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrWithdrawalNotFound
		}
		return err
	}
	if row.Status != string(domain.WithdrawalStatusPending) {
		return domain.ErrWithdrawalNotPending
	}
	return domain.ErrWithdrawalPaid
}

// Transition moves a pending request to status. A zero row count means the
// request is missing, was already disposed, or is a paid request being rejected.
func (r *WithdrawalRepository) Transition(ctx context.Context, tx usecase.Transaction, id string, status domain.WithdrawalStatus, processedBy string, chainTxHash *string, at time.Time) error {
	q := queriesFor(r.pool, tx)
	n, err := q.TransitionWithdrawal(ctx, generated.TransitionWithdrawalParams{
		Status:      string(status),
		ProcessedBy: pgtype.Text{String: processedBy, Valid: true},
		ChainTxHash: optionalText(chainTxHash),
		ProcessedAt: timeToPgTimestamptz(at),
		ID:          id,
	})
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}

	row, err := q.GetWithdrawalByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrWithdrawalNotFound
		}
		return err
	}
	if row.Status == string(domain.WithdrawalStatusPending) && row.ChainTxHash.Valid {
		return domain.ErrWithdrawalPaid
	}

	return domain.ErrWithdrawalNotPending
}

func rowToWithdrawal(row generated.Withdrawal) *domain.WithdrawalRequest {
	return &domain.WithdrawalRequest{
		ID:                 row.ID,
		AccountID:          row.AccountID,
		Amount:             numericToDecimal(row.Amount),
		DestinationAddress: row.DestinationAddress,
		Status:             domain.WithdrawalStatus(row.Status),
		EntryReference:     row.EntryReference,
		ChainTxHash:        textPtr(row.ChainTxHash),
		ProcessedBy:        textPtr(row.ProcessedBy),
		LockedAt:           timestamptzPtr(row.LockedAt),
		RequestedAt:        row.RequestedAt.Time,
		ProcessedAt:        timestamptzPtr(row.ProcessedAt),
	}
}
