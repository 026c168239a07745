package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/poolledger/internal/domain"
)

var withdrawalColumns = []string{
	"id", "account_id", "amount", "destination_address", "status", "entry_reference",
	"chain_tx_hash", "processed_by", "locked_at", "requested_at", "processed_at",
}

func TestWithdrawalRepository_ListFilters(t *testing.T) {
	pool := newMockPool(t)
	repo := newWithdrawalRepositoryWithPool(pool)
	now := time.Now().UTC()

	pool.ExpectQuery("FROM withdrawals").
		WithArgs("", "pending", int32(50), int32(0)).
		WillReturnRows(pgxmock.NewRows(withdrawalColumns).
			AddRow("w-1", "acc-1", "12.5", "0xdest", "pending", "withdrawal:w-1", nil, nil, nil,
				timeToPgTimestamptz(now), nil))

	got, err := repo.List(context.Background(), domain.WithdrawalFilter{Status: domain.WithdrawalStatusPending, Limit: 50})

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, domain.WithdrawalStatusPending, got[0].Status)
	assert.Nil(t, got[0].ProcessedAt)
	assertExpectations(t, pool)
}

func TestWithdrawalRepository_AcquireProcessing(t *testing.T) {
	pool := newMockPool(t)
	repo := newWithdrawalRepositoryWithPool(pool)
	now := time.Now().UTC()
	stale := now.Add(-5 * time.Minute)

	pool.ExpectExec("UPDATE withdrawals SET locked_at = \\$1").
		WithArgs(timeToPgTimestamptz(now), "w-1", timeToPgTimestamptz(stale)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	ok, err := repo.AcquireProcessing(context.Background(), "w-1", now, stale)

	require.NoError(t, err)
	assert.False(t, ok)
	assertExpectations(t, pool)
}

func TestWithdrawalRepository_Transition(t *testing.T) {
	hash := "0xabc"

	tests := []struct {
		name     string
		status   domain.WithdrawalStatus
		hash     *string
		affected int64
		current  []any
		lookup   bool
		wantErr  error
	}{
		{name: "pending", status: domain.WithdrawalStatusApproved, hash: &hash, affected: 1},
		{name: "already disposed", status: domain.WithdrawalStatusApproved, hash: &hash, lookup: true,
			current: []any{"rejected", nil}, wantErr: domain.ErrWithdrawalNotPending},
		{name: "missing", status: domain.WithdrawalStatusApproved, hash: &hash, lookup: true,
			wantErr: domain.ErrWithdrawalNotFound},
		{name: "reject after payout", status: domain.WithdrawalStatusRejected, lookup: true,
			current: []any{"pending", "0xpaid"}, wantErr: domain.ErrWithdrawalPaid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pool := newMockPool(t)
			repo := newWithdrawalRepositoryWithPool(pool)
			now := time.Now().UTC()

			pool.ExpectExec("WHERE id = \\$5\\s+AND status = 'pending'\\s+AND \\(\\$1::TEXT <> 'rejected'").
				WithArgs(string(tt.status), pgtype.Text{String: "admin-1", Valid: true}, optionalText(tt.hash), timeToPgTimestamptz(now), "w-1").
				WillReturnResult(pgxmock.NewResult("UPDATE", tt.affected))
			if tt.lookup {
				rows := pgxmock.NewRows(withdrawalColumns)
				if tt.current != nil {
					rows.AddRow("w-1", "acc-1", "12.5", "0xdest", tt.current[0], "withdrawal:w-1", tt.current[1], "admin-2", nil,
						timeToPgTimestamptz(now), nil)
				}
				pool.ExpectQuery("FROM withdrawals WHERE id = \\$1").
					WithArgs("w-1").
					WillReturnRows(rows)
			}

			err := repo.Transition(context.Background(), nil, "w-1", tt.status, "admin-1", tt.hash, now)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assertExpectations(t, pool)
		})
	}
}

func TestWithdrawalRepository_RecordPayout(t *testing.T) {
	tests := []struct {
		name     string
		affected int64
		current  []any
		lookup   bool
		wantErr  error
	}{
		{name: "recorded", affected: 1},
		{name: "other payout on record", lookup: true, current: []any{"pending", "0xother"}, wantErr: domain.ErrWithdrawalPaid},
		{name: "already disposed", lookup: true, current: []any{"approved", "0xpaid"}, wantErr: domain.ErrWithdrawalNotPending},
		{name: "missing", lookup: true, wantErr: domain.ErrWithdrawalNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pool := newMockPool(t)
			repo := newWithdrawalRepositoryWithPool(pool)
			now := time.Now().UTC()

			pool.ExpectExec("UPDATE withdrawals SET chain_tx_hash = \\$1").
				WithArgs(pgtype.Text{String: "0xpaid", Valid: true}, "w-1").
				WillReturnResult(pgxmock.NewResult("UPDATE", tt.affected))
			if tt.lookup {
				rows := pgxmock.NewRows(withdrawalColumns)
				if tt.current != nil {
					rows.AddRow("w-1", "acc-1", "12.5", "0xdest", tt.current[0], "withdrawal:w-1", tt.current[1], nil, nil,
						timeToPgTimestamptz(now), nil)
				}
				pool.ExpectQuery("FROM withdrawals WHERE id = \\$1").
					WithArgs("w-1").
					WillReturnRows(rows)
			}

			err := repo.RecordPayout(context.Background(), "w-1", "0xpaid")

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assertExpectations(t, pool)
		})
	}
}
