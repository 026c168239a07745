package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/iho/poolledger/internal/domain"
	"github.com/iho/poolledger/internal/infrastructure/postgres/generated"
	"github.com/iho/poolledger/internal/usecase"
)

const pgErrUniqueViolation = "23505"

// AccountRepository implements usecase.AccountRepository.
type AccountRepository struct {
	pool    pgxPool
	queries *generated.Queries
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return newAccountRepositoryWithPool(pool)
}

func newAccountRepositoryWithPool(pool pgxPool) *AccountRepository {
	return &AccountRepository{
		pool:    pool,
		queries: generated.New(pool),
	}
}

// Create creates a new account.
func (r *AccountRepository) Create(ctx context.Context, tx usecase.Transaction, account *domain.Account) error {
	err := queriesFor(r.pool, tx).CreateAccount(ctx, generated.CreateAccountParams{
		ID:               account.ID,
		Name:             account.Name,
		DepositAddress:   account.DepositAddress,
		AvailableBalance: decimalToNumeric(account.AvailableBalance),
		CreatedAt:        timeToPgTimestamptz(account.CreatedAt),
		UpdatedAt:        timeToPgTimestamptz(account.UpdatedAt),
	})
	if isUniqueViolation(err) {
		return domain.ErrAccountExists
	}

	return err
}

// GetByID retrieves an account by ID.
func (r *AccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	row, err := r.queries.GetAccountByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}

		return nil, err
	}

	return rowToAccount(row), nil
}

// GetByDepositAddress looks an account up by deposit address, ignoring case.
func (r *AccountRepository) GetByDepositAddress(ctx context.Context, address string) (*domain.Account, error) {
	row, err := r.queries.GetAccountByDepositAddress(ctx, address)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}

		return nil, err
	}

	return rowToAccount(row), nil
}

// List lists accounts with pagination.
func (r *AccountRepository) List(ctx context.Context, limit, offset int) ([]*domain.Account, error) {
	rows, err := r.queries.ListAccounts(ctx, generated.ListAccountsParams{
		Limit:  int32(limit),
		Offset: int32(offset),
	})
	if err != nil {
		return nil, err
	}

	accounts := make([]*domain.Account, 0, len(rows))
	for _, row := range rows {
		accounts = append(accounts, rowToAccount(row))
	}

	return accounts, nil
}

// ApplyDelta adds delta to the balance in a single statement. The row is
// left untouched when the result would be negative.
func (r *AccountRepository) ApplyDelta(ctx context.Context, tx usecase.Transaction, id string, field domain.BalanceField, delta decimal.Decimal) (decimal.Decimal, error) {
	if !field.IsValid() {
		return decimal.Zero, fmt.Errorf("%w: %s", domain.ErrInvalidBalanceField, field)
	}

	q := queriesFor(r.pool, tx)
	balance, err := q.ApplyAvailableDelta(ctx, generated.ApplyAvailableDeltaParams{
		Delta:     decimalToNumeric(delta),
		UpdatedAt: timeToPgTimestamptz(time.Now().UTC()),
		ID:        id,
	})
	if err == nil {
		return numericToDecimal(balance), nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, err
	}

	exists, err := q.AccountExists(ctx, id)
	if err != nil {
		return decimal.Zero, err
	}
	if !exists {
		return decimal.Zero, domain.ErrAccountNotFound
	}

	return decimal.Zero, domain.ErrInsufficientFunds
}

// AcquireClaimLock takes the claim lock if it is free or stale.
func (r *AccountRepository) AcquireClaimLock(ctx context.Context, id string, now, staleBefore time.Time) (bool, error) {
	n, err := r.queries.AcquireClaimLock(ctx, generated.AcquireClaimLockParams{
		Now:         timeToPgTimestamptz(now),
		ID:          id,
		StaleBefore: timeToPgTimestamptz(staleBefore),
	})
	if err != nil {
		return false, err
	}

	return n == 1, nil
}

// ReleaseClaimLock clears the claim lock.
func (r *AccountRepository) ReleaseClaimLock(ctx context.Context, id string) error {
	return r.queries.ReleaseClaimLock(ctx, id)
}

func rowToAccount(row generated.Account) *domain.Account {
	return &domain.Account{
		ID:               row.ID,
		Name:             row.Name,
		DepositAddress:   row.DepositAddress,
		AvailableBalance: numericToDecimal(row.AvailableBalance),
		ClaimLocked:      row.ClaimLocked,
		ClaimLockedAt:    timestamptzPtr(row.ClaimLockedAt),
		CreatedAt:        row.CreatedAt.Time,
		UpdatedAt:        row.UpdatedAt.Time,
	}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgErrUniqueViolation
}
