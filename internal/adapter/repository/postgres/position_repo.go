package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/iho/poolledger/internal/domain"
	"github.com/iho/poolledger/internal/infrastructure/postgres/generated"
	"github.com/iho/poolledger/internal/usecase"
)

// PositionRepository implements usecase.PositionRepository.
type PositionRepository struct {
	pool    pgxPool
	queries *generated.Queries
}

// NewPositionRepository creates a new PositionRepository.
func NewPositionRepository(pool *pgxpool.Pool) *PositionRepository {
	return newPositionRepositoryWithPool(pool)
}

func newPositionRepositoryWithPool(pool pgxPool) *PositionRepository {
	return &PositionRepository{
		pool:    pool,
		queries: generated.New(pool),
	}
}

// Create inserts a position.
func (r *PositionRepository) Create(ctx context.Context, tx usecase.Transaction, position *domain.Position) error {
	return queriesFor(r.pool, tx).CreatePosition(ctx, generated.CreatePositionParams{
		ID:            position.ID,
		AccountID:     position.AccountID,
		Plan:          position.Plan,
		Principal:     decimalToNumeric(position.Principal),
		Rate:          decimalToNumeric(position.Rate),
		AccruedReturn: decimalToNumeric(position.AccruedReturn),
		AccrualCursor: optionalTimestamptz(position.AccrualCursor),
		Status:        string(position.Status),
		StartedAt:     timeToPgTimestamptz(position.StartedAt),
		CreatedAt:     timeToPgTimestamptz(position.CreatedAt),
		UpdatedAt:     timeToPgTimestamptz(position.UpdatedAt),
	})
}

// GetByID retrieves a position by ID.
func (r *PositionRepository) GetByID(ctx context.Context, id string) (*domain.Position, error) {
	row, err := r.queries.GetPositionByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPositionNotFound
		}

		return nil, err
	}

	return rowToPosition(row), nil
}

// ListByAccount returns the account's positions, oldest first.
func (r *PositionRepository) ListByAccount(ctx context.Context, accountID string) ([]*domain.Position, error) {
	rows, err := r.queries.ListPositionsByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	return rowsToPositions(rows), nil
}

// ListOpenAfter returns up to limit open positions with id greater than afterID.
func (r *PositionRepository) ListOpenAfter(ctx context.Context, afterID string, limit int) ([]*domain.Position, error) {
	rows, err := r.queries.ListOpenPositionsAfter(ctx, generated.ListOpenPositionsAfterParams{
		AfterID: afterID,
		Lim:     int32(limit),
	})
	if err != nil {
		return nil, err
	}

	return rowsToPositions(rows), nil
}

// AdvanceAccrual moves the cursor forward and adds increment. It reports
// false when another tick already moved the cursor.
func (r *PositionRepository) AdvanceAccrual(ctx context.Context, id string, expectedCursor *time.Time, newCursor time.Time, increment decimal.Decimal) (bool, error) {
	n, err := r.queries.AdvanceAccrual(ctx, generated.AdvanceAccrualParams{
		Increment:      decimalToNumeric(increment),
		NewCursor:      timeToPgTimestamptz(newCursor),
		ID:             id,
		ExpectedCursor: optionalTimestamptz(expectedCursor),
	})
	if err != nil {
		return false, err
	}

	return n == 1, nil
}

// ReducePrincipal deducts from principal only if it still equals expected.
func (r *PositionRepository) ReducePrincipal(ctx context.Context, tx usecase.Transaction, id string, expected, deduction decimal.Decimal) (bool, error) {
	n, err := queriesFor(r.pool, tx).ReducePrincipal(ctx, generated.ReducePrincipalParams{
		Deduction: decimalToNumeric(deduction),
		UpdatedAt: timeToPgTimestamptz(time.Now().UTC()),
		ID:        id,
		Expected:  decimalToNumeric(expected),
	})
	if err != nil {
		return false, err
	}

	return n == 1, nil
}

// RestorePrincipal adds amount back and reopens the position.
func (r *PositionRepository) RestorePrincipal(ctx context.Context, tx usecase.Transaction, id string, amount decimal.Decimal) error {
	n, err := queriesFor(r.pool, tx).RestorePrincipal(ctx, generated.RestorePrincipalParams{
		Amount:    decimalToNumeric(amount),
		UpdatedAt: timeToPgTimestamptz(time.Now().UTC()),
		ID:        id,
	})
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrPositionNotFound
	}

	return nil
}

// DeductAccrued subtracts each share where the accrued return still covers it.
func (r *PositionRepository) DeductAccrued(ctx context.Context, tx usecase.Transaction, shares []usecase.AccruedShare) (int64, error) {
	q := queriesFor(r.pool, tx)
	now := timeToPgTimestamptz(time.Now().UTC())

	var affected int64
	for _, share := range shares {
		n, err := q.DeductAccrued(ctx, generated.DeductAccruedParams{
			Amount:    decimalToNumeric(share.Amount),
			UpdatedAt: now,
			ID:        share.PositionID,
		})
		if err != nil {
			return affected, err
		}
		affected += n
	}

	return affected, nil
}

func rowsToPositions(rows []generated.Position) []*domain.Position {
	positions := make([]*domain.Position, 0, len(rows))
	for _, row := range rows {
		positions = append(positions, rowToPosition(row))
	}
	return positions
}

func rowToPosition(row generated.Position) *domain.Position {
	return &domain.Position{
		ID:            row.ID,
		AccountID:     row.AccountID,
		Plan:          row.Plan,
		Principal:     numericToDecimal(row.Principal),
		Rate:          numericToDecimal(row.Rate),
		AccruedReturn: numericToDecimal(row.AccruedReturn),
		AccrualCursor: timestamptzPtr(row.AccrualCursor),
		Status:        domain.PositionStatus(row.Status),
		StartedAt:     row.StartedAt.Time,
		CreatedAt:     row.CreatedAt.Time,
		UpdatedAt:     row.UpdatedAt.Time,
	}
}
