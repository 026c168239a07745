package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/iho/poolledger/internal/infrastructure/postgres/generated"
	"github.com/iho/poolledger/internal/usecase"
)

// LedgerRepository implements usecase.LedgerRepository.
type LedgerRepository struct {
	queries *generated.Queries
}

// NewLedgerRepository creates a new LedgerRepository.
func NewLedgerRepository(pool *pgxpool.Pool) *LedgerRepository {
	return newLedgerRepositoryWithPool(pool)
}

func newLedgerRepositoryWithPool(pool generated.DBTX) *LedgerRepository {
	return &LedgerRepository{queries: generated.New(pool)}
}

// CheckConsistency returns the summed available balances and the balance
// implied by the transaction log.
func (r *LedgerRepository) CheckConsistency(ctx context.Context) (totalBalance decimal.Decimal, totalLogged decimal.Decimal, err error) {
	result, err := r.queries.CheckLedgerConsistency(ctx)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}

	return numericToDecimal(result.TotalBalance), numericToDecimal(result.TotalLogged), nil
}

// ListDiscrepancies lists accounts whose balance differs from their log.
func (r *LedgerRepository) ListDiscrepancies(ctx context.Context, limit int) ([]usecase.AccountDiscrepancy, error) {
	rows, err := r.queries.ListLedgerDiscrepancies(ctx, int32(limit))
	if err != nil {
		return nil, err
	}

	out := make([]usecase.AccountDiscrepancy, 0, len(rows))
	for _, row := range rows {
		out = append(out, usecase.AccountDiscrepancy{
			AccountID: row.ID,
			Balance:   numericToDecimal(row.AvailableBalance),
			Logged:    numericToDecimal(row.Logged),
		})
	}

	return out, nil
}
