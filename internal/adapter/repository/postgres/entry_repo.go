package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/poolledger/internal/domain"
	"github.com/iho/poolledger/internal/infrastructure/postgres/generated"
	"github.com/iho/poolledger/internal/usecase"
)

// EntryRepository implements usecase.EntryRepository.
type EntryRepository struct {
	pool    pgxPool
	queries *generated.Queries
}

// NewEntryRepository creates a new EntryRepository.
func NewEntryRepository(pool *pgxpool.Pool) *EntryRepository {
	return newEntryRepositoryWithPool(pool)
}

func newEntryRepositoryWithPool(pool pgxPool) *EntryRepository {
	return &EntryRepository{
		pool:    pool,
		queries: generated.New(pool),
	}
}

// InsertIfAbsent writes the entry unless its reference is already logged.
// On a duplicate the stored entry is returned instead.
func (r *EntryRepository) InsertIfAbsent(ctx context.Context, tx usecase.Transaction, entry *domain.LedgerEntry) (bool, *domain.LedgerEntry, error) {
	metadata, err := marshalJSON(entry.Metadata)
	if err != nil {
		return false, nil, err
	}

	q := queriesFor(r.pool, tx)
	n, err := q.InsertEntryIfAbsent(ctx, generated.InsertEntryIfAbsentParams{
		ID:          entry.ID,
		AccountID:   entry.AccountID,
		Reference:   entry.Reference,
		Category:    string(entry.Category),
		Amount:      decimalToNumeric(entry.Amount),
		Status:      string(entry.Status),
		ChainTxHash: optionalText(entry.ChainTxHash),
		Metadata:    metadata,
		CreatedAt:   timeToPgTimestamptz(entry.CreatedAt),
		UpdatedAt:   timeToPgTimestamptz(entry.UpdatedAt),
	})
	if err != nil {
		return false, nil, err
	}
	if n == 1 {
		return true, nil, nil
	}

	row, err := q.GetEntryByReference(ctx, entry.Reference)
	if err != nil {
		return false, nil, err
	}

	return false, rowToEntry(row), nil
}

// GetByReference retrieves an entry by its reference.
func (r *EntryRepository) GetByReference(ctx context.Context, reference string) (*domain.LedgerEntry, error) {
	row, err := r.queries.GetEntryByReference(ctx, reference)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrEntryNotFound
		}

		return nil, err
	}

	return rowToEntry(row), nil
}

// ListByAccount lists an account's entries, newest first.
func (r *EntryRepository) ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]*domain.LedgerEntry, error) {
	rows, err := r.queries.ListEntriesByAccount(ctx, generated.ListEntriesByAccountParams{
		AccountID: accountID,
		Limit:     int32(limit),
		Offset:    int32(offset),
	})
	if err != nil {
		return nil, err
	}

	entries := make([]*domain.LedgerEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, rowToEntry(row))
	}

	return entries, nil
}

// UpdateStatus finalizes a pending entry.
func (r *EntryRepository) UpdateStatus(ctx context.Context, tx usecase.Transaction, reference string, status domain.EntryStatus, chainTxHash *string, updatedAt time.Time) error {
	q := queriesFor(r.pool, tx)
	n, err := q.UpdatePendingEntryStatus(ctx, generated.UpdatePendingEntryStatusParams{
		Status:      string(status),
		ChainTxHash: optionalText(chainTxHash),
		UpdatedAt:   timeToPgTimestamptz(updatedAt),
		Reference:   reference,
	})
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}

	if _, err := q.GetEntryByReference(ctx, reference); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrEntryNotFound
		}
		return err
	}

	return domain.ErrEntryNotPending
}

func rowToEntry(row generated.LedgerEntry) *domain.LedgerEntry {
	return &domain.LedgerEntry{
		ID:          row.ID,
		AccountID:   row.AccountID,
		Reference:   row.Reference,
		Category:    domain.EntryCategory(row.Category),
		Amount:      numericToDecimal(row.Amount),
		Status:      domain.EntryStatus(row.Status),
		ChainTxHash: textPtr(row.ChainTxHash),
		Metadata:    unmarshalJSON(row.Metadata),
		CreatedAt:   row.CreatedAt.Time,
		UpdatedAt:   row.UpdatedAt.Time,
	}
}
