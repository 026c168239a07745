package usecase

import (
	"context"

	"github.com/iho/poolledger/internal/domain"
)

// EntryUseCase handles transaction log queries.
type EntryUseCase struct {
	entryRepo EntryRepository
}

// NewEntryUseCase creates a new EntryUseCase.
func NewEntryUseCase(entryRepo EntryRepository) *EntryUseCase {
	return &EntryUseCase{
		entryRepo: entryRepo,
	}
}

// GetEntriesByAccountInput represents input for listing entries.
type GetEntriesByAccountInput struct {
	AccountID string
	Limit     int
	Offset    int
}

// GetEntriesByAccount lists entries for an account, newest first.
func (uc *EntryUseCase) GetEntriesByAccount(ctx context.Context, input GetEntriesByAccountInput) ([]*domain.LedgerEntry, error) {
	if input.Limit <= 0 {
		input.Limit = 20
	}

	if input.Limit > 100 {
		input.Limit = 100
	}

	if input.Offset < 0 {
		input.Offset = 0
	}

	return uc.entryRepo.ListByAccount(ctx, input.AccountID, input.Limit, input.Offset)
}

// GetEntryByReference returns the entry logged under reference.
func (uc *EntryUseCase) GetEntryByReference(ctx context.Context, reference string) (*domain.LedgerEntry, error) {
	if err := domain.ValidateReference(reference); err != nil {
		return nil, err
	}
	return uc.entryRepo.GetByReference(ctx, reference)
}
