package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/poolledger/internal/domain"
)

// ErrInconsistentLedger is returned when balances disagree with the transaction log.
var ErrInconsistentLedger = errors.New("ledger is inconsistent: balances do not match the transaction log")

// reconcilePageSize is the page size used to walk an account's log.
const reconcilePageSize = 500

// ReconciliationUseCase compares balances with the transaction log.
type ReconciliationUseCase struct {
	accountRepo AccountRepository
	entryRepo   EntryRepository
	ledgerRepo  LedgerRepository
}

// NewReconciliationUseCase creates a new reconciliation use case
func NewReconciliationUseCase(
	accountRepo AccountRepository,
	entryRepo EntryRepository,
	ledgerRepo LedgerRepository,
) *ReconciliationUseCase {
	return &ReconciliationUseCase{
		accountRepo: accountRepo,
		entryRepo:   entryRepo,
		ledgerRepo:  ledgerRepo,
	}
}

// ReconciliationResult represents the result of a reconciliation check
type ReconciliationResult struct {
	AccountID         string
	RecordedBalance   decimal.Decimal
	CalculatedBalance decimal.Decimal
	Difference        decimal.Decimal
	IsReconciled      bool
	LastChecked       time.Time
}

// ReconcileAccount replays an account's log and compares the result with
// its recorded balance.
func (uc *ReconciliationUseCase) ReconcileAccount(ctx context.Context, accountID string) (*ReconciliationResult, error) {
	account, err := uc.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	calculated := decimal.Zero
	for offset := 0; ; offset += reconcilePageSize {
		entries, err := uc.entryRepo.ListByAccount(ctx, accountID, reconcilePageSize, offset)
		if err != nil {
			return nil, fmt.Errorf("failed to load entries for %s: %w", accountID, err)
		}
		for _, e := range entries {
			calculated = calculated.Add(e.BalanceEffect())
		}
		if len(entries) < reconcilePageSize {
			break
		}
	}

	difference := account.AvailableBalance.Sub(calculated)
	return &ReconciliationResult{
		AccountID:         accountID,
		RecordedBalance:   account.AvailableBalance,
		CalculatedBalance: calculated,
		Difference:        difference,
		IsReconciled:      difference.IsZero(),
		LastChecked:       time.Now().UTC(),
	}, nil
}

// CheckLedgerConsistency compares ledger-wide totals.
func (uc *ReconciliationUseCase) CheckLedgerConsistency(ctx context.Context) error {
	totalBalance, totalLogged, err := uc.ledgerRepo.CheckConsistency(ctx)
	if err != nil {
		return err
	}

	if totalBalance.IsNegative() || !totalBalance.Equal(totalLogged) {
		return fmt.Errorf(
			"%w: balances=%s logged=%s difference=%s",
			ErrInconsistentLedger,
			totalBalance.String(),
			totalLogged.String(),
			totalBalance.Sub(totalLogged).String(),
		)
	}

	return nil
}

// ReconciliationReport represents a full reconciliation report
type ReconciliationReport struct {
	TotalBalance     decimal.Decimal
	TotalLogged      decimal.Decimal
	Discrepancies    []*ReconciliationResult
	LedgerConsistent bool
	CheckedAt        time.Time
}

// GenerateReconciliationReport checks ledger totals and lists accounts whose
// balance disagrees with their log.
func (uc *ReconciliationUseCase) GenerateReconciliationReport(ctx context.Context, limit int) (*ReconciliationReport, error) {
	limit, _ = domain.ValidatePagination(limit, 0)

	totalBalance, totalLogged, err := uc.ledgerRepo.CheckConsistency(ctx)
	if err != nil {
		return nil, err
	}

	discrepancies, err := uc.ledgerRepo.ListDiscrepancies(ctx, limit)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	report := &ReconciliationReport{
		TotalBalance:     totalBalance,
		TotalLogged:      totalLogged,
		Discrepancies:    make([]*ReconciliationResult, 0, len(discrepancies)),
		LedgerConsistent: totalBalance.Equal(totalLogged) && len(discrepancies) == 0,
		CheckedAt:        now,
	}

	for _, d := range discrepancies {
		report.Discrepancies = append(report.Discrepancies, &ReconciliationResult{
			AccountID:         d.AccountID,
			RecordedBalance:   d.Balance,
			CalculatedBalance: d.Logged,
			Difference:        d.Balance.Sub(d.Logged),
			IsReconciled:      false,
			LastChecked:       now,
		})
	}

	return report, nil
}
