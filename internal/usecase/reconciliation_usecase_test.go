package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/poolledger/internal/domain"
	"github.com/iho/poolledger/internal/usecase"
)

func seedLoggedAccount(env *testEnv, id, address, balance string, entries ...*domain.LedgerEntry) {
	env.seedAccount(id, address, balance)
	for _, e := range entries {
		e.AccountID = id
		env.store.PutEntry(e)
	}
}

func logged(ref string, category domain.EntryCategory, amount string, status domain.EntryStatus) *domain.LedgerEntry {
	return &domain.LedgerEntry{
		ID:        ref,
		Reference: ref,
		Category:  category,
		Amount:    dec(amount),
		Status:    status,
		CreatedAt: time.Now().UTC(),
	}
}

func TestReconciliation_ReconcileAccount(t *testing.T) {
	env := newTestEnv(t)
	seedLoggedAccount(env, "alice", aliceAddress, "65",
		logged("0xd1", domain.CategoryDeposit, "100", domain.EntryStatusConfirmed),
		logged("investment:p1", domain.CategoryInvestment, "40", domain.EntryStatusConfirmed),
		logged("accrual:p1:1", domain.CategoryReturnAccrual, "0.4", domain.EntryStatusConfirmed),
		logged("0xc1", domain.CategoryReturnClaim, "5", domain.EntryStatusConfirmed),
		logged("withdrawal:w1", domain.CategoryWithdrawal, "10", domain.EntryStatusFailed),
	)
	uc := usecase.NewReconciliationUseCase(env.accounts, env.entries, env.ledger)

	res, err := uc.ReconcileAccount(context.Background(), "alice")
	require.NoError(t, err)
	assert.True(t, res.IsReconciled)
	decEqual(t, "65", res.CalculatedBalance)
	decEqual(t, "0", res.Difference)
}

func TestReconciliation_ReportFlagsDrift(t *testing.T) {
	env := newTestEnv(t)
	seedLoggedAccount(env, "alice", aliceAddress, "100",
		logged("0xd1", domain.CategoryDeposit, "100", domain.EntryStatusConfirmed))
	seedLoggedAccount(env, "bob", bobAddress, "12",
		logged("0xd2", domain.CategoryDeposit, "10", domain.EntryStatusConfirmed))
	uc := usecase.NewReconciliationUseCase(env.accounts, env.entries, env.ledger)

	report, err := uc.GenerateReconciliationReport(context.Background(), 0)
	require.NoError(t, err)
	assert.False(t, report.LedgerConsistent)
	decEqual(t, "112", report.TotalBalance)
	decEqual(t, "110", report.TotalLogged)
	require.Len(t, report.Discrepancies, 1)
	assert.Equal(t, "bob", report.Discrepancies[0].AccountID)
	decEqual(t, "2", report.Discrepancies[0].Difference)

	err = uc.CheckLedgerConsistency(context.Background())
	require.ErrorIs(t, err, usecase.ErrInconsistentLedger)

	res, err := uc.ReconcileAccount(context.Background(), "bob")
	require.NoError(t, err)
	assert.False(t, res.IsReconciled)
}

func TestReconciliation_RepositoryErrors(t *testing.T) {
	env := newTestEnv(t)
	uc := usecase.NewReconciliationUseCase(env.accounts, env.entries, env.ledger)

	_, err := uc.ReconcileAccount(context.Background(), "ghost")
	require.ErrorIs(t, err, domain.ErrAccountNotFound)

	dbErr := errors.New("db down")
	env.ledger.CheckConsistencyFunc = func(context.Context) (decimal.Decimal, decimal.Decimal, error) {
		return decimal.Zero, decimal.Zero, dbErr
	}
	_, err = uc.GenerateReconciliationReport(context.Background(), 10)
	require.ErrorIs(t, err, dbErr)
	require.ErrorIs(t, uc.CheckLedgerConsistency(context.Background()), dbErr)
}

func TestReconciliation_CheckLedgerConsistency(t *testing.T) {
	tests := []struct {
		name         string
		totalBalance decimal.Decimal
		totalLogged  decimal.Decimal
		wantErr      bool
	}{
		{name: "balanced ledger", totalBalance: decimal.NewFromInt(150), totalLogged: decimal.NewFromInt(150)},
		{name: "empty ledger", totalBalance: decimal.Zero, totalLogged: decimal.Zero},
		{name: "balances exceed log", totalBalance: decimal.NewFromInt(10), totalLogged: decimal.Zero, wantErr: true},
		{name: "negative balances", totalBalance: decimal.NewFromInt(-1), totalLogged: decimal.NewFromInt(-1), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.ledger.CheckConsistencyFunc = func(context.Context) (decimal.Decimal, decimal.Decimal, error) {
				return tt.totalBalance, tt.totalLogged, nil
			}

			err := usecase.NewReconciliationUseCase(env.accounts, env.entries, env.ledger).CheckLedgerConsistency(context.Background())
			if tt.wantErr {
				require.ErrorIs(t, err, usecase.ErrInconsistentLedger)
				return
			}
			require.NoError(t, err)
		})
	}
}
