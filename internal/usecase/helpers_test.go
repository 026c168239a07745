package usecase_test

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/iho/poolledger/internal/domain"
	"github.com/iho/poolledger/internal/usecase"
	"github.com/iho/poolledger/internal/usecase/mocks"
)

const (
	aliceAddress = "0x1111111111111111111111111111111111111111"
	bobAddress   = "0x2222222222222222222222222222222222222222"
	poolAddress  = "0x9999999999999999999999999999999999999999"
	payoutAddr   = "0x3333333333333333333333333333333333333333"
)

type testEnv struct {
	store       *mocks.Store
	txManager   *mocks.MockTransactionManager
	accounts    *mocks.MockAccountRepository
	positions   *mocks.MockPositionRepository
	entries     *mocks.MockEntryRepository
	withdrawals *mocks.MockWithdrawalRepository
	outbox      *mocks.MockOutboxRepository
	audits      *mocks.MockAuditRepository
	ledger      *mocks.MockLedgerRepository
	ids         *mocks.MockIDGenerator
	retrier     *mocks.MockRetrier
	decimals    int32
	logger      zerolog.Logger
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := mocks.NewStore()
	return &testEnv{
		store:       store,
		txManager:   mocks.NewMockTransactionManager(),
		accounts:    mocks.NewMockAccountRepository(store),
		positions:   mocks.NewMockPositionRepository(store),
		entries:     mocks.NewMockEntryRepository(store),
		withdrawals: mocks.NewMockWithdrawalRepository(store),
		outbox:      mocks.NewMockOutboxRepository(store),
		audits:      mocks.NewMockAuditRepository(store),
		ledger:      mocks.NewMockLedgerRepository(store),
		ids:         mocks.NewMockIDGenerator(),
		retrier:     mocks.NewMockRetrier(3),
		decimals:    domain.DefaultTokenDecimals,
		logger:      zerolog.Nop(),
	}
}

func (e *testEnv) settlement() *usecase.SettlementUseCase {
	return usecase.NewSettlementUseCase(e.txManager, e.accounts, e.entries, e.outbox, e.ids, e.retrier, nil, e.logger)
}

func (e *testEnv) seedAccount(id, address string, balance string) {
	now := time.Now().UTC()
	e.store.PutAccount(&domain.Account{
		ID:               id,
		Name:             id,
		DepositAddress:   address,
		AvailableBalance: dec(balance),
		CreatedAt:        now,
		UpdatedAt:        now,
	})
}

func (e *testEnv) seedPosition(id, accountID, principal, accrued string, createdAt time.Time) {
	e.store.PutPosition(&domain.Position{
		ID:            id,
		AccountID:     accountID,
		Plan:          "standard",
		Principal:     dec(principal),
		Rate:          dec("0.01"),
		AccruedReturn: dec(accrued),
		Status:        domain.PositionStatusOpen,
		StartedAt:     createdAt,
		CreatedAt:     createdAt,
		UpdatedAt:     createdAt,
	})
}

func (e *testEnv) balance(t *testing.T, id string) decimal.Decimal {
	t.Helper()
	a := e.store.Account(id)
	require.NotNil(t, a)
	return a.AvailableBalance
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decEqual(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.Truef(t, dec(want).Equal(got), "want %s, got %s", want, got.String())
}
