package usecase_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/poolledger/internal/domain"
	"github.com/iho/poolledger/internal/usecase"
)

func (e *testEnv) accountUseCase() *usecase.AccountUseCase {
	return usecase.NewAccountUseCase(e.txManager, e.accounts, e.positions, e.outbox, e.audits, e.ids)
}

func TestAccountUseCase_CreateAccount(t *testing.T) {
	env := newTestEnv(t)
	uc := env.accountUseCase()

	account, err := uc.CreateAccount(context.Background(), usecase.CreateAccountInput{
		Name:           "Alice",
		DepositAddress: "0x" + strings.ToUpper(aliceAddress[2:]),
		CreatedBy:      "admin-1",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, account.ID)
	assert.Equal(t, aliceAddress, account.DepositAddress)
	assert.True(t, account.AvailableBalance.IsZero())

	events := env.store.OutboxEvents()
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventTypeAccountCreated, events[0].EventType)

	logs := env.store.AuditLogs()
	require.Len(t, logs, 1)
	assert.Equal(t, "admin-1", logs[0].UserID)
	assert.Equal(t, string(domain.AuditActionAccountCreate), logs[0].Action)
}

func TestAccountUseCase_CreateAccountValidation(t *testing.T) {
	env := newTestEnv(t)
	env.seedAccount("alice", aliceAddress, "0")
	uc := env.accountUseCase()

	tests := []struct {
		name  string
		input usecase.CreateAccountInput
		want  error
	}{
		{name: "empty name", input: usecase.CreateAccountInput{DepositAddress: bobAddress}, want: domain.ErrInvalidAccountName},
		{name: "bad address", input: usecase.CreateAccountInput{Name: "Bob", DepositAddress: "0x12"}, want: domain.ErrInvalidAddress},
		{name: "address taken", input: usecase.CreateAccountInput{Name: "Eve", DepositAddress: aliceAddress}, want: domain.ErrAccountExists},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := uc.CreateAccount(context.Background(), tt.input)
			require.ErrorIs(t, err, tt.want)
		})
	}
	assert.Empty(t, env.store.OutboxEvents())
}

func TestAccountUseCase_GetSummary(t *testing.T) {
	env := newTestEnv(t)
	env.seedAccount("alice", aliceAddress, "10")
	env.seedPosition("p1", "alice", "100", "1.5", accrualStart)
	env.seedPosition("p2", "alice", "50", "0.5", accrualStart.Add(time.Hour))
	env.store.PutPosition(&domain.Position{
		ID: "p3", AccountID: "alice", Principal: dec("0"), Rate: dec("0.01"),
		AccruedReturn: dec("0.25"), Status: domain.PositionStatusClosed,
		StartedAt: accrualStart, CreatedAt: accrualStart.Add(2 * time.Hour),
	})

	summary, err := env.accountUseCase().GetSummary(context.Background(), "alice")
	require.NoError(t, err)

	decEqual(t, "150", summary.Invested)
	decEqual(t, "2.25", summary.Accrued)
	decEqual(t, "162.25", summary.Total)
	assert.Equal(t, 2, summary.OpenPositions)
	assert.False(t, summary.ClaimInProgress)

	acquired, err := env.accounts.AcquireClaimLock(context.Background(), "alice", time.Now().UTC(), time.Now().UTC().Add(-time.Minute))
	require.NoError(t, err)
	require.True(t, acquired)

	summary, err = env.accountUseCase().GetSummary(context.Background(), "alice")
	require.NoError(t, err)
	assert.True(t, summary.ClaimInProgress)
}

func TestAccountUseCase_ListPositionsUnknownAccount(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.accountUseCase().ListPositions(context.Background(), "ghost")
	require.ErrorIs(t, err, domain.ErrAccountNotFound)
}

func TestAccountUseCase_ListAccountsPaginates(t *testing.T) {
	env := newTestEnv(t)
	env.seedAccount("a1", aliceAddress, "0")
	env.seedAccount("a2", bobAddress, "0")
	env.seedAccount("a3", payoutAddr, "0")

	accounts, err := env.accountUseCase().ListAccounts(context.Background(), 2, 1)
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, "a2", accounts[0].ID)
	assert.Equal(t, "a3", accounts[1].ID)
}
