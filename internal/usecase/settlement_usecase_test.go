package usecase_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/poolledger/internal/domain"
	"github.com/iho/poolledger/internal/usecase"
)

func TestSettle_AppliesOncePerReference(t *testing.T) {
	env := newTestEnv(t)
	env.seedAccount("alice", aliceAddress, "0")
	uc := env.settlement()
	ctx := context.Background()

	input := usecase.SettleInput{
		AccountID: "alice",
		Category:  domain.CategoryDeposit,
		Amount:    dec("100"),
		Reference: "0xabc",
	}

	first, err := uc.Settle(ctx, input)
	require.NoError(t, err)
	assert.True(t, first.Applied)
	decEqual(t, "100", first.Balance)

	second, err := uc.Settle(ctx, input)
	require.NoError(t, err)
	assert.False(t, second.Applied)
	require.NotNil(t, second.Entry)
	assert.Equal(t, "0xabc", second.Entry.Reference)

	decEqual(t, "100", env.balance(t, "alice"))
	assert.Len(t, env.store.Entries(), 1)
	assert.Len(t, env.store.OutboxEvents(), 1)
}

func TestSettle_ConcurrentDuplicatesCreditOnce(t *testing.T) {
	env := newTestEnv(t)
	env.seedAccount("alice", aliceAddress, "0")
	uc := env.settlement()

	var wg sync.WaitGroup
	var mu sync.Mutex
	applied := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := uc.Settle(context.Background(), usecase.SettleInput{
				AccountID: "alice",
				Category:  domain.CategoryDeposit,
				Amount:    dec("7.5"),
				Reference: "0xsame",
			})
			if assert.NoError(t, err) && res.Applied {
				mu.Lock()
				applied++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, applied)
	decEqual(t, "7.5", env.balance(t, "alice"))
}

func TestSettle_Validation(t *testing.T) {
	env := newTestEnv(t)
	env.seedAccount("alice", aliceAddress, "0")
	uc := env.settlement()

	tests := []struct {
		name  string
		input usecase.SettleInput
		want  error
	}{
		{
			name:  "withdrawal is not settleable",
			input: usecase.SettleInput{AccountID: "alice", Category: domain.CategoryWithdrawal, Amount: dec("1"), Reference: "r1"},
			want:  domain.ErrInvalidCategory,
		},
		{
			name:  "accrual is not settleable",
			input: usecase.SettleInput{AccountID: "alice", Category: domain.CategoryReturnAccrual, Amount: dec("1"), Reference: "r2"},
			want:  domain.ErrInvalidCategory,
		},
		{
			name:  "zero amount",
			input: usecase.SettleInput{AccountID: "alice", Category: domain.CategoryDeposit, Amount: dec("0"), Reference: "r3"},
			want:  domain.ErrInvalidAmount,
		},
		{
			name:  "empty reference",
			input: usecase.SettleInput{AccountID: "alice", Category: domain.CategoryDeposit, Amount: dec("1")},
			want:  domain.ErrInvalidReference,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := uc.Settle(context.Background(), tt.input)
			require.ErrorIs(t, err, tt.want)
		})
	}
	assert.Empty(t, env.store.Entries())
}

func TestSettle_RetriesTransientFailure(t *testing.T) {
	env := newTestEnv(t)
	env.seedAccount("alice", aliceAddress, "10")

	calls := 0
	inner := *env.entries
	env.entries.InsertIfAbsentFunc = func(ctx context.Context, tx usecase.Transaction, entry *domain.LedgerEntry) (bool, *domain.LedgerEntry, error) {
		calls++
		if calls == 1 {
			return false, nil, errors.New("connection reset")
		}
		return inner.InsertIfAbsent(ctx, tx, entry)
	}

	res, err := env.settlement().Settle(context.Background(), usecase.SettleInput{
		AccountID: "alice",
		Category:  domain.CategoryReturnClaim,
		Amount:    dec("2.5"),
		Reference: "0xclaim",
	})
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 2, env.retrier.Attempts)
	decEqual(t, "12.5", env.balance(t, "alice"))
}

func TestSettle_OnAppliedFailureRollsBack(t *testing.T) {
	env := newTestEnv(t)
	env.seedAccount("alice", aliceAddress, "0")
	hookErr := errors.New("dependent write failed")

	_, err := env.settlement().Settle(context.Background(), usecase.SettleInput{
		AccountID: "alice",
		Category:  domain.CategoryDeposit,
		Amount:    dec("5"),
		Reference: "0xhook",
		OnApplied: func(ctx context.Context, tx usecase.Transaction) error {
			return hookErr
		},
	})
	require.ErrorIs(t, err, hookErr)

	decEqual(t, "0", env.balance(t, "alice"))
	assert.Empty(t, env.store.Entries())
	assert.Empty(t, env.store.OutboxEvents())
}

func TestSettle_UnknownAccountLeavesNoEntry(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.settlement().Settle(context.Background(), usecase.SettleInput{
		AccountID: "ghost",
		Category:  domain.CategoryDeposit,
		Amount:    dec("5"),
		Reference: "0xghost",
	})
	require.ErrorIs(t, err, domain.ErrAccountNotFound)
	assert.Empty(t, env.store.Entries())
}
