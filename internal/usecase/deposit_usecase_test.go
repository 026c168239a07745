package usecase_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/iho/poolledger/internal/domain"
	"github.com/iho/poolledger/internal/infrastructure/metrics"
	"github.com/iho/poolledger/internal/usecase"
	"github.com/iho/poolledger/internal/usecase/mocks"
)

const settlementWallet = "0x8888888888888888888888888888888888888888"

func newDepositListener(env *testEnv, cache usecase.Cache, m *metrics.Metrics) *usecase.DepositListener {
	return usecase.NewDepositListener(env.accounts, cache, 0, env.settlement(),
		[]string{settlementWallet, poolAddress}, m, env.logger)
}

func TestDepositListener_ReplayCreditsEachTransferOnce(t *testing.T) {
	env := newTestEnv(t)
	env.seedAccount("alice", aliceAddress, "0")
	listener := newDepositListener(env, mocks.NewMockCache(), nil)
	ctx := context.Background()

	events := []usecase.TransferEvent{
		{From: bobAddress, To: aliceAddress, Amount: dec("100"), Reference: "0xtx1"},
		{From: bobAddress, To: aliceAddress, Amount: dec("50"), Reference: "0xtx2"},
		{From: bobAddress, To: aliceAddress, Amount: dec("100"), Reference: "0xtx1"},
	}
	for _, e := range events {
		require.NoError(t, listener.HandleTransfer(ctx, e))
	}

	decEqual(t, "150", env.balance(t, "alice"))
	entries := env.store.Entries()
	require.Len(t, entries, 2)
	for _, e := range entries {
		assert.Equal(t, domain.CategoryDeposit, e.Category)
		require.NotNil(t, e.ChainTxHash)
		assert.Equal(t, e.Reference, *e.ChainTxHash)
	}
}

func TestDepositListener_IgnoresNonDeposits(t *testing.T) {
	env := newTestEnv(t)
	env.seedAccount("alice", aliceAddress, "0")
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg)
	listener := newDepositListener(env, mocks.NewMockCache(), m)
	ctx := context.Background()

	tests := []struct {
		name    string
		event   usecase.TransferEvent
		outcome string
	}{
		{
			name:    "from settlement wallet",
			event:   usecase.TransferEvent{From: "0x" + strings.ToUpper(settlementWallet[2:]), To: aliceAddress, Amount: dec("1"), Reference: "0xa"},
			outcome: "internal",
		},
		{
			name:    "from pool wallet",
			event:   usecase.TransferEvent{From: poolAddress, To: aliceAddress, Amount: dec("1"), Reference: "0xb"},
			outcome: "internal",
		},
		{
			name:    "zero amount",
			event:   usecase.TransferEvent{From: bobAddress, To: aliceAddress, Amount: dec("0"), Reference: "0xc"},
			outcome: "invalid",
		},
		{
			name:    "unknown address",
			event:   usecase.TransferEvent{From: bobAddress, To: payoutAddr, Amount: dec("1"), Reference: "0xd"},
			outcome: "unknown_address",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := testutil.ToFloat64(m.FeedEvents.WithLabelValues(tt.outcome))
			require.NoError(t, listener.HandleTransfer(ctx, tt.event))
			assert.Equal(t, before+1, testutil.ToFloat64(m.FeedEvents.WithLabelValues(tt.outcome)))
		})
	}

	decEqual(t, "0", env.balance(t, "alice"))
	assert.Empty(t, env.store.Entries())
}

func TestDepositListener_MatchesAddressCaseInsensitively(t *testing.T) {
	env := newTestEnv(t)
	env.seedAccount("alice", aliceAddress, "0")
	cache := mocks.NewMockCache()
	listener := newDepositListener(env, cache, nil)

	upper := "0x" + strings.ToUpper(aliceAddress[2:])
	require.NoError(t, listener.HandleTransfer(context.Background(), usecase.TransferEvent{
		From: bobAddress, To: upper, Amount: dec("3"), Reference: "0xcase",
	}))

	decEqual(t, "3", env.balance(t, "alice"))
	assert.Equal(t, []string{"address:" + aliceAddress}, cache.Keys())

	require.NoError(t, listener.HandleTransfer(context.Background(), usecase.TransferEvent{
		From: bobAddress, To: aliceAddress, Amount: dec("4"), Reference: "0xcase2",
	}))
	decEqual(t, "7", env.balance(t, "alice"))
}

func TestDepositListener_SettlementFailureRequestsRedelivery(t *testing.T) {
	env := newTestEnv(t)
	env.seedAccount("alice", aliceAddress, "0")
	env.retrier = mocks.NewMockRetrier(1)
	env.entries.InsertIfAbsentFunc = func(context.Context, usecase.Transaction, *domain.LedgerEntry) (bool, *domain.LedgerEntry, error) {
		return false, nil, errors.New("db unavailable")
	}
	listener := newDepositListener(env, nil, nil)

	err := listener.HandleTransfer(context.Background(), usecase.TransferEvent{
		From: bobAddress, To: aliceAddress, Amount: dec("1"), Reference: "0xfail",
	})
	require.Error(t, err)
	decEqual(t, "0", env.balance(t, "alice"))
}

func TestDepositListener_RunConsumesFeed(t *testing.T) {
	ctrl := gomock.NewController(t)
	env := newTestEnv(t)
	env.seedAccount("alice", aliceAddress, "0")
	listener := newDepositListener(env, nil, nil)

	feed := mocks.NewMockEventFeed(ctrl)
	feed.EXPECT().Run(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, handle usecase.TransferHandler) error {
			for _, ref := range []string{"0xr1", "0xr2", "0xr1"} {
				if err := handle(ctx, usecase.TransferEvent{From: bobAddress, To: aliceAddress, Amount: dec("10"), Reference: ref}); err != nil {
					return err
				}
			}
			return context.Canceled
		})

	require.NoError(t, listener.Run(context.Background(), feed))
	decEqual(t, "20", env.balance(t, "alice"))
}

func TestDepositListener_RunSurfacesFeedError(t *testing.T) {
	ctrl := gomock.NewController(t)
	env := newTestEnv(t)
	listener := newDepositListener(env, nil, nil)

	feedErr := errors.New("subscription closed")
	feed := mocks.NewMockEventFeed(ctrl)
	feed.EXPECT().Run(gomock.Any(), gomock.Any()).Return(feedErr)

	require.ErrorIs(t, listener.Run(context.Background(), feed), feedErr)
}
