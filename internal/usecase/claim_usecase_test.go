package usecase_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/iho/poolledger/internal/adapter/chain"
	"github.com/iho/poolledger/internal/domain"
	"github.com/iho/poolledger/internal/usecase"
	"github.com/iho/poolledger/internal/usecase/mocks"
)

func (e *testEnv) claim(transfers usecase.TransferClient, poolWallet string) *usecase.ClaimUseCase {
	return usecase.NewClaimUseCase(e.accounts, e.positions, e.settlement(), transfers, poolWallet, e.decimals, 10*time.Minute, nil, e.logger)
}

func seedClaimable(env *testEnv) {
	env.seedAccount("alice", aliceAddress, "1")
	env.seedPosition("p1", "alice", "100", "3", accrualStart)
	env.seedPosition("p2", "alice", "50", "2", accrualStart.Add(time.Hour))
	env.store.PutPosition(&domain.Position{
		ID: "p3", AccountID: "alice", Principal: dec("0"), Rate: dec("0.01"),
		AccruedReturn: dec("1"), Status: domain.PositionStatusClosed,
		StartedAt: accrualStart, CreatedAt: accrualStart.Add(2 * time.Hour),
	})
}

func TestClaim_PaysOutAllAccruedReturn(t *testing.T) {
	ctrl := gomock.NewController(t)
	env := newTestEnv(t)
	seedClaimable(env)

	transfers := mocks.NewMockTransferClient(ctrl)
	transfers.EXPECT().BalanceOf(gomock.Any(), poolAddress).Return(dec("1000"), nil)
	transfers.EXPECT().Transfer(gomock.Any(), aliceAddress, gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, _ string, amount decimal.Decimal, key string) (string, error) {
			decEqual(t, "6", amount)
			assert.True(t, strings.HasPrefix(key, "claim:"))
			return "0xclaimtx", nil
		})

	res, err := env.claim(transfers, poolAddress).Claim(context.Background(), "alice")
	require.NoError(t, err)

	assert.True(t, res.Applied)
	assert.Equal(t, "0xclaimtx", res.Reference)
	assert.Equal(t, 3, res.Positions)
	decEqual(t, "6", res.Amount)
	decEqual(t, "7", res.Balance)
	decEqual(t, "7", env.balance(t, "alice"))

	for _, id := range []string{"p1", "p2", "p3"} {
		decEqual(t, "0", env.store.Position(id).AccruedReturn)
	}

	entry, err := env.entries.GetByReference(context.Background(), "0xclaimtx")
	require.NoError(t, err)
	assert.Equal(t, domain.CategoryReturnClaim, entry.Category)
	assert.False(t, env.store.Account("alice").ClaimLocked)
}

func TestClaim_NothingToClaim(t *testing.T) {
	ctrl := gomock.NewController(t)
	env := newTestEnv(t)
	env.seedAccount("alice", aliceAddress, "0")
	env.seedPosition("p1", "alice", "100", "0", accrualStart)

	transfers := mocks.NewMockTransferClient(ctrl)

	_, err := env.claim(transfers, poolAddress).Claim(context.Background(), "alice")
	require.ErrorIs(t, err, domain.ErrNothingToClaim)
	assert.False(t, env.store.Account("alice").ClaimLocked)
}

func TestClaim_ConcurrentClaimIsRejected(t *testing.T) {
	ctrl := gomock.NewController(t)
	env := newTestEnv(t)
	seedClaimable(env)

	entered := make(chan struct{})
	release := make(chan struct{})
	transfers := mocks.NewMockTransferClient(ctrl)
	transfers.EXPECT().Transfer(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(context.Context, string, decimal.Decimal, string) (string, error) {
			close(entered)
			<-release
			return "0xfirst", nil
		}).Times(1)

	uc := env.claim(transfers, "")

	done := make(chan error, 1)
	go func() {
		_, err := uc.Claim(context.Background(), "alice")
		done <- err
	}()

	<-entered
	_, err := uc.Claim(context.Background(), "alice")
	require.ErrorIs(t, err, domain.ErrClaimInProgress)
	require.ErrorIs(t, err, domain.ErrConflict)

	close(release)
	require.NoError(t, <-done)
	decEqual(t, "7", env.balance(t, "alice"))
}

func TestClaim_TransferFailureKeepsAccruedReturn(t *testing.T) {
	ctrl := gomock.NewController(t)
	env := newTestEnv(t)
	seedClaimable(env)

	transfers := mocks.NewMockTransferClient(ctrl)
	transfers.EXPECT().Transfer(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return("", errors.New("gateway timeout"))

	_, err := env.claim(transfers, "").Claim(context.Background(), "alice")
	require.ErrorIs(t, err, domain.ErrTransferFailed)

	decEqual(t, "1", env.balance(t, "alice"))
	decEqual(t, "3", env.store.Position("p1").AccruedReturn)
	assert.Empty(t, env.store.Entries())
	assert.False(t, env.store.Account("alice").ClaimLocked)
}

func TestClaim_PoolBalanceCheck(t *testing.T) {
	tests := []struct {
		name    string
		balance decimal.Decimal
		err     error
		wantErr error
	}{
		{name: "underfunded pool", balance: dec("5"), wantErr: usecase.ErrPoolUnderfunded},
		{name: "balance unsupported", err: domain.ErrBalanceUnsupported},
		{name: "balance query fails", err: errors.New("rpc error")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			env := newTestEnv(t)
			seedClaimable(env)

			transfers := mocks.NewMockTransferClient(ctrl)
			transfers.EXPECT().BalanceOf(gomock.Any(), poolAddress).Return(tt.balance, tt.err)
			if tt.wantErr == nil {
				transfers.EXPECT().Transfer(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return("0xok", nil)
			}

			_, err := env.claim(transfers, poolAddress).Claim(context.Background(), "alice")
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				decEqual(t, "1", env.balance(t, "alice"))
				return
			}
			require.NoError(t, err)
			decEqual(t, "7", env.balance(t, "alice"))
		})
	}
}

func TestClaim_TakesOverStaleLock(t *testing.T) {
	ctrl := gomock.NewController(t)
	env := newTestEnv(t)
	seedClaimable(env)

	stale := time.Now().UTC().Add(-time.Hour)
	a := env.store.Account("alice")
	a.ClaimLocked = true
	a.ClaimLockedAt = &stale
	env.store.PutAccount(a)

	transfers := mocks.NewMockTransferClient(ctrl)
	transfers.EXPECT().Transfer(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return("0xstale", nil)

	_, err := env.claim(transfers, "").Claim(context.Background(), "alice")
	require.NoError(t, err)
	decEqual(t, "7", env.balance(t, "alice"))
}

func TestClaim_AccrualDuringClaimIsKept(t *testing.T) {
	ctrl := gomock.NewController(t)
	env := newTestEnv(t)
	seedClaimable(env)

	transfers := mocks.NewMockTransferClient(ctrl)
	transfers.EXPECT().Transfer(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, _ string, _ decimal.Decimal, _ string) (string, error) {
			ok, err := env.positions.AdvanceAccrual(ctx, "p1", nil, accrualStart.Add(time.Hour), dec("0.25"))
			require.NoError(t, err)
			require.True(t, ok)
			return "0xmid", nil
		})

	_, err := env.claim(transfers, "").Claim(context.Background(), "alice")
	require.NoError(t, err)

	decEqual(t, "0.25", env.store.Position("p1").AccruedReturn)
	decEqual(t, "7", env.balance(t, "alice"))
}

func TestClaim_TruncatesToTokenDecimals(t *testing.T) {
	ctrl := gomock.NewController(t)
	env := newTestEnv(t)
	env.decimals = 6
	env.seedAccount("alice", aliceAddress, "0")
	env.seedPosition("p1", "alice", "100", "0.000706018518518518", accrualStart)
	env.seedPosition("p2", "alice", "50", "1.0000009", accrualStart.Add(time.Hour))
	env.seedPosition("p3", "alice", "10", "0.0000004", accrualStart.Add(2*time.Hour))

	transfers := mocks.NewMockTransferClient(ctrl)
	transfers.EXPECT().Transfer(gomock.Any(), aliceAddress, gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, _ string, amount decimal.Decimal, _ string) (string, error) {
			decEqual(t, "1.000706", amount)
			return "0xtrunc", nil
		})

	res, err := env.claim(transfers, "").Claim(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Positions)
	decEqual(t, "1.000706", env.balance(t, "alice"))

	decEqual(t, "0.000000018518518518", env.store.Position("p1").AccruedReturn)
	decEqual(t, "0.0000009", env.store.Position("p2").AccruedReturn)
	decEqual(t, "0.0000004", env.store.Position("p3").AccruedReturn)
}

func TestClaim_DustBelowTokenUnitIsNothingToClaim(t *testing.T) {
	ctrl := gomock.NewController(t)
	env := newTestEnv(t)
	env.decimals = 6
	env.seedAccount("alice", aliceAddress, "0")
	env.seedPosition("p1", "alice", "100", "0.000000999", accrualStart)

	transfers := mocks.NewMockTransferClient(ctrl)

	_, err := env.claim(transfers, "").Claim(context.Background(), "alice")
	require.ErrorIs(t, err, domain.ErrNothingToClaim)
	decEqual(t, "0.000000999", env.store.Position("p1").AccruedReturn)
	assert.False(t, env.store.Account("alice").ClaimLocked)
}

func TestClaim_ThroughSixDecimalGateway(t *testing.T) {
	sent := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Amount string `json:"amount"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		sent <- req.Amount
		_ = json.NewEncoder(w).Encode(map[string]string{"tx_hash": "0xusdt", "status": "confirmed"})
	}))
	t.Cleanup(srv.Close)

	gateway, err := chain.NewGatewayClient(chain.GatewayConfig{
		BaseURL:       srv.URL,
		Timeout:       5 * time.Second,
		TokenDecimals: 6,
		PoolWallet:    poolAddress,
		MaxRetries:    1,
	}, nil, zerolog.Nop())
	require.NoError(t, err)

	env := newTestEnv(t)
	env.decimals = 6
	env.seedAccount("alice", aliceAddress, "0")
	env.seedPosition("p1", "alice", "100", "0.070601851851851851", accrualStart)

	res, err := env.claim(gateway, "").Claim(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "0xusdt", res.Reference)
	assert.Equal(t, "70601", <-sent)
	decEqual(t, "0.070601", env.balance(t, "alice"))
	decEqual(t, "0.000000851851851851", env.store.Position("p1").AccruedReturn)
}

func TestClaim_GatewayErrorIsNotWrappedTwice(t *testing.T) {
	ctrl := gomock.NewController(t)
	env := newTestEnv(t)
	seedClaimable(env)

	gatewayErr := fmt.Errorf("%w: transfer: %w", domain.ErrTransferFailed, errors.New("nonce too low"))
	transfers := mocks.NewMockTransferClient(ctrl)
	transfers.EXPECT().Transfer(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return("", gatewayErr)

	_, err := env.claim(transfers, "").Claim(context.Background(), "alice")
	require.ErrorIs(t, err, domain.ErrTransferFailed)
	assert.Equal(t, 1, strings.Count(err.Error(), domain.ErrTransferFailed.Error()))
}
