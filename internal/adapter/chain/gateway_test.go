package chain

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/poolledger/internal/domain"
	"github.com/iho/poolledger/internal/infrastructure/metrics"
)

const (
	poolWallet = "0x1111111111111111111111111111111111111111"
	userWallet = "0x2222222222222222222222222222222222222222"
)

func newTestGateway(t *testing.T, handler http.HandlerFunc) (*GatewayClient, *metrics.Metrics) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	c, err := NewGatewayClient(GatewayConfig{
		BaseURL:       srv.URL,
		APIKey:        "secret",
		Timeout:       5 * time.Second,
		TokenDecimals: 6,
		PoolWallet:    poolWallet,
		MaxRetries:    2,
	}, m, zerolog.Nop())
	require.NoError(t, err)
	return c, m
}

func TestGatewayClient_Transfer(t *testing.T) {
	client, m := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/transfers", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "claim:abc", r.Header.Get("Idempotency-Key"))

		var req transferRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, poolWallet, req.From)
		assert.Equal(t, userWallet, req.To)
		assert.Equal(t, "12500000", req.Amount)

		_ = json.NewEncoder(w).Encode(transferResponse{TxHash: "0xhash", Status: "confirmed"})
	})

	hash, err := client.Transfer(context.Background(), userWallet, decimal.RequireFromString("12.5"), "claim:abc")
	require.NoError(t, err)
	assert.Equal(t, "0xhash", hash)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ChainTransfers.WithLabelValues("transfer", "confirmed")))
}

func TestGatewayClient_CollectSendsToPool(t *testing.T) {
	client, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/collections", r.URL.Path)
		var req transferRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, userWallet, req.From)
		assert.Equal(t, poolWallet, req.To)
		_ = json.NewEncoder(w).Encode(transferResponse{TxHash: "0xsweep", Status: "confirmed"})
	})

	hash, err := client.Collect(context.Background(), userWallet, decimal.NewFromInt(3), "investment:1")
	require.NoError(t, err)
	assert.Equal(t, "0xsweep", hash)
}

func TestGatewayClient_RetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(transferResponse{TxHash: "0xretry", Status: "confirmed"})
	})

	hash, err := client.Transfer(context.Background(), userWallet, decimal.NewFromInt(1), "k")
	require.NoError(t, err)
	assert.Equal(t, "0xretry", hash)
	assert.Equal(t, int32(2), calls.Load())
}

func TestGatewayClient_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   transferResponse
	}{
		{name: "rejected", status: http.StatusBadRequest, body: transferResponse{Error: "insufficient gas"}},
		{name: "reverted", status: http.StatusOK, body: transferResponse{Status: "failed", Error: "reverted"}},
		{name: "missing hash", status: http.StatusOK, body: transferResponse{Status: "confirmed"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			client, m := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
				_ = json.NewEncoder(w).Encode(tt.body)
			})

			_, err := client.Transfer(context.Background(), userWallet, decimal.NewFromInt(1), "k")
			require.ErrorIs(t, err, domain.ErrTransferFailed)
			assert.Equal(t, int32(1), calls.Load())
			assert.Equal(t, float64(1), testutil.ToFloat64(m.ChainTransfers.WithLabelValues("transfer", "failed")))
		})
	}
}

func TestGatewayClient_RejectsTooPreciseAmount(t *testing.T) {
	client, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("request should not be sent")
	})

	_, err := client.Transfer(context.Background(), userWallet, decimal.RequireFromString("0.0000001"), "k")
	require.ErrorIs(t, err, domain.ErrTransferFailed)
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
}

func TestGatewayClient_BalanceOf(t *testing.T) {
	client, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/balances/" + userWallet:
			_ = json.NewEncoder(w).Encode(balanceResponse{Balance: "1500000"})
		default:
			w.WriteHeader(http.StatusNotImplemented)
		}
	})

	bal, err := client.BalanceOf(context.Background(), userWallet)
	require.NoError(t, err)
	assert.True(t, bal.Equal(decimal.RequireFromString("1.5")))

	_, err = client.BalanceOf(context.Background(), poolWallet)
	assert.ErrorIs(t, err, domain.ErrBalanceUnsupported)
}

func TestBaseUnitConversion(t *testing.T) {
	units, err := ToBaseUnits(decimal.RequireFromString("1.000000000000000001"), 18)
	require.NoError(t, err)
	assert.Equal(t, "1000000000000000001", units.String())
	assert.True(t, FromBaseUnits(units, 18).Equal(decimal.RequireFromString("1.000000000000000001")))

	_, err = ToBaseUnits(decimal.Zero, 18)
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
}

func TestNewGatewayClientRequiresURL(t *testing.T) {
	_, err := NewGatewayClient(GatewayConfig{}, nil, zerolog.Nop())
	assert.Error(t, err)
}
