// Package chain talks to the settlement layer: a custodial transfer gateway
// for outbound movements and event feeds for inbound token transfers.
package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/poolledger/internal/domain"
	"github.com/iho/poolledger/internal/infrastructure/metrics"
)

// Transfer kinds, used as the metrics label.
const (
	kindTransfer = "transfer"
	kindCollect  = "collect"
	kindMint     = "mint"
)

// GatewayConfig configures the gateway client.
type GatewayConfig struct {
	BaseURL       string
	APIKey        string
	Timeout       time.Duration
	TokenDecimals int32
	// PoolWallet is the hot wallet payouts are sent from and sweeps go to.
	PoolWallet string
	// MaxRetries bounds resubmission of requests that failed in transit.
	MaxRetries uint64
}

// GatewayClient implements usecase.TransferClient against the signing gateway.
// Each call blocks until the gateway reports the transfer final.
type GatewayClient struct {
	baseURL    string
	apiKey     string
	decimals   int32
	poolWallet string
	maxRetries uint64
	httpClient *http.Client
	metrics    *metrics.Metrics
	logger     zerolog.Logger
}

type transferRequest struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount string `json:"amount"`
}

type transferResponse struct {
	TxHash string `json:"tx_hash"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type balanceResponse struct {
	Balance string `json:"balance"`
}

// NewGatewayClient creates a new GatewayClient.
func NewGatewayClient(cfg GatewayConfig, m *metrics.Metrics, logger zerolog.Logger) (*GatewayClient, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("gateway URL required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("parse gateway URL: %w", err)
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	retries := cfg.MaxRetries
	if retries == 0 {
		retries = 3
	}

	return &GatewayClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		decimals:   cfg.TokenDecimals,
		poolWallet: cfg.PoolWallet,
		maxRetries: retries,
		httpClient: &http.Client{Timeout: timeout},
		metrics:    m,
		logger:     logger.With().Str("component", "gateway").Logger(),
	}, nil
}

// Transfer pays amount from the pool wallet to destination.
func (c *GatewayClient) Transfer(ctx context.Context, destination string, amount decimal.Decimal, idempotencyKey string) (string, error) {
	return c.move(ctx, kindTransfer, "/v1/transfers", c.poolWallet, destination, amount, idempotencyKey)
}

// Collect sweeps amount from a custodial deposit address into the pool wallet.
func (c *GatewayClient) Collect(ctx context.Context, source string, amount decimal.Decimal, idempotencyKey string) (string, error) {
	return c.move(ctx, kindCollect, "/v1/collections", source, c.poolWallet, amount, idempotencyKey)
}

// Mint issues new tokens to address. Only test networks expose it.
func (c *GatewayClient) Mint(ctx context.Context, address string, amount decimal.Decimal, idempotencyKey string) (string, error) {
	return c.move(ctx, kindMint, "/v1/mints", "", address, amount, idempotencyKey)
}

// BalanceOf returns the token balance of address.
func (c *GatewayClient) BalanceOf(ctx context.Context, address string) (decimal.Decimal, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/balances/"+url.PathEscape(address), nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("create request: %w", err)
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound, http.StatusNotImplemented:
		return decimal.Zero, domain.ErrBalanceUnsupported
	default:
		return decimal.Zero, fmt.Errorf("balance query: unexpected status %d", resp.StatusCode)
	}

	var body balanceResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return decimal.Zero, fmt.Errorf("decode balance: %w", err)
	}
	units, err := decimal.NewFromString(body.Balance)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse balance %q: %w", body.Balance, err)
	}
	return FromBaseUnits(units, c.decimals), nil
}

func (c *GatewayClient) move(ctx context.Context, kind, path, from, to string, amount decimal.Decimal, idempotencyKey string) (string, error) {
	start := time.Now()
	txHash, err := c.submit(ctx, path, from, to, amount, idempotencyKey)
	if c.metrics != nil {
		c.metrics.ChainTransferDuration.Observe(time.Since(start).Seconds())
	}

	log := c.logger.With().
		Str("kind", kind).
		Str("to", to).
		Str("amount", amount.String()).
		Str("idempotency_key", idempotencyKey).
		Logger()

	if err != nil {
		c.observe(kind, "failed")
		log.Error().Err(err).Msg("transfer failed")
		return "", fmt.Errorf("%w: %s: %w", domain.ErrTransferFailed, kind, err)
	}

	c.observe(kind, "confirmed")
	log.Info().Str("tx_hash", txHash).Msg("transfer confirmed")
	return txHash, nil
}

// submit posts a transfer, resubmitting with the same idempotency key while
// the gateway is unreachable or reports a transient failure.
func (c *GatewayClient) submit(ctx context.Context, path, from, to string, amount decimal.Decimal, idempotencyKey string) (string, error) {
	units, err := ToBaseUnits(amount, c.decimals)
	if err != nil {
		return "", err
	}
	payload, err := json.Marshal(transferRequest{From: from, To: to, Amount: units.String()})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	var txHash string
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
		if err != nil {
			return backoff.Permanent(fmt.Errorf("create request: %w", err))
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Idempotency-Key", idempotencyKey)
		c.authorize(req)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return fmt.Errorf("execute request: %w", err)
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}

		var body transferResponse
		_ = json.Unmarshal(raw, &body)

		switch {
		case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
			return fmt.Errorf("gateway status %d: %s", resp.StatusCode, body.Error)
		case resp.StatusCode >= 300:
			return backoff.Permanent(fmt.Errorf("gateway status %d: %s", resp.StatusCode, body.Error))
		case body.Status != "confirmed":
			return backoff.Permanent(fmt.Errorf("transfer %s: %s", body.Status, body.Error))
		case body.TxHash == "":
			return backoff.Permanent(errors.New("gateway returned no transaction hash"))
		}

		txHash = body.TxHash
		return nil
	}

	b := backoff.WithContext(backoff.WithMaxRetries(newGatewayBackoff(), c.maxRetries), ctx)
	if err := backoff.Retry(operation, b); err != nil {
		return "", err
	}
	return txHash, nil
}

func (c *GatewayClient) authorize(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

func (c *GatewayClient) observe(kind, status string) {
	if c.metrics != nil {
		c.metrics.ChainTransfers.WithLabelValues(kind, status).Inc()
	}
}

func newGatewayBackoff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	b.MaxElapsedTime = time.Minute
	return b
}

// ToBaseUnits converts a token amount to integer base units.
func ToBaseUnits(amount decimal.Decimal, decimals int32) (decimal.Decimal, error) {
	units := amount.Shift(decimals)
	if !units.Equal(units.Truncate(0)) {
		return decimal.Zero, fmt.Errorf("%w: %s has more than %d decimals", domain.ErrInvalidAmount, amount, decimals)
	}
	if !units.IsPositive() {
		return decimal.Zero, domain.ErrInvalidAmount
	}
	return units.Truncate(0), nil
}

// FromBaseUnits converts integer base units to a token amount.
func FromBaseUnits(units decimal.Decimal, decimals int32) decimal.Decimal {
	return units.Shift(-decimals)
}
