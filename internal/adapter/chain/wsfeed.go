package chain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/poolledger/internal/infrastructure/metrics"
	"github.com/iho/poolledger/internal/usecase"
)

// TransferTopic is keccak256("Transfer(address,address,uint256)").
const TransferTopic = "0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef"

// WSFeedConfig configures the websocket log feed.
type WSFeedConfig struct {
	URL                  string
	Contract             string
	TokenDecimals        int32
	ReconnectMaxInterval time.Duration
	PingInterval         time.Duration
	// HandleAttempts bounds how often one event is offered to the handler.
	HandleAttempts uint64
}

// WSFeed streams token Transfer logs over an eth_subscribe websocket and
// reconnects with exponential backoff when the connection drops.
type WSFeed struct {
	cfg     WSFeedConfig
	dialer  websocket.Dialer
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcMessage struct {
	ID     *int            `json:"id,omitempty"`
	Method string          `json:"method,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *rpcError       `json:"error,omitempty"`
	Params *struct {
		Subscription string   `json:"subscription"`
		Result       logEntry `json:"result"`
	} `json:"params,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

type logEntry struct {
	Address         string   `json:"address"`
	Topics          []string `json:"topics"`
	Data            string   `json:"data"`
	BlockNumber     string   `json:"blockNumber"`
	TransactionHash string   `json:"transactionHash"`
	Removed         bool     `json:"removed"`
}

// NewWSFeed creates a new WSFeed.
func NewWSFeed(cfg WSFeedConfig, m *metrics.Metrics, logger zerolog.Logger) *WSFeed {
	if cfg.ReconnectMaxInterval == 0 {
		cfg.ReconnectMaxInterval = 30 * time.Second
	}
	if cfg.PingInterval == 0 {
		cfg.PingInterval = 30 * time.Second
	}
	if cfg.HandleAttempts == 0 {
		cfg.HandleAttempts = 5
	}
	return &WSFeed{
		cfg:     cfg,
		dialer:  websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		metrics: m,
		logger:  logger.With().Str("component", "ws_feed").Logger(),
	}
}

// Run delivers transfers to handle until ctx is cancelled.
func (f *WSFeed) Run(ctx context.Context, handle usecase.TransferHandler) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	b.MaxInterval = f.cfg.ReconnectMaxInterval
	b.MaxElapsedTime = 0
	if b.InitialInterval > b.MaxInterval {
		b.InitialInterval = b.MaxInterval
	}
	b.Reset()

	for {
		subscribed, err := f.session(ctx, handle)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if subscribed {
			b.Reset()
		}

		wait := b.NextBackOff()
		f.logger.Warn().Err(err).Dur("retry_in", wait).Msg("transfer feed disconnected")
		if f.metrics != nil {
			f.metrics.FeedReconnects.Inc()
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// session runs one connection until it fails. subscribed reports whether the
// subscription was established.
func (f *WSFeed) session(ctx context.Context, handle usecase.TransferHandler) (subscribed bool, err error) {
	conn, _, err := f.dialer.DialContext(ctx, f.cfg.URL, nil)
	if err != nil {
		return false, fmt.Errorf("websocket dial: %w", err)
	}

	var closeOnce sync.Once
	closeConn := func() { closeOnce.Do(func() { conn.Close() }) }
	defer closeConn()

	done := make(chan struct{})
	defer close(done)

	var writeMu sync.Mutex
	go func() {
		ticker := time.NewTicker(f.cfg.PingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				closeConn()
				return
			case <-done:
				return
			case <-ticker.C:
				writeMu.Lock()
				err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
				writeMu.Unlock()
				if err != nil {
					closeConn()
					return
				}
			}
		}
	}()

	writeMu.Lock()
	err = conn.WriteJSON(rpcRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "eth_subscribe",
		Params: []any{"logs", map[string]any{
			"address": f.cfg.Contract,
			"topics":  []string{TransferTopic},
		}},
	})
	writeMu.Unlock()
	if err != nil {
		return false, fmt.Errorf("send subscribe: %w", err)
	}

	for {
		var msg rpcMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return subscribed, fmt.Errorf("read: %w", err)
		}

		switch {
		case msg.Error != nil:
			return subscribed, msg.Error
		case msg.ID != nil:
			subscribed = true
			f.logger.Info().Str("contract", f.cfg.Contract).RawJSON("subscription", msg.Result).Msg("subscribed to transfer logs")
		case msg.Method == "eth_subscription" && msg.Params != nil:
			f.deliver(ctx, msg.Params.Result, handle)
		}
	}
}

// deliver decodes one log and offers it to handle. The socket cannot replay
// an event, so a failing handler is retried a bounded number of times and an
// event that still fails is counted as dropped.
func (f *WSFeed) deliver(ctx context.Context, entry logEntry, handle usecase.TransferHandler) {
	if entry.Removed {
		f.logger.Warn().Str("tx_hash", entry.TransactionHash).Msg("ignoring removed log")
		return
	}
	event, err := DecodeTransferLog(entry.Topics, entry.Data, entry.BlockNumber, entry.TransactionHash, f.cfg.TokenDecimals)
	if err != nil {
		f.logger.Warn().Err(err).Str("tx_hash", entry.TransactionHash).Msg("undecodable transfer log")
		f.dropped("undecodable")
		return
	}

	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), f.cfg.HandleAttempts-1), ctx)
	err = backoff.Retry(func() error {
		return handle(ctx, event)
	}, b)
	if err != nil && !errors.Is(err, context.Canceled) {
		f.logger.Error().Err(err).
			Str("tx_hash", event.Reference).
			Str("to", event.To).
			Str("amount", event.Amount.String()).
			Uint64("block", event.Block).
			Msg("transfer dropped after retries, needs manual crediting")
		f.dropped("handler_failed")
	}
}

func (f *WSFeed) dropped(reason string) {
	if f.metrics != nil {
		f.metrics.FeedEventsDropped.WithLabelValues(reason).Inc()
	}
}

// DecodeTransferLog turns the raw fields of an ERC-20 Transfer log into a
// TransferEvent whose reference is the transaction hash.
func DecodeTransferLog(topics []string, data, blockNumber, txHash string, decimals int32) (usecase.TransferEvent, error) {
	if len(topics) != 3 || !strings.EqualFold(topics[0], TransferTopic) {
		return usecase.TransferEvent{}, errors.New("not a Transfer log")
	}
	from, err := topicAddress(topics[1])
	if err != nil {
		return usecase.TransferEvent{}, err
	}
	to, err := topicAddress(topics[2])
	if err != nil {
		return usecase.TransferEvent{}, err
	}

	value, ok := new(big.Int).SetString(strings.TrimPrefix(data, "0x"), 16)
	if !ok {
		return usecase.TransferEvent{}, fmt.Errorf("bad transfer value %q", data)
	}

	var block uint64
	if blockNumber != "" {
		block, err = strconv.ParseUint(strings.TrimPrefix(blockNumber, "0x"), 16, 64)
		if err != nil {
			return usecase.TransferEvent{}, fmt.Errorf("bad block number %q: %w", blockNumber, err)
		}
	}

	return usecase.TransferEvent{
		From:      from,
		To:        to,
		Amount:    decimal.NewFromBigInt(value, -decimals),
		Reference: strings.ToLower(txHash),
		Block:     block,
	}, nil
}

func topicAddress(topic string) (string, error) {
	hex := strings.TrimPrefix(topic, "0x")
	if len(hex) != 64 {
		return "", fmt.Errorf("bad address topic %q", topic)
	}
	return "0x" + strings.ToLower(hex[24:]), nil
}
