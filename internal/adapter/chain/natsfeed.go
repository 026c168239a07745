package chain

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/poolledger/internal/domain"
	"github.com/iho/poolledger/internal/usecase"
)

// NATSFeedConfig configures the JetStream transfer feed.
type NATSFeedConfig struct {
	Stream   string
	Subject  string
	Consumer string
	AckWait  time.Duration
}

// NATSFeed consumes transfer events published by an indexer on JetStream.
// A message is acked only after the handler settles it, so a crash before the
// ack redelivers it.
type NATSFeed struct {
	js     jetstream.JetStream
	cfg    NATSFeedConfig
	logger zerolog.Logger
}

// TransferMessage is the wire form of an indexed transfer.
type TransferMessage struct {
	From   string          `json:"from"`
	To     string          `json:"to"`
	Amount decimal.Decimal `json:"amount"`
	TxHash string          `json:"tx_hash"`
	Block  uint64          `json:"block"`
}

// NewNATSFeed creates a new NATSFeed.
func NewNATSFeed(js jetstream.JetStream, cfg NATSFeedConfig, logger zerolog.Logger) *NATSFeed {
	if cfg.AckWait == 0 {
		cfg.AckWait = 30 * time.Second
	}
	return &NATSFeed{
		js:     js,
		cfg:    cfg,
		logger: logger.With().Str("component", "nats_feed").Logger(),
	}
}

// Run consumes the durable consumer until ctx is cancelled.
func (f *NATSFeed) Run(ctx context.Context, handle usecase.TransferHandler) error {
	consumer, err := f.js.CreateOrUpdateConsumer(ctx, f.cfg.Stream, jetstream.ConsumerConfig{
		Durable:       f.cfg.Consumer,
		FilterSubject: f.cfg.Subject,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       f.cfg.AckWait,
		DeliverPolicy: jetstream.DeliverAllPolicy,
	})
	if err != nil {
		return fmt.Errorf("create consumer %s: %w", f.cfg.Consumer, err)
	}

	cc, err := consumer.Consume(func(msg jetstream.Msg) {
		f.handleMsg(ctx, msg, handle)
	})
	if err != nil {
		return fmt.Errorf("consume %s: %w", f.cfg.Consumer, err)
	}
	defer cc.Stop()

	f.logger.Info().
		Str("stream", f.cfg.Stream).
		Str("subject", f.cfg.Subject).
		Str("consumer", f.cfg.Consumer).
		Msg("subscribed to transfer subject")

	<-ctx.Done()
	return ctx.Err()
}

func (f *NATSFeed) handleMsg(ctx context.Context, msg jetstream.Msg, handle usecase.TransferHandler) {
	var m TransferMessage
	if err := json.Unmarshal(msg.Data(), &m); err != nil {
		f.logger.Warn().Err(err).Str("subject", msg.Subject()).Msg("dropping undecodable transfer message")
		_ = msg.Term()
		return
	}

	event := usecase.TransferEvent{
		From:      domain.NormalizeAddress(m.From),
		To:        domain.NormalizeAddress(m.To),
		Amount:    m.Amount,
		Reference: m.TxHash,
		Block:     m.Block,
	}

	if err := handle(ctx, event); err != nil {
		f.logger.Warn().Err(err).Str("tx_hash", m.TxHash).Msg("transfer not settled, requesting redelivery")
		_ = msg.Nak()
		return
	}
	if err := msg.Ack(); err != nil {
		f.logger.Warn().Err(err).Str("tx_hash", m.TxHash).Msg("ack failed")
	}
}
