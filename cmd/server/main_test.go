package main

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/poolledger/internal/adapter/chain"
	"github.com/iho/poolledger/internal/infrastructure/config"
	"github.com/iho/poolledger/internal/infrastructure/eventpublisher"
	"github.com/iho/poolledger/internal/infrastructure/metrics"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load()
	require.NoError(t, err)
	return cfg
}

func TestStreamsFor(t *testing.T) {
	cfg := testConfig(t)
	assert.Empty(t, streamsFor(cfg))

	cfg.ChainFeed = "nats"
	cfg.EventPublisher = "nats"
	cfg.EventSubjectPrefix = "pool.ledger"
	streams := streamsFor(cfg)
	require.Len(t, streams, 2)
	assert.Equal(t, cfg.NATSStream, streams[0].Name)
	assert.Equal(t, []string{cfg.NATSTransferSubject}, streams[0].Subjects)
	assert.Equal(t, "POOL_LEDGER_EVENTS", streams[1].Name)
	assert.Equal(t, []string{"pool.ledger.>"}, streams[1].Subjects)
}

func TestBuildFeed(t *testing.T) {
	cfg := testConfig(t)
	m := metrics.NewWithRegistry(prometheus.NewRegistry())

	feed, err := buildFeed(cfg, nil, m, zerolog.Nop())
	require.NoError(t, err)
	assert.Nil(t, feed)

	cfg.ChainFeed = "websocket"
	feed, err = buildFeed(cfg, nil, m, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &chain.WSFeed{}, feed)

	cfg.ChainFeed = "nats"
	_, err = buildFeed(cfg, nil, m, zerolog.Nop())
	assert.ErrorIs(t, err, errNoJetStream)
}

func TestBuildPublisher(t *testing.T) {
	cfg := testConfig(t)

	p, closeFn, err := buildPublisher(cfg, nil, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &eventpublisher.LogPublisher{}, p)
	closeFn()

	cfg.EventPublisher = "kafka"
	p, closeFn, err = buildPublisher(cfg, nil, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &eventpublisher.KafkaPublisher{}, p)
	closeFn()

	cfg.EventPublisher = "nats"
	_, _, err = buildPublisher(cfg, nil, zerolog.Nop())
	assert.ErrorIs(t, err, errNoJetStream)
}

func TestIgnoreCanceled(t *testing.T) {
	assert.NoError(t, ignoreCanceled(context.Canceled))
	assert.NoError(t, ignoreCanceled(nil))

	boom := errors.New("boom")
	assert.ErrorIs(t, ignoreCanceled(boom), boom)
}
