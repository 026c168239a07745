package nats

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingCreator struct {
	names []string
	fail  string
}

func (r *recordingCreator) CreateOrUpdateStream(_ context.Context, cfg jetstream.StreamConfig) (jetstream.Stream, error) {
	if cfg.Name == r.fail {
		return nil, errors.New("boom")
	}
	r.names = append(r.names, cfg.Name)
	return nil, nil
}

func TestStreamConfig(t *testing.T) {
	cfg := StreamConfig("CHAIN", "chain.transfers")
	assert.Equal(t, "CHAIN", cfg.Name)
	assert.Equal(t, []string{"chain.transfers"}, cfg.Subjects)
	assert.Equal(t, jetstream.FileStorage, cfg.Storage)
	assert.Equal(t, 72*time.Hour, cfg.MaxAge)
}

func TestEnsureStreams(t *testing.T) {
	rec := &recordingCreator{}
	require.NoError(t, EnsureStreams(context.Background(), rec,
		StreamConfig("CHAIN", "chain.>"),
		StreamConfig("LEDGER", "poolledger.>"),
	))
	assert.Equal(t, []string{"CHAIN", "LEDGER"}, rec.names)

	rec = &recordingCreator{fail: "LEDGER"}
	err := EnsureStreams(context.Background(), rec, StreamConfig("LEDGER", "poolledger.>"))
	assert.ErrorContains(t, err, "create stream LEDGER")
}

func TestConnectFailsWithoutServer(t *testing.T) {
	_, _, err := Connect("nats://127.0.0.1:1", "test", zerolog.Nop())
	assert.Error(t, err)
}
