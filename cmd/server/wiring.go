package main

import (
	"errors"
	"strings"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog"

	"github.com/iho/poolledger/internal/adapter/chain"
	"github.com/iho/poolledger/internal/infrastructure/config"
	"github.com/iho/poolledger/internal/infrastructure/eventpublisher"
	"github.com/iho/poolledger/internal/infrastructure/metrics"
	natsinfra "github.com/iho/poolledger/internal/infrastructure/nats"
	"github.com/iho/poolledger/internal/usecase"
)

var errNoJetStream = errors.New("nats selected but no JetStream connection")

// eventStreamName derives a JetStream stream name from the subject prefix.
func eventStreamName(prefix string) string {
	return strings.ToUpper(strings.NewReplacer(".", "_", "*", "_", ">", "_").Replace(prefix)) + "_EVENTS"
}

// streamsFor lists the streams the configured feed and publisher need.
func streamsFor(cfg *config.Config) []jetstream.StreamConfig {
	var streams []jetstream.StreamConfig
	if cfg.ChainFeed == "nats" {
		streams = append(streams, natsinfra.StreamConfig(cfg.NATSStream, cfg.NATSTransferSubject))
	}
	if cfg.EventPublisher == "nats" {
		streams = append(streams, natsinfra.StreamConfig(eventStreamName(cfg.EventSubjectPrefix), cfg.EventSubjectPrefix+".>"))
	}
	return streams
}

// buildFeed returns the configured transfer feed, or nil when deposits are
// not watched.
func buildFeed(cfg *config.Config, js jetstream.JetStream, m *metrics.Metrics, l zerolog.Logger) (usecase.EventFeed, error) {
	switch cfg.ChainFeed {
	case "websocket":
		return chain.NewWSFeed(chain.WSFeedConfig{
			URL:                  cfg.ChainWSURL,
			Contract:             cfg.TokenContract,
			TokenDecimals:        cfg.TokenDecimals,
			ReconnectMaxInterval: cfg.FeedReconnectMaxInterval,
		}, m, l), nil
	case "nats":
		if js == nil {
			return nil, errNoJetStream
		}
		return chain.NewNATSFeed(js, chain.NATSFeedConfig{
			Stream:   cfg.NATSStream,
			Subject:  cfg.NATSTransferSubject,
			Consumer: cfg.NATSConsumer,
		}, l), nil
	default:
		return nil, nil
	}
}

// buildPublisher returns the outbox sink and a func releasing it.
func buildPublisher(cfg *config.Config, js eventpublisher.StreamPublisher, l zerolog.Logger) (eventpublisher.Publisher, func(), error) {
	switch cfg.EventPublisher {
	case "nats":
		if js == nil {
			return nil, nil, errNoJetStream
		}
		return eventpublisher.NewNATSPublisher(js, cfg.EventSubjectPrefix), func() {}, nil
	case "kafka":
		p := eventpublisher.NewKafkaPublisher(eventpublisher.NewKafkaWriter(cfg.KafkaBrokers, cfg.KafkaTopic))
		return p, func() {
			if err := p.Close(); err != nil {
				l.Error().Err(err).Msg("failed to close kafka writer")
			}
		}, nil
	default:
		return eventpublisher.NewLogPublisher(l), func() {}, nil
	}
}
