package eventpublisher

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/iho/poolledger/internal/domain"
)

// StreamPublisher is the part of jetstream.JetStream NATSPublisher needs.
type StreamPublisher interface {
	Publish(ctx context.Context, subject string, data []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// NATSPublisher publishes events to <prefix>.<event_type>. The event id is
// the JetStream message id so the stream drops republished events.
type NATSPublisher struct {
	js     StreamPublisher
	prefix string
}

// NewNATSPublisher creates a new NATSPublisher.
func NewNATSPublisher(js StreamPublisher, subjectPrefix string) *NATSPublisher {
	return &NATSPublisher{js: js, prefix: subjectPrefix}
}

// Publish sends the event and waits for the stream ack.
func (p *NATSPublisher) Publish(ctx context.Context, event *domain.OutboxEvent) error {
	data, err := encode(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	subject := fmt.Sprintf("%s.%s", p.prefix, event.EventType)
	if _, err := p.js.Publish(ctx, subject, data, jetstream.WithMsgID(event.ID)); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}
