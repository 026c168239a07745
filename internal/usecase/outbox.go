package usecase

import (
	"context"
	"time"

	"github.com/iho/poolledger/internal/domain"
)

// emitEvent writes an outbox event inside tx. A nil repository disables the outbox.
func emitEvent(
	ctx context.Context,
	tx Transaction,
	repo OutboxRepository,
	idGen IDGenerator,
	aggregateType, aggregateID, eventType string,
	payload any,
	now time.Time,
) error {
	if repo == nil {
		return nil
	}

	event := &domain.OutboxEvent{
		ID:            idGen.Generate(),
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		EventType:     eventType,
		Payload:       domain.MarshalState(payload),
		CreatedAt:     now,
		Published:     false,
	}
	return repo.Create(ctx, tx, event)
}
