package event

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/finledger/backend/internal/domain/shared"
)

// OutboxPublisher queues domain events for publication within a transaction.
// The event store calls this during AppendToStream so events become visible
// to subscribers exactly when the append commits.
type OutboxPublisher struct {
	serializer *EventSerializer
}

// NewOutboxPublisher creates a publisher that serializes events with the
// given serializer before queueing them.
func NewOutboxPublisher(serializer *EventSerializer) *OutboxPublisher {
	return &OutboxPublisher{serializer: serializer}
}

// PublishWithTx writes one outbox entry per event inside tx, so the entries
// commit or roll back together with the event-log append.
func (p *OutboxPublisher) PublishWithTx(ctx context.Context, tx *gorm.DB, events ...shared.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}

	entries := make([]*shared.OutboxEntry, len(events))
	for i, evt := range events {
		payload, err := p.serializer.Serialize(evt)
		if err != nil {
			return fmt.Errorf("serialize %s for outbox: %w", evt.EventType(), err)
		}
		entries[i] = shared.NewOutboxEntry(evt, payload)
	}

	return NewGormOutboxRepository(tx).Save(ctx, entries...)
}
