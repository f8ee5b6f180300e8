package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/finledger/backend/internal/domain/shared"
	"github.com/finledger/backend/internal/infrastructure/event"
)

// EventRecord is the GORM model for a persisted domain event. The
// autoincrement position orders the global log; the (stream_id,
// sequence_number) unique index is the optimistic concurrency guard.
type EventRecord struct {
	Position       int64     `gorm:"primaryKey;autoIncrement"`
	EventID        uuid.UUID `gorm:"type:uuid;uniqueIndex;not null"`
	StreamID       uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_event_records_stream_seq,priority:1"`
	SequenceNumber int64     `gorm:"not null;uniqueIndex:idx_event_records_stream_seq,priority:2"`
	TenantID       uuid.UUID `gorm:"type:uuid;index;not null"`
	AggregateType  string    `gorm:"type:varchar(100);not null"`
	EventType      string    `gorm:"type:varchar(100);not null"`
	Payload        []byte    `gorm:"type:jsonb;not null"`
	OccurredAt     time.Time `gorm:"not null"`
	CreatedAt      time.Time `gorm:"autoCreateTime"`
}

// TableName returns the table name for the model
func (EventRecord) TableName() string {
	return "event_records"
}

// GormEventStore implements the shared.EventStore interface on a relational
// event log. Appends write the event rows and their outbox entries in one
// transaction, so publication is queued if and only if the events committed.
type GormEventStore struct {
	db         *gorm.DB
	serializer *event.EventSerializer
	outbox     *event.OutboxPublisher
}

var _ shared.EventStore = (*GormEventStore)(nil)

// NewGormEventStore creates a new event store backed by the given database.
func NewGormEventStore(db *gorm.DB, serializer *event.EventSerializer) *GormEventStore {
	return &GormEventStore{
		db:         db,
		serializer: serializer,
		outbox:     event.NewOutboxPublisher(serializer),
	}
}

// AppendToStream appends events to a stream, failing with
// shared.ErrConcurrencyConflict when the stream head no longer matches
// expectedVersion. Events must carry contiguous sequence numbers continuing
// from expectedVersion.
func (s *GormEventStore) AppendToStream(ctx context.Context, streamID uuid.UUID, expectedVersion int64, events []shared.DomainEvent) (int64, error) {
	if len(events) == 0 {
		return expectedVersion, nil
	}

	records := make([]EventRecord, 0, len(events))
	for i, ev := range events {
		want := expectedVersion + int64(i) + 1
		if ev.Sequence() != want {
			return 0, fmt.Errorf("event %s has sequence %d, expected %d", ev.EventType(), ev.Sequence(), want)
		}
		if ev.AggregateID() != streamID {
			return 0, fmt.Errorf("event %s belongs to stream %s, not %s", ev.EventType(), ev.AggregateID(), streamID)
		}
		payload, err := s.serializer.Serialize(ev)
		if err != nil {
			return 0, fmt.Errorf("failed to serialize event %s: %w", ev.EventType(), err)
		}
		records = append(records, EventRecord{
			EventID:        ev.EventID(),
			StreamID:       streamID,
			SequenceNumber: ev.Sequence(),
			TenantID:       ev.TenantID(),
			AggregateType:  ev.AggregateType(),
			EventType:      ev.EventType(),
			Payload:        payload,
			OccurredAt:     ev.OccurredAt(),
		})
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var head int64
		if err := tx.Model(&EventRecord{}).
			Where("stream_id = ?", streamID).
			Select("COALESCE(MAX(sequence_number), 0)").
			Scan(&head).Error; err != nil {
			return fmt.Errorf("failed to read stream head: %w", err)
		}
		if head != expectedVersion {
			return shared.ErrConcurrencyConflict
		}

		if err := tx.Create(&records).Error; err != nil {
			// Two writers can pass the head check concurrently; the unique
			// index on (stream_id, sequence_number) decides the race.
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return shared.ErrConcurrencyConflict
			}
			return fmt.Errorf("failed to append events: %w", err)
		}

		return s.outbox.PublishWithTx(ctx, tx, events...)
	})
	if err != nil {
		return 0, err
	}

	return events[len(events)-1].Sequence(), nil
}

// ReadStream returns the full ordered event sequence for a stream.
func (s *GormEventStore) ReadStream(ctx context.Context, streamID uuid.UUID) ([]shared.DomainEvent, error) {
	return s.ReadStreamFrom(ctx, streamID, 0)
}

// ReadStreamFrom returns the stream's events with sequence numbers strictly
// greater than afterVersion.
func (s *GormEventStore) ReadStreamFrom(ctx context.Context, streamID uuid.UUID, afterVersion int64) ([]shared.DomainEvent, error) {
	var records []EventRecord
	err := s.db.WithContext(ctx).
		Where("stream_id = ? AND sequence_number > ?", streamID, afterVersion).
		Order("sequence_number ASC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to read stream %s: %w", streamID, err)
	}
	return s.deserializeRecords(records)
}

// ReadAll pages through the global event log in append order. It returns up
// to limit events recorded after the given position, together with the
// position of the last record returned.
func (s *GormEventStore) ReadAll(ctx context.Context, afterPosition int64, limit int) ([]shared.DomainEvent, int64, error) {
	if limit <= 0 {
		return nil, afterPosition, nil
	}

	var records []EventRecord
	err := s.db.WithContext(ctx).
		Where("position > ?", afterPosition).
		Order("position ASC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read event log: %w", err)
	}
	if len(records) == 0 {
		return nil, afterPosition, nil
	}

	events, err := s.deserializeRecords(records)
	if err != nil {
		return nil, 0, err
	}
	return events, records[len(records)-1].Position, nil
}

func (s *GormEventStore) deserializeRecords(records []EventRecord) ([]shared.DomainEvent, error) {
	events := make([]shared.DomainEvent, 0, len(records))
	for _, rec := range records {
		ev, err := s.serializer.Deserialize(rec.EventType, rec.Payload)
		if err != nil {
			return nil, fmt.Errorf("failed to deserialize event %s at position %d: %w", rec.EventType, rec.Position, err)
		}
		events = append(events, ev)
	}
	return events, nil
}
