package shared

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventStore persists aggregate streams as append-only event sequences.
// The store is the sole owner of persisted history; aggregates are transient
// in-memory reconstructions of it.
type EventStore interface {
	// AppendToStream appends events to the stream identified by streamID.
	// expectedVersion is the version the caller rehydrated the aggregate at;
	// if another writer has appended in the meantime the call fails with
	// ErrConcurrencyConflict and nothing is written. On success the new
	// stream version is returned and the events are durably queued for
	// publication in the same transaction.
	AppendToStream(ctx context.Context, streamID uuid.UUID, expectedVersion int64, events []DomainEvent) (int64, error)

	// ReadStream returns the full ordered event sequence for a stream.
	ReadStream(ctx context.Context, streamID uuid.UUID) ([]DomainEvent, error)

	// ReadStreamFrom returns the stream's events with sequence numbers
	// strictly greater than afterVersion.
	ReadStreamFrom(ctx context.Context, streamID uuid.UUID, afterVersion int64) ([]DomainEvent, error)

	// ReadAll pages through the global event log in append order, for
	// projection rebuilds. It returns up to limit events recorded after the
	// given global position, together with the position of the last event
	// returned.
	ReadAll(ctx context.Context, afterPosition int64, limit int) ([]DomainEvent, int64, error)
}

// Snapshot is a point-in-time serialization of aggregate state, taken at a
// specific stream version to avoid full replay on load.
type Snapshot struct {
	StreamID      uuid.UUID
	TenantID      uuid.UUID
	AggregateType string
	Version       int64
	State         []byte
	TakenAt       time.Time
}

// SnapshotStore persists the most recent snapshot per stream.
type SnapshotStore interface {
	// Save stores the snapshot, replacing any older one for the stream.
	Save(ctx context.Context, snapshot *Snapshot) error
	// Load returns the latest snapshot for a stream, or ErrNotFound.
	Load(ctx context.Context, streamID uuid.UUID) (*Snapshot, error)
}
