package shared

import (
	"fmt"

	"github.com/google/uuid"
)

// EventApplier mutates aggregate state from a single event. All state
// transitions go through Apply so that replaying a stream reproduces the
// exact state of the live instance.
type EventApplier interface {
	Apply(event DomainEvent) error
}

// AggregateRoot is the base interface for event-sourced aggregate roots.
type AggregateRoot interface {
	EventApplier
	GetID() uuid.UUID
	GetTenantID() uuid.UUID
	// GetVersion returns the number of events applied to this instance.
	// It increases by exactly one per applied event.
	GetVersion() int64
	AggregateType() string
	UncommittedEvents() []DomainEvent
	ClearUncommittedEvents()
}

// Snapshotter is implemented by aggregates that support snapshot-based
// rehydration. Restoring a snapshot and replaying the remaining events must
// produce state identical to a full replay from the first event.
type Snapshotter interface {
	SnapshotState() ([]byte, error)
	RestoreSnapshot(version int64, state []byte) error
}

// BaseAggregateRoot provides identity, versioning and uncommitted-event
// tracking for event-sourced aggregates.
type BaseAggregateRoot struct {
	ID       uuid.UUID `json:"id"`
	TenantID uuid.UUID `json:"tenant_id"`
	Version  int64     `json:"version"`

	uncommitted []DomainEvent
}

// NewBaseAggregateRoot creates an aggregate base at version zero. The first
// raised event moves it to version one.
func NewBaseAggregateRoot(id, tenantID uuid.UUID) BaseAggregateRoot {
	return BaseAggregateRoot{ID: id, TenantID: tenantID}
}

// GetID returns the aggregate (stream) identifier.
func (a *BaseAggregateRoot) GetID() uuid.UUID {
	return a.ID
}

// GetTenantID returns the owning tenant.
func (a *BaseAggregateRoot) GetTenantID() uuid.UUID {
	return a.TenantID
}

// GetVersion returns the aggregate version used for optimistic concurrency.
func (a *BaseAggregateRoot) GetVersion() int64 {
	return a.Version
}

// UncommittedEvents returns events raised since the last load or clear, in
// the order they were raised.
func (a *BaseAggregateRoot) UncommittedEvents() []DomainEvent {
	return a.uncommitted
}

// ClearUncommittedEvents discards pending events after they are persisted.
func (a *BaseAggregateRoot) ClearUncommittedEvents() {
	a.uncommitted = nil
}

// Raise stamps the event with the next stream sequence, applies it and
// records it as uncommitted. Commands must finish all validation before
// raising: an event that fails to apply indicates a programming error.
func (a *BaseAggregateRoot) Raise(applier EventApplier, event DomainEvent) error {
	if s, ok := event.(sequenced); ok {
		s.setSequence(a.Version + 1)
	}
	if err := applier.Apply(event); err != nil {
		return fmt.Errorf("apply %s: %w", event.EventType(), err)
	}
	a.Version++
	a.uncommitted = append(a.uncommitted, event)
	return nil
}

// LoadFromHistory rehydrates the aggregate by replaying stored events on top
// of the current state (empty, or restored from a snapshot).
func (a *BaseAggregateRoot) LoadFromHistory(applier EventApplier, events []DomainEvent) error {
	for _, event := range events {
		if err := applier.Apply(event); err != nil {
			return fmt.Errorf("replay %s at sequence %d: %w", event.EventType(), event.Sequence(), err)
		}
		a.Version++
	}
	return nil
}
