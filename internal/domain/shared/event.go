package shared

import (
	"time"

	"github.com/google/uuid"
)

// DomainEvent is an immutable record of something that happened to an
// aggregate. Events are the unit of persistence: an aggregate's history is
// the ordered sequence of its events.
type DomainEvent interface {
	EventID() uuid.UUID
	EventType() string
	OccurredAt() time.Time
	AggregateID() uuid.UUID
	AggregateType() string
	TenantID() uuid.UUID
	// Sequence is the position of the event within its aggregate stream,
	// starting at 1. It is assigned when the aggregate raises the event and
	// doubles as the aggregate version after the event is applied.
	Sequence() int64
}

// BaseDomainEvent provides common fields for all domain events.
type BaseDomainEvent struct {
	ID            uuid.UUID `json:"id"`
	Type          string    `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggID         uuid.UUID `json:"aggregate_id"`
	AggType       string    `json:"aggregate_type"`
	TenantIDValue uuid.UUID `json:"tenant_id"`
	SequenceNo    int64     `json:"sequence_number"`
}

// NewBaseDomainEvent creates the common envelope for a domain event.
// The sequence number is assigned later, when the aggregate raises the event.
func NewBaseDomainEvent(eventType, aggType string, aggID, tenantID uuid.UUID) BaseDomainEvent {
	return BaseDomainEvent{
		ID:            uuid.New(),
		Type:          eventType,
		Timestamp:     time.Now().UTC(),
		AggID:         aggID,
		AggType:       aggType,
		TenantIDValue: tenantID,
	}
}

// EventID returns the unique event identifier.
func (e *BaseDomainEvent) EventID() uuid.UUID {
	return e.ID
}

// EventType returns the type of the event.
func (e *BaseDomainEvent) EventType() string {
	return e.Type
}

// OccurredAt returns when the event occurred.
func (e *BaseDomainEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID returns the ID of the aggregate that produced this event.
func (e *BaseDomainEvent) AggregateID() uuid.UUID {
	return e.AggID
}

// AggregateType returns the type of the aggregate.
func (e *BaseDomainEvent) AggregateType() string {
	return e.AggType
}

// TenantID returns the tenant the event belongs to.
func (e *BaseDomainEvent) TenantID() uuid.UUID {
	return e.TenantIDValue
}

// Sequence returns the event's position in its aggregate stream.
func (e *BaseDomainEvent) Sequence() int64 {
	return e.SequenceNo
}

func (e *BaseDomainEvent) setSequence(n int64) {
	e.SequenceNo = n
}

// sequenced is implemented by events embedding BaseDomainEvent so the
// aggregate base can stamp the stream position at raise time.
type sequenced interface {
	setSequence(n int64)
}
