// Package testutil provides shared test doubles for event handling.
package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/finledger/backend/internal/domain/shared"
)

// MockEventHandler records every event it receives. Safe for concurrent use,
// so it can sit on the bus next to real projections.
type MockEventHandler struct {
	types []string

	mu      sync.Mutex
	seen    []shared.DomainEvent
	nextErr error
}

// NewMockEventHandler returns a handler subscribed to the given event types.
func NewMockEventHandler(eventTypes ...string) *MockEventHandler {
	return &MockEventHandler{types: eventTypes}
}

// EventTypes returns the subscribed event types.
func (h *MockEventHandler) EventTypes() []string { return h.types }

// Handle records the event and returns the configured error, if any.
func (h *MockEventHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seen = append(h.seen, event)
	return h.nextErr
}

// Handled returns a copy of the recorded events in delivery order.
func (h *MockEventHandler) Handled() []shared.DomainEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]shared.DomainEvent, len(h.seen))
	copy(out, h.seen)
	return out
}

// HandledCount returns how many events have been recorded.
func (h *MockEventHandler) HandledCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.seen)
}

// SetError makes subsequent Handle calls return err. Events are still
// recorded, which matches a projection that fails after partial work.
func (h *MockEventHandler) SetError(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextErr = err
}

// Reset clears recorded events and the configured error.
func (h *MockEventHandler) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seen = nil
	h.nextErr = nil
}

// TestEvent is a minimal domain event for exercising bus and outbox plumbing.
type TestEvent struct {
	shared.BaseDomainEvent
	Data string
}

// NewTestEvent builds a test event with a random event ID.
func NewTestEvent(eventType string, tenantID uuid.UUID) *TestEvent {
	return NewTestEventWithID(uuid.New(), eventType, tenantID)
}

// NewTestEventWithID builds a test event with a fixed event ID, for
// idempotency and deduplication scenarios.
func NewTestEventWithID(eventID uuid.UUID, eventType string, tenantID uuid.UUID) *TestEvent {
	return &TestEvent{
		BaseDomainEvent: shared.BaseDomainEvent{
			ID:            eventID,
			Type:          eventType,
			TenantIDValue: tenantID,
			Timestamp:     time.Now(),
			AggID:         uuid.New(),
			AggType:       "TestAggregate",
		},
		Data: "test-data",
	}
}

// WaitForCondition polls condition until it holds or timeout elapses.
func WaitForCondition(t *testing.T, condition func() bool, timeout, interval time.Duration) bool {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for {
		if condition() {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(interval)
	}
}

// WaitForEventCount waits until the handler has recorded at least count
// events.
func WaitForEventCount(t *testing.T, handler *MockEventHandler, count int, timeout time.Duration) bool {
	t.Helper()

	return WaitForCondition(t, func() bool {
		return handler.HandledCount() >= count
	}, timeout, 10*time.Millisecond)
}
