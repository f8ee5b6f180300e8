package event

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/finledger/backend/internal/domain/ledger"
	"github.com/finledger/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// stubIdempotencyStore is an in-memory IdempotencyStore for tests
type stubIdempotencyStore struct {
	mu        sync.Mutex
	processed map[string]bool
	failWith  error
}

func newStubIdempotencyStore() *stubIdempotencyStore {
	return &stubIdempotencyStore{processed: make(map[string]bool)}
}

func (s *stubIdempotencyStore) MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return false, s.failWith
	}
	if s.processed[eventID] {
		return false, nil
	}
	s.processed[eventID] = true
	return true, nil
}

func (s *stubIdempotencyStore) IsProcessed(ctx context.Context, eventID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return false, s.failWith
	}
	return s.processed[eventID], nil
}

func (s *stubIdempotencyStore) Close() error { return nil }

func TestIdempotentHandler_ProcessesFirstDelivery(t *testing.T) {
	inner := &recordingHandler{eventTypes: []string{ledger.EventTypeInvoiceApproved}}
	store := newStubIdempotencyStore()
	handler := NewIdempotentHandler(inner, store, zap.NewNop())

	evt := newApprovedEvent()
	require.NoError(t, handler.Handle(context.Background(), evt))

	assert.Len(t, inner.received, 1)
	assert.Equal(t, int64(1), handler.GetMetrics().Stats().EventsProcessed)
}

func TestIdempotentHandler_SkipsDuplicateDelivery(t *testing.T) {
	inner := &recordingHandler{eventTypes: []string{ledger.EventTypeInvoiceApproved}}
	store := newStubIdempotencyStore()
	handler := NewIdempotentHandler(inner, store, zap.NewNop())

	evt := newApprovedEvent()
	require.NoError(t, handler.Handle(context.Background(), evt))
	require.NoError(t, handler.Handle(context.Background(), evt))

	assert.Len(t, inner.received, 1)
	stats := handler.GetMetrics().Stats()
	assert.Equal(t, int64(1), stats.EventsProcessed)
	assert.Equal(t, int64(1), stats.EventsDuplicate)
}

func TestIdempotentHandler_DistinctEventsBothProcessed(t *testing.T) {
	inner := &recordingHandler{eventTypes: []string{ledger.EventTypeInvoiceApproved}}
	store := newStubIdempotencyStore()
	handler := NewIdempotentHandler(inner, store, zap.NewNop())

	require.NoError(t, handler.Handle(context.Background(), newApprovedEvent()))
	require.NoError(t, handler.Handle(context.Background(), newApprovedEvent()))

	assert.Len(t, inner.received, 2)
}

func TestIdempotentHandler_ProcessesWhenStoreUnavailable(t *testing.T) {
	inner := &recordingHandler{eventTypes: []string{ledger.EventTypeInvoiceApproved}}
	store := newStubIdempotencyStore()
	store.failWith = errors.New("redis down")
	handler := NewIdempotentHandler(inner, store, zap.NewNop())

	// A broken idempotency store must not drop events
	require.NoError(t, handler.Handle(context.Background(), newApprovedEvent()))
	assert.Len(t, inner.received, 1)
}

func TestIdempotentHandler_FailedDeliveryIsRetried(t *testing.T) {
	inner := &recordingHandler{
		eventTypes: []string{ledger.EventTypeInvoiceApproved},
		err:        errors.New("write failed"),
	}
	store := newStubIdempotencyStore()
	handler := NewIdempotentHandler(inner, store, zap.NewNop())
	evt := newApprovedEvent()

	err := handler.Handle(context.Background(), evt)
	require.Error(t, err)
	assert.Equal(t, int64(1), handler.GetMetrics().Stats().EventsFailed)

	// The key is only recorded on success, so the redelivery reaches the
	// handler again and succeeds once the projection recovers.
	inner.err = nil
	require.NoError(t, handler.Handle(context.Background(), evt))
	assert.Len(t, inner.received, 2)
	assert.Equal(t, int64(1), handler.GetMetrics().Stats().EventsProcessed)
}

func TestIdempotentHandler_DisabledBypassesStore(t *testing.T) {
	inner := &recordingHandler{eventTypes: []string{ledger.EventTypeInvoiceApproved}}
	store := newStubIdempotencyStore()
	handler := NewIdempotentHandler(inner, store, zap.NewNop(),
		WithIdempotencyConfig(shared.IdempotencyConfig{Enabled: false}),
	)

	evt := newApprovedEvent()
	require.NoError(t, handler.Handle(context.Background(), evt))
	require.NoError(t, handler.Handle(context.Background(), evt))

	// Without idempotency both deliveries reach the handler
	assert.Len(t, inner.received, 2)
	assert.Empty(t, store.processed)
}

func TestIdempotentHandler_EventTypesDelegated(t *testing.T) {
	inner := &recordingHandler{eventTypes: []string{ledger.EventTypeInvoiceApproved}}
	handler := NewIdempotentHandler(inner, newStubIdempotencyStore(), zap.NewNop())

	assert.Equal(t, inner.EventTypes(), handler.EventTypes())
	assert.Equal(t, shared.EventHandler(inner), handler.GetWrappedHandler())
}

func TestWrapHandlersWithIdempotency(t *testing.T) {
	handlers := []shared.EventHandler{
		&recordingHandler{eventTypes: []string{ledger.EventTypeInvoiceApproved}},
		&recordingHandler{eventTypes: []string{ledger.EventTypePaymentCompleted}},
	}

	wrapped := WrapHandlersWithIdempotency(handlers, newStubIdempotencyStore(), zap.NewNop())

	require.Len(t, wrapped, 2)
	for i, h := range wrapped {
		idempotent, ok := h.(*IdempotentHandler)
		require.True(t, ok)
		assert.Equal(t, handlers[i], idempotent.GetWrappedHandler())
	}
}
