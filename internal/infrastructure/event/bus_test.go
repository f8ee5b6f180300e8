package event

import (
	"context"
	"errors"
	"testing"

	"github.com/finledger/backend/internal/domain/ledger"
	"github.com/finledger/backend/internal/domain/shared"
	"github.com/finledger/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// recordingHandler captures events it receives
type recordingHandler struct {
	eventTypes []string
	received   []shared.DomainEvent
	err        error
	panicMsg   string
}

func (h *recordingHandler) EventTypes() []string { return h.eventTypes }

func (h *recordingHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	if h.panicMsg != "" {
		panic(h.panicMsg)
	}
	h.received = append(h.received, event)
	return h.err
}

func newApprovedEvent() *ledger.InvoiceApprovedEvent {
	return ledger.NewInvoiceApprovedEvent(uuid.New(), uuid.New(), uuid.New(), "INV-2026-0001")
}

func newCompletedEvent() *ledger.PaymentCompletedEvent {
	amount := valueobject.MustMoney(5000, valueobject.BDT)
	return ledger.NewPaymentCompletedEvent(uuid.New(), uuid.New(), uuid.New(), amount, "TXN-1")
}

func TestInMemoryEventBus_PublishToSubscribedHandler(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	handler := &recordingHandler{eventTypes: []string{ledger.EventTypeInvoiceApproved}}
	bus.Subscribe(handler)

	err := bus.Publish(context.Background(), newApprovedEvent())
	require.NoError(t, err)

	require.Len(t, handler.received, 1)
	assert.Equal(t, ledger.EventTypeInvoiceApproved, handler.received[0].EventType())
}

func TestInMemoryEventBus_PublishSkipsUninterestedHandlers(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	invoiceHandler := &recordingHandler{eventTypes: []string{ledger.EventTypeInvoiceApproved}}
	paymentHandler := &recordingHandler{eventTypes: []string{ledger.EventTypePaymentCompleted}}
	bus.Subscribe(invoiceHandler)
	bus.Subscribe(paymentHandler)

	err := bus.Publish(context.Background(), newCompletedEvent())
	require.NoError(t, err)

	assert.Empty(t, invoiceHandler.received)
	assert.Len(t, paymentHandler.received, 1)
}

func TestInMemoryEventBus_PublishReturnsHandlerError(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	failing := &recordingHandler{
		eventTypes: []string{ledger.EventTypeInvoiceApproved},
		err:        errors.New("projection unavailable"),
	}
	healthy := &recordingHandler{eventTypes: []string{ledger.EventTypeInvoiceApproved}}
	bus.Subscribe(failing)
	bus.Subscribe(healthy)

	err := bus.Publish(context.Background(), newApprovedEvent())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "projection unavailable")

	// Remaining handlers still run despite the failure
	assert.Len(t, healthy.received, 1)
}

func TestInMemoryEventBus_PublishRecoversFromPanic(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	panicking := &recordingHandler{
		eventTypes: []string{ledger.EventTypeInvoiceApproved},
		panicMsg:   "boom",
	}
	bus.Subscribe(panicking)

	var err error
	assert.NotPanics(t, func() {
		err = bus.Publish(context.Background(), newApprovedEvent())
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panicked")
}

func TestInMemoryEventBus_Unsubscribe(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	handler := &recordingHandler{eventTypes: []string{ledger.EventTypeInvoiceApproved}}
	bus.Subscribe(handler)
	bus.Unsubscribe(handler)

	err := bus.Publish(context.Background(), newApprovedEvent())
	require.NoError(t, err)
	assert.Empty(t, handler.received)
}

func TestInMemoryEventBus_StartStop(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	require.NoError(t, bus.Start(context.Background()))
	require.NoError(t, bus.Stop(context.Background()))
}

func TestInMemoryEventBus_CatchAllReceivesEverything(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	catchAll := &recordingHandler{}
	specific := &recordingHandler{eventTypes: []string{ledger.EventTypePaymentCompleted}}
	bus.Subscribe(catchAll)
	bus.Subscribe(specific)

	require.NoError(t, bus.Publish(context.Background(), newCompletedEvent()))
	require.NoError(t, bus.Publish(context.Background(), newApprovedEvent()))

	assert.Len(t, catchAll.received, 2)
	assert.Len(t, specific.received, 1)
}
