package event

import (
	"testing"

	"github.com/finledger/backend/internal/domain/ledger"
	"github.com/finledger/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventSerializer_RoundTrip(t *testing.T) {
	serializer := NewEventSerializer()
	RegisterLedgerEvents(serializer)

	tenantID := uuid.New()
	invoiceID := uuid.New()
	paymentID := uuid.New()
	amount := valueobject.MustMoney(11500, valueobject.BDT)

	original := ledger.NewPaymentCompletedEvent(tenantID, paymentID, invoiceID, amount, "TXN-42")

	data, err := serializer.Serialize(original)
	require.NoError(t, err)

	restored, err := serializer.Deserialize(ledger.EventTypePaymentCompleted, data)
	require.NoError(t, err)

	completed, ok := restored.(*ledger.PaymentCompletedEvent)
	require.True(t, ok)
	assert.Equal(t, original.EventID(), completed.EventID())
	assert.Equal(t, paymentID, completed.AggregateID())
	assert.Equal(t, tenantID, completed.TenantID())
	assert.Equal(t, invoiceID, completed.InvoiceID)
	assert.True(t, amount.Equals(completed.Amount))
	assert.Equal(t, "TXN-42", completed.TransactionReference)
}

func TestEventSerializer_RoundTripInvoiceCreated(t *testing.T) {
	serializer := NewEventSerializer()
	RegisterLedgerEvents(serializer)

	tenantID := uuid.New()
	lines := []ledger.LineItem{
		{Description: "Widgets", Quantity: 10, UnitPrice: valueobject.MustMoney(1000, valueobject.BDT), TaxCategory: "standard"},
	}
	subtotal := valueobject.MustMoney(10000, valueobject.BDT)
	tax := valueobject.MustMoney(1500, valueobject.BDT)
	grand := valueobject.MustMoney(11500, valueobject.BDT)

	original := ledger.NewInvoiceCreatedEvent(tenantID, uuid.New(), uuid.New(), uuid.New(), lines, subtotal, tax, grand)

	data, err := serializer.Serialize(original)
	require.NoError(t, err)

	restored, err := serializer.Deserialize(ledger.EventTypeInvoiceCreated, data)
	require.NoError(t, err)

	created, ok := restored.(*ledger.InvoiceCreatedEvent)
	require.True(t, ok)
	require.Len(t, created.LineItems, 1)
	assert.Equal(t, "Widgets", created.LineItems[0].Description)
	assert.True(t, grand.Equals(created.GrandTotal))
}

func TestEventSerializer_UnknownType(t *testing.T) {
	serializer := NewEventSerializer()

	_, err := serializer.Deserialize("NoSuchEvent", []byte(`{}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown event type")
}

func TestEventSerializer_InvalidPayload(t *testing.T) {
	serializer := NewEventSerializer()
	RegisterLedgerEvents(serializer)

	_, err := serializer.Deserialize(ledger.EventTypeInvoiceApproved, []byte(`not-json`))
	require.Error(t, err)
}

func TestRegisterLedgerEvents_CoversAllTypes(t *testing.T) {
	serializer := NewEventSerializer()
	RegisterLedgerEvents(serializer)

	expected := []string{
		ledger.EventTypeInvoiceCreated,
		ledger.EventTypeInvoiceApproved,
		ledger.EventTypeInvoicePaymentRecorded,
		ledger.EventTypeInvoiceFullyPaid,
		ledger.EventTypeInvoiceCancelled,
		ledger.EventTypePaymentCreated,
		ledger.EventTypePaymentCompleted,
		ledger.EventTypePaymentFailed,
		ledger.EventTypePaymentCancelled,
		ledger.EventTypePaymentReconciled,
	}

	for _, eventType := range expected {
		assert.True(t, serializer.IsRegistered(eventType), "missing registration for %s", eventType)
	}
	assert.Len(t, serializer.RegisteredTypes(), len(expected))
}
