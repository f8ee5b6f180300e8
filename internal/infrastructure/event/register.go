package event

import (
	"github.com/finledger/backend/internal/domain/ledger"
)

// RegisterLedgerEvents binds every ledger event type to the serializer. The
// outbox processor and projection rebuilds cannot deserialize stored events
// without it.
func RegisterLedgerEvents(serializer *EventSerializer) {
	RegisterEvent[ledger.InvoiceCreatedEvent](serializer, ledger.EventTypeInvoiceCreated)
	RegisterEvent[ledger.InvoiceApprovedEvent](serializer, ledger.EventTypeInvoiceApproved)
	RegisterEvent[ledger.InvoicePaymentRecordedEvent](serializer, ledger.EventTypeInvoicePaymentRecorded)
	RegisterEvent[ledger.InvoiceFullyPaidEvent](serializer, ledger.EventTypeInvoiceFullyPaid)
	RegisterEvent[ledger.InvoiceCancelledEvent](serializer, ledger.EventTypeInvoiceCancelled)

	RegisterEvent[ledger.PaymentCreatedEvent](serializer, ledger.EventTypePaymentCreated)
	RegisterEvent[ledger.PaymentCompletedEvent](serializer, ledger.EventTypePaymentCompleted)
	RegisterEvent[ledger.PaymentFailedEvent](serializer, ledger.EventTypePaymentFailed)
	RegisterEvent[ledger.PaymentCancelledEvent](serializer, ledger.EventTypePaymentCancelled)
	RegisterEvent[ledger.PaymentReconciledEvent](serializer, ledger.EventTypePaymentReconciled)
}
