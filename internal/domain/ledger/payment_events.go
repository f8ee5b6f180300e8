package ledger

import (
	"time"

	"github.com/google/uuid"

	"github.com/finledger/backend/internal/domain/shared"
	"github.com/finledger/backend/internal/domain/shared/valueobject"
)

// AggregateTypePayment is the stream type name for payment aggregates.
const AggregateTypePayment = "Payment"

// Payment event kinds.
const (
	EventTypePaymentCreated    = "PaymentCreated"
	EventTypePaymentCompleted  = "PaymentCompleted"
	EventTypePaymentFailed     = "PaymentFailed"
	EventTypePaymentCancelled  = "PaymentCancelled"
	EventTypePaymentReconciled = "PaymentReconciled"
)

// PaymentCreatedEvent is raised when a payment is registered against an
// invoice, in Pending status.
type PaymentCreatedEvent struct {
	shared.BaseDomainEvent
	PaymentID uuid.UUID         `json:"payment_id"`
	InvoiceID uuid.UUID         `json:"invoice_id"`
	Amount    valueobject.Money `json:"amount"`
	Method    PaymentMethod     `json:"method"`
	Reference string            `json:"reference,omitempty"`
}

// NewPaymentCreatedEvent creates a new PaymentCreatedEvent
func NewPaymentCreatedEvent(tenantID, paymentID, invoiceID uuid.UUID, amount valueobject.Money, method PaymentMethod, reference string) *PaymentCreatedEvent {
	return &PaymentCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentCreated, AggregateTypePayment, paymentID, tenantID),
		PaymentID:       paymentID,
		InvoiceID:       invoiceID,
		Amount:          amount,
		Method:          method,
		Reference:       reference,
	}
}

// PaymentCompletedEvent is raised when the funds movement is confirmed.
type PaymentCompletedEvent struct {
	shared.BaseDomainEvent
	PaymentID            uuid.UUID         `json:"payment_id"`
	InvoiceID            uuid.UUID         `json:"invoice_id"`
	Amount               valueobject.Money `json:"amount"`
	TransactionReference string            `json:"transaction_reference"`
	CompletedAt          time.Time         `json:"completed_at"`
}

// NewPaymentCompletedEvent creates a new PaymentCompletedEvent
func NewPaymentCompletedEvent(tenantID, paymentID, invoiceID uuid.UUID, amount valueobject.Money, transactionReference string) *PaymentCompletedEvent {
	return &PaymentCompletedEvent{
		BaseDomainEvent:      shared.NewBaseDomainEvent(EventTypePaymentCompleted, AggregateTypePayment, paymentID, tenantID),
		PaymentID:            paymentID,
		InvoiceID:            invoiceID,
		Amount:               amount,
		TransactionReference: transactionReference,
		CompletedAt:          time.Now().UTC(),
	}
}

// PaymentFailedEvent is raised when a pending payment fails. A failed
// payment never touches its linked invoice.
type PaymentFailedEvent struct {
	shared.BaseDomainEvent
	PaymentID uuid.UUID `json:"payment_id"`
	InvoiceID uuid.UUID `json:"invoice_id"`
	Reason    string    `json:"reason"`
	FailedAt  time.Time `json:"failed_at"`
}

// NewPaymentFailedEvent creates a new PaymentFailedEvent
func NewPaymentFailedEvent(tenantID, paymentID, invoiceID uuid.UUID, reason string) *PaymentFailedEvent {
	return &PaymentFailedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentFailed, AggregateTypePayment, paymentID, tenantID),
		PaymentID:       paymentID,
		InvoiceID:       invoiceID,
		Reason:          reason,
		FailedAt:        time.Now().UTC(),
	}
}

// PaymentCancelledEvent is raised when a pending payment is withdrawn before
// any funds moved.
type PaymentCancelledEvent struct {
	shared.BaseDomainEvent
	PaymentID   uuid.UUID `json:"payment_id"`
	InvoiceID   uuid.UUID `json:"invoice_id"`
	Reason      string    `json:"reason"`
	CancelledAt time.Time `json:"cancelled_at"`
}

// NewPaymentCancelledEvent creates a new PaymentCancelledEvent
func NewPaymentCancelledEvent(tenantID, paymentID, invoiceID uuid.UUID, reason string) *PaymentCancelledEvent {
	return &PaymentCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentCancelled, AggregateTypePayment, paymentID, tenantID),
		PaymentID:       paymentID,
		InvoiceID:       invoiceID,
		Reason:          reason,
		CancelledAt:     time.Now().UTC(),
	}
}

// PaymentReconciledEvent is raised when a completed payment is matched
// against a bank statement line.
type PaymentReconciledEvent struct {
	shared.BaseDomainEvent
	PaymentID    uuid.UUID `json:"payment_id"`
	InvoiceID    uuid.UUID `json:"invoice_id"`
	StatementRef string    `json:"statement_ref"`
	ReconciledAt time.Time `json:"reconciled_at"`
}

// NewPaymentReconciledEvent creates a new PaymentReconciledEvent
func NewPaymentReconciledEvent(tenantID, paymentID, invoiceID uuid.UUID, statementRef string) *PaymentReconciledEvent {
	return &PaymentReconciledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentReconciled, AggregateTypePayment, paymentID, tenantID),
		PaymentID:       paymentID,
		InvoiceID:       invoiceID,
		StatementRef:    statementRef,
		ReconciledAt:    time.Now().UTC(),
	}
}
