package ledger

import (
	"time"

	"github.com/google/uuid"

	"github.com/finledger/backend/internal/domain/shared"
	"github.com/finledger/backend/internal/domain/shared/valueobject"
)

// AggregateTypeInvoice is the stream type name for invoice aggregates.
const AggregateTypeInvoice = "Invoice"

// Invoice event kinds.
const (
	EventTypeInvoiceCreated         = "InvoiceCreated"
	EventTypeInvoiceApproved        = "InvoiceApproved"
	EventTypeInvoicePaymentRecorded = "InvoicePaymentRecorded"
	EventTypeInvoiceFullyPaid       = "InvoiceFullyPaid"
	EventTypeInvoiceCancelled       = "InvoiceCancelled"
)

// InvoiceCreatedEvent is raised when a new invoice is created. The monetary
// amounts are computed at command time (including tax, via the injected rate
// lookup) and baked into the event so replay never depends on live rate
// configuration.
type InvoiceCreatedEvent struct {
	shared.BaseDomainEvent
	InvoiceID  uuid.UUID         `json:"invoice_id"`
	CustomerID uuid.UUID         `json:"customer_id"`
	VendorID   uuid.UUID         `json:"vendor_id"`
	LineItems  []LineItem        `json:"line_items"`
	Subtotal   valueobject.Money `json:"subtotal"`
	TaxAmount  valueobject.Money `json:"tax_amount"`
	GrandTotal valueobject.Money `json:"grand_total"`
}

// NewInvoiceCreatedEvent creates a new InvoiceCreatedEvent
func NewInvoiceCreatedEvent(tenantID, invoiceID, customerID, vendorID uuid.UUID, lines []LineItem, subtotal, tax, grandTotal valueobject.Money) *InvoiceCreatedEvent {
	return &InvoiceCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceCreated, AggregateTypeInvoice, invoiceID, tenantID),
		InvoiceID:       invoiceID,
		CustomerID:      customerID,
		VendorID:        vendorID,
		LineItems:       lines,
		Subtotal:        subtotal,
		TaxAmount:       tax,
		GrandTotal:      grandTotal,
	}
}

// InvoiceApprovedEvent is raised when a draft invoice is approved and a
// compliance document number is assigned.
type InvoiceApprovedEvent struct {
	shared.BaseDomainEvent
	InvoiceID      uuid.UUID `json:"invoice_id"`
	ApproverID     uuid.UUID `json:"approver_id"`
	DocumentNumber string    `json:"document_number"`
	ApprovedAt     time.Time `json:"approved_at"`
}

// NewInvoiceApprovedEvent creates a new InvoiceApprovedEvent
func NewInvoiceApprovedEvent(tenantID, invoiceID, approverID uuid.UUID, documentNumber string) *InvoiceApprovedEvent {
	return &InvoiceApprovedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceApproved, AggregateTypeInvoice, invoiceID, tenantID),
		InvoiceID:       invoiceID,
		ApproverID:      approverID,
		DocumentNumber:  documentNumber,
		ApprovedAt:      time.Now().UTC(),
	}
}

// InvoicePaymentRecordedEvent is raised when a payment is applied to the
// invoice. NewPaidAmount and RemainingAmount reflect the state after the
// event so projections can upsert without recomputing.
type InvoicePaymentRecordedEvent struct {
	shared.BaseDomainEvent
	InvoiceID       uuid.UUID         `json:"invoice_id"`
	PaymentID       uuid.UUID         `json:"payment_id"`
	Amount          valueobject.Money `json:"amount"`
	NewPaidAmount   valueobject.Money `json:"new_paid_amount"`
	RemainingAmount valueobject.Money `json:"remaining_amount"`
}

// NewInvoicePaymentRecordedEvent creates a new InvoicePaymentRecordedEvent
func NewInvoicePaymentRecordedEvent(tenantID, invoiceID, paymentID uuid.UUID, amount, newPaid, remaining valueobject.Money) *InvoicePaymentRecordedEvent {
	return &InvoicePaymentRecordedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoicePaymentRecorded, AggregateTypeInvoice, invoiceID, tenantID),
		InvoiceID:       invoiceID,
		PaymentID:       paymentID,
		Amount:          amount,
		NewPaidAmount:   newPaid,
		RemainingAmount: remaining,
	}
}

// InvoiceFullyPaidEvent is raised in the same append as the payment
// recording that brought the balance to zero.
type InvoiceFullyPaidEvent struct {
	shared.BaseDomainEvent
	InvoiceID uuid.UUID         `json:"invoice_id"`
	PaymentID uuid.UUID         `json:"payment_id"`
	TotalPaid valueobject.Money `json:"total_paid"`
	PaidAt    time.Time         `json:"paid_at"`
}

// NewInvoiceFullyPaidEvent creates a new InvoiceFullyPaidEvent
func NewInvoiceFullyPaidEvent(tenantID, invoiceID, paymentID uuid.UUID, totalPaid valueobject.Money) *InvoiceFullyPaidEvent {
	return &InvoiceFullyPaidEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceFullyPaid, AggregateTypeInvoice, invoiceID, tenantID),
		InvoiceID:       invoiceID,
		PaymentID:       paymentID,
		TotalPaid:       totalPaid,
		PaidAt:          time.Now().UTC(),
	}
}

// InvoiceCancelledEvent is raised when an unpaid invoice is cancelled.
type InvoiceCancelledEvent struct {
	shared.BaseDomainEvent
	InvoiceID   uuid.UUID `json:"invoice_id"`
	ActorID     uuid.UUID `json:"actor_id"`
	Reason      string    `json:"reason"`
	CancelledAt time.Time `json:"cancelled_at"`
}

// NewInvoiceCancelledEvent creates a new InvoiceCancelledEvent
func NewInvoiceCancelledEvent(tenantID, invoiceID, actorID uuid.UUID, reason string) *InvoiceCancelledEvent {
	return &InvoiceCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceCancelled, AggregateTypeInvoice, invoiceID, tenantID),
		InvoiceID:       invoiceID,
		ActorID:         actorID,
		Reason:          reason,
		CancelledAt:     time.Now().UTC(),
	}
}
