package ledger

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/finledger/backend/internal/domain/shared"
	"github.com/finledger/backend/internal/domain/shared/valueobject"
)

// InvoiceStatus represents the lifecycle status of an invoice
type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "DRAFT"
	InvoiceStatusApproved  InvoiceStatus = "APPROVED"
	InvoiceStatusPaid      InvoiceStatus = "PAID"
	InvoiceStatusCancelled InvoiceStatus = "CANCELLED"
)

// IsValid checks if the status is a valid InvoiceStatus
func (s InvoiceStatus) IsValid() bool {
	switch s {
	case InvoiceStatusDraft, InvoiceStatusApproved, InvoiceStatusPaid, InvoiceStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of InvoiceStatus
func (s InvoiceStatus) String() string {
	return string(s)
}

// IsTerminal returns true if no further mutation is accepted in this status
func (s InvoiceStatus) IsTerminal() bool {
	return s == InvoiceStatusPaid || s == InvoiceStatusCancelled
}

// IsPayable returns true if payments can be recorded in this status
func (s InvoiceStatus) IsPayable() bool {
	return s == InvoiceStatusApproved
}

// LineItem is a value object within the Invoice aggregate. Quantity of zero
// is allowed and contributes nothing to the totals.
type LineItem struct {
	Description string            `json:"description"`
	Quantity    int64             `json:"quantity"`
	UnitPrice   valueobject.Money `json:"unit_price"`
	TaxCategory string            `json:"tax_category"`
}

// Total returns quantity times unit price.
func (li LineItem) Total() valueobject.Money {
	return li.UnitPrice.MultiplyInt(li.Quantity)
}

// TaxRateFn resolves a line's tax category to a fractional rate. The command
// layer binds it from the injected rate lookup so the aggregate stays free of
// I/O concerns.
type TaxRateFn func(category string) (decimal.Decimal, error)

// Invoice is the event-sourced aggregate root for a customer invoice. All
// state lives behind Apply: commands validate, build events and raise them,
// so a replay of the stream reproduces the live instance exactly.
type Invoice struct {
	shared.BaseAggregateRoot

	CustomerID     uuid.UUID         `json:"customer_id"`
	VendorID       uuid.UUID         `json:"vendor_id"`
	LineItems      []LineItem        `json:"line_items"`
	Subtotal       valueobject.Money `json:"subtotal"`
	TaxAmount      valueobject.Money `json:"tax_amount"`
	GrandTotal     valueobject.Money `json:"grand_total"`
	PaidAmount     valueobject.Money `json:"paid_amount"`
	Status         InvoiceStatus     `json:"status"`
	DocumentNumber string            `json:"document_number"`
	ApproverID     uuid.UUID         `json:"approver_id"`
	CancelReason   string            `json:"cancel_reason"`
	PaidAt         *time.Time        `json:"paid_at"`
}

var (
	_ shared.AggregateRoot = (*Invoice)(nil)
	_ shared.Snapshotter   = (*Invoice)(nil)
)

// AggregateType returns the stream type name.
func (inv *Invoice) AggregateType() string {
	return AggregateTypeInvoice
}

// NewInvoice creates an invoice in Draft status. Subtotal, tax and grand
// total are computed here, per line, and baked into the created event.
func NewInvoice(tenantID, customerID, vendorID uuid.UUID, lines []LineItem, taxRate TaxRateFn) (*Invoice, error) {
	if len(lines) == 0 {
		return nil, shared.NewDomainError(shared.CodeValidationFailed, "invoice requires at least one line item")
	}

	currency := lines[0].UnitPrice.Currency()
	subtotal := valueobject.Zero(currency)
	tax := valueobject.Zero(currency)

	for i, line := range lines {
		if line.Quantity < 0 {
			return nil, NewInvalidLineItemError(i, "quantity cannot be negative")
		}
		if line.UnitPrice.Currency() != currency {
			return nil, NewInvalidLineItemError(i, fmt.Sprintf("currency %s differs from invoice currency %s", line.UnitPrice.Currency(), currency))
		}
		lineTotal := line.Total()
		if lineTotal.IsNegative() {
			return nil, NewInvalidLineItemError(i, "line total cannot be negative")
		}

		var err error
		subtotal, err = subtotal.Add(lineTotal)
		if err != nil {
			return nil, err
		}
		if lineTotal.IsZero() {
			continue
		}

		rate, err := taxRate(line.TaxCategory)
		if err != nil {
			return nil, fmt.Errorf("tax rate for category %q: %w", line.TaxCategory, err)
		}
		if rate.IsNegative() {
			return nil, NewInvalidLineItemError(i, "tax rate cannot be negative")
		}
		tax, err = tax.Add(lineTotal.ApplyRate(rate))
		if err != nil {
			return nil, err
		}
	}

	grandTotal, err := subtotal.Add(tax)
	if err != nil {
		return nil, err
	}

	inv := &Invoice{BaseAggregateRoot: shared.NewBaseAggregateRoot(uuid.New(), tenantID)}
	event := NewInvoiceCreatedEvent(tenantID, inv.ID, customerID, vendorID, lines, subtotal, tax, grandTotal)
	if err := inv.Raise(inv, event); err != nil {
		return nil, err
	}
	return inv, nil
}

// LoadInvoice rehydrates an invoice from its event stream.
func LoadInvoice(events []shared.DomainEvent) (*Invoice, error) {
	if len(events) == 0 {
		return nil, shared.ErrNotFound
	}
	inv := &Invoice{}
	if err := inv.LoadFromHistory(inv, events); err != nil {
		return nil, err
	}
	return inv, nil
}

// BalanceAmount returns the outstanding balance, grand total minus paid.
func (inv *Invoice) BalanceAmount() valueobject.Money {
	return inv.GrandTotal.MustSubtract(inv.PaidAmount)
}

// IsPaid returns true once the balance reached zero.
func (inv *Invoice) IsPaid() bool {
	return inv.Status == InvoiceStatusPaid
}

// Approve moves a draft invoice to Approved and assigns the compliance
// document number produced by the injected generator.
func (inv *Invoice) Approve(approverID uuid.UUID, documentNumber string) error {
	if inv.Status != InvoiceStatusDraft {
		return NewInvalidStateTransition(AggregateTypeInvoice, "approve", inv.Status.String())
	}
	if documentNumber == "" {
		return shared.NewDomainError(shared.CodeValidationFailed, "document number cannot be empty")
	}
	return inv.Raise(inv, NewInvoiceApprovedEvent(inv.TenantID, inv.ID, approverID, documentNumber))
}

// RecordPayment applies a completed payment's amount to the invoice. A
// payment that would push the paid amount past the grand total is rejected
// before any event is raised, leaving state and history untouched. When the
// balance reaches zero the fully-paid event is raised in the same batch and
// the invoice transitions to Paid.
func (inv *Invoice) RecordPayment(paymentID uuid.UUID, amount valueobject.Money) error {
	if !inv.Status.IsPayable() {
		return NewInvalidStateTransition(AggregateTypeInvoice, "record payment", inv.Status.String())
	}
	if !amount.IsPositive() {
		return shared.NewDomainError(shared.CodeInvalidAmount, "payment amount must be positive")
	}

	newPaid, err := inv.PaidAmount.Add(amount)
	if err != nil {
		return err
	}
	exceeds, err := newPaid.GreaterThan(inv.GrandTotal)
	if err != nil {
		return err
	}
	if exceeds {
		return NewOverpaymentError(amount, inv.PaidAmount, inv.GrandTotal)
	}
	remaining := inv.GrandTotal.MustSubtract(newPaid)

	if err := inv.Raise(inv, NewInvoicePaymentRecordedEvent(inv.TenantID, inv.ID, paymentID, amount, newPaid, remaining)); err != nil {
		return err
	}
	if remaining.IsZero() {
		return inv.Raise(inv, NewInvoiceFullyPaidEvent(inv.TenantID, inv.ID, paymentID, newPaid))
	}
	return nil
}

// Cancel voids an unpaid invoice. Paid invoices cannot be cancelled.
func (inv *Invoice) Cancel(actorID uuid.UUID, reason string) error {
	if inv.Status != InvoiceStatusDraft && inv.Status != InvoiceStatusApproved {
		return NewInvalidStateTransition(AggregateTypeInvoice, "cancel", inv.Status.String())
	}
	if reason == "" {
		return shared.NewDomainError(shared.CodeValidationFailed, "cancel reason cannot be empty")
	}
	return inv.Raise(inv, NewInvoiceCancelledEvent(inv.TenantID, inv.ID, actorID, reason))
}

// Apply mutates invoice state from a single event.
func (inv *Invoice) Apply(event shared.DomainEvent) error {
	switch e := event.(type) {
	case *InvoiceCreatedEvent:
		inv.ID = e.InvoiceID
		inv.TenantID = e.TenantID()
		inv.CustomerID = e.CustomerID
		inv.VendorID = e.VendorID
		inv.LineItems = e.LineItems
		inv.Subtotal = e.Subtotal
		inv.TaxAmount = e.TaxAmount
		inv.GrandTotal = e.GrandTotal
		inv.PaidAmount = valueobject.Zero(e.GrandTotal.Currency())
		inv.Status = InvoiceStatusDraft
	case *InvoiceApprovedEvent:
		inv.Status = InvoiceStatusApproved
		inv.ApproverID = e.ApproverID
		inv.DocumentNumber = e.DocumentNumber
	case *InvoicePaymentRecordedEvent:
		inv.PaidAmount = e.NewPaidAmount
	case *InvoiceFullyPaidEvent:
		inv.Status = InvoiceStatusPaid
		paidAt := e.PaidAt
		inv.PaidAt = &paidAt
	case *InvoiceCancelledEvent:
		inv.Status = InvoiceStatusCancelled
		inv.CancelReason = e.Reason
	default:
		return fmt.Errorf("invoice cannot apply event type %s", event.EventType())
	}
	return nil
}

// invoiceSnapshot is the serialized form used for snapshot-based rehydration.
type invoiceSnapshot struct {
	ID             uuid.UUID         `json:"id"`
	TenantID       uuid.UUID         `json:"tenant_id"`
	CustomerID     uuid.UUID         `json:"customer_id"`
	VendorID       uuid.UUID         `json:"vendor_id"`
	LineItems      []LineItem        `json:"line_items"`
	Subtotal       valueobject.Money `json:"subtotal"`
	TaxAmount      valueobject.Money `json:"tax_amount"`
	GrandTotal     valueobject.Money `json:"grand_total"`
	PaidAmount     valueobject.Money `json:"paid_amount"`
	Status         InvoiceStatus     `json:"status"`
	DocumentNumber string            `json:"document_number"`
	ApproverID     uuid.UUID         `json:"approver_id"`
	CancelReason   string            `json:"cancel_reason"`
	PaidAt         *time.Time        `json:"paid_at"`
}

// SnapshotState serializes the invoice for the snapshot store.
func (inv *Invoice) SnapshotState() ([]byte, error) {
	return json.Marshal(invoiceSnapshot{
		ID:             inv.ID,
		TenantID:       inv.TenantID,
		CustomerID:     inv.CustomerID,
		VendorID:       inv.VendorID,
		LineItems:      inv.LineItems,
		Subtotal:       inv.Subtotal,
		TaxAmount:      inv.TaxAmount,
		GrandTotal:     inv.GrandTotal,
		PaidAmount:     inv.PaidAmount,
		Status:         inv.Status,
		DocumentNumber: inv.DocumentNumber,
		ApproverID:     inv.ApproverID,
		CancelReason:   inv.CancelReason,
		PaidAt:         inv.PaidAt,
	})
}

// RestoreSnapshot rehydrates the invoice from a snapshot taken at version.
// Events after the snapshot are replayed on top by the loader.
func (inv *Invoice) RestoreSnapshot(version int64, state []byte) error {
	var s invoiceSnapshot
	if err := json.Unmarshal(state, &s); err != nil {
		return fmt.Errorf("restore invoice snapshot: %w", err)
	}
	inv.ID = s.ID
	inv.TenantID = s.TenantID
	inv.Version = version
	inv.CustomerID = s.CustomerID
	inv.VendorID = s.VendorID
	inv.LineItems = s.LineItems
	inv.Subtotal = s.Subtotal
	inv.TaxAmount = s.TaxAmount
	inv.GrandTotal = s.GrandTotal
	inv.PaidAmount = s.PaidAmount
	inv.Status = s.Status
	inv.DocumentNumber = s.DocumentNumber
	inv.ApproverID = s.ApproverID
	inv.CancelReason = s.CancelReason
	inv.PaidAt = s.PaidAt
	return nil
}
