package ledger

import (
	"github.com/google/uuid"

	"github.com/finledger/backend/internal/domain/ledger"
)

// Command names used as registry keys.
const (
	CommandCreateInvoice    = "CreateInvoice"
	CommandApproveInvoice   = "ApproveInvoice"
	CommandCancelInvoice    = "CancelInvoice"
	CommandCreatePayment    = "CreatePayment"
	CommandCompletePayment  = "CompletePayment"
	CommandFailPayment      = "FailPayment"
	CommandCancelPayment    = "CancelPayment"
	CommandReconcilePayment = "ReconcilePayment"
)

// Command is implemented by all ledger commands. Tenant and actor come from
// the transport layer, which has already authenticated them.
type Command interface {
	CommandName() string
}

// CreateInvoiceCommand creates a draft invoice.
type CreateInvoiceCommand struct {
	TenantID   uuid.UUID         `json:"tenant_id" validate:"required"`
	ActorID    uuid.UUID         `json:"actor_id" validate:"required"`
	CustomerID uuid.UUID         `json:"customer_id" validate:"required"`
	VendorID   uuid.UUID         `json:"vendor_id" validate:"required"`
	LineItems  []ledger.LineItem `json:"line_items" validate:"required,min=1,max=500"`
}

// CommandName returns the registry key for this command
func (c CreateInvoiceCommand) CommandName() string { return CommandCreateInvoice }

// ApproveInvoiceCommand moves a draft invoice to Approved.
type ApproveInvoiceCommand struct {
	TenantID  uuid.UUID `json:"tenant_id" validate:"required"`
	ActorID   uuid.UUID `json:"actor_id" validate:"required"`
	InvoiceID uuid.UUID `json:"invoice_id" validate:"required"`
}

// CommandName returns the registry key for this command
func (c ApproveInvoiceCommand) CommandName() string { return CommandApproveInvoice }

// CancelInvoiceCommand voids an unpaid invoice.
type CancelInvoiceCommand struct {
	TenantID  uuid.UUID `json:"tenant_id" validate:"required"`
	ActorID   uuid.UUID `json:"actor_id" validate:"required"`
	InvoiceID uuid.UUID `json:"invoice_id" validate:"required"`
	Reason    string    `json:"reason" validate:"required,max=500"`
}

// CommandName returns the registry key for this command
func (c CancelInvoiceCommand) CommandName() string { return CommandCancelInvoice }

// CreatePaymentCommand registers a pending payment against an invoice.
type CreatePaymentCommand struct {
	TenantID  uuid.UUID            `json:"tenant_id" validate:"required"`
	ActorID   uuid.UUID            `json:"actor_id" validate:"required"`
	InvoiceID uuid.UUID            `json:"invoice_id" validate:"required"`
	Amount    int64                `json:"amount" validate:"required,gt=0"`
	Currency  string               `json:"currency" validate:"required,len=3"`
	Method    ledger.PaymentMethod `json:"method" validate:"required"`
	Reference string               `json:"reference" validate:"max=200"`
}

// CommandName returns the registry key for this command
func (c CreatePaymentCommand) CommandName() string { return CommandCreatePayment }

// CompletePaymentCommand confirms a pending payment and applies it to the
// linked invoice.
type CompletePaymentCommand struct {
	TenantID             uuid.UUID `json:"tenant_id" validate:"required"`
	ActorID              uuid.UUID `json:"actor_id" validate:"required"`
	PaymentID            uuid.UUID `json:"payment_id" validate:"required"`
	TransactionReference string    `json:"transaction_reference" validate:"required,max=200"`
}

// CommandName returns the registry key for this command
func (c CompletePaymentCommand) CommandName() string { return CommandCompletePayment }

// FailPaymentCommand marks a pending payment as failed.
type FailPaymentCommand struct {
	TenantID  uuid.UUID `json:"tenant_id" validate:"required"`
	ActorID   uuid.UUID `json:"actor_id" validate:"required"`
	PaymentID uuid.UUID `json:"payment_id" validate:"required"`
	Reason    string    `json:"reason" validate:"required,max=500"`
}

// CommandName returns the registry key for this command
func (c FailPaymentCommand) CommandName() string { return CommandFailPayment }

// CancelPaymentCommand withdraws a pending payment.
type CancelPaymentCommand struct {
	TenantID  uuid.UUID `json:"tenant_id" validate:"required"`
	ActorID   uuid.UUID `json:"actor_id" validate:"required"`
	PaymentID uuid.UUID `json:"payment_id" validate:"required"`
	Reason    string    `json:"reason" validate:"required,max=500"`
}

// CommandName returns the registry key for this command
func (c CancelPaymentCommand) CommandName() string { return CommandCancelPayment }

// ReconcilePaymentCommand matches a completed payment to a statement line.
type ReconcilePaymentCommand struct {
	TenantID     uuid.UUID `json:"tenant_id" validate:"required"`
	ActorID      uuid.UUID `json:"actor_id" validate:"required"`
	PaymentID    uuid.UUID `json:"payment_id" validate:"required"`
	StatementRef string    `json:"statement_ref" validate:"required,max=200"`
}

// CommandName returns the registry key for this command
func (c ReconcilePaymentCommand) CommandName() string { return CommandReconcilePayment }

// CommandResult reports the outcome of a successfully executed command.
type CommandResult struct {
	AggregateID uuid.UUID `json:"aggregate_id"`
	Version     int64     `json:"version"`
	// DependentWrite is set when the command itself succeeded but a
	// dependent cross-aggregate write did not. The primary write is never
	// rolled back; monitoring uses this field to distinguish "payment
	// failed" from "payment succeeded, ledger update lagging".
	DependentWrite *DependentWriteError `json:"dependent_write,omitempty"`
}
