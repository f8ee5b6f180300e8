package ledger

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/finledger/backend/internal/domain/shared"
	"github.com/finledger/backend/internal/domain/shared/valueobject"
)

// PaymentStatus represents the lifecycle status of a payment
type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "PENDING"
	PaymentStatusCompleted  PaymentStatus = "COMPLETED"
	PaymentStatusFailed     PaymentStatus = "FAILED"
	PaymentStatusCancelled  PaymentStatus = "CANCELLED"
	PaymentStatusReconciled PaymentStatus = "RECONCILED"
)

// IsValid checks if the status is a valid PaymentStatus
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusCompleted, PaymentStatusFailed,
		PaymentStatusCancelled, PaymentStatusReconciled:
		return true
	}
	return false
}

// String returns the string representation of PaymentStatus
func (s PaymentStatus) String() string {
	return string(s)
}

// PaymentMethod represents how the payment was made
type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "CASH"
	PaymentMethodBankTransfer PaymentMethod = "BANK_TRANSFER"
	PaymentMethodCheck        PaymentMethod = "CHECK"
	PaymentMethodMobileWallet PaymentMethod = "MOBILE_WALLET"
	PaymentMethodCard         PaymentMethod = "CARD"
)

// IsValid checks if the payment method is valid
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodBankTransfer, PaymentMethodCheck,
		PaymentMethodMobileWallet, PaymentMethodCard:
		return true
	}
	return false
}

// Payment is the event-sourced aggregate root for a single payment. It
// references its invoice by id only; the amount is fixed at creation.
type Payment struct {
	shared.BaseAggregateRoot

	InvoiceID            uuid.UUID         `json:"invoice_id"`
	Amount               valueobject.Money `json:"amount"`
	Method               PaymentMethod     `json:"method"`
	Reference            string            `json:"reference"`
	Status               PaymentStatus     `json:"status"`
	TransactionReference string            `json:"transaction_reference"`
	FailureReason        string            `json:"failure_reason"`
	CancelReason         string            `json:"cancel_reason"`
	StatementRef         string            `json:"statement_ref"`
	CompletedAt          *time.Time        `json:"completed_at"`
}

var (
	_ shared.AggregateRoot = (*Payment)(nil)
	_ shared.Snapshotter   = (*Payment)(nil)
)

// AggregateType returns the stream type name.
func (p *Payment) AggregateType() string {
	return AggregateTypePayment
}

// NewPayment registers a payment against an invoice, in Pending status. The
// caller is responsible for checking that the invoice exists and is payable.
func NewPayment(tenantID, invoiceID uuid.UUID, amount valueobject.Money, method PaymentMethod, reference string) (*Payment, error) {
	if invoiceID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeValidationFailed, "payment requires an invoice id")
	}
	if !amount.IsPositive() {
		return nil, shared.NewDomainError(shared.CodeInvalidAmount, "payment amount must be positive")
	}
	if !method.IsValid() {
		return nil, shared.NewDomainError(shared.CodeValidationFailed, fmt.Sprintf("invalid payment method: %s", method))
	}

	p := &Payment{BaseAggregateRoot: shared.NewBaseAggregateRoot(uuid.New(), tenantID)}
	event := NewPaymentCreatedEvent(tenantID, p.ID, invoiceID, amount, method, reference)
	if err := p.Raise(p, event); err != nil {
		return nil, err
	}
	return p, nil
}

// LoadPayment rehydrates a payment from its event stream.
func LoadPayment(events []shared.DomainEvent) (*Payment, error) {
	if len(events) == 0 {
		return nil, shared.ErrNotFound
	}
	p := &Payment{}
	if err := p.LoadFromHistory(p, events); err != nil {
		return nil, err
	}
	return p, nil
}

// Complete confirms the funds movement. Only pending payments complete.
func (p *Payment) Complete(transactionReference string) error {
	if p.Status != PaymentStatusPending {
		return NewInvalidStateTransition(AggregateTypePayment, "complete", p.Status.String())
	}
	return p.Raise(p, NewPaymentCompletedEvent(p.TenantID, p.ID, p.InvoiceID, p.Amount, transactionReference))
}

// Fail marks a pending payment as failed.
func (p *Payment) Fail(reason string) error {
	if p.Status != PaymentStatusPending {
		return NewInvalidStateTransition(AggregateTypePayment, "fail", p.Status.String())
	}
	if reason == "" {
		return shared.NewDomainError(shared.CodeValidationFailed, "failure reason cannot be empty")
	}
	return p.Raise(p, NewPaymentFailedEvent(p.TenantID, p.ID, p.InvoiceID, reason))
}

// Cancel withdraws a pending payment before any funds moved.
func (p *Payment) Cancel(reason string) error {
	if p.Status != PaymentStatusPending {
		return NewInvalidStateTransition(AggregateTypePayment, "cancel", p.Status.String())
	}
	if reason == "" {
		return shared.NewDomainError(shared.CodeValidationFailed, "cancel reason cannot be empty")
	}
	return p.Raise(p, NewPaymentCancelledEvent(p.TenantID, p.ID, p.InvoiceID, reason))
}

// Reconcile matches a completed payment against a bank statement line.
func (p *Payment) Reconcile(statementRef string) error {
	if p.Status != PaymentStatusCompleted {
		return NewInvalidStateTransition(AggregateTypePayment, "reconcile", p.Status.String())
	}
	if statementRef == "" {
		return shared.NewDomainError(shared.CodeValidationFailed, "statement reference cannot be empty")
	}
	return p.Raise(p, NewPaymentReconciledEvent(p.TenantID, p.ID, p.InvoiceID, statementRef))
}

// Apply mutates payment state from a single event.
func (p *Payment) Apply(event shared.DomainEvent) error {
	switch e := event.(type) {
	case *PaymentCreatedEvent:
		p.ID = e.PaymentID
		p.TenantID = e.TenantID()
		p.InvoiceID = e.InvoiceID
		p.Amount = e.Amount
		p.Method = e.Method
		p.Reference = e.Reference
		p.Status = PaymentStatusPending
	case *PaymentCompletedEvent:
		p.Status = PaymentStatusCompleted
		p.TransactionReference = e.TransactionReference
		completedAt := e.CompletedAt
		p.CompletedAt = &completedAt
	case *PaymentFailedEvent:
		p.Status = PaymentStatusFailed
		p.FailureReason = e.Reason
	case *PaymentCancelledEvent:
		p.Status = PaymentStatusCancelled
		p.CancelReason = e.Reason
	case *PaymentReconciledEvent:
		p.Status = PaymentStatusReconciled
		p.StatementRef = e.StatementRef
	default:
		return fmt.Errorf("payment cannot apply event type %s", event.EventType())
	}
	return nil
}

// paymentSnapshot is the serialized form used for snapshot-based rehydration.
type paymentSnapshot struct {
	ID                   uuid.UUID         `json:"id"`
	TenantID             uuid.UUID         `json:"tenant_id"`
	InvoiceID            uuid.UUID         `json:"invoice_id"`
	Amount               valueobject.Money `json:"amount"`
	Method               PaymentMethod     `json:"method"`
	Reference            string            `json:"reference"`
	Status               PaymentStatus     `json:"status"`
	TransactionReference string            `json:"transaction_reference"`
	FailureReason        string            `json:"failure_reason"`
	CancelReason         string            `json:"cancel_reason"`
	StatementRef         string            `json:"statement_ref"`
	CompletedAt          *time.Time        `json:"completed_at"`
}

// SnapshotState serializes the payment for the snapshot store.
func (p *Payment) SnapshotState() ([]byte, error) {
	return json.Marshal(paymentSnapshot{
		ID:                   p.ID,
		TenantID:             p.TenantID,
		InvoiceID:            p.InvoiceID,
		Amount:               p.Amount,
		Method:               p.Method,
		Reference:            p.Reference,
		Status:               p.Status,
		TransactionReference: p.TransactionReference,
		FailureReason:        p.FailureReason,
		CancelReason:         p.CancelReason,
		StatementRef:         p.StatementRef,
		CompletedAt:          p.CompletedAt,
	})
}

// RestoreSnapshot rehydrates the payment from a snapshot taken at version.
func (p *Payment) RestoreSnapshot(version int64, state []byte) error {
	var s paymentSnapshot
	if err := json.Unmarshal(state, &s); err != nil {
		return fmt.Errorf("restore payment snapshot: %w", err)
	}
	p.ID = s.ID
	p.TenantID = s.TenantID
	p.Version = version
	p.InvoiceID = s.InvoiceID
	p.Amount = s.Amount
	p.Method = s.Method
	p.Reference = s.Reference
	p.Status = s.Status
	p.TransactionReference = s.TransactionReference
	p.FailureReason = s.FailureReason
	p.CancelReason = s.CancelReason
	p.StatementRef = s.StatementRef
	p.CompletedAt = s.CompletedAt
	return nil
}
