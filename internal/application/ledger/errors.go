package ledger

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/finledger/backend/internal/domain/shared"
)

// errSequenceGap reports an event delivered ahead of its predecessors. The
// delivery must fail so the outbox retries it after the missing event has
// been folded.
func errSequenceGap(event shared.DomainEvent, applied int64) error {
	return fmt.Errorf("event %s sequence %d arrived with read model at sequence %d, awaiting redelivery",
		event.EventType(), event.Sequence(), applied)
}

// DependentWriteError reports a failed cross-aggregate side effect. The
// primary write (the completed payment) has already been persisted and is
// never rolled back; the invoice update is at-least-once and left to
// operator remediation or redelivery once retries are exhausted.
type DependentWriteError struct {
	PaymentID uuid.UUID `json:"payment_id"`
	InvoiceID uuid.UUID `json:"invoice_id"`
	Attempts  int       `json:"attempts"`
	// Permanent is true for business rule rejections, which no amount of
	// retrying can fix.
	Permanent bool  `json:"permanent"`
	Cause     error `json:"-"`
}

// Error implements the error interface.
func (e *DependentWriteError) Error() string {
	return fmt.Sprintf("payment %s completed but invoice %s update failed after %d attempt(s): %v",
		e.PaymentID, e.InvoiceID, e.Attempts, e.Cause)
}

// Unwrap exposes the underlying cause.
func (e *DependentWriteError) Unwrap() error {
	return e.Cause
}
