package ledger

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/finledger/backend/internal/domain/ledger"
	"github.com/finledger/backend/internal/domain/shared"
)

// InvoiceProjection folds invoice events into the invoice read model. It is
// idempotent two ways: duplicate deliveries are filtered upstream by the
// idempotent handler wrapper, and each row remembers the sequence of the
// last event applied so stale redeliveries are skipped here as well. An
// event arriving ahead of the watermark fails the delivery so it retries
// after the missing events have been folded; folds never skip a sequence.
type InvoiceProjection struct {
	repo   ledger.InvoiceReadRepository
	logger *zap.Logger
}

var _ shared.EventHandler = (*InvoiceProjection)(nil)

// NewInvoiceProjection creates a new InvoiceProjection
func NewInvoiceProjection(repo ledger.InvoiceReadRepository, logger *zap.Logger) *InvoiceProjection {
	return &InvoiceProjection{repo: repo, logger: logger}
}

// EventTypes returns the event types this projection folds.
func (p *InvoiceProjection) EventTypes() []string {
	return []string{
		ledger.EventTypeInvoiceCreated,
		ledger.EventTypeInvoiceApproved,
		ledger.EventTypeInvoicePaymentRecorded,
		ledger.EventTypeInvoiceFullyPaid,
		ledger.EventTypeInvoiceCancelled,
	}
}

// Handle folds one event into the read model. Unknown event kinds are
// ignored, never rejected.
func (p *InvoiceProjection) Handle(ctx context.Context, event shared.DomainEvent) error {
	switch e := event.(type) {
	case *ledger.InvoiceCreatedEvent:
		return p.applyCreated(ctx, e)
	case *ledger.InvoiceApprovedEvent:
		return p.update(ctx, e, func(row *ledger.InvoiceReadModel) {
			row.Status = ledger.InvoiceStatusApproved
			row.DocumentNumber = e.DocumentNumber
		})
	case *ledger.InvoicePaymentRecordedEvent:
		return p.update(ctx, e, func(row *ledger.InvoiceReadModel) {
			row.PaidAmount = e.NewPaidAmount.Amount()
			row.BalanceAmount = e.RemainingAmount.Amount()
		})
	case *ledger.InvoiceFullyPaidEvent:
		return p.update(ctx, e, func(row *ledger.InvoiceReadModel) {
			row.Status = ledger.InvoiceStatusPaid
			paidAt := e.PaidAt
			row.PaidAt = &paidAt
		})
	case *ledger.InvoiceCancelledEvent:
		return p.update(ctx, e, func(row *ledger.InvoiceReadModel) {
			row.Status = ledger.InvoiceStatusCancelled
			row.CancelReason = e.Reason
		})
	default:
		return nil
	}
}

func (p *InvoiceProjection) applyCreated(ctx context.Context, e *ledger.InvoiceCreatedEvent) error {
	existing, err := p.repo.FindByIDForTenant(ctx, e.TenantID(), e.InvoiceID)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return err
	}
	if existing != nil && existing.AppliedSequence >= e.Sequence() {
		return nil
	}

	now := time.Now().UTC()
	row := &ledger.InvoiceReadModel{
		ID:              e.InvoiceID,
		TenantID:        e.TenantID(),
		CustomerID:      e.CustomerID,
		VendorID:        e.VendorID,
		Status:          ledger.InvoiceStatusDraft,
		Currency:        e.GrandTotal.Currency(),
		SubtotalAmount:  e.Subtotal.Amount(),
		TaxAmount:       e.TaxAmount.Amount(),
		GrandTotal:      e.GrandTotal.Amount(),
		PaidAmount:      0,
		BalanceAmount:   e.GrandTotal.Amount(),
		LineItemCount:   len(e.LineItems),
		AppliedSequence: e.Sequence(),
		CreatedAt:       e.OccurredAt(),
		UpdatedAt:       now,
	}
	return p.repo.Save(ctx, row)
}

// update loads the row, applies the mutation and saves, guarded by the
// applied-sequence watermark.
func (p *InvoiceProjection) update(ctx context.Context, event shared.DomainEvent, mutate func(*ledger.InvoiceReadModel)) error {
	row, err := p.repo.FindByIDForTenant(ctx, event.TenantID(), event.AggregateID())
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			// created event not folded yet; fail so delivery retries in order
			p.logger.Warn("invoice row missing for event",
				zap.String("invoice_id", event.AggregateID().String()),
				zap.String("event_type", event.EventType()),
				zap.Int64("sequence", event.Sequence()))
		}
		return err
	}
	if row.AppliedSequence >= event.Sequence() {
		return nil
	}
	if event.Sequence() > row.AppliedSequence+1 {
		// a lower-sequence event has not been folded yet; fail so both
		// deliveries retry and apply in order
		p.logger.Warn("invoice event arrived ahead of the watermark",
			zap.String("invoice_id", event.AggregateID().String()),
			zap.String("event_type", event.EventType()),
			zap.Int64("sequence", event.Sequence()),
			zap.Int64("applied_sequence", row.AppliedSequence))
		return errSequenceGap(event, row.AppliedSequence)
	}

	mutate(row)
	row.AppliedSequence = event.Sequence()
	row.UpdatedAt = time.Now().UTC()
	return p.repo.Save(ctx, row)
}
