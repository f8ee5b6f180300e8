package ledger

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/finledger/backend/internal/domain/ledger"
	"github.com/finledger/backend/internal/domain/shared"
)

// PaymentProjection folds payment events into the payment read model, with
// the same applied-sequence guard as the invoice projection.
type PaymentProjection struct {
	repo   ledger.PaymentReadRepository
	logger *zap.Logger
}

var _ shared.EventHandler = (*PaymentProjection)(nil)

// NewPaymentProjection creates a new PaymentProjection
func NewPaymentProjection(repo ledger.PaymentReadRepository, logger *zap.Logger) *PaymentProjection {
	return &PaymentProjection{repo: repo, logger: logger}
}

// EventTypes returns the event types this projection folds.
func (p *PaymentProjection) EventTypes() []string {
	return []string{
		ledger.EventTypePaymentCreated,
		ledger.EventTypePaymentCompleted,
		ledger.EventTypePaymentFailed,
		ledger.EventTypePaymentCancelled,
		ledger.EventTypePaymentReconciled,
	}
}

// Handle folds one event into the read model. Unknown event kinds are
// ignored, never rejected.
func (p *PaymentProjection) Handle(ctx context.Context, event shared.DomainEvent) error {
	switch e := event.(type) {
	case *ledger.PaymentCreatedEvent:
		return p.applyCreated(ctx, e)
	case *ledger.PaymentCompletedEvent:
		return p.update(ctx, e, func(row *ledger.PaymentReadModel) {
			row.Status = ledger.PaymentStatusCompleted
			row.TransactionReference = e.TransactionReference
			completedAt := e.CompletedAt
			row.CompletedAt = &completedAt
		})
	case *ledger.PaymentFailedEvent:
		return p.update(ctx, e, func(row *ledger.PaymentReadModel) {
			row.Status = ledger.PaymentStatusFailed
			row.FailureReason = e.Reason
		})
	case *ledger.PaymentCancelledEvent:
		return p.update(ctx, e, func(row *ledger.PaymentReadModel) {
			row.Status = ledger.PaymentStatusCancelled
		})
	case *ledger.PaymentReconciledEvent:
		return p.update(ctx, e, func(row *ledger.PaymentReadModel) {
			row.Status = ledger.PaymentStatusReconciled
		})
	default:
		return nil
	}
}

func (p *PaymentProjection) applyCreated(ctx context.Context, e *ledger.PaymentCreatedEvent) error {
	existing, err := p.repo.FindByIDForTenant(ctx, e.TenantID(), e.PaymentID)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return err
	}
	if existing != nil && existing.AppliedSequence >= e.Sequence() {
		return nil
	}

	row := &ledger.PaymentReadModel{
		ID:              e.PaymentID,
		TenantID:        e.TenantID(),
		InvoiceID:       e.InvoiceID,
		Status:          ledger.PaymentStatusPending,
		Method:          e.Method,
		Currency:        e.Amount.Currency(),
		Amount:          e.Amount.Amount(),
		Reference:       e.Reference,
		AppliedSequence: e.Sequence(),
		CreatedAt:       e.OccurredAt(),
		UpdatedAt:       time.Now().UTC(),
	}
	return p.repo.Save(ctx, row)
}

func (p *PaymentProjection) update(ctx context.Context, event shared.DomainEvent, mutate func(*ledger.PaymentReadModel)) error {
	row, err := p.repo.FindByIDForTenant(ctx, event.TenantID(), event.AggregateID())
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			p.logger.Warn("payment row missing for event",
				zap.String("payment_id", event.AggregateID().String()),
				zap.String("event_type", event.EventType()),
				zap.Int64("sequence", event.Sequence()))
		}
		return err
	}
	if row.AppliedSequence >= event.Sequence() {
		return nil
	}
	if event.Sequence() > row.AppliedSequence+1 {
		p.logger.Warn("payment event arrived ahead of the watermark",
			zap.String("payment_id", event.AggregateID().String()),
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
