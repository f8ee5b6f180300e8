package ledger

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/finledger/backend/internal/domain/ledger"
	"github.com/finledger/backend/internal/domain/shared"
	"github.com/finledger/backend/internal/infrastructure/telemetry"
)

// CoordinatorConfig bounds the invoice-side retry loop of the
// CompletePayment handler.
type CoordinatorConfig struct {
	// MaxAttempts is the total number of tries for the invoice write,
	// including the first one.
	MaxAttempts int
	// RetryBackoff is the pause between attempts after a concurrency
	// conflict.
	RetryBackoff time.Duration
}

// DefaultCoordinatorConfig returns the default coordination policy.
func DefaultCoordinatorConfig() CoordinatorConfig {
	return CoordinatorConfig{MaxAttempts: 3, RetryBackoff: 50 * time.Millisecond}
}

// CompletePaymentHandler is the one handler that touches two aggregates.
// The payment write is the source of truth that money moved; the invoice
// update is a dependent at-least-once side effect. Completed payments are
// never rolled back, even when the invoice update ultimately fails.
type CompletePaymentHandler struct {
	payments *AggregateRepository[*ledger.Payment]
	invoices *AggregateRepository[*ledger.Invoice]
	config   CoordinatorConfig
	logger   *zap.Logger
}

var _ CommandHandler = (*CompletePaymentHandler)(nil)

// NewCompletePaymentHandler creates a new CompletePaymentHandler
func NewCompletePaymentHandler(payments *AggregateRepository[*ledger.Payment], invoices *AggregateRepository[*ledger.Invoice], config CoordinatorConfig, logger *zap.Logger) *CompletePaymentHandler {
	if config.MaxAttempts < 1 {
		config.MaxAttempts = DefaultCoordinatorConfig().MaxAttempts
	}
	return &CompletePaymentHandler{payments: payments, invoices: invoices, config: config, logger: logger}
}

// CommandName returns the command this handler executes.
func (h *CompletePaymentHandler) CommandName() string { return CommandCompletePayment }

// Handle completes the payment, then applies it to the linked invoice. The
// two writes are independent optimistic-concurrency appends, not a
// distributed transaction.
func (h *CompletePaymentHandler) Handle(ctx context.Context, command Command) (*CommandResult, error) {
	cmd, ok := command.(CompletePaymentCommand)
	if !ok {
		return nil, errWrongCommand("CompletePaymentHandler", command)
	}

	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "complete")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrTenantID, cmd.TenantID.String(),
		telemetry.SpanAttrPaymentID, cmd.PaymentID.String(),
	)

	payment, err := h.payments.LoadForTenant(ctx, cmd.PaymentID, cmd.TenantID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := payment.Complete(cmd.TransactionReference); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	version, err := h.payments.Save(ctx, payment)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttributes(span,
		telemetry.SpanAttrInvoiceID, payment.InvoiceID.String(),
		telemetry.SpanAttrAmount, payment.Amount.Amount(),
		telemetry.SpanAttrCurrency, string(payment.Amount.Currency()),
	)

	h.logger.Info("payment completed",
		zap.String("payment_id", payment.GetID().String()),
		zap.String("invoice_id", payment.InvoiceID.String()),
		zap.Int64("amount", payment.Amount.Amount()))

	result := &CommandResult{AggregateID: payment.GetID(), Version: version}
	if depErr := h.recordOnInvoice(ctx, payment); depErr != nil {
		telemetry.RecordError(span, depErr)
		telemetry.SetAttribute(span, telemetry.SpanAttrAttempt, depErr.Attempts)
		h.logger.Error("payment completed but invoice update failed",
			zap.String("payment_id", depErr.PaymentID.String()),
			zap.String("invoice_id", depErr.InvoiceID.String()),
			zap.Int("attempts", depErr.Attempts),
			zap.Bool("permanent", depErr.Permanent),
			zap.Error(depErr.Cause))
		result.DependentWrite = depErr
	}
	return result, nil
}

// recordOnInvoice applies the completed payment to its invoice with a
// bounded retry loop. Each retry reloads the invoice so the append runs
// against fresh state. Business rule rejections are permanent and exit
// immediately: retrying an overpayment yields the same rejection.
func (h *CompletePaymentHandler) recordOnInvoice(ctx context.Context, payment *ledger.Payment) *DependentWriteError {
	var lastErr error

	for attempt := 1; attempt <= h.config.MaxAttempts; attempt++ {
		if attempt > 1 && h.config.RetryBackoff > 0 {
			select {
			case <-ctx.Done():
				return &DependentWriteError{
					PaymentID: payment.GetID(),
					InvoiceID: payment.InvoiceID,
					Attempts:  attempt - 1,
					Cause:     ctx.Err(),
				}
			case <-time.After(h.config.RetryBackoff):
			}
		}

		invoice, err := h.invoices.LoadForTenant(ctx, payment.InvoiceID, payment.GetTenantID())
		if err == nil {
			err = invoice.RecordPayment(payment.GetID(), payment.Amount)
			if err == nil {
				if _, err = h.invoices.Save(ctx, invoice); err == nil {
					return nil
				}
			}
		}
		lastErr = err

		if shared.IsBusinessRuleViolation(err) {
			return &DependentWriteError{
				PaymentID: payment.GetID(),
				InvoiceID: payment.InvoiceID,
				Attempts:  attempt,
				Permanent: true,
				Cause:     err,
			}
		}
	}

	return &DependentWriteError{
		PaymentID: payment.GetID(),
		InvoiceID: payment.InvoiceID,
		Attempts:  h.config.MaxAttempts,
		Cause:     lastErr,
	}
}
