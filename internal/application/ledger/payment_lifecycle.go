package ledger

import (
	"context"

	"go.uber.org/zap"

	"github.com/finledger/backend/internal/domain/ledger"
)

// FailPaymentHandler marks pending payments as failed. A failed payment
// never touches its linked invoice.
type FailPaymentHandler struct {
	payments *AggregateRepository[*ledger.Payment]
	logger   *zap.Logger
}

var _ CommandHandler = (*FailPaymentHandler)(nil)

// NewFailPaymentHandler creates a new FailPaymentHandler
func NewFailPaymentHandler(payments *AggregateRepository[*ledger.Payment], logger *zap.Logger) *FailPaymentHandler {
	return &FailPaymentHandler{payments: payments, logger: logger}
}

// CommandName returns the command this handler executes.
func (h *FailPaymentHandler) CommandName() string { return CommandFailPayment }

// Handle executes the FailPayment use case.
func (h *FailPaymentHandler) Handle(ctx context.Context, command Command) (*CommandResult, error) {
	cmd, ok := command.(FailPaymentCommand)
	if !ok {
		return nil, errWrongCommand("FailPaymentHandler", command)
	}

	payment, err := h.payments.LoadForTenant(ctx, cmd.PaymentID, cmd.TenantID)
	if err != nil {
		return nil, err
	}
	if err := payment.Fail(cmd.Reason); err != nil {
		return nil, err
	}

	version, err := h.payments.Save(ctx, payment)
	if err != nil {
		return nil, err
	}

	h.logger.Info("payment failed",
		zap.String("payment_id", payment.GetID().String()),
		zap.String("reason", cmd.Reason))

	return &CommandResult{AggregateID: payment.GetID(), Version: version}, nil
}

// CancelPaymentHandler withdraws pending payments.
type CancelPaymentHandler struct {
	payments *AggregateRepository[*ledger.Payment]
	logger   *zap.Logger
}

var _ CommandHandler = (*CancelPaymentHandler)(nil)

// NewCancelPaymentHandler creates a new CancelPaymentHandler
func NewCancelPaymentHandler(payments *AggregateRepository[*ledger.Payment], logger *zap.Logger) *CancelPaymentHandler {
	return &CancelPaymentHandler{payments: payments, logger: logger}
}

// CommandName returns the command this handler executes.
func (h *CancelPaymentHandler) CommandName() string { return CommandCancelPayment }

// Handle executes the CancelPayment use case.
func (h *CancelPaymentHandler) Handle(ctx context.Context, command Command) (*CommandResult, error) {
	cmd, ok := command.(CancelPaymentCommand)
	if !ok {
		return nil, errWrongCommand("CancelPaymentHandler", command)
	}

	payment, err := h.payments.LoadForTenant(ctx, cmd.PaymentID, cmd.TenantID)
	if err != nil {
		return nil, err
	}
	if err := payment.Cancel(cmd.Reason); err != nil {
		return nil, err
	}

	version, err := h.payments.Save(ctx, payment)
	if err != nil {
		return nil, err
	}

	h.logger.Info("payment cancelled",
		zap.String("payment_id", payment.GetID().String()),
		zap.String("reason", cmd.Reason))

	return &CommandResult{AggregateID: payment.GetID(), Version: version}, nil
}

// ReconcilePaymentHandler matches completed payments to statement lines.
type ReconcilePaymentHandler struct {
	payments *AggregateRepository[*ledger.Payment]
	logger   *zap.Logger
}

var _ CommandHandler = (*ReconcilePaymentHandler)(nil)

// NewReconcilePaymentHandler creates a new ReconcilePaymentHandler
func NewReconcilePaymentHandler(payments *AggregateRepository[*ledger.Payment], logger *zap.Logger) *ReconcilePaymentHandler {
	return &ReconcilePaymentHandler{payments: payments, logger: logger}
}

// CommandName returns the command this handler executes.
func (h *ReconcilePaymentHandler) CommandName() string { return CommandReconcilePayment }

// Handle executes the ReconcilePayment use case.
func (h *ReconcilePaymentHandler) Handle(ctx context.Context, command Command) (*CommandResult, error) {
	cmd, ok := command.(ReconcilePaymentCommand)
	if !ok {
		return nil, errWrongCommand("ReconcilePaymentHandler", command)
	}

	payment, err := h.payments.LoadForTenant(ctx, cmd.PaymentID, cmd.TenantID)
	if err != nil {
		return nil, err
	}
	if err := payment.Reconcile(cmd.StatementRef); err != nil {
		return nil, err
	}

	version, err := h.payments.Save(ctx, payment)
	if err != nil {
		return nil, err
	}

	h.logger.Info("payment reconciled",
		zap.String("payment_id", payment.GetID().String()),
		zap.String("statement_ref", cmd.StatementRef))

	return &CommandResult{AggregateID: payment.GetID(), Version: version}, nil
}
