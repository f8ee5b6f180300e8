package ledger

import (
	"context"

	"go.uber.org/zap"

	"github.com/finledger/backend/internal/domain/ledger"
)

// CancelInvoiceHandler voids unpaid invoices.
type CancelInvoiceHandler struct {
	invoices *AggregateRepository[*ledger.Invoice]
	logger   *zap.Logger
}

var _ CommandHandler = (*CancelInvoiceHandler)(nil)

// NewCancelInvoiceHandler creates a new CancelInvoiceHandler
func NewCancelInvoiceHandler(invoices *AggregateRepository[*ledger.Invoice], logger *zap.Logger) *CancelInvoiceHandler {
	return &CancelInvoiceHandler{invoices: invoices, logger: logger}
}

// CommandName returns the command this handler executes.
func (h *CancelInvoiceHandler) CommandName() string { return CommandCancelInvoice }

// Handle executes the CancelInvoice use case.
func (h *CancelInvoiceHandler) Handle(ctx context.Context, command Command) (*CommandResult, error) {
	cmd, ok := command.(CancelInvoiceCommand)
	if !ok {
		return nil, errWrongCommand("CancelInvoiceHandler", command)
	}

	invoice, err := h.invoices.LoadForTenant(ctx, cmd.InvoiceID, cmd.TenantID)
	if err != nil {
		return nil, err
	}
	if err := invoice.Cancel(cmd.ActorID, cmd.Reason); err != nil {
		return nil, err
	}

	version, err := h.invoices.Save(ctx, invoice)
	if err != nil {
		return nil, err
	}

	h.logger.Info("invoice cancelled",
		zap.String("invoice_id", invoice.GetID().String()),
		zap.String("reason", cmd.Reason))

	return &CommandResult{AggregateID: invoice.GetID(), Version: version}, nil
}
