package ledger

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/finledger/backend/internal/domain/ledger"
)

// ApproveInvoiceHandler approves draft invoices. The compliance document
// number comes from the injected generator, which is deterministic per
// invoice and date so a retried approval assigns the same number.
type ApproveInvoiceHandler struct {
	invoices   *AggregateRepository[*ledger.Invoice]
	docNumbers ledger.DocumentNumberGenerator
	logger     *zap.Logger
}

var _ CommandHandler = (*ApproveInvoiceHandler)(nil)

// NewApproveInvoiceHandler creates a new ApproveInvoiceHandler
func NewApproveInvoiceHandler(invoices *AggregateRepository[*ledger.Invoice], docNumbers ledger.DocumentNumberGenerator, logger *zap.Logger) *ApproveInvoiceHandler {
	return &ApproveInvoiceHandler{invoices: invoices, docNumbers: docNumbers, logger: logger}
}

// CommandName returns the command this handler executes.
func (h *ApproveInvoiceHandler) CommandName() string { return CommandApproveInvoice }

// Handle executes the ApproveInvoice use case.
func (h *ApproveInvoiceHandler) Handle(ctx context.Context, command Command) (*CommandResult, error) {
	cmd, ok := command.(ApproveInvoiceCommand)
	if !ok {
		return nil, errWrongCommand("ApproveInvoiceHandler", command)
	}

	invoice, err := h.invoices.LoadForTenant(ctx, cmd.InvoiceID, cmd.TenantID)
	if err != nil {
		return nil, err
	}

	documentNumber, err := h.docNumbers.Generate(ctx, invoice.GetID(), time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("document number generation: %w", err)
	}

	if err := invoice.Approve(cmd.ActorID, documentNumber); err != nil {
		return nil, err
	}

	version, err := h.invoices.Save(ctx, invoice)
	if err != nil {
		return nil, err
	}

	h.logger.Info("invoice approved",
		zap.String("invoice_id", invoice.GetID().String()),
		zap.String("document_number", documentNumber))

	return &CommandResult{AggregateID: invoice.GetID(), Version: version}, nil
}
