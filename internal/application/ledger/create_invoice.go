package ledger

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/finledger/backend/internal/domain/ledger"
	"github.com/finledger/backend/internal/domain/shared"
)

// CreateInvoiceHandler creates draft invoices. Party existence is verified
// through the injected directory; tax rates are resolved per line category
// through the injected lookup and baked into the created event.
type CreateInvoiceHandler struct {
	invoices *AggregateRepository[*ledger.Invoice]
	taxRates ledger.TaxRateLookup
	parties  ledger.PartyDirectory
	logger   *zap.Logger
}

var _ CommandHandler = (*CreateInvoiceHandler)(nil)

// NewCreateInvoiceHandler creates a new CreateInvoiceHandler
func NewCreateInvoiceHandler(invoices *AggregateRepository[*ledger.Invoice], taxRates ledger.TaxRateLookup, parties ledger.PartyDirectory, logger *zap.Logger) *CreateInvoiceHandler {
	return &CreateInvoiceHandler{invoices: invoices, taxRates: taxRates, parties: parties, logger: logger}
}

// CommandName returns the command this handler executes.
func (h *CreateInvoiceHandler) CommandName() string { return CommandCreateInvoice }

// Handle executes the CreateInvoice use case.
func (h *CreateInvoiceHandler) Handle(ctx context.Context, command Command) (*CommandResult, error) {
	cmd, ok := command.(CreateInvoiceCommand)
	if !ok {
		return nil, errWrongCommand("CreateInvoiceHandler", command)
	}

	exists, err := h.parties.CustomerExists(ctx, cmd.TenantID, cmd.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("customer lookup: %w", err)
	}
	if !exists {
		return nil, shared.NewDomainError(shared.CodeUnknownParty, fmt.Sprintf("unknown customer %s", cmd.CustomerID))
	}
	exists, err = h.parties.VendorExists(ctx, cmd.TenantID, cmd.VendorID)
	if err != nil {
		return nil, fmt.Errorf("vendor lookup: %w", err)
	}
	if !exists {
		return nil, shared.NewDomainError(shared.CodeUnknownParty, fmt.Sprintf("unknown vendor %s", cmd.VendorID))
	}

	rateFn := func(category string) (decimal.Decimal, error) {
		return h.taxRates.RateFor(ctx, category)
	}
	invoice, err := ledger.NewInvoice(cmd.TenantID, cmd.CustomerID, cmd.VendorID, cmd.LineItems, rateFn)
	if err != nil {
		return nil, err
	}

	version, err := h.invoices.Save(ctx, invoice)
	if err != nil {
		return nil, err
	}

	h.logger.Info("invoice created",
		zap.String("invoice_id", invoice.GetID().String()),
		zap.String("tenant_id", cmd.TenantID.String()),
		zap.Int64("grand_total", invoice.GrandTotal.Amount()),
		zap.String("currency", string(invoice.GrandTotal.Currency())))

	return &CommandResult{AggregateID: invoice.GetID(), Version: version}, nil
}
