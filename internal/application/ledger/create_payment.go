package ledger

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/finledger/backend/internal/domain/ledger"
	"github.com/finledger/backend/internal/domain/shared"
	"github.com/finledger/backend/internal/domain/shared/valueobject"
)

// CreatePaymentHandler registers pending payments. The linked invoice must
// exist, must not be Draft or Cancelled, and must be denominated in the
// payment's currency; the amount check happens later, when the completed
// payment is applied to the invoice.
type CreatePaymentHandler struct {
	payments *AggregateRepository[*ledger.Payment]
	invoices *AggregateRepository[*ledger.Invoice]
	logger   *zap.Logger
}

var _ CommandHandler = (*CreatePaymentHandler)(nil)

// NewCreatePaymentHandler creates a new CreatePaymentHandler
func NewCreatePaymentHandler(payments *AggregateRepository[*ledger.Payment], invoices *AggregateRepository[*ledger.Invoice], logger *zap.Logger) *CreatePaymentHandler {
	return &CreatePaymentHandler{payments: payments, invoices: invoices, logger: logger}
}

// CommandName returns the command this handler executes.
func (h *CreatePaymentHandler) CommandName() string { return CommandCreatePayment }

// Handle executes the CreatePayment use case.
func (h *CreatePaymentHandler) Handle(ctx context.Context, command Command) (*CommandResult, error) {
	cmd, ok := command.(CreatePaymentCommand)
	if !ok {
		return nil, errWrongCommand("CreatePaymentHandler", command)
	}

	invoice, err := h.invoices.LoadForTenant(ctx, cmd.InvoiceID, cmd.TenantID)
	if err != nil {
		return nil, err
	}
	if invoice.Status == ledger.InvoiceStatusDraft || invoice.Status == ledger.InvoiceStatusCancelled {
		return nil, ledger.NewInvalidStateTransition(ledger.AggregateTypeInvoice, "accept payment", invoice.Status.String())
	}

	amount, err := valueobject.NewMoney(cmd.Amount, valueobject.Currency(cmd.Currency))
	if err != nil {
		return nil, err
	}
	if amount.Currency() != invoice.GrandTotal.Currency() {
		return nil, shared.NewDomainError(shared.CodeCurrencyMismatch,
			fmt.Sprintf("payment currency %s does not match invoice currency %s",
				amount.Currency(), invoice.GrandTotal.Currency()))
	}
	payment, err := ledger.NewPayment(cmd.TenantID, cmd.InvoiceID, amount, cmd.Method, cmd.Reference)
	if err != nil {
		return nil, err
	}

	version, err := h.payments.Save(ctx, payment)
	if err != nil {
		return nil, err
	}

	h.logger.Info("payment created",
		zap.String("payment_id", payment.GetID().String()),
		zap.String("invoice_id", cmd.InvoiceID.String()),
		zap.Int64("amount", amount.Amount()),
		zap.String("method", string(cmd.Method)))

	return &CommandResult{AggregateID: payment.GetID(), Version: version}, nil
}
