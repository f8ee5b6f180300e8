package ledger

import (
	"context"

	"github.com/google/uuid"

	"github.com/finledger/backend/internal/domain/ledger"
	"github.com/finledger/backend/internal/domain/shared"
)

// QueryService answers point and list queries from the projected read
// models only. It never reads the event store: read consistency is eventual
// and callers must not assume a just-completed command is visible here yet.
type QueryService struct {
	invoices ledger.InvoiceReadRepository
	payments ledger.PaymentReadRepository
}

// NewQueryService creates a new QueryService
func NewQueryService(invoices ledger.InvoiceReadRepository, payments ledger.PaymentReadRepository) *QueryService {
	return &QueryService{invoices: invoices, payments: payments}
}

// GetInvoice returns the projected invoice, or shared.ErrNotFound.
func (s *QueryService) GetInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID) (*ledger.InvoiceReadModel, error) {
	return s.invoices.FindByIDForTenant(ctx, tenantID, invoiceID)
}

// ListInvoices returns a tenant-scoped page of projected invoices.
func (s *QueryService) ListInvoices(ctx context.Context, tenantID uuid.UUID, filter ledger.InvoiceFilter) (shared.Paginated[ledger.InvoiceReadModel], error) {
	filter.Filter = filter.Filter.Normalize()

	items, err := s.invoices.FindAllForTenant(ctx, tenantID, filter)
	if err != nil {
		return shared.Paginated[ledger.InvoiceReadModel]{}, err
	}
	total, err := s.invoices.CountForTenant(ctx, tenantID, filter)
	if err != nil {
		return shared.Paginated[ledger.InvoiceReadModel]{}, err
	}
	return shared.NewPaginated(items, total, filter.Page, filter.PageSize), nil
}

// GetPayment returns the projected payment, or shared.ErrNotFound.
func (s *QueryService) GetPayment(ctx context.Context, tenantID, paymentID uuid.UUID) (*ledger.PaymentReadModel, error) {
	return s.payments.FindByIDForTenant(ctx, tenantID, paymentID)
}

// ListPayments returns a tenant-scoped page of projected payments.
func (s *QueryService) ListPayments(ctx context.Context, tenantID uuid.UUID, filter ledger.PaymentFilter) (shared.Paginated[ledger.PaymentReadModel], error) {
	filter.Filter = filter.Filter.Normalize()

	items, err := s.payments.FindAllForTenant(ctx, tenantID, filter)
	if err != nil {
		return shared.Paginated[ledger.PaymentReadModel]{}, err
	}
	total, err := s.payments.CountForTenant(ctx, tenantID, filter)
	if err != nil {
		return shared.Paginated[ledger.PaymentReadModel]{}, err
	}
	return shared.NewPaginated(items, total, filter.Page, filter.PageSize), nil
}
