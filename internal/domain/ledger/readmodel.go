package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/finledger/backend/internal/domain/shared"
	"github.com/finledger/backend/internal/domain/shared/valueobject"
)

// InvoiceReadModel is the denormalized invoice row served by queries. It is
// maintained exclusively by the invoice projection; nothing reads the event
// store to answer queries.
type InvoiceReadModel struct {
	ID             uuid.UUID
	TenantID       uuid.UUID
	CustomerID     uuid.UUID
	VendorID       uuid.UUID
	DocumentNumber string
	Status         InvoiceStatus
	Currency       valueobject.Currency
	SubtotalAmount int64
	TaxAmount      int64
	GrandTotal     int64
	PaidAmount     int64
	BalanceAmount  int64
	LineItemCount  int
	PaidAt         *time.Time
	CancelReason   string
	// AppliedSequence is the stream sequence of the last event folded into
	// this row; events at or below it are skipped on redelivery.
	AppliedSequence int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// PaymentReadModel is the denormalized payment row served by queries.
type PaymentReadModel struct {
	ID                   uuid.UUID
	TenantID             uuid.UUID
	InvoiceID            uuid.UUID
	Status               PaymentStatus
	Method               PaymentMethod
	Currency             valueobject.Currency
	Amount               int64
	Reference            string
	TransactionReference string
	FailureReason        string
	CompletedAt          *time.Time
	AppliedSequence      int64
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// InvoiceFilter defines filtering options for invoice read queries
type InvoiceFilter struct {
	shared.Filter
	CustomerID *uuid.UUID
	VendorID   *uuid.UUID
	Status     *InvoiceStatus
	FromDate   *time.Time
	ToDate     *time.Time
}

// PaymentFilter defines filtering options for payment read queries
type PaymentFilter struct {
	shared.Filter
	InvoiceID *uuid.UUID
	Status    *PaymentStatus
	Method    *PaymentMethod
}

// InvoiceReadRepository persists the invoice read model.
type InvoiceReadRepository interface {
	// FindByIDForTenant returns the row, or shared.ErrNotFound.
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*InvoiceReadModel, error)

	// FindAllForTenant returns a tenant-scoped page of rows.
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter InvoiceFilter) ([]InvoiceReadModel, error)

	// CountForTenant counts rows matching the filter.
	CountForTenant(ctx context.Context, tenantID uuid.UUID, filter InvoiceFilter) (int64, error)

	// Save upserts the row keyed by ID.
	Save(ctx context.Context, row *InvoiceReadModel) error

	// DeleteAll truncates the read model for a full rebuild.
	DeleteAll(ctx context.Context) error
}

// PaymentReadRepository persists the payment read model.
type PaymentReadRepository interface {
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*PaymentReadModel, error)
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter PaymentFilter) ([]PaymentReadModel, error)
	CountForTenant(ctx context.Context, tenantID uuid.UUID, filter PaymentFilter) (int64, error)
	Save(ctx context.Context, row *PaymentReadModel) error
	DeleteAll(ctx context.Context) error
}
