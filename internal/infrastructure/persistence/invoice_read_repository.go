package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/finledger/backend/internal/domain/ledger"
	"github.com/finledger/backend/internal/domain/shared"
	"github.com/finledger/backend/internal/domain/shared/valueobject"
)

// InvoiceReadRow is the GORM model for the projected invoice read model
type InvoiceReadRow struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey"`
	TenantID        uuid.UUID `gorm:"type:uuid;index;not null"`
	CustomerID      uuid.UUID `gorm:"type:uuid;index"`
	VendorID        uuid.UUID `gorm:"type:uuid"`
	DocumentNumber  string    `gorm:"type:varchar(64);index"`
	Status          string    `gorm:"type:varchar(32);not null;index"`
	Currency        string    `gorm:"type:varchar(3);not null"`
	SubtotalAmount  int64     `gorm:"not null"`
	TaxAmount       int64     `gorm:"not null"`
	GrandTotal      int64     `gorm:"not null"`
	PaidAmount      int64     `gorm:"not null"`
	BalanceAmount   int64     `gorm:"not null"`
	LineItemCount   int       `gorm:"not null"`
	PaidAt          *time.Time
	CancelReason    string `gorm:"type:text"`
	AppliedSequence int64  `gorm:"not null"`
	CreatedAt       time.Time
	UpdatedAt       time.Time `gorm:"autoUpdateTime"`
}

// TableName returns the table name for the model
func (InvoiceReadRow) TableName() string {
	return "invoice_read_models"
}

// ToDomain converts the row to the read model served by queries.
func (m *InvoiceReadRow) ToDomain() *ledger.InvoiceReadModel {
	return &ledger.InvoiceReadModel{
		ID:              m.ID,
		TenantID:        m.TenantID,
		CustomerID:      m.CustomerID,
		VendorID:        m.VendorID,
		DocumentNumber:  m.DocumentNumber,
		Status:          ledger.InvoiceStatus(m.Status),
		Currency:        valueobject.Currency(m.Currency),
		SubtotalAmount:  m.SubtotalAmount,
		TaxAmount:       m.TaxAmount,
		GrandTotal:      m.GrandTotal,
		PaidAmount:      m.PaidAmount,
		BalanceAmount:   m.BalanceAmount,
		LineItemCount:   m.LineItemCount,
		PaidAt:          m.PaidAt,
		CancelReason:    m.CancelReason,
		AppliedSequence: m.AppliedSequence,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

// InvoiceReadRowFromDomain creates a row from the read model.
func InvoiceReadRowFromDomain(rm *ledger.InvoiceReadModel) *InvoiceReadRow {
	return &InvoiceReadRow{
		ID:              rm.ID,
		TenantID:        rm.TenantID,
		CustomerID:      rm.CustomerID,
		VendorID:        rm.VendorID,
		DocumentNumber:  rm.DocumentNumber,
		Status:          string(rm.Status),
		Currency:        string(rm.Currency),
		SubtotalAmount:  rm.SubtotalAmount,
		TaxAmount:       rm.TaxAmount,
		GrandTotal:      rm.GrandTotal,
		PaidAmount:      rm.PaidAmount,
		BalanceAmount:   rm.BalanceAmount,
		LineItemCount:   rm.LineItemCount,
		PaidAt:          rm.PaidAt,
		CancelReason:    rm.CancelReason,
		AppliedSequence: rm.AppliedSequence,
		CreatedAt:       rm.CreatedAt,
		UpdatedAt:       rm.UpdatedAt,
	}
}

// invoiceSortFields contains allowed sort fields for invoice read queries
var invoiceSortFields = map[string]bool{
	"id":              true,
	"created_at":      true,
	"updated_at":      true,
	"document_number": true,
	"status":          true,
	"grand_total":     true,
	"balance_amount":  true,
}

// GormInvoiceReadRepository implements the ledger.InvoiceReadRepository interface
type GormInvoiceReadRepository struct {
	db *gorm.DB
}

var _ ledger.InvoiceReadRepository = (*GormInvoiceReadRepository)(nil)

// NewGormInvoiceReadRepository creates a new invoice read repository
func NewGormInvoiceReadRepository(db *gorm.DB) *GormInvoiceReadRepository {
	return &GormInvoiceReadRepository{db: db}
}

// FindByIDForTenant returns the projected invoice, or shared.ErrNotFound.
func (r *GormInvoiceReadRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*ledger.InvoiceReadModel, error) {
	var row InvoiceReadRow
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find invoice %s: %w", id, err)
	}
	return row.ToDomain(), nil
}

// FindAllForTenant returns a tenant-scoped page of projected invoices.
func (r *GormInvoiceReadRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter ledger.InvoiceFilter) ([]ledger.InvoiceReadModel, error) {
	f := filter.Filter.Normalize()

	var rows []InvoiceReadRow
	err := r.applyFilter(r.db.WithContext(ctx), tenantID, filter).
		Order(SortClause(f.OrderBy, f.OrderDir, invoiceSortFields, "created_at")).
		Offset(f.Offset()).
		Limit(f.PageSize).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}

	items := make([]ledger.InvoiceReadModel, 0, len(rows))
	for i := range rows {
		items = append(items, *rows[i].ToDomain())
	}
	return items, nil
}

// CountForTenant counts projected invoices matching the filter.
func (r *GormInvoiceReadRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter ledger.InvoiceFilter) (int64, error) {
	var count int64
	err := r.applyFilter(r.db.WithContext(ctx).Model(&InvoiceReadRow{}), tenantID, filter).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count invoices: %w", err)
	}
	return count, nil
}

// Save upserts the row keyed by ID.
func (r *GormInvoiceReadRepository) Save(ctx context.Context, rm *ledger.InvoiceReadModel) error {
	row := InvoiceReadRowFromDomain(rm)
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(row).Error
	if err != nil {
		return fmt.Errorf("failed to save invoice read model %s: %w", rm.ID, err)
	}
	return nil
}

// DeleteAll truncates the read model for a full rebuild.
func (r *GormInvoiceReadRepository) DeleteAll(ctx context.Context) error {
	if err := r.db.WithContext(ctx).Where("1 = 1").Delete(&InvoiceReadRow{}).Error; err != nil {
		return fmt.Errorf("failed to clear invoice read models: %w", err)
	}
	return nil
}

func (r *GormInvoiceReadRepository) applyFilter(db *gorm.DB, tenantID uuid.UUID, filter ledger.InvoiceFilter) *gorm.DB {
	db = db.Where("tenant_id = ?", tenantID)
	if filter.CustomerID != nil {
		db = db.Where("customer_id = ?", *filter.CustomerID)
	}
	if filter.VendorID != nil {
		db = db.Where("vendor_id = ?", *filter.VendorID)
	}
	if filter.Status != nil {
		db = db.Where("status = ?", string(*filter.Status))
	}
	if filter.FromDate != nil {
		db = db.Where("created_at >= ?", *filter.FromDate)
	}
	if filter.ToDate != nil {
		db = db.Where("created_at <= ?", *filter.ToDate)
	}
	return db
}
