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

// PaymentReadRow is the GORM model for the projected payment read model
type PaymentReadRow struct {
	ID                   uuid.UUID `gorm:"type:uuid;primaryKey"`
	TenantID             uuid.UUID `gorm:"type:uuid;index;not null"`
	InvoiceID            uuid.UUID `gorm:"type:uuid;index;not null"`
	Status               string    `gorm:"type:varchar(32);not null;index"`
	Method               string    `gorm:"type:varchar(32);not null"`
	Currency             string    `gorm:"type:varchar(3);not null"`
	Amount               int64     `gorm:"not null"`
	Reference            string    `gorm:"type:varchar(255)"`
	TransactionReference string    `gorm:"type:varchar(255)"`
	FailureReason        string    `gorm:"type:text"`
	CompletedAt          *time.Time
	AppliedSequence      int64 `gorm:"not null"`
	CreatedAt            time.Time
	UpdatedAt            time.Time `gorm:"autoUpdateTime"`
}

// TableName returns the table name for the model
func (PaymentReadRow) TableName() string {
	return "payment_read_models"
}

// ToDomain converts the row to the read model served by queries.
func (m *PaymentReadRow) ToDomain() *ledger.PaymentReadModel {
	return &ledger.PaymentReadModel{
		ID:                   m.ID,
		TenantID:             m.TenantID,
		InvoiceID:            m.InvoiceID,
		Status:               ledger.PaymentStatus(m.Status),
		Method:               ledger.PaymentMethod(m.Method),
		Currency:             valueobject.Currency(m.Currency),
		Amount:               m.Amount,
		Reference:            m.Reference,
		TransactionReference: m.TransactionReference,
		FailureReason:        m.FailureReason,
		CompletedAt:          m.CompletedAt,
		AppliedSequence:      m.AppliedSequence,
		CreatedAt:            m.CreatedAt,
		UpdatedAt:            m.UpdatedAt,
	}
}

// PaymentReadRowFromDomain creates a row from the read model.
func PaymentReadRowFromDomain(rm *ledger.PaymentReadModel) *PaymentReadRow {
	return &PaymentReadRow{
		ID:                   rm.ID,
		TenantID:             rm.TenantID,
		InvoiceID:            rm.InvoiceID,
		Status:               string(rm.Status),
		Method:               string(rm.Method),
		Currency:             string(rm.Currency),
		Amount:               rm.Amount,
		Reference:            rm.Reference,
		TransactionReference: rm.TransactionReference,
		FailureReason:        rm.FailureReason,
		CompletedAt:          rm.CompletedAt,
		AppliedSequence:      rm.AppliedSequence,
		CreatedAt:            rm.CreatedAt,
		UpdatedAt:            rm.UpdatedAt,
	}
}

// paymentSortFields contains allowed sort fields for payment read queries
var paymentSortFields = map[string]bool{
	"id":           true,
	"created_at":   true,
	"updated_at":   true,
	"status":       true,
	"amount":       true,
	"completed_at": true,
}

// GormPaymentReadRepository implements the ledger.PaymentReadRepository interface
type GormPaymentReadRepository struct {
	db *gorm.DB
}

var _ ledger.PaymentReadRepository = (*GormPaymentReadRepository)(nil)

// NewGormPaymentReadRepository creates a new payment read repository
func NewGormPaymentReadRepository(db *gorm.DB) *GormPaymentReadRepository {
	return &GormPaymentReadRepository{db: db}
}

// FindByIDForTenant returns the projected payment, or shared.ErrNotFound.
func (r *GormPaymentReadRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*ledger.PaymentReadModel, error) {
	var row PaymentReadRow
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find payment %s: %w", id, err)
	}
	return row.ToDomain(), nil
}

// FindAllForTenant returns a tenant-scoped page of projected payments.
func (r *GormPaymentReadRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter ledger.PaymentFilter) ([]ledger.PaymentReadModel, error) {
	f := filter.Filter.Normalize()

	var rows []PaymentReadRow
	err := r.applyFilter(r.db.WithContext(ctx), tenantID, filter).
		Order(SortClause(f.OrderBy, f.OrderDir, paymentSortFields, "created_at")).
		Offset(f.Offset()).
		Limit(f.PageSize).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}

	items := make([]ledger.PaymentReadModel, 0, len(rows))
	for i := range rows {
		items = append(items, *rows[i].ToDomain())
	}
	return items, nil
}

// CountForTenant counts projected payments matching the filter.
func (r *GormPaymentReadRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter ledger.PaymentFilter) (int64, error) {
	var count int64
	err := r.applyFilter(r.db.WithContext(ctx).Model(&PaymentReadRow{}), tenantID, filter).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count payments: %w", err)
	}
	return count, nil
}

// Save upserts the row keyed by ID.
func (r *GormPaymentReadRepository) Save(ctx context.Context, rm *ledger.PaymentReadModel) error {
	row := PaymentReadRowFromDomain(rm)
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(row).Error
	if err != nil {
		return fmt.Errorf("failed to save payment read model %s: %w", rm.ID, err)
	}
	return nil
}

// DeleteAll truncates the read model for a full rebuild.
func (r *GormPaymentReadRepository) DeleteAll(ctx context.Context) error {
	if err := r.db.WithContext(ctx).Where("1 = 1").Delete(&PaymentReadRow{}).Error; err != nil {
		return fmt.Errorf("failed to clear payment read models: %w", err)
	}
	return nil
}

func (r *GormPaymentReadRepository) applyFilter(db *gorm.DB, tenantID uuid.UUID, filter ledger.PaymentFilter) *gorm.DB {
	db = db.Where("tenant_id = ?", tenantID)
	if filter.InvoiceID != nil {
		db = db.Where("invoice_id = ?", *filter.InvoiceID)
	}
	if filter.Status != nil {
		db = db.Where("status = ?", string(*filter.Status))
	}
	if filter.Method != nil {
		db = db.Where("method = ?", string(*filter.Method))
	}
	return db
}
