package refdata

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/finledger/backend/internal/domain/ledger"
)

// Party kinds stored in the directory.
const (
	PartyKindCustomer = "CUSTOMER"
	PartyKindVendor   = "VENDOR"
)

// PartyRecord is a row in the tenant-scoped party directory. The directory
// is reference data maintained outside the ledger write path; invoice
// creation only checks existence.
type PartyRecord struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	TenantID  uuid.UUID `gorm:"type:uuid;index;not null"`
	Kind      string    `gorm:"type:varchar(16);index;not null"`
	Name      string    `gorm:"type:varchar(255);not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// TableName returns the table name for party records.
func (PartyRecord) TableName() string {
	return "party_records"
}

// GormPartyDirectory answers party existence checks against the directory
// table.
type GormPartyDirectory struct {
	db *gorm.DB
}

var _ ledger.PartyDirectory = (*GormPartyDirectory)(nil)

// NewGormPartyDirectory creates a party directory backed by the database.
func NewGormPartyDirectory(db *gorm.DB) *GormPartyDirectory {
	return &GormPartyDirectory{db: db}
}

// CustomerExists reports whether the tenant has a customer with this ID.
func (d *GormPartyDirectory) CustomerExists(ctx context.Context, tenantID, customerID uuid.UUID) (bool, error) {
	return d.exists(ctx, tenantID, customerID, PartyKindCustomer)
}

// VendorExists reports whether the tenant has a vendor with this ID.
func (d *GormPartyDirectory) VendorExists(ctx context.Context, tenantID, vendorID uuid.UUID) (bool, error) {
	return d.exists(ctx, tenantID, vendorID, PartyKindVendor)
}

func (d *GormPartyDirectory) exists(ctx context.Context, tenantID, partyID uuid.UUID, kind string) (bool, error) {
	if tenantID == uuid.Nil || partyID == uuid.Nil {
		return false, nil
	}
	var count int64
	err := d.db.WithContext(ctx).
		Model(&PartyRecord{}).
		Where("tenant_id = ? AND id = ? AND kind = ?", tenantID, partyID, kind).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("party lookup: %w", err)
	}
	return count > 0, nil
}

// Register upserts a party into the directory. The kind of an existing party
// never changes through this path.
func (d *GormPartyDirectory) Register(ctx context.Context, record PartyRecord) error {
	if record.ID == uuid.Nil || record.TenantID == uuid.Nil {
		return fmt.Errorf("party record requires id and tenant id")
	}
	if record.Kind != PartyKindCustomer && record.Kind != PartyKindVendor {
		return fmt.Errorf("unknown party kind %q", record.Kind)
	}
	return d.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "updated_at"}),
		}).
		Create(&record).Error
}
