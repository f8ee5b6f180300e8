package refdata

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupPartyTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&PartyRecord{}))
	return db
}

func TestGormPartyDirectory_Exists(t *testing.T) {
	db := setupPartyTestDB(t)
	dir := NewGormPartyDirectory(db)
	ctx := context.Background()

	tenantID := uuid.New()
	customerID := uuid.New()
	vendorID := uuid.New()

	require.NoError(t, dir.Register(ctx, PartyRecord{
		ID: customerID, TenantID: tenantID, Kind: PartyKindCustomer, Name: "Acme Retail",
	}))
	require.NoError(t, dir.Register(ctx, PartyRecord{
		ID: vendorID, TenantID: tenantID, Kind: PartyKindVendor, Name: "Dhaka Paper Supply",
	}))

	exists, err := dir.CustomerExists(ctx, tenantID, customerID)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = dir.VendorExists(ctx, tenantID, vendorID)
	require.NoError(t, err)
	assert.True(t, exists)

	t.Run("kind is not interchangeable", func(t *testing.T) {
		exists, err := dir.VendorExists(ctx, tenantID, customerID)
		require.NoError(t, err)
		assert.False(t, exists)

		exists, err = dir.CustomerExists(ctx, tenantID, vendorID)
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("scoped to tenant", func(t *testing.T) {
		exists, err := dir.CustomerExists(ctx, uuid.New(), customerID)
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("unknown party", func(t *testing.T) {
		exists, err := dir.CustomerExists(ctx, tenantID, uuid.New())
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("nil ids never match", func(t *testing.T) {
		exists, err := dir.CustomerExists(ctx, tenantID, uuid.Nil)
		require.NoError(t, err)
		assert.False(t, exists)
	})
}

func TestGormPartyDirectory_Register(t *testing.T) {
	db := setupPartyTestDB(t)
	dir := NewGormPartyDirectory(db)
	ctx := context.Background()

	tenantID := uuid.New()
	partyID := uuid.New()

	require.NoError(t, dir.Register(ctx, PartyRecord{
		ID: partyID, TenantID: tenantID, Kind: PartyKindCustomer, Name: "Original Name",
	}))

	t.Run("upsert updates name only", func(t *testing.T) {
		require.NoError(t, dir.Register(ctx, PartyRecord{
			ID: partyID, TenantID: tenantID, Kind: PartyKindCustomer, Name: "Renamed Ltd",
		}))

		var count int64
		require.NoError(t, db.Model(&PartyRecord{}).Count(&count).Error)
		assert.Equal(t, int64(1), count)

		var record PartyRecord
		require.NoError(t, db.First(&record, "id = ?", partyID).Error)
		assert.Equal(t, "Renamed Ltd", record.Name)
		assert.Equal(t, PartyKindCustomer, record.Kind)
	})

	t.Run("rejects unknown kind", func(t *testing.T) {
		err := dir.Register(ctx, PartyRecord{
			ID: uuid.New(), TenantID: tenantID, Kind: "EMPLOYEE", Name: "Nope",
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "kind")
	})

	t.Run("rejects nil ids", func(t *testing.T) {
		err := dir.Register(ctx, PartyRecord{Kind: PartyKindCustomer, Name: "Nope"})
		require.Error(t, err)
	})
}
