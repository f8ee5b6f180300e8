package persistence

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const testTenantID = "550e8400-e29b-41d4-a716-446655440000"

// mockDatabase builds a Database over a sqlmock connection. The mock is
// closed via t.Cleanup unless the test closes it through the Database.
func mockDatabase(t *testing.T) (*Database, sqlmock.Sqlmock) {
	t.Helper()

	conn, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn:       conn,
		DriverName: "postgres",
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		// gorm.Open pings unless told not to, which would trip the
		// monitored mock before any expectation is set
		DisableAutomaticPing: true,
	})
	require.NoError(t, err)

	return &Database{DB: gormDB}, mock
}

func TestDatabase_WithTenant(t *testing.T) {
	t.Run("scopes queries to the tenant", func(t *testing.T) {
		db, mock := mockDatabase(t)

		mock.ExpectQuery(`SELECT \* FROM "invoice_read_models" WHERE tenant_id = \$1`).
			WithArgs(testTenantID).
			WillReturnRows(sqlmock.NewRows([]string{"id", "tenant_id", "status"}))

		var rows []InvoiceReadRow
		require.NoError(t, db.WithTenant(testTenantID).Find(&rows).Error)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("leaves the base handle unscoped", func(t *testing.T) {
		db, _ := mockDatabase(t)

		base := db.DB
		scoped := db.WithTenant(testTenantID)

		assert.NotEqual(t, base, scoped)
		assert.Equal(t, base, db.DB)
	})

	t.Run("empty tenant ID panics", func(t *testing.T) {
		db, _ := mockDatabase(t)
		assert.Panics(t, func() { db.WithTenant("") })
	})
}

func TestDatabase_Stats(t *testing.T) {
	db, _ := mockDatabase(t)

	stats, err := db.Stats()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, stats.OpenConnections, 0)
}

func TestDatabase_PingAndClose(t *testing.T) {
	db, mock := mockDatabase(t)

	mock.ExpectPing()
	assert.NoError(t, db.Ping())

	mock.ExpectClose()
	assert.NoError(t, db.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDatabase_Transaction(t *testing.T) {
	t.Run("commits on success", func(t *testing.T) {
		db, mock := mockDatabase(t)

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE "invoice_read_models"`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := db.Transaction(func(tx *gorm.DB) error {
			return tx.Model(&InvoiceReadRow{}).
				Where("tenant_id = ?", testTenantID).
				Update("status", "APPROVED").Error
		})

		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back when fn fails", func(t *testing.T) {
		db, mock := mockDatabase(t)

		mock.ExpectBegin()
		mock.ExpectRollback()

		err := db.Transaction(func(tx *gorm.DB) error {
			return assert.AnError
		})

		assert.ErrorIs(t, err, assert.AnError)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
