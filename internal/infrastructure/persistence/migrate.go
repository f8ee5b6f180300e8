package persistence

import (
	"gorm.io/gorm"

	"github.com/finledger/backend/internal/domain/shared"
	"github.com/finledger/backend/internal/infrastructure/refdata"
)

// AutoMigrate creates or updates all ledger tables on the given connection.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&EventRecord{},
		&SnapshotRecord{},
		&shared.OutboxEntry{},
		&InvoiceReadRow{},
		&PaymentReadRow{},
		&refdata.PartyRecord{},
	)
}
