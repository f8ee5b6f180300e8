package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TaxRateLookup resolves tax categories to fractional rates. Rates are
// external configuration; the domain never hardcodes jurisdiction tables.
type TaxRateLookup interface {
	RateFor(ctx context.Context, category string) (decimal.Decimal, error)
}

// DocumentNumberGenerator produces compliance document numbers assigned at
// invoice approval. Generation must be deterministic for a given invoice and
// date so a retried approval assigns the same number.
type DocumentNumberGenerator interface {
	Generate(ctx context.Context, invoiceID uuid.UUID, issuedAt time.Time) (string, error)
}

// PartyDirectory checks customer and vendor existence. Lookup failures are
// reported to the caller but never corrupt invoice invariants.
type PartyDirectory interface {
	CustomerExists(ctx context.Context, tenantID, customerID uuid.UUID) (bool, error)
	VendorExists(ctx context.Context, tenantID, vendorID uuid.UUID) (bool, error)
}
