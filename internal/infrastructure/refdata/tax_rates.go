package refdata

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/finledger/backend/internal/domain/ledger"
	"github.com/finledger/backend/internal/domain/shared"
)

// StaticTaxRateLookup resolves tax categories from a fixed table loaded at
// startup. Categories are matched exactly; an unknown category is a
// validation failure so a typo in a line item never silently gets taxed at
// zero.
type StaticTaxRateLookup struct {
	rates map[string]decimal.Decimal
}

var _ ledger.TaxRateLookup = (*StaticTaxRateLookup)(nil)

// NewStaticTaxRateLookup parses a category-to-rate table. Rates are decimal
// strings ("0.15" for 15%) and must fall within [0, 1].
func NewStaticTaxRateLookup(rates map[string]string) (*StaticTaxRateLookup, error) {
	parsed := make(map[string]decimal.Decimal, len(rates))
	for category, raw := range rates {
		rate, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("tax rate for category %q: %w", category, err)
		}
		if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
			return nil, fmt.Errorf("tax rate for category %q must be between 0 and 1, got %s", category, rate)
		}
		parsed[category] = rate
	}
	return &StaticTaxRateLookup{rates: parsed}, nil
}

// RateFor returns the fractional rate for a tax category.
func (l *StaticTaxRateLookup) RateFor(_ context.Context, category string) (decimal.Decimal, error) {
	rate, ok := l.rates[category]
	if !ok {
		return decimal.Zero, shared.NewDomainError(shared.CodeInvalidLineItem,
			fmt.Sprintf("unknown tax category %q", category))
	}
	return rate, nil
}

// Categories returns the known tax categories.
func (l *StaticTaxRateLookup) Categories() []string {
	out := make([]string, 0, len(l.rates))
	for category := range l.rates {
		out = append(out, category)
	}
	return out
}
