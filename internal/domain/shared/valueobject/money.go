package valueobject

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/finledger/backend/internal/domain/shared"
)

// Currency represents a currency code (ISO 4217)
type Currency string

const (
	BDT Currency = "BDT" // Bangladeshi Taka (default)
	USD Currency = "USD" // US Dollar
	EUR Currency = "EUR" // Euro
	GBP Currency = "GBP" // British Pound
	INR Currency = "INR" // Indian Rupee
)

// DefaultCurrency is the default currency for the system
const DefaultCurrency = BDT

// Money is a value object representing monetary amounts in minor units
// (e.g. cents, paisa). Storing integers keeps arithmetic exact; fractional
// factors such as tax rates go through ApplyRate which rounds half-up.
// It is immutable - all operations return new Money instances.
type Money struct {
	amount   int64
	currency Currency
}

// NewMoney creates a new Money with the specified amount in minor units
func NewMoney(amount int64, currency Currency) (Money, error) {
	if currency == "" {
		return Money{}, shared.NewDomainError(shared.CodeInvalidAmount, "currency cannot be empty")
	}
	return Money{amount: amount, currency: currency}, nil
}

// NewMoneyFromDecimal creates a Money from a decimal amount of minor units.
// A decimal carrying sub-minor-unit precision is rejected, never rounded.
func NewMoneyFromDecimal(amount decimal.Decimal, currency Currency) (Money, error) {
	if currency == "" {
		return Money{}, shared.NewDomainError(shared.CodeInvalidAmount, "currency cannot be empty")
	}
	if !amount.IsInteger() {
		return Money{}, shared.NewDomainError(shared.CodeInvalidAmount,
			fmt.Sprintf("amount %s carries sub-minor-unit precision", amount))
	}
	if !amount.BigInt().IsInt64() {
		return Money{}, shared.NewDomainError(shared.CodeInvalidAmount,
			fmt.Sprintf("amount %s does not fit in 64 bits", amount))
	}
	return Money{amount: amount.IntPart(), currency: currency}, nil
}

// MustMoney creates a new Money, panics on invalid input. Intended for
// constants and tests.
func MustMoney(amount int64, currency Currency) Money {
	m, err := NewMoney(amount, currency)
	if err != nil {
		panic(err)
	}
	return m
}

// Zero returns a zero-value Money in the specified currency
func Zero(currency Currency) Money {
	return Money{amount: 0, currency: currency}
}

// ZeroBDT returns a zero-value Money in BDT
func ZeroBDT() Money {
	return Zero(BDT)
}

// Amount returns the amount in minor units
func (m Money) Amount() int64 {
	return m.amount
}

// Currency returns the currency code
func (m Money) Currency() Currency {
	return m.currency
}

// IsZero returns true if the amount is zero
func (m Money) IsZero() bool {
	return m.amount == 0
}

// IsPositive returns true if the amount is positive
func (m Money) IsPositive() bool {
	return m.amount > 0
}

// IsNegative returns true if the amount is negative
func (m Money) IsNegative() bool {
	return m.amount < 0
}

func (m Money) mismatch(other Money) error {
	return shared.NewDomainError(shared.CodeCurrencyMismatch,
		fmt.Sprintf("currency mismatch: %s and %s", m.currency, other.currency))
}

// Add returns a new Money with the sum of both amounts.
// Returns a currency mismatch error if the currencies differ.
func (m Money) Add(other Money) (Money, error) {
	if m.currency != other.currency {
		return Money{}, m.mismatch(other)
	}
	return Money{amount: m.amount + other.amount, currency: m.currency}, nil
}

// MustAdd adds two Money values, panics if currencies don't match
func (m Money) MustAdd(other Money) Money {
	result, err := m.Add(other)
	if err != nil {
		panic(err)
	}
	return result
}

// Subtract returns a new Money with the difference.
// Returns a currency mismatch error if the currencies differ.
func (m Money) Subtract(other Money) (Money, error) {
	if m.currency != other.currency {
		return Money{}, m.mismatch(other)
	}
	return Money{amount: m.amount - other.amount, currency: m.currency}, nil
}

// MustSubtract subtracts two Money values, panics if currencies don't match
func (m Money) MustSubtract(other Money) Money {
	result, err := m.Subtract(other)
	if err != nil {
		panic(err)
	}
	return result
}

// MultiplyInt returns a new Money multiplied by an integer factor
func (m Money) MultiplyInt(factor int64) Money {
	return Money{amount: m.amount * factor, currency: m.currency}
}

// ApplyRate multiplies the amount by a fractional rate (e.g. a tax rate of
// 0.15) and rounds the result half-up to a whole minor unit.
func (m Money) ApplyRate(rate decimal.Decimal) Money {
	amount := decimal.NewFromInt(m.amount).Mul(rate).Round(0).IntPart()
	return Money{amount: amount, currency: m.currency}
}

// Negate returns a new Money with the sign reversed
func (m Money) Negate() Money {
	return Money{amount: -m.amount, currency: m.currency}
}

// Equals returns true if both Money values are equal (same amount and currency)
func (m Money) Equals(other Money) bool {
	return m.currency == other.currency && m.amount == other.amount
}

// Compare returns -1, 0 or 1 comparing the amounts.
// Returns a currency mismatch error if the currencies differ.
func (m Money) Compare(other Money) (int, error) {
	if m.currency != other.currency {
		return 0, m.mismatch(other)
	}
	switch {
	case m.amount < other.amount:
		return -1, nil
	case m.amount > other.amount:
		return 1, nil
	default:
		return 0, nil
	}
}

// LessThan returns true if this Money is less than the other
func (m Money) LessThan(other Money) (bool, error) {
	c, err := m.Compare(other)
	return c < 0, err
}

// GreaterThan returns true if this Money is greater than the other
func (m Money) GreaterThan(other Money) (bool, error) {
	c, err := m.Compare(other)
	return c > 0, err
}

// Decimal returns the amount as a decimal in minor units
func (m Money) Decimal() decimal.Decimal {
	return decimal.NewFromInt(m.amount)
}

// String returns a string representation of the Money
func (m Money) String() string {
	return fmt.Sprintf("%d %s", m.amount, m.currency)
}

type moneyJSON struct {
	Amount   int64    `json:"amount"`
	Currency Currency `json:"currency"`
}

// MarshalJSON implements json.Marshaler
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(moneyJSON{Amount: m.amount, Currency: m.currency})
}

// UnmarshalJSON implements json.Unmarshaler
func (m *Money) UnmarshalJSON(data []byte) error {
	var v moneyJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if v.Currency == "" {
		return shared.NewDomainError(shared.CodeInvalidAmount, "currency cannot be empty")
	}
	m.amount = v.Amount
	m.currency = v.Currency
	return nil
}

// Value implements driver.Valuer. Only the amount is stored; the currency
// lives in its own column.
func (m Money) Value() (driver.Value, error) {
	return m.amount, nil
}

// Scan implements sql.Scanner for database retrieval. Only the amount is
// scanned; the currency defaults to DefaultCurrency unless already set.
func (m *Money) Scan(value any) error {
	if value == nil {
		m.amount = 0
		if m.currency == "" {
			m.currency = DefaultCurrency
		}
		return nil
	}

	var amount decimal.Decimal
	switch v := value.(type) {
	case int64:
		amount = decimal.NewFromInt(v)
	case string:
		d, err := decimal.NewFromString(v)
		if err != nil {
			return fmt.Errorf("cannot scan %q into Money: %w", v, err)
		}
		amount = d
	case []byte:
		d, err := decimal.NewFromString(string(v))
		if err != nil {
			return fmt.Errorf("cannot scan %q into Money: %w", v, err)
		}
		amount = d
	default:
		return fmt.Errorf("cannot scan %T into Money", value)
	}

	scanned, err := NewMoneyFromDecimal(amount, DefaultCurrency)
	if err != nil {
		return err
	}
	m.amount = scanned.amount
	if m.currency == "" {
		m.currency = DefaultCurrency
	}
	return nil
}
