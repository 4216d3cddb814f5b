/*
Package generic provides the domain-agnostic building blocks of the
allowance service.

PURPOSE:
  Types that carry no claim-specific rules: money amounts, calendar dates,
  the error taxonomy and the transactional store contract. The allowance
  package composes them into the claim lifecycle.

KEY CONCEPTS IN THIS FILE (types.go):
  - Amount: A monetary quantity with a currency (e.g., NGN 22000)
  - Rate:   An amount paid per unit (per weekend day, per holiday)

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal to avoid floating-point errors
  2. Type Safety: Amounts of different currencies never mix silently

USAGE:
  weekend := generic.NewAmountFromInt(3500, generic.CurrencyNGN)
  total := weekend.MulInt(2)

SEE ALSO:
  - time.go: Date type
  - errors.go: Error taxonomy
  - store.go: Transactional store contract
*/
package generic

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// =============================================================================
// AMOUNT - Monetary quantity
// =============================================================================

type Amount struct {
	Value    decimal.Decimal
	Currency Currency
}

type Currency string

const CurrencyNGN Currency = "NGN"

func NewAmount(value decimal.Decimal, currency Currency) Amount {
	return Amount{Value: value, Currency: currency}
}

func NewAmountFromInt(value int64, currency Currency) Amount {
	return Amount{Value: decimal.NewFromInt(value), Currency: currency}
}

// ParseAmount parses a decimal string such as "3500" or "3500.50".
func ParseAmount(s string, currency Currency) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, err
	}
	return Amount{Value: d, Currency: currency}, nil
}

func MustParseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func (a Amount) Zero() Amount { return Amount{Value: decimal.Zero, Currency: a.Currency} }
func (a Amount) Add(b Amount) Amount { return Amount{Value: a.Value.Add(b.Value), Currency: a.Currency} }
func (a Amount) MulInt(n int) Amount { return Amount{Value: a.Value.Mul(decimal.NewFromInt(int64(n))), Currency: a.Currency} }
func (a Amount) IsZero() bool { return a.Value.IsZero() }
func (a Amount) IsNegative() bool { return a.Value.IsNegative() }
func (a Amount) Equal(b Amount) bool { return a.Currency == b.Currency && a.Value.Equal(b.Value) }
func (a Amount) String() string { return a.Value.StringFixed(2) }

// MarshalJSON renders the value as a fixed two-decimal string.
func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.Value.StringFixed(2))
}

// =============================================================================
// RATES
// =============================================================================

// Rates are the per-day amounts paid for inconvenience days.
type Rates struct {
	Weekend Amount
	Holiday Amount
}

// DefaultRates are the standard allowance rates.
func DefaultRates() Rates {
	return Rates{
		Weekend: NewAmountFromInt(3500, CurrencyNGN),
		Holiday: NewAmountFromInt(15000, CurrencyNGN),
	}
}
