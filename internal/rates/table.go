// Package rates holds the current currency conversion table, refreshes it
// from a remote price source and converts amounts through the reference
// currency.
package rates

import (
	"fmt"

	"github.com/shopspring/decimal"

	"ahorrosmart/internal/core"
)

// Table maps each currency to the number of its units worth 1 EUR.
type Table map[core.Currency]decimal.Decimal

var (
	defaultEURUSD = decimal.RequireFromString("1.08")
	defaultUSDARS = decimal.NewFromInt(950)
)

// DefaultTable is the table held until the first successful refresh.
func DefaultTable() Table {
	return FromQuotes(defaultEURUSD, defaultEURUSD, defaultUSDARS)
}

// FromQuotes builds a table from the three market quotes the hub model needs:
// USD per EUR, USDT per EUR and ARS per USD-equivalent unit.
func FromQuotes(eurUSD, eurUSDT, usdARS decimal.Decimal) Table {
	return Table{
		core.EUR:  decimal.NewFromInt(1),
		core.USD:  eurUSD,
		core.USDT: eurUSDT,
		core.ARS:  eurUSD.Mul(usdARS),
	}
}

// Get returns the factor for c.
func (t Table) Get(c core.Currency) (decimal.Decimal, error) {
	if !c.IsSupported() {
		return decimal.Zero, core.ErrUnsupportedCurrency
	}
	v, ok := t[c]
	if !ok {
		return decimal.Zero, fmt.Errorf("no rate for %s: %w", c, ErrParse)
	}
	return v, nil
}

// Validate checks that every supported currency has a strictly positive
// factor and that the reference currency is exactly 1.
func (t Table) Validate() error {
	for _, c := range core.SupportedCurrencies() {
		v, ok := t[c]
		if !ok {
			return fmt.Errorf("missing rate for %s", c)
		}
		if !v.IsPositive() {
			return fmt.Errorf("rate for %s must be positive, got %s", c, v)
		}
	}
	if !t[core.ReferenceCurrency].Equal(decimal.NewFromInt(1)) {
		return fmt.Errorf("reference currency %s must have rate 1", core.ReferenceCurrency)
	}
	return nil
}

// Clone returns an independent copy.
func (t Table) Clone() Table {
	out := make(Table, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}

// Equal reports whether both tables hold exactly the same factors.
func (t Table) Equal(other Table) bool {
	if len(t) != len(other) {
		return false
	}
	for k, v := range t {
		o, ok := other[k]
		if !ok || !v.Equal(o) {
			return false
		}
	}
	return true
}

// Floats returns the table as plain floats keyed by code, for JSON output.
func (t Table) Floats() map[string]float64 {
	out := make(map[string]float64, len(t))
	for k, v := range t {
		out[string(k)] = v.InexactFloat64()
	}
	return out
}
