package rates

import (
	"github.com/shopspring/decimal"

	"ahorrosmart/internal/core"
)

// divisionPrecision is the number of decimal places kept when dividing by a
// rate factor.
const divisionPrecision = 16

// Converter converts amounts through EUR using a fixed table.
type Converter struct {
	table Table
}

// Quote is the value of one unit of From expressed in To.
type Quote struct {
	From core.Currency   `json:"from"`
	To   core.Currency   `json:"to"`
	Rate decimal.Decimal `json:"rate"`
}

var quotePairs = [][2]core.Currency{
	{core.USDT, core.ARS},
	{core.ARS, core.USDT},
	{core.EUR, core.ARS},
	{core.ARS, core.EUR},
	{core.USD, core.ARS},
	{core.ARS, core.USD},
	{core.EUR, core.USDT},
	{core.USDT, core.EUR},
}

func NewConverter(t Table) Converter {
	return Converter{table: t.Clone()}
}

// Convert expresses amount of from in to.
func (c Converter) Convert(amount decimal.Decimal, from, to core.Currency) (decimal.Decimal, error) {
	if !from.IsSupported() || !to.IsSupported() {
		return decimal.Zero, core.ErrUnsupportedCurrency
	}
	if from == to {
		return amount, nil
	}
	fromRate, err := c.table.Get(from)
	if err != nil {
		return decimal.Zero, err
	}
	toRate, err := c.table.Get(to)
	if err != nil {
		return decimal.Zero, err
	}
	eur := amount.DivRound(fromRate, divisionPrecision)
	return eur.Mul(toRate), nil
}

// ToReference converts amount to EUR.
func (c Converter) ToReference(amount decimal.Decimal, from core.Currency) (decimal.Decimal, error) {
	return c.Convert(amount, from, core.ReferenceCurrency)
}

// CrossRate returns the value of one unit of from in to.
func (c Converter) CrossRate(from, to core.Currency) (decimal.Decimal, error) {
	return c.Convert(decimal.NewFromInt(1), from, to)
}

// Quotes returns the pairs shown on the live quotes panel.
func (c Converter) Quotes() []Quote {
	out := make([]Quote, 0, len(quotePairs))
	for _, p := range quotePairs {
		r, err := c.CrossRate(p[0], p[1])
		if err != nil {
			continue
		}
		out = append(out, Quote{From: p[0], To: p[1], Rate: r})
	}
	return out
}
