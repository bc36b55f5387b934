package core

import (
	"errors"
	"strings"
)

// Currency is an ISO-like currency code.
type Currency string

const (
	EUR  Currency = "EUR"
	ARS  Currency = "ARS"
	USD  Currency = "USD"
	USDT Currency = "USDT"
)

// ReferenceCurrency is the unit every amount is normalised to for aggregation.
const ReferenceCurrency = EUR

var ErrUnsupportedCurrency = errors.New("unsupported currency")

var supportedCurrencies = []Currency{EUR, ARS, USD, USDT}

// SupportedCurrencies returns the supported codes in display order.
func SupportedCurrencies() []Currency {
	return append([]Currency(nil), supportedCurrencies...)
}

// IsSupported reports whether c belongs to the supported set.
func (c Currency) IsSupported() bool {
	for _, s := range supportedCurrencies {
		if c == s {
			return true
		}
	}
	return false
}

func (c Currency) String() string {
	return string(c)
}

// ParseCurrency normalises s and checks it against the supported set.
func ParseCurrency(s string) (Currency, error) {
	c := Currency(strings.ToUpper(strings.TrimSpace(s)))
	if !c.IsSupported() {
		return "", ErrUnsupportedCurrency
	}
	return c, nil
}
