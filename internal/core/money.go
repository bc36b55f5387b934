// Package core provides money parsing and handling utilities.
//
// This file contains functions for parsing monetary amounts from user input
// and formatting them back for display.
package core

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a decimal string into a positive decimal amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators. Signs,
// thousands separators and zero amounts are rejected with ErrInvalidAmount.
//
// Examples:
//
//	ParseAmount("12.34")   -> 12.34, nil
//	ParseAmount("12,34")   -> 12.34, nil
//	ParseAmount("0.00974") -> 0.00974, nil
//	ParseAmount("-1")      -> 0, ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	// Normalize decimal comma to dot
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return decimal.Zero, ErrInvalidAmount
	}
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return decimal.Zero, ErrInvalidAmount
	}
	for _, p := range parts {
		for _, r := range p {
			if !unicode.IsDigit(r) {
				return decimal.Zero, ErrInvalidAmount
			}
		}
	}
	if parts[0] == "" {
		s = "0" + s
	}
	if strings.HasSuffix(s, ".") {
		s = strings.TrimSuffix(s, ".")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if !d.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// FormatEuros renders an amount as "€1.234,56" style text with two decimals.
func FormatEuros(d decimal.Decimal) string {
	return FormatAmount(d, 2, "€")
}

// FormatAmount renders d with the given number of decimals, dot thousands
// separators and comma decimal separator, prefixed by symbol.
func FormatAmount(d decimal.Decimal, places int32, symbol string) string {
	neg := d.IsNegative()
	s := d.Abs().StringFixed(places)
	intPart, fracPart, _ := strings.Cut(s, ".")

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	out := b.String()
	if fracPart != "" {
		out += "," + fracPart
	}
	if neg {
		return "-" + symbol + out
	}
	return symbol + out
}
