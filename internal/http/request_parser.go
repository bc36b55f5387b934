// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request data:
// JSON or form bodies, conversion queries and method checks.

package http

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"ahorrosmart/internal/core"
)

// ConvertParams holds the parsed query of a conversion request.
type ConvertParams struct {
	Amount decimal.Decimal
	From   core.Currency
	To     core.Currency
}

// ParseConvertParams reads amount, from and to from the query string.
// from defaults to ARS and to defaults to EUR.
func ParseConvertParams(query url.Values) (ConvertParams, error) {
	amount, err := core.ParseAmount(query.Get("amount"))
	if err != nil {
		return ConvertParams{}, err
	}
	params := ConvertParams{Amount: amount, From: core.ARS, To: core.ReferenceCurrency}
	if v := strings.TrimSpace(query.Get("from")); v != "" {
		if params.From, err = core.ParseCurrency(v); err != nil {
			return ConvertParams{}, err
		}
	}
	if v := strings.TrimSpace(query.Get("to")); v != "" {
		if params.To, err = core.ParseCurrency(v); err != nil {
			return ConvertParams{}, err
		}
	}
	return params, nil
}

// RequestBodyParser handles different content types for request body parsing.
// It supports both JSON and form-encoded data, commonly used with HTMX.
type RequestBodyParser struct {
	body     []byte
	jsonData map[string]interface{}
	formData url.Values
	parsed   bool
	err      error
}

// maxBodyBytes caps request bodies. Every form and JSON payload the server
// accepts is a handful of short fields.
const maxBodyBytes = 64 << 10

// NewRequestBodyParser creates a parser for the given request.
// It reads at most maxBodyBytes of the body once and stores it for
// subsequent parsing.
func NewRequestBodyParser(w http.ResponseWriter, r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{}
	p.body, p.err = io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	if len(p.body) == 0 {
		p.formData = url.Values{}
		return nil
	}

	// Try JSON first if content looks like JSON
	if p.body[0] == '{' || p.body[0] == '[' {
		dec := json.NewDecoder(bytes.NewReader(p.body))
		dec.UseNumber()
		p.jsonData = make(map[string]interface{})
		if err := dec.Decode(&p.jsonData); err != nil {
			p.jsonData = nil
			p.err = err
			return err
		}
		return nil
	}

	// Fall back to form parsing
	p.formData, p.err = url.ParseQuery(string(p.body))
	return p.err
}

// Get returns a string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return strings.TrimSpace(sanitizeInput(stringValue(val)))
		}
	}
	if p.formData != nil {
		return strings.TrimSpace(sanitizeInput(p.formData.Get(key)))
	}
	return ""
}

// Amount parses key as a positive amount.
func (p *RequestBodyParser) Amount(key string) (decimal.Decimal, error) {
	return core.ParseAmount(p.Get(key))
}

// Currency parses key as a supported currency, defaulting to EUR when absent.
func (p *RequestBodyParser) Currency(key string) (core.Currency, error) {
	v := p.Get(key)
	if v == "" {
		return core.ReferenceCurrency, nil
	}
	return core.ParseCurrency(v)
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

// stringValue converts an interface{} to string.
func stringValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// RequireMethod checks if the request method matches the expected method(s).
// Returns an error response builder if the method doesn't match.
func RequireMethod(r *http.Request, methods ...string) *HTMXResponseBuilder {
	for _, m := range methods {
		if r.Method == m {
			return nil
		}
	}
	return MethodNotAllowedError(strings.Join(methods, ", "))
}

// RequirePOST is a convenience function for POST-only handlers.
func RequirePOST(r *http.Request) *HTMXResponseBuilder {
	return RequireMethod(r, http.MethodPost)
}

// RequireDeleteOrPOST is a convenience function for DELETE/POST handlers.
func RequireDeleteOrPOST(r *http.Request) *HTMXResponseBuilder {
	return RequireMethod(r, http.MethodDelete, http.MethodPost)
}
