// Package export renders the ledger as downloadable documents.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"

	"ahorrosmart/internal/core"
	"ahorrosmart/internal/rates"
)

// Fixed download filenames.
const (
	ExpensesJSONFile = "gastos.json"
	FullJSONFile     = "ahorrosmart.json"
	ExpensesCSVFile  = "gastos.csv"
)

// Record is the exported shape of an expense.
type Record struct {
	Amount      float64 `json:"monto"`
	Currency    string  `json:"moneda"`
	AmountEUR   float64 `json:"monto_eur"`
	Category    string  `json:"cat"`
	Subcategory string  `json:"sub"`
	Description string  `json:"desc"`
	Date        string  `json:"fecha"`
}

// Document is the full export: expenses, income sources and rates.
type Document struct {
	Expenses []Record           `json:"gastos"`
	Income   map[string]float64 `json:"ingresos"`
	Rates    map[string]float64 `json:"tasas"`
}

// Records converts ledger entries into export records, keeping order.
func Records(expenses []core.Expense) []Record {
	out := make([]Record, 0, len(expenses))
	for _, e := range expenses {
		out = append(out, Record{
			Amount:      e.Amount.InexactFloat64(),
			Currency:    e.Currency.String(),
			AmountEUR:   e.AmountEUR.InexactFloat64(),
			Category:    e.Category,
			Subcategory: e.Subcategory,
			Description: e.Description,
			Date:        e.Date.String(),
		})
	}
	return out
}

// WriteExpensesJSON writes the expense array indented by two spaces.
func WriteExpensesJSON(w io.Writer, expenses []core.Expense) error {
	return writeJSON(w, Records(expenses))
}

// WriteDocumentJSON writes expenses, income and rates as one document.
func WriteDocumentJSON(w io.Writer, expenses []core.Expense, income []core.IncomeSource, table rates.Table) error {
	doc := Document{
		Expenses: Records(expenses),
		Income:   make(map[string]float64, len(income)),
		Rates:    table.Floats(),
	}
	for _, src := range income {
		doc.Income[src.Label] = src.Amount.InexactFloat64()
	}
	return writeJSON(w, doc)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode export: %w", err)
	}
	return nil
}

var csvHeader = []string{"fecha", "monto", "moneda", "monto_eur", "cat", "sub", "desc"}

// WriteExpensesCSV writes one row per expense after a header row.
func WriteExpensesCSV(w io.Writer, expenses []core.Expense) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, e := range expenses {
		row := []string{
			e.Date.String(),
			e.Amount.String(),
			e.Currency.String(),
			e.AmountEUR.StringFixed(2),
			e.Category,
			e.Subcategory,
			e.Description,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row %s: %w", e.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
