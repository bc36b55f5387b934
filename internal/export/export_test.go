package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ahorrosmart/internal/core"
	"ahorrosmart/internal/rates"
)

func sampleExpenses() []core.Expense {
	created := time.Date(2025, 3, 7, 12, 0, 0, 0, time.UTC)
	return []core.Expense{
		{
			ID: "1", Date: core.DateOf(created), CreatedAt: created,
			Amount: decimal.NewFromInt(100), Currency: core.ARS,
			AmountEUR: decimal.RequireFromString("0.0974658869395711"),
			Category:  "Comida", Subcategory: "Delivery", Description: "pizza, grande",
		},
		{
			ID: "2", Date: core.DateOf(created), CreatedAt: created,
			Amount: decimal.RequireFromString("12.5"), Currency: core.EUR,
			AmountEUR: decimal.RequireFromString("12.5"),
			Category:  "TV", Subcategory: "Netflix",
		},
	}
}

func TestWriteExpensesJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteExpensesJSON(&buf, sampleExpenses()))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "[\n  {\n    \"monto\": 100,"), out)
	assert.Contains(t, out, `"fecha": "07/03/2025"`)

	var got []Record
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "ARS", got[0].Currency)
	assert.Equal(t, "Delivery", got[0].Subcategory)
	assert.InDelta(t, 0.0975, got[0].AmountEUR, 0.0001)
	assert.Equal(t, 12.5, got[1].Amount)
}

func TestWriteExpensesJSONEmptyLedger(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteExpensesJSON(&buf, nil))
	assert.Equal(t, "[]\n", buf.String())
}

func TestWriteDocumentJSON(t *testing.T) {
	var buf bytes.Buffer
	income := core.DefaultIncome().Entries()
	require.NoError(t, WriteDocumentJSON(&buf, sampleExpenses(), income, rates.DefaultTable()))

	var doc Document
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Len(t, doc.Expenses, 2)
	assert.Equal(t, map[string]float64{"sueldo": 1800, "freelance": 250}, doc.Income)
	assert.Equal(t, 1026.0, doc.Rates["ARS"])
	assert.Equal(t, 1.0, doc.Rates["EUR"])
}

func TestWriteExpensesCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteExpensesCSV(&buf, sampleExpenses()))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, csvHeader, rows[0])
	assert.Equal(t, []string{"07/03/2025", "100", "ARS", "0.10", "Comida", "Delivery", "pizza, grande"}, rows[1])
	assert.Equal(t, "", rows[2][6])
}
