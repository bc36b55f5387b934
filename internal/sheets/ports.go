package sheets

import (
	"context"

	"ahorrosmart/internal/core"
)

// Ports for outbound adapters.
type (
	// ExpenseExporter appends a ledger record to an external sheet and
	// returns a reference to the written row.
	ExpenseExporter interface {
		Append(ctx context.Context, e core.Expense) (rowRef string, err error)
	}
)
