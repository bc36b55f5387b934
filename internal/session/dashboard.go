package session

import (
	"time"

	"github.com/shopspring/decimal"

	"ahorrosmart/internal/budget"
	"ahorrosmart/internal/core"
	"ahorrosmart/internal/rates"
)

// CategoryShare is one slice of the spend breakdown.
type CategoryShare struct {
	Name    string          `json:"name"`
	Amount  decimal.Decimal `json:"amount_eur"`
	Percent decimal.Decimal `json:"percent"`
}

// RefreshInfo describes the last rate refresh.
type RefreshInfo struct {
	Status    rates.Status `json:"status"`
	Message   string       `json:"message"`
	Error     string       `json:"error,omitempty"`
	FetchedAt *time.Time   `json:"fetched_at,omitempty"`
}

// Dashboard is a point-in-time view of the whole state, rebuilt by scanning
// the ledger on every call.
type Dashboard struct {
	Income      decimal.Decimal      `json:"income_total"`
	IncomeItems []core.IncomeSource  `json:"-"`
	Goal        decimal.Decimal      `json:"savings_goal"`
	Budget      decimal.Decimal      `json:"budget"`
	Spent       decimal.Decimal      `json:"total_spent"`
	Remaining   decimal.Decimal      `json:"remaining"`
	Status      budget.Status        `json:"status"`
	Message     string               `json:"message"`
	Breakdown   []CategoryShare      `json:"breakdown"`
	Quotes      []rates.Quote        `json:"quotes"`
	Rates       rates.Table          `json:"rates"`
	LastRefresh RefreshInfo          `json:"last_refresh"`
	Records     []core.Expense       `json:"-"`
	Categories  []core.CategoryEntry `json:"categories"`
	Currencies  []core.Currency      `json:"currencies"`
}

// NewRefreshInfo describes the outcome of the last refresh attempt.
func NewRefreshInfo(last rates.Result) RefreshInfo {
	info := RefreshInfo{Status: last.Status, Message: last.Message()}
	if last.Err != nil {
		info.Error = last.Err.Error()
	}
	if !last.FetchedAt.IsZero() {
		at := last.FetchedAt
		info.FetchedAt = &at
	}
	return info
}

// Dashboard builds a snapshot of the current state.
func (s *State) Dashboard() Dashboard {
	eval := s.Evaluate()
	table := s.Rates.Snapshot()
	info := NewRefreshInfo(s.Rates.LastResult())

	return Dashboard{
		Income:      eval.Income,
		IncomeItems: s.Income.Entries(),
		Goal:        eval.Goal,
		Budget:      eval.Budget,
		Spent:       eval.Spent,
		Remaining:   eval.Remaining,
		Status:      eval.Status,
		Message:     eval.Message(),
		Breakdown:   Breakdown(s.Ledger.ByCategory(), eval.Spent),
		Quotes:      rates.NewConverter(table).Quotes(),
		Rates:       table,
		LastRefresh: info,
		Records:     s.Ledger.Records(),
		Categories:  s.Categories.Snapshot(),
		Currencies:  core.SupportedCurrencies(),
	}
}

var hundred = decimal.NewFromInt(100)

// Breakdown turns per-category sums into shares of total, as percentages
// rounded to one decimal.
func Breakdown(sums []core.CategoryAmount, total decimal.Decimal) []CategoryShare {
	out := make([]CategoryShare, 0, len(sums))
	for _, c := range sums {
		pct := decimal.Zero
		if total.IsPositive() {
			pct = c.Amount.Mul(hundred).DivRound(total, 4).Round(1)
		}
		out = append(out, CategoryShare{Name: c.Name, Amount: c.Amount, Percent: pct})
	}
	return out
}
