// Package ledger keeps the append-only list of expenses recorded in a
// session, each normalised to EUR at insertion time.
package ledger

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"ahorrosmart/internal/core"
)

// RateSource returns the current number of units of a currency per EUR.
type RateSource interface {
	Get(c core.Currency) (decimal.Decimal, error)
}

// NewExpense is the user input for AddExpense.
type NewExpense struct {
	Amount      decimal.Decimal
	Currency    core.Currency
	Category    string
	Subcategory string
	Description string
}

// Ledger is an append-only expense list. Records are never edited or removed.
type Ledger struct {
	mu      sync.RWMutex
	records []core.Expense
	rates   RateSource
	clock   core.Clock
	newID   func() string
}

func New(rates RateSource, clock core.Clock) *Ledger {
	if clock == nil {
		clock = core.SystemClock{}
	}
	return &Ledger{
		rates: rates,
		clock: clock,
		newID: func() string { return uuid.NewString() },
	}
}

// AddExpense validates in, converts it to EUR with the current rate, stamps
// today's date and appends the record.
func (l *Ledger) AddExpense(in NewExpense) (core.Expense, error) {
	now := l.clock.Now()
	e := core.Expense{
		Date:        core.DateOf(now),
		Amount:      in.Amount,
		Currency:    in.Currency,
		Category:    strings.TrimSpace(in.Category),
		Subcategory: strings.TrimSpace(in.Subcategory),
		Description: strings.TrimSpace(in.Description),
		CreatedAt:   now,
	}
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}

	perEUR, err := l.rates.Get(e.Currency)
	if err != nil {
		return core.Expense{}, fmt.Errorf("rate for %s: %w", e.Currency, err)
	}
	if !perEUR.IsPositive() {
		return core.Expense{}, fmt.Errorf("rate for %s is %s: %w", e.Currency, perEUR, core.ErrUnsupportedCurrency)
	}
	if e.Currency == core.ReferenceCurrency {
		e.AmountEUR = e.Amount
	} else {
		e.AmountEUR = e.Amount.DivRound(perEUR, 16)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	e.ID = l.newID()
	l.records = append(l.records, e)
	return e, nil
}

// TotalSpent sums the EUR amount of every record.
func (l *Ledger) TotalSpent() decimal.Decimal {
	l.mu.RLock()
	defer l.mu.RUnlock()
	total := decimal.Zero
	for _, r := range l.records {
		total = total.Add(r.AmountEUR)
	}
	return total
}

// ByCategory sums EUR amounts per category, in order of first appearance.
func (l *Ledger) ByCategory() []core.CategoryAmount {
	l.mu.RLock()
	defer l.mu.RUnlock()
	index := make(map[string]int)
	var out []core.CategoryAmount
	for _, r := range l.records {
		i, ok := index[r.Category]
		if !ok {
			i = len(out)
			index[r.Category] = i
			out = append(out, core.CategoryAmount{Name: r.Category, Amount: decimal.Zero})
		}
		out[i].Amount = out[i].Amount.Add(r.AmountEUR)
	}
	return out
}

// Records returns a copy of every record in insertion order.
func (l *Ledger) Records() []core.Expense {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]core.Expense(nil), l.records...)
}

// Find returns the record with the given id.
func (l *Ledger) Find(id string) (core.Expense, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, r := range l.records {
		if r.ID == id {
			return r, true
		}
	}
	return core.Expense{}, false
}

func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}

// Restore appends previously persisted records, keeping their stored EUR
// amounts. Invalid records are rejected as a whole.
func (l *Ledger) Restore(records []core.Expense) error {
	for i, r := range records {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("record %d (%s): %w", i, r.ID, err)
		}
		if !r.AmountEUR.IsPositive() {
			return fmt.Errorf("record %d (%s): %w", i, r.ID, core.ErrInvalidAmount)
		}
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, records...)
	return nil
}
