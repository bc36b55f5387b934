// Package session holds the application state shared by every request.
package session

import (
	"sync"

	"github.com/shopspring/decimal"

	"ahorrosmart/internal/budget"
	"ahorrosmart/internal/core"
	"ahorrosmart/internal/ledger"
	"ahorrosmart/internal/rates"
)

// State owns the rate provider, the ledger, the category and income tables
// and the savings goal. Each component guards its own data.
type State struct {
	Rates      *rates.Provider
	Ledger     *ledger.Ledger
	Categories *core.CategoryTable
	Income     *core.IncomeTable

	mu   sync.RWMutex
	goal decimal.Decimal
}

// Options configures New. A nil provider, clock or table falls back to the
// built-in default. Goal is taken as given, zero included; only a negative
// Goal is replaced by budget.DefaultSavingsGoal.
type Options struct {
	Provider   *rates.Provider
	Clock      core.Clock
	Categories *core.CategoryTable
	Income     *core.IncomeTable
	Goal       decimal.Decimal
}

func New(opts Options) *State {
	clock := opts.Clock
	if clock == nil {
		clock = core.SystemClock{}
	}
	provider := opts.Provider
	if provider == nil {
		provider = rates.NewProvider(nil, nil, clock)
	}
	cats := opts.Categories
	if cats == nil {
		cats = core.DefaultCategories()
	}
	income := opts.Income
	if income == nil {
		income = core.DefaultIncome()
	}
	goal := opts.Goal
	if goal.IsNegative() {
		goal = budget.DefaultSavingsGoal
	}
	return &State{
		Rates:      provider,
		Ledger:     ledger.New(provider, clock),
		Categories: cats,
		Income:     income,
		goal:       goal,
	}
}

// Goal returns the monthly savings goal in EUR.
func (s *State) Goal() decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.goal
}

// SetGoal replaces the savings goal. Negative goals are rejected.
func (s *State) SetGoal(goal decimal.Decimal) error {
	if goal.IsNegative() {
		return core.ErrInvalidAmount
	}
	s.mu.Lock()
	s.goal = goal
	s.mu.Unlock()
	return nil
}

// Evaluate runs the budget evaluator against the current income, goal and spend.
func (s *State) Evaluate() budget.Evaluation {
	return budget.Evaluate(s.Income.Total(), s.Goal(), s.Ledger.TotalSpent())
}
