// Package budget classifies the month's spending against income minus a
// savings goal.
package budget

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// DefaultSavingsGoal is the monthly amount, in EUR, set aside before budgeting.
	DefaultSavingsGoal = decimal.NewFromInt(150)
	// WarningThreshold is the remaining amount below which the month is tight.
	WarningThreshold = decimal.NewFromInt(50)
)

type Status string

const (
	OverBudget Status = "over_budget"
	Warning    Status = "warning"
	OnTrack    Status = "on_track"
)

// Evaluation is the outcome of Evaluate. All amounts are in EUR.
type Evaluation struct {
	Income    decimal.Decimal
	Goal      decimal.Decimal
	Budget    decimal.Decimal
	Spent     decimal.Decimal
	Remaining decimal.Decimal
	Status    Status
}

// Evaluate computes budget = income - goal and remaining = budget - spent,
// then classifies remaining into a band.
func Evaluate(income, goal, spent decimal.Decimal) Evaluation {
	b := income.Sub(goal)
	remaining := b.Sub(spent)
	return Evaluation{
		Income:    income,
		Goal:      goal,
		Budget:    b,
		Spent:     spent,
		Remaining: remaining,
		Status:    Classify(remaining),
	}
}

// Classify maps a remaining amount to its band.
func Classify(remaining decimal.Decimal) Status {
	switch {
	case remaining.IsNegative():
		return OverBudget
	case remaining.LessThan(WarningThreshold):
		return Warning
	default:
		return OnTrack
	}
}

// Message is the user-facing text for the band.
func (s Status) Message(goal decimal.Decimal) string {
	switch s {
	case OverBudget:
		return fmt.Sprintf("¡No alcanzarás los %s€ de ahorro!", goal.String())
	case Warning:
		return "¡Cuidado! Ajusta gastos."
	default:
		return fmt.Sprintf("¡Vas bien para ahorrar %s€!", goal.String())
	}
}

// Message is the band message for this evaluation.
func (e Evaluation) Message() string {
	return e.Status.Message(e.Goal)
}
