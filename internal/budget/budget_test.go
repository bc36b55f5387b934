package budget

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name      string
		income    string
		goal      string
		spent     string
		budget    string
		remaining string
		status    Status
	}{
		{"no spend", "2050", "150", "0", "1900", "1900", OnTrack},
		{"exactly at threshold", "2050", "150", "1850", "1900", "50", OnTrack},
		{"just under threshold", "2050", "150", "1850.01", "1900", "49.99", Warning},
		{"exactly zero", "2050", "150", "1900", "1900", "0", Warning},
		{"over", "2050", "150", "1900.01", "1900", "-0.01", OverBudget},
		{"goal above income", "100", "150", "0", "-50", "-50", OverBudget},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := Evaluate(d(tt.income), d(tt.goal), d(tt.spent))
			assert.True(t, e.Budget.Equal(d(tt.budget)), "budget %s", e.Budget)
			assert.True(t, e.Remaining.Equal(d(tt.remaining)), "remaining %s", e.Remaining)
			assert.Equal(t, tt.status, e.Status)
		})
	}
}

func TestMessages(t *testing.T) {
	assert.Equal(t, "¡Vas bien para ahorrar 150€!", OnTrack.Message(DefaultSavingsGoal))
	assert.Equal(t, "¡Cuidado! Ajusta gastos.", Warning.Message(DefaultSavingsGoal))
	assert.Equal(t, "¡No alcanzarás los 200€ de ahorro!", OverBudget.Message(d("200")))

	e := Evaluate(d("2050"), DefaultSavingsGoal, d("0"))
	assert.Equal(t, OnTrack.Message(DefaultSavingsGoal), e.Message())
}
