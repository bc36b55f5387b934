package core

import (
	"strings"
	"sync"

	"github.com/shopspring/decimal"
)

// CategoryTable maps category names to an ordered list of subcategories.
// Categories keep insertion order. Blank and duplicate entries are ignored.
type CategoryTable struct {
	mu    sync.RWMutex
	order []string
	subs  map[string][]string
}

// NewCategoryTable returns an empty table.
func NewCategoryTable() *CategoryTable {
	return &CategoryTable{subs: make(map[string][]string)}
}

// DefaultCategories returns the built-in category table.
func DefaultCategories() *CategoryTable {
	t := NewCategoryTable()
	defaults := []struct {
		name string
		subs []string
	}{
		{"Comida", []string{"Supermercado", "Restaurantes", "Delivery"}},
		{"Seguro salud", []string{"Primas", "Consultas", "Medicamentos"}},
		{"Movilidad", []string{"Transporte público", "Taxi/Uber"}},
		{"Combustible", []string{"Gasolina"}},
		{"Seguro coche", []string{"Póliza", "Reparaciones"}},
		{"TV", []string{"Netflix", "Cable"}},
		{"IA", []string{"ChatGPT", "Herramientas"}},
	}
	for _, d := range defaults {
		t.AddCategory(d.name)
		for _, s := range d.subs {
			_, _ = t.AddSubcategory(d.name, s)
		}
	}
	return t
}

// AddCategory adds name to the table. It reports whether the table changed.
func (t *CategoryTable) AddCategory(name string) bool {
	name = strings.TrimSpace(name)
	if name == "" {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.subs[name]; ok {
		return false
	}
	t.order = append(t.order, name)
	t.subs[name] = nil
	return true
}

// AddSubcategory appends sub under category. The category must exist.
// It reports whether the table changed.
func (t *CategoryTable) AddSubcategory(category, sub string) (bool, error) {
	category = strings.TrimSpace(category)
	sub = strings.TrimSpace(sub)
	t.mu.Lock()
	defer t.mu.Unlock()
	existing, ok := t.subs[category]
	if !ok {
		return false, ErrUnknownCategory
	}
	if sub == "" {
		return false, nil
	}
	for _, s := range existing {
		if s == sub {
			return false, nil
		}
	}
	t.subs[category] = append(existing, sub)
	return true, nil
}

// Names returns the categories in insertion order.
func (t *CategoryTable) Names() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]string(nil), t.order...)
}

// Subcategories returns the subcategories of category, or nil if unknown.
func (t *CategoryTable) Subcategories(category string) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]string(nil), t.subs[category]...)
}

// Has reports whether category exists.
func (t *CategoryTable) Has(category string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.subs[category]
	return ok
}

// CategoryEntry is one row of a category table snapshot.
type CategoryEntry struct {
	Name          string   `json:"name"`
	Subcategories []string `json:"subcategories"`
}

// Snapshot returns a copy of the whole table in order.
func (t *CategoryTable) Snapshot() []CategoryEntry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]CategoryEntry, 0, len(t.order))
	for _, name := range t.order {
		subs := append([]string{}, t.subs[name]...)
		out = append(out, CategoryEntry{Name: name, Subcategories: subs})
	}
	return out
}

// IncomeTable maps income source labels to monthly EUR amounts.
type IncomeTable struct {
	mu      sync.RWMutex
	entries []IncomeSource
}

// NewIncomeTable returns an empty table.
func NewIncomeTable() *IncomeTable {
	return &IncomeTable{}
}

// DefaultIncome returns the built-in income table.
func DefaultIncome() *IncomeTable {
	t := NewIncomeTable()
	_ = t.Set("sueldo", decimal.NewFromInt(1800))
	_ = t.Set("freelance", decimal.NewFromInt(250))
	return t
}

// Set creates or replaces the income for label.
func (t *IncomeTable) Set(label string, amount decimal.Decimal) error {
	src := IncomeSource{Label: strings.TrimSpace(label), Amount: amount}
	if err := src.Validate(); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.entries {
		if t.entries[i].Label == src.Label {
			t.entries[i].Amount = amount
			return nil
		}
	}
	t.entries = append(t.entries, src)
	return nil
}

// Remove deletes label and reports whether it existed.
func (t *IncomeTable) Remove(label string) bool {
	label = strings.TrimSpace(label)
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.entries {
		if t.entries[i].Label == label {
			t.entries = append(t.entries[:i], t.entries[i+1:]...)
			return true
		}
	}
	return false
}

// Total sums every income source.
func (t *IncomeTable) Total() decimal.Decimal {
	t.mu.RLock()
	defer t.mu.RUnlock()
	total := decimal.Zero
	for _, e := range t.entries {
		total = total.Add(e.Amount)
	}
	return total
}

// Entries returns a copy of the income sources in insertion order.
func (t *IncomeTable) Entries() []IncomeSource {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]IncomeSource(nil), t.entries...)
}
