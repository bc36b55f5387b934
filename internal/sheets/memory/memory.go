package memory

import (
	"context"
	"fmt"
	"sync"

	"ahorrosmart/internal/core"
	"ahorrosmart/internal/sheets"
)

var _ sheets.ExpenseExporter = (*Store)(nil)

// Store keeps exported expenses in process.
type Store struct {
	mu    sync.Mutex
	items []core.Expense
	fail  error
}

func New() *Store {
	return &Store{}
}

// Append stores the expense and returns a synthetic row reference.
func (s *Store) Append(_ context.Context, e core.Expense) (string, error) {
	if err := e.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return "", s.fail
	}
	s.items = append(s.items, e)
	return fmt.Sprintf("mem:%d", len(s.items)), nil
}

// FailWith makes every following Append return err. A nil err clears it.
func (s *Store) FailWith(err error) {
	s.mu.Lock()
	s.fail = err
	s.mu.Unlock()
}

// Exported returns a copy of the stored expenses in append order.
func (s *Store) Exported() []core.Expense {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Expense(nil), s.items...)
}
