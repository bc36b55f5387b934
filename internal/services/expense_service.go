package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"ahorrosmart/internal/core"
	"ahorrosmart/internal/ledger"
)

type (
	// ExpenseStore persists ledger records.
	ExpenseStore interface {
		SaveExpense(ctx context.Context, e core.Expense) error
	}

	// SyncPublisher announces persisted records to the export worker.
	SyncPublisher interface {
		PublishExpenseRecorded(ctx context.Context, id string) error
	}
)

// ExpenseService orchestrates recording an expense across the in-memory
// ledger, the optional store and the optional sync publisher.
type ExpenseService struct {
	ledger    *ledger.Ledger
	storage   ExpenseStore
	publisher SyncPublisher
}

// NewExpenseService wires a service. storage and publisher may be nil.
func NewExpenseService(l *ledger.Ledger, storage ExpenseStore, publisher SyncPublisher) *ExpenseService {
	return &ExpenseService{
		ledger:    l,
		storage:   storage,
		publisher: publisher,
	}
}

// Record appends the expense to the ledger, then persists and publishes it.
// Only ledger errors are returned: once appended, the record stands.
func (s *ExpenseService) Record(ctx context.Context, in ledger.NewExpense) (core.Expense, error) {
	if s.ledger == nil {
		return core.Expense{}, errors.New("expense service has no ledger")
	}
	e, err := s.ledger.AddExpense(in)
	if err != nil {
		return core.Expense{}, err
	}

	if s.storage == nil {
		return e, nil
	}
	if err := s.storage.SaveExpense(ctx, e); err != nil {
		slog.ErrorContext(ctx, "Failed to persist expense", "id", e.ID, "error", err)
		return e, nil
	}

	if err := s.publishSyncMessage(ctx, e.ID); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync message", "id", e.ID, "error", err)
	}

	return e, nil
}

func (s *ExpenseService) publishSyncMessage(ctx context.Context, id string) error {
	if s.publisher == nil {
		slog.DebugContext(ctx, "AMQP publisher not available, skipping sync message", "id", id)
		return nil
	}
	return s.publisher.PublishExpenseRecorded(ctx, id)
}

// Close closes the storage and publisher when they hold resources.
func (s *ExpenseService) Close() error {
	var errs []error

	if c, ok := s.storage.(io.Closer); ok && c != nil {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if c, ok := s.publisher.(io.Closer); ok && c != nil {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close expense service: %w", errors.Join(errs...))
	}

	return nil
}
