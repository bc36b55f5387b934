package log

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"
)

// ContextKey type for context keys
type ContextKey string

const (
	// LoggerContextKey is the context key for the logger
	LoggerContextKey ContextKey = "logger"
)

// Middleware creates HTTP middleware that adds a logger to the request context
func Middleware(logger *Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), LoggerContextKey, logger)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// FromContext extracts a logger from the request context
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(LoggerContextKey).(*Logger); ok {
		return logger
	}
	return &Logger{
		Logger:    slog.Default(),
		component: "unknown",
	}
}

// RequestIDMiddleware adds request ID to logger context
func RequestIDMiddleware(extractRequestID func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := extractRequestID(r)
			logger := FromContext(r.Context()).With(FieldRequestID, requestID)
			ctx := context.WithValue(r.Context(), LoggerContextKey, logger)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// StructuredLogger provides domain-specific logging helpers
type StructuredLogger struct {
	logger *Logger
}

// NewStructuredLogger creates a new structured logger
func NewStructuredLogger(logger *Logger) *StructuredLogger {
	return &StructuredLogger{
		logger: logger,
	}
}

// LogExpenseCreated logs a ledger append
func (sl *StructuredLogger) LogExpenseCreated(ctx context.Context, id string, amount decimal.Decimal, currency string, amountEUR decimal.Decimal, category, subcategory string) {
	fields := NewFields().
		WithExpense(id, amount, currency, amountEUR, category, subcategory).
		WithOperation(OpCreate).
		WithComponent(ComponentExpense)

	sl.logger.Logger.InfoContext(ctx, "Expense recorded", fields.ToSlice()...)
}

// LogRateRefresh logs the outcome of a rate refresh
func (sl *StructuredLogger) LogRateRefresh(ctx context.Context, status string, source string, err error) {
	fields := NewFields().
		WithOperation(OpRefresh).
		WithComponent(ComponentRates).
		WithError(err)
	fields[FieldRateStatus] = status
	fields[FieldRateSource] = source

	level := slog.LevelInfo
	if err != nil {
		level = slog.LevelWarn
	}
	sl.logger.Logger.Log(ctx, level, "Rate refresh finished", fields.ToSlice()...)
}

// LogError logs an error with structured context
func (sl *StructuredLogger) LogError(ctx context.Context, msg string, err error, component string, operation string, fields LogFields) {
	if fields == nil {
		fields = NewFields()
	}
	allFields := fields.
		WithError(err).
		WithOperation(operation).
		WithComponent(component)

	sl.logger.Logger.ErrorContext(ctx, msg, allFields.ToSlice()...)
}
