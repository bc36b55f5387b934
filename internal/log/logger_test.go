package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestNewJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelInfo, Format: "json", Component: ComponentRates, Output: &buf})

	logger.Info("hello", "k", "v")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("output is not JSON: %v (%s)", err, buf.String())
	}
	if rec[FieldComponent] != ComponentRates {
		t.Errorf("component = %v, want %s", rec[FieldComponent], ComponentRates)
	}
	if rec["k"] != "v" {
		t.Errorf("k = %v, want v", rec["k"])
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelWarn, Output: &buf})

	logger.Info("dropped")
	logger.Warn("kept")

	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Errorf("info record should be filtered: %s", out)
	}
	if !strings.Contains(out, "kept") {
		t.Errorf("warn record missing: %s", out)
	}
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Output: &buf}).WithComponent(ComponentExport)

	logger.Info("x")

	if logger.Component() != ComponentExport {
		t.Errorf("Component() = %s, want %s", logger.Component(), ComponentExport)
	}
	if !strings.Contains(buf.String(), "component=export") {
		t.Errorf("missing component attr: %s", buf.String())
	}
}

func TestMiddlewareAndFromContext(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Output: &buf})

	var got *Logger
	h := Middleware(logger)(RequestIDMiddleware(func(*http.Request) string { return "req_1" })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = FromContext(r.Context())
			got.Info("inside")
		})))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if got == nil {
		t.Fatal("logger not found in context")
	}
	if !strings.Contains(buf.String(), "request_id=req_1") {
		t.Errorf("request id missing: %s", buf.String())
	}

	if FromContext(context.Background()).Component() != "unknown" {
		t.Error("FromContext without logger should return fallback")
	}
}

func TestStructuredLogger(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(New(Config{Output: &buf}))

	sl.LogExpenseCreated(context.Background(), "id-1", decimal.NewFromInt(100), "ARS", decimal.RequireFromString("0.0975"), "Comida", "Delivery")
	sl.LogRateRefresh(context.Background(), "network_error", "binance", errors.New("timeout"))

	out := buf.String()
	for _, want := range []string{"expense_id=id-1", "amount_eur=0.10", "category=Comida", "rate_status=network_error", "level=WARN"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q: %s", want, out)
		}
	}
}
