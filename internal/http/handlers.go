package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	applog "ahorrosmart/internal/log"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.metrics.started).String(),
	})
}

// handleReady performs readiness check with dependency verification
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	if s.store != nil {
		if err := s.store.Ping(ctx); err != nil {
			checks["storage"] = fmt.Sprintf("failed: %v", err)
			status = "not_ready"
			httpStatus = http.StatusServiceUnavailable
		} else {
			checks["storage"] = "ok"
		}
	} else {
		checks["storage"] = "memory"
	}

	last := s.state.Rates.LastResult()
	checks["rates"] = map[string]any{
		"source": s.state.Rates.SourceName(),
		"status": last.Status,
	}
	checks["rate_refresher"] = map[string]any{
		"running": s.refresher.IsRunning(),
	}
	checks["rate_limiter"] = map[string]any{
		"active_clients": s.limiter.ActiveClients(),
		"status":         "ok",
	}

	writeJSON(w, httpStatus, map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics provides application and security metrics in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	securityMetrics := s.detector.GetMetrics()
	rateLimitMetrics := s.limiter.GetMetrics()
	traceMetrics := s.tracer.GetMetrics()

	w.WriteHeader(http.StatusOK)

	writeMetric(w, "http_requests_total", "counter", "Total number of HTTP requests", traceMetrics.TotalRequests)
	writeMetric(w, "http_server_errors_total", "counter", "Total number of 5xx responses", traceMetrics.ServerErrors)
	writeMetric(w, "expenses_recorded_total", "counter", "Expenses recorded since start", s.metrics.expensesTotal.Load())
	writeMetric(w, "ledger_records", "gauge", "Records currently held in the ledger", int64(s.state.Ledger.Len()))
	writeMetric(w, "rate_refresh_total", "counter", "Rate refreshes triggered over HTTP", s.metrics.refreshTotal.Load())
	writeMetric(w, "rate_refresh_failures_total", "counter", "Rate refreshes that kept the previous table", s.metrics.refreshFailures.Load())
	writeMetric(w, "exports_total", "counter", "Export downloads served", s.metrics.exportsTotal.Load())
	writeMetric(w, "rate_limit_hits_total", "counter", "Total rate limit hits", rateLimitMetrics.TotalHits)
	writeMetric(w, "active_rate_limit_clients", "gauge", "Currently tracked rate limit clients", rateLimitMetrics.ClientCount)
	writeMetric(w, "suspicious_requests_total", "counter", "Total suspicious requests detected", securityMetrics.SuspiciousRequests)

	fmt.Fprintf(w, "# HELP uptime_seconds Application uptime in seconds\n")
	fmt.Fprintf(w, "# TYPE uptime_seconds gauge\n")
	fmt.Fprintf(w, "uptime_seconds %.0f\n", time.Since(s.metrics.started).Seconds())
}

func writeMetric(w http.ResponseWriter, name, kind, help string, value int64) {
	fmt.Fprintf(w, "# HELP %s %s\n", name, help)
	fmt.Fprintf(w, "# TYPE %s %s\n", name, kind)
	fmt.Fprintf(w, "%s %d\n\n", name, value)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		MethodNotAllowedError("GET, HEAD").Write(w)
		return
	}
	s.render(w, r, "index.html", s.state.Dashboard())
}

// render executes a named template, logging failures with the template name.
func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	if s.templates == nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Templates not loaded",
			applog.FieldPath, r.URL.Path,
			applog.FieldComponent, applog.ComponentTemplate,
			applog.FieldErrorType, applog.ErrorTypeConfiguration)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Template execution failed",
			applog.FieldError, err,
			applog.FieldComponent, applog.ComponentTemplate,
			applog.FieldOperation, applog.OpRender,
			"template", name)
	}
}
