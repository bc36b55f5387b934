package http

import (
	"bytes"
	"io"
	"net/http"

	"ahorrosmart/internal/export"
	applog "ahorrosmart/internal/log"
)

func (s *Server) handleExportExpensesJSON(w http.ResponseWriter, r *http.Request) {
	s.serveExport(w, r, export.ExpensesJSONFile, "application/json; charset=utf-8", func(buf io.Writer) error {
		return export.WriteExpensesJSON(buf, s.state.Ledger.Records())
	})
}

func (s *Server) handleExportDocumentJSON(w http.ResponseWriter, r *http.Request) {
	s.serveExport(w, r, export.FullJSONFile, "application/json; charset=utf-8", func(buf io.Writer) error {
		return export.WriteDocumentJSON(buf, s.state.Ledger.Records(), s.state.Income.Entries(), s.state.Rates.Snapshot())
	})
}

func (s *Server) handleExportExpensesCSV(w http.ResponseWriter, r *http.Request) {
	s.serveExport(w, r, export.ExpensesCSVFile, "text/csv; charset=utf-8", func(buf io.Writer) error {
		return export.WriteExpensesCSV(buf, s.state.Ledger.Records())
	})
}

// serveExport renders the whole file before any header is written.
func (s *Server) serveExport(w http.ResponseWriter, r *http.Request, filename, contentType string, write func(io.Writer) error) {
	if r.Method != http.MethodGet {
		MethodNotAllowedError("GET").Write(w)
		return
	}
	var buf bytes.Buffer
	if err := write(&buf); err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Export failed",
			applog.FieldError, err,
			"file", filename,
			applog.FieldOperation, applog.OpExport,
			applog.FieldComponent, applog.ComponentExport)
		InternalServerError("Error al generar la exportación").Write(w)
		return
	}
	s.metrics.exportsTotal.Add(1)

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
