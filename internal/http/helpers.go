package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"ahorrosmart/internal/core"
	"ahorrosmart/internal/rates"
)

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	result := strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
	return result
}

// writeJSON encodes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

// writeJSONError writes {"error": msg}.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// wantsJSON reports whether the caller asked for a JSON answer rather than
// an HTMX fragment.
func wantsJSON(r *http.Request) bool {
	if r.Header.Get("HX-Request") != "" {
		return false
	}
	return strings.Contains(r.Header.Get("Accept"), "application/json") ||
		strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")
}

// validationMessage maps domain errors to the Spanish text shown in the UI.
func validationMessage(err error) string {
	switch {
	case errors.Is(err, core.ErrInvalidAmount):
		return "Monto inválido: debe ser un número positivo"
	case errors.Is(err, core.ErrUnsupportedCurrency):
		return "Moneda no soportada"
	case errors.Is(err, core.ErrEmptyCategory):
		return "La categoría es obligatoria"
	case errors.Is(err, core.ErrUnknownCategory):
		return "Categoría desconocida"
	case errors.Is(err, core.ErrDescriptionTooLong):
		return "Descripción demasiado larga (máx. 200 caracteres)"
	case errors.Is(err, core.ErrEmptyLabel):
		return "El nombre del ingreso es obligatorio"
	case errors.Is(err, core.ErrNegativeIncome):
		return "El ingreso no puede ser negativo"
	case errors.Is(err, rates.ErrNetwork):
		return "Sin conexión con el proveedor de cotizaciones"
	case errors.Is(err, rates.ErrParse):
		return "Respuesta de cotizaciones inválida"
	default:
		return "Datos inválidos"
	}
}

// isValidationError reports whether err comes from input validation.
func isValidationError(err error) bool {
	for _, target := range []error{
		core.ErrInvalidAmount,
		core.ErrUnsupportedCurrency,
		core.ErrEmptyCategory,
		core.ErrUnknownCategory,
		core.ErrDescriptionTooLong,
		core.ErrEmptyLabel,
		core.ErrNegativeIncome,
		core.ErrInvalidDay,
		core.ErrInvalidMonth,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
