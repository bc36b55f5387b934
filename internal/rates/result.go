package rates

import (
	"errors"
	"time"
)

var (
	// ErrNetwork marks failures reaching the price source.
	ErrNetwork = errors.New("rate source unreachable")
	// ErrParse marks responses that could not be turned into a valid table.
	ErrParse = errors.New("rate source returned malformed data")
)

// Status classifies the outcome of a refresh.
type Status string

const (
	StatusNone         Status = "none"
	StatusOK           Status = "ok"
	StatusNetworkError Status = "network_error"
	StatusParseError   Status = "parse_error"
)

// Result is the typed outcome of Provider.Refresh. Table is the table held
// after the call, which is the previous one whenever Status is not StatusOK.
type Result struct {
	Status    Status
	Err       error
	Table     Table
	FetchedAt time.Time
}

// OK reports whether the refresh replaced the table.
func (r Result) OK() bool {
	return r.Status == StatusOK
}

// Message is the user-facing text for the result.
func (r Result) Message() string {
	switch r.Status {
	case StatusOK:
		return "Cotizaciones actualizadas"
	case StatusNetworkError:
		return "Error de conexión: se mantienen las cotizaciones anteriores"
	case StatusParseError:
		return "Respuesta de cotizaciones inválida: se mantienen las cotizaciones anteriores"
	default:
		return "Cotizaciones por defecto (sin actualizar)"
	}
}

func statusOf(err error) Status {
	switch {
	case err == nil:
		return StatusOK
	case errors.Is(err, ErrParse):
		return StatusParseError
	default:
		return StatusNetworkError
	}
}
