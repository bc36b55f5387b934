package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"ahorrosmart/internal/budget"
	"ahorrosmart/internal/core"
	applog "ahorrosmart/internal/log"
	"ahorrosmart/internal/middleware/ratelimit"
	"ahorrosmart/internal/middleware/security"
	"ahorrosmart/internal/middleware/trace"
	"ahorrosmart/internal/services"
	"ahorrosmart/internal/session"
	appweb "ahorrosmart/web"
)

// Pinger is implemented by stores that can report their health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options wires the server to the application state and its services.
type Options struct {
	Addr      string
	State     *session.State
	Expenses  *services.ExpenseService
	Settings  *services.SettingsService
	Refresher *services.RateRefresher
	// Store is checked by /readyz when set.
	Store     Pinger
	Logger    *applog.Logger
	RateLimit ratelimit.Config
}

// appMetrics tracks application-level counters exposed on /metrics.
type appMetrics struct {
	expensesTotal   atomic.Int64
	refreshTotal    atomic.Int64
	refreshFailures atomic.Int64
	exportsTotal    atomic.Int64
	started         time.Time
}

type Server struct {
	http.Server

	templates *template.Template
	state     *session.State
	expenses  *services.ExpenseService
	settings  *services.SettingsService
	refresher *services.RateRefresher
	store     Pinger

	logger   *applog.Logger
	events   *applog.StructuredLogger
	detector *security.Detector
	limiter  *ratelimit.Limiter
	tracer   *trace.Middleware
	metrics  *appMetrics

	shutdownOnce sync.Once
}

// NewServer configures routes, middleware and templates, returning a
// ready-to-run server.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	logger = logger.WithComponent(applog.ComponentHTTP)

	state := opts.State
	if state == nil {
		state = session.New(session.Options{Goal: budget.DefaultSavingsGoal})
	}
	expenses := opts.Expenses
	if expenses == nil {
		expenses = services.NewExpenseService(state.Ledger, nil, nil)
	}
	settings := opts.Settings
	if settings == nil {
		settings = services.NewSettingsService(state.Income, state.Categories, nil)
	}
	refresher := opts.Refresher
	if refresher == nil {
		refresher = services.NewRateRefresher(state.Rates, nil, 0)
	}

	detector := security.NewDetector()
	s := &Server{
		state:     state,
		expenses:  expenses,
		settings:  settings,
		refresher: refresher,
		store:     opts.Store,
		logger:    logger,
		events:    applog.NewStructuredLogger(logger),
		detector:  detector,
		limiter:   ratelimit.NewLimiter(opts.RateLimit),
		tracer:    trace.NewMiddleware(detector.ExtractClientIP),
		metrics:   &appMetrics{started: time.Now()},
	}

	t, err := template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		logger.Warn("Failed parsing templates",
			applog.FieldError, err,
			applog.FieldErrorType, applog.ErrorTypeConfiguration)
	} else {
		s.templates = t
	}

	mux := http.NewServeMux()

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("/static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		logger.Warn("Failed to mount embedded static FS", applog.FieldError, err)
	}

	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/ui/overview", s.handleOverview)

	mux.HandleFunc("/api/dashboard", s.handleAPIDashboard)
	mux.HandleFunc("/api/expenses", s.handleAPIExpenses)
	mux.HandleFunc("/api/categories", s.handleAPICategories)
	mux.HandleFunc("/api/rates", s.handleAPIRates)

	mux.HandleFunc("/expenses", s.handleCreateExpense)
	mux.HandleFunc("/income", s.handleSetIncome)
	mux.HandleFunc("/income/delete", s.handleDeleteIncome)
	mux.HandleFunc("/categories", s.handleAddCategory)
	mux.HandleFunc("/rates/refresh", s.handleRefreshRates)
	mux.HandleFunc("/convert", s.handleConvert)

	noStore := security.NoStoreMiddleware
	mux.Handle("/export/gastos.json", noStore(http.HandlerFunc(s.handleExportExpensesJSON)))
	mux.Handle("/export/ahorrosmart.json", noStore(http.HandlerFunc(s.handleExportDocumentJSON)))
	mux.Handle("/export/gastos.csv", noStore(http.HandlerFunc(s.handleExportExpensesCSV)))

	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.HandleFunc("/metrics", s.handleMetrics)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           s.chain(mux),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// chain wraps the mux with tracing, logging, security headers, suspicious
// request detection and POST rate limiting, outermost first.
func (s *Server) chain(h http.Handler) http.Handler {
	h = s.limiter.Middleware(s.detector.ExtractClientIP, s.onRateLimited, http.MethodPost, http.MethodDelete)(h)
	h = s.detector.Middleware(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = applog.RequestIDMiddleware(trace.RequestIDFromRequest)(h)
	h = applog.Middleware(s.logger)(h)
	h = s.tracer.Middleware(h)
	return h
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	applog.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		applog.FieldClientIP, s.detector.ExtractClientIP(r),
		applog.FieldMethod, r.Method,
		applog.FieldPath, r.URL.Path,
		applog.FieldComponent, applog.ComponentRateLimit)
	ErrorResponse(http.StatusTooManyRequests, "Demasiadas solicitudes, probá de nuevo en un minuto").
		Header("Retry-After", "60").
		Write(w)
}

// Shutdown stops background helpers and the HTTP server. It is safe to
// call more than once.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

var templateFuncs = template.FuncMap{
	"euros": core.FormatEuros,
	"amount": func(d decimal.Decimal, c core.Currency) string {
		places := int32(2)
		if c == core.USDT {
			places = 4
		}
		return core.FormatAmount(d, places, "") + " " + c.String()
	},
	"rate": func(d decimal.Decimal) string {
		if d.GreaterThanOrEqual(decimal.NewFromInt(1)) {
			return core.FormatAmount(d, 2, "")
		}
		return core.FormatAmount(d, 6, "")
	},
	"percent": func(d decimal.Decimal) string {
		return strings.Replace(d.StringFixed(1), ".", ",", 1) + "%"
	},
	"width": func(d decimal.Decimal) string {
		return d.StringFixed(1)
	},
}
