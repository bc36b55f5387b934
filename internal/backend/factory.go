package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"ahorrosmart/internal/amqp"
	"ahorrosmart/internal/config"
	"ahorrosmart/internal/rates"
	"ahorrosmart/internal/sheets"
	gsheet "ahorrosmart/internal/sheets/google"
	"ahorrosmart/internal/sheets/memory"
	"ahorrosmart/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(ctx, config)
	case MemoryBackend:
		f.logger.InfoContext(ctx, "Initialized memory backend")
		return &BackendResult{Type: MemoryBackend}, nil
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLiteBackend(ctx context.Context, config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	result := &BackendResult{Type: SQLiteBackend, Store: repo, Cleanup: repo.Close}

	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without sync", "error", err)
		} else {
			f.logger.InfoContext(ctx, "Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
			result.Publisher = client
			result.Cleanup = func() error {
				return errors.Join(client.Close(), repo.Close())
			}
		}
	}

	f.logger.InfoContext(ctx, "Initialized SQLite backend",
		"db_path", config.SQLiteDBPath,
		"amqp_enabled", result.Publisher != nil)

	return result, nil
}

// NewRateSource builds the rate source named by the configuration.
func NewRateSource(cfg *config.Config) (rates.Source, error) {
	switch cfg.RatesSource {
	case "static":
		return rates.NewStaticSource(nil), nil
	case "binance":
		return rates.NewBinanceSource(rates.BinanceConfig{
			BaseURL:           cfg.RatesBaseURL,
			Timeout:           cfg.RatesTimeout,
			CacheTTL:          cfg.RatesCacheTTL,
			RequestsPerSecond: cfg.RatesRequestsPerSecond,
		}), nil
	default:
		return nil, fmt.Errorf("unsupported rates source: %s", cfg.RatesSource)
	}
}

// NewExporter returns the Google Sheets exporter when a spreadsheet is
// configured, or an in-memory one otherwise.
func NewExporter(ctx context.Context, cfg *config.Config, logger *slog.Logger) (sheets.ExpenseExporter, error) {
	if !cfg.HasSheets() {
		logger.WarnContext(ctx, "GOOGLE_SPREADSHEET_ID not set, exporting to memory only")
		return memory.New(), nil
	}
	client, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:          cfg.GoogleSpreadsheetID,
		SheetName:              cfg.GoogleSheetName,
		CredentialsJSON:        cfg.GoogleServiceAccountJSON,
		CredentialsFile:        cfg.GoogleServiceAccountFile,
		ApplicationCredentials: cfg.GoogleApplicationCredFile,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}
	return client, nil
}
