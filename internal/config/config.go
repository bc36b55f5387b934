package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Config struct {
	// HTTP Server
	Port string

	// Backend selection
	DataBackend string

	// Database
	SQLiteDBPath string

	// AMQP (optional; empty URL disables messaging)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets export
	GoogleSpreadsheetID       string
	GoogleSheetName           string
	GoogleServiceAccountJSON  string
	GoogleServiceAccountFile  string
	GoogleApplicationCredFile string

	// Rates
	RatesSource            string
	RatesBaseURL           string
	RatesTimeout           time.Duration
	RatesCacheTTL          time.Duration
	RatesRefreshInterval   time.Duration
	RatesRequestsPerSecond float64

	// Budget
	SavingsGoal string

	// Worker
	SyncBatchSize int
	SyncInterval  time.Duration

	// Logging
	LogLevel  string
	LogFormat string
}

func Load() *Config {
	cfg := &Config{
		Port:        getEnv("PORT", "8081"),
		DataBackend: getEnv("DATA_BACKEND", "memory"),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/ahorrosmart.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "ahorrosmart"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "sync_expenses"),

		GoogleSpreadsheetID:       getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:           getEnv("GOOGLE_SHEET_NAME", "Gastos"),
		GoogleServiceAccountJSON:  getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile:  getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),
		GoogleApplicationCredFile: getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),

		RatesSource:            getEnv("RATES_SOURCE", "binance"),
		RatesBaseURL:           getEnv("RATES_BASE_URL", "https://api.binance.com"),
		RatesTimeout:           getEnvDuration("RATES_TIMEOUT", 10*time.Second),
		RatesCacheTTL:          getEnvDuration("RATES_CACHE_TTL", 30*time.Second),
		RatesRefreshInterval:   getEnvDuration("RATES_REFRESH_INTERVAL", 0),
		RatesRequestsPerSecond: getEnvFloat("RATES_REQUESTS_PER_SECOND", 5),

		SavingsGoal: getEnv("SAVINGS_GOAL", "150"),

		SyncBatchSize: getEnvInt("SYNC_BATCH_SIZE", 10),
		SyncInterval:  getEnvDuration("SYNC_INTERVAL", 30*time.Second),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	// Validate data backend
	validBackends := []string{"memory", "sqlite"}
	if !contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	// Validate SQLite configuration if backend is sqlite
	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			// Check if directory exists or can be created
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
		if c.DataBackend != "sqlite" {
			errors = append(errors, "AMQP sync requires the sqlite backend")
		}
	}

	// Validate rates configuration
	validSources := []string{"binance", "static"}
	if !contains(validSources, c.RatesSource) {
		errors = append(errors, fmt.Sprintf("invalid rates source '%s': must be one of %v", c.RatesSource, validSources))
	}
	if c.RatesSource == "binance" {
		if parsedURL, err := url.Parse(c.RatesBaseURL); err != nil || parsedURL.Host == "" {
			errors = append(errors, fmt.Sprintf("invalid rates base URL '%s'", c.RatesBaseURL))
		} else if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
			errors = append(errors, fmt.Sprintf("invalid rates base URL scheme '%s': must be 'http' or 'https'", parsedURL.Scheme))
		}
	}
	if c.RatesTimeout <= 0 || c.RatesTimeout > 2*time.Minute {
		errors = append(errors, fmt.Sprintf("invalid rates timeout %v: must be between 0 and 2 minutes", c.RatesTimeout))
	}
	if c.RatesCacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid rates cache TTL %v: cannot be negative", c.RatesCacheTTL))
	}
	if c.RatesRefreshInterval != 0 && c.RatesRefreshInterval < 10*time.Second {
		errors = append(errors, fmt.Sprintf("invalid rates refresh interval %v: must be 0 or at least 10 seconds", c.RatesRefreshInterval))
	}
	if c.RatesRequestsPerSecond < 0 {
		errors = append(errors, fmt.Sprintf("invalid rates requests per second %v: cannot be negative", c.RatesRequestsPerSecond))
	}

	// Validate savings goal
	if goal, err := decimal.NewFromString(strings.TrimSpace(c.SavingsGoal)); err != nil {
		errors = append(errors, fmt.Sprintf("invalid savings goal '%s': must be a number", c.SavingsGoal))
	} else if goal.IsNegative() {
		errors = append(errors, fmt.Sprintf("invalid savings goal %s: cannot be negative", goal))
	}

	// Validate worker configuration
	if c.SyncBatchSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid sync batch size %d: must be at least 1", c.SyncBatchSize))
	} else if c.SyncBatchSize > 1000 {
		errors = append(errors, fmt.Sprintf("invalid sync batch size %d: must be at most 1000", c.SyncBatchSize))
	}

	if c.SyncInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at least 1 second", c.SyncInterval))
	} else if c.SyncInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at most 24 hours", c.SyncInterval))
	}

	// Validate logging
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		errors = append(errors, err.Error())
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.LogFormat))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// Goal returns the parsed savings goal. Call after Validate.
func (c *Config) Goal() decimal.Decimal {
	goal, err := decimal.NewFromString(strings.TrimSpace(c.SavingsGoal))
	if err != nil {
		return decimal.NewFromInt(150)
	}
	return goal
}

// HasSheets reports whether Google Sheets export is configured.
func (c *Config) HasSheets() bool {
	return c.GoogleSpreadsheetID != ""
}

// ParseLogLevel maps LOG_LEVEL values to slog levels.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log level '%s': must be one of debug, info, warn, error", s)
	}
}

func contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
