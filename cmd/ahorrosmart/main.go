package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"ahorrosmart/internal/backend"
	"ahorrosmart/internal/cli"
	apphttp "ahorrosmart/internal/http"
	applog "ahorrosmart/internal/log"
	"ahorrosmart/internal/rates"
	"ahorrosmart/internal/services"
	"ahorrosmart/internal/session"
)

func main() {
	cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		cli.Fatal(cli.SetupLogger(nil, applog.ComponentApp), "Configuration validation failed", err)
	}
	logger := cli.SetupLogger(cfg, applog.ComponentApp)

	source, err := backend.NewRateSource(cfg)
	if err != nil {
		cli.Fatal(logger, "Failed to configure rate source", err)
	}
	provider := rates.NewProvider(source, nil, nil)
	state := session.New(session.Options{Provider: provider, Goal: cfg.Goal()})

	ctx := context.Background()
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		cli.Fatal(logger, "Invalid backend configuration", err)
	}
	result, err := backend.NewFactory(logger.WithComponent(applog.ComponentBackend).Logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		cli.Fatal(logger, "Failed to create backend", err)
	}

	var (
		expenseStore services.ExpenseStore
		settings     services.SettingsStore
		rateStore    services.RateStore
		pinger       apphttp.Pinger
	)
	if result.Store != nil {
		if err := backend.RestoreState(ctx, result.Store, state); err != nil {
			cli.Fatal(logger, "Failed to restore state from SQLite", err)
		}
		expenseStore, settings, rateStore, pinger = result.Store, result.Store, result.Store, result.Store
	}

	expenses := services.NewExpenseService(state.Ledger, expenseStore, result.Publisher)
	refresher := services.NewRateRefresher(provider, rateStore, cfg.RatesRefreshInterval)

	srv := apphttp.NewServer(apphttp.Options{
		Addr:      ":" + cfg.Port,
		State:     state,
		Expenses:  expenses,
		Settings:  services.NewSettingsService(state.Income, state.Categories, settings),
		Refresher: refresher,
		Store:     pinger,
		Logger:    logger,
	})

	shutdownCtx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		if refresher.IsRunning() {
			if err := refresher.Stop(ctx); err != nil {
				logger.Error("Rate refresher shutdown error", "error", err)
			}
		}
		if result.Cleanup != nil {
			if err := result.Cleanup(); err != nil {
				logger.Error("Backend cleanup error", "error", err)
			}
		}
	})

	if cfg.RatesRefreshInterval > 0 {
		if err := refresher.Start(shutdownCtx); err != nil {
			logger.Error("Failed to start rate refresher", "error", err)
		}
	} else {
		logger.Info("Periodic rate refresh disabled, using initial rates until a manual refresh",
			applog.FieldRateSource, provider.SourceName())
	}

	logger.Info("Starting AhorroSmart server",
		"port", cfg.Port,
		"backend", backendCfg.Type,
		applog.FieldRateSource, provider.SourceName(),
		"savings_goal", cfg.Goal().String())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		cli.Fatal(logger, "Server error", err)
	}

	cli.WaitForShutdown(shutdownCtx, done)
	logger.Info("Server stopped gracefully")
}
