package main

import (
	"context"
	"time"

	"ahorrosmart/internal/amqp"
	"ahorrosmart/internal/backend"
	"ahorrosmart/internal/cli"
	applog "ahorrosmart/internal/log"
	"ahorrosmart/internal/services"
	"ahorrosmart/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		cli.Fatal(cli.SetupLogger(nil, applog.ComponentWorker), "Configuration validation failed", err)
	}
	logger := cli.SetupLogger(cfg, applog.ComponentWorker)
	logger.Info("Starting ahorrosmart-worker")

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)

	exporter, err := backend.NewExporter(context.Background(), cfg, logger.WithComponent(applog.ComponentSheets).Logger)
	if err != nil {
		_ = repo.Close()
		cli.Fatal(logger, "Failed to initialize exporter", err)
	}

	processorCfg := services.DefaultSyncProcessorConfig()
	if cfg.SyncBatchSize > 0 {
		processorCfg.BatchSize = cfg.SyncBatchSize
	}
	if cfg.SyncInterval > 0 {
		processorCfg.PollInterval = cfg.SyncInterval
	}
	processor := services.NewSyncProcessor(repo, exporter, processorCfg)

	var (
		consumer   worker.Consumer
		amqpClient *amqp.Client
	)
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			_ = repo.Close()
			cli.Fatal(logger, "Failed to initialize AMQP client", err)
		}
		consumer = amqpClient
		logger.Info("Consuming sync messages", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("AMQP_URL not set, polling SQLite for pending expenses",
			"interval", processorCfg.PollInterval.String())
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Error("AMQP close error", "error", err)
			}
		}
	})

	// Without a broker the sweep is the only trigger, so it runs at poll speed.
	sweep := processorCfg.RetryInterval
	if consumer == nil {
		sweep = processorCfg.PollInterval
	}

	syncWorker := worker.NewSyncWorker(processor, consumer, processorCfg.BatchSize, sweep)
	if err := syncWorker.Run(ctx); err != nil {
		logger.Error("Sync worker stopped", "error", err)
	}

	cli.WaitForShutdown(ctx, done)
	if err := repo.Close(); err != nil {
		logger.Error("SQLite close error", "error", err)
	}
	logger.Info("Worker stopped")
}
