package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"caixa/internal/amqp"
	"caixa/internal/cli"
	"caixa/internal/sheets"
	gsheet "caixa/internal/sheets/google"
	mem "caixa/internal/sheets/memory"
	"caixa/internal/worker"
)

func main() {
	logger := cli.SetupLogger()
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig(logger)

	if !cfg.MirrorEnabled() {
		logger.Error("AMQP_URL is required for the audit worker")
		os.Exit(1)
	}

	st := cli.OpenStore(logger, cfg)
	defer func() {
		if err := st.Close(); err != nil {
			logger.Error("Store close error", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var appender sheets.AuditAppender
	if cfg.GoogleSpreadsheetID != "" {
		client, err := gsheet.NewFromEnv(ctx)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", "error", err)
			os.Exit(1)
		}
		appender = client
		logger.Info("Mirroring audit trail to Google Sheets", "sheet", cfg.GoogleSheetName)
	} else {
		appender = mem.New()
		logger.Warn("GOOGLE_SPREADSHEET_ID not set, mirroring to in-memory sink")
	}

	auditWorker := worker.NewAuditWorker(st, appender)

	if cfg.AuditBackfill {
		if err := auditWorker.BackfillHistory(ctx); err != nil {
			logger.Error("History backfill failed", "error", err)
			os.Exit(1)
		}
		logger.Info("History backfill complete")
	}

	// Reconnect with a fixed interval until shutdown. Messages stay
	// queued on the broker while the worker is away.
	for {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("AMQP connection failed", "error", err, "retry_in", cfg.RetryInterval)
			if !sleepCtx(ctx, cfg.RetryInterval) {
				return
			}
			continue
		}

		logger.Info("Consuming audit messages", "queue", cfg.AMQPQueue)
		err = client.ConsumeAudit(ctx, func(msg *amqp.AuditMessage) error {
			return auditWorker.HandleAuditMessage(ctx, msg)
		})
		_ = client.Close()

		if ctx.Err() != nil || errors.Is(err, context.Canceled) {
			logger.Info("Worker stopped gracefully")
			return
		}
		if err != nil {
			logger.Error("Consumer stopped", "error", err, "retry_in", cfg.RetryInterval)
		}
		if !sleepCtx(ctx, cfg.RetryInterval) {
			return
		}
	}
}

// sleepCtx waits for d, returning false when the context ends first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
