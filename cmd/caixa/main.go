package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"caixa/internal/amqp"
	"caixa/internal/cli"
	apphttp "caixa/internal/http"
	"caixa/internal/ledger"
	"caixa/internal/services"
)

func main() {
	logger := cli.SetupLogger()
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig(logger)

	st := cli.OpenStore(logger, cfg)
	defer func() {
		if err := st.Close(); err != nil {
			logger.Error("Store close error", "error", err)
		}
	}()

	var publisher services.AuditPublisher
	if cfg.MirrorEnabled() {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to connect to AMQP", "error", err, "exchange", cfg.AMQPExchange)
			os.Exit(1)
		}
		defer func() {
			if err := client.Close(); err != nil {
				logger.Error("AMQP close error", "error", err)
			}
		}()
		publisher = client
		logger.Info("Audit mirror enabled", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	}

	ledgerSvc := services.NewLedgerService(ledger.NewMutator(st), publisher)
	srv := apphttp.NewServer(":"+cfg.Port, st, ledgerSvc)

	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting caixa server", "port", cfg.Port, "backend", cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
