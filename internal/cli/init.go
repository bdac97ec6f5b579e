// Package cli provides common initialization shared by cmd/caixa and
// cmd/caixa-worker.
package cli

import (
	"os"

	"github.com/joho/godotenv"

	"caixa/internal/config"
	applog "caixa/internal/log"
	"caixa/internal/store"
	"caixa/internal/store/memory"
	"caixa/internal/store/sqlite"
)

// SetupLogger initializes structured logging with default settings and
// installs it as the default logger.
func SetupLogger() *applog.Logger {
	logger := applog.New(applog.DefaultConfig())
	applog.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development. Errors are
// ignored silently as the file is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it, exiting
// the process on validation failure.
func LoadAndValidateConfig(logger *applog.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

// OpenStore builds the document store selected by DATA_BACKEND, exiting
// the process on failure.
func OpenStore(logger *applog.Logger, cfg *config.Config) store.Store {
	switch cfg.DataBackend {
	case "memory":
		logger.Info("Initialized memory store", "backend", cfg.DataBackend)
		return memory.New()
	default:
		st, err := sqlite.New(cfg.SQLiteDBPath)
		if err != nil {
			logger.Error("Failed to open SQLite store", "error", err, "path", cfg.SQLiteDBPath)
			os.Exit(1)
		}
		logger.Info("Initialized SQLite store", "backend", cfg.DataBackend, "path", cfg.SQLiteDBPath)
		return st
	}
}
