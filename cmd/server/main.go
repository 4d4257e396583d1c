// Package main is the entry point for the notification hub.
//
// main only reads configuration, builds the logger, opens the store and hands
// everything to internal/server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/sakif/notification-hub/internal/config"
	"github.com/sakif/notification-hub/internal/repository/sqldb"
	"github.com/sakif/notification-hub/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := newLogger(cfg)

	store, err := openStore(cfg, logger)
	if err != nil {
		logger.Error("failed to open store",
			slog.String("driver", cfg.DBDriver),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	// Start blocks until SIGINT/SIGTERM and closes the store on the way out
	if err := server.New(cfg, store, logger).Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func newLogger(cfg config.Config) *slog.Logger {
	// already validated by config.Load
	level, _ := cfg.SlogLevel()
	opts := &slog.HandlerOptions{Level: level}

	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func openStore(cfg config.Config, logger *slog.Logger) (*sqldb.DB, error) {
	switch cfg.DBDriver {
	case config.DriverPostgres:
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		return sqldb.OpenPostgres(ctx, cfg.DatabaseURL, sqldb.PostgresOptions{
			MaxOpenConns:    cfg.DBMaxOpenConns,
			MaxIdleConns:    cfg.DBMaxIdleConns,
			ConnMaxLifetime: cfg.DBConnMaxLifetime,
		}, logger)

	default:
		if cfg.DBPath != ":memory:" {
			dir := filepath.Dir(cfg.DBPath)
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("creating database directory %s: %w", dir, err)
			}
		}
		logger.Info("using sqlite store", slog.String("path", cfg.DBPath))
		return sqldb.OpenSQLite(cfg.DBPath)
	}
}
