package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/shelfchat/shelfchat/internal/config"
	"github.com/shelfchat/shelfchat/internal/export"
	"github.com/shelfchat/shelfchat/internal/library/sqlstore"
	"github.com/shelfchat/shelfchat/internal/observability"
	s3store "github.com/shelfchat/shelfchat/internal/storage/s3"
)

func main() {
	cfg, err := config.LoadFromEnv("shelfchat-export")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := observability.NewLogger(cfg, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, dialect, err := sqlstore.Open(ctx, sqlstore.DBConfig{
		Driver:       cfg.Store.Driver,
		DSN:          cfg.Store.DSN,
		MaxOpenConns: cfg.Store.MaxOpenConns,
		MaxIdleConns: cfg.Store.MaxIdleConns,
	})
	if err != nil {
		logger.Error("failed to open store", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	objects, durable, err := s3store.Open(ctx, cfg.ObjectStore)
	if err != nil {
		logger.Error("failed to initialize object store", slog.Any("error", err))
		os.Exit(1)
	}
	if !durable {
		logger.Warn("object store endpoint not set; exported files are discarded on exit")
	}

	exporter, err := export.NewExporter(sqlstore.NewRepository(db, dialect), objects, export.Options{
		Prefix: cfg.Export.Prefix,
		Verify: cfg.Export.Verify,
		Logger: logger,
	})
	if err != nil {
		logger.Error("failed to initialize exporter", slog.Any("error", err))
		os.Exit(1)
	}

	report, err := exporter.Export(ctx)
	if err != nil {
		logger.Error("export failed", slog.Any("error", err))
		os.Exit(1)
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(report); err != nil {
		logger.Error("failed to write report", slog.Any("error", err))
		os.Exit(1)
	}
}
