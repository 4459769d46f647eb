package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/shelfchat/shelfchat/internal/demo/seed"
)

func main() {
	cfg, err := seed.LoadConfigFromEnv(os.LookupEnv)
	if err != nil {
		slog.Error("failed to load seed config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	service, err := seed.NewService(cfg, logger, nil)
	if err != nil {
		logger.Error("failed to initialize seeder", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info(
		"seeding demo library",
		slog.String("api_url", cfg.APIBaseURL),
		slog.Int("authors", cfg.Authors),
		slog.Int("min_books", cfg.MinBooks),
		slog.Int("max_books", cfg.MaxBooks),
		slog.Bool("include_classic", cfg.IncludeClassic),
		slog.Int64("seed", cfg.Seed),
	)

	report, err := service.Run(ctx)
	if err != nil {
		logger.Error("seeding stopped with error", slog.Any("error", err), slog.Int("authors_created", report.AuthorsCreated))
		os.Exit(1)
	}
	logger.Info(
		"demo library seeded",
		slog.Int("authors_created", report.AuthorsCreated),
		slog.Int("authors_skipped", report.AuthorsSkipped),
		slog.Int("books_created", report.BooksCreated),
	)
}
