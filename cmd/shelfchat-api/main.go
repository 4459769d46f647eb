package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shelfchat/shelfchat/internal/api"
	"github.com/shelfchat/shelfchat/internal/api/uistatic"
	"github.com/shelfchat/shelfchat/internal/archive"
	"github.com/shelfchat/shelfchat/internal/auth"
	badgercache "github.com/shelfchat/shelfchat/internal/cache/badger"
	"github.com/shelfchat/shelfchat/internal/config"
	"github.com/shelfchat/shelfchat/internal/library/sqlstore"
	"github.com/shelfchat/shelfchat/internal/llm"
	"github.com/shelfchat/shelfchat/internal/migrations"
	"github.com/shelfchat/shelfchat/internal/nl2gql"
	"github.com/shelfchat/shelfchat/internal/observability"
	"github.com/shelfchat/shelfchat/internal/pipeline"
	"github.com/shelfchat/shelfchat/internal/query/gql"
	s3store "github.com/shelfchat/shelfchat/internal/storage/s3"
)

func main() {
	cfg, err := config.LoadFromEnv("shelfchat-api")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)
	ctx := context.Background()

	db, dialect, err := sqlstore.Open(ctx, sqlstore.DBConfig{
		Driver:          cfg.Store.Driver,
		DSN:             cfg.Store.DSN,
		MaxOpenConns:    cfg.Store.MaxOpenConns,
		MaxIdleConns:    cfg.Store.MaxIdleConns,
		ConnMaxIdleTime: cfg.Store.ConnMaxIdleTime,
		ConnMaxLifetime: cfg.Store.ConnMaxLifetime,
	})
	if err != nil {
		logger.Error("failed to open store", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	if cfg.Store.AutoMigrate {
		applied, err := migrations.NewRunner(dialect.Placeholder).Up(ctx, db, 0)
		if err != nil {
			logger.Error("failed to migrate store", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("store migrated", slog.String("driver", dialect.Name), slog.Int("applied", applied))
	}

	repo := sqlstore.NewRepository(db, dialect)
	engine, err := gql.NewEngine(repo, gql.Options{Logger: logger})
	if err != nil {
		logger.Error("failed to build graphql schema", slog.Any("error", err))
		os.Exit(1)
	}

	deps := api.Dependencies{
		Logger:            logger,
		QueryEngine:       engine,
		DependencyTimeout: time.Second,
		Readiness: api.CombineReadinessChecks(
			api.CheckStore(db),
			api.CheckAIConfig(cfg.AI),
		),
	}
	if cfg.UI.Enabled {
		deps.UI = uistatic.Handler(cfg.UI.Title)
	}

	if cfg.AI.Configured() {
		generator, err := llm.New(ctx, cfg.AI, logger)
		if err != nil {
			logger.Error("failed to initialize model client", slog.Any("error", err))
			os.Exit(1)
		}

		translatorOpts := nl2gql.TranslatorOptions{Logger: logger, CacheNamespace: cfg.AI.Provider + "/" + cfg.AI.Model}
		if cfg.Cache.Enabled {
			cache, err := badgercache.Open(cfg.Cache, logger)
			if err != nil {
				logger.Error("failed to open translation cache", slog.Any("error", err))
				os.Exit(1)
			}
			defer func() { _ = cache.Close() }()
			translatorOpts.Cache = cache
		}
		translator := nl2gql.NewTranslator(generator, translatorOpts)
		describer := nl2gql.NewDescriber(generator, logger)
		deps.Translator = translator
		deps.Describer = describer

		pipelineOpts := pipeline.Options{
			Logger:         logger,
			AllowMutations: cfg.Pipeline.AllowMutations,
			Timeout:        cfg.Pipeline.Timeout,
		}
		if cfg.Archive.Enabled {
			objects, durable, err := s3store.Open(ctx, cfg.ObjectStore)
			if err != nil {
				logger.Error("failed to initialize object store", slog.Any("error", err))
				os.Exit(1)
			}
			if !durable {
				logger.Warn("object store endpoint not set; transcripts are kept in memory")
			}
			transcripts, err := archive.New(objects, cfg.Archive.Prefix, logger)
			if err != nil {
				logger.Error("failed to initialize transcript archive", slog.Any("error", err))
				os.Exit(1)
			}
			pipelineOpts.Archiver = transcripts
			deps.Transcripts = transcripts
		}

		service, err := pipeline.NewService(translator, engine, describer, pipelineOpts)
		if err != nil {
			logger.Error("failed to initialize pipeline", slog.Any("error", err))
			os.Exit(1)
		}
		deps.Pipeline = service
	} else {
		logger.Warn("ai provider not configured; nlp, translate and ask are disabled", slog.String("provider", cfg.AI.Provider))
	}

	if cfg.Auth.Required {
		validator, err := auth.NewStaticAPIKeyValidator(cfg.Auth.StaticKeys)
		if err != nil {
			logger.Error("failed to parse static auth keys", slog.Any("error", err))
			os.Exit(1)
		}
		deps.AuthMiddleware = auth.Middleware(logger, validator)
	}

	handler := api.NewHandler(cfg, deps)
	server := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("starting api server", slog.String("addr", cfg.HTTP.Address), slog.String("provider", cfg.AI.Provider))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-runCtx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	logger.Info("shutting down api server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
		_ = server.Close()
		os.Exit(1)
	}
}
