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

	"github.com/talk2data/talk2data/internal/api"
	"github.com/talk2data/talk2data/internal/api/uistatic"
	"github.com/talk2data/talk2data/internal/auth"
	"github.com/talk2data/talk2data/internal/config"
	"github.com/talk2data/talk2data/internal/observability"
	"github.com/talk2data/talk2data/internal/workspace"
)

func main() {
	cfg, err := config.LoadFromEnv("talk2data-api")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)
	runtime, err := workspace.FromConfig(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("failed to initialize workspace", slog.Any("error", err))
		os.Exit(1)
	}
	if cfg.AI.APIKey == "" {
		logger.Warn("no completion api key configured; every question will fail until TALK2DATA_AI_API_KEY or GROQ_API_KEY is set")
	}

	deps := api.Dependencies{
		Logger:    logger,
		Workspace: runtime.Workspace,
		Archives:  runtime.Archives,
		UI:        uistatic.Handler(),
		Readiness: api.CombineReadinessChecks(
			api.CheckDataDir(cfg),
			api.CheckCompletionConfig(cfg),
			api.CheckObjectStoreConfig(cfg),
		),
		DependencyTimeout: time.Second,
		AskTimeout:        cfg.AI.Timeout + cfg.Database.Timeout,
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("starting api server",
			slog.String("addr", cfg.HTTP.Address),
			slog.String("data_dir", cfg.Database.DataDir),
			slog.String("model", runtime.Completer.Model()),
			slog.Bool("allow_writes", cfg.Database.AllowWrites),
			slog.Bool("archive", cfg.Archive.Enabled),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down api server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
		_ = server.Close()
		os.Exit(1)
	}
}
