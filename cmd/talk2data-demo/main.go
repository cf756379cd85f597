package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/talk2data/talk2data/internal/demo/asker"
)

func main() {
	cfg, err := asker.LoadConfigFromEnv(os.LookupEnv)
	if err != nil {
		slog.Error("failed to load demo asker config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	service, err := asker.NewService(cfg, logger, nil)
	if err != nil {
		logger.Error("failed to initialize demo asker", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info(
		"demo asker started",
		slog.String("api_url", cfg.APIBaseURL),
		slog.String("database", cfg.Database),
		slog.Duration("interval", cfg.Interval),
		slog.Float64("write_ratio", cfg.WriteRatio),
		slog.Int("max_asks", cfg.MaxAsks),
	)

	err = service.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("demo asker stopped with error", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("demo asker stopped", slog.Any("outcomes", service.Tally()))
}
