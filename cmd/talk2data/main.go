package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/pterm/pterm"

	"github.com/talk2data/talk2data/internal/cli/talk2data"
	"github.com/talk2data/talk2data/internal/config"
	"github.com/talk2data/talk2data/internal/observability"
	"github.com/talk2data/talk2data/internal/workspace"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	open := func(ctx context.Context) (talk2data.Workspace, error) {
		cfg, err := config.LoadFromEnv("talk2data")
		if err != nil {
			return nil, err
		}
		if _, ok := os.LookupEnv("TALK2DATA_LOG_LEVEL"); !ok {
			cfg.Observability.LogLevel = slog.LevelWarn
		}
		// Logs go to stderr so stdout stays clean for --json.
		logger := observability.NewLogger(cfg, os.Stderr)
		runtime, err := workspace.FromConfig(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		return runtime.Workspace, nil
	}

	if err := talk2data.NewRootCommand(open).ExecuteContext(ctx); err != nil {
		if !errors.Is(err, talk2data.ErrAnswerFailed) {
			fmt.Fprint(os.Stderr, pterm.Error.Sprintln(err.Error()))
		}
		stop()
		os.Exit(1)
	}
}
