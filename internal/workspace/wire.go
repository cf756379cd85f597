package workspace

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/talk2data/talk2data/internal/archive"
	"github.com/talk2data/talk2data/internal/catalog"
	"github.com/talk2data/talk2data/internal/config"
	"github.com/talk2data/talk2data/internal/nl2sql"
	"github.com/talk2data/talk2data/internal/pipeline"
	"github.com/talk2data/talk2data/internal/storage"
	s3store "github.com/talk2data/talk2data/internal/storage/s3"
)

// Runtime is everything a binary needs to answer questions from config.
// Archives is nil unless result archiving is enabled.
type Runtime struct {
	Workspace *Workspace
	Completer *nl2sql.Client
	Archives  storage.ObjectStore
}

func FromConfig(ctx context.Context, cfg config.Config, logger *slog.Logger) (Runtime, error) {
	completer, err := nl2sql.NewClient(nl2sql.Config{
		BaseURL:     cfg.AI.BaseURL,
		APIKey:      cfg.AI.APIKey,
		Model:       cfg.AI.Model,
		Temperature: cfg.AI.Temperature,
		Timeout:     cfg.AI.Timeout,
		Logger:      logger,
	})
	if err != nil {
		return Runtime{}, fmt.Errorf("initialize completion client: %w", err)
	}

	opts := pipeline.Options{
		RowLimit:    cfg.Database.RowLimit,
		AllowWrites: cfg.Database.AllowWrites,
		Logger:      logger,
	}

	var objectStore storage.ObjectStore
	if cfg.Archive.Enabled {
		store, err := s3store.New(ctx, s3store.ConfigFromSettings(cfg.ObjectStore))
		if err != nil {
			return Runtime{}, fmt.Errorf("initialize object store: %w", err)
		}
		objectStore = store
		opts.Archiver = archive.New(store, cfg.Archive.Prefix)
	}

	directory := catalog.NewDirectory(cfg.Database.DataDir, cfg.Database.Default, cfg.Database.Timeout)
	return Runtime{
		Workspace: New(directory, completer, opts),
		Completer: completer,
		Archives:  objectStore,
	}, nil
}
