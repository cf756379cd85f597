package workspace

import (
	"context"

	"github.com/talk2data/talk2data/internal/catalog"
	"github.com/talk2data/talk2data/internal/nl2sql"
	"github.com/talk2data/talk2data/internal/pipeline"
	"github.com/talk2data/talk2data/internal/sample"
	"github.com/talk2data/talk2data/internal/schema"
)

// Workspace answers questions against any database in a data directory,
// building a fresh pipeline per request.
type Workspace struct {
	catalog   *catalog.Directory
	completer nl2sql.Completer
	options   pipeline.Options
}

func New(directory *catalog.Directory, completer nl2sql.Completer, opts pipeline.Options) *Workspace {
	return &Workspace{catalog: directory, completer: completer, options: opts}
}

func (w *Workspace) Databases(ctx context.Context) ([]catalog.Entry, error) {
	return w.catalog.List(ctx)
}

func (w *Workspace) Schema(ctx context.Context, databaseName string) (schema.Snapshot, string, error) {
	src, err := w.catalog.Open(ctx, databaseName)
	if err != nil {
		return schema.Snapshot{}, "", err
	}
	snapshot, err := schema.NewIntrospector(src).Snapshot(ctx)
	if err != nil {
		return schema.Snapshot{}, src.Name, err
	}
	return snapshot, src.Name, nil
}

// Ask returns an error only when the database cannot be found; every other
// failure is reported through the answer's outcome.
func (w *Workspace) Ask(ctx context.Context, databaseName string, req pipeline.Request) (pipeline.Answer, error) {
	src, err := w.catalog.Open(ctx, databaseName)
	if err != nil {
		return pipeline.Answer{}, err
	}
	return pipeline.New(src, src.Name, w.completer, w.options).Ask(ctx, req), nil
}

// Seed writes the sample EMPLOYEE table into name, creating the file if
// needed.
func (w *Workspace) Seed(ctx context.Context, name string) (string, int, error) {
	if name == "" {
		name = sample.DefaultFile
	}
	src, err := w.catalog.Create(name)
	if err != nil {
		return "", 0, err
	}
	inserted, err := sample.Seed(ctx, src)
	if err != nil {
		return "", 0, err
	}
	return src.Name, inserted, nil
}
