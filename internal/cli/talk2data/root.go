// Package talk2data implements the local command line: questions are
// answered in-process against database files in the data directory, with no
// API server in between.
package talk2data

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/talk2data/talk2data/internal/catalog"
	"github.com/talk2data/talk2data/internal/pipeline"
	"github.com/talk2data/talk2data/internal/schema"
)

// Workspace is the subset of the question-answering workspace the commands
// drive.
type Workspace interface {
	Databases(ctx context.Context) ([]catalog.Entry, error)
	Schema(ctx context.Context, databaseName string) (schema.Snapshot, string, error)
	Ask(ctx context.Context, databaseName string, req pipeline.Request) (pipeline.Answer, error)
	Seed(ctx context.Context, name string) (string, int, error)
}

type options struct {
	database string
	readOnly bool
	asJSON   bool
}

// NewRootCommand builds the command tree. open is called lazily so that help
// and usage never need a configured environment.
func NewRootCommand(open func(ctx context.Context) (Workspace, error)) *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:   "talk2data",
		Short: "Ask questions of a SQL database in plain English",
		Long: `talk2data turns English questions into SQL with a chat-completion model,
grounded in the live schema of a SQLite, DuckDB or Postgres database, and runs
the statement it gets back.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.database, "database", "d", "", "database file in the data directory (default: configured or first found)")

	root.AddCommand(
		newAskCommand(opts, open),
		newShellCommand(opts, open),
		newSchemaCommand(opts, open),
		newDatabasesCommand(open),
		newSeedCommand(open),
	)
	return root
}
