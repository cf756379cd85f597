package talk2data

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/talk2data/talk2data/internal/pipeline"
)

// ErrAnswerFailed is returned by ask when the pipeline produced a failure
// outcome, so the process exits non-zero.
var ErrAnswerFailed = errors.New("question could not be answered")

func newAskCommand(opts *options, open func(context.Context) (Workspace, error)) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a single question",
		Example: `  talk2data ask "How many employees are there?"
  talk2data ask -d sales.duckdb "List all orders over 100"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := open(cmd.Context())
			if err != nil {
				return err
			}
			answer, err := ws.Ask(cmd.Context(), opts.database, pipeline.Request{
				Question: strings.Join(args, " "),
				ReadOnly: opts.readOnly,
			})
			if err != nil {
				return err
			}
			if opts.asJSON {
				encoder := json.NewEncoder(cmd.OutOrStdout())
				encoder.SetIndent("", "  ")
				if err := encoder.Encode(answer.View()); err != nil {
					return err
				}
			} else {
				fmt.Fprint(cmd.OutOrStdout(), renderAnswer(answer))
			}
			if answer.Outcome.Failed() {
				return ErrAnswerFailed
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&opts.readOnly, "read-only", false, "refuse questions that would modify the database")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "print the answer as JSON")
	return cmd
}

func newShellCommand(opts *options, open func(context.Context) (Workspace, error)) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shell",
		Short: "Answer questions read line by line from stdin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ws, err := open(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprint(out, pterm.Info.Sprintln("Type a question and press enter. An empty line or EOF exits."))

			scanner := bufio.NewScanner(cmd.InOrStdin())
			for {
				fmt.Fprint(out, "> ")
				if !scanner.Scan() {
					break
				}
				question := strings.TrimSpace(scanner.Text())
				if question == "" {
					break
				}
				answer, err := ws.Ask(cmd.Context(), opts.database, pipeline.Request{Question: question, ReadOnly: opts.readOnly})
				if err != nil {
					fmt.Fprint(out, pterm.Error.Sprintln(err.Error()))
					continue
				}
				fmt.Fprint(out, renderAnswer(answer))
			}
			fmt.Fprintln(out)
			return scanner.Err()
		},
	}
	cmd.Flags().BoolVar(&opts.readOnly, "read-only", false, "refuse questions that would modify the database")
	return cmd
}

func newSchemaCommand(opts *options, open func(context.Context) (Workspace, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Show the tables and columns the model is told about",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ws, err := open(cmd.Context())
			if err != nil {
				return err
			}
			snapshot, name, err := ws.Schema(cmd.Context(), opts.database)
			if err != nil {
				return err
			}
			rendered, err := renderSchema(name, snapshot)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), rendered)
			return nil
		},
	}
}

func newDatabasesCommand(open func(context.Context) (Workspace, error)) *cobra.Command {
	return &cobra.Command{
		Use:     "databases",
		Aliases: []string{"dbs"},
		Short:   "List databases in the data directory",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ws, err := open(cmd.Context())
			if err != nil {
				return err
			}
			entries, err := ws.Databases(cmd.Context())
			if err != nil {
				return err
			}
			rendered, err := renderDatabases(entries)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), rendered)
			return nil
		},
	}
}

func newSeedCommand(open func(context.Context) (Workspace, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "seed [file]",
		Short: "Create the sample EMPLOYEE table",
		Long: `seed drops and recreates the EMPLOYEE table in the given database file
(employee.db by default) and inserts the sample rows.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := open(cmd.Context())
			if err != nil {
				return err
			}
			target := ""
			if len(args) == 1 {
				target = args[0]
			}
			name, inserted, err := ws.Seed(cmd.Context(), target)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), pterm.Success.Sprintfln("Seeded %s with %d employee rows", name, inserted))
			return nil
		},
	}
}
