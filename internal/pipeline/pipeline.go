package pipeline

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/talk2data/talk2data/internal/archive"
	"github.com/talk2data/talk2data/internal/database"
	"github.com/talk2data/talk2data/internal/intent"
	"github.com/talk2data/talk2data/internal/nl2sql"
	"github.com/talk2data/talk2data/internal/observability"
	"github.com/talk2data/talk2data/internal/prompt"
	"github.com/talk2data/talk2data/internal/query"
	"github.com/talk2data/talk2data/internal/query/sqlengine"
	"github.com/talk2data/talk2data/internal/schema"
)

// State is one step of a single question's lifecycle.
type State string

const (
	StateIdle             State = "idle"
	StateClassified       State = "classified"
	StateTableResolved    State = "table_resolved"
	StatePromptAssembled  State = "prompt_assembled"
	StateCompleted        State = "completed"
	StateCompletionFailed State = "completion_failed"
	StateInvalidShape     State = "invalid_shape"
	StateExecuted         State = "executed"
)

type SchemaReader interface {
	Snapshot(ctx context.Context) (schema.Snapshot, error)
}

type StatementRunner interface {
	Run(ctx context.Context, statement string, op intent.Operation) query.Outcome
}

type Archiver interface {
	Archive(ctx context.Context, entry archive.Entry) (string, error)
}

type Request struct {
	Question string
	// ReadOnly narrows a single request to read operations even when the
	// service allows writes.
	ReadOnly bool
}

type Answer struct {
	Question       string
	Database       string
	Operation      intent.Operation
	Rule           string
	Table          string
	TableDefaulted bool
	SQL            string
	Outcome        query.Outcome
	ArchiveKey     string
	Trace          []State
	Duration       time.Duration
}

func (a Answer) Final() State {
	if len(a.Trace) == 0 {
		return StateIdle
	}
	return a.Trace[len(a.Trace)-1]
}

type Service struct {
	Database    string
	Schema      SchemaReader
	Completer   nl2sql.Completer
	Executor    StatementRunner
	Archiver    Archiver
	Logger      *slog.Logger
	AllowWrites bool
}

type Options struct {
	RowLimit    int
	AllowWrites bool
	Archiver    Archiver
	Logger      *slog.Logger
}

// New wires the introspector and SQL engine for one database.
func New(connector database.Connector, databaseName string, completer nl2sql.Completer, opts Options) *Service {
	logger := observability.WithDatabase(opts.Logger, databaseName, string(connector.Dialect()))
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{
		Database:    databaseName,
		Schema:      schema.NewIntrospector(connector),
		Completer:   completer,
		Executor:    query.NewExecutor(sqlengine.NewEngine(connector), opts.RowLimit, logger),
		Archiver:    opts.Archiver,
		Logger:      logger,
		AllowWrites: opts.AllowWrites,
	}
}

func (s *Service) Ask(ctx context.Context, req Request) Answer {
	start := time.Now()
	answer := s.ask(ctx, req)
	answer.Duration = time.Since(start)

	observability.ObserveOutcome(answer.Outcome.Kind.String())
	attrs := []any{
		slog.String("trace_id", observability.TraceIDFromContext(ctx)),
		slog.String("operation", answer.Operation.String()),
		slog.String("rule", answer.Rule),
		slog.String("table", answer.Table),
		slog.Bool("table_defaulted", answer.TableDefaulted),
		slog.String("outcome", answer.Outcome.Kind.String()),
		slog.String("final_state", string(answer.Final())),
		slog.String("duration", answer.Duration.String()),
	}
	if answer.Outcome.Err != nil {
		attrs = append(attrs, slog.String("error", answer.Outcome.Err.Error()))
		s.logger().WarnContext(ctx, "question_failed", attrs...)
	} else {
		s.logger().InfoContext(ctx, "question_answered", attrs...)
	}
	return answer
}

func (s *Service) ask(ctx context.Context, req Request) Answer {
	answer := Answer{
		Question:  strings.TrimSpace(req.Question),
		Database:  s.Database,
		Operation: intent.OperationNone,
		Trace:     []State{StateIdle},
	}

	snapshot, err := s.Schema.Snapshot(ctx)
	if err != nil {
		answer.Outcome = query.Fail(query.KindExecutionFailure, "SQL error: could not read the database schema: "+err.Error(), err)
		return answer
	}

	answer.Operation, answer.Rule = intent.ClassifyWithRule(answer.Question)
	answer.Trace = append(answer.Trace, StateClassified)
	observability.ObserveQuestion(answer.Operation.String())

	resolution, resolved := intent.ResolveTable(answer.Question, snapshot.TableNames())
	answer.Table = resolution.Table
	answer.TableDefaulted = resolution.Defaulted

	directive := prompt.Assemble(snapshot, answer.Table, answer.Operation)
	if directive.Skip {
		answer.Outcome = query.Fail(query.KindClassificationMiss, classificationMissMessage(), nil)
		return answer
	}
	if resolution.Defaulted {
		observability.ObserveTableDefault()
	}
	answer.Trace = append(answer.Trace, StateTableResolved)
	if !resolved && answer.Operation != intent.OperationCreate {
		answer.Outcome = query.Fail(query.KindResolutionMiss, query.MessageResolutionMiss, nil)
		return answer
	}
	if !answer.Operation.IsRead() && (!s.AllowWrites || req.ReadOnly) {
		answer.Outcome = query.Fail(query.KindWriteForbidden, query.MessageWriteForbidden, nil)
		return answer
	}
	answer.Trace = append(answer.Trace, StatePromptAssembled)

	completion := s.Completer.Complete(ctx, directive.Text, answer.Question)
	if completion.Failed() {
		answer.SQL = nl2sql.Sentinel
		answer.Trace = append(answer.Trace, StateCompletionFailed)
		answer.Outcome = query.Fail(query.KindCompletionFailure, query.MessageCompletionFailure, completion.Err)
		return answer
	}
	answer.SQL = completion.Text
	answer.Trace = append(answer.Trace, StateCompleted)

	answer.Outcome = s.Executor.Run(ctx, answer.SQL, answer.Operation)
	if answer.Outcome.Kind == query.KindShapeMismatch {
		answer.Trace = append(answer.Trace, StateInvalidShape)
		return answer
	}
	answer.Trace = append(answer.Trace, StateExecuted)

	if answer.Outcome.Kind == query.KindRows && s.Archiver != nil {
		key, err := s.Archiver.Archive(ctx, archive.Entry{
			Database:  answer.Database,
			Question:  answer.Question,
			Statement: answer.SQL,
			Operation: answer.Operation.String(),
			Table:     answer.Table,
			Columns:   answer.Outcome.Columns,
			Rows:      answer.Outcome.Rows,
		})
		if err != nil {
			s.logger().WarnContext(ctx, "archive_failed",
				slog.String("trace_id", observability.TraceIDFromContext(ctx)),
				slog.String("error", err.Error()),
			)
		} else {
			answer.ArchiveKey = key
		}
	}
	return answer
}

func (s *Service) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return s.Logger
}

func classificationMissMessage() string {
	return "Could not detect the SQL operation in the question. Try phrasing it with one of these words:\n" + intent.Vocabulary()
}
