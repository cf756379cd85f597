package query

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/talk2data/talk2data/internal/intent"
	"github.com/talk2data/talk2data/internal/observability"
)

type Executor struct {
	engine   Engine
	rowLimit int
	logger   *slog.Logger
}

func NewExecutor(engine Engine, rowLimit int, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Executor{engine: engine, rowLimit: rowLimit, logger: logger}
}

// Run validates statement against op and executes it. Failures are returned
// as Outcome variants, never as errors.
func (e *Executor) Run(ctx context.Context, statement string, op intent.Operation) Outcome {
	if stageErr := Validate(statement, op); stageErr != nil {
		return Outcome{Kind: stageErr.Kind, Message: stageErr.Message, Err: stageErr}
	}

	start := time.Now()
	result, err := e.engine.Execute(ctx, Request{
		SQL:       strings.TrimSpace(statement),
		Operation: op,
		RowLimit:  e.rowLimit,
	})
	elapsed := time.Since(start)
	observability.ObserveExecution(op.String(), elapsed)
	if err != nil {
		e.logger.WarnContext(ctx, "statement_failed",
			slog.String("trace_id", observability.TraceIDFromContext(ctx)),
			slog.String("operation", op.String()),
			slog.String("error", err.Error()),
		)
		outcome := Fail(KindExecutionFailure, "SQL error: "+rootMessage(err), err)
		outcome.Duration = elapsed
		return outcome
	}

	if op.IsRead() {
		if len(result.Rows) == 0 {
			return Outcome{Kind: KindNoRows, Message: MessageNoRows, Columns: result.Columns, Duration: elapsed}
		}
		return Outcome{
			Kind:      KindRows,
			Columns:   result.Columns,
			Rows:      result.Rows,
			Truncated: result.Truncated,
			Duration:  elapsed,
		}
	}
	return Outcome{
		Kind:         KindAffected,
		Message:      affectedMessage(result.RowsAffected),
		RowsAffected: result.RowsAffected,
		Duration:     elapsed,
	}
}

// rootMessage drops the engine's wrapping prefixes so users see the driver text.
func rootMessage(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err.Error()
		}
		err = next
	}
}
