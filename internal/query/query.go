package query

import (
	"context"
	"time"

	"github.com/talk2data/talk2data/internal/intent"
)

type Request struct {
	SQL       string
	Operation intent.Operation
	RowLimit  int
}

// Result carries rows for read operations and RowsAffected for writes.
type Result struct {
	Columns      []string
	Rows         [][]any
	RowsAffected int64
	Truncated    bool
	Duration     time.Duration
}

type Engine interface {
	Execute(ctx context.Context, request Request) (Result, error)
}
