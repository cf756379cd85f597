package nl2sql

import (
	"context"
	"time"
)

// Sentinel is the statement text returned in place of SQL when the
// completion service could not be reached or answered unusably.
const Sentinel = "ERROR"

type Completion struct {
	Text     string
	Model    string
	Duration time.Duration
	Err      error
}

func (c Completion) Failed() bool {
	return c.Err != nil || c.Text == Sentinel
}

// Completer turns a directive and the user's question into statement text.
// Implementations never return an error; failures surface as Sentinel text
// with Err set.
type Completer interface {
	Complete(ctx context.Context, directive, question string) Completion
}

func failed(model string, started time.Time, err error) Completion {
	return Completion{
		Text:     Sentinel,
		Model:    model,
		Duration: time.Since(started),
		Err:      err,
	}
}
