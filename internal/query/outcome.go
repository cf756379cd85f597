package query

import (
	"fmt"
	"time"
)

// Kind identifies which variant of Outcome a request ended in. Success kinds
// are KindRows, KindNoRows and KindAffected; every other kind names the stage
// that stopped the request.
type Kind string

const (
	KindRows               Kind = "rows"
	KindNoRows             Kind = "no_rows"
	KindAffected           Kind = "affected"
	KindClassificationMiss Kind = "classification_miss"
	KindResolutionMiss     Kind = "resolution_miss"
	KindCompletionFailure  Kind = "completion_failure"
	KindShapeMismatch      Kind = "shape_mismatch"
	KindExecutionFailure   Kind = "execution_failure"
	KindWriteForbidden     Kind = "write_forbidden"
)

func (k Kind) String() string {
	return string(k)
}

func (k Kind) Failed() bool {
	switch k {
	case KindRows, KindNoRows, KindAffected:
		return false
	default:
		return true
	}
}

const (
	MessageNoRows            = "Query executed, but no matching records found."
	MessageCompletionFailure = "Failed to get a response from the completion service."
	MessageShapeMismatch     = "The output doesn't appear to be a valid SELECT query."
	MessageResolutionMiss    = "No table could be identified: the database has no tables."
	MessageWriteForbidden    = "Write operations are disabled for this request; only read questions can be answered."
)

// StageError is the typed cause carried by a failed Outcome.
type StageError struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *StageError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

type Outcome struct {
	Kind         Kind
	Message      string
	Columns      []string
	Rows         [][]any
	RowsAffected int64
	Truncated    bool
	Duration     time.Duration
	Err          *StageError
}

func (o Outcome) Failed() bool {
	return o.Kind.Failed()
}

func Fail(kind Kind, message string, err error) Outcome {
	return Outcome{
		Kind:    kind,
		Message: message,
		Err:     &StageError{Kind: kind, Message: message, Err: err},
	}
}

func affectedMessage(n int64) string {
	return fmt.Sprintf("Query executed successfully. %d row(s) affected.", n)
}
