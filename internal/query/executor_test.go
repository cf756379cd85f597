package query

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/talk2data/talk2data/internal/intent"
	"github.com/talk2data/talk2data/internal/nl2sql"
)

type fakeEngine struct {
	result   Result
	err      error
	requests []Request
}

func (f *fakeEngine) Execute(_ context.Context, request Request) (Result, error) {
	f.requests = append(f.requests, request)
	return f.result, f.err
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		statement string
		op        intent.Operation
		want      Kind
	}{
		{name: "sentinel", statement: nl2sql.Sentinel, op: intent.OperationSelect, want: KindCompletionFailure},
		{name: "sentinel with spaces", statement: "  ERROR\n", op: intent.OperationDelete, want: KindCompletionFailure},
		{name: "select without keyword", statement: "DROP TABLE EMPLOYEE;", op: intent.OperationSelect, want: KindShapeMismatch},
		{name: "select lowercase", statement: "select * from employee", op: intent.OperationSelect},
		{name: "select containing error text", statement: "SELECT 'ERROR' FROM EMPLOYEE", op: intent.OperationSelect},
		{name: "join without keyword", statement: "DELETE FROM EMPLOYEE", op: intent.OperationJoin, want: KindShapeMismatch},
		{name: "join select", statement: "SELECT * FROM EMPLOYEE e JOIN DEPARTMENT d ON e.DEPARTMENT = d.NAME", op: intent.OperationJoin},
		{name: "describe is not shape checked", statement: "PRAGMA table_info(EMPLOYEE)", op: intent.OperationDescribe},
		{name: "delete", statement: "DELETE FROM EMPLOYEE", op: intent.OperationDelete},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Validate(tc.statement, tc.op)
			if tc.want == "" {
				if got != nil {
					t.Fatalf("Validate() = %v, want nil", got)
				}
				return
			}
			if got == nil || got.Kind != tc.want {
				t.Fatalf("Validate() = %v, want kind %q", got, tc.want)
			}
		})
	}
}

func TestRunNeverExecutesSentinel(t *testing.T) {
	engine := &fakeEngine{}
	outcome := NewExecutor(engine, 0, nil).Run(context.Background(), nl2sql.Sentinel, intent.OperationSelect)
	if outcome.Kind != KindCompletionFailure || !outcome.Failed() {
		t.Fatalf("outcome = %+v", outcome)
	}
	if len(engine.requests) != 0 {
		t.Fatalf("engine was called %d times", len(engine.requests))
	}
}

func TestRunRejectsNonSelectForSelectIntent(t *testing.T) {
	engine := &fakeEngine{}
	outcome := NewExecutor(engine, 0, nil).Run(context.Background(), "DROP TABLE EMPLOYEE;", intent.OperationSelect)
	if outcome.Kind != KindShapeMismatch || outcome.Message != MessageShapeMismatch {
		t.Fatalf("outcome = %+v", outcome)
	}
	if len(engine.requests) != 0 {
		t.Fatalf("engine was called %d times", len(engine.requests))
	}
}

func TestRunReturnsRows(t *testing.T) {
	engine := &fakeEngine{result: Result{Columns: []string{"COUNT(*)"}, Rows: [][]any{{int64(20)}}}}
	outcome := NewExecutor(engine, 100, nil).Run(context.Background(), " SELECT COUNT(*) FROM EMPLOYEE; ", intent.OperationSelect)
	if outcome.Kind != KindRows || outcome.Failed() {
		t.Fatalf("outcome = %+v", outcome)
	}
	if len(outcome.Rows) != 1 || outcome.Rows[0][0] != int64(20) {
		t.Fatalf("rows = %#v", outcome.Rows)
	}
	if got := engine.requests[0]; got.SQL != "SELECT COUNT(*) FROM EMPLOYEE;" || got.RowLimit != 100 || got.Operation != intent.OperationSelect {
		t.Fatalf("request = %+v", got)
	}
}

func TestRunMarksEmptyReadsAsNoRows(t *testing.T) {
	engine := &fakeEngine{result: Result{Columns: []string{"NAME"}}}
	outcome := NewExecutor(engine, 0, nil).Run(context.Background(), "SELECT NAME FROM EMPLOYEE WHERE SALARY > 1e9", intent.OperationSelect)
	if outcome.Kind != KindNoRows || outcome.Message != MessageNoRows {
		t.Fatalf("outcome = %+v", outcome)
	}
	if outcome.Failed() {
		t.Fatal("no rows is not a failure")
	}
}

func TestRunReportsAffectedRowsForWrites(t *testing.T) {
	engine := &fakeEngine{result: Result{RowsAffected: 1}}
	outcome := NewExecutor(engine, 0, nil).Run(context.Background(), "DELETE FROM EMPLOYEE WHERE NAME = 'John';", intent.OperationDelete)
	if outcome.Kind != KindAffected || outcome.RowsAffected != 1 {
		t.Fatalf("outcome = %+v", outcome)
	}
	if outcome.Message != "Query executed successfully. 1 row(s) affected." {
		t.Fatalf("Message = %q", outcome.Message)
	}
}

func TestRunWrapsEngineFailures(t *testing.T) {
	cause := errors.New("no such table: NOPE")
	engine := &fakeEngine{err: fmt.Errorf("execute query: %w", cause)}
	outcome := NewExecutor(engine, 0, nil).Run(context.Background(), "SELECT * FROM NOPE", intent.OperationSelect)
	if outcome.Kind != KindExecutionFailure {
		t.Fatalf("outcome = %+v", outcome)
	}
	if outcome.Message != "SQL error: no such table: NOPE" {
		t.Fatalf("Message = %q", outcome.Message)
	}
	if outcome.Err == nil || !errors.Is(outcome.Err, cause) {
		t.Fatalf("Err = %v", outcome.Err)
	}
}

func TestFailBuildsStageError(t *testing.T) {
	outcome := Fail(KindWriteForbidden, MessageWriteForbidden, nil)
	if outcome.Err == nil || outcome.Err.Kind != KindWriteForbidden {
		t.Fatalf("outcome = %+v", outcome)
	}
	if got := outcome.Err.Error(); got != "write_forbidden: "+MessageWriteForbidden {
		t.Fatalf("Error() = %q", got)
	}
}
