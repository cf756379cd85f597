package pipeline

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/talk2data/talk2data/internal/archive"
	"github.com/talk2data/talk2data/internal/database"
	"github.com/talk2data/talk2data/internal/intent"
	"github.com/talk2data/talk2data/internal/nl2sql"
	"github.com/talk2data/talk2data/internal/query"
	"github.com/talk2data/talk2data/internal/sample"
	"github.com/talk2data/talk2data/internal/schema"
)

type scriptedCompleter struct {
	text  string
	err   error
	calls []string
}

func (s *scriptedCompleter) Complete(_ context.Context, directive, question string) nl2sql.Completion {
	s.calls = append(s.calls, question)
	if s.err != nil {
		return nl2sql.Completion{Text: nl2sql.Sentinel, Err: s.err}
	}
	return nl2sql.Completion{Text: s.text, Model: "test"}
}

type recordingEngine struct {
	requests []query.Request
}

func (r *recordingEngine) Execute(_ context.Context, request query.Request) (query.Result, error) {
	r.requests = append(r.requests, request)
	return query.Result{}, nil
}

type staticSchema struct {
	snapshot schema.Snapshot
	err      error
}

func (s staticSchema) Snapshot(context.Context) (schema.Snapshot, error) {
	return s.snapshot, s.err
}

type fakeArchiver struct {
	entries []archive.Entry
	err     error
}

func (f *fakeArchiver) Archive(_ context.Context, entry archive.Entry) (string, error) {
	f.entries = append(f.entries, entry)
	if f.err != nil {
		return "", f.err
	}
	return "results/date=2026-02-19/employee.db/EMPLOYEE-1.parquet", nil
}

func seededService(t *testing.T, completer nl2sql.Completer, opts Options) (*Service, database.Source) {
	t.Helper()
	src, err := database.ParseSource(filepath.Join(t.TempDir(), sample.DefaultFile))
	if err != nil {
		t.Fatalf("ParseSource() error = %v", err)
	}
	if _, err := sample.Seed(context.Background(), src); err != nil {
		t.Fatalf("Seed() error = %v", err)
	}
	return New(src, src.Name, completer, opts), src
}

func TestAskCountsEmployees(t *testing.T) {
	completer := &scriptedCompleter{text: "SELECT COUNT(*) FROM EMPLOYEE;"}
	svc, _ := seededService(t, completer, Options{AllowWrites: true})

	answer := svc.Ask(context.Background(), Request{Question: "How many employees are there?"})
	if answer.Operation != intent.OperationSelect {
		t.Fatalf("Operation = %q", answer.Operation)
	}
	if answer.Table != "EMPLOYEE" || !answer.TableDefaulted {
		t.Fatalf("Table = %q defaulted = %v", answer.Table, answer.TableDefaulted)
	}
	if answer.Outcome.Kind != query.KindRows {
		t.Fatalf("Outcome = %+v", answer.Outcome)
	}
	if len(answer.Outcome.Rows) != 1 || len(answer.Outcome.Rows[0]) != 1 || answer.Outcome.Rows[0][0] != int64(20) {
		t.Fatalf("Rows = %#v", answer.Outcome.Rows)
	}
	want := []State{StateIdle, StateClassified, StateTableResolved, StatePromptAssembled, StateCompleted, StateExecuted}
	if !reflect.DeepEqual(answer.Trace, want) {
		t.Fatalf("Trace = %v, want %v", answer.Trace, want)
	}
	if answer.Database != "employee.db" {
		t.Fatalf("Database = %q", answer.Database)
	}
}

func TestAskRemovesEmployee(t *testing.T) {
	completer := &scriptedCompleter{text: "DELETE FROM EMPLOYEE WHERE NAME = 'Aarav';"}
	svc, _ := seededService(t, completer, Options{AllowWrites: true})

	answer := svc.Ask(context.Background(), Request{Question: "Remove employee Aarav"})
	if answer.Operation != intent.OperationDelete {
		t.Fatalf("Operation = %q", answer.Operation)
	}
	if answer.Table != "EMPLOYEE" || answer.TableDefaulted {
		t.Fatalf("Table = %q defaulted = %v", answer.Table, answer.TableDefaulted)
	}
	if answer.Outcome.Kind != query.KindAffected || answer.Outcome.RowsAffected != 1 {
		t.Fatalf("Outcome = %+v", answer.Outcome)
	}

	completer.text = "DELETE FROM EMPLOYEE WHERE NAME = 'John';"
	answer = svc.Ask(context.Background(), Request{Question: "Remove employee John"})
	if answer.Outcome.Kind != query.KindAffected || answer.Outcome.RowsAffected != 0 {
		t.Fatalf("Outcome = %+v", answer.Outcome)
	}
}

func TestAskCompletionFailureRunsNoSQL(t *testing.T) {
	engine := &recordingEngine{}
	svc := &Service{
		Schema:      staticSchema{snapshot: employeeSnapshot()},
		Completer:   &scriptedCompleter{err: errors.New("status=401")},
		Executor:    query.NewExecutor(engine, 0, nil),
		AllowWrites: true,
	}

	answer := svc.Ask(context.Background(), Request{Question: "Show all employees"})
	if answer.Outcome.Kind != query.KindCompletionFailure {
		t.Fatalf("Outcome = %+v", answer.Outcome)
	}
	if answer.SQL != nl2sql.Sentinel {
		t.Fatalf("SQL = %q", answer.SQL)
	}
	if answer.Outcome.Err == nil || !strings.Contains(answer.Outcome.Err.Error(), "status=401") {
		t.Fatalf("Err = %v", answer.Outcome.Err)
	}
	if len(engine.requests) != 0 {
		t.Fatalf("engine ran %d statements", len(engine.requests))
	}
	if answer.Final() != StateCompletionFailed {
		t.Fatalf("Final() = %q", answer.Final())
	}
}

func TestAskRejectsNonSelectStatementForSelectIntent(t *testing.T) {
	completer := &scriptedCompleter{text: "DROP TABLE EMPLOYEE;"}
	svc, src := seededService(t, completer, Options{AllowWrites: true})

	answer := svc.Ask(context.Background(), Request{Question: "List all employees"})
	if answer.Outcome.Kind != query.KindShapeMismatch {
		t.Fatalf("Outcome = %+v", answer.Outcome)
	}
	if answer.Final() != StateInvalidShape {
		t.Fatalf("Final() = %q", answer.Final())
	}

	snapshot, err := schema.NewIntrospector(src).Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if _, ok := snapshot.Columns("EMPLOYEE"); !ok {
		t.Fatal("EMPLOYEE table was dropped")
	}
}

func TestAskSkipsCompletionForUnclassifiedQuestions(t *testing.T) {
	completer := &scriptedCompleter{text: "SELECT 1"}
	svc := &Service{
		Schema:    staticSchema{snapshot: employeeSnapshot()},
		Completer: completer,
		Executor:  query.NewExecutor(&recordingEngine{}, 0, nil),
	}

	answer := svc.Ask(context.Background(), Request{Question: "hello there"})
	if answer.Outcome.Kind != query.KindClassificationMiss {
		t.Fatalf("Outcome = %+v", answer.Outcome)
	}
	if !strings.Contains(answer.Outcome.Message, "DELETE: delete, remove") {
		t.Fatalf("Message = %q", answer.Outcome.Message)
	}
	if len(completer.calls) != 0 {
		t.Fatalf("completer called %d times", len(completer.calls))
	}
	if !reflect.DeepEqual(answer.Trace, []State{StateIdle, StateClassified}) {
		t.Fatalf("Trace = %v", answer.Trace)
	}
}

func TestAskReportsResolutionMissOnEmptySchema(t *testing.T) {
	completer := &scriptedCompleter{text: "SELECT 1"}
	svc := &Service{
		Schema:    staticSchema{snapshot: schema.Snapshot{Dialect: database.DialectSQLite}},
		Completer: completer,
		Executor:  query.NewExecutor(&recordingEngine{}, 0, nil),
	}

	answer := svc.Ask(context.Background(), Request{Question: "show everything"})
	if answer.Outcome.Kind != query.KindResolutionMiss {
		t.Fatalf("Outcome = %+v", answer.Outcome)
	}
	if len(completer.calls) != 0 {
		t.Fatalf("completer called %d times", len(completer.calls))
	}
}

func TestAskCreatesFirstTableInEmptyDatabase(t *testing.T) {
	src, err := database.ParseSource(filepath.Join(t.TempDir(), "empty.db"))
	if err != nil {
		t.Fatalf("ParseSource() error = %v", err)
	}
	completer := &scriptedCompleter{text: "CREATE TABLE PROJECT (ID INT, NAME TEXT);"}
	svc := New(src, src.Name, completer, Options{AllowWrites: true})

	answer := svc.Ask(context.Background(), Request{Question: "Create table project with id and name"})
	if answer.Operation != intent.OperationCreate {
		t.Fatalf("Operation = %q", answer.Operation)
	}
	if answer.Outcome.Kind != query.KindAffected {
		t.Fatalf("Outcome = %+v", answer.Outcome)
	}
	snapshot, err := schema.NewIntrospector(src).Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if got := snapshot.TableNames(); !reflect.DeepEqual(got, []string{"PROJECT"}) {
		t.Fatalf("TableNames() = %v", got)
	}
}

func TestAskForbidsWritesInReadOnlyMode(t *testing.T) {
	tests := []struct {
		name        string
		allowWrites bool
		readOnly    bool
	}{
		{name: "service read only", allowWrites: false},
		{name: "request read only", allowWrites: true, readOnly: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			completer := &scriptedCompleter{text: "DELETE FROM EMPLOYEE"}
			svc := &Service{
				Schema:      staticSchema{snapshot: employeeSnapshot()},
				Completer:   completer,
				Executor:    query.NewExecutor(&recordingEngine{}, 0, nil),
				AllowWrites: tc.allowWrites,
			}
			answer := svc.Ask(context.Background(), Request{Question: "delete every employee", ReadOnly: tc.readOnly})
			if answer.Outcome.Kind != query.KindWriteForbidden {
				t.Fatalf("Outcome = %+v", answer.Outcome)
			}
			if len(completer.calls) != 0 {
				t.Fatalf("completer called %d times", len(completer.calls))
			}
		})
	}
}

func TestAskReadQuestionsCannotModifyDataInReadOnlyMode(t *testing.T) {
	tests := []struct {
		question  string
		statement string
		operation intent.Operation
		want      query.Kind
	}{
		{"combine employees with departments", "DELETE FROM EMPLOYEE", intent.OperationJoin, query.KindShapeMismatch},
		{"describe employee", "DROP TABLE EMPLOYEE", intent.OperationDescribe, query.KindExecutionFailure},
		{"show every employee", "DELETE FROM EMPLOYEE WHERE NAME IN (SELECT NAME FROM EMPLOYEE)", intent.OperationSelect, query.KindExecutionFailure},
	}
	completer := &scriptedCompleter{}
	svc, _ := seededService(t, completer, Options{AllowWrites: false})

	for _, tc := range tests {
		completer.text = tc.statement
		answer := svc.Ask(context.Background(), Request{Question: tc.question, ReadOnly: true})
		if answer.Operation != tc.operation {
			t.Fatalf("%q: Operation = %q, want %q", tc.question, answer.Operation, tc.operation)
		}
		if answer.Outcome.Kind != tc.want {
			t.Fatalf("%q: Outcome = %+v, want %q", tc.question, answer.Outcome, tc.want)
		}
	}

	completer.text = "SELECT COUNT(*) FROM EMPLOYEE"
	answer := svc.Ask(context.Background(), Request{Question: "How many employees are there?"})
	if answer.Outcome.Kind != query.KindRows || answer.Outcome.Rows[0][0] != int64(20) {
		t.Fatalf("employees did not survive: %+v", answer.Outcome)
	}
}

func TestAskCountsTableDefaultsOnlyForClassifiedQuestions(t *testing.T) {
	svc := &Service{
		Schema:    staticSchema{snapshot: employeeSnapshot()},
		Completer: &scriptedCompleter{text: "SELECT 1"},
		Executor:  query.NewExecutor(&recordingEngine{}, 0, nil),
	}

	before := tableDefaults(t)
	svc.Ask(context.Background(), Request{Question: "hello there"})
	if got := tableDefaults(t); got != before {
		t.Fatalf("table defaults = %v after unclassified question, want %v", got, before)
	}
	svc.Ask(context.Background(), Request{Question: "how many people work here"})
	if got := tableDefaults(t); got != before+1 {
		t.Fatalf("table defaults = %v, want %v", got, before+1)
	}
}

func tableDefaults(t *testing.T) float64 {
	t.Helper()
	rr := httptest.NewRecorder()
	promhttp.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	for _, line := range strings.Split(rr.Body.String(), "\n") {
		value, ok := strings.CutPrefix(line, "talk2data_table_defaults_total ")
		if !ok {
			continue
		}
		parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			t.Fatalf("parse %q: %v", line, err)
		}
		return parsed
	}
	t.Fatal("talk2data_table_defaults_total not exported")
	return 0
}

func TestAskArchivesRows(t *testing.T) {
	archiver := &fakeArchiver{}
	completer := &scriptedCompleter{text: "SELECT NAME FROM EMPLOYEE WHERE DEPARTMENT = 'HR' ORDER BY NAME"}
	svc, _ := seededService(t, completer, Options{Archiver: archiver})

	answer := svc.Ask(context.Background(), Request{Question: "List HR employees"})
	if answer.Outcome.Kind != query.KindRows || len(answer.Outcome.Rows) != 3 {
		t.Fatalf("Outcome = %+v", answer.Outcome)
	}
	if answer.ArchiveKey == "" || len(archiver.entries) != 1 {
		t.Fatalf("ArchiveKey = %q entries = %d", answer.ArchiveKey, len(archiver.entries))
	}
	entry := archiver.entries[0]
	if entry.Database != "employee.db" || entry.Table != "EMPLOYEE" || entry.Operation != "SELECT" {
		t.Fatalf("entry = %+v", entry)
	}
}

func TestAskKeepsRowsWhenArchiveFails(t *testing.T) {
	archiver := &fakeArchiver{err: errors.New("bucket unavailable")}
	completer := &scriptedCompleter{text: "SELECT COUNT(*) FROM EMPLOYEE"}
	svc, _ := seededService(t, completer, Options{Archiver: archiver})

	answer := svc.Ask(context.Background(), Request{Question: "count employees"})
	if answer.Outcome.Kind != query.KindRows || answer.ArchiveKey != "" {
		t.Fatalf("answer = %+v", answer)
	}
}

func TestAskSurfacesExecutionFailures(t *testing.T) {
	completer := &scriptedCompleter{text: "SELECT * FROM NOPE"}
	svc, _ := seededService(t, completer, Options{})

	answer := svc.Ask(context.Background(), Request{Question: "show everything in nope"})
	if answer.Outcome.Kind != query.KindExecutionFailure {
		t.Fatalf("Outcome = %+v", answer.Outcome)
	}
	if !strings.HasPrefix(answer.Outcome.Message, "SQL error: ") || !strings.Contains(answer.Outcome.Message, "NOPE") {
		t.Fatalf("Message = %q", answer.Outcome.Message)
	}
	if answer.Final() != StateExecuted {
		t.Fatalf("Final() = %q", answer.Final())
	}
}

func TestAskReportsSchemaErrors(t *testing.T) {
	completer := &scriptedCompleter{text: "SELECT 1"}
	svc := &Service{
		Schema:    staticSchema{err: errors.New("list tables: file is not a database")},
		Completer: completer,
		Executor:  query.NewExecutor(&recordingEngine{}, 0, nil),
	}
	answer := svc.Ask(context.Background(), Request{Question: "show employees"})
	if answer.Outcome.Kind != query.KindExecutionFailure || len(completer.calls) != 0 {
		t.Fatalf("answer = %+v", answer)
	}
}

func employeeSnapshot() schema.Snapshot {
	return schema.Snapshot{
		Dialect: database.DialectSQLite,
		Tables:  []schema.Table{{Name: "EMPLOYEE", Columns: []string{"NAME", "DEPARTMENT", "SALARY"}}},
	}
}
