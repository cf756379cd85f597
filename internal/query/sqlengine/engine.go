package sqlengine

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/talk2data/talk2data/internal/database"
	"github.com/talk2data/talk2data/internal/query"
)

// Engine runs statements against one database. A handle is opened per
// Execute call and closed before it returns.
type Engine struct {
	Connector database.Connector
}

func NewEngine(connector database.Connector) *Engine {
	return &Engine{Connector: connector}
}

func (e *Engine) Execute(ctx context.Context, request query.Request) (query.Result, error) {
	if e.Connector == nil {
		return query.Result{}, fmt.Errorf("database connector is required")
	}
	sqlText := stripTrailingSemicolons(request.SQL)
	if sqlText == "" {
		return query.Result{}, fmt.Errorf("sql is required")
	}

	db, err := e.Connector.Connect(ctx)
	if err != nil {
		return query.Result{}, err
	}
	defer func() { _ = db.Close() }()

	start := time.Now()
	var result query.Result
	if request.Operation.IsRead() {
		result, err = queryRows(ctx, db, e.Connector.Dialect(), sqlText, request.RowLimit)
	} else {
		result, err = execStatement(ctx, db, sqlText)
	}
	if err != nil {
		return query.Result{}, err
	}
	result.Duration = time.Since(start)
	return result, nil
}

// queryRows scans at most rowLimit rows (unbounded when rowLimit <= 0) and
// reports whether more were available. Reads run in a transaction that is
// always rolled back, so text that turns out to modify data never persists.
func queryRows(ctx context.Context, db *sql.DB, dialect database.Dialect, sqlText string, rowLimit int) (query.Result, error) {
	tx, err := db.BeginTx(ctx, readTxOptions(dialect))
	if err != nil {
		return query.Result{}, fmt.Errorf("begin read transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if guard := readOnlyGuard(dialect); guard != "" {
		if _, err := tx.ExecContext(ctx, guard); err != nil {
			return query.Result{}, fmt.Errorf("enter read-only mode: %w", err)
		}
	}

	rows, err := tx.QueryContext(ctx, sqlText)
	if err != nil {
		return query.Result{}, fmt.Errorf("execute query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return query.Result{}, fmt.Errorf("query columns: %w", err)
	}

	resultRows := make([][]any, 0)
	truncated := false
	for rows.Next() {
		if rowLimit > 0 && len(resultRows) >= rowLimit {
			truncated = true
			break
		}
		values := make([]any, len(columns))
		scanTargets := make([]any, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return query.Result{}, fmt.Errorf("scan row: %w", err)
		}
		resultRows = append(resultRows, normalizeValues(values))
	}
	if err := rows.Err(); err != nil {
		return query.Result{}, fmt.Errorf("iterate rows: %w", err)
	}

	return query.Result{
		Columns:   columns,
		Rows:      resultRows,
		Truncated: truncated,
	}, nil
}

// readTxOptions asks for a read-only transaction where the driver enforces
// one. go-duckdb rejects ReadOnly and modernc sqlite ignores it.
func readTxOptions(dialect database.Dialect) *sql.TxOptions {
	if dialect == database.DialectPostgres {
		return &sql.TxOptions{ReadOnly: true}
	}
	return nil
}

// readOnlyGuard is run inside the read transaction before the statement.
// The pragma sticks to the connection, which is closed with the handle.
func readOnlyGuard(dialect database.Dialect) string {
	if dialect == database.DialectSQLite {
		return "PRAGMA query_only = ON"
	}
	return ""
}

func execStatement(ctx context.Context, db *sql.DB, sqlText string) (query.Result, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return query.Result{}, fmt.Errorf("begin transaction: %w", err)
	}
	res, err := tx.ExecContext(ctx, sqlText)
	if err != nil {
		_ = tx.Rollback()
		return query.Result{}, fmt.Errorf("execute statement: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		_ = tx.Rollback()
		return query.Result{}, fmt.Errorf("rows affected: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return query.Result{}, fmt.Errorf("commit transaction: %w", err)
	}
	return query.Result{RowsAffected: affected}, nil
}

func normalizeValues(values []any) []any {
	normalized := make([]any, len(values))
	for i, value := range values {
		switch typed := value.(type) {
		case []byte:
			normalized[i] = string(typed)
		default:
			normalized[i] = typed
		}
	}
	return normalized
}

func stripTrailingSemicolons(sqlText string) string {
	trimmed := strings.TrimSpace(sqlText)
	for strings.HasSuffix(trimmed, ";") {
		trimmed = strings.TrimSpace(strings.TrimSuffix(trimmed, ";"))
	}
	return trimmed
}
