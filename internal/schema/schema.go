package schema

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/talk2data/talk2data/internal/database"
)

type Table struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
}

// Snapshot lists the tables of one database in catalog order. It is rebuilt
// for every request and never cached.
type Snapshot struct {
	Dialect database.Dialect `json:"dialect"`
	Tables  []Table          `json:"tables"`
}

func (s Snapshot) Empty() bool {
	return len(s.Tables) == 0
}

func (s Snapshot) TableNames() []string {
	names := make([]string, 0, len(s.Tables))
	for _, table := range s.Tables {
		names = append(names, table.Name)
	}
	return names
}

func (s Snapshot) Columns(table string) ([]string, bool) {
	for _, candidate := range s.Tables {
		if strings.EqualFold(candidate.Name, table) {
			return candidate.Columns, true
		}
	}
	return nil, false
}

func (s Snapshot) Map() map[string][]string {
	out := make(map[string][]string, len(s.Tables))
	for _, table := range s.Tables {
		out[table.Name] = table.Columns
	}
	return out
}

type Introspector struct {
	connector database.Connector
}

func NewIntrospector(connector database.Connector) *Introspector {
	return &Introspector{connector: connector}
}

func (i *Introspector) Snapshot(ctx context.Context) (Snapshot, error) {
	db, err := i.connector.Connect(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	defer func() { _ = db.Close() }()

	dialect := i.connector.Dialect()
	queries, err := queriesFor(dialect)
	if err != nil {
		return Snapshot{}, err
	}

	names, err := queryStrings(ctx, db, queries.tables, queries.tableArgs()...)
	if err != nil {
		return Snapshot{}, fmt.Errorf("list tables: %w", err)
	}

	snapshot := Snapshot{Dialect: dialect, Tables: make([]Table, 0, len(names))}
	for _, name := range names {
		columns, err := queryStrings(ctx, db, queries.columns, queries.columnArgs(name)...)
		if err != nil {
			return Snapshot{}, fmt.Errorf("list columns for %q: %w", name, err)
		}
		snapshot.Tables = append(snapshot.Tables, Table{Name: name, Columns: columns})
	}
	return snapshot, nil
}

// Columns returns the declared columns of one table, or an empty slice when
// the table does not exist.
func (i *Introspector) Columns(ctx context.Context, table string) ([]string, error) {
	table = strings.TrimSpace(table)
	if table == "" {
		return []string{}, nil
	}
	db, err := i.connector.Connect(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = db.Close() }()

	queries, err := queriesFor(i.connector.Dialect())
	if err != nil {
		return nil, err
	}
	columns, err := queryStrings(ctx, db, queries.columns, queries.columnArgs(table)...)
	if err != nil {
		return nil, fmt.Errorf("list columns for %q: %w", table, err)
	}
	return columns, nil
}

type catalogQueries struct {
	tables  string
	columns string
	schema  string
}

func (q catalogQueries) tableArgs() []any {
	if q.schema == "" {
		return nil
	}
	return []any{q.schema}
}

func (q catalogQueries) columnArgs(table string) []any {
	if q.schema == "" {
		return []any{table}
	}
	return []any{q.schema, table}
}

const (
	sqliteTablesSQL  = `SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`
	sqliteColumnsSQL = `SELECT name FROM pragma_table_info(?) ORDER BY cid`

	infoSchemaTablesSQL = `SELECT table_name FROM information_schema.tables
WHERE table_schema = $1 AND table_type = 'BASE TABLE'
ORDER BY table_name`
	infoSchemaColumnsSQL = `SELECT column_name FROM information_schema.columns
WHERE table_schema = $1 AND lower(table_name) = lower($2)
ORDER BY ordinal_position`
)

func queriesFor(dialect database.Dialect) (catalogQueries, error) {
	switch dialect {
	case database.DialectSQLite:
		return catalogQueries{tables: sqliteTablesSQL, columns: sqliteColumnsSQL}, nil
	case database.DialectDuckDB:
		return catalogQueries{tables: infoSchemaTablesSQL, columns: infoSchemaColumnsSQL, schema: "main"}, nil
	case database.DialectPostgres:
		return catalogQueries{tables: infoSchemaTablesSQL, columns: infoSchemaColumnsSQL, schema: "public"}, nil
	default:
		return catalogQueries{}, fmt.Errorf("unsupported dialect %q", dialect)
	}
}

func queryStrings(ctx context.Context, db *sql.DB, query string, args ...any) ([]string, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	values := make([]string, 0)
	for rows.Next() {
		var value string
		if err := rows.Scan(&value); err != nil {
			return nil, err
		}
		values = append(values, value)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return values, nil
}
