package database

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/marcboeker/go-duckdb/v2"
	_ "modernc.org/sqlite"
)

type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectDuckDB   Dialect = "duckdb"
	DialectPostgres Dialect = "postgres"
)

func (d Dialect) DriverName() string {
	switch d {
	case DialectSQLite:
		return "sqlite"
	case DialectDuckDB:
		return "duckdb"
	case DialectPostgres:
		return "pgx"
	default:
		return ""
	}
}

func (d Dialect) Label() string {
	switch d {
	case DialectSQLite:
		return "SQLite"
	case DialectDuckDB:
		return "DuckDB"
	case DialectPostgres:
		return "PostgreSQL"
	default:
		return string(d)
	}
}

// Connector hands out a fresh handle per call; callers close it when done.
type Connector interface {
	Dialect() Dialect
	Connect(ctx context.Context) (*sql.DB, error)
}

type Source struct {
	Name        string
	DSN         string
	Kind        Dialect
	PingTimeout time.Duration
}

func (s Source) Dialect() Dialect {
	return s.Kind
}

func (s Source) Connect(ctx context.Context) (*sql.DB, error) {
	driver := s.Kind.DriverName()
	if driver == "" {
		return nil, fmt.Errorf("unsupported dialect %q", s.Kind)
	}
	if strings.TrimSpace(s.DSN) == "" {
		return nil, fmt.Errorf("database dsn is required")
	}

	db, err := sql.Open(driver, s.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", s.Kind, err)
	}
	db.SetMaxOpenConns(1)

	timeout := s.PingTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s database %q: %w", s.Kind, s.Name, err)
	}
	return db, nil
}

// ParseSource maps a file path or postgres DSN onto a Source.
func ParseSource(target string) (Source, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return Source{}, fmt.Errorf("database target is required")
	}
	if strings.HasPrefix(target, "postgres://") || strings.HasPrefix(target, "postgresql://") {
		return Source{Name: redactDSN(target), DSN: target, Kind: DialectPostgres}, nil
	}
	dialect, ok := DialectForPath(target)
	if !ok {
		return Source{}, fmt.Errorf("unsupported database file %q", target)
	}
	return Source{Name: filepath.Base(target), DSN: target, Kind: dialect}, nil
}

func DialectForPath(path string) (Dialect, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return DialectSQLite, true
	case ".duckdb", ".ddb":
		return DialectDuckDB, true
	default:
		return "", false
	}
}

func redactDSN(dsn string) string {
	at := strings.LastIndex(dsn, "@")
	if at < 0 {
		return dsn
	}
	scheme := strings.Index(dsn, "://")
	if scheme < 0 || scheme > at {
		return dsn
	}
	return dsn[:scheme+3] + "***" + dsn[at:]
}
