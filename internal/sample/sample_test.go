package sample

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"github.com/talk2data/talk2data/internal/database"
)

func TestStatements(t *testing.T) {
	statements := Statements()
	if len(statements) != 22 {
		t.Fatalf("len(Statements()) = %d, want 22", len(statements))
	}
	if statements[0] != "DROP TABLE IF EXISTS EMPLOYEE" {
		t.Fatalf("first statement = %q", statements[0])
	}
	if statements[21] != "INSERT INTO EMPLOYEE VALUES ('Amit', 'Sales', 67000)" {
		t.Fatalf("last statement = %q", statements[21])
	}
}

func TestSeedIsRepeatable(t *testing.T) {
	for _, name := range []string{"employee.db", "employee.duckdb"} {
		t.Run(name, func(t *testing.T) {
			src, err := database.ParseSource(filepath.Join(t.TempDir(), name))
			if err != nil {
				t.Fatalf("ParseSource() error = %v", err)
			}
			for i := 0; i < 2; i++ {
				inserted, err := Seed(context.Background(), src)
				if err != nil {
					t.Fatalf("Seed() error = %v", err)
				}
				if inserted != 20 {
					t.Fatalf("inserted = %d", inserted)
				}
			}

			db, err := src.Connect(context.Background())
			if err != nil {
				t.Fatalf("Connect() error = %v", err)
			}
			defer func() { _ = db.Close() }()
			var count int
			if err := db.QueryRow("SELECT COUNT(*) FROM EMPLOYEE").Scan(&count); err != nil {
				t.Fatalf("count: %v", err)
			}
			if count != 20 {
				t.Fatalf("count = %d, want 20", count)
			}
		})
	}
}

func TestSeedRollsBackOnFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DROP TABLE IF EXISTS EMPLOYEE")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE EMPLOYEE")).WillReturnError(errors.New("database is locked"))
	mock.ExpectRollback()
	mock.ExpectClose()

	_, err = Seed(context.Background(), mockConnector{db: db})
	if err == nil {
		t.Fatal("expected seed error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

type mockConnector struct {
	db *sql.DB
}

func (m mockConnector) Dialect() database.Dialect {
	return database.DialectSQLite
}

func (m mockConnector) Connect(context.Context) (*sql.DB, error) {
	return m.db, nil
}
