package sample

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/talk2data/talk2data/internal/database"
)

// DefaultFile is the database file name the seed command writes when none is
// given.
const DefaultFile = "employee.db"

//go:embed employee.sql
var employeeSQL string

// Statements returns the seed script split into single statements, in order.
func Statements() []string {
	parts := strings.Split(employeeSQL, ";")
	statements := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			statements = append(statements, trimmed)
		}
	}
	return statements
}

// Seed replaces the EMPLOYEE table with the sample rows and reports how many
// were inserted. All statements run in one transaction.
func Seed(ctx context.Context, connector database.Connector) (int, error) {
	db, err := connector.Connect(ctx)
	if err != nil {
		return 0, err
	}
	defer func() { _ = db.Close() }()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin seed transaction: %w", err)
	}
	inserted := 0
	for _, statement := range Statements() {
		if _, err := tx.ExecContext(ctx, statement); err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("seed statement %q: %w", firstLine(statement), err)
		}
		if strings.HasPrefix(statement, "INSERT") {
			inserted++
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit seed transaction: %w", err)
	}
	return inserted, nil
}

func firstLine(statement string) string {
	if idx := strings.IndexByte(statement, '\n'); idx >= 0 {
		return statement[:idx]
	}
	return statement
}
