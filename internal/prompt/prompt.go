package prompt

import (
	"fmt"
	"strings"

	"github.com/talk2data/talk2data/internal/intent"
	"github.com/talk2data/talk2data/internal/schema"
)

// Directive is the instruction block sent ahead of the user's question.
// Skip means the question could not be classified and no completion should
// be requested for it.
type Directive struct {
	Text      string
	Table     string
	Operation intent.Operation
	Skip      bool
}

const roleInstruction = "You are an expert in converting English questions to SQL queries!"

var outputRules = []string{
	"Return only the SQL statement, nothing else.",
	"Do not include explanations or any prose.",
	"Do not wrap the statement in markdown or backticks (```).",
	"Do not prefix the statement with the word 'SQL'.",
}

func Assemble(snapshot schema.Snapshot, table string, op intent.Operation) Directive {
	if !op.Detected() {
		return Directive{Operation: intent.OperationNone, Skip: true}
	}

	var b strings.Builder
	b.WriteString(roleInstruction)
	b.WriteString("\n")
	if snapshot.Dialect != "" {
		fmt.Fprintf(&b, "The database engine is %s.\n", snapshot.Dialect.Label())
	}

	b.WriteString("\nThe database has the following tables:\n")
	if snapshot.Empty() {
		b.WriteString("(no tables yet)\n")
	}
	for _, t := range snapshot.Tables {
		fmt.Fprintf(&b, "- %s(%s)\n", t.Name, strings.Join(t.Columns, ", "))
	}

	table = strings.TrimSpace(table)
	if table != "" {
		fmt.Fprintf(&b, "\nThe question most likely refers to the table %s.\n", table)
	}
	fmt.Fprintf(&b, "The requested operation is %s.\n", op)

	if examples := examplesFor(snapshot, table); len(examples) > 0 {
		b.WriteString("\nExamples:\n")
		for _, example := range examples {
			fmt.Fprintf(&b, "- %s\n", example)
		}
	}

	b.WriteString("\nRules:\n")
	for _, rule := range outputRules {
		fmt.Fprintf(&b, "- %s\n", rule)
	}

	return Directive{
		Text:      b.String(),
		Table:     table,
		Operation: op,
	}
}

func examplesFor(snapshot schema.Snapshot, table string) []string {
	if table == "" {
		return nil
	}
	columns, ok := snapshot.Columns(table)
	if !ok || len(columns) == 0 {
		return nil
	}
	examples := []string{
		fmt.Sprintf("%q → SELECT COUNT(*) FROM %s;", "How many rows are in "+table+"?", table),
		fmt.Sprintf("%q → SELECT * FROM %s;", "List all "+table+" records", table),
	}
	if len(columns) > 1 {
		examples = append(examples, fmt.Sprintf("%q → SELECT %s, %s FROM %s;",
			"Show the "+columns[0]+" and "+columns[1]+" of every "+table, columns[0], columns[1], table))
	}
	return examples
}
