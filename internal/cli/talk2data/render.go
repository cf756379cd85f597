package talk2data

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pterm/pterm"

	"github.com/talk2data/talk2data/internal/catalog"
	"github.com/talk2data/talk2data/internal/pipeline"
	"github.com/talk2data/talk2data/internal/query"
	"github.com/talk2data/talk2data/internal/schema"
)

func renderAnswer(answer pipeline.Answer) string {
	var b strings.Builder
	if answer.Operation.Detected() {
		table := answer.Table
		if answer.TableDefaulted {
			table += " (guessed)"
		}
		b.WriteString(pterm.FgGray.Sprintf("%s on %s\n", answer.Operation, table))
	}
	if answer.SQL != "" {
		b.WriteString(pterm.FgCyan.Sprintln(answer.SQL))
	}

	outcome := answer.Outcome
	switch outcome.Kind {
	case query.KindRows:
		if rendered, err := renderRows(outcome.Columns, outcome.Rows); err == nil {
			b.WriteString(rendered + "\n")
		}
		if outcome.Truncated {
			b.WriteString(pterm.Warning.Sprintfln("Showing the first %d rows only.", len(outcome.Rows)))
		}
	case query.KindNoRows, query.KindAffected:
		b.WriteString(pterm.Success.Sprintln(outcome.Message))
	case query.KindClassificationMiss:
		b.WriteString(pterm.Warning.Sprintln(outcome.Message))
	default:
		b.WriteString(pterm.Error.Sprintln(outcome.Message))
	}
	return b.String()
}

func renderRows(columns []string, rows [][]any) (string, error) {
	data := pterm.TableData{columns}
	for _, row := range rows {
		cells := make([]string, len(row))
		for i, value := range row {
			cells[i] = formatValue(value)
		}
		data = append(data, cells)
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
}

func renderSchema(name string, snapshot schema.Snapshot) (string, error) {
	if snapshot.Empty() {
		return pterm.Warning.Sprintfln("%s has no tables yet", name), nil
	}
	data := pterm.TableData{{"Table", "Columns"}}
	for _, table := range snapshot.Tables {
		data = append(data, []string{table.Name, strings.Join(table.Columns, ", ")})
	}
	rendered, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return "", err
	}
	header := pterm.FgGray.Sprintf("%s (%s)\n", name, snapshot.Dialect.Label())
	return header + rendered + "\n", nil
}

func renderDatabases(entries []catalog.Entry) (string, error) {
	if len(entries) == 0 {
		return pterm.Warning.Sprintln("No databases found. Run `talk2data seed` to create employee.db."), nil
	}
	data := pterm.TableData{{"", "Name", "Engine", "Size"}}
	for _, entry := range entries {
		marker := ""
		if entry.Default {
			marker = "*"
		}
		size := "-"
		if entry.SizeBytes > 0 {
			size = strconv.FormatInt(entry.SizeBytes, 10)
		}
		data = append(data, []string{marker, entry.Name, entry.Dialect.Label(), size})
	}
	rendered, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return "", err
	}
	return rendered + "\n", nil
}

func formatValue(value any) string {
	switch v := value.(type) {
	case nil:
		return "NULL"
	case string:
		return v
	case []byte:
		return string(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}
