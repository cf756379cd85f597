package pipeline

import "github.com/talk2data/talk2data/internal/query"

// View is the JSON form of an Answer shared by the API and the CLI.
type View struct {
	Question       string      `json:"question"`
	Database       string      `json:"database"`
	Table          string      `json:"table"`
	TableDefaulted bool        `json:"table_defaulted"`
	Operation      string      `json:"operation"`
	SQL            string      `json:"sql"`
	Outcome        OutcomeView `json:"outcome"`
	ArchiveKey     string      `json:"archive_key,omitempty"`
	Trace          []string    `json:"trace"`
	DurationMS     int64       `json:"duration_ms"`
}

type OutcomeView struct {
	Kind         string   `json:"kind"`
	Message      string   `json:"message"`
	Columns      []string `json:"columns,omitempty"`
	Rows         [][]any  `json:"rows,omitempty"`
	RowsAffected int64    `json:"rows_affected"`
	Truncated    bool     `json:"truncated,omitempty"`
	Error        string   `json:"error,omitempty"`
}

func (a Answer) View() View {
	trace := make([]string, 0, len(a.Trace))
	for _, state := range a.Trace {
		trace = append(trace, string(state))
	}
	return View{
		Question:       a.Question,
		Database:       a.Database,
		Table:          a.Table,
		TableDefaulted: a.TableDefaulted,
		Operation:      a.Operation.String(),
		SQL:            a.SQL,
		Outcome:        outcomeView(a.Outcome),
		ArchiveKey:     a.ArchiveKey,
		Trace:          trace,
		DurationMS:     a.Duration.Milliseconds(),
	}
}

func outcomeView(outcome query.Outcome) OutcomeView {
	view := OutcomeView{
		Kind:         outcome.Kind.String(),
		Message:      outcome.Message,
		Columns:      outcome.Columns,
		Rows:         outcome.Rows,
		RowsAffected: outcome.RowsAffected,
		Truncated:    outcome.Truncated,
	}
	if outcome.Err != nil && outcome.Err.Err != nil {
		view.Error = outcome.Err.Err.Error()
	}
	return view
}
