package intent

import (
	"regexp"
	"strings"
)

type Operation string

const (
	OperationNone     Operation = "NONE"
	OperationSelect   Operation = "SELECT"
	OperationInsert   Operation = "INSERT"
	OperationUpdate   Operation = "UPDATE"
	OperationDelete   Operation = "DELETE"
	OperationCreate   Operation = "CREATE"
	OperationAlter    Operation = "ALTER"
	OperationDrop     Operation = "DROP"
	OperationTruncate Operation = "TRUNCATE"
	OperationDescribe Operation = "DESCRIBE"
	OperationJoin     Operation = "JOIN"
)

func (o Operation) String() string {
	return string(o)
}

// IsRead reports whether statements of this class return a row set.
func (o Operation) IsRead() bool {
	switch o {
	case OperationSelect, OperationJoin, OperationDescribe:
		return true
	default:
		return false
	}
}

func (o Operation) Detected() bool {
	return o != OperationNone && o != ""
}

func ParseOperation(raw string) (Operation, bool) {
	op := Operation(strings.ToUpper(strings.TrimSpace(raw)))
	switch op {
	case OperationNone, OperationSelect, OperationInsert, OperationUpdate, OperationDelete,
		OperationCreate, OperationAlter, OperationDrop, OperationTruncate, OperationDescribe,
		OperationJoin:
		return op, true
	default:
		return OperationNone, false
	}
}

type Rule struct {
	Name      string
	Operation Operation
	Pattern   *regexp.Regexp
}

func (r Rule) Match(question string) bool {
	return r.Pattern.MatchString(question)
}

const (
	recordNouns = `records?|rows?|entry|entries`
	objectNouns = `tables?|databases?|index(?:es)?|views?`
	memberNouns = `columns?|constraints?|index(?:es)?`
)

// Rules are evaluated in order; earlier rules own the shared vocabulary
// ("drop", "create", "show") before the more generic ones see it.
var rules = []Rule{
	{
		Name:      "join",
		Operation: OperationJoin,
		Pattern:   compile(words(`join(?:s|ed|ing)?`, `combine`, `merge`, `related`)),
	},
	{
		Name:      "read",
		Operation: OperationSelect,
		Pattern: compile(words(`select`, `find`, `show`, `list`, `get`, `display`, `count`,
			`average`, `sum`, `how\s+many`, `how\s+much`)),
	},
	{
		Name:      "insert",
		Operation: OperationInsert,
		Pattern:   compile(words(`insert`, `add`) + `|` + phrase(`create`, `new(?:\s+[\w'-]+)?\s+(?:`+recordNouns+`)`)),
	},
	{
		Name:      "update",
		Operation: OperationUpdate,
		Pattern:   compile(words(`update`, `modify`, `change`, `set`)),
	},
	{
		Name:      "delete",
		Operation: OperationDelete,
		Pattern:   compile(words(`delete`, `remove`) + `|` + phrase(`drop`, recordNouns)),
	},
	{
		Name:      "create",
		Operation: OperationCreate,
		Pattern:   compile(phrase(`create`, objectNouns)),
	},
	{
		Name:      "alter",
		Operation: OperationAlter,
		Pattern: compile(`\balter\s+table\b|\bmodify\s+table\b|` +
			phrase(`add|drop`, memberNouns) + `|` + phrase(`change`, `columns?`)),
	},
	{
		Name:      "drop",
		Operation: OperationDrop,
		Pattern:   compile(phrase(`drop`, objectNouns)),
	},
	{
		Name:      "truncate",
		Operation: OperationTruncate,
		Pattern:   compile(words(`truncate`, `clear`, `empty`)),
	},
	{
		Name:      "describe",
		Operation: OperationDescribe,
		Pattern:   compile(words(`describe`) + `|` + phrase(`show`, `columns|structure`)),
	},
}

func Rules() []Rule {
	out := make([]Rule, len(rules))
	copy(out, rules)
	return out
}

func Classify(question string) Operation {
	op, _ := ClassifyWithRule(question)
	return op
}

// ClassifyWithRule returns the detected class together with the name of the
// rule that matched, or OperationNone and "" when nothing matched.
func ClassifyWithRule(question string) (Operation, string) {
	question = strings.TrimSpace(question)
	if question == "" {
		return OperationNone, ""
	}
	for _, rule := range rules {
		if rule.Match(question) {
			return rule.Operation, rule.Name
		}
	}
	return OperationNone, ""
}

// Vocabulary is the guidance shown when a question cannot be classified.
func Vocabulary() string {
	return strings.Join([]string{
		"SELECT: select, find, show, list, get, display, count, average, sum, how many",
		"INSERT: insert, add, create new record",
		"UPDATE: update, modify, change, set",
		"DELETE: delete, remove, drop record",
		"CREATE: create table/database/index/view",
		"ALTER: alter table, add/drop column, change column",
		"DROP: drop table/database/index/view",
		"TRUNCATE: truncate, clear, empty",
		"DESCRIBE: describe, show columns, show structure",
		"JOIN: join, combine, merge, related",
	}, "\n")
}

func words(alternatives ...string) string {
	return `\b(?:` + strings.Join(alternatives, `|`) + `)\b`
}

// phrase matches head followed by tail with up to three words in between.
func phrase(head, tail string) string {
	return `\b(?:` + head + `)(?:\s+[\w'-]+){0,3}?\s+(?:` + tail + `)\b`
}

func compile(pattern string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)` + pattern)
}
