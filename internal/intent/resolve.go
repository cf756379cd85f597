package intent

import (
	"regexp"
	"strings"
)

// Resolution is the table a question most likely targets. Defaulted is set
// when no table was named and the first known table was picked instead, so
// callers should treat it as a guess.
type Resolution struct {
	Table     string
	Defaulted bool
}

// ResolveTable returns the first table named as a whole word in the question,
// falling back to the first table in the given order. It reports false only
// when tables is empty.
func ResolveTable(question string, tables []string) (Resolution, bool) {
	for _, table := range tables {
		if mentionsTable(question, table) {
			return Resolution{Table: table}, true
		}
	}
	for _, table := range tables {
		if strings.TrimSpace(table) != "" {
			return Resolution{Table: table, Defaulted: true}, true
		}
	}
	return Resolution{}, false
}

func mentionsTable(question, table string) bool {
	table = strings.TrimSpace(table)
	if table == "" || question == "" {
		return false
	}
	pattern := `(?i)(?:^|[^\w])` + regexp.QuoteMeta(table) + `(?:$|[^\w])`
	matched, err := regexp.MatchString(pattern, question)
	return err == nil && matched
}
