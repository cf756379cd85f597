package storage

import (
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"
)

var (
	pathComponentPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]{0,127}$`)
	unsafeKeyChars       = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)
)

// BuildArchivePath lays out result archives by day and database so a bucket
// listing groups them naturally:
//
//	<prefix>/date=2026-02-19/<database>/<table>-<id>.parquet
func BuildArchivePath(prefix, databaseName, table string, at time.Time, id string) (string, error) {
	if err := validatePathComponent(id, "archive id"); err != nil {
		return "", err
	}
	dbComponent := SanitizeComponent(databaseName, "database")
	tableComponent := SanitizeComponent(table, "result")

	ts := at.UTC()
	parts := []string{}
	if cleaned := strings.Trim(strings.TrimSpace(prefix), "/"); cleaned != "" {
		parts = append(parts, cleaned)
	}
	parts = append(parts,
		fmt.Sprintf("date=%04d-%02d-%02d", ts.Year(), ts.Month(), ts.Day()),
		dbComponent,
		fmt.Sprintf("%s-%s.parquet", tableComponent, id),
	)
	return path.Join(parts...), nil
}

// SanitizeComponent replaces characters that are unsafe in object keys and
// falls back when nothing usable remains.
func SanitizeComponent(value, fallback string) string {
	cleaned := unsafeKeyChars.ReplaceAllString(strings.TrimSpace(value), "_")
	cleaned = strings.Trim(cleaned, "._-")
	if len(cleaned) > 128 {
		cleaned = cleaned[:128]
	}
	if !pathComponentPattern.MatchString(cleaned) {
		return fallback
	}
	return cleaned
}

func validatePathComponent(value, field string) error {
	if !pathComponentPattern.MatchString(value) {
		return fmt.Errorf("invalid %s: %q", field, value)
	}
	return nil
}
