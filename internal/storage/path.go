package storage

import (
	"fmt"
	"path"
	"regexp"
	"time"
)

var pathComponentPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]{0,127}$`)

// BuildTranscriptPath lays transcripts out by day so listings stay cheap:
// <prefix>/date=YYYY-MM-DD/<runID>.json.
func BuildTranscriptPath(prefix, runID string, at time.Time) (string, error) {
	if err := validatePathComponent(prefix, "prefix"); err != nil {
		return "", err
	}
	if err := validatePathComponent(runID, "run id"); err != nil {
		return "", err
	}
	ts := at.UTC()
	return path.Join(
		prefix,
		fmt.Sprintf("date=%04d-%02d-%02d", ts.Year(), ts.Month(), ts.Day()),
		runID+".json",
	), nil
}

// BuildExportPath returns <prefix>/<table>/export-<unix nanos>.parquet.
func BuildExportPath(prefix, table string, at time.Time) (string, error) {
	if err := validatePathComponent(prefix, "prefix"); err != nil {
		return "", err
	}
	if err := validatePathComponent(table, "table name"); err != nil {
		return "", err
	}
	return path.Join(prefix, table, fmt.Sprintf("export-%d.parquet", at.UTC().UnixNano())), nil
}

func validatePathComponent(value, field string) error {
	if !pathComponentPattern.MatchString(value) {
		return fmt.Errorf("invalid %s: %q", field, value)
	}
	return nil
}
