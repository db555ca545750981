package geosnag

import (
	"context"
	"fmt"
	"io"
)

// Archive stores finished run reports away from the scanned library.
// Keys are slash separated, e.g. "reports/<run uuid>.csv.age" or
// "history/000042.db".
type Archive interface {
	Name() string

	// PutReport stores a report under key, replacing any existing one.
	// size is the number of bytes that will be read from r.
	PutReport(ctx context.Context, key string, r io.Reader, size int64) error

	// GetReport writes the report stored under key to w.
	GetReport(ctx context.Context, key string, w io.Writer) error

	// ListReports returns every stored key, sorted.
	ListReports(ctx context.Context) ([]string, error)

	// ValidateSetup verifies that the archive is reachable and writable.
	ValidateSetup(ctx context.Context) error
}

// ReportKey returns the archive key for a run's report.
func ReportKey(runUUID, ext string) string {
	return "reports/" + runUUID + ".csv" + ext
}

// HistoryKey returns the archive key for the history snapshot taken after
// the given run.
func HistoryKey(runID int64) string {
	return fmt.Sprintf("history/%06d.db", runID)
}
