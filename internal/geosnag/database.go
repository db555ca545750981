package geosnag

import (
	"database/sql"
	"time"
)

// Run is one recorded invocation of a run or scan.
type Run struct {
	ID         int64
	RunUUID    string
	Operation  string
	Parameters string
	StartedAt  time.Time
	FinishedAt sql.NullTime
	Status     string
	Counts     Counts
}

// AppliedWrite records a coordinate written to a target file.
type AppliedWrite struct {
	ID           int64
	RunID        int64
	TargetPath   string
	SourcePath   string
	Latitude     float64
	Longitude    float64
	Confidence   float64
	DeltaSeconds int64
	Method       string
	WrittenAt    time.Time
}

// WriteJournal receives successful writes.
type WriteJournal interface {
	RecordWrite(w *AppliedWrite) error
}

// Database stores run history.
type Database interface {
	WriteJournal

	// CreateRun inserts a run in progress and returns it with its ID set.
	CreateRun(runUUID, operation, parameters string, startedAt time.Time) (*Run, error)

	// FinishRun sets the final status and counts.
	FinishRun(id int64, status string, counts Counts, finishedAt time.Time) error

	// ListRuns returns the most recent runs, newest first.
	ListRuns(limit int) ([]*Run, error)

	// FindWritesForPath returns every write to the given target, oldest first.
	FindWritesForPath(targetPath string) ([]*AppliedWrite, error)

	// Close closes the database connection.
	Close() error
}
