package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"geosnag-go/internal/database/migrations"
	"geosnag-go/internal/geosnag"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteDatabase implements the Database interface using SQLite.
type SQLiteDatabase struct {
	db   *sql.DB
	path string
}

// NewSQLiteDatabase opens the database at path and migrates it to the latest
// schema. path can be a file path or ":memory:" for an in-memory database.
func NewSQLiteDatabase(path string) (*SQLiteDatabase, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteDatabase{db: db, path: path}, nil
}

// NewSQLiteDatabaseFromDB wraps an existing database connection.
// The caller is responsible for ensuring the connection is properly configured.
func NewSQLiteDatabaseFromDB(db *sql.DB) *SQLiteDatabase {
	return &SQLiteDatabase{db: db}
}

// OpenConnection opens and configures a SQLite database connection with appropriate PRAGMAs.
// path can be a file path or ":memory:" for in-memory database.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Every ":memory:" connection is its own database.
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	// Enable foreign key constraints (SQLite default is OFF for backward compatibility)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return db, nil
}

// Run operations

const runColumns = `id, run_uuid, operation, parameters, started_at, finished_at, status,
	records, sources, targets, processed, skipped, unreadable,
	matched, skipped_cached, unmatched, written, write_failures`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*geosnag.Run, error) {
	var r geosnag.Run
	c := &r.Counts
	err := row.Scan(&r.ID, &r.RunUUID, &r.Operation, &r.Parameters, &r.StartedAt, &r.FinishedAt, &r.Status,
		&c.Records, &c.Sources, &c.Targets, &c.Processed, &c.Skipped, &c.Unreadable,
		&c.Matched, &c.SkippedCached, &c.Unmatched, &c.Written, &c.WriteFailures)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *SQLiteDatabase) CreateRun(runUUID, operation, parameters string, startedAt time.Time) (*geosnag.Run, error) {
	ctx := context.Background()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (run_uuid, operation, parameters, started_at, status) VALUES (?, ?, ?, ?, 'running')`,
		runUUID, operation, parameters, startedAt.UTC())
	if err != nil {
		return nil, fmt.Errorf("creating run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("creating run: %w", err)
	}

	run, err := scanRun(s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id))
	if err != nil {
		return nil, fmt.Errorf("reading created run: %w", err)
	}
	return run, nil
}

func (s *SQLiteDatabase) FinishRun(id int64, status string, counts geosnag.Counts, finishedAt time.Time) error {
	res, err := s.db.ExecContext(context.Background(), `
		UPDATE runs SET
			finished_at = ?, status = ?,
			records = ?, sources = ?, targets = ?, processed = ?, skipped = ?, unreadable = ?,
			matched = ?, skipped_cached = ?, unmatched = ?, written = ?, write_failures = ?
		WHERE id = ?`,
		finishedAt.UTC(), status,
		counts.Records, counts.Sources, counts.Targets, counts.Processed, counts.Skipped, counts.Unreadable,
		counts.Matched, counts.SkippedCached, counts.Unmatched, counts.Written, counts.WriteFailures,
		id)
	if err != nil {
		return fmt.Errorf("finishing run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("finishing run: no run with id %d", id)
	}
	return nil
}

func (s *SQLiteDatabase) ListRuns(limit int) ([]*geosnag.Run, error) {
	rows, err := s.db.QueryContext(context.Background(),
		`SELECT `+runColumns+` FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []*geosnag.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("listing runs: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	return runs, nil
}

// Write journal

func (s *SQLiteDatabase) RecordWrite(w *geosnag.AppliedWrite) error {
	res, err := s.db.ExecContext(context.Background(), `
		INSERT INTO applied_writes
			(run_id, target_path, source_path, latitude, longitude, confidence, delta_seconds, method, written_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		w.RunID, w.TargetPath, w.SourcePath, w.Latitude, w.Longitude, w.Confidence, w.DeltaSeconds, w.Method,
		w.WrittenAt.UTC())
	if err != nil {
		return fmt.Errorf("recording write: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("recording write: %w", err)
	}
	w.ID = id
	return nil
}

func (s *SQLiteDatabase) FindWritesForPath(targetPath string) ([]*geosnag.AppliedWrite, error) {
	rows, err := s.db.QueryContext(context.Background(), `
		SELECT id, run_id, target_path, source_path, latitude, longitude, confidence, delta_seconds, method, written_at
		FROM applied_writes
		WHERE target_path = ?
		ORDER BY written_at, id`, targetPath)
	if err != nil {
		return nil, fmt.Errorf("finding writes: %w", err)
	}
	defer rows.Close()

	var writes []*geosnag.AppliedWrite
	for rows.Next() {
		var w geosnag.AppliedWrite
		if err := rows.Scan(&w.ID, &w.RunID, &w.TargetPath, &w.SourcePath, &w.Latitude, &w.Longitude,
			&w.Confidence, &w.DeltaSeconds, &w.Method, &w.WrittenAt); err != nil {
			return nil, fmt.Errorf("finding writes: %w", err)
		}
		writes = append(writes, &w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("finding writes: %w", err)
	}
	return writes, nil
}

// Path returns the database file path (or ":memory:" for in-memory databases).
func (s *SQLiteDatabase) Path() string {
	return s.path
}

// CheckMigrations verifies the database schema is up-to-date.
func (s *SQLiteDatabase) CheckMigrations() error {
	return migrations.CheckDBMigrationStatus(s.db)
}

// BackupTo creates a complete copy of the database at destPath using VACUUM INTO.
func (s *SQLiteDatabase) BackupTo(destPath string) error {
	_, err := s.db.Exec("VACUUM INTO ?", destPath)
	if err != nil {
		return fmt.Errorf("backing up database: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteDatabase) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Compile-time check that SQLiteDatabase implements geosnag.Database interface
var _ geosnag.Database = (*SQLiteDatabase)(nil)
