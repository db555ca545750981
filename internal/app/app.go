package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"geosnag-go/internal/archive"
	"geosnag-go/internal/config"
	"geosnag-go/internal/database"
	"geosnag-go/internal/encryption"
	"geosnag-go/internal/fs"
	"geosnag-go/internal/geosnag"
	"geosnag-go/internal/index"
	"geosnag-go/internal/matchcache"
	"geosnag-go/internal/metadata"
	"geosnag-go/internal/report"
	"geosnag-go/internal/scan"
)

// Overrides are per-invocation settings that do not live in the config file.
// Flags that do (workers, write mode, thresholds) are applied to the Config
// before NewGeoSnagApp is called.
type Overrides struct {
	// Parameters is recorded with the run, e.g. the command line flags.
	Parameters string

	// Reindex ignores the stored scan index for this run.
	Reindex bool

	// Verbose lowers the log threshold to DEBUG.
	Verbose bool

	// Console receives log lines besides the log file. Nil means file only.
	Console io.Writer

	// IDs generates the run UUID. Nil means random UUIDs.
	IDs geosnag.IDGenerator
}

// GeoSnagApp is the application layer between the CLI and GeoSnagService.
// It constructs all dependencies from config, exposes high-level operations
// that accept raw string paths, and manages the DB lifecycle on Close.
type GeoSnagApp struct {
	cfg      *config.Config
	db       *database.SQLiteDatabase
	index    *index.Index
	cache    *matchcache.Cache
	exiftool *metadata.Exiftool
	writers  []geosnag.WriterCandidate
	archives []geosnag.Archive
	enc      geosnag.Encryptor
	service  *geosnag.GeoSnagService
	logger   geosnag.Logger
	clock    geosnag.Clock
	op       *Operation
	logFile  *os.File
}

// NewGeoSnagApp creates a fully wired GeoSnagApp from the given config.
// operation identifies the CLI command being run (e.g. "run", "scan").
// The caller must call Close when done.
func NewGeoSnagApp(ctx context.Context, cfg *config.Config, operation string, ov Overrides) (*GeoSnagApp, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	clock := geosnag.Clock(geosnag.RealClock{})
	ids := ov.IDs
	if ids == nil {
		ids = geosnag.UUIDGenerator{}
	}
	op := NewOperation(operation, ov.Parameters, ids.New(), clock.Now().UTC())

	level := ParseLevel(cfg.LogLevel)
	if ov.Verbose {
		level = slog.LevelDebug
	}
	sl, logFile, err := newLogger(cfg.LogDir, op.UUID, level, ov.Console)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger := &slogAdapter{l: sl}

	a := &GeoSnagApp{
		cfg:     cfg,
		logger:  logger,
		clock:   clock,
		op:      op,
		logFile: logFile,
	}
	if err := a.wire(ctx, ov); err != nil {
		a.closeResources()
		return nil, err
	}
	return a, nil
}

func (a *GeoSnagApp) wire(ctx context.Context, ov Overrides) error {
	cfg := a.cfg

	if et, ok := metadata.ProbeExiftool(ctx, cfg.Exiftool.Path); ok {
		a.exiftool = et
		a.logger.Debug("exiftool found", "path", et.Path(), "version", et.Version())
	} else {
		a.logger.Warn("exiftool not found, EXIF writing unavailable and only JPEG/TIFF metadata readable")
	}
	a.writers = metadata.Writers(a.exiftool, a.logger)

	maxDelta := time.Duration(cfg.Matching.MaxDeltaMinutes * float64(time.Minute))
	cacheOpts := matchcache.Options{
		MaxDelta:      maxDelta,
		MinConfidence: cfg.Matching.MinConfidence,
		Logger:        a.logger,
		Clock:         a.clock,
	}
	if cfg.UseIndex {
		a.index = index.Open(cfg.IndexPath, index.Options{Reindex: ov.Reindex, Logger: a.logger})
		a.cache = matchcache.Open(cfg.MatchCachePath, cacheOpts)
	} else {
		a.index = index.NewMemory()
		a.cache = matchcache.NewMemory(cacheOpts)
	}

	var db geosnag.Database
	if cfg.Database.Type != "" {
		sdb, err := database.NewDatabaseFromConfig(cfg.Database)
		if err != nil {
			return fmt.Errorf("creating database: %w", err)
		}
		a.db = sdb
		a.logger.Debug("run history opened", "path", sdb.Path())
		if err := sdb.CheckMigrations(); err != nil {
			return fmt.Errorf("database schema out of date: %w", err)
		}
		db = sdb
	}

	for _, ac := range cfg.Archives {
		ar, err := archive.NewArchiveFromConfig(ctx, ac)
		if err != nil {
			return fmt.Errorf("creating archive %s: %w", ac.Name, err)
		}
		a.archives = append(a.archives, ar)
	}

	enc, err := encryption.NewEncryptorFromConfig(cfg.Report)
	if err != nil {
		return fmt.Errorf("creating encryptor: %w", err)
	}
	a.enc = enc

	fsmgr := fs.NewOSFilesystemManager(a.logger)
	reader := metadata.NewReader(a.exiftool, a.logger)
	scanner := scan.New(fsmgr, a.index, reader, scan.Options{
		Workers:    cfg.Workers,
		Recursive:  cfg.Recursive,
		Extensions: cfg.Extensions,
		Exclude:    cfg.ExcludePatterns,
		Logger:     a.logger,
	})

	var journal geosnag.WriteJournal
	if db != nil {
		journal = db
	}
	applier := geosnag.NewApplier(a.writers, a.index, a.cache, journal, a.clock, a.logger)
	a.service = geosnag.NewGeoSnagService(scanner, a.index, a.cache, applier, db, a.logger)
	return nil
}

// persistOperation saves the operation to the database, giving it an ID.
// Without a database the operation stays in memory.
func (a *GeoSnagApp) persistOperation() error {
	if a.db == nil || a.op.Persisted() {
		return nil
	}
	run, err := a.db.CreateRun(a.op.UUID, a.op.Name, a.op.Parameters, a.op.StartedAt)
	if err != nil {
		return fmt.Errorf("persisting run: %w", err)
	}
	a.op.ID = run.ID
	return nil
}

// RunParams are the per-run switches of `geosnag run`.
type RunParams struct {
	Apply   bool
	Rematch bool
}

// Run scans, matches and, when p.Apply is set, writes coordinates.
func (a *GeoSnagApp) Run(ctx context.Context, p RunParams) (*geosnag.RunReport, error) {
	if err := a.persistOperation(); err != nil {
		return nil, err
	}
	mode, err := geosnag.ParseWriteMode(a.cfg.WriteMode)
	if err != nil {
		return nil, err
	}

	rep, err := a.service.Run(ctx, geosnag.RunOptions{
		Dirs:          a.cfg.ScanDirs,
		Apply:         p.Apply,
		Mode:          mode,
		MaxDelta:      time.Duration(a.cfg.Matching.MaxDeltaMinutes * float64(time.Minute)),
		MinConfidence: a.cfg.Matching.MinConfidence,
		SkipProcessed: a.cfg.SkipProcessed,
		Rematch:       p.Rematch,
		RunID:         a.op.ID,
	})
	a.track(rep, err)
	return rep, err
}

// Scan scans and classifies the configured directories without matching.
func (a *GeoSnagApp) Scan(ctx context.Context) (*geosnag.RunReport, error) {
	if err := a.persistOperation(); err != nil {
		return nil, err
	}
	rep, err := a.service.Scan(ctx, a.cfg.ScanDirs, geosnag.ClassifyOptions{SkipProcessed: a.cfg.SkipProcessed})
	a.track(rep, err)
	return rep, err
}

func (a *GeoSnagApp) track(rep *geosnag.RunReport, err error) {
	if rep != nil {
		a.op.Counts = rep.Counts
	}
	if err != nil {
		a.op.Fail()
	}
}

// SaveReport writes the CSV for rep. An empty path means a timestamped file
// in the configured report directory. Targets skipped through the match
// cache are listed as UNMATCHED so every report covers all targets.
// Returns the written path.
func (a *GeoSnagApp) SaveReport(ctx context.Context, rep *geosnag.RunReport, path string) (string, error) {
	if rep == nil || rep.Match == nil {
		return "", fmt.Errorf("no match results to report")
	}
	if path == "" {
		path = report.DefaultPath(a.cfg.Report.Dir, a.op.StartedAt)
	}
	saver := report.NewSaver(a.enc, a.archives, a.logger)
	unmatched := make([]*geosnag.PhotoRecord, 0, len(rep.Match.Unmatched)+len(rep.Match.SkippedCached))
	unmatched = append(unmatched, rep.Match.Unmatched...)
	unmatched = append(unmatched, rep.Match.SkippedCached...)
	return saver.Save(ctx, path, a.op.UUID, rep.Match.Results, unmatched)
}

// GetHistory returns the most recent runs.
func (a *GeoSnagApp) GetHistory(limit int) ([]*geosnag.Run, error) {
	return a.service.GetHistory(limit)
}

// GetFileHistory resolves the given path and returns every write to it.
func (a *GeoSnagApp) GetFileHistory(rawPath string) ([]*geosnag.AppliedWrite, error) {
	p, err := filepath.Abs(rawPath)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}
	return a.service.GetFileHistory(p)
}

// IndexStats describes the persisted caches.
type IndexStats struct {
	IndexPath    string
	IndexEntries int
	CachePath    string
	CacheEntries int
}

func (a *GeoSnagApp) IndexStats() IndexStats {
	return IndexStats{
		IndexPath:    a.cfg.IndexPath,
		IndexEntries: a.index.Len(),
		CachePath:    a.cfg.MatchCachePath,
		CacheEntries: a.cache.Len(),
	}
}

// ClearIndex empties the scan index and the match cache, whose verdicts
// depend on indexed metadata.
func (a *GeoSnagApp) ClearIndex() error {
	a.index.Clear()
	a.cache.Clear()
	return errors.Join(a.index.Flush(), a.cache.Flush())
}

// ClearMatchCache drops every remembered no-match verdict.
func (a *GeoSnagApp) ClearMatchCache() error {
	a.cache.Clear()
	return a.cache.Flush()
}

// Exiftool returns the probed binary, or nil.
func (a *GeoSnagApp) Exiftool() *metadata.Exiftool { return a.exiftool }

// Writers returns the write backends with their availability.
func (a *GeoSnagApp) Writers() []geosnag.WriterCandidate { return a.writers }

// Encryptor returns the report encryptor, or nil for plaintext reports.
func (a *GeoSnagApp) Encryptor() geosnag.Encryptor { return a.enc }

// Operation returns the run being tracked.
func (a *GeoSnagApp) Operation() *Operation { return a.op }

// Close finalizes the operation and closes all resources.
func (a *GeoSnagApp) Close() error {
	var firstErr error

	if a.db != nil && a.op.Persisted() {
		if err := a.db.FinishRun(a.op.ID, a.op.Status, a.op.Counts, a.clock.Now().UTC()); err != nil {
			firstErr = fmt.Errorf("finishing run: %w", err)
		}
		if err := a.archiveHistory(context.Background()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := a.closeResources(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// archiveHistory snapshots the run database and stores it in every
// archive under HistoryKey. Archive failures are logged, not returned.
func (a *GeoSnagApp) archiveHistory(ctx context.Context) error {
	if len(a.archives) == 0 {
		return nil
	}

	tmpDir, err := os.MkdirTemp("", "geosnag-history-")
	if err != nil {
		return fmt.Errorf("creating temp dir for history snapshot: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	tmpPath := filepath.Join(tmpDir, "history.db")
	if err := a.db.BackupTo(tmpPath); err != nil {
		return err
	}

	key := geosnag.HistoryKey(a.op.ID)
	for _, ar := range a.archives {
		if err := putFile(ctx, ar, key, tmpPath); err != nil {
			a.logger.Warn("could not archive run history", "archive", ar.Name(), "error", err)
			continue
		}
		a.logger.Info("run history archived", "archive", ar.Name(), "key", key)
	}
	return nil
}

func putFile(ctx context.Context, ar geosnag.Archive, key, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return err
	}
	return ar.PutReport(ctx, key, f, info.Size())
}

func (a *GeoSnagApp) closeResources() error {
	var firstErr error
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			firstErr = fmt.Errorf("closing database: %w", err)
		}
		a.db = nil
	}
	if a.logFile != nil {
		a.logFile.Close()
		a.logFile = nil
	}
	return firstErr
}
