package geosnag

import (
	"context"
	"fmt"
	"time"
)

// GeoSnagService runs the scan, classify, match and apply pipeline.
type GeoSnagService struct {
	scanner Scanner
	index   ScanIndex
	cache   MatchCache
	matcher *Matcher
	applier *Applier
	db      Database
	logger  Logger
}

// NewGeoSnagService creates a new service with the provided dependencies.
// cache, applier and db may be nil.
func NewGeoSnagService(scanner Scanner, index ScanIndex, cache MatchCache, applier *Applier, db Database, logger Logger) *GeoSnagService {
	if logger == nil {
		logger = NewNopLogger()
	}
	return &GeoSnagService{
		scanner: scanner,
		index:   index,
		cache:   cache,
		matcher: NewMatcher(cache, logger),
		applier: applier,
		db:      db,
		logger:  logger,
	}
}

// RunOptions configures one pipeline run.
type RunOptions struct {
	Dirs []string

	Apply bool
	Mode  WriteMode

	MaxDelta      time.Duration
	MinConfidence float64

	SkipProcessed bool

	// Rematch drops every cached no-match verdict before matching.
	Rematch bool

	// RunID links journaled writes to a recorded run.
	RunID int64
}

// RunReport is everything a run produced.
type RunReport struct {
	Scan           *ScanResult
	Classification *Classification
	Match          *MatchOutcome
	Apply          *ApplyOutcome

	Pruned     int
	SourceDays int
	Counts     Counts
	Summary    MatchSummary
}

// Run executes the pipeline. In apply mode a missing writer fails the run
// before the scan starts.
func (s *GeoSnagService) Run(ctx context.Context, opts RunOptions) (*RunReport, error) {
	if opts.Apply {
		if s.applier == nil {
			return nil, ErrNoWriter
		}
		if err := s.applier.Ready(opts.Mode); err != nil {
			return nil, err
		}
	}

	report, err := s.scanAndClassify(ctx, opts.Dirs, ClassifyOptions{SkipProcessed: opts.SkipProcessed})
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if opts.Rematch {
			s.logger.Info("clearing match cache")
			s.cache.Clear()
		}
		s.cache.Prune(recordSet(report.Scan.Records))
	}

	report.Match = s.matcher.Match(report.Classification.Targets, report.Classification.Sources, MatchOptions{
		MaxDelta:      opts.MaxDelta,
		MinConfidence: opts.MinConfidence,
	})

	if s.cache != nil {
		if err := s.cache.Flush(); err != nil {
			s.logger.Warn("could not save match cache", "error", err)
		}
	}

	if opts.Apply && len(report.Match.Results) > 0 {
		s.logger.Info("applying matches", "count", len(report.Match.Results), "mode", string(opts.Mode))
		applied, err := s.applier.Apply(ctx, report.Match.Results, ApplyOptions{Mode: opts.Mode, RunID: opts.RunID})
		report.Apply = applied
		if flushErr := s.index.Flush(); flushErr != nil {
			s.logger.Warn("could not save scan index", "error", flushErr)
		}
		if err != nil {
			report.finish()
			return report, fmt.Errorf("applying matches: %w", err)
		}
	}

	report.finish()
	return report, nil
}

// Scan scans and classifies without matching.
func (s *GeoSnagService) Scan(ctx context.Context, dirs []string, opts ClassifyOptions) (*RunReport, error) {
	report, err := s.scanAndClassify(ctx, dirs, opts)
	if err != nil {
		return nil, err
	}
	report.finish()
	return report, nil
}

func (s *GeoSnagService) scanAndClassify(ctx context.Context, dirs []string, opts ClassifyOptions) (*RunReport, error) {
	scanned, err := s.scanner.Scan(ctx, dirs)
	if err != nil {
		return nil, fmt.Errorf("scanning: %w", err)
	}

	pruned := s.index.Prune(recordSet(scanned.Records))
	if pruned > 0 {
		s.logger.Info("pruned stale index entries", "count", pruned)
	}

	// Classification only starts once the index reflects this scan.
	if err := s.index.Flush(); err != nil {
		s.logger.Warn("could not save scan index", "error", err)
	}

	cls := Classify(scanned.Records, opts)
	s.logger.Info("scan classified",
		"records", len(scanned.Records),
		"sources", len(cls.Sources),
		"targets", len(cls.Targets),
		"processed", len(cls.Processed),
		"skipped", len(cls.Skipped),
		"unreadable", len(cls.Unreadable))

	return &RunReport{
		Scan:           scanned,
		Classification: cls,
		Pruned:         pruned,
		SourceDays:     cls.SourceDays(),
	}, nil
}

func (r *RunReport) finish() {
	c := r.Classification
	r.Counts = Counts{
		Records:    len(r.Scan.Records),
		Sources:    len(c.Sources),
		Targets:    len(c.Targets),
		Processed:  len(c.Processed),
		Skipped:    len(c.Skipped),
		Unreadable: len(c.Unreadable),
	}
	if r.Match != nil {
		r.Counts.Matched = len(r.Match.Results)
		r.Counts.SkippedCached = len(r.Match.SkippedCached)
		r.Counts.Unmatched = len(r.Match.Unmatched)
		r.Summary = Summarize(r.Match.Results)
	}
	if r.Apply != nil {
		r.Counts.Written = len(r.Apply.Written)
		r.Counts.WriteFailures = len(r.Apply.Failures)
	}
}

func recordSet(records []*PhotoRecord) func(string) bool {
	seen := make(map[string]struct{}, len(records))
	for _, r := range records {
		seen[r.Path()] = struct{}{}
	}
	return func(path string) bool {
		_, ok := seen[path]
		return ok
	}
}
