package geosnag

import (
	"context"
	"fmt"
)

// ApplyOptions controls a write pass.
type ApplyOptions struct {
	Mode WriteMode

	// RunID links journal rows to a run; zero disables journaling.
	RunID int64
}

// WriteFailure is a match that could not be written.
type WriteFailure struct {
	Result *MatchResult
	Err    error
}

// ApplyOutcome reports a write pass.
type ApplyOutcome struct {
	Written  []*MatchResult
	Failures []*WriteFailure
}

// Applier writes accepted matches through the selected backends.
type Applier struct {
	writers []WriterCandidate
	index   ScanIndex
	cache   MatchCache
	journal WriteJournal
	clock   Clock
	logger  Logger
}

// NewApplier creates an Applier. writers are in priority order; index, cache
// and journal may be nil.
func NewApplier(writers []WriterCandidate, index ScanIndex, cache MatchCache, journal WriteJournal, clock Clock, logger Logger) *Applier {
	if clock == nil {
		clock = RealClock{}
	}
	if logger == nil {
		logger = NewNopLogger()
	}
	return &Applier{
		writers: writers,
		index:   index,
		cache:   cache,
		journal: journal,
		clock:   clock,
		logger:  logger,
	}
}

// Ready checks that every writer the mode needs is available.
func (a *Applier) Ready(mode WriteMode) error {
	_, err := a.resolve(mode)
	return err
}

func (a *Applier) resolve(mode WriteMode) ([]MetadataWriter, error) {
	var out []MetadataWriter
	for _, kind := range mode.Kinds() {
		w, ok := SelectWriter(kind, a.writers)
		if !ok {
			return nil, fmt.Errorf("%w for %s mode (%s)", ErrNoWriter, mode, kind)
		}
		out = append(out, w)
	}
	return out, nil
}

// Apply writes every result. A failure for one file never stops the batch and
// never touches the caches for that file. Missing backends fail the whole call
// before any file is written.
func (a *Applier) Apply(ctx context.Context, results []*MatchResult, opts ApplyOptions) (*ApplyOutcome, error) {
	writers, err := a.resolve(opts.Mode)
	if err != nil {
		return nil, err
	}
	exifWriter, hasEXIF := SelectWriter(WriterKindEXIF, a.writers)

	out := &ApplyOutcome{}
	for i, r := range results {
		if err := ctx.Err(); err != nil {
			return out, err
		}

		if err := a.applyOne(ctx, r, writers, opts.Mode, exifWriter, hasEXIF); err != nil {
			a.logger.Error("write failed", "path", r.Target.Path(), "error", err)
			out.Failures = append(out.Failures, &WriteFailure{Result: r, Err: err})
		} else {
			out.Written = append(out.Written, r)
			a.afterWrite(r, writers, opts.RunID)
		}

		if (i+1)%50 == 0 {
			a.logger.Info("apply progress",
				"done", i+1, "total", len(results),
				"ok", len(out.Written), "failed", len(out.Failures))
		}
	}
	return out, nil
}

func (a *Applier) applyOne(ctx context.Context, r *MatchResult, writers []MetadataWriter, mode WriteMode, exifWriter MetadataWriter, hasEXIF bool) error {
	if r.Source.GPS == nil {
		return fmt.Errorf("source %s has no coordinate", r.Source.Path())
	}
	coord := *r.Source.GPS
	if !coord.Valid() {
		return fmt.Errorf("%w: %s", ErrInvalidCoordinate, coord)
	}

	stamp := Stamp(a.clock.Now())
	for _, w := range writers {
		opts := WriteOptions{FormatMismatch: r.Target.FormatMismatch}
		// In both mode the EXIF write carries the marker.
		if w.Kind() == WriterKindEXIF || mode == WriteModeXMP {
			opts.Stamp = stamp
		}
		if err := w.WriteGPS(ctx, r.Target.Path(), coord, opts); err != nil {
			return fmt.Errorf("%s: %w", w.Name(), err)
		}
	}

	if mode == WriteModeXMP && hasEXIF {
		if err := exifWriter.MarkProcessed(ctx, r.Target.Path(), stamp); err != nil {
			// The sidecar already carries the marker.
			a.logger.Warn("could not stamp processed marker", "path", r.Target.Path(), "error", err)
		}
	}
	return nil
}

func (a *Applier) afterWrite(r *MatchResult, writers []MetadataWriter, runID int64) {
	path := r.Target.Path()
	if a.index != nil {
		a.index.Forget(path)
	}
	if a.cache != nil {
		a.cache.Invalidate(path)
	}
	a.logger.Debug("coordinate written", "path", path, "source", r.Source.Path())

	if a.journal == nil || runID == 0 {
		return
	}
	method := string(writers[0].Kind())
	if len(writers) > 1 {
		method = string(WriteModeBoth)
	}
	err := a.journal.RecordWrite(&AppliedWrite{
		RunID:        runID,
		TargetPath:   path,
		SourcePath:   r.Source.Path(),
		Latitude:     r.Source.GPS.Latitude,
		Longitude:    r.Source.GPS.Longitude,
		Confidence:   r.Confidence,
		DeltaSeconds: int64(r.Delta.Seconds()),
		Method:       method,
		WrittenAt:    a.clock.Now(),
	})
	if err != nil {
		a.logger.Warn("could not journal write", "path", path, "error", err)
	}
}
