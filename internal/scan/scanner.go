// Package scan turns scan roots into a complete, sorted set of photo records,
// serving unchanged files from the scan index and reading the rest through a
// bounded worker pool.
package scan

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"geosnag-go/internal/fs"
	"geosnag-go/internal/geosnag"
)

// DefaultWorkers is the read pool size when none is configured.
const DefaultWorkers = 4

// progressEvery controls how often read progress is logged.
const progressEvery = 500

// Options configures a Scanner.
type Options struct {
	Workers    int
	Recursive  bool
	Extensions []string
	Exclude    []string
	Logger     geosnag.Logger
}

// Scanner implements geosnag.Scanner.
type Scanner struct {
	fsmgr  geosnag.FilesystemManager
	index  geosnag.ScanIndex
	reader geosnag.MetadataReader
	opts   Options
	logger geosnag.Logger
}

// New creates a Scanner.
func New(fsmgr geosnag.FilesystemManager, index geosnag.ScanIndex, reader geosnag.MetadataReader, opts Options) *Scanner {
	if opts.Workers < 1 {
		opts.Workers = DefaultWorkers
	}
	logger := opts.Logger
	if logger == nil {
		logger = geosnag.NewNopLogger()
	}
	return &Scanner{
		fsmgr:  fsmgr,
		index:  index,
		reader: reader,
		opts:   opts,
		logger: logger,
	}
}

type readResult struct {
	md  *geosnag.Metadata
	err error
}

// Scan walks dirs and returns every candidate's record, sorted by path.
// Missing directories are logged and skipped. Per-file read failures become
// unreadable records; they never fail the scan and are not indexed.
func (s *Scanner) Scan(ctx context.Context, dirs []string) (*geosnag.ScanResult, error) {
	candidates, err := s.collect(dirs)
	if err != nil {
		return nil, err
	}

	result := &geosnag.ScanResult{}
	records := make([]*geosnag.PhotoRecord, len(candidates))

	var pending []int
	for i, id := range candidates {
		if md, ok := s.index.Lookup(id); ok {
			records[i] = &geosnag.PhotoRecord{Identity: id, Metadata: *md}
			result.Cached++
			continue
		}
		pending = append(pending, i)
	}

	s.logger.Info("scan started",
		"files", len(candidates),
		"cached", result.Cached,
		"to_read", len(pending),
		"workers", s.opts.Workers)

	// Each task owns one slot; the slice is only read after Wait.
	reads := make([]readResult, len(pending))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Workers)
	var completed atomic.Int64

	for slot, i := range pending {
		if gctx.Err() != nil {
			break
		}
		path := candidates[i].Path
		g.Go(func() error {
			md, err := s.reader.ReadMetadata(gctx, path)
			if err == nil && md == nil {
				err = errors.New("reader returned no metadata")
			}
			reads[slot] = readResult{md: md, err: err}
			if done := completed.Add(1); done%progressEvery == 0 {
				s.logger.Info("scan progress", "read", done, "total", len(pending))
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("scan interrupted: %w", err)
	}

	// Single-threaded from here on: the index is only touched after the barrier.
	for slot, i := range pending {
		id := candidates[i]
		r := reads[slot]
		if r.err != nil {
			s.logger.Warn("failed to read metadata", "path", id.Path, "error", r.err)
			records[i] = &geosnag.PhotoRecord{Identity: id, ReadError: r.err.Error()}
			result.Failed++
			continue
		}
		s.index.Record(id, r.md)
		records[i] = &geosnag.PhotoRecord{Identity: id, Metadata: *r.md}
		result.Read++
	}

	sort.Slice(records, func(i, j int) bool { return records[i].Path() < records[j].Path() })
	result.Records = records

	s.logger.Info("scan complete",
		"files", len(records),
		"cached", result.Cached,
		"read", result.Read,
		"failed", result.Failed)

	return result, nil
}

// collect gathers candidates from every root, dropping duplicates that
// appear under overlapping roots.
func (s *Scanner) collect(dirs []string) ([]geosnag.FileIdentity, error) {
	walk := geosnag.WalkOptions{
		Recursive:  s.opts.Recursive,
		Extensions: s.opts.Extensions,
		Exclude:    s.opts.Exclude,
	}

	seen := make(map[string]bool)
	var out []geosnag.FileIdentity
	for _, dir := range dirs {
		ids, err := s.fsmgr.FindPhotos(dir, walk)
		if err != nil {
			if errors.Is(err, fs.ErrRootNotFound) {
				s.logger.Warn("directory not found, skipping", "path", dir)
				continue
			}
			return nil, fmt.Errorf("finding photos in %s: %w", dir, err)
		}
		for _, id := range ids {
			if seen[id.Path] {
				continue
			}
			seen[id.Path] = true
			out = append(out, id)
		}
	}
	return out, nil
}

// Compile-time check that Scanner implements geosnag.Scanner interface
var _ geosnag.Scanner = (*Scanner)(nil)
