// Package matchcache remembers targets that found no acceptable source so
// unchanged targets are not re-evaluated while the source set is unchanged.
package matchcache

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"geosnag-go/internal/fs"
	"geosnag-go/internal/geosnag"
)

const formatVersion = 1

type document struct {
	Version         int               `json:"version"`
	MaxDeltaMinutes float64           `json:"max_delta_minutes"`
	MinConfidence   float64           `json:"min_confidence"`
	Entries         map[string]*entry `json:"entries"`
}

type entry struct {
	Size        int64     `json:"size"`
	MtimeNS     int64     `json:"mtime_ns"`
	Fingerprint string    `json:"fingerprint"`
	RecordedAt  time.Time `json:"recorded_at"`
}

// Options identifies the match settings verdicts were produced under.
type Options struct {
	MaxDelta      time.Duration
	MinConfidence float64

	Logger geosnag.Logger
	Clock  geosnag.Clock
}

// Cache is a MatchCache backed by a single JSON document.
type Cache struct {
	path    string
	opts    Options
	entries map[string]*entry
	dirty   bool
	logger  geosnag.Logger
	clock   geosnag.Clock
}

// Open loads the cache at path. A missing or corrupt file, or one written
// under different match settings, yields an empty cache.
func Open(path string, opts Options) *Cache {
	c := newCache(path, opts)

	stored, err := c.load()
	switch {
	case err != nil:
		c.logger.Warn("match cache unusable, starting empty", "path", path, "error", err)
		c.entries = make(map[string]*entry)
		c.dirty = true
	case stored != nil && !c.sameSettings(stored):
		c.logger.Info("match settings changed, clearing match cache",
			"old_max_delta_minutes", stored.MaxDeltaMinutes,
			"new_max_delta_minutes", opts.MaxDelta.Minutes(),
			"old_min_confidence", stored.MinConfidence,
			"new_min_confidence", opts.MinConfidence)
		c.entries = make(map[string]*entry)
		c.dirty = true
	}
	return c
}

// NewMemory returns a cache that is never persisted.
func NewMemory(opts Options) *Cache {
	return newCache("", opts)
}

func newCache(path string, opts Options) *Cache {
	logger := opts.Logger
	if logger == nil {
		logger = geosnag.NewNopLogger()
	}
	clock := opts.Clock
	if clock == nil {
		clock = geosnag.RealClock{}
	}
	return &Cache{
		path:    path,
		opts:    opts,
		entries: make(map[string]*entry),
		logger:  logger,
		clock:   clock,
	}
}

func (c *Cache) load() (*document, error) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading match cache: %w", err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding match cache: %w", err)
	}
	if doc.Version != formatVersion {
		return nil, fmt.Errorf("match cache version %d, want %d", doc.Version, formatVersion)
	}
	for path, e := range doc.Entries {
		if e != nil && e.Fingerprint != "" {
			c.entries[path] = e
		}
	}
	return &doc, nil
}

func (c *Cache) sameSettings(doc *document) bool {
	return doc.MaxDeltaMinutes == c.opts.MaxDelta.Minutes() &&
		doc.MinConfidence == c.opts.MinConfidence
}

// IsKnownUnmatched reports whether target was recorded as unmatched with the
// same identity and the same sources fingerprint.
func (c *Cache) IsKnownUnmatched(target geosnag.FileIdentity, fingerprint string) bool {
	e, ok := c.entries[target.Path]
	if !ok {
		return false
	}
	return target.SameState(e.Size, e.MtimeNS) && e.Fingerprint == fingerprint
}

// RecordUnmatched stores a no-match verdict for target.
func (c *Cache) RecordUnmatched(target geosnag.FileIdentity, fingerprint string) {
	c.entries[target.Path] = &entry{
		Size:        target.Size,
		MtimeNS:     target.ModTime.UnixNano(),
		Fingerprint: fingerprint,
		RecordedAt:  c.clock.Now().UTC(),
	}
	c.dirty = true
}

// Invalidate drops the verdict for path.
func (c *Cache) Invalidate(path string) {
	if _, ok := c.entries[path]; ok {
		delete(c.entries, path)
		c.dirty = true
	}
}

// Clear drops every verdict.
func (c *Cache) Clear() {
	if len(c.entries) > 0 {
		c.entries = make(map[string]*entry)
	}
	c.dirty = true
}

// Prune drops verdicts for paths keep rejects.
func (c *Cache) Prune(keep func(path string) bool) int {
	n := 0
	for path := range c.entries {
		if !keep(path) {
			delete(c.entries, path)
			n++
		}
	}
	if n > 0 {
		c.dirty = true
	}
	return n
}

// Len returns the number of cached verdicts.
func (c *Cache) Len() int {
	return len(c.entries)
}

// Flush writes the cache atomically if anything changed.
func (c *Cache) Flush() error {
	if c.path == "" || !c.dirty {
		return nil
	}

	data, err := json.Marshal(&document{
		Version:         formatVersion,
		MaxDeltaMinutes: c.opts.MaxDelta.Minutes(),
		MinConfidence:   c.opts.MinConfidence,
		Entries:         c.entries,
	})
	if err != nil {
		return fmt.Errorf("encoding match cache: %w", err)
	}
	if err := fs.WriteFileAtomic(c.path, bytes.NewReader(data), 0644); err != nil {
		return fmt.Errorf("writing match cache: %w", err)
	}

	c.dirty = false
	c.logger.Debug("match cache saved", "path", c.path, "entries", len(c.entries))
	return nil
}

// Compile-time check that Cache implements geosnag.MatchCache interface
var _ geosnag.MatchCache = (*Cache)(nil)
