// Package index persists scanned photo metadata between runs so that files
// whose size and modification time are unchanged are not read again.
package index

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

// formatVersion is bumped whenever entry semantics change. A file with any
// other version is discarded.
const formatVersion = 1

type document struct {
	Version     int               `json:"version"`
	GeneratedAt time.Time         `json:"generated_at"`
	Entries     map[string]*entry `json:"entries"`
}

type entry struct {
	Size    int64 `json:"size"`
	MtimeNS int64 `json:"mtime_ns"`

	CaptureTime string   `json:"capture_time,omitempty"`
	HasGPS      bool     `json:"has_gps"`
	Latitude    *float64 `json:"latitude,omitempty"`
	Longitude   *float64 `json:"longitude,omitempty"`
	Altitude    *float64 `json:"altitude,omitempty"`

	CameraMake     string `json:"camera_make,omitempty"`
	CameraModel    string `json:"camera_model,omitempty"`
	Processed      bool   `json:"processed"`
	FormatMismatch string `json:"format_mismatch,omitempty"`
}

// Options controls how an index is opened.
type Options struct {
	// Reindex ignores whatever is on disk; the next Flush overwrites it.
	Reindex bool

	Logger geosnag.Logger
}

// Index is a ScanIndex backed by a single JSON document.
// It is not safe for concurrent use; the scanner mutates it only after its
// worker pool has drained.
type Index struct {
	path    string
	entries map[string]*entry
	dirty   bool
	logger  geosnag.Logger

	hits   int
	misses int
}

// Open loads the index at path. A missing, unreadable or corrupt file yields
// an empty index and never an error.
func Open(path string, opts Options) *Index {
	logger := opts.Logger
	if logger == nil {
		logger = geosnag.NewNopLogger()
	}
	idx := &Index{
		path:    path,
		entries: make(map[string]*entry),
		logger:  logger,
	}

	if opts.Reindex {
		logger.Info("reindex requested, ignoring scan index", "path", path)
		idx.dirty = true
		return idx
	}

	if err := idx.load(); err != nil {
		logger.Warn("scan index unusable, starting empty", "path", path, "error", err)
		idx.entries = make(map[string]*entry)
		idx.dirty = true
		return idx
	}

	logger.Debug("scan index loaded", "path", path, "entries", len(idx.entries))
	return idx
}

// NewMemory returns an index that is never persisted.
func NewMemory() *Index {
	return &Index{
		entries: make(map[string]*entry),
		logger:  geosnag.NewNopLogger(),
	}
}

func (idx *Index) load() error {
	data, err := os.ReadFile(idx.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("reading index: %w", err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("decoding index: %w", err)
	}
	if doc.Version != formatVersion {
		return fmt.Errorf("index version %d, want %d", doc.Version, formatVersion)
	}
	for path, e := range doc.Entries {
		if e != nil {
			idx.entries[path] = e
		}
	}
	return nil
}

// Lookup returns cached metadata when the entry matches id's size and mtime.
func (idx *Index) Lookup(id geosnag.FileIdentity) (*geosnag.Metadata, bool) {
	e, ok := idx.entries[id.Path]
	if !ok || !id.SameState(e.Size, e.MtimeNS) {
		idx.misses++
		return nil, false
	}
	md, err := e.metadata()
	if err != nil {
		idx.misses++
		return nil, false
	}
	idx.hits++
	return md, true
}

// Record replaces the entry for id.Path.
func (idx *Index) Record(id geosnag.FileIdentity, md *geosnag.Metadata) {
	idx.entries[id.Path] = newEntry(id, md)
	idx.dirty = true
}

// Forget drops the entry for path.
func (idx *Index) Forget(path string) {
	if _, ok := idx.entries[path]; ok {
		delete(idx.entries, path)
		idx.dirty = true
	}
}

// Prune drops entries for paths keep rejects.
func (idx *Index) Prune(keep func(path string) bool) int {
	n := 0
	for path := range idx.entries {
		if !keep(path) {
			delete(idx.entries, path)
			n++
		}
	}
	if n > 0 {
		idx.dirty = true
	}
	return n
}

// Clear drops every entry.
func (idx *Index) Clear() {
	idx.entries = make(map[string]*entry)
	idx.dirty = true
}

// Len returns the number of entries.
func (idx *Index) Len() int {
	return len(idx.entries)
}

// Hits returns the number of successful lookups since Open.
func (idx *Index) Hits() int { return idx.hits }

// Misses returns the number of failed lookups since Open.
func (idx *Index) Misses() int { return idx.misses }

// Path returns the backing file, or "" for a memory index.
func (idx *Index) Path() string { return idx.path }

// Flush writes the index atomically if anything changed.
func (idx *Index) Flush() error {
	if idx.path == "" || !idx.dirty {
		return nil
	}

	data, err := json.Marshal(&document{
		Version:     formatVersion,
		GeneratedAt: time.Now().UTC(),
		Entries:     idx.entries,
	})
	if err != nil {
		return fmt.Errorf("encoding index: %w", err)
	}
	if err := fs.WriteFileAtomic(idx.path, bytes.NewReader(data), 0644); err != nil {
		return fmt.Errorf("writing index: %w", err)
	}

	idx.dirty = false
	idx.logger.Debug("scan index saved", "path", idx.path, "entries", len(idx.entries))
	return nil
}

func newEntry(id geosnag.FileIdentity, md *geosnag.Metadata) *entry {
	e := &entry{
		Size:           id.Size,
		MtimeNS:        id.ModTime.UnixNano(),
		CameraMake:     md.CameraMake,
		CameraModel:    md.CameraModel,
		Processed:      md.Processed,
		FormatMismatch: md.FormatMismatch,
	}
	if md.CaptureTime != nil {
		e.CaptureTime = md.CaptureTime.Format(geosnag.NaiveTimeLayout)
	}
	if md.GPS != nil {
		lat, lon := md.GPS.Latitude, md.GPS.Longitude
		e.HasGPS = true
		e.Latitude = &lat
		e.Longitude = &lon
		if md.GPS.Altitude != nil {
			alt := *md.GPS.Altitude
			e.Altitude = &alt
		}
	}
	return e
}

func (e *entry) metadata() (*geosnag.Metadata, error) {
	md := &geosnag.Metadata{
		CameraMake:     e.CameraMake,
		CameraModel:    e.CameraModel,
		Processed:      e.Processed,
		FormatMismatch: e.FormatMismatch,
	}
	if e.CaptureTime != "" {
		t, err := geosnag.ParseNaiveTime(e.CaptureTime)
		if err != nil {
			return nil, fmt.Errorf("parsing capture time: %w", err)
		}
		md.CaptureTime = &t
	}
	if e.HasGPS {
		if e.Latitude == nil || e.Longitude == nil {
			return nil, fmt.Errorf("entry has gps flag without coordinates")
		}
		coord := &geosnag.Coordinate{Latitude: *e.Latitude, Longitude: *e.Longitude}
		if e.Altitude != nil {
			alt := *e.Altitude
			coord.Altitude = &alt
		}
		md.GPS = coord
	}
	return md, nil
}

// Compile-time check that Index implements geosnag.ScanIndex interface
var _ geosnag.ScanIndex = (*Index)(nil)
