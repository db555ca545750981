package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"geosnag-go/internal/geosnag"
)

// NaiveTime builds a wall-clock capture time for tests.
func NaiveTime(year int, month time.Month, day, hour, minute, sec int) *time.Time {
	t := time.Date(year, month, day, hour, minute, sec, 0, time.UTC)
	return &t
}

// GPS builds a coordinate for tests.
func GPS(lat, lon float64) *geosnag.Coordinate {
	return &geosnag.Coordinate{Latitude: lat, Longitude: lon}
}

// StubReader serves metadata from a map. Unknown paths fail to read.
// Safe for concurrent use.
type StubReader struct {
	mu    sync.Mutex
	data  map[string]geosnag.Metadata
	errs  map[string]error
	reads map[string]int
}

// NewStubReader creates an empty StubReader.
func NewStubReader() *StubReader {
	return &StubReader{
		data:  make(map[string]geosnag.Metadata),
		errs:  make(map[string]error),
		reads: make(map[string]int),
	}
}

// Set registers the metadata returned for path.
func (r *StubReader) Set(path string, md geosnag.Metadata) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[path] = md
	delete(r.errs, path)
}

// Fail makes reads of path return err.
func (r *StubReader) Fail(path string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs[path] = err
}

// Reads returns how many times path was read.
func (r *StubReader) Reads(path string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reads[path]
}

// TotalReads returns the number of reads across all paths.
func (r *StubReader) TotalReads() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.reads {
		n += c
	}
	return n
}

func (r *StubReader) ReadMetadata(_ context.Context, path string) (*geosnag.Metadata, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reads[path]++
	if err, ok := r.errs[path]; ok {
		return nil, err
	}
	md, ok := r.data[path]
	if !ok {
		return nil, fmt.Errorf("no metadata for %s", path)
	}
	return &md, nil
}

// WriteCall records one StubWriter.WriteGPS invocation.
type WriteCall struct {
	Path  string
	Coord geosnag.Coordinate
	Opts  geosnag.WriteOptions
}

// StubWriter records writes instead of touching files.
// When Reader is set, successful writes are reflected into it so a later
// scan sees the file as geotagged and processed.
type StubWriter struct {
	WriterName string
	WriterKind geosnag.WriterKind
	Reader     *StubReader

	mu        sync.Mutex
	calls     []WriteCall
	marks     map[string]string
	failPaths map[string]error
	markErr   error
}

// NewStubWriter creates a StubWriter of the given kind.
func NewStubWriter(kind geosnag.WriterKind) *StubWriter {
	return &StubWriter{
		WriterName: "stub-" + string(kind),
		WriterKind: kind,
		marks:      make(map[string]string),
		failPaths:  make(map[string]error),
	}
}

// FailOn makes writes to path return err.
func (w *StubWriter) FailOn(path string, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.failPaths[path] = err
}

// FailMarks makes every MarkProcessed call return err.
func (w *StubWriter) FailMarks(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.markErr = err
}

// Calls returns a copy of the successful writes so far.
func (w *StubWriter) Calls() []WriteCall {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]WriteCall, len(w.calls))
	copy(out, w.calls)
	return out
}

// Marks returns the stamps written through MarkProcessed, by path.
func (w *StubWriter) Marks() map[string]string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make(map[string]string, len(w.marks))
	for k, v := range w.marks {
		out[k] = v
	}
	return out
}

func (w *StubWriter) Name() string             { return w.WriterName }
func (w *StubWriter) Kind() geosnag.WriterKind { return w.WriterKind }

func (w *StubWriter) WriteGPS(_ context.Context, path string, coord geosnag.Coordinate, opts geosnag.WriteOptions) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err, ok := w.failPaths[path]; ok {
		return err
	}
	w.calls = append(w.calls, WriteCall{Path: path, Coord: coord, Opts: opts})
	if w.Reader != nil {
		w.Reader.mu.Lock()
		md := w.Reader.data[path]
		c := coord
		md.GPS = &c
		if opts.Stamp != "" {
			md.Processed = true
		}
		w.Reader.data[path] = md
		w.Reader.mu.Unlock()
	}
	return nil
}

func (w *StubWriter) MarkProcessed(_ context.Context, path string, stamp string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.markErr != nil {
		return w.markErr
	}
	w.marks[path] = stamp
	return nil
}

// Compile-time checks
var (
	_ geosnag.MetadataReader = (*StubReader)(nil)
	_ geosnag.MetadataWriter = (*StubWriter)(nil)
)
