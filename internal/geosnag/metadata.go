package geosnag

import (
	"context"
	"errors"
	"fmt"
)

// ErrNoWriter is returned when an apply run has no usable write backend.
var ErrNoWriter = errors.New("no metadata write backend available")

// ErrInvalidCoordinate is returned for coordinates outside WGS-84 ranges.
var ErrInvalidCoordinate = errors.New("coordinate out of range")

// MetadataReader extracts capture time, GPS and the processed marker from a file.
// Implementations may fail per file; callers treat such files as unreadable.
type MetadataReader interface {
	ReadMetadata(ctx context.Context, path string) (*Metadata, error)
}

// WriterKind identifies where a writer stores coordinates.
type WriterKind string

const (
	WriterKindEXIF WriterKind = "exif"
	WriterKindXMP  WriterKind = "xmp_sidecar"
)

// WriteOptions carries per-file write parameters.
type WriteOptions struct {
	// Stamp is the processed marker to store alongside the coordinate.
	Stamp string

	// FormatMismatch is the real format of a file whose extension is wrong.
	FormatMismatch string
}

// MetadataWriter stores a coordinate into a file (or next to it).
// WriteGPS must leave the file either fully updated or untouched.
type MetadataWriter interface {
	Name() string
	Kind() WriterKind
	WriteGPS(ctx context.Context, path string, coord Coordinate, opts WriteOptions) error
	MarkProcessed(ctx context.Context, path string, stamp string) error
}

// WriterCandidate pairs a writer with the result of its availability probe.
type WriterCandidate struct {
	Writer    MetadataWriter
	Available bool
}

// SelectWriter returns the first available writer of the given kind.
// Candidates are in priority order. The choice depends only on the slice.
func SelectWriter(kind WriterKind, candidates []WriterCandidate) (MetadataWriter, bool) {
	for _, c := range candidates {
		if c.Writer == nil || !c.Available {
			continue
		}
		if c.Writer.Kind() == kind {
			return c.Writer, true
		}
	}
	return nil, false
}

// ReaderCandidate pairs a reader with the result of its availability probe.
type ReaderCandidate struct {
	Reader    MetadataReader
	Available bool
}

// RankedReaders returns the available readers, keeping priority order.
func RankedReaders(candidates []ReaderCandidate) []MetadataReader {
	var out []MetadataReader
	for _, c := range candidates {
		if c.Reader != nil && c.Available {
			out = append(out, c.Reader)
		}
	}
	return out
}

// WriteMode selects which writers an apply run uses.
type WriteMode string

const (
	WriteModeEXIF WriteMode = "exif"
	WriteModeXMP  WriteMode = "xmp_sidecar"
	WriteModeBoth WriteMode = "both"
)

// ParseWriteMode validates a write mode string. Empty means exif.
func ParseWriteMode(s string) (WriteMode, error) {
	switch WriteMode(s) {
	case "", WriteModeEXIF:
		return WriteModeEXIF, nil
	case WriteModeXMP:
		return WriteModeXMP, nil
	case WriteModeBoth:
		return WriteModeBoth, nil
	default:
		return "", fmt.Errorf("unknown write mode %q (want exif, xmp_sidecar or both)", s)
	}
}

// Kinds returns the writer kinds a mode needs, in write order.
func (m WriteMode) Kinds() []WriterKind {
	switch m {
	case WriteModeXMP:
		return []WriterKind{WriterKindXMP}
	case WriteModeBoth:
		return []WriterKind{WriterKindEXIF, WriterKindXMP}
	default:
		return []WriterKind{WriterKindEXIF}
	}
}
