package testutil

import (
	"context"
	"errors"
	"io"

	"geosnag-go/internal/archive"
)

// NewTestArchive creates a new in-memory archive for testing.
func NewTestArchive(name string) *archive.MemoryArchive {
	return archive.NewMemoryArchive(name)
}

// ErrArchiveOffline is returned by every FailingArchive upload.
var ErrArchiveOffline = errors.New("archive offline")

// FailingArchive accepts nothing. Reads fall through to the embedded
// in-memory archive.
type FailingArchive struct {
	*archive.MemoryArchive
}

// NewFailingArchive creates an archive whose uploads always fail.
func NewFailingArchive(name string) *FailingArchive {
	return &FailingArchive{MemoryArchive: archive.NewMemoryArchive(name)}
}

func (*FailingArchive) PutReport(context.Context, string, io.Reader, int64) error {
	return ErrArchiveOffline
}
