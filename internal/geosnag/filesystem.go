package geosnag

import "context"

// WalkOptions controls candidate discovery under a root directory.
type WalkOptions struct {
	Recursive  bool
	Extensions []string
	Exclude    []string
}

// FilesystemManager discovers photo files.
// It abstracts file access to enable testing without touching the real filesystem.
type FilesystemManager interface {
	// FindPhotos returns identities of candidate files under root, with
	// exclusion patterns applied before any file is stat'ed.
	FindPhotos(root string, opts WalkOptions) ([]FileIdentity, error)
}

// Scanner produces the complete, sorted record set for a run.
type Scanner interface {
	Scan(ctx context.Context, dirs []string) (*ScanResult, error)
}

// ScanResult is the output of one scan pass.
type ScanResult struct {
	Records []*PhotoRecord // sorted by path

	Cached int // served from the index
	Read   int // read through a MetadataReader
	Failed int // read failures
}
