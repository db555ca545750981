package geosnag

import (
	"io/fs"
	"time"
)

// FileIdentity is the (path, size, modification time) triple used as the only
// staleness signal for cached metadata. Content is never hashed.
type FileIdentity struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// NewFileIdentity builds an identity from an absolute path and its stat info.
func NewFileIdentity(absPath string, info fs.FileInfo) FileIdentity {
	return FileIdentity{
		Path:    absPath,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}
}

// Equal reports whether both identities describe the same unchanged file.
func (id FileIdentity) Equal(other FileIdentity) bool {
	return id.Path == other.Path &&
		id.Size == other.Size &&
		id.ModTime.Equal(other.ModTime)
}

// SameState reports whether size and modification time match, ignoring path.
// Cache entries are keyed by path, so this is the check lookups use.
func (id FileIdentity) SameState(size int64, modTimeNanos int64) bool {
	return id.Size == size && id.ModTime.UnixNano() == modTimeNanos
}
