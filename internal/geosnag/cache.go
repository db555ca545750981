package geosnag

// ScanIndex caches metadata per file so unchanged files are not re-read.
// It is advisory: a miss always means "read the file again".
type ScanIndex interface {
	// Lookup returns cached metadata if the entry's size and mtime match id.
	Lookup(id FileIdentity) (*Metadata, bool)

	// Record replaces the entry for id.Path.
	Record(id FileIdentity, md *Metadata)

	// Forget drops the entry for path so the next scan re-reads it.
	Forget(path string)

	// Prune drops entries whose path keep rejects. Returns the number dropped.
	Prune(keep func(path string) bool) int

	// Flush persists the index atomically.
	Flush() error
}

// MatchCache remembers targets that had no acceptable source, together with
// the fingerprint of the source set at the time.
type MatchCache interface {
	// IsKnownUnmatched is true only if the target is unchanged and the
	// fingerprint equals the recorded one.
	IsKnownUnmatched(target FileIdentity, fingerprint string) bool

	RecordUnmatched(target FileIdentity, fingerprint string)

	Invalidate(path string)

	// Clear drops every verdict.
	Clear()

	Prune(keep func(path string) bool) int

	Flush() error
}
