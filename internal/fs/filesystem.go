package fs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"geosnag-go/internal/geosnag"
)

// DefaultExtensions are the photo formats scanned when none are configured.
var DefaultExtensions = []string{
	".jpg", ".jpeg",
	".arw", ".nef", ".cr2", ".cr3", ".dng", ".orf", ".raf", ".rw2",
	".heic", ".heif",
	".png",
}

// ErrRootNotFound is returned when a scan root does not exist.
var ErrRootNotFound = errors.New("scan directory not found")

// OSFilesystemManager is the real filesystem implementation of FilesystemManager.
type OSFilesystemManager struct {
	logger geosnag.Logger
}

// NewOSFilesystemManager creates a new filesystem manager that operates on the real filesystem.
func NewOSFilesystemManager(logger geosnag.Logger) *OSFilesystemManager {
	if logger == nil {
		logger = geosnag.NewNopLogger()
	}
	return &OSFilesystemManager{logger: logger}
}

// NormalizeExtensions lowercases extensions and ensures a leading dot.
// An empty list yields DefaultExtensions.
func NormalizeExtensions(exts []string) map[string]bool {
	if len(exts) == 0 {
		exts = DefaultExtensions
	}
	out := make(map[string]bool, len(exts))
	for _, e := range exts {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		out[e] = true
	}
	return out
}

// FindPhotos discovers regular photo files under root. Exclusion patterns
// (configured plus the root's ignore file) are evaluated on names alone,
// before any per-file stat. Results are sorted by path.
func (m *OSFilesystemManager) FindPhotos(root string, opts geosnag.WalkOptions) ([]geosnag.FileIdentity, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving absolute path: %w", err)
	}

	info, err := os.Stat(absRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRootNotFound, absRoot)
		}
		return nil, fmt.Errorf("stat path: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("path is not a directory: %s", absRoot)
	}

	filePatterns, err := ParseIgnoreFile(filepath.Join(absRoot, IgnoreFileName))
	if err != nil {
		return nil, err
	}
	matcher := NewIgnoreMatcher(append(append([]string{}, opts.Exclude...), filePatterns...))
	exts := NormalizeExtensions(opts.Extensions)

	var ids []geosnag.FileIdentity
	consider := func(p string, d fs.DirEntry) error {
		if !d.Type().IsRegular() {
			return nil
		}
		if !exts[strings.ToLower(filepath.Ext(d.Name()))] {
			return nil
		}
		rel, err := filepath.Rel(absRoot, p)
		if err != nil {
			return fmt.Errorf("relative path for %s: %w", p, err)
		}
		if matcher.Match(rel, p) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			m.logger.Warn("could not stat file", "path", p, "error", err)
			return nil
		}
		ids = append(ids, geosnag.NewFileIdentity(p, info))
		return nil
	}

	if opts.Recursive {
		dirs := 0
		err := filepath.WalkDir(absRoot, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				if p != absRoot && d != nil && d.IsDir() {
					m.logger.Warn("skipping unreadable directory", "path", p, "error", err)
					return fs.SkipDir
				}
				return err
			}
			if d.IsDir() {
				if p != absRoot && ExcludedDirs[d.Name()] {
					return fs.SkipDir
				}
				dirs++
				if dirs%200 == 0 {
					m.logger.Info("walking directories", "visited", dirs, "found", len(ids))
				}
				return nil
			}
			return consider(p, d)
		})
		if err != nil {
			return nil, fmt.Errorf("walking directory: %w", err)
		}
	} else {
		entries, err := os.ReadDir(absRoot)
		if err != nil {
			return nil, fmt.Errorf("reading directory: %w", err)
		}
		for _, entry := range entries {
			if err := consider(filepath.Join(absRoot, entry.Name()), entry); err != nil {
				return nil, err
			}
		}
	}

	sort.Slice(ids, func(i, j int) bool { return ids[i].Path < ids[j].Path })
	return ids, nil
}

// Compile-time check that OSFilesystemManager implements geosnag.FilesystemManager interface
var _ geosnag.FilesystemManager = (*OSFilesystemManager)(nil)
