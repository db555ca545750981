package testutil

import (
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"geosnag-go/internal/fs"
	"geosnag-go/internal/geosnag"
)

// MockFilesystemManager is an in-memory photo tree for testing.
// Paths are used as given; tests should pass absolute, clean paths.
type MockFilesystemManager struct {
	mu    sync.Mutex
	files map[string]geosnag.FileIdentity
	dirs  map[string]bool
}

// NewMockFilesystemManager creates an empty mock filesystem.
func NewMockFilesystemManager() *MockFilesystemManager {
	return &MockFilesystemManager{
		files: make(map[string]geosnag.FileIdentity),
		dirs:  make(map[string]bool),
	}
}

// AddDirectory registers a scan root (and its parents).
func (m *MockFilesystemManager) AddDirectory(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.addDirLocked(path)
}

func (m *MockFilesystemManager) addDirLocked(path string) {
	for p := filepath.Clean(path); ; p = filepath.Dir(p) {
		m.dirs[p] = true
		if p == filepath.Dir(p) {
			return
		}
	}
}

// AddFile adds a file with the given size and modification time.
func (m *MockFilesystemManager) AddFile(path string, size int64, modTime time.Time) geosnag.FileIdentity {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := geosnag.FileIdentity{Path: path, Size: size, ModTime: modTime}
	m.files[path] = id
	m.addDirLocked(filepath.Dir(path))
	return id
}

// Touch changes a file's size and modification time, as an external edit would.
func (m *MockFilesystemManager) Touch(path string, size int64, modTime time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.files[path]; ok {
		m.files[path] = geosnag.FileIdentity{Path: path, Size: size, ModTime: modTime}
	}
}

// Remove deletes a file.
func (m *MockFilesystemManager) Remove(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, path)
}

func (m *MockFilesystemManager) FindPhotos(root string, opts geosnag.WalkOptions) ([]geosnag.FileIdentity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	root = filepath.Clean(root)
	if !m.dirs[root] {
		return nil, fs.ErrRootNotFound
	}

	exts := fs.NormalizeExtensions(opts.Extensions)
	ignore := fs.NewIgnoreMatcher(opts.Exclude)

	var out []geosnag.FileIdentity
	for path, id := range m.files {
		rel, err := filepath.Rel(root, path)
		if err != nil || strings.HasPrefix(rel, "..") {
			continue
		}
		if !opts.Recursive && strings.Contains(rel, string(filepath.Separator)) {
			continue
		}
		if !exts[strings.ToLower(filepath.Ext(path))] {
			continue
		}
		if ignore.Match(rel, path) {
			continue
		}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

// Compile-time check
var _ geosnag.FilesystemManager = (*MockFilesystemManager)(nil)
