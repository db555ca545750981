package archive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"sync"

	"geosnag-go/internal/geosnag"
)

// MemoryArchive keeps reports in memory. It is safe for concurrent use.
type MemoryArchive struct {
	name    string
	reports map[string][]byte
	mu      sync.RWMutex
}

// NewMemoryArchive creates an empty in-memory archive.
func NewMemoryArchive(name string) *MemoryArchive {
	return &MemoryArchive{
		name:    name,
		reports: make(map[string][]byte),
	}
}

func (m *MemoryArchive) Name() string { return m.name }

func (m *MemoryArchive) PutReport(_ context.Context, key string, r io.Reader, size int64) error {
	key, err := cleanKey(key)
	if err != nil {
		return err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read report: %w", err)
	}
	if int64(len(data)) != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, len(data))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports[key] = data
	return nil
}

func (m *MemoryArchive) GetReport(_ context.Context, key string, w io.Writer) error {
	key, err := cleanKey(key)
	if err != nil {
		return err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.reports[key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrReportNotFound, key)
	}
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

func (m *MemoryArchive) ListReports(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.reports))
	for k := range m.reports {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// ValidateSetup always succeeds for the in-memory archive.
func (m *MemoryArchive) ValidateSetup(context.Context) error {
	return nil
}

var _ geosnag.Archive = (*MemoryArchive)(nil)
