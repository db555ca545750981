package geosnag

import "fmt"

// GetHistory returns the most recent runs, ordered newest first.
func (s *GeoSnagService) GetHistory(limit int) ([]*Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("run history is not configured")
	}
	runs, err := s.db.ListRuns(limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	return runs, nil
}

// GetFileHistory returns every coordinate written to path, newest first.
func (s *GeoSnagService) GetFileHistory(path string) ([]*AppliedWrite, error) {
	s.logger.Debug("fetching file history", "path", path)

	if s.db == nil {
		return nil, fmt.Errorf("run history is not configured")
	}
	writes, err := s.db.FindWritesForPath(path)
	if err != nil {
		return nil, fmt.Errorf("finding writes: %w", err)
	}

	// Reverse to newest first
	for i, j := 0, len(writes)-1; i < j; i, j = i+1, j-1 {
		writes[i], writes[j] = writes[j], writes[i]
	}
	return writes, nil
}
