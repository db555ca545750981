// Package archive stores run reports in memory, on a filesystem, or in S3.
package archive

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

// ErrReportNotFound is returned by GetReport for an unknown key.
var ErrReportNotFound = errors.New("report not found")

// cleanKey rejects keys that are empty, absolute, or escape the archive root.
func cleanKey(key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("empty report key")
	}
	cleaned := path.Clean(key)
	if strings.HasPrefix(cleaned, "/") || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("invalid report key %q", key)
	}
	return cleaned, nil
}
