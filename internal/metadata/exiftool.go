// Package metadata implements the file-format backends: pure-Go and exiftool
// readers, the exiftool EXIF writer and the XMP sidecar writer.
package metadata

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// DefaultExiftoolCandidates are probed in order when no path is configured.
var DefaultExiftoolCandidates = []string{"exiftool", "/opt/bin/exiftool", "/usr/bin/exiftool"}

const (
	probeTimeout   = 5 * time.Second
	commandTimeout = 30 * time.Second
	maxStderr      = 500
)

// Exiftool runs one exiftool binary, one process per call.
type Exiftool struct {
	path    string
	version string
	timeout time.Duration
}

// ProbeExiftool returns the first candidate that answers "-ver" successfully.
// A configured path, when non-empty, is the only candidate.
func ProbeExiftool(ctx context.Context, configured string) (*Exiftool, bool) {
	candidates := DefaultExiftoolCandidates
	if configured != "" {
		candidates = []string{configured}
	}
	for _, c := range candidates {
		pctx, cancel := context.WithTimeout(ctx, probeTimeout)
		out, err := exec.CommandContext(pctx, c, "-ver").Output()
		cancel()
		if err != nil {
			continue
		}
		return &Exiftool{
			path:    c,
			version: strings.TrimSpace(string(out)),
			timeout: commandTimeout,
		}, true
	}
	return nil, false
}

// Path returns the binary in use.
func (e *Exiftool) Path() string { return e.path }

// Version returns what "-ver" printed.
func (e *Exiftool) Version() string { return e.version }

// run executes exiftool with args and returns stdout. Non-zero exits are
// reported with the (truncated) stderr text.
func (e *Exiftool) run(ctx context.Context, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, e.path, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("exiftool timed out after %s", e.timeout)
		}
		msg := strings.TrimSpace(stderr.String())
		if len(msg) > maxStderr {
			msg = msg[:maxStderr]
		}
		if msg == "" {
			return nil, fmt.Errorf("exiftool failed: %w", err)
		}
		return nil, fmt.Errorf("exiftool failed: %s", msg)
	}
	return stdout.Bytes(), nil
}
