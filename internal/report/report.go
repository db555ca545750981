// Package report writes the per-run CSV of matched and unmatched targets.
package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"geosnag-go/internal/fs"
	"geosnag-go/internal/geosnag"
)

// Header is the first CSV row.
var Header = []string{
	"Status",
	"Target File",
	"Target DateTime",
	"Target Make/Model",
	"Source File",
	"Source DateTime",
	"Latitude",
	"Longitude",
	"Time Delta (min)",
	"Confidence (%)",
}

const (
	StatusMatched   = "MATCHED"
	StatusUnmatched = "UNMATCHED"
)

// Write emits the header, one MATCHED row per result, then one UNMATCHED row
// per target without a source.
func Write(w *csv.Writer, results []*geosnag.MatchResult, unmatched []*geosnag.PhotoRecord) error {
	if err := w.Write(Header); err != nil {
		return err
	}
	for _, m := range results {
		row := []string{
			StatusMatched,
			m.Target.Path(),
			captureTime(m.Target),
			m.Target.Camera(),
			m.Source.Path(),
			captureTime(m.Source),
			"", "",
			strconv.FormatFloat(m.DeltaMinutes(), 'f', 1, 64),
			strconv.FormatFloat(m.Confidence, 'f', 1, 64),
		}
		if gps := m.Source.GPS; gps != nil {
			row[6] = strconv.FormatFloat(gps.Latitude, 'f', 6, 64)
			row[7] = strconv.FormatFloat(gps.Longitude, 'f', 6, 64)
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	for _, u := range unmatched {
		row := []string{StatusUnmatched, u.Path(), captureTime(u), u.Camera(), "", "", "", "", "", ""}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func captureTime(r *geosnag.PhotoRecord) string {
	if r.CaptureTime == nil {
		return ""
	}
	return r.CaptureTime.Format(geosnag.NaiveTimeLayout)
}

// Render returns the CSV, encrypted when enc is non-nil.
func Render(results []*geosnag.MatchResult, unmatched []*geosnag.PhotoRecord, enc geosnag.Encryptor) ([]byte, error) {
	var plain bytes.Buffer
	if err := Write(csv.NewWriter(&plain), results, unmatched); err != nil {
		return nil, fmt.Errorf("writing report: %w", err)
	}
	if enc == nil {
		return plain.Bytes(), nil
	}
	var sealed bytes.Buffer
	if err := enc.Encrypt(&plain, &sealed); err != nil {
		return nil, fmt.Errorf("encrypting report: %w", err)
	}
	return sealed.Bytes(), nil
}

// Saver writes reports to disk and copies them to every archive.
type Saver struct {
	enc      geosnag.Encryptor
	archives []geosnag.Archive
	logger   geosnag.Logger
}

// NewSaver creates a Saver. enc may be nil for plaintext reports.
func NewSaver(enc geosnag.Encryptor, archives []geosnag.Archive, logger geosnag.Logger) *Saver {
	if logger == nil {
		logger = geosnag.NewNopLogger()
	}
	return &Saver{enc: enc, archives: archives, logger: logger}
}

// Extension returns the suffix added to encrypted reports, or "".
func (s *Saver) Extension() string {
	if s.enc == nil {
		return ""
	}
	return s.enc.Extension()
}

// Save writes the report to path (an encryption suffix is appended when
// needed) and stores a copy under ReportKey(runUUID) in each archive.
// Archive failures are logged, not returned. Returns the written path.
func (s *Saver) Save(ctx context.Context, path, runUUID string, results []*geosnag.MatchResult, unmatched []*geosnag.PhotoRecord) (string, error) {
	data, err := Render(results, unmatched, s.enc)
	if err != nil {
		return "", err
	}

	path += s.Extension()
	if err := fs.WriteFileAtomic(path, bytes.NewReader(data), 0600); err != nil {
		return "", fmt.Errorf("saving report: %w", err)
	}
	s.logger.Info("report saved", "path", path, "matched", len(results), "unmatched", len(unmatched))

	key := geosnag.ReportKey(runUUID, s.Extension())
	for _, a := range s.archives {
		if err := a.PutReport(ctx, key, bytes.NewReader(data), int64(len(data))); err != nil {
			s.logger.Warn("could not archive report", "archive", a.Name(), "key", key, "error", err)
			continue
		}
		s.logger.Info("report archived", "archive", a.Name(), "key", key)
	}
	return path, nil
}

// DefaultPath names a report after the run's start time inside dir.
func DefaultPath(dir string, startedAt time.Time) string {
	return filepath.Join(dir, "geosnag_report_"+startedAt.UTC().Format("20060102_150405")+".csv")
}

// Copy writes the plaintext of the report at path to w. Reports ending in
// the encryptor's extension are decrypted with dc.
func Copy(w io.Writer, path string, enc geosnag.Encryptor, dc geosnag.DecryptionContext) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening report: %w", err)
	}
	defer f.Close()

	if IsEncrypted(path, enc) {
		if dc == nil {
			return fmt.Errorf("report %s is encrypted", path)
		}
		return dc.Decrypt(f, w)
	}
	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("reading report: %w", err)
	}
	return nil
}

// IsEncrypted reports whether path carries the encryptor's extension.
func IsEncrypted(path string, enc geosnag.Encryptor) bool {
	return enc != nil && filepath.Ext(path) == enc.Extension()
}
