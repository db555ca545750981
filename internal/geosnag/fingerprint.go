package geosnag

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
)

// SourcesFingerprint digests the source set. Each source contributes one line
// built from its identity, coordinate and capture time; lines are sorted
// before hashing so the result does not depend on input order.
func SourcesFingerprint(sources []*PhotoRecord) string {
	lines := make([]string, 0, len(sources))
	for _, s := range sources {
		lines = append(lines, fingerprintLine(s))
	}
	sort.Strings(lines)

	h := sha256.New()
	for _, l := range lines {
		h.Write([]byte(l))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}

func fingerprintLine(s *PhotoRecord) string {
	var lat, lon, ts string
	if s.GPS != nil {
		lat = fmt.Sprintf("%.7f", s.GPS.Latitude)
		lon = fmt.Sprintf("%.7f", s.GPS.Longitude)
	}
	if s.CaptureTime != nil {
		ts = s.CaptureTime.Format(NaiveTimeLayout)
	}
	return fmt.Sprintf("%s|%d|%d|%s|%s|%s",
		s.Identity.Path,
		s.Identity.Size,
		s.Identity.ModTime.UnixNano(),
		lat, lon, ts,
	)
}
