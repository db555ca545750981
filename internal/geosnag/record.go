package geosnag

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// NaiveTimeLayout is the layout used to persist capture times. Capture times
// are camera wall-clock values with no zone; they are held in time.UTC only
// as a container and never converted.
const NaiveTimeLayout = "2006-01-02T15:04:05"

// DayLayout formats the calendar day used for day-scoped matching.
const DayLayout = "2006-01-02"

// Coordinate is a WGS-84 position in decimal degrees.
type Coordinate struct {
	Latitude  float64
	Longitude float64
	Altitude  *float64 // meters, nil when unknown
}

// Valid reports whether latitude and longitude are within range.
func (c Coordinate) Valid() bool {
	return c.Latitude >= -90 && c.Latitude <= 90 &&
		c.Longitude >= -180 && c.Longitude <= 180
}

func (c Coordinate) String() string {
	return fmt.Sprintf("%.6f,%.6f", c.Latitude, c.Longitude)
}

// Metadata is what a MetadataReader extracts from one file.
type Metadata struct {
	CaptureTime *time.Time
	GPS         *Coordinate
	Processed   bool

	CameraMake  string
	CameraModel string

	// FormatMismatch names the real container format when the file
	// extension lies about it (e.g. "JPEG" for a .heic file).
	FormatMismatch string
}

// Camera returns "make model", trimmed.
func (m *Metadata) Camera() string {
	return strings.TrimSpace(m.CameraMake + " " + m.CameraModel)
}

// PhotoRecord is the result of scanning one file in one pass.
// Records are never mutated after the scan that produced them.
type PhotoRecord struct {
	Identity FileIdentity
	Metadata

	// ReadError is set when metadata could not be read. Such records are
	// excluded from matching and are not cached.
	ReadError string
}

// Path returns the absolute path of the file.
func (r *PhotoRecord) Path() string {
	return r.Identity.Path
}

// Name returns the base name of the file.
func (r *PhotoRecord) Name() string {
	return filepath.Base(r.Identity.Path)
}

// Unreadable reports whether the metadata read failed.
func (r *PhotoRecord) Unreadable() bool {
	return r.ReadError != ""
}

// Day returns the calendar day of the capture time, or "" if unknown.
func (r *PhotoRecord) Day() string {
	if r.CaptureTime == nil {
		return ""
	}
	return r.CaptureTime.Format(DayLayout)
}

// ParseNaiveTime parses a persisted capture time.
func ParseNaiveTime(s string) (time.Time, error) {
	return time.ParseInLocation(NaiveTimeLayout, s, time.UTC)
}
