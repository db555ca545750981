package geosnag

import (
	"strings"
	"time"
)

// Version is stamped into every file geosnag writes to.
const Version = "0.2.0"

// MarkerPrefix starts the Software tag value of a processed file.
const MarkerPrefix = "GeoSnag:"

// CreatorTool is the xmp:CreatorTool value written into sidecars.
const CreatorTool = "GeoSnag v" + Version

// Stamp returns the processed marker, e.g. "GeoSnag:v0.2.0:2024-01-15T10:30:00Z".
func Stamp(now time.Time) string {
	return MarkerPrefix + "v" + Version + ":" + now.UTC().Format("2006-01-02T15:04:05Z")
}

// IsMarker reports whether a Software or CreatorTool value was written by geosnag.
func IsMarker(value string) bool {
	value = strings.TrimSpace(value)
	return strings.HasPrefix(value, MarkerPrefix) || strings.HasPrefix(value, "GeoSnag v")
}
