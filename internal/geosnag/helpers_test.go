package geosnag_test

import (
	"testing"
	"time"

	"geosnag-go/internal/geosnag"
)

var testModTime = time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

// photo builds a record. ts uses the persisted naive layout; an empty ts
// means no capture time.
func photo(t *testing.T, path, ts string, gps *geosnag.Coordinate) *geosnag.PhotoRecord {
	t.Helper()
	r := &geosnag.PhotoRecord{
		Identity: geosnag.FileIdentity{Path: path, Size: 1000, ModTime: testModTime},
	}
	if ts != "" {
		ct, err := geosnag.ParseNaiveTime(ts)
		if err != nil {
			t.Fatalf("ParseNaiveTime(%q) error = %v", ts, err)
		}
		r.CaptureTime = &ct
	}
	if gps != nil {
		c := *gps
		r.GPS = &c
	}
	return r
}

func gps(lat, lon float64) *geosnag.Coordinate {
	return &geosnag.Coordinate{Latitude: lat, Longitude: lon}
}
