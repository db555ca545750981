package geosnag_test

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"geosnag-go/internal/geosnag"
	"geosnag-go/internal/testutil"
)

func TestSelectWriter(t *testing.T) {
	exifA := testutil.NewStubWriter(geosnag.WriterKindEXIF)
	exifA.WriterName = "exif-a"
	exifB := testutil.NewStubWriter(geosnag.WriterKindEXIF)
	exifB.WriterName = "exif-b"
	xmp := testutil.NewStubWriter(geosnag.WriterKindXMP)

	candidates := []geosnag.WriterCandidate{
		{Writer: exifA, Available: false},
		{Writer: exifB, Available: true},
		{Writer: xmp, Available: true},
	}

	w, ok := geosnag.SelectWriter(geosnag.WriterKindEXIF, candidates)
	if !ok || w.Name() != "exif-b" {
		t.Errorf("expected first available exif writer, got %v", w)
	}

	w, ok = geosnag.SelectWriter(geosnag.WriterKindXMP, candidates)
	if !ok || w != xmp {
		t.Errorf("expected xmp writer")
	}

	if _, ok := geosnag.SelectWriter(geosnag.WriterKindEXIF, candidates[:1]); ok {
		t.Error("unavailable writer must not be selected")
	}
	if _, ok := geosnag.SelectWriter(geosnag.WriterKindXMP, nil); ok {
		t.Error("empty candidate list must select nothing")
	}
}

func TestRankedReaders(t *testing.T) {
	goexif := testutil.NewStubReader()
	exiftool := testutil.NewStubReader()

	got := geosnag.RankedReaders([]geosnag.ReaderCandidate{
		{Reader: goexif, Available: true},
		{Reader: nil, Available: true},
		{Reader: exiftool, Available: false},
	})
	if len(got) != 1 || got[0] != goexif {
		t.Errorf("RankedReaders() = %v, want only the available reader", got)
	}

	got = geosnag.RankedReaders([]geosnag.ReaderCandidate{
		{Reader: exiftool, Available: true},
		{Reader: goexif, Available: true},
	})
	if len(got) != 2 || got[0] != exiftool || got[1] != goexif {
		t.Error("RankedReaders() must keep priority order")
	}
}

func TestParseWriteMode(t *testing.T) {
	tests := []struct {
		in    string
		want  geosnag.WriteMode
		kinds []geosnag.WriterKind
	}{
		{"", geosnag.WriteModeEXIF, []geosnag.WriterKind{geosnag.WriterKindEXIF}},
		{"exif", geosnag.WriteModeEXIF, []geosnag.WriterKind{geosnag.WriterKindEXIF}},
		{"xmp_sidecar", geosnag.WriteModeXMP, []geosnag.WriterKind{geosnag.WriterKindXMP}},
		{"both", geosnag.WriteModeBoth, []geosnag.WriterKind{geosnag.WriterKindEXIF, geosnag.WriterKindXMP}},
	}
	for _, tt := range tests {
		got, err := geosnag.ParseWriteMode(tt.in)
		if err != nil {
			t.Fatalf("ParseWriteMode(%q) error = %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseWriteMode(%q) = %q, want %q", tt.in, got, tt.want)
		}
		if !reflect.DeepEqual(got.Kinds(), tt.kinds) {
			t.Errorf("%q.Kinds() = %v, want %v", got, got.Kinds(), tt.kinds)
		}
	}

	if _, err := geosnag.ParseWriteMode("sidecar"); err == nil {
		t.Error("expected error for unknown mode")
	}
}

func TestStamp(t *testing.T) {
	now := time.Date(2025, 6, 14, 20, 0, 0, 0, time.FixedZone("CEST", 2*3600))
	stamp := geosnag.Stamp(now)

	if stamp != "GeoSnag:v"+geosnag.Version+":2025-06-14T18:00:00Z" {
		t.Errorf("Stamp() = %q", stamp)
	}
	if !geosnag.IsMarker(stamp) {
		t.Error("stamp is not recognized as a marker")
	}
	if !geosnag.IsMarker(geosnag.CreatorTool) {
		t.Error("CreatorTool is not recognized as a marker")
	}
	for _, v := range []string{"", "Adobe Lightroom", "geosnag:v1"} {
		if geosnag.IsMarker(v) {
			t.Errorf("IsMarker(%q) = true", v)
		}
	}
	if !strings.HasPrefix(geosnag.CreatorTool, "GeoSnag v") {
		t.Errorf("CreatorTool = %q", geosnag.CreatorTool)
	}
}

func TestCoordinate_Valid(t *testing.T) {
	tests := []struct {
		c    geosnag.Coordinate
		want bool
	}{
		{geosnag.Coordinate{Latitude: 90, Longitude: 180}, true},
		{geosnag.Coordinate{Latitude: -90, Longitude: -180}, true},
		{geosnag.Coordinate{Latitude: 90.0001, Longitude: 0}, false},
		{geosnag.Coordinate{Latitude: 0, Longitude: -180.5}, false},
	}
	for _, tt := range tests {
		if got := tt.c.Valid(); got != tt.want {
			t.Errorf("%v.Valid() = %v, want %v", tt.c, got, tt.want)
		}
	}
}
