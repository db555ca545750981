package metadata

import (
	"bytes"
	"context"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"geosnag-go/internal/geosnag"
)

func altitudePtr(v float64) *float64 { return &v }

func TestGPSArgs(t *testing.T) {
	t.Run("southern western hemisphere with altitude and stamp", func(t *testing.T) {
		coord := geosnag.Coordinate{Latitude: -33.8688, Longitude: -151.2093, Altitude: altitudePtr(-4.5)}
		args := gpsArgs(coord, "GeoSnag:v0.2.0:2025-06-14T18:00:00Z")
		assert.Equal(t, []string{
			"-overwrite_original",
			"-GPSLatitude=33.8688",
			"-GPSLatitudeRef=S",
			"-GPSLongitude=151.2093",
			"-GPSLongitudeRef=W",
			"-GPSMapDatum=WGS-84",
			"-GPSAltitude=4.5",
			"-GPSAltitudeRef=1",
			"-Software=GeoSnag:v0.2.0:2025-06-14T18:00:00Z",
		}, args)
	})

	t.Run("no altitude no stamp", func(t *testing.T) {
		args := gpsArgs(geosnag.Coordinate{Latitude: 0, Longitude: 0}, "")
		assert.Len(t, args, 6)
		assert.Contains(t, args, "-GPSLatitudeRef=N")
		assert.Contains(t, args, "-GPSLongitudeRef=E")
	})
}

func TestXMPCoordinate(t *testing.T) {
	assert.Equal(t, "48,51.396000N", xmpCoordinate(48.8566, "N", "S"))
	assert.Equal(t, "2,21.132000W", xmpCoordinate(-2.3522, "E", "W"))
	assert.Equal(t, "0,0.000000N", xmpCoordinate(0, "N", "S"))
}

func TestRenderSidecar(t *testing.T) {
	doc := RenderSidecar(geosnag.Coordinate{Latitude: 48.8566, Longitude: 2.3522, Altitude: altitudePtr(35)})
	s := string(doc)

	assert.True(t, strings.HasPrefix(s, "<?xpacket begin="))
	assert.Contains(t, s, "<exif:GPSVersionID>2.3.0.0</exif:GPSVersionID>")
	assert.Contains(t, s, "<exif:GPSLatitude>48,51.396000N</exif:GPSLatitude>")
	assert.Contains(t, s, "<exif:GPSLongitude>2,21.132000E</exif:GPSLongitude>")
	assert.Contains(t, s, "<exif:GPSMapDatum>WGS-84</exif:GPSMapDatum>")
	assert.Contains(t, s, "<exif:GPSAltitude>35.00</exif:GPSAltitude>")
	assert.Contains(t, s, "<exif:GPSAltitudeRef>0</exif:GPSAltitudeRef>")

	tool, err := SidecarCreatorTool(bytes.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, geosnag.CreatorTool, tool)

	noAlt := string(RenderSidecar(geosnag.Coordinate{Latitude: 1, Longitude: 1}))
	assert.NotContains(t, noAlt, "GPSAltitude")
}

func TestSidecarCreatorTool_Attribute(t *testing.T) {
	doc := `<x:xmpmeta xmlns:x="adobe:ns:meta/"><rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#">
<rdf:Description rdf:about="" xmlns:xmp="http://ns.adobe.com/xap/1.0/" xmp:CreatorTool="Adobe Lightroom"/>
</rdf:RDF></x:xmpmeta>`
	tool, err := SidecarCreatorTool(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, "Adobe Lightroom", tool)
}

func TestXMPSidecarWriter(t *testing.T) {
	dir := t.TempDir()
	photo := writeFile(t, dir, "DSC_0001.NEF", []byte("raw bytes"))
	w := NewXMPSidecarWriter(nil)

	assert.Equal(t, geosnag.WriterKindXMP, w.Kind())

	err := w.WriteGPS(context.Background(), photo, geosnag.Coordinate{Latitude: 10, Longitude: 20}, geosnag.WriteOptions{})
	require.NoError(t, err)

	sidecar := filepath.Join(dir, "DSC_0001.xmp")
	first, err := os.ReadFile(sidecar)
	require.NoError(t, err)
	assert.Contains(t, string(first), "10,0.000000N")

	// Photo untouched.
	content, err := os.ReadFile(photo)
	require.NoError(t, err)
	assert.Equal(t, "raw bytes", string(content))

	// Existing sidecar is overwritten.
	err = w.WriteGPS(context.Background(), photo, geosnag.Coordinate{Latitude: -10, Longitude: 20}, geosnag.WriteOptions{})
	require.NoError(t, err)
	second, err := os.ReadFile(sidecar)
	require.NoError(t, err)
	assert.Contains(t, string(second), "10,0.000000S")

	// No temp files left behind.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestXMPSidecarWriter_InvalidCoordinate(t *testing.T) {
	dir := t.TempDir()
	photo := writeFile(t, dir, "a.jpg", jpegHeader)

	err := NewXMPSidecarWriter(nil).WriteGPS(context.Background(), photo, geosnag.Coordinate{Latitude: 91}, geosnag.WriteOptions{})
	assert.ErrorIs(t, err, geosnag.ErrInvalidCoordinate)
	assert.NoFileExists(t, SidecarPath(photo))
}

func TestSidecarMarkerReader(t *testing.T) {
	dir := t.TempDir()
	tagged := writeFile(t, dir, "tagged.jpg", jpegHeader)
	foreign := writeFile(t, dir, "foreign.jpg", jpegHeader)
	plain := writeFile(t, dir, "plain.jpg", jpegHeader)

	require.NoError(t, NewXMPSidecarWriter(nil).WriteGPS(context.Background(), tagged,
		geosnag.Coordinate{Latitude: 1, Longitude: 2}, geosnag.WriteOptions{}))
	writeFile(t, dir, "foreign.xmp", []byte(`<x:xmpmeta xmlns:x="adobe:ns:meta/"><xmp:CreatorTool xmlns:xmp="http://ns.adobe.com/xap/1.0/">darktable</xmp:CreatorTool></x:xmpmeta>`))

	inner := &fakeReader{md: &geosnag.Metadata{}}
	r := NewSidecarMarkerReader(inner)

	for path, want := range map[string]bool{tagged: true, foreign: false, plain: false} {
		inner.md = &geosnag.Metadata{}
		md, err := r.ReadMetadata(context.Background(), path)
		require.NoError(t, err)
		assert.Equal(t, want, md.Processed, filepath.Base(path))
	}
}

func TestWriters(t *testing.T) {
	candidates := Writers(nil, nil)
	_, ok := geosnag.SelectWriter(geosnag.WriterKindEXIF, candidates)
	assert.False(t, ok)
	w, ok := geosnag.SelectWriter(geosnag.WriterKindXMP, candidates)
	require.True(t, ok)
	assert.Equal(t, "xmp-sidecar", w.Name())
}

// The tests below need a real exiftool binary.

func requireExiftool(t *testing.T) *Exiftool {
	t.Helper()
	et, ok := ProbeExiftool(context.Background(), "")
	if !ok {
		t.Skip("exiftool not installed")
	}
	return et
}

func writeJPEG(t *testing.T, path string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, jpeg.Encode(f, image.NewGray(image.Rect(0, 0, 8, 8)), nil))
}

func TestExiftoolWriter_RoundTrip(t *testing.T) {
	et := requireExiftool(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "target.jpg")
	writeJPEG(t, path)

	w := NewExiftoolWriter(et, nil)
	coord := geosnag.Coordinate{Latitude: -33.8688, Longitude: 151.2093}
	stamp := "GeoSnag:v0.2.0:2025-06-14T18:00:00Z"
	require.NoError(t, w.WriteGPS(context.Background(), path, coord, geosnag.WriteOptions{Stamp: stamp}))

	md, err := NewExiftoolReader(et).ReadMetadata(context.Background(), path)
	require.NoError(t, err)
	require.NotNil(t, md.GPS)
	assert.InDelta(t, coord.Latitude, md.GPS.Latitude, 1e-6)
	assert.InDelta(t, coord.Longitude, md.GPS.Longitude, 1e-6)
	assert.True(t, md.Processed)
}

func TestExiftoolWriter_FormatMismatch(t *testing.T) {
	et := requireExiftool(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "takeout.heic")
	writeJPEG(t, path)
	require.Equal(t, FormatJPEG, DetectFormatMismatch(path))

	w := NewExiftoolWriter(et, nil)
	err := w.WriteGPS(context.Background(), path, geosnag.Coordinate{Latitude: 1.5, Longitude: 2.5},
		geosnag.WriteOptions{FormatMismatch: FormatJPEG})
	require.NoError(t, err)

	md, err := NewExiftoolReader(et).ReadMetadata(context.Background(), path)
	require.NoError(t, err)
	require.NotNil(t, md.GPS)
	assert.InDelta(t, 1.5, md.GPS.Latitude, 1e-6)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp copy must not be left behind")
}

func TestExiftoolWriter_RefusesSymlinkOnMismatch(t *testing.T) {
	et := requireExiftool(t)
	dir := t.TempDir()
	target := filepath.Join(dir, "real.jpg")
	writeJPEG(t, target)
	link := filepath.Join(dir, "link.heic")
	require.NoError(t, os.Symlink(target, link))

	err := NewExiftoolWriter(et, nil).WriteGPS(context.Background(), link, geosnag.Coordinate{Latitude: 1, Longitude: 1},
		geosnag.WriteOptions{FormatMismatch: FormatJPEG})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "symlink")
}
