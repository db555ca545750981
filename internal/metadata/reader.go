package metadata

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/rwcarlsen/goexif/exif"

	"geosnag-go/internal/geosnag"
)

// exifTimeLayouts are tried in order. Fractional seconds after the seconds
// field are accepted by time.Parse without a layout of their own.
var exifTimeLayouts = []string{
	"2006:01:02 15:04:05",
	"2006-01-02 15:04:05",
}

// parseExifTime parses a camera wall-clock timestamp. The result is held in
// time.UTC without conversion.
func parseExifTime(s string) (time.Time, bool) {
	s = strings.Trim(s, "\x00 \t")
	for _, layout := range exifTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func validCoordinate(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lon) {
		return false
	}
	return (geosnag.Coordinate{Latitude: lat, Longitude: lon}).Valid()
}

// ErrNoMetadata means the file is an intact image that carries no EXIF.
// ChainReader treats it as empty metadata when no other reader succeeds.
var ErrNoMetadata = errors.New("no exif metadata")

// GoexifReader reads EXIF with github.com/rwcarlsen/goexif. It handles JPEG
// and TIFF-based RAW files without any external tool.
type GoexifReader struct{}

func NewGoexifReader() *GoexifReader { return &GoexifReader{} }

func (r *GoexifReader) ReadMetadata(_ context.Context, path string) (*geosnag.Metadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	x, err := exif.Decode(f)
	if err != nil && (x == nil || exif.IsCriticalError(err)) {
		if intactImage(f) {
			return nil, fmt.Errorf("%w: %v", ErrNoMetadata, err)
		}
		return nil, fmt.Errorf("decoding exif: %w", err)
	}

	md := &geosnag.Metadata{
		CameraMake:  tagString(x, exif.Make),
		CameraModel: tagString(x, exif.Model),
		Processed:   geosnag.IsMarker(tagString(x, exif.Software)),
	}

	for _, name := range []exif.FieldName{exif.DateTimeOriginal, exif.DateTimeDigitized, exif.DateTime} {
		if t, ok := parseExifTime(tagString(x, name)); ok {
			md.CaptureTime = &t
			break
		}
	}

	if lat, lon, err := x.LatLong(); err == nil && validCoordinate(lat, lon) {
		md.GPS = &geosnag.Coordinate{Latitude: lat, Longitude: lon}
		md.GPS.Altitude = altitude(x)
	}

	return md, nil
}

func tagString(x *exif.Exif, name exif.FieldName) string {
	tag, err := x.Get(name)
	if err != nil {
		return ""
	}
	s, err := tag.StringVal()
	if err != nil {
		return ""
	}
	return strings.Trim(s, "\x00 ")
}

func altitude(x *exif.Exif) *float64 {
	tag, err := x.Get(exif.GPSAltitude)
	if err != nil {
		return nil
	}
	rat, err := tag.Rat(0)
	if err != nil || rat == nil {
		return nil
	}
	alt, _ := rat.Float64()
	if ref, err := x.Get(exif.GPSAltitudeRef); err == nil {
		if v, err := ref.Int(0); err == nil && v == 1 {
			alt = -alt
		}
	}
	return &alt
}

// ChainReader tries readers in order and returns the first success. It also
// flags files whose content does not match their extension.
type ChainReader struct {
	readers []geosnag.MetadataReader
	logger  geosnag.Logger
}

// NewChainReader creates a ChainReader. Nil readers are skipped.
func NewChainReader(logger geosnag.Logger, readers ...geosnag.MetadataReader) *ChainReader {
	if logger == nil {
		logger = geosnag.NewNopLogger()
	}
	c := &ChainReader{logger: logger}
	for _, r := range readers {
		if r != nil {
			c.readers = append(c.readers, r)
		}
	}
	return c
}

func (c *ChainReader) ReadMetadata(ctx context.Context, path string) (*geosnag.Metadata, error) {
	if len(c.readers) == 0 {
		return nil, errors.New("no metadata reader configured")
	}

	var errs []error
	noMetadata := false
	for _, r := range c.readers {
		md, err := r.ReadMetadata(ctx, path)
		if err != nil {
			c.logger.Debug("metadata reader failed", "path", path, "reader", fmt.Sprintf("%T", r), "error", err)
			if errors.Is(err, ErrNoMetadata) {
				noMetadata = true
			}
			errs = append(errs, err)
			continue
		}
		return c.withMismatch(path, md), nil
	}
	if noMetadata {
		return c.withMismatch(path, &geosnag.Metadata{}), nil
	}
	return nil, errors.Join(errs...)
}

func (c *ChainReader) withMismatch(path string, md *geosnag.Metadata) *geosnag.Metadata {
	if mismatch := DetectFormatMismatch(path); mismatch != "" {
		c.logger.Debug("format mismatch", "path", path, "actual", mismatch)
		md.FormatMismatch = mismatch
	}
	return md
}

// Readers returns the read backends in priority order with their
// availability: goexif first, exiftool for everything goexif cannot parse.
func Readers(et *Exiftool) []geosnag.ReaderCandidate {
	var exiftoolReader geosnag.MetadataReader
	if et != nil {
		exiftoolReader = NewExiftoolReader(et)
	}
	return []geosnag.ReaderCandidate{
		{Reader: NewGoexifReader(), Available: true},
		{Reader: exiftoolReader, Available: et != nil},
	}
}

// NewReader builds the default reader stack with sidecar marker detection
// on top.
func NewReader(et *Exiftool, logger geosnag.Logger) geosnag.MetadataReader {
	return NewSidecarMarkerReader(NewChainReader(logger, geosnag.RankedReaders(Readers(et))...))
}

// Compile-time checks
var (
	_ geosnag.MetadataReader = (*GoexifReader)(nil)
	_ geosnag.MetadataReader = (*ChainReader)(nil)
)
