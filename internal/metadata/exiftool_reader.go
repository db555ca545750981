package metadata

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"geosnag-go/internal/geosnag"
)

var exiftoolReadTags = []string{
	"-DateTimeOriginal",
	"-CreateDate",
	"-ModifyDate",
	"-GPSLatitude",
	"-GPSLatitudeRef",
	"-GPSLongitude",
	"-GPSLongitudeRef",
	"-GPSAltitude",
	"-GPSAltitudeRef",
	"-Make",
	"-Model",
	"-Software",
}

// jsonValue holds a value exiftool may print either as a JSON string or a
// bare number.
type jsonValue string

func (v *jsonValue) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*v = jsonValue(s)
		return nil
	}
	if bytes.Equal(b, []byte("null")) {
		*v = ""
		return nil
	}
	*v = jsonValue(b)
	return nil
}

func (v jsonValue) float() (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(string(v)), 64)
	return f, err == nil
}

type exiftoolTags struct {
	DateTimeOriginal jsonValue
	CreateDate       jsonValue
	ModifyDate       jsonValue
	GPSLatitude      jsonValue
	GPSLatitudeRef   jsonValue
	GPSLongitude     jsonValue
	GPSLongitudeRef  jsonValue
	GPSAltitude      jsonValue
	GPSAltitudeRef   jsonValue
	Make             jsonValue
	Model            jsonValue
	Software         jsonValue
}

// ExiftoolReader reads metadata through "exiftool -j -n". It covers HEIC,
// PNG and RAW variants goexif cannot parse.
type ExiftoolReader struct {
	et *Exiftool
}

func NewExiftoolReader(et *Exiftool) *ExiftoolReader {
	return &ExiftoolReader{et: et}
}

func (r *ExiftoolReader) ReadMetadata(ctx context.Context, path string) (*geosnag.Metadata, error) {
	args := append([]string{"-j", "-n"}, exiftoolReadTags...)
	args = append(args, path)
	out, err := r.et.run(ctx, args...)
	if err != nil {
		return nil, err
	}
	return parseExiftoolJSON(out)
}

func parseExiftoolJSON(out []byte) (*geosnag.Metadata, error) {
	var docs []exiftoolTags
	if err := json.Unmarshal(out, &docs); err != nil {
		return nil, fmt.Errorf("decoding exiftool output: %w", err)
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("exiftool returned no records")
	}
	t := docs[0]

	md := &geosnag.Metadata{
		CameraMake:  strings.TrimSpace(string(t.Make)),
		CameraModel: strings.TrimSpace(string(t.Model)),
		Processed:   geosnag.IsMarker(string(t.Software)),
	}

	for _, v := range []jsonValue{t.DateTimeOriginal, t.CreateDate, t.ModifyDate} {
		if ts, ok := parseExifTime(string(v)); ok {
			md.CaptureTime = &ts
			break
		}
	}

	lat, latOK := t.GPSLatitude.float()
	lon, lonOK := t.GPSLongitude.float()
	if latOK && lonOK {
		if lat > 0 && strings.HasPrefix(strings.ToUpper(string(t.GPSLatitudeRef)), "S") {
			lat = -lat
		}
		if lon > 0 && strings.HasPrefix(strings.ToUpper(string(t.GPSLongitudeRef)), "W") {
			lon = -lon
		}
		if validCoordinate(lat, lon) {
			md.GPS = &geosnag.Coordinate{Latitude: lat, Longitude: lon}
			if alt, ok := t.GPSAltitude.float(); ok {
				if string(t.GPSAltitudeRef) == "1" && alt > 0 {
					alt = -alt
				}
				md.GPS.Altitude = &alt
			}
		}
	}

	return md, nil
}

// Compile-time check
var _ geosnag.MetadataReader = (*ExiftoolReader)(nil)
