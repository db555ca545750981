package metadata

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"geosnag-go/internal/fs"
	"geosnag-go/internal/geosnag"
)

// SidecarPath returns the XMP sidecar path for a photo: the extension is
// replaced by ".xmp".
func SidecarPath(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ".xmp"
}

// xmpCoordinate formats decimal degrees as XMP "deg,minutes" with a
// hemisphere letter, e.g. "48,51.177600N".
func xmpCoordinate(v float64, pos, neg string) string {
	abs := math.Abs(v)
	deg := math.Floor(abs)
	minutes := (abs - deg) * 60
	return fmt.Sprintf("%d,%.6f%s", int(deg), minutes, refOf(v, pos, neg))
}

// RenderSidecar produces the sidecar document for a coordinate.
func RenderSidecar(coord geosnag.Coordinate) []byte {
	var b bytes.Buffer
	b.WriteString("<?xpacket begin='\ufeff' id='W5M0MpCehiHzreSzNTczkc9d'?>\n")
	b.WriteString("<x:xmpmeta xmlns:x='adobe:ns:meta/'>\n")
	b.WriteString("  <rdf:RDF xmlns:rdf='http://www.w3.org/1999/02/22-rdf-syntax-ns#'>\n")
	b.WriteString("    <rdf:Description rdf:about=''\n")
	b.WriteString("      xmlns:exif='http://ns.adobe.com/exif/1.0/'\n")
	b.WriteString("      xmlns:xmp='http://ns.adobe.com/xap/1.0/'>\n")
	b.WriteString("      <exif:GPSVersionID>2.3.0.0</exif:GPSVersionID>\n")
	fmt.Fprintf(&b, "      <exif:GPSLatitude>%s</exif:GPSLatitude>\n", xmpCoordinate(coord.Latitude, "N", "S"))
	fmt.Fprintf(&b, "      <exif:GPSLongitude>%s</exif:GPSLongitude>\n", xmpCoordinate(coord.Longitude, "E", "W"))
	b.WriteString("      <exif:GPSMapDatum>WGS-84</exif:GPSMapDatum>\n")
	if coord.Altitude != nil {
		alt := *coord.Altitude
		fmt.Fprintf(&b, "      <exif:GPSAltitude>%.2f</exif:GPSAltitude>\n", math.Abs(alt))
		fmt.Fprintf(&b, "      <exif:GPSAltitudeRef>%s</exif:GPSAltitudeRef>\n", refOf(alt, "0", "1"))
	}
	fmt.Fprintf(&b, "      <xmp:CreatorTool>%s</xmp:CreatorTool>\n", geosnag.CreatorTool)
	b.WriteString("    </rdf:Description>\n")
	b.WriteString("  </rdf:RDF>\n")
	b.WriteString("</x:xmpmeta>\n")
	b.WriteString("<?xpacket end='w'?>")
	return b.Bytes()
}

// XMPSidecarWriter writes coordinates to "<base>.xmp" next to the photo and
// never modifies the photo itself.
type XMPSidecarWriter struct {
	logger geosnag.Logger
}

func NewXMPSidecarWriter(logger geosnag.Logger) *XMPSidecarWriter {
	if logger == nil {
		logger = geosnag.NewNopLogger()
	}
	return &XMPSidecarWriter{logger: logger}
}

func (w *XMPSidecarWriter) Name() string             { return "xmp-sidecar" }
func (w *XMPSidecarWriter) Kind() geosnag.WriterKind { return geosnag.WriterKindXMP }

func (w *XMPSidecarWriter) WriteGPS(_ context.Context, path string, coord geosnag.Coordinate, _ geosnag.WriteOptions) error {
	if !coord.Valid() {
		return fmt.Errorf("%w: %s", geosnag.ErrInvalidCoordinate, coord)
	}

	sidecar := SidecarPath(path)
	if _, err := os.Stat(sidecar); err == nil {
		w.logger.Warn("XMP sidecar already exists, overwriting", "path", sidecar)
	}

	if err := fs.WriteFileAtomic(sidecar, bytes.NewReader(RenderSidecar(coord)), 0o644); err != nil {
		return fmt.Errorf("writing sidecar: %w", err)
	}
	return nil
}

// MarkProcessed is a no-op: the sidecar's CreatorTool is the marker.
func (w *XMPSidecarWriter) MarkProcessed(context.Context, string, string) error {
	return nil
}

// SidecarCreatorTool returns the CreatorTool recorded in an XMP document,
// whether written as an element or as a Description attribute.
func SidecarCreatorTool(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return "", nil
		}
		if err != nil {
			return "", err
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		if start.Name.Local == "CreatorTool" {
			var v string
			if err := dec.DecodeElement(&v, &start); err != nil {
				return "", err
			}
			return strings.TrimSpace(v), nil
		}
		for _, attr := range start.Attr {
			if attr.Name.Local == "CreatorTool" {
				return strings.TrimSpace(attr.Value), nil
			}
		}
	}
}

// SidecarMarkerReader marks a file processed when its XMP sidecar was
// written by this tool.
type SidecarMarkerReader struct {
	inner geosnag.MetadataReader
}

func NewSidecarMarkerReader(inner geosnag.MetadataReader) *SidecarMarkerReader {
	return &SidecarMarkerReader{inner: inner}
}

func (r *SidecarMarkerReader) ReadMetadata(ctx context.Context, path string) (*geosnag.Metadata, error) {
	md, err := r.inner.ReadMetadata(ctx, path)
	if err != nil || md.Processed {
		return md, err
	}

	f, err := os.Open(SidecarPath(path))
	if err != nil {
		return md, nil
	}
	defer f.Close()

	if tool, err := SidecarCreatorTool(f); err == nil && geosnag.IsMarker(tool) {
		md.Processed = true
	}
	return md, nil
}

// Compile-time checks
var (
	_ geosnag.MetadataWriter = (*XMPSidecarWriter)(nil)
	_ geosnag.MetadataReader = (*SidecarMarkerReader)(nil)
)
