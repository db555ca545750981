package metadata

import "geosnag-go/internal/geosnag"

// Writers returns the write backends in priority order with their
// availability. The sidecar writer needs nothing external and is always
// available; the EXIF writer needs exiftool.
func Writers(et *Exiftool, logger geosnag.Logger) []geosnag.WriterCandidate {
	var exifWriter geosnag.MetadataWriter
	if et != nil {
		exifWriter = NewExiftoolWriter(et, logger)
	}
	return []geosnag.WriterCandidate{
		{Writer: exifWriter, Available: et != nil},
		{Writer: NewXMPSidecarWriter(logger), Available: true},
	}
}
