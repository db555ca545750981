package metadata

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Container formats detected from magic bytes.
const (
	FormatJPEG = "JPEG"
	FormatPNG  = "PNG"
	FormatHEIC = "HEIC"
)

var extFormat = map[string]string{
	".jpg":  FormatJPEG,
	".jpeg": FormatJPEG,
	".png":  FormatPNG,
	".heic": FormatHEIC,
	".heif": FormatHEIC,
}

// formatExt is the canonical extension used when a mismatched file is
// written under its real format.
var formatExt = map[string]string{
	FormatJPEG: ".jpg",
	FormatPNG:  ".png",
	FormatHEIC: ".heic",
}

// DetectFormatMismatch returns the real format of path when its content
// does not match its extension, or "" when they agree or cannot be told.
// RAW extensions are never checked.
func DetectFormatMismatch(path string) string {
	expected, ok := extFormat[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return ""
	}

	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	header := make([]byte, 12)
	n, _ := io.ReadFull(f, header)
	actual := sniff(header[:n])
	if actual == "" || actual == expected {
		return ""
	}
	return actual
}

func sniff(header []byte) string {
	switch {
	case bytes.HasPrefix(header, []byte{0xFF, 0xD8, 0xFF}):
		return FormatJPEG
	case bytes.HasPrefix(header, []byte{0x89, 'P', 'N', 'G'}):
		return FormatPNG
	case len(header) >= 8 && string(header[4:8]) == "ftyp":
		return FormatHEIC
	}
	return ""
}

// intactImage reports whether r starts with a JPEG, PNG or TIFF header.
func intactImage(r io.ReaderAt) bool {
	header := make([]byte, 4)
	n, _ := r.ReadAt(header, 0)
	header = header[:n]
	switch sniff(header) {
	case FormatJPEG, FormatPNG:
		return true
	}
	return bytes.HasPrefix(header, []byte("II*\x00")) || bytes.HasPrefix(header, []byte("MM\x00*"))
}
