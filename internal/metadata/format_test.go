package metadata

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	jpegHeader = []byte{0xFF, 0xD8, 0xFF, 0xE1, 0, 0, 'E', 'x', 'i', 'f', 0, 0}
	pngHeader  = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1A, '\n', 0, 0, 0, 0}
	heicHeader = []byte{0, 0, 0, 0x18, 'f', 't', 'y', 'p', 'h', 'e', 'i', 'c'}
)

func writeFile(t *testing.T, dir, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, content, 0o644))
	return path
}

func TestDetectFormatMismatch(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		file    string
		content []byte
		want    string
	}{
		{"jpeg named heic", "takeout.heic", jpegHeader, FormatJPEG},
		{"jpeg named jpg", "ok.jpg", jpegHeader, ""},
		{"png named jpeg", "shot.JPEG", pngHeader, FormatPNG},
		{"heic named heif", "ok.heif", heicHeader, ""},
		{"heic named jpg", "phone.jpg", heicHeader, FormatHEIC},
		{"raw never checked", "raw.nef", jpegHeader, ""},
		{"unknown content", "odd.jpg", []byte("not an image"), ""},
		{"short file", "tiny.png", []byte{0x89}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, dir, tt.file, tt.content)
			assert.Equal(t, tt.want, DetectFormatMismatch(path))
		})
	}

	t.Run("missing file", func(t *testing.T) {
		assert.Equal(t, "", DetectFormatMismatch(filepath.Join(dir, "gone.jpg")))
	})
}
