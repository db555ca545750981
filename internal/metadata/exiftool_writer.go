package metadata

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"geosnag-go/internal/geosnag"
)

// ExiftoolWriter writes GPS tags into the file itself.
type ExiftoolWriter struct {
	et     *Exiftool
	logger geosnag.Logger
}

func NewExiftoolWriter(et *Exiftool, logger geosnag.Logger) *ExiftoolWriter {
	if logger == nil {
		logger = geosnag.NewNopLogger()
	}
	return &ExiftoolWriter{et: et, logger: logger}
}

func (w *ExiftoolWriter) Name() string             { return "exiftool" }
func (w *ExiftoolWriter) Kind() geosnag.WriterKind { return geosnag.WriterKindEXIF }

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func refOf(v float64, pos, neg string) string {
	if v >= 0 {
		return pos
	}
	return neg
}

// gpsArgs builds the exiftool arguments for one coordinate write.
func gpsArgs(coord geosnag.Coordinate, stamp string) []string {
	args := []string{
		"-overwrite_original",
		"-GPSLatitude=" + formatFloat(math.Abs(coord.Latitude)),
		"-GPSLatitudeRef=" + refOf(coord.Latitude, "N", "S"),
		"-GPSLongitude=" + formatFloat(math.Abs(coord.Longitude)),
		"-GPSLongitudeRef=" + refOf(coord.Longitude, "E", "W"),
		"-GPSMapDatum=WGS-84",
	}
	if coord.Altitude != nil {
		alt := *coord.Altitude
		args = append(args,
			"-GPSAltitude="+formatFloat(math.Abs(alt)),
			"-GPSAltitudeRef="+refOf(alt, "0", "1"),
		)
	}
	if stamp != "" {
		args = append(args, "-Software="+stamp)
	}
	return args
}

// WriteGPS writes the coordinate in place. Files whose content does not match
// their extension are written through a correctly named temporary copy.
func (w *ExiftoolWriter) WriteGPS(ctx context.Context, path string, coord geosnag.Coordinate, opts geosnag.WriteOptions) error {
	if !coord.Valid() {
		return fmt.Errorf("%w: %s", geosnag.ErrInvalidCoordinate, coord)
	}
	args := gpsArgs(coord, opts.Stamp)

	if opts.FormatMismatch != "" {
		w.logger.Info("format mismatch, writing through renamed copy",
			"path", path, "actual", opts.FormatMismatch)
		return w.writeRenamed(ctx, path, opts.FormatMismatch, args)
	}

	_, err := w.et.run(ctx, append(args, path)...)
	return err
}

// writeRenamed copies path to a temp file carrying the real format's
// extension, writes the copy and replaces the original with it. The original
// is untouched on any failure.
func (w *ExiftoolWriter) writeRenamed(ctx context.Context, path, format string, args []string) (err error) {
	ext, ok := formatExt[format]
	if !ok {
		return fmt.Errorf("unknown format %q, cannot choose an extension", format)
	}

	info, err := os.Lstat(path)
	if err != nil {
		return err
	}
	if info.Mode()&os.ModeSymlink != 0 {
		return fmt.Errorf("refusing to rename-write through symlink: %s", path)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".geosnag_*"+ext)
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			os.Remove(tmpPath)
		}
	}()

	src, err := os.Open(path)
	if err != nil {
		tmp.Close()
		return err
	}
	_, err = io.Copy(tmp, src)
	src.Close()
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("copying to temp file: %w", err)
	}
	if err = os.Chmod(tmpPath, info.Mode().Perm()); err != nil {
		return err
	}

	if _, err = w.et.run(ctx, append(args, tmpPath)...); err != nil {
		return err
	}
	if err = os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("replacing original: %w", err)
	}
	return nil
}

// MarkProcessed writes only the processed marker.
func (w *ExiftoolWriter) MarkProcessed(ctx context.Context, path string, stamp string) error {
	_, err := w.et.run(ctx, "-overwrite_original", "-Software="+stamp, path)
	return err
}

// Compile-time check
var _ geosnag.MetadataWriter = (*ExiftoolWriter)(nil)
