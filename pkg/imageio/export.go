package imageio

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/tiff"

	"hyperstacks/pkg/hyperstack"
	"hyperstacks/pkg/progress"
)

// Format is an output image encoding.
type Format string

const (
	PNG  Format = "png"
	JPEG Format = "jpeg"
	TIFF Format = "tiff"
)

// ParseFormat accepts a format name or a file extension.
func ParseFormat(s string) (Format, error) {
	switch strings.TrimPrefix(strings.ToLower(s), ".") {
	case "png", "":
		return PNG, nil
	case "jpg", "jpeg":
		return JPEG, nil
	case "tif", "tiff":
		return TIFF, nil
	default:
		return "", fmt.Errorf("unknown image format %q", s)
	}
}

func (f Format) extension() string {
	switch f {
	case JPEG:
		return ".jpg"
	case TIFF:
		return ".tif"
	default:
		return ".png"
	}
}

// ExportOptions controls ExportPlanes.
type ExportOptions struct {
	Format Format

	// Prefix starts every file name; defaults to "slice".
	Prefix string

	// Quality is the JPEG quality; defaults to 90.
	Quality int
}

// ToImage renders a plane as a grey image. Uint8 and Uint16 planes keep
// their values; Int32 and Float32 planes are stretched so their minimum
// maps to black and their maximum to white.
func ToImage(p *hyperstack.Plane) image.Image {
	rect := image.Rect(0, 0, p.Width(), p.Height())
	switch p.Type() {
	case hyperstack.Uint8:
		img := image.NewGray(rect)
		copy(img.Pix, p.Uint8s())
		return img
	case hyperstack.Uint16:
		img := image.NewGray16(rect)
		for i, v := range p.Uint16s() {
			img.SetGray16(i%p.Width(), i/p.Width(), color.Gray16{Y: v})
		}
		return img
	}

	values := p.Float64s()
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	scale := 0.0
	if hi > lo {
		scale = math.MaxUint16 / (hi - lo)
	}
	img := image.NewGray16(rect)
	for i, v := range values {
		y := uint16(math.Round(math.Max(0, math.Min(math.MaxUint16, (v-lo)*scale))))
		img.SetGray16(i%p.Width(), i/p.Width(), color.Gray16{Y: y})
	}
	return img
}

// SavePlane encodes one plane to filename.
func SavePlane(p *hyperstack.Plane, filename string, opts ExportOptions) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	img := ToImage(p)
	switch opts.Format {
	case JPEG:
		quality := opts.Quality
		if quality <= 0 {
			quality = 90
		}
		err = jpeg.Encode(file, img, &jpeg.Options{Quality: quality})
	case TIFF:
		err = tiff.Encode(file, img, &tiff.Options{Compression: tiff.Deflate})
	default:
		err = png.Encode(file, img)
	}
	if cerr := file.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("writing %s: %w", filename, err)
	}
	return nil
}

// ExportPlanes writes every plane of h to dir as
// <prefix>_c<c>_z<z>_t<t>.<ext> and returns the file names in linear order.
func ExportPlanes(ctx context.Context, h *hyperstack.Hyperstack, dir string, opts ExportOptions, sink progress.Sink) ([]string, error) {
	if h == nil {
		return nil, hyperstack.NewConfigurationError("export", "no input stack")
	}
	sink = progress.OrNop(sink)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	prefix := opts.Prefix
	if prefix == "" {
		prefix = "slice"
	}

	names := make([]string, 0, h.Len())
	for i, p := range h.Planes() {
		if err := ctx.Err(); err != nil {
			return names, err
		}
		c := h.Extents().Coordinate(i)
		name := filepath.Join(dir, fmt.Sprintf("%s_c%03d_z%03d_t%03d%s", prefix, c.C, c.Z, c.T, opts.Format.extension()))
		if err := SavePlane(p, name, opts); err != nil {
			return names, err
		}
		names = append(names, name)
		sink.Report(i+1, h.Len(), filepath.Base(name))
	}
	return names, nil
}
