// Package imageio moves planes between hyperstacks and ordinary image
// files. Directories of numbered PNG, JPEG or TIFF slices load into a
// stack, and stacks export back to one image per plane.
package imageio

import (
	"cmp"
	"context"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strconv"
	"strings"
	"sync"

	_ "golang.org/x/image/tiff"
	"golang.org/x/sync/errgroup"

	"hyperstacks/internal/models"
	"hyperstacks/pkg/consensus"
	"hyperstacks/pkg/hyperstack"
	"hyperstacks/pkg/progress"
)

// Extensions lists the file suffixes picked up by Scan.
var Extensions = []string{".png", ".jpg", ".jpeg", ".tif", ".tiff"}

// LoadOptions controls LoadDirectory.
type LoadOptions struct {
	// Extents arranges the sorted files in linear order. The zero value
	// stacks every file along depth.
	Extents hyperstack.Extents

	// Type forces the element type. Zero promotes every file to the
	// highest-ranked type found.
	Type hyperstack.ElementType

	Ranking consensus.Ranking

	// Workers bounds concurrent decodes; zero means GOMAXPROCS.
	Workers int
}

// Scan lists the image files in dir ordered by the number in their name.
// Files without a number sort last, by name.
func Scan(dir string) ([]models.SliceFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []models.SliceFile
	for _, entry := range entries {
		if entry.IsDir() || !slices.Contains(Extensions, strings.ToLower(filepath.Ext(entry.Name()))) {
			continue
		}
		files = append(files, models.SliceFile{
			Path:   filepath.Join(dir, entry.Name()),
			Number: extractNumber(entry.Name()),
		})
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no images found in %s", dir)
	}

	slices.SortFunc(files, func(a, b models.SliceFile) int {
		switch {
		case a.Number < 0 && b.Number >= 0:
			return 1
		case b.Number < 0 && a.Number >= 0:
			return -1
		}
		if c := cmp.Compare(a.Number, b.Number); c != 0 {
			return c
		}
		return cmp.Compare(a.Path, b.Path)
	})
	for i := range files {
		files[i].Index = i
	}
	return files, nil
}

// extractNumber returns the last run of digits in the base name, or -1.
func extractNumber(filename string) int {
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	end := strings.LastIndexFunc(base, isDigit)
	if end < 0 {
		return -1
	}
	start := strings.LastIndexFunc(base[:end], func(r rune) bool { return !isDigit(r) }) + 1
	n, err := strconv.Atoi(base[start : end+1])
	if err != nil {
		return -1
	}
	return n
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

// LoadDirectory decodes every image in dir into one hyperstack.
func LoadDirectory(ctx context.Context, dir string, opts LoadOptions, sink progress.Sink) (*hyperstack.Hyperstack, error) {
	files, err := Scan(dir)
	if err != nil {
		return nil, err
	}
	return LoadFiles(ctx, files, opts, sink)
}

// LoadFiles decodes files in the given order.
func LoadFiles(ctx context.Context, files []models.SliceFile, opts LoadOptions, sink progress.Sink) (*hyperstack.Hyperstack, error) {
	sink = progress.OrNop(sink)
	ext := opts.Extents
	if ext == (hyperstack.Extents{}) {
		ext = hyperstack.Extents{C: 1, Z: len(files), T: 1}
	}
	if err := ext.Validate(); err != nil {
		return nil, err
	}
	if ext.Len() != len(files) {
		return nil, hyperstack.NewConfigurationError("load", "%s needs %d planes, found %d images", ext, ext.Len(), len(files))
	}

	planes := make([]*hyperstack.Plane, len(files))
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	var (
		mu   sync.Mutex
		done int
	)
	for i, f := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			p, err := Decode(f.Path)
			if err != nil {
				return err
			}
			planes[i] = p
			mu.Lock()
			done++
			sink.Report(done, len(files), filepath.Base(f.Path))
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var err error
	typ := opts.Type
	if typ == 0 {
		types := make([]hyperstack.ElementType, len(planes))
		for i, p := range planes {
			types[i] = p.Type()
		}
		ranking := opts.Ranking
		if ranking == nil {
			ranking = consensus.DefaultRanking
		}
		if typ, err = ranking.Target(types...); err != nil {
			return nil, err
		}
	}
	for i, p := range planes {
		if !p.SameShape(planes[0]) {
			return nil, hyperstack.NewConfigurationError("load", "%s is %dx%d, expected %dx%d",
				files[i].Path, p.Width(), p.Height(), planes[0].Width(), planes[0].Height())
		}
		if planes[i], err = p.Convert(typ); err != nil {
			return nil, err
		}
	}
	return hyperstack.New(planes[0].Width(), planes[0].Height(), typ, ext, planes)
}

// Decode reads one image file as a plane.
func Decode(path string) (*hyperstack.Plane, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %s: %w", path, err)
	}
	return FromImage(img)
}

// FromImage converts an image to a grey plane. 16-bit images become
// Uint16 planes; everything else becomes Uint8 using the standard
// luminance weights.
func FromImage(img image.Image) (*hyperstack.Plane, error) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	switch src := img.(type) {
	case *image.Gray:
		pix := make([]uint8, 0, w*h)
		for y := b.Min.Y; y < b.Max.Y; y++ {
			off := src.PixOffset(b.Min.X, y)
			pix = append(pix, src.Pix[off:off+w]...)
		}
		return hyperstack.NewUint8Plane(w, h, pix)
	case *image.Gray16, *image.RGBA64, *image.NRGBA64:
		pix := make([]uint16, w*h)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				pix[y*w+x] = color.Gray16Model.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray16).Y
			}
		}
		return hyperstack.NewUint16Plane(w, h, pix)
	default:
		pix := make([]uint8, w*h)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				pix[y*w+x] = color.GrayModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray).Y
			}
		}
		return hyperstack.NewUint8Plane(w, h, pix)
	}
}
