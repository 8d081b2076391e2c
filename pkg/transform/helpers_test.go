package transform

import (
	"testing"

	"github.com/stretchr/testify/require"

	"hyperstacks/pkg/hyperstack"
)

// numbered builds a uint16 stack whose plane at linear index i holds
// i*1000 + pixel offset, so a plane's origin can be read back from its
// first pixel.
func numbered(t *testing.T, ext hyperstack.Extents, w, h int) *hyperstack.Hyperstack {
	t.Helper()
	planes := make([]*hyperstack.Plane, ext.Len())
	for i := range planes {
		pix := make([]uint16, w*h)
		for j := range pix {
			pix[j] = uint16(i*1000 + j)
		}
		p, err := hyperstack.NewUint16Plane(w, h, pix)
		require.NoError(t, err)
		planes[i] = p
	}
	stack, err := hyperstack.New(w, h, hyperstack.Uint16, ext, planes)
	require.NoError(t, err)
	return stack
}

// origin returns the source linear index encoded by numbered.
func origin(p *hyperstack.Plane) int {
	return int(p.Value(0)) / 1000
}

func newEngine() *Engine {
	return New(Options{Workers: 4})
}

func floatStack(t *testing.T, ext hyperstack.Extents, w, h int, fill func(c hyperstack.Coordinate, x, y int) float32) *hyperstack.Hyperstack {
	t.Helper()
	planes := make([]*hyperstack.Plane, ext.Len())
	for i := range planes {
		c := ext.Coordinate(i)
		pix := make([]float32, w*h)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				pix[y*w+x] = fill(c, x, y)
			}
		}
		p, err := hyperstack.NewFloat32Plane(w, h, pix)
		require.NoError(t, err)
		planes[i] = p
	}
	stack, err := hyperstack.New(w, h, hyperstack.Float32, ext, planes)
	require.NoError(t, err)
	return stack
}
