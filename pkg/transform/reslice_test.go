package transform

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hyperstacks/internal/models"
	"hyperstacks/pkg/hyperstack"
)

// volume is 3 pixels wide, 2 high and 2 deep; pixel (x, y) of depth z
// holds z*100 + y*10 + x.
func volume(t *testing.T) *hyperstack.Hyperstack {
	return floatStack(t, hyperstack.Extents{C: 1, Z: 2, T: 1}, 3, 2, func(c hyperstack.Coordinate, x, y int) float32 {
		return float32(c.Z*100 + y*10 + x)
	})
}

func reslice(t *testing.T, src *hyperstack.Hyperstack, p ResliceParams) *hyperstack.Hyperstack {
	t.Helper()
	res, err := newEngine().Reslice(context.Background(), src, p, nil)
	require.NoError(t, err)
	return res.Stack()
}

func TestResliceEdges(t *testing.T) {
	src := volume(t)
	tests := []struct {
		name   string
		params ResliceParams
		ext    hyperstack.Extents
		w, h   int
		// first output plane
		want []float64
	}{
		{"top", ResliceParams{Edge: models.Top}, hyperstack.Extents{C: 1, Z: 2, T: 1}, 3, 2,
			[]float64{0, 1, 2, 100, 101, 102}},
		{"bottom", ResliceParams{Edge: models.Bottom}, hyperstack.Extents{C: 1, Z: 2, T: 1}, 3, 2,
			[]float64{10, 11, 12, 110, 111, 112}},
		{"left", ResliceParams{Edge: models.Left}, hyperstack.Extents{C: 1, Z: 3, T: 1}, 2, 2,
			[]float64{0, 10, 100, 110}},
		{"right", ResliceParams{Edge: models.Right}, hyperstack.Extents{C: 1, Z: 3, T: 1}, 2, 2,
			[]float64{2, 12, 102, 112}},
		{"flip", ResliceParams{Edge: models.Top, Flip: true}, hyperstack.Extents{C: 1, Z: 2, T: 1}, 3, 2,
			[]float64{100, 101, 102, 0, 1, 2}},
		{"rotate", ResliceParams{Edge: models.Top, Rotate90: true}, hyperstack.Extents{C: 1, Z: 2, T: 1}, 2, 3,
			[]float64{100, 0, 101, 1, 102, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := reslice(t, src, tt.params)
			assert.Equal(t, tt.ext, out.Extents())
			assert.Equal(t, tt.w, out.Width())
			assert.Equal(t, tt.h, out.Height())
			assert.Equal(t, hyperstack.Float32, out.Type())
			assert.Equal(t, tt.want, out.PlaneAt(0).Float64s())
		})
	}
}

func TestResliceInterpolates(t *testing.T) {
	src := volume(t)

	out := reslice(t, src, ResliceParams{Edge: models.Top, ScanStep: 0.5})
	require.Equal(t, 3, out.Extents().Z)
	assert.Equal(t, []float64{5, 6, 7, 105, 106, 107}, out.PlaneAt(1).Float64s())

	out = reslice(t, src, ResliceParams{Edge: models.Top, DepthScale: 2})
	require.Equal(t, 3, out.Height())
	assert.Equal(t, []float64{10, 11, 12, 60, 61, 62, 110, 111, 112}, out.PlaneAt(1).Float64s())

	out = reslice(t, src, ResliceParams{Edge: models.Top, DepthScale: 2, Interpolator: NearestInterpolator{}})
	assert.Equal(t, []float64{0, 1, 2, 100, 101, 102, 100, 101, 102}, out.PlaneAt(0).Float64s())
}

func TestResliceAvoidInterpolation(t *testing.T) {
	src := volume(t)
	out := reslice(t, src, ResliceParams{Edge: models.Top, ScanStep: 0.5, DepthScale: 3, AvoidInterpolation: true})
	assert.Equal(t, hyperstack.Extents{C: 1, Z: 2, T: 1}, out.Extents())
	assert.Equal(t, 2, out.Height())
	assert.Equal(t, []float64{10, 11, 12, 110, 111, 112}, out.PlaneAt(1).Float64s())
}

func TestResliceKeepsIntegerTypes(t *testing.T) {
	src := numbered(t, hyperstack.Extents{C: 2, Z: 3, T: 2}, 4, 3)
	out := reslice(t, src, ResliceParams{Edge: models.Left})
	assert.Equal(t, hyperstack.Uint16, out.Type())
	assert.Equal(t, hyperstack.Extents{C: 2, Z: 4, T: 2}, out.Extents())
	// Plane (c=1, scan=2, t=1): row z is column 2 of source (1, z, 1).
	p := out.Plane(hyperstack.Coordinate{C: 1, Z: 2, T: 1})
	for z := 0; z < 3; z++ {
		s := src.Plane(hyperstack.Coordinate{C: 1, Z: z, T: 1})
		assert.Equal(t, s.Column(2), p.Row(z))
	}
}

func TestResliceRejectsBadParameters(t *testing.T) {
	src := volume(t)
	for _, p := range []ResliceParams{
		{Edge: models.Edge(7)},
		{Edge: models.Top, ScanStep: -1},
		{Edge: models.Top, DepthScale: -2},
	} {
		_, err := newEngine().Reslice(context.Background(), src, p, nil)
		assert.ErrorIs(t, err, hyperstack.ErrConfiguration)
	}
}

func TestLinearInterpolator(t *testing.T) {
	values := []float64{0, 10, 30}
	at := func(i int) float64 { return values[i] }
	var li LinearInterpolator
	assert.Equal(t, 0.0, li.At(3, -1, at))
	assert.Equal(t, 5.0, li.At(3, 0.5, at))
	assert.Equal(t, 20.0, li.At(3, 1.5, at))
	assert.Equal(t, 30.0, li.At(3, 7, at))
}
