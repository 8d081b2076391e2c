package transform

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hyperstacks/internal/models"
	"hyperstacks/pkg/hyperstack"
	"hyperstacks/pkg/selector"
)

// depthStack has one channel, four depth planes of 2×1 pixels with values
// {1, 2, 4, 9} in pixel 0 and {5, 5, 5, 5} in pixel 1.
func depthStack(t *testing.T) *hyperstack.Hyperstack {
	t.Helper()
	values := []uint16{1, 2, 4, 9}
	planes := make([]*hyperstack.Plane, len(values))
	for i, v := range values {
		p, err := hyperstack.NewUint16Plane(2, 1, []uint16{v, 5})
		require.NoError(t, err)
		planes[i] = p
	}
	h, err := hyperstack.New(2, 1, hyperstack.Uint16, hyperstack.Extents{C: 1, Z: 4, T: 1}, planes)
	require.NoError(t, err)
	return h
}

func TestProjectAggregations(t *testing.T) {
	src := depthStack(t)
	tests := []struct {
		agg  models.Aggregation
		typ  hyperstack.ElementType
		want []float64
	}{
		{models.Max, hyperstack.Uint16, []float64{9, 5}},
		{models.Min, hyperstack.Uint16, []float64{1, 5}},
		{models.Sum, hyperstack.Float32, []float64{16, 20}},
		{models.Mean, hyperstack.Float32, []float64{4, 5}},
		{models.Median, hyperstack.Float32, []float64{3, 5}},
		{models.StdDev, hyperstack.Float32, []float64{float64(float32(math.Sqrt(38.0 / 3))), 0}},
	}
	for _, tt := range tests {
		t.Run(tt.agg.String(), func(t *testing.T) {
			res, err := newEngine().Project(context.Background(), src, ProjectParams{
				Axis:        hyperstack.Depth,
				Aggregation: tt.agg,
			}, nil)
			require.NoError(t, err)
			out := res.Stack()
			assert.Equal(t, hyperstack.Extents{C: 1, Z: 1, T: 1}, out.Extents())
			assert.Equal(t, tt.typ, out.Type())
			assert.Equal(t, tt.want, out.PlaneAt(0).Float64s())
		})
	}
}

func TestProjectSingleIndexIsIdentity(t *testing.T) {
	src := numbered(t, hyperstack.Extents{C: 2, Z: 3, T: 2}, 3, 2)
	for _, agg := range []models.Aggregation{models.Max, models.Min, models.Mean, models.Sum, models.StdDev, models.Median} {
		res, err := newEngine().Project(context.Background(), src, ProjectParams{
			Axis:        hyperstack.Frame,
			Aggregation: agg,
			Selection:   selector.Only(-1),
		}, nil)
		require.NoError(t, err, agg.String())
		out := res.Stack()
		require.Equal(t, hyperstack.Extents{C: 2, Z: 3, T: 1}, out.Extents())
		out.Each(func(_ int, c hyperstack.Coordinate, p *hyperstack.Plane) {
			assert.True(t, src.Plane(c.With(hyperstack.Frame, 1)).Equal(p), "%s at %s", agg, c)
		})
	}
}

func TestProjectSelectionRestrictsPlanes(t *testing.T) {
	res, err := newEngine().Project(context.Background(), depthStack(t), ProjectParams{
		Axis:        hyperstack.Depth,
		Aggregation: models.Max,
		Selection:   selector.Only(0, 1),
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 5}, res.Stack().PlaneAt(0).Float64s())

	_, err = newEngine().Project(context.Background(), depthStack(t), ProjectParams{
		Axis:      hyperstack.Depth,
		Selection: selector.Selector{Source: selector.List{}},
	}, nil)
	assert.ErrorIs(t, err, hyperstack.ErrConfiguration)

	_, err = newEngine().Project(context.Background(), depthStack(t), ProjectParams{
		Axis:        hyperstack.Depth,
		Aggregation: models.Aggregation(42),
	}, nil)
	assert.ErrorIs(t, err, hyperstack.ErrConfiguration)
}

func TestProjectMedianOfEvenCountIsExact(t *testing.T) {
	planes := make([]*hyperstack.Plane, 2)
	for i, v := range []uint8{3, 4} {
		p, err := hyperstack.NewUint8Plane(1, 1, []uint8{v})
		require.NoError(t, err)
		planes[i] = p
	}
	src, err := hyperstack.New(1, 1, hyperstack.Uint8, hyperstack.Extents{C: 1, Z: 2, T: 1}, planes)
	require.NoError(t, err)

	res, err := newEngine().Project(context.Background(), src, ProjectParams{
		Axis:        hyperstack.Depth,
		Aggregation: models.Median,
	}, nil)
	require.NoError(t, err)
	out := res.Stack()
	assert.Equal(t, hyperstack.Float32, out.Type())
	assert.Equal(t, []float64{3.5}, out.PlaneAt(0).Float64s())
}

func TestMedian(t *testing.T) {
	assert.Equal(t, 2.0, median([]float64{3, 1, 2}))
	assert.Equal(t, 2.5, median([]float64{4, 1, 3, 2}))
	assert.True(t, math.IsNaN(median(nil)))
}
