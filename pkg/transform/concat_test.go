package transform

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hyperstacks/pkg/hyperstack"
)

func TestConcatenateChannels(t *testing.T) {
	a := numbered(t, hyperstack.Extents{C: 1, Z: 2, T: 1}, 2, 2)
	b := numbered(t, hyperstack.Extents{C: 2, Z: 2, T: 1}, 2, 2)

	res, err := newEngine().Concatenate(context.Background(), a, b, hyperstack.Channel, nil)
	require.NoError(t, err)
	out := res.Stack()
	require.Equal(t, hyperstack.Extents{C: 3, Z: 2, T: 1}, out.Extents())

	assert.Same(t, a.Plane(hyperstack.Coordinate{Z: 1}), out.Plane(hyperstack.Coordinate{Z: 1}))
	assert.Same(t, b.Plane(hyperstack.Coordinate{C: 1}), out.Plane(hyperstack.Coordinate{C: 2}))
	assert.Same(t, b.Plane(hyperstack.Coordinate{C: 0, Z: 1}), out.Plane(hyperstack.Coordinate{C: 1, Z: 1}))
}

func TestConcatenateMismatchedDepth(t *testing.T) {
	a := numbered(t, hyperstack.Extents{C: 1, Z: 2, T: 1}, 2, 2)
	b := numbered(t, hyperstack.Extents{C: 1, Z: 3, T: 1}, 2, 2)

	_, err := newEngine().Concatenate(context.Background(), a, b, hyperstack.Channel, nil)
	var cfg *hyperstack.ConfigurationError
	require.ErrorAs(t, err, &cfg)
	assert.Equal(t, hyperstack.Depth, cfg.Axis)

	c := numbered(t, hyperstack.Extents{C: 1, Z: 2, T: 1}, 3, 2)
	_, err = newEngine().Concatenate(context.Background(), a, c, hyperstack.Frame, nil)
	assert.ErrorIs(t, err, hyperstack.ErrConfiguration)

	_, err = newEngine().Concatenate(context.Background(), a, nil, hyperstack.Frame, nil)
	assert.ErrorIs(t, err, hyperstack.ErrConfiguration)
}

func TestConcatenatePromotesTypes(t *testing.T) {
	pix := []uint8{0, 7, 200, 255}
	p8, err := hyperstack.NewUint8Plane(2, 2, pix)
	require.NoError(t, err)
	pf, err := hyperstack.NewFloat32Plane(2, 2, []float32{0.5, 1.5, 2.5, 3.5})
	require.NoError(t, err)

	res, err := newEngine().Concatenate(context.Background(), hyperstack.Single(p8), hyperstack.Single(pf), hyperstack.Frame, nil)
	require.NoError(t, err)
	out := res.Stack()
	assert.Equal(t, hyperstack.Float32, out.Type())
	assert.Equal(t, []float32{0, 7, 200, 255}, out.PlaneAt(0).Float32s())
	assert.Same(t, pf, out.PlaneAt(1))

	p32, err := hyperstack.NewInt32Plane(2, 2, make([]int32, 4))
	require.NoError(t, err)
	_, err = newEngine().Concatenate(context.Background(), hyperstack.Single(p8), hyperstack.Single(p32), hyperstack.Frame, nil)
	assert.ErrorIs(t, err, hyperstack.ErrTypeMismatch)
}

func TestMerge(t *testing.T) {
	e := newEngine()
	inputs := []*hyperstack.Hyperstack{
		numbered(t, hyperstack.Extents{C: 2, Z: 1, T: 1}, 1, 1),
		numbered(t, hyperstack.Extents{C: 2, Z: 1, T: 1}, 1, 1),
		numbered(t, hyperstack.Extents{C: 2, Z: 1, T: 1}, 1, 1),
	}

	res, err := e.Merge(context.Background(), inputs, hyperstack.Depth, nil)
	require.NoError(t, err)
	out := res.Stack()
	require.Equal(t, hyperstack.Extents{C: 2, Z: 3, T: 1}, out.Extents())
	for z, in := range inputs {
		assert.Same(t, in.Plane(hyperstack.Coordinate{C: 1}), out.Plane(hyperstack.Coordinate{C: 1, Z: z}))
	}

	res, err = e.Merge(context.Background(), inputs[:1], hyperstack.Depth, nil)
	require.NoError(t, err)
	assert.Same(t, inputs[0], res.Stack())

	_, err = e.Merge(context.Background(), nil, hyperstack.Depth, nil)
	assert.ErrorIs(t, err, hyperstack.ErrConfiguration)

	_, err = e.Merge(context.Background(), inputs, hyperstack.Channel, nil)
	var cfg *hyperstack.ConfigurationError
	require.ErrorAs(t, err, &cfg)
	assert.Equal(t, hyperstack.Channel, cfg.Axis)
}
