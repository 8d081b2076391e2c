package transform

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hyperstacks/pkg/expression"
	"hyperstacks/pkg/hyperstack"
)

func TestRelocateWithExpressions(t *testing.T) {
	src := numbered(t, hyperstack.Extents{C: 2, Z: 3, T: 1}, 1, 1)
	// Reverse depth and drop channel 1.
	m := ExpressionMapper{
		Z:      expression.MustParse("num_z - 1 - z"),
		Filter: expression.MustParse("c == 0"),
	}
	res, err := newEngine().Relocate(context.Background(), src, RelocateParams{Mapper: m}, nil)
	require.NoError(t, err)
	out := res.Stack()
	require.Equal(t, hyperstack.Extents{C: 1, Z: 3, T: 1}, out.Extents())
	for z := 0; z < 3; z++ {
		want := src.Plane(hyperstack.Coordinate{C: 0, Z: 2 - z})
		assert.Same(t, want, out.Plane(hyperstack.Coordinate{Z: z}))
	}
}

func TestRelocateKeepAndMoveIntoNewFrames(t *testing.T) {
	src := numbered(t, hyperstack.Extents{C: 1, Z: 4, T: 1}, 1, 1)
	// Depth 0,1 stay; depth 2,3 become frame 1.
	m := MapperFunc(func(c hyperstack.Coordinate, _ MappingContext) (RelocationResult, error) {
		if c.Z < 2 {
			return RelocationResult{Action: Keep}, nil
		}
		return MoveTo(hyperstack.Coordinate{Z: c.Z - 2, T: 1}), nil
	})
	res, err := newEngine().Relocate(context.Background(), src, RelocateParams{Mapper: m}, nil)
	require.NoError(t, err)
	out := res.Stack()
	require.Equal(t, hyperstack.Extents{C: 1, Z: 2, T: 2}, out.Extents())
	assert.Equal(t, 3, origin(out.Plane(hyperstack.Coordinate{Z: 1, T: 1})))
}

func TestRelocateConflicts(t *testing.T) {
	src := numbered(t, hyperstack.Extents{C: 1, Z: 3, T: 1}, 1, 1)
	// Depth 0 and 2 collide on depth 0; depth 1 stays.
	m := ExpressionMapper{Z: expression.MustParse("z % 2")}

	t.Run("error policy", func(t *testing.T) {
		_, err := newEngine().Relocate(context.Background(), src, RelocateParams{Mapper: m}, nil)
		var conflict *hyperstack.ConflictError
		require.ErrorAs(t, err, &conflict)
		assert.Equal(t, hyperstack.Coordinate{}, conflict.Target)
		assert.Equal(t, 0, conflict.First)
		assert.Equal(t, 2, conflict.Second)
	})

	t.Run("overwrite keeps the last source", func(t *testing.T) {
		res, err := newEngine().Relocate(context.Background(), src, RelocateParams{Mapper: m, Policy: Overwrite}, nil)
		require.NoError(t, err)
		out := res.Stack()
		require.Equal(t, 2, out.Extents().Z)
		assert.Equal(t, 2, origin(out.PlaneAt(0)))
		assert.Equal(t, 1, origin(out.PlaneAt(1)))
	})
}

func TestRelocateFailures(t *testing.T) {
	src := numbered(t, hyperstack.Extents{C: 1, Z: 3, T: 1}, 1, 1)
	run := func(m Mapper) error {
		_, err := newEngine().Relocate(context.Background(), src, RelocateParams{Mapper: m, Policy: Overwrite}, nil)
		return err
	}

	t.Run("gap", func(t *testing.T) {
		err := run(ExpressionMapper{Z: expression.MustParse("z * 2")})
		var missing *hyperstack.MissingDataError
		require.ErrorAs(t, err, &missing)
		assert.Equal(t, hyperstack.Coordinate{Z: 1}, missing.Coordinate)
		assert.Equal(t, hyperstack.Extents{C: 1, Z: 5, T: 1}, missing.Extents)
	})

	t.Run("sparse far target", func(t *testing.T) {
		err := run(ExpressionMapper{T: expression.MustParse("if(z == 2, 100000, 0)")})
		assert.ErrorIs(t, err, hyperstack.ErrMissingData)
	})

	t.Run("negative target", func(t *testing.T) {
		err := run(ExpressionMapper{C: expression.MustParse("c - 1")})
		var cfg *hyperstack.ConfigurationError
		require.ErrorAs(t, err, &cfg)
		assert.Equal(t, hyperstack.Channel, cfg.Axis)
	})

	t.Run("everything discarded", func(t *testing.T) {
		err := run(ExpressionMapper{Filter: expression.MustParse("false")})
		assert.ErrorIs(t, err, hyperstack.ErrConfiguration)
	})

	t.Run("mapper error", func(t *testing.T) {
		err := run(MapperFunc(func(hyperstack.Coordinate, MappingContext) (RelocationResult, error) {
			return RelocationResult{}, errors.New("boom")
		}))
		assert.ErrorIs(t, err, hyperstack.ErrConfiguration)
		assert.Contains(t, err.Error(), "boom")
	})

	t.Run("no mapper", func(t *testing.T) {
		assert.ErrorIs(t, run(nil), hyperstack.ErrConfiguration)
	})
}

func TestParseConflictPolicy(t *testing.T) {
	for in, want := range map[string]ConflictPolicy{"": FailOnConflict, "error": FailOnConflict, "Overwrite": Overwrite, "silent": Overwrite} {
		got, err := ParseConflictPolicy(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseConflictPolicy("merge")
	assert.Error(t, err)
}
