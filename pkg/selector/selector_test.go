package selector

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hyperstacks/pkg/expression"
	"hyperstacks/pkg/hyperstack"
)

func TestParseRanges(t *testing.T) {
	tests := []struct {
		in   string
		want Ranges
	}{
		{"3", Ranges{{3, 3}}},
		{"0-3", Ranges{{0, 3}}},
		{"0-3, 5", Ranges{{0, 3}, {5, 5}}},
		{"-1", Ranges{{-1, -1}}},
		{"7..9,-2-1", Ranges{{7, 9}, {-2, 1}}},
		{"3--1", Ranges{{3, -1}}},
		{"4..2", Ranges{{4, 2}}},
	}
	for _, tt := range tests {
		got, err := ParseRanges(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	for _, bad := range []string{"", "a", "1,", "1-", "1..2..3"} {
		_, err := ParseRanges(bad)
		assert.Error(t, err, "%q", bad)
	}
}

func TestRangesValues(t *testing.T) {
	vals, err := Ranges{{0, 2}, {5, 3}, {-1, -1}}.Values(10, nil)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 5, 4, 3, -1}, vals)

	r := Ranges{{5, 3}}
	assert.Equal(t, uint64(3), r.Len())
	assert.True(t, r.Contains(4))
	assert.False(t, r.Contains(6))
	assert.Equal(t, "5..3", r.String())
}

func TestRangesValuesBoundedByExtent(t *testing.T) {
	vals, err := Ranges{{-3, 2}}.Values(5, nil)
	require.NoError(t, err)
	assert.Len(t, vals, 6)

	_, err = Ranges{{0, 4000000000}}.Values(5, nil)
	assert.Error(t, err)

	huge := Ranges{{math.MinInt, math.MaxInt}, {0, 1}}
	assert.Equal(t, ^uint64(0), huge.Len())
	_, err = huge.Values(5, nil)
	assert.Error(t, err)

	sel, err := Parse("0..4000000000")
	require.NoError(t, err)
	_, err = sel.Indices(hyperstack.Depth, 5, nil)
	assert.ErrorIs(t, err, hyperstack.ErrConfiguration)
}

func TestResolveWrapsAndDedups(t *testing.T) {
	got, err := Resolve(hyperstack.Depth, []int{-1, 0, 5, 4, 9}, 5, Options{})
	require.NoError(t, err)
	assert.Equal(t, []int{4, 0, 0, 4, 4}, got)

	got, err = Resolve(hyperstack.Depth, []int{-1, 0, 5, 4, 9}, 5, Options{Distinct: true})
	require.NoError(t, err)
	assert.Equal(t, []int{4, 0}, got)

	got, err = Resolve(hyperstack.Depth, []int{3, -1, 1, 3}, 5, Options{Distinct: true, Sorted: true})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3, 4}, got)
}

func TestResolveEmptyIsConfigurationError(t *testing.T) {
	_, err := Resolve(hyperstack.Channel, nil, 3, Options{})
	var cfg *hyperstack.ConfigurationError
	require.ErrorAs(t, err, &cfg)
	assert.Equal(t, hyperstack.Channel, cfg.Axis)

	_, err = Resolve(hyperstack.Channel, []int{1}, 0, Options{})
	assert.ErrorIs(t, err, hyperstack.ErrConfiguration)
}

func TestSelectorIndices(t *testing.T) {
	idx, err := All().Indices(hyperstack.Frame, 3, nil)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, idx)

	idx, err = Only(-1, 0).Indices(hyperstack.Frame, 3, nil)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 0}, idx)

	sel, err := Parse("expr:range(n - 1, -1, -1)")
	require.NoError(t, err)
	idx, err = sel.Indices(hyperstack.Depth, 4, nil)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 2, 1, 0}, idx)

	sel, err = Parse("expr:offset + 1")
	require.NoError(t, err)
	idx, err = sel.Indices(hyperstack.Depth, 4, expression.Env{"offset": expression.Int(5)})
	require.NoError(t, err)
	assert.Equal(t, []int{2}, idx)

	_, err = sel.Indices(hyperstack.Depth, 4, nil)
	assert.ErrorIs(t, err, hyperstack.ErrConfiguration, "unknown variable surfaces as configuration error")
}

func TestParseSelector(t *testing.T) {
	for _, s := range []string{"", " all ", "ALL"} {
		sel, err := Parse(s)
		require.NoError(t, err)
		assert.True(t, sel.IsAll(), "%q", s)
	}
	sel, err := Parse("1-2")
	require.NoError(t, err)
	assert.Equal(t, Ranges{{1, 2}}, sel.Source)

	_, err = Parse("expr:(")
	assert.Error(t, err)
}
