package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEdge(t *testing.T) {
	for _, e := range []Edge{Top, Bottom, Left, Right} {
		got, err := ParseEdge(e.String())
		require.NoError(t, err)
		assert.Equal(t, e, got)
	}
	_, err := ParseEdge("middle")
	assert.Error(t, err)

	assert.True(t, Top.Vertical())
	assert.False(t, Left.Vertical())
	assert.True(t, Right.Reversed())
	assert.False(t, Top.Reversed())
}

func TestParseAggregation(t *testing.T) {
	for _, a := range []Aggregation{Max, Min, Mean, Sum, StdDev, Median} {
		got, err := ParseAggregation(a.String())
		require.NoError(t, err)
		assert.Equal(t, a, got)
	}
	got, err := ParseAggregation(" AVG ")
	require.NoError(t, err)
	assert.Equal(t, Mean, got)

	_, err = ParseAggregation("mode")
	assert.Error(t, err)
	assert.Equal(t, "aggregation(9)", Aggregation(9).String())
	assert.False(t, Median.KeepsType())
	assert.False(t, Sum.KeepsType())
}
