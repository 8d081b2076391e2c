package transform

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/go-logr/logr/funcr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hyperstacks/pkg/annotation"
	"hyperstacks/pkg/hyperstack"
)

func TestFlatten(t *testing.T) {
	src := numbered(t, hyperstack.Extents{C: 2, Z: 2, T: 2}, 1, 1)
	res, err := newEngine().Flatten(context.Background(), src, FlattenParams{IncludeIndex: true}, nil)
	require.NoError(t, err)
	require.Len(t, res.Outputs, 8)

	for i, o := range res.Outputs {
		c := src.Extents().Coordinate(i)
		assert.Same(t, src.PlaneAt(i), o.Stack.PlaneAt(0))
		assert.Equal(t, hyperstack.Extents{C: 1, Z: 1, T: 1}, o.Stack.Extents())
		v, _ := o.Annotations.Get(annotation.FlattenDepth)
		assert.Equal(t, strconv.Itoa(c.Z), v)
		v, _ = o.Annotations.Get(annotation.FlattenIndex)
		assert.Equal(t, strconv.Itoa(i), v)
	}
	assert.Equal(t, "plane-c1-z0-t1", res.Outputs[5].Name)

	res, err = newEngine().Flatten(context.Background(), src, FlattenParams{Prefix: "p"}, nil)
	require.NoError(t, err)
	_, ok := res.Outputs[0].Annotations.Get(annotation.FlattenIndex)
	assert.False(t, ok)
	assert.Equal(t, "p-c0-z0-t0", res.Outputs[0].Name)
}

func TestForEachStopsOnFirstError(t *testing.T) {
	e := New(Options{Workers: 2})
	var ran atomic.Int32
	boom := errors.New("boom")
	err := e.forEach(context.Background(), 1000, nil, func(i int) error {
		ran.Add(1)
		if i == 3 {
			return boom
		}
		return nil
	})
	assert.ErrorIs(t, err, boom)
	assert.Less(t, int(ran.Load()), 1000)
}

func TestEngineLogsFailures(t *testing.T) {
	var lines []string
	logger := funcr.New(func(prefix, args string) {
		lines = append(lines, prefix+" "+args)
	}, funcr.Options{Verbosity: 1})

	e := New(Options{Logger: logger})
	_, err := e.Merge(context.Background(), nil, hyperstack.Frame, nil)
	require.Error(t, err)
	joined := strings.Join(lines, "\n")
	assert.Contains(t, joined, "merge")
	assert.Contains(t, joined, "failed")
}
