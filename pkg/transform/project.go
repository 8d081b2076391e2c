package transform

import (
	"context"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"hyperstacks/internal/models"
	"hyperstacks/pkg/expression"
	"hyperstacks/pkg/hyperstack"
	"hyperstacks/pkg/progress"
	"hyperstacks/pkg/selector"
)

// ProjectParams configure Project.
type ProjectParams struct {
	Axis        hyperstack.Axis
	Aggregation models.Aggregation
	// Selection restricts the participating indices along Axis. The zero
	// value uses all of them.
	Selection selector.Selector
	Env       expression.Env
}

// Project collapses Axis to extent 1 by computing the aggregation per
// pixel over the selected planes. Max and Min keep the source element
// type; Mean, Sum, Median and StdDev (sample, n-1) produce Float32. A
// selection of exactly one index returns that plane unchanged whatever the
// aggregation.
func (e *Engine) Project(ctx context.Context, src *hyperstack.Hyperstack, p ProjectParams, sink progress.Sink) (*Result, error) {
	log := e.start("project", "source", src.String(), "axis", p.Axis.String(), "aggregation", p.Aggregation.String())
	if err := requireStack("project", src); err != nil {
		return e.finish(log, nil, err)
	}
	if !p.Axis.Valid() {
		return e.finish(log, nil, hyperstack.NewConfigurationError("project", "invalid axis %d", int(p.Axis)))
	}
	reduce, ok := reducers[p.Aggregation]
	if !ok {
		return e.finish(log, nil, hyperstack.NewConfigurationError("project", "unknown aggregation %s", p.Aggregation))
	}
	ext := src.Extents()
	idx, err := p.Selection.Indices(p.Axis, ext.Get(p.Axis), stackEnv(src, p.Env))
	if err != nil {
		return e.finish(log, nil, err)
	}

	typ := src.Type()
	if len(idx) > 1 && !p.Aggregation.KeepsType() {
		typ = hyperstack.Float32
	}
	outExt := ext.With(p.Axis, 1)
	b, err := hyperstack.NewBuilder("project", src.Width(), src.Height(), typ, outExt)
	if err != nil {
		return e.finish(log, nil, err)
	}

	err = e.forEach(ctx, outExt.Len(), sink, func(i int) error {
		dst := outExt.Coordinate(i)
		if len(idx) == 1 {
			return b.Set(dst, src.Plane(dst.With(p.Axis, idx[0])))
		}
		columns := make([][]float64, len(idx))
		for k, j := range idx {
			columns[k] = src.Plane(dst.With(p.Axis, j)).Float64s()
		}
		n := src.Width() * src.Height()
		out := make([]float64, n)
		values := make([]float64, len(idx))
		for px := 0; px < n; px++ {
			for k := range columns {
				values[k] = columns[k][px]
			}
			out[px] = reduce(values)
		}
		plane, err := hyperstack.FromFloat64s(typ, src.Width(), src.Height(), out)
		if err != nil {
			return err
		}
		return b.Set(dst, plane)
	})
	if err != nil {
		return e.finish(log, nil, err)
	}
	h, err := b.Build()
	if err != nil {
		return e.finish(log, nil, err)
	}
	return e.finish(log, single("project", h, nil), nil)
}

// reducers may reorder their argument.
var reducers = map[models.Aggregation]func(values []float64) float64{
	models.Max:  floats.Max,
	models.Min:  floats.Min,
	models.Sum:  floats.Sum,
	models.Mean: func(v []float64) float64 { return stat.Mean(v, nil) },
	models.StdDev: func(v []float64) float64 {
		if len(v) < 2 {
			return 0
		}
		return stat.StdDev(v, nil)
	},
	models.Median: median,
}

// median averages the two middle values of an even-length sample.
func median(v []float64) float64 {
	sort.Float64s(v)
	n := len(v)
	if n == 0 {
		return math.NaN()
	}
	if n%2 == 1 {
		return v[n/2]
	}
	return (v[n/2-1] + v[n/2]) / 2
}
