package transform

import (
	"context"

	"hyperstacks/pkg/consensus"
	"hyperstacks/pkg/hyperstack"
	"hyperstacks/pkg/progress"
)

// Concatenate appends b to a along axis. The other two extents and the
// plane size must match; element types are promoted to their consensus
// first. Planes of b are offset by a's extent on axis.
func (e *Engine) Concatenate(ctx context.Context, a, b *hyperstack.Hyperstack, axis hyperstack.Axis, sink progress.Sink) (*Result, error) {
	log := e.start("concatenate", "base", a.String(), "appended", b.String(), "axis", axis.String())
	out, err := e.join(ctx, "concatenate", []*hyperstack.Hyperstack{a, b}, axis, sink)
	if err != nil {
		return e.finish(log, nil, err)
	}
	return e.finish(log, single("concatenate", out, nil), nil)
}

// Merge joins inputs that each have extent 1 on axis, in order. A single
// input is returned unchanged.
func (e *Engine) Merge(ctx context.Context, inputs []*hyperstack.Hyperstack, axis hyperstack.Axis, sink progress.Sink) (*Result, error) {
	log := e.start("merge", "inputs", len(inputs), "axis", axis.String())
	if len(inputs) == 0 {
		return e.finish(log, nil, hyperstack.NewAxisError("merge", axis, "no inputs"))
	}
	for i, h := range inputs {
		if h == nil {
			return e.finish(log, nil, hyperstack.NewConfigurationError("merge", "input %d is nil", i))
		}
		if n := h.Extents().Get(axis); n != 1 {
			return e.finish(log, nil, hyperstack.NewAxisError("merge", axis, "input %d has extent %d, expected 1", i, n))
		}
	}
	if len(inputs) == 1 {
		return e.finish(log, single("merge", inputs[0], nil), nil)
	}
	out, err := e.join(ctx, "merge", inputs, axis, sink)
	if err != nil {
		return e.finish(log, nil, err)
	}
	return e.finish(log, single("merge", out, nil), nil)
}

// join checks shapes, promotes types and stacks inputs along axis with
// offsets accumulated left to right.
func (e *Engine) join(ctx context.Context, op string, inputs []*hyperstack.Hyperstack, axis hyperstack.Axis, sink progress.Sink) (*hyperstack.Hyperstack, error) {
	if !axis.Valid() {
		return nil, hyperstack.NewConfigurationError(op, "invalid axis %d", int(axis))
	}
	first := inputs[0]
	if first == nil {
		return nil, hyperstack.NewConfigurationError(op, "input 0 is nil")
	}
	total := 0
	offsets := make([]int, len(inputs))
	for i, h := range inputs {
		if h == nil {
			return nil, hyperstack.NewConfigurationError(op, "input %d is nil", i)
		}
		if h.Width() != first.Width() || h.Height() != first.Height() {
			return nil, hyperstack.NewConfigurationError(op, "input %d planes are %dx%d, expected %dx%d",
				i, h.Width(), h.Height(), first.Width(), first.Height())
		}
		for _, other := range hyperstack.Axes {
			if other == axis {
				continue
			}
			if got, want := h.Extents().Get(other), first.Extents().Get(other); got != want {
				return nil, hyperstack.NewAxisError(op, other, "input %d has extent %d, expected %d", i, got, want)
			}
		}
		offsets[i] = total
		total += h.Extents().Get(axis)
	}

	promoted, err := consensus.Promote(inputs, e.ranking)
	if err != nil {
		return nil, err
	}

	ext := first.Extents().With(axis, total)
	b, err := hyperstack.NewBuilder(op, first.Width(), first.Height(), promoted[0].Type(), ext)
	if err != nil {
		return nil, err
	}
	// Output linear index -> (input, source linear index).
	type origin struct{ input, linear int }
	origins := make([]origin, 0, ext.Len())
	for i, h := range promoted {
		for j := 0; j < h.Len(); j++ {
			origins = append(origins, origin{i, j})
		}
	}
	err = e.forEach(ctx, len(origins), sink, func(k int) error {
		o := origins[k]
		h := promoted[o.input]
		c := h.Extents().Coordinate(o.linear)
		dst := c.With(axis, c.Get(axis)+offsets[o.input])
		return b.Set(dst, h.PlaneAt(o.linear))
	})
	if err != nil {
		return nil, err
	}
	return b.Build()
}
