package transform

import (
	"context"

	"hyperstacks/pkg/annotation"
	"hyperstacks/pkg/expression"
	"hyperstacks/pkg/hyperstack"
	"hyperstacks/pkg/progress"
	"hyperstacks/pkg/selector"
)

// SliceParams selects indices on every axis. Zero selectors keep the axis
// whole.
type SliceParams struct {
	Channel, Depth, Frame selector.Selector
	// Env is passed to expression selectors in addition to num_c, num_z,
	// num_t, width and height.
	Env expression.Env
	// Annotate emits slice.c, slice.z and slice.t with the source indices
	// used on each axis.
	Annotate bool
}

// Slice builds the Cartesian product of the three resolved index
// sequences. Output plane (c', z', t') is the source plane at
// (seqC[c'], seqZ[z'], seqT[t']); planes are shared, not copied.
func (e *Engine) Slice(ctx context.Context, src *hyperstack.Hyperstack, p SliceParams, sink progress.Sink) (*Result, error) {
	log := e.start("slice", "source", src.String())
	if err := requireStack("slice", src); err != nil {
		return e.finish(log, nil, err)
	}
	env := stackEnv(src, p.Env)
	ext := src.Extents()

	var seqs [3][]int
	for _, s := range []struct {
		axis hyperstack.Axis
		sel  selector.Selector
	}{
		{hyperstack.Channel, p.Channel},
		{hyperstack.Depth, p.Depth},
		{hyperstack.Frame, p.Frame},
	} {
		idx, err := s.sel.Indices(s.axis, ext.Get(s.axis), env)
		if err != nil {
			return e.finish(log, nil, err)
		}
		seqs[s.axis] = idx
	}

	out, err := e.pick(ctx, "slice", src, seqs, sink)
	if err != nil {
		return e.finish(log, nil, err)
	}
	var anns annotation.Set
	if p.Annotate {
		anns = annotation.Set{
			annotation.Ints(annotation.SliceChannel, seqs[hyperstack.Channel]),
			annotation.Ints(annotation.SliceDepth, seqs[hyperstack.Depth]),
			annotation.Ints(annotation.SliceFrame, seqs[hyperstack.Frame]),
		}
	}
	return e.finish(log, single("slice", out, anns), nil)
}

// pick assembles the stack addressed by already wrapped index sequences,
// indexed by axis.
func (e *Engine) pick(ctx context.Context, op string, src *hyperstack.Hyperstack, seqs [3][]int, sink progress.Sink) (*hyperstack.Hyperstack, error) {
	ext := hyperstack.Extents{
		C: len(seqs[hyperstack.Channel]),
		Z: len(seqs[hyperstack.Depth]),
		T: len(seqs[hyperstack.Frame]),
	}
	b, err := hyperstack.Like(op, src, ext)
	if err != nil {
		return nil, err
	}
	err = e.forEach(ctx, ext.Len(), sink, func(i int) error {
		dst := ext.Coordinate(i)
		from := hyperstack.Coordinate{
			C: seqs[hyperstack.Channel][dst.C],
			Z: seqs[hyperstack.Depth][dst.Z],
			T: seqs[hyperstack.Frame][dst.T],
		}
		return b.Set(dst, src.Plane(from))
	})
	if err != nil {
		return nil, err
	}
	return b.Build()
}

// allIndices returns [0, n).
func allIndices(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}
