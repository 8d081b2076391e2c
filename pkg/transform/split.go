package transform

import (
	"context"
	"fmt"

	"hyperstacks/pkg/annotation"
	"hyperstacks/pkg/expression"
	"hyperstacks/pkg/hyperstack"
	"hyperstacks/pkg/progress"
	"hyperstacks/pkg/selector"
)

// IndexPredicate decides whether index i of an axis with extent n belongs
// to an output.
type IndexPredicate interface {
	Accepts(i, n int, env expression.Env) (bool, error)
}

// PredicateFunc adapts a function to IndexPredicate.
type PredicateFunc func(i, n int) bool

func (f PredicateFunc) Accepts(i, n int, _ expression.Env) (bool, error) { return f(i, n), nil }

// RangePredicate accepts indices inside any of the ranges. Negative bounds
// count from the end of the axis, so -1 is the last index.
type RangePredicate struct {
	Ranges selector.Ranges
}

func (r RangePredicate) Accepts(i, n int, _ expression.Env) (bool, error) {
	return r.Ranges.Contains(i) || r.Ranges.Contains(i-n), nil
}

// ExpressionPredicate accepts an index when the expression is truthy. The
// environment binds i and n besides the stack variables.
type ExpressionPredicate struct {
	Evaluator expression.Evaluator
}

func (p ExpressionPredicate) Accepts(i, n int, env expression.Env) (bool, error) {
	local := env.Clone()
	local.SetInt("i", i)
	local.SetInt("n", n)
	v, err := p.Evaluator.Evaluate(local)
	if err != nil {
		return false, err
	}
	return v.Truthy(), nil
}

// SplitOutput is one named destination. A nil Predicate accepts every
// index.
type SplitOutput struct {
	Name      string
	Predicate IndexPredicate
}

// SplitParams configure Split.
type SplitParams struct {
	Axis    hyperstack.Axis
	Outputs []SplitOutput
	Env     expression.Env
	// Annotate adds split.<axis>=i to every produced stack.
	Annotate bool
	// Combine joins all indices an output accepts into one stack, in
	// ascending order, instead of one stack per index.
	Combine bool
}

// Split extracts, for every index i along the axis, the sub-stack with that
// axis pinned to i, and routes it to every output whose predicate accepts
// i. Results are grouped by output in the order given, then by index.
func (e *Engine) Split(ctx context.Context, src *hyperstack.Hyperstack, p SplitParams, sink progress.Sink) (*Result, error) {
	log := e.start("split", "source", src.String(), "axis", p.Axis.String(), "outputs", len(p.Outputs))
	if err := requireStack("split", src); err != nil {
		return e.finish(log, nil, err)
	}
	if !p.Axis.Valid() {
		return e.finish(log, nil, hyperstack.NewConfigurationError("split", "invalid axis %d", int(p.Axis)))
	}
	if len(p.Outputs) == 0 {
		return e.finish(log, nil, hyperstack.NewAxisError("split", p.Axis, "no outputs"))
	}
	ext := src.Extents()
	n := ext.Get(p.Axis)
	env := stackEnv(src, p.Env)

	accepted := make([][]int, len(p.Outputs))
	needed := make([]bool, n)
	for o, out := range p.Outputs {
		for i := 0; i < n; i++ {
			ok := true
			if out.Predicate != nil {
				var err error
				if ok, err = out.Predicate.Accepts(i, n, env); err != nil {
					return e.finish(log, nil, hyperstack.NewAxisError("split", p.Axis,
						"output %q at index %d: %v", out.Name, i, err))
				}
			}
			if ok {
				accepted[o] = append(accepted[o], i)
				needed[i] = true
			}
		}
	}

	sink = progress.OrNop(sink)
	res := &Result{}
	key := annotation.SplitPrefix + p.Axis.Short()
	if p.Combine {
		for o, out := range p.Outputs {
			if len(accepted[o]) == 0 {
				continue
			}
			h, err := e.pick(ctx, "split", src, pinned(ext, p.Axis, accepted[o]), sink.Child(out.Name))
			if err != nil {
				return e.finish(log, nil, err)
			}
			var anns annotation.Set
			if p.Annotate {
				anns = annotation.Set{annotation.Ints(key, accepted[o])}
			}
			res.Outputs = append(res.Outputs, Output{Name: out.Name, Stack: h, Annotations: anns})
		}
		return e.finish(log, res, nil)
	}

	parts := make([]*hyperstack.Hyperstack, n)
	for i := 0; i < n; i++ {
		if !needed[i] {
			continue
		}
		h, err := e.pick(ctx, "split", src, pinned(ext, p.Axis, []int{i}), sink.Child(fmt.Sprintf("%s %d", p.Axis, i)))
		if err != nil {
			return e.finish(log, nil, err)
		}
		parts[i] = h
	}
	for o, out := range p.Outputs {
		for _, i := range accepted[o] {
			var anns annotation.Set
			if p.Annotate {
				anns = annotation.Set{annotation.New(key, i)}
			}
			res.Outputs = append(res.Outputs, Output{Name: out.Name, Stack: parts[i], Annotations: anns})
		}
	}
	return e.finish(log, res, nil)
}

// pinned returns index sequences selecting idx on axis and everything on
// the other two axes.
func pinned(ext hyperstack.Extents, axis hyperstack.Axis, idx []int) [3][]int {
	var seqs [3][]int
	for _, a := range hyperstack.Axes {
		if a == axis {
			seqs[a] = idx
		} else {
			seqs[a] = allIndices(ext.Get(a))
		}
	}
	return seqs
}

func requireStack(op string, h *hyperstack.Hyperstack) error {
	if h == nil {
		return hyperstack.NewConfigurationError(op, "no input stack")
	}
	return nil
}
