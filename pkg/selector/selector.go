// Package selector resolves user axis specifications (explicit lists,
// inclusive ranges or expressions) into concrete, wrapped index sequences.
package selector

import (
	"fmt"
	"sort"
	"strings"

	"hyperstacks/pkg/expression"
	"hyperstacks/pkg/hyperstack"
)

// Source produces the raw, unwrapped index sequence for one axis of
// extent n. Values may be negative or out of range; Resolve wraps them.
type Source interface {
	Values(n int, env expression.Env) ([]int, error)
}

// List is an explicit index sequence.
type List []int

func (l List) Values(int, expression.Env) ([]int, error) {
	return append([]int(nil), l...), nil
}

// Range is an inclusive index range. From > To counts down.
type Range struct {
	From, To int
}

// Ranges concatenates inclusive ranges in order.
type Ranges []Range

// MaxRangeCycles bounds how many times the ranges of one selector may cover
// an axis of extent n in total.
const MaxRangeCycles = 16

// Len is the number of indices the ranges expand to, saturating at the
// largest uint64.
func (r Ranges) Len() uint64 {
	var total uint64
	for _, rg := range r {
		var span uint64
		if rg.To >= rg.From {
			span = uint64(rg.To) - uint64(rg.From)
		} else {
			span = uint64(rg.From) - uint64(rg.To)
		}
		if span == ^uint64(0) || total > ^uint64(0)-span-1 {
			return ^uint64(0)
		}
		total += span + 1
	}
	return total
}

func (r Ranges) Values(n int, _ expression.Env) ([]int, error) {
	limit := uint64(MaxRangeCycles) * uint64(max(n, 1))
	total := r.Len()
	if total > limit {
		return nil, fmt.Errorf("ranges %s expand to more than %d indices", r, limit)
	}
	out := make([]int, 0, total)
	for _, rg := range r {
		step := 1
		if rg.To < rg.From {
			step = -1
		}
		for i := rg.From; ; i += step {
			out = append(out, i)
			if i == rg.To {
				break
			}
		}
	}
	return out, nil
}

// Contains reports whether i lies in any of the ranges, without wrapping.
func (r Ranges) Contains(i int) bool {
	for _, rg := range r {
		lo, hi := rg.From, rg.To
		if lo > hi {
			lo, hi = hi, lo
		}
		if i >= lo && i <= hi {
			return true
		}
	}
	return false
}

func (r Ranges) String() string {
	parts := make([]string, len(r))
	for i, rg := range r {
		if rg.From == rg.To {
			parts[i] = fmt.Sprint(rg.From)
		} else {
			parts[i] = fmt.Sprintf("%d..%d", rg.From, rg.To)
		}
	}
	return strings.Join(parts, ",")
}

// Expr evaluates an expression once per resolution. The environment gets
// the variable "n" bound to the axis extent; the result may be a number or
// a (nested) list of numbers.
type Expr struct {
	Evaluator expression.Evaluator
}

func (e Expr) Values(n int, env expression.Env) ([]int, error) {
	local := env.Clone()
	local.SetInt("n", n)
	v, err := e.Evaluator.Evaluate(local)
	if err != nil {
		return nil, err
	}
	return v.Ints()
}

// Options are the post-processing flags applied after wrapping.
type Options struct {
	// Distinct drops repeated indices, keeping the first occurrence.
	Distinct bool
	// Sorted orders the result ascending.
	Sorted bool
}

// Selector is an AxisSelector: a source plus post-processing. The zero
// value selects every index in order.
type Selector struct {
	Source Source
	Options
}

// All selects every index of the axis.
func All() Selector { return Selector{} }

// Only selects the given indices (wrapped) in order.
func Only(indices ...int) Selector { return Selector{Source: List(indices)} }

// IsAll reports whether the selector has no source.
func (s Selector) IsAll() bool { return s.Source == nil }

// Indices resolves the selector against an axis of extent n.
func (s Selector) Indices(axis hyperstack.Axis, n int, env expression.Env) ([]int, error) {
	if n < 1 {
		return nil, hyperstack.NewAxisError("select", axis, "extent must be at least 1, got %d", n)
	}
	if s.Source == nil {
		out := make([]int, n)
		for i := range out {
			out[i] = i
		}
		return out, nil
	}
	raw, err := s.Source.Values(n, env)
	if err != nil {
		return nil, hyperstack.NewAxisError("select", axis, "%v", err)
	}
	return Resolve(axis, raw, n, s.Options)
}

// Resolve wraps every raw value onto [0, n) and applies the options. An
// empty result is a ConfigurationError: no transform may produce zero
// planes along an axis.
func Resolve(axis hyperstack.Axis, raw []int, n int, opts Options) ([]int, error) {
	if n < 1 {
		return nil, hyperstack.NewAxisError("select", axis, "extent must be at least 1, got %d", n)
	}
	out := make([]int, 0, len(raw))
	seen := make(map[int]bool, len(raw))
	for _, x := range raw {
		w := hyperstack.Wrap(x, n)
		if opts.Distinct {
			if seen[w] {
				continue
			}
			seen[w] = true
		}
		out = append(out, w)
	}
	if opts.Sorted {
		sort.Ints(out)
	}
	if len(out) == 0 {
		return nil, hyperstack.NewAxisError("select", axis, "selection resolves to no indices")
	}
	return out, nil
}
