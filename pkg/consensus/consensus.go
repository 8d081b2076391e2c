// Package consensus chooses a common element type for a set of stacks and
// widens every input to it before pixels from different inputs are combined.
package consensus

import (
	"fmt"
	"strings"

	"hyperstacks/pkg/hyperstack"
)

// Ranking orders element types from narrowest to widest value range.
type Ranking []hyperstack.ElementType

// DefaultRanking is 8-bit < 16-bit < 32-bit float. Int32 is absent; callers
// that produce it supply a ranking without Float32.
var DefaultRanking = Ranking{hyperstack.Uint8, hyperstack.Uint16, hyperstack.Float32}

// ParseRanking reads names such as "uint8,uint16,float32".
func ParseRanking(names []string) (Ranking, error) {
	r := make(Ranking, 0, len(names))
	for _, n := range names {
		t, err := hyperstack.ParseElementType(strings.TrimSpace(n))
		if err != nil {
			return nil, err
		}
		r = append(r, t)
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// Validate rejects empty rankings, repeated types and any pair where a lower
// type does not widen losslessly into a higher one.
func (r Ranking) Validate() error {
	if len(r) == 0 {
		return hyperstack.NewConfigurationError("consensus", "ranking is empty")
	}
	seen := make(map[hyperstack.ElementType]bool, len(r))
	for _, t := range r {
		if !t.Valid() {
			return hyperstack.NewConfigurationError("consensus", "invalid element type %d in ranking", t)
		}
		if seen[t] {
			return hyperstack.NewConfigurationError("consensus", "element type %s ranked twice", t)
		}
		seen[t] = true
	}
	for i, lo := range r {
		for _, hi := range r[i+1:] {
			if !lo.WidensTo(hi) {
				return hyperstack.NewConfigurationError("consensus", "%s cannot be ranked below %s: conversion is not lossless", lo, hi)
			}
		}
	}
	return nil
}

// Rank returns the position of t, or -1.
func (r Ranking) Rank(t hyperstack.ElementType) int {
	for i, rt := range r {
		if rt == t {
			return i
		}
	}
	return -1
}

func (r Ranking) String() string {
	names := make([]string, len(r))
	for i, t := range r {
		names[i] = t.String()
	}
	return strings.Join(names, " < ")
}

// Target returns the highest ranked type among types.
func (r Ranking) Target(types ...hyperstack.ElementType) (hyperstack.ElementType, error) {
	if len(types) == 0 {
		return 0, hyperstack.NewConfigurationError("consensus", "no inputs")
	}
	if err := r.Validate(); err != nil {
		return 0, err
	}
	best := -1
	for _, t := range types {
		rank := r.Rank(t)
		if rank < 0 {
			return 0, &hyperstack.TypeMismatchError{Op: "consensus", Type: t, Ranking: r}
		}
		if rank > best {
			best = rank
		}
	}
	return r[best], nil
}

// Promote returns stacks converted to their consensus type. The result has
// the same order as stacks; inputs already at the target are returned as
// the same pointer.
func Promote(stacks []*hyperstack.Hyperstack, r Ranking) ([]*hyperstack.Hyperstack, error) {
	if r == nil {
		r = DefaultRanking
	}
	types := make([]hyperstack.ElementType, len(stacks))
	for i, h := range stacks {
		if h == nil {
			return nil, hyperstack.NewConfigurationError("consensus", "input %d is nil", i)
		}
		types[i] = h.Type()
	}
	target, err := r.Target(types...)
	if err != nil {
		return nil, err
	}
	out := make([]*hyperstack.Hyperstack, len(stacks))
	for i, h := range stacks {
		if out[i], err = Convert(h, target); err != nil {
			return nil, fmt.Errorf("promote input %d: %w", i, err)
		}
	}
	return out, nil
}

// Convert widens every plane of h to typ.
func Convert(h *hyperstack.Hyperstack, typ hyperstack.ElementType) (*hyperstack.Hyperstack, error) {
	if h.Type() == typ {
		return h, nil
	}
	planes := make([]*hyperstack.Plane, h.Len())
	for i := range planes {
		p, err := h.PlaneAt(i).Convert(typ)
		if err != nil {
			return nil, err
		}
		planes[i] = p
	}
	return hyperstack.New(h.Width(), h.Height(), typ, h.Extents(), planes)
}
