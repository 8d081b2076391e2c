package transform

import (
	"context"
	"fmt"
	"strings"

	"hyperstacks/pkg/hyperstack"
	"hyperstacks/pkg/progress"
)

// Permutation assigns each source axis to a target axis slot.
type Permutation struct {
	Channel, Depth, Frame hyperstack.Axis
}

// Identity leaves every axis in place.
var Identity = Permutation{Channel: hyperstack.Channel, Depth: hyperstack.Depth, Frame: hyperstack.Frame}

// ParsePermutation reads three axis letters giving the target slot of the
// source channel, depth and frame axes in turn. "zct" swaps channel and
// depth.
func ParsePermutation(s string) (Permutation, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) != 3 {
		return Permutation{}, hyperstack.NewConfigurationError("reorder", "permutation %q must name three axes", s)
	}
	var targets [3]hyperstack.Axis
	for i := range targets {
		a, err := hyperstack.ParseAxis(s[i : i+1])
		if err != nil {
			return Permutation{}, hyperstack.NewConfigurationError("reorder", "%v", err)
		}
		targets[i] = a
	}
	p := Permutation{Channel: targets[0], Depth: targets[1], Frame: targets[2]}
	return p, p.Validate()
}

// Target returns the slot that source axis a moves to.
func (p Permutation) Target(a hyperstack.Axis) hyperstack.Axis {
	switch a {
	case hyperstack.Channel:
		return p.Channel
	case hyperstack.Depth:
		return p.Depth
	default:
		return p.Frame
	}
}

// Validate reports a duplicate target slot as a ConfigurationError.
func (p Permutation) Validate() error {
	var used [3]bool
	for _, src := range hyperstack.Axes {
		dst := p.Target(src)
		if !dst.Valid() {
			return hyperstack.NewAxisError("reorder", src, "invalid target axis %d", int(dst))
		}
		if used[dst] {
			return hyperstack.NewAxisError("reorder", dst, "duplicate target dimension")
		}
		used[dst] = true
	}
	return nil
}

// Inverse returns the permutation that undoes p. p must be valid.
func (p Permutation) Inverse() Permutation {
	var inv Permutation
	for _, src := range hyperstack.Axes {
		switch p.Target(src) {
		case hyperstack.Channel:
			inv.Channel = src
		case hyperstack.Depth:
			inv.Depth = src
		case hyperstack.Frame:
			inv.Frame = src
		}
	}
	return inv
}

// Extents permutes extents.
func (p Permutation) Extents(e hyperstack.Extents) hyperstack.Extents {
	var out hyperstack.Extents
	for _, a := range hyperstack.Axes {
		out = out.With(p.Target(a), e.Get(a))
	}
	return out
}

// Coordinate permutes a coordinate.
func (p Permutation) Coordinate(c hyperstack.Coordinate) hyperstack.Coordinate {
	var out hyperstack.Coordinate
	for _, a := range hyperstack.Axes {
		out = out.With(p.Target(a), c.Get(a))
	}
	return out
}

func (p Permutation) String() string {
	return fmt.Sprintf("%s%s%s", p.Channel.Short(), p.Depth.Short(), p.Frame.Short())
}

// Reorder moves every plane to its permuted coordinate. The permutation is
// validated before any plane is touched.
func (e *Engine) Reorder(ctx context.Context, src *hyperstack.Hyperstack, perm Permutation, sink progress.Sink) (*Result, error) {
	log := e.start("reorder", "source", src.String(), "permutation", perm.String())
	if err := requireStack("reorder", src); err != nil {
		return e.finish(log, nil, err)
	}
	if err := perm.Validate(); err != nil {
		return e.finish(log, nil, err)
	}
	ext := src.Extents()
	b, err := hyperstack.Like("reorder", src, perm.Extents(ext))
	if err != nil {
		return e.finish(log, nil, err)
	}
	err = e.forEach(ctx, ext.Len(), sink, func(i int) error {
		return b.Set(perm.Coordinate(ext.Coordinate(i)), src.PlaneAt(i))
	})
	if err != nil {
		return e.finish(log, nil, err)
	}
	out, err := b.Build()
	if err != nil {
		return e.finish(log, nil, err)
	}
	return e.finish(log, single("reorder", out, nil), nil)
}
