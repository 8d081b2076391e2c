package transform

import (
	"context"
	"fmt"
	"strings"

	"hyperstacks/pkg/expression"
	"hyperstacks/pkg/hyperstack"
	"hyperstacks/pkg/progress"
)

// Action is what a Mapper decides for one source plane.
type Action int

const (
	Keep Action = iota
	Discard
	Move
)

func (a Action) String() string {
	switch a {
	case Keep:
		return "keep"
	case Discard:
		return "discard"
	case Move:
		return "move"
	}
	return fmt.Sprintf("action(%d)", int(a))
}

// RelocationResult is a Mapper's decision. Target is used only by Move.
type RelocationResult struct {
	Action Action
	Target hyperstack.Coordinate
}

// MoveTo is shorthand for a Move result.
func MoveTo(c hyperstack.Coordinate) RelocationResult {
	return RelocationResult{Action: Move, Target: c}
}

// MappingContext describes the plane being mapped.
type MappingContext struct {
	Extents hyperstack.Extents
	Linear  int
	// Env holds num_c, num_z, num_t, width, height and any caller
	// variables.
	Env expression.Env
}

// Mapper decides where each source plane goes.
type Mapper interface {
	Map(c hyperstack.Coordinate, mc MappingContext) (RelocationResult, error)
}

// MapperFunc adapts a function to Mapper.
type MapperFunc func(c hyperstack.Coordinate, mc MappingContext) (RelocationResult, error)

func (f MapperFunc) Map(c hyperstack.Coordinate, mc MappingContext) (RelocationResult, error) {
	return f(c, mc)
}

// ExpressionMapper computes target components with expressions evaluated
// in an environment holding c, z, t, index and the MappingContext Env. A
// nil component expression keeps the source component. When Filter is set
// and evaluates falsy the plane is discarded.
type ExpressionMapper struct {
	C, Z, T expression.Evaluator
	Filter  expression.Evaluator
}

func (m ExpressionMapper) Map(c hyperstack.Coordinate, mc MappingContext) (RelocationResult, error) {
	env := coordEnv(mc.Env, c, mc.Linear)
	if m.Filter != nil {
		v, err := m.Filter.Evaluate(env)
		if err != nil {
			return RelocationResult{}, err
		}
		if !v.Truthy() {
			return RelocationResult{Action: Discard}, nil
		}
	}
	if m.C == nil && m.Z == nil && m.T == nil {
		return RelocationResult{Action: Keep}, nil
	}
	target := c
	for _, comp := range []struct {
		axis hyperstack.Axis
		ev   expression.Evaluator
	}{
		{hyperstack.Channel, m.C},
		{hyperstack.Depth, m.Z},
		{hyperstack.Frame, m.T},
	} {
		if comp.ev == nil {
			continue
		}
		v, err := comp.ev.Evaluate(env)
		if err != nil {
			return RelocationResult{}, err
		}
		n, err := v.AsInt()
		if err != nil {
			return RelocationResult{}, fmt.Errorf("%s target: %w", comp.axis, err)
		}
		target = target.With(comp.axis, n)
	}
	return MoveTo(target), nil
}

// ConflictPolicy decides what happens when two planes land on the same
// destination.
type ConflictPolicy int

const (
	// FailOnConflict aborts with a ConflictError.
	FailOnConflict ConflictPolicy = iota
	// Overwrite keeps the plane with the highest source linear index.
	Overwrite
)

func (p ConflictPolicy) String() string {
	if p == Overwrite {
		return "overwrite"
	}
	return "error"
}

func ParseConflictPolicy(s string) (ConflictPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "error", "fail":
		return FailOnConflict, nil
	case "overwrite", "silent", "silent-overwrite":
		return Overwrite, nil
	}
	return 0, hyperstack.NewConfigurationError("relocate", "unknown conflict policy %q", s)
}

// RelocateParams configure Relocate.
type RelocateParams struct {
	Mapper Mapper
	Policy ConflictPolicy
	Env    expression.Env
}

// Relocate maps every source plane to a destination. Mapping runs on one
// goroutine in ascending source linear order, which is also the order that
// decides Overwrite conflicts. The output extents are one past the largest
// destination component on each axis; any coordinate of that box without a
// plane is a MissingDataError.
func (e *Engine) Relocate(ctx context.Context, src *hyperstack.Hyperstack, p RelocateParams, sink progress.Sink) (*Result, error) {
	log := e.start("relocate", "source", src.String(), "policy", p.Policy.String())
	if err := requireStack("relocate", src); err != nil {
		return e.finish(log, nil, err)
	}
	if p.Mapper == nil {
		return e.finish(log, nil, hyperstack.NewConfigurationError("relocate", "no mapper"))
	}
	sink = progress.OrNop(sink)
	ext := src.Extents()
	env := stackEnv(src, p.Env)

	mapping := sink.Child("mapping")
	sources := make(map[hyperstack.Coordinate]int, ext.Len())
	var maxC hyperstack.Coordinate
	for i := 0; i < ext.Len(); i++ {
		if err := ctx.Err(); err != nil {
			return e.finish(log, nil, err)
		}
		c := ext.Coordinate(i)
		res, err := p.Mapper.Map(c, MappingContext{Extents: ext, Linear: i, Env: env})
		if err != nil {
			return e.finish(log, nil, hyperstack.NewConfigurationError("relocate", "mapping plane %s: %v", c, err))
		}
		var dst hyperstack.Coordinate
		switch res.Action {
		case Keep:
			dst = c
		case Discard:
			mapping.Report(i+1, ext.Len(), "")
			continue
		case Move:
			dst = res.Target
		default:
			return e.finish(log, nil, hyperstack.NewConfigurationError("relocate", "unknown action %s for plane %s", res.Action, c))
		}
		for _, a := range hyperstack.Axes {
			if dst.Get(a) < 0 {
				return e.finish(log, nil, hyperstack.NewAxisError("relocate", a,
					"plane %s maps to negative coordinate %s", c, dst))
			}
		}
		if prev, ok := sources[dst]; ok && p.Policy == FailOnConflict {
			return e.finish(log, nil, &hyperstack.ConflictError{Op: "relocate", Target: dst, First: prev, Second: i})
		}
		sources[dst] = i
		maxC.C = max(maxC.C, dst.C)
		maxC.Z = max(maxC.Z, dst.Z)
		maxC.T = max(maxC.T, dst.T)
		mapping.Report(i+1, ext.Len(), "")
	}
	if len(sources) == 0 {
		return e.finish(log, nil, hyperstack.NewConfigurationError("relocate", "every plane was discarded"))
	}

	outExt := hyperstack.Extents{C: maxC.C + 1, Z: maxC.Z + 1, T: maxC.T + 1}
	// Every destination lies inside outExt, so the box is total exactly
	// when it holds as many coordinates as there are destinations. The
	// first gap is then found within len(sources)+1 steps.
	if outExt.Len() != len(sources) {
		for i := 0; ; i++ {
			if _, ok := sources[outExt.Coordinate(i)]; !ok {
				return e.finish(log, nil, &hyperstack.MissingDataError{Op: "relocate", Coordinate: outExt.Coordinate(i), Extents: outExt})
			}
		}
	}
	order := make([]int, outExt.Len())
	for i := range order {
		order[i] = sources[outExt.Coordinate(i)]
	}

	b, err := hyperstack.Like("relocate", src, outExt)
	if err != nil {
		return e.finish(log, nil, err)
	}
	err = e.forEach(ctx, len(order), sink.Child("assembly"), func(i int) error {
		return b.Set(outExt.Coordinate(i), src.PlaneAt(order[i]))
	})
	if err != nil {
		return e.finish(log, nil, err)
	}
	out, err := b.Build()
	if err != nil {
		return e.finish(log, nil, err)
	}
	return e.finish(log, single("relocate", out, nil), nil)
}
