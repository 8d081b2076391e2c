package transform

import (
	"context"
	"fmt"

	"hyperstacks/pkg/annotation"
	"hyperstacks/pkg/hyperstack"
	"hyperstacks/pkg/progress"
)

// FlattenParams configure Flatten.
type FlattenParams struct {
	// IncludeIndex adds flatten.index with the zero-based linear index.
	IncludeIndex bool
	// Prefix names outputs "<prefix>-c<c>-z<z>-t<t>"; empty means "plane".
	Prefix string
}

// Flatten returns every plane as its own 1×1×1 stack in ascending linear
// order, annotated with its source coordinate.
func (e *Engine) Flatten(ctx context.Context, src *hyperstack.Hyperstack, p FlattenParams, sink progress.Sink) (*Result, error) {
	log := e.start("flatten", "source", src.String())
	if err := requireStack("flatten", src); err != nil {
		return e.finish(log, nil, err)
	}
	sink = progress.OrNop(sink)
	prefix := p.Prefix
	if prefix == "" {
		prefix = "plane"
	}
	res := &Result{Outputs: make([]Output, 0, src.Len())}
	var err error
	src.Each(func(linear int, c hyperstack.Coordinate, plane *hyperstack.Plane) {
		if err != nil {
			return
		}
		if err = ctx.Err(); err != nil {
			return
		}
		anns := annotation.Set{
			annotation.New(annotation.FlattenChannel, c.C),
			annotation.New(annotation.FlattenDepth, c.Z),
			annotation.New(annotation.FlattenFrame, c.T),
		}
		if p.IncludeIndex {
			anns = append(anns, annotation.New(annotation.FlattenIndex, linear))
		}
		res.Outputs = append(res.Outputs, Output{
			Name:        fmt.Sprintf("%s-c%d-z%d-t%d", prefix, c.C, c.Z, c.T),
			Stack:       hyperstack.Single(plane),
			Annotations: anns,
		})
		sink.Report(linear+1, src.Len(), "")
	})
	if err != nil {
		return e.finish(log, nil, err)
	}
	return e.finish(log, res, nil)
}
