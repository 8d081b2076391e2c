// Package transform implements the structural operations on hyperstacks:
// slicing, axis reordering, relocation, concatenation, merging, splitting,
// projection, reslicing and flattening.
//
// Every operation is a method on Engine that reads immutable inputs and
// returns freshly built outputs. Failures abort the whole call and return
// no partial result.
package transform

import (
	"context"
	"runtime"
	"sync"

	"github.com/go-logr/logr"
	"golang.org/x/sync/errgroup"

	"hyperstacks/pkg/annotation"
	"hyperstacks/pkg/consensus"
	"hyperstacks/pkg/expression"
	"hyperstacks/pkg/hyperstack"
	"hyperstacks/pkg/progress"
)

// Options configure an Engine. The zero value uses every CPU, discards
// logs and ranks types with consensus.DefaultRanking.
type Options struct {
	// Workers bounds the number of planes computed at once.
	Workers int
	Logger  logr.Logger
	// Ranking is used by consensus promotion before inputs are combined.
	Ranking consensus.Ranking
}

// Engine runs transforms. It holds no per-call state and is safe for
// concurrent use.
type Engine struct {
	workers int
	log     logr.Logger
	ranking consensus.Ranking
}

func New(opts Options) *Engine {
	e := &Engine{
		workers: opts.Workers,
		log:     opts.Logger,
		ranking: opts.Ranking,
	}
	if e.workers <= 0 {
		e.workers = runtime.NumCPU()
	}
	if e.log.GetSink() == nil {
		e.log = logr.Discard()
	}
	if e.ranking == nil {
		e.ranking = consensus.DefaultRanking
	}
	return e
}

// Output is one produced stack with the annotations emitted for it.
type Output struct {
	Name        string
	Stack       *hyperstack.Hyperstack
	Annotations annotation.Set
}

// Result is everything a transform produced, in a deterministic order.
type Result struct {
	Outputs []Output
}

func single(name string, h *hyperstack.Hyperstack, anns annotation.Set) *Result {
	return &Result{Outputs: []Output{{Name: name, Stack: h, Annotations: anns}}}
}

// Stack returns the first output stack, or nil.
func (r *Result) Stack() *hyperstack.Hyperstack {
	if r == nil || len(r.Outputs) == 0 {
		return nil
	}
	return r.Outputs[0].Stack
}

// Named returns the outputs with the given name in order.
func (r *Result) Named(name string) []Output {
	var out []Output
	for _, o := range r.Outputs {
		if o.Name == name {
			out = append(out, o)
		}
	}
	return out
}

// forEach runs fn for every i in [0, n) on at most e.workers goroutines.
// Cancellation is observed between tasks; a task that has started always
// finishes. Progress is reported once per finished task.
func (e *Engine) forEach(ctx context.Context, n int, sink progress.Sink, fn func(i int) error) error {
	sink = progress.OrNop(sink)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	var (
		mu   sync.Mutex
		done int
	)
	for i := 0; i < n; i++ {
		if gctx.Err() != nil {
			break
		}
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := fn(i); err != nil {
				return err
			}
			mu.Lock()
			done++
			sink.Report(done, n, "")
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// stackEnv adds the extents of h to a copy of env.
func stackEnv(h *hyperstack.Hyperstack, env expression.Env) expression.Env {
	out := env.Clone()
	ext := h.Extents()
	out.SetInt("num_c", ext.C)
	out.SetInt("num_z", ext.Z)
	out.SetInt("num_t", ext.T)
	out.SetInt("width", h.Width())
	out.SetInt("height", h.Height())
	return out
}

func coordEnv(env expression.Env, c hyperstack.Coordinate, linear int) expression.Env {
	out := env.Clone()
	out.SetInt("c", c.C)
	out.SetInt("z", c.Z)
	out.SetInt("t", c.T)
	out.SetInt("index", linear)
	return out
}

func (e *Engine) start(op string, kv ...any) logr.Logger {
	log := e.log.WithName(op)
	log.V(1).Info("start", kv...)
	return log
}

func (e *Engine) finish(log logr.Logger, res *Result, err error) (*Result, error) {
	if err != nil {
		log.Error(err, "failed")
		return nil, err
	}
	for _, o := range res.Outputs {
		log.V(1).Info("output", "name", o.Name, "stack", o.Stack.String())
	}
	return res, nil
}
