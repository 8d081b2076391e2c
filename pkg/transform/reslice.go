package transform

import (
	"context"
	"math"

	"hyperstacks/internal/models"
	"hyperstacks/pkg/hyperstack"
	"hyperstacks/pkg/progress"
)

// Interpolator samples a profile of n values at a fractional position in
// [0, n-1]. value(i) returns the i-th sample.
type Interpolator interface {
	At(n int, pos float64, value func(i int) float64) float64
}

// LinearInterpolator blends the two neighbouring samples.
type LinearInterpolator struct{}

func (LinearInterpolator) At(n int, pos float64, value func(i int) float64) float64 {
	if pos <= 0 {
		return value(0)
	}
	if pos >= float64(n-1) {
		return value(n - 1)
	}
	i := int(math.Floor(pos))
	frac := pos - float64(i)
	if frac == 0 {
		return value(i)
	}
	return value(i)*(1-frac) + value(i+1)*frac
}

// NearestInterpolator returns the closest sample.
type NearestInterpolator struct{}

func (NearestInterpolator) At(n int, pos float64, value func(i int) float64) float64 {
	i := int(math.Round(pos))
	return value(min(max(i, 0), n-1))
}

// ResliceParams configure Reslice.
type ResliceParams struct {
	Edge     models.Edge
	Flip     bool
	Rotate90 bool
	// AvoidInterpolation forces unit depth sampling and a whole-pixel scan
	// step, so every output value is a source value.
	AvoidInterpolation bool
	// ScanStep is the distance in pixels between scan lines; 0 means 1.
	ScanStep float64
	// DepthScale is the number of output rows per source depth index; 0
	// means 1.
	DepthScale float64
	// Interpolator samples fractional positions. Nil means linear.
	Interpolator Interpolator
}

// Reslice turns the depth axis into an in-plane axis. For every (c, t) a
// scan line marches across the plane from the start edge (Top and Bottom
// scan rows, Left and Right scan columns; Bottom and Right march in
// reverse). Each scan position becomes one output plane whose row k is the
// source line at that position in depth k. Flip reverses the rows of each
// output plane, then Rotate90 turns it clockwise.
//
// The output has extents (nC, scan positions, nT) and the source element
// type.
func (e *Engine) Reslice(ctx context.Context, src *hyperstack.Hyperstack, p ResliceParams, sink progress.Sink) (*Result, error) {
	log := e.start("reslice", "source", src.String(), "edge", p.Edge.String())
	if err := requireStack("reslice", src); err != nil {
		return e.finish(log, nil, err)
	}
	g, err := newResliceGeometry(src, p)
	if err != nil {
		return e.finish(log, nil, err)
	}
	ext := src.Extents()
	outExt := hyperstack.Extents{C: ext.C, Z: g.positions, T: ext.T}
	outW, outH := g.lineLen, g.rows
	if p.Rotate90 {
		outW, outH = outH, outW
	}
	b, err := hyperstack.NewBuilder("reslice", outW, outH, src.Type(), outExt)
	if err != nil {
		return e.finish(log, nil, err)
	}

	err = e.forEach(ctx, outExt.Len(), sink, func(i int) error {
		dst := outExt.Coordinate(i)
		depth := make([]*hyperstack.Plane, ext.Z)
		for z := range depth {
			depth[z] = src.Plane(hyperstack.Coordinate{C: dst.C, Z: z, T: dst.T})
		}
		data := g.extract(depth, dst.Z)
		w, h := g.lineLen, g.rows
		if p.Flip {
			flipRows(data, w, h)
		}
		if p.Rotate90 {
			data, w, h = rotateClockwise(data, w, h)
		}
		plane, err := hyperstack.FromFloat64s(src.Type(), w, h, data)
		if err != nil {
			return err
		}
		return b.Set(dst, plane)
	})
	if err != nil {
		return e.finish(log, nil, err)
	}
	out, err := b.Build()
	if err != nil {
		return e.finish(log, nil, err)
	}
	return e.finish(log, single("reslice", out, nil), nil)
}

type resliceGeometry struct {
	edge      models.Edge
	lineLen   int // pixels along a scan line
	scanLen   int // pixels across which the line marches
	depth     int
	positions int
	rows      int
	step      float64
	scale     float64
	interp    Interpolator
}

func newResliceGeometry(src *hyperstack.Hyperstack, p ResliceParams) (*resliceGeometry, error) {
	switch p.Edge {
	case models.Top, models.Bottom, models.Left, models.Right:
	default:
		return nil, hyperstack.NewConfigurationError("reslice", "unknown start edge %s", p.Edge)
	}
	g := &resliceGeometry{
		edge:   p.Edge,
		depth:  src.Extents().Z,
		step:   p.ScanStep,
		scale:  p.DepthScale,
		interp: p.Interpolator,
	}
	if p.Edge.Vertical() {
		g.lineLen, g.scanLen = src.Width(), src.Height()
	} else {
		g.lineLen, g.scanLen = src.Height(), src.Width()
	}
	if g.step == 0 {
		g.step = 1
	}
	if g.scale == 0 {
		g.scale = 1
	}
	if g.step < 0 || math.IsNaN(g.step) || math.IsInf(g.step, 0) {
		return nil, hyperstack.NewConfigurationError("reslice", "scan step must be positive, got %g", p.ScanStep)
	}
	if g.scale < 0 || math.IsNaN(g.scale) || math.IsInf(g.scale, 0) {
		return nil, hyperstack.NewConfigurationError("reslice", "depth scale must be positive, got %g", p.DepthScale)
	}
	if p.AvoidInterpolation {
		g.step = math.Max(1, math.Round(g.step))
		g.scale = 1
	}
	if g.interp == nil {
		g.interp = LinearInterpolator{}
	}
	g.positions = int(math.Floor(float64(g.scanLen-1)/g.step)) + 1
	g.rows = int(math.Floor(float64(g.depth-1)*g.scale)) + 1
	return g, nil
}

// scanPosition is the fractional scan coordinate of output plane k.
func (g *resliceGeometry) scanPosition(k int) float64 {
	s := float64(k) * g.step
	if g.edge.Reversed() {
		s = float64(g.scanLen-1) - s
	}
	return s
}

func (g *resliceGeometry) pixel(p *hyperstack.Plane, along, across int) float64 {
	if g.edge.Vertical() {
		return p.At(along, across)
	}
	return p.At(across, along)
}

// extract builds the lineLen×rows pixels of output plane k.
func (g *resliceGeometry) extract(depth []*hyperstack.Plane, k int) []float64 {
	s := g.scanPosition(k)
	si, sWhole := whole(s)
	out := make([]float64, g.lineLen*g.rows)
	for r := 0; r < g.rows; r++ {
		d := float64(r) / g.scale
		di, dWhole := whole(d)
		for x := 0; x < g.lineLen; x++ {
			atDepth := func(z int) float64 {
				if sWhole {
					return g.pixel(depth[z], x, si)
				}
				return g.interp.At(g.scanLen, s, func(i int) float64 { return g.pixel(depth[z], x, i) })
			}
			if dWhole {
				out[r*g.lineLen+x] = atDepth(di)
			} else {
				out[r*g.lineLen+x] = g.interp.At(g.depth, d, atDepth)
			}
		}
	}
	return out
}

func whole(f float64) (int, bool) {
	r := math.Round(f)
	if math.Abs(f-r) < 1e-9 {
		return int(r), true
	}
	return 0, false
}

func flipRows(data []float64, w, h int) {
	for top, bottom := 0, h-1; top < bottom; top, bottom = top+1, bottom-1 {
		for x := 0; x < w; x++ {
			data[top*w+x], data[bottom*w+x] = data[bottom*w+x], data[top*w+x]
		}
	}
}

// rotateClockwise turns a w×h image a quarter turn clockwise.
func rotateClockwise(data []float64, w, h int) ([]float64, int, int) {
	out := make([]float64, len(data))
	// Destination is h wide and w high; (x', y') takes source (y', h-1-x').
	for y := 0; y < w; y++ {
		for x := 0; x < h; x++ {
			out[y*h+x] = data[(h-1-x)*w+y]
		}
	}
	return out, h, w
}
