package hyperstack

import "fmt"

// Hyperstack is a rectangular, totally addressed collection of planes.
// Every coordinate inside the extents maps to exactly one plane, and every
// plane shares the stack's width, height and element type. A Hyperstack is
// never modified after construction; transforms build new stacks that may
// share plane references with their inputs.
type Hyperstack struct {
	width, height int
	typ           ElementType
	extents       Extents

	// planes is indexed by zero-based linear index.
	planes []*Plane
}

// New validates and assembles a hyperstack. planes must be given in
// canonical linear order and is copied.
func New(width, height int, typ ElementType, extents Extents, planes []*Plane) (*Hyperstack, error) {
	if err := checkPlaneShape(typ, width, height); err != nil {
		return nil, err
	}
	if err := extents.Validate(); err != nil {
		return nil, err
	}
	if len(planes) != extents.Len() {
		return nil, NewConfigurationError("hyperstack", "%s needs %d planes, got %d", extents, extents.Len(), len(planes))
	}
	for i, p := range planes {
		c := extents.Coordinate(i)
		if p == nil {
			return nil, &MissingDataError{Op: "hyperstack", Coordinate: c, Extents: extents}
		}
		if p.width != width || p.height != height || p.typ != typ {
			return nil, NewConfigurationError("hyperstack", "plane at %s is %dx%d %s, expected %dx%d %s",
				c, p.width, p.height, p.typ, width, height, typ)
		}
	}
	return &Hyperstack{
		width:   width,
		height:  height,
		typ:     typ,
		extents: extents,
		planes:  append([]*Plane(nil), planes...),
	}, nil
}

// FromPlanes is New with width, height and type taken from the first plane.
func FromPlanes(extents Extents, planes []*Plane) (*Hyperstack, error) {
	if len(planes) == 0 || planes[0] == nil {
		return nil, NewConfigurationError("hyperstack", "no planes")
	}
	first := planes[0]
	return New(first.width, first.height, first.typ, extents, planes)
}

// Single wraps one plane as a 1×1×1 stack.
func Single(p *Plane) *Hyperstack {
	return &Hyperstack{
		width:   p.width,
		height:  p.height,
		typ:     p.typ,
		extents: Extents{C: 1, Z: 1, T: 1},
		planes:  []*Plane{p},
	}
}

func (h *Hyperstack) Width() int        { return h.width }
func (h *Hyperstack) Height() int       { return h.height }
func (h *Hyperstack) Type() ElementType { return h.typ }
func (h *Hyperstack) Extents() Extents  { return h.extents }
func (h *Hyperstack) Len() int          { return len(h.planes) }

// Plane returns the plane at c, or nil if c is outside the extents.
func (h *Hyperstack) Plane(c Coordinate) *Plane {
	if !c.Valid(h.extents) {
		return nil
	}
	return h.planes[h.extents.Linear(c)]
}

// PlaneAt returns the plane at a zero-based linear index, or nil.
func (h *Hyperstack) PlaneAt(linear int) *Plane {
	if linear < 0 || linear >= len(h.planes) {
		return nil
	}
	return h.planes[linear]
}

// Planes returns the planes in linear order. The slice is a copy.
func (h *Hyperstack) Planes() []*Plane {
	return append([]*Plane(nil), h.planes...)
}

// Each calls fn for every plane in ascending linear order.
func (h *Hyperstack) Each(fn func(linear int, c Coordinate, p *Plane)) {
	for i, p := range h.planes {
		fn(i, h.extents.Coordinate(i), p)
	}
}

// Equal reports whether both stacks have the same shape and bit-identical
// planes at every coordinate.
func (h *Hyperstack) Equal(o *Hyperstack) bool {
	if h == o {
		return true
	}
	if h == nil || o == nil {
		return false
	}
	if h.width != o.width || h.height != o.height || h.typ != o.typ || h.extents != o.extents {
		return false
	}
	for i := range h.planes {
		if !h.planes[i].Equal(o.planes[i]) {
			return false
		}
	}
	return true
}

func (h *Hyperstack) String() string {
	if h == nil {
		return "Hyperstack[nil]"
	}
	return fmt.Sprintf("Hyperstack[%dx%d %s, %s]", h.width, h.height, h.typ, h.extents)
}
