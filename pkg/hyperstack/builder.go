package hyperstack

// Builder is the output store of a transform. Slots are preallocated so
// that concurrent Set calls on distinct coordinates need no locking.
type Builder struct {
	op            string
	width, height int
	typ           ElementType
	extents       Extents
	planes        []*Plane
}

// NewBuilder allocates an empty output of the given shape. op names the
// transform in any error the builder returns.
func NewBuilder(op string, width, height int, typ ElementType, extents Extents) (*Builder, error) {
	if err := checkPlaneShape(typ, width, height); err != nil {
		return nil, err
	}
	if err := extents.Validate(); err != nil {
		return nil, err
	}
	return &Builder{
		op:      op,
		width:   width,
		height:  height,
		typ:     typ,
		extents: extents,
		planes:  make([]*Plane, extents.Len()),
	}, nil
}

// Like allocates a builder with the plane shape of h and new extents.
func Like(op string, h *Hyperstack, extents Extents) (*Builder, error) {
	return NewBuilder(op, h.width, h.height, h.typ, extents)
}

func (b *Builder) Extents() Extents { return b.extents }

// Set stores p at c. It rejects coordinates outside the extents and planes
// of a foreign shape.
func (b *Builder) Set(c Coordinate, p *Plane) error {
	if !c.Valid(b.extents) {
		return NewConfigurationError(b.op, "coordinate %s outside %s output", c, b.extents)
	}
	if p == nil {
		return &MissingDataError{Op: b.op, Coordinate: c, Extents: b.extents}
	}
	if p.width != b.width || p.height != b.height || p.typ != b.typ {
		return NewConfigurationError(b.op, "plane for %s is %dx%d %s, expected %dx%d %s",
			c, p.width, p.height, p.typ, b.width, b.height, b.typ)
	}
	b.planes[b.extents.Linear(c)] = p
	return nil
}

// Filled reports whether c already holds a plane.
func (b *Builder) Filled(c Coordinate) bool {
	return c.Valid(b.extents) && b.planes[b.extents.Linear(c)] != nil
}

// Build returns the finished stack, or a MissingDataError naming the first
// coordinate (in linear order) that was never set.
func (b *Builder) Build() (*Hyperstack, error) {
	for i, p := range b.planes {
		if p == nil {
			return nil, &MissingDataError{Op: b.op, Coordinate: b.extents.Coordinate(i), Extents: b.extents}
		}
	}
	return &Hyperstack{
		width:   b.width,
		height:  b.height,
		typ:     b.typ,
		extents: b.extents,
		planes:  append([]*Plane(nil), b.planes...),
	}, nil
}
