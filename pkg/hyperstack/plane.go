package hyperstack

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"
)

// ElementType is the pixel type of a plane.
type ElementType int

const (
	Uint8 ElementType = iota + 1
	Uint16
	Int32
	Float32
)

func (t ElementType) String() string {
	switch t {
	case Uint8:
		return "uint8"
	case Uint16:
		return "uint16"
	case Int32:
		return "int32"
	case Float32:
		return "float32"
	default:
		return fmt.Sprintf("unknown(%d)", int(t))
	}
}

// Size is the number of bytes per pixel.
func (t ElementType) Size() int {
	switch t {
	case Uint8:
		return 1
	case Uint16:
		return 2
	case Int32, Float32:
		return 4
	}
	return 0
}

// Valid reports whether t is one of the supported element types.
func (t ElementType) Valid() bool {
	return t.Size() > 0
}

// WidensTo reports whether every value of t is exactly representable in u.
// Int32 and Float32 do not widen into each other: float32 has a 24-bit
// mantissa and int32 drops fractions.
func (t ElementType) WidensTo(u ElementType) bool {
	if t == u {
		return t.Valid()
	}
	switch t {
	case Uint8:
		return u == Uint16 || u == Int32 || u == Float32
	case Uint16:
		return u == Int32 || u == Float32
	}
	return false
}

// Range returns the smallest and largest representable value.
func (t ElementType) Range() (lo, hi float64) {
	switch t {
	case Uint8:
		return 0, math.MaxUint8
	case Uint16:
		return 0, math.MaxUint16
	case Int32:
		return math.MinInt32, math.MaxInt32
	case Float32:
		return -math.MaxFloat32, math.MaxFloat32
	}
	return 0, 0
}

// ParseElementType accepts the Go-style name or the bit-depth labels used
// by imaging tools ("8-bit", "16-bit", "32-bit").
func ParseElementType(s string) (ElementType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "uint8", "8-bit", "8bit", "gray8":
		return Uint8, nil
	case "uint16", "16-bit", "16bit", "gray16":
		return Uint16, nil
	case "int32", "32-bit-int":
		return Int32, nil
	case "float32", "32-bit", "32bit", "float":
		return Float32, nil
	default:
		return 0, fmt.Errorf("unknown element type %q", s)
	}
}

// Plane is one immutable width×height pixel buffer. Exactly one of the typed
// slices is populated, matching typ. Constructors copy caller data and
// accessors never hand out the backing slice, so planes can be shared
// between hyperstacks and read concurrently.
type Plane struct {
	width, height int
	typ           ElementType

	u8  []uint8
	u16 []uint16
	i32 []int32
	f32 []float32
}

// NewPlane returns a zero-filled plane.
func NewPlane(typ ElementType, width, height int) (*Plane, error) {
	if err := checkPlaneShape(typ, width, height); err != nil {
		return nil, err
	}
	p := &Plane{width: width, height: height, typ: typ}
	n := width * height
	switch typ {
	case Uint8:
		p.u8 = make([]uint8, n)
	case Uint16:
		p.u16 = make([]uint16, n)
	case Int32:
		p.i32 = make([]int32, n)
	case Float32:
		p.f32 = make([]float32, n)
	}
	return p, nil
}

// NewUint8Plane copies pix into a new 8-bit plane.
func NewUint8Plane(width, height int, pix []uint8) (*Plane, error) {
	if err := checkPixLen(Uint8, width, height, len(pix)); err != nil {
		return nil, err
	}
	return &Plane{width: width, height: height, typ: Uint8, u8: append([]uint8(nil), pix...)}, nil
}

// NewUint16Plane copies pix into a new 16-bit plane.
func NewUint16Plane(width, height int, pix []uint16) (*Plane, error) {
	if err := checkPixLen(Uint16, width, height, len(pix)); err != nil {
		return nil, err
	}
	return &Plane{width: width, height: height, typ: Uint16, u16: append([]uint16(nil), pix...)}, nil
}

// NewInt32Plane copies pix into a new 32-bit integer plane.
func NewInt32Plane(width, height int, pix []int32) (*Plane, error) {
	if err := checkPixLen(Int32, width, height, len(pix)); err != nil {
		return nil, err
	}
	return &Plane{width: width, height: height, typ: Int32, i32: append([]int32(nil), pix...)}, nil
}

// NewFloat32Plane copies pix into a new floating point plane.
func NewFloat32Plane(width, height int, pix []float32) (*Plane, error) {
	if err := checkPixLen(Float32, width, height, len(pix)); err != nil {
		return nil, err
	}
	return &Plane{width: width, height: height, typ: Float32, f32: append([]float32(nil), pix...)}, nil
}

// FromFloat64s builds a plane of type typ from float values. Integer types
// round half away from zero and clamp to the representable range; NaN
// becomes zero.
func FromFloat64s(typ ElementType, width, height int, data []float64) (*Plane, error) {
	if err := checkPixLen(typ, width, height, len(data)); err != nil {
		return nil, err
	}
	p, _ := NewPlane(typ, width, height)
	lo, hi := typ.Range()
	for i, v := range data {
		if typ != Float32 {
			if math.IsNaN(v) {
				v = 0
			}
			v = math.Round(v)
			if v < lo {
				v = lo
			} else if v > hi {
				v = hi
			}
		}
		switch typ {
		case Uint8:
			p.u8[i] = uint8(v)
		case Uint16:
			p.u16[i] = uint16(v)
		case Int32:
			p.i32[i] = int32(v)
		case Float32:
			p.f32[i] = float32(v)
		}
	}
	return p, nil
}

func checkPlaneShape(typ ElementType, width, height int) error {
	if !typ.Valid() {
		return NewConfigurationError("plane", "unsupported element type %s", typ)
	}
	if width < 1 || height < 1 {
		return NewConfigurationError("plane", "invalid plane size %dx%d", width, height)
	}
	return nil
}

func checkPixLen(typ ElementType, width, height, n int) error {
	if err := checkPlaneShape(typ, width, height); err != nil {
		return err
	}
	if n != width*height {
		return NewConfigurationError("plane", "%dx%d plane needs %d pixels, got %d", width, height, width*height, n)
	}
	return nil
}

func (p *Plane) Width() int        { return p.width }
func (p *Plane) Height() int       { return p.height }
func (p *Plane) Type() ElementType { return p.typ }
func (p *Plane) Len() int          { return p.width * p.height }

// SameShape reports whether o has the same size and element type.
func (p *Plane) SameShape(o *Plane) bool {
	return p.width == o.width && p.height == o.height && p.typ == o.typ
}

// Value returns pixel i (row-major) as float64.
func (p *Plane) Value(i int) float64 {
	switch p.typ {
	case Uint8:
		return float64(p.u8[i])
	case Uint16:
		return float64(p.u16[i])
	case Int32:
		return float64(p.i32[i])
	default:
		return float64(p.f32[i])
	}
}

// At returns the pixel at column x, row y.
func (p *Plane) At(x, y int) float64 {
	return p.Value(y*p.width + x)
}

// Float64s returns a fresh copy of the pixels as float64.
func (p *Plane) Float64s() []float64 {
	out := make([]float64, p.Len())
	for i := range out {
		out[i] = p.Value(i)
	}
	return out
}

// Row returns a copy of row y.
func (p *Plane) Row(y int) []float64 {
	out := make([]float64, p.width)
	for x := range out {
		out[x] = p.Value(y*p.width + x)
	}
	return out
}

// Column returns a copy of column x.
func (p *Plane) Column(x int) []float64 {
	out := make([]float64, p.height)
	for y := range out {
		out[y] = p.Value(y*p.width + x)
	}
	return out
}

// Uint8s returns a copy of the pixels of an 8-bit plane, nil otherwise.
func (p *Plane) Uint8s() []uint8 { return append([]uint8(nil), p.u8...) }

// Uint16s returns a copy of the pixels of a 16-bit plane, nil otherwise.
func (p *Plane) Uint16s() []uint16 { return append([]uint16(nil), p.u16...) }

// Int32s returns a copy of the pixels of a 32-bit integer plane, nil otherwise.
func (p *Plane) Int32s() []int32 { return append([]int32(nil), p.i32...) }

// Float32s returns a copy of the pixels of a float plane, nil otherwise.
func (p *Plane) Float32s() []float32 { return append([]float32(nil), p.f32...) }

// Equal reports bit-identical shape, type and pixels.
func (p *Plane) Equal(o *Plane) bool {
	if p == o {
		return true
	}
	if p == nil || o == nil || !p.SameShape(o) {
		return false
	}
	switch p.typ {
	case Uint8:
		for i := range p.u8 {
			if p.u8[i] != o.u8[i] {
				return false
			}
		}
	case Uint16:
		for i := range p.u16 {
			if p.u16[i] != o.u16[i] {
				return false
			}
		}
	case Int32:
		for i := range p.i32 {
			if p.i32[i] != o.i32[i] {
				return false
			}
		}
	case Float32:
		for i := range p.f32 {
			if math.Float32bits(p.f32[i]) != math.Float32bits(o.f32[i]) {
				return false
			}
		}
	}
	return true
}

// Convert returns the plane at element type to. Values are carried over
// unchanged and clamped only when narrowing; a plane already at to is
// returned as is.
func (p *Plane) Convert(to ElementType) (*Plane, error) {
	if p.typ == to {
		return p, nil
	}
	return FromFloat64s(to, p.width, p.height, p.Float64s())
}

// Bytes returns the pixels in little-endian byte order.
func (p *Plane) Bytes() []byte {
	size := p.typ.Size()
	out := make([]byte, p.Len()*size)
	switch p.typ {
	case Uint8:
		copy(out, p.u8)
	case Uint16:
		for i, v := range p.u16 {
			binary.LittleEndian.PutUint16(out[i*2:], v)
		}
	case Int32:
		for i, v := range p.i32 {
			binary.LittleEndian.PutUint32(out[i*4:], uint32(v))
		}
	case Float32:
		for i, v := range p.f32 {
			binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(v))
		}
	}
	return out
}

// PlaneFromBytes decodes little-endian pixels written by Bytes.
func PlaneFromBytes(typ ElementType, width, height int, data []byte) (*Plane, error) {
	if err := checkPlaneShape(typ, width, height); err != nil {
		return nil, err
	}
	n := width * height
	if len(data) != n*typ.Size() {
		return nil, NewConfigurationError("plane", "%dx%d %s plane needs %d bytes, got %d",
			width, height, typ, n*typ.Size(), len(data))
	}
	p, _ := NewPlane(typ, width, height)
	switch typ {
	case Uint8:
		copy(p.u8, data)
	case Uint16:
		for i := range p.u16 {
			p.u16[i] = binary.LittleEndian.Uint16(data[i*2:])
		}
	case Int32:
		for i := range p.i32 {
			p.i32[i] = int32(binary.LittleEndian.Uint32(data[i*4:]))
		}
	case Float32:
		for i := range p.f32 {
			p.f32[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
		}
	}
	return p, nil
}
