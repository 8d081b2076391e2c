// Package hyperstack defines the addressable data model shared by every
// structural transform: the three logical axes, plane coordinates, linear
// plane indices, typed pixel planes and the immutable Hyperstack itself.
package hyperstack

import (
	"fmt"
	"strings"
)

// Axis identifies one of the three logical axes of a hyperstack.
type Axis int

const (
	// NoAxis marks errors and parameters that are not tied to an axis.
	NoAxis Axis = iota - 1
	Channel
	Depth
	Frame
)

// Axes lists the axes in canonical order (fastest varying first).
var Axes = [3]Axis{Channel, Depth, Frame}

func (a Axis) String() string {
	switch a {
	case Channel:
		return "channel"
	case Depth:
		return "depth"
	case Frame:
		return "frame"
	case NoAxis:
		return "none"
	default:
		return fmt.Sprintf("axis(%d)", int(a))
	}
}

// Short returns the single letter used in annotation keys and expressions.
func (a Axis) Short() string {
	switch a {
	case Channel:
		return "c"
	case Depth:
		return "z"
	case Frame:
		return "t"
	default:
		return "?"
	}
}

// Valid reports whether a is one of Channel, Depth or Frame.
func (a Axis) Valid() bool {
	return a == Channel || a == Depth || a == Frame
}

// ParseAxis accepts the long name, the short letter or the common
// alternatives used by microscopy tools ("slice" for depth, "time" for frame).
func ParseAxis(s string) (Axis, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "c", "channel", "channels":
		return Channel, nil
	case "z", "depth", "slice", "slices":
		return Depth, nil
	case "t", "frame", "frames", "time":
		return Frame, nil
	default:
		return NoAxis, fmt.Errorf("unknown axis %q (expected channel, depth or frame)", s)
	}
}

// Extents is the shape of a hyperstack: the number of planes along each axis.
type Extents struct {
	C, Z, T int
}

// Validate returns a ConfigurationError if any extent is below 1.
func (e Extents) Validate() error {
	for _, a := range Axes {
		if e.Get(a) < 1 {
			return NewAxisError("extents", a, "extent must be at least 1, got %d", e.Get(a))
		}
	}
	return nil
}

// Len is the total number of planes.
func (e Extents) Len() int {
	return e.C * e.Z * e.T
}

// Get returns the extent along a.
func (e Extents) Get(a Axis) int {
	switch a {
	case Channel:
		return e.C
	case Depth:
		return e.Z
	case Frame:
		return e.T
	}
	return 0
}

// With returns a copy of e with the extent along a replaced by n.
func (e Extents) With(a Axis, n int) Extents {
	switch a {
	case Channel:
		e.C = n
	case Depth:
		e.Z = n
	case Frame:
		e.T = n
	}
	return e
}

// Linear is ToLinear for a coordinate that is already known to be valid.
func (e Extents) Linear(c Coordinate) int {
	return c.T*e.C*e.Z + c.Z*e.C + c.C
}

// Coordinate returns the coordinate at a zero-based linear index.
func (e Extents) Coordinate(linear int) Coordinate {
	return Coordinate{
		C: linear % e.C,
		Z: (linear / e.C) % e.Z,
		T: linear / (e.C * e.Z),
	}
}

func (e Extents) String() string {
	return fmt.Sprintf("%dc×%dz×%dt", e.C, e.Z, e.T)
}

// Coordinate is a zero-based (channel, depth, frame) plane address.
type Coordinate struct {
	C, Z, T int
}

// Valid reports whether c addresses a plane inside e.
func (c Coordinate) Valid(e Extents) bool {
	return c.C >= 0 && c.C < e.C &&
		c.Z >= 0 && c.Z < e.Z &&
		c.T >= 0 && c.T < e.T
}

// Get returns the component along a.
func (c Coordinate) Get(a Axis) int {
	switch a {
	case Channel:
		return c.C
	case Depth:
		return c.Z
	case Frame:
		return c.T
	}
	return 0
}

// With returns a copy of c with the component along a replaced by v.
func (c Coordinate) With(a Axis, v int) Coordinate {
	switch a {
	case Channel:
		c.C = v
	case Depth:
		c.Z = v
	case Frame:
		c.T = v
	}
	return c
}

func (c Coordinate) String() string {
	return fmt.Sprintf("(c=%d, z=%d, t=%d)", c.C, c.Z, c.T)
}
