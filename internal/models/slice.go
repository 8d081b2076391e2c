package models

import (
	"fmt"
	"strings"
)

// SliceFile is one image file found by a directory scan.
type SliceFile struct {
	// Path is the file's location on disk
	Path string

	// Number is the numeric part of the file name, -1 when there is none
	Number int

	// Index is the position of this file in the sorted sequence
	Index int
}

// Edge is the border of a plane from which a reslice scan starts.
type Edge int

const (
	Top Edge = iota
	Bottom
	Left
	Right
)

func (e Edge) String() string {
	switch e {
	case Top:
		return "top"
	case Bottom:
		return "bottom"
	case Left:
		return "left"
	case Right:
		return "right"
	}
	return fmt.Sprintf("edge(%d)", int(e))
}

// Vertical reports whether the scan marches along rows (Top or Bottom).
func (e Edge) Vertical() bool { return e == Top || e == Bottom }

// Reversed reports whether the scan starts at the far end of its axis.
func (e Edge) Reversed() bool { return e == Bottom || e == Right }

func ParseEdge(s string) (Edge, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "top", "t":
		return Top, nil
	case "bottom", "b":
		return Bottom, nil
	case "left", "l":
		return Left, nil
	case "right", "r":
		return Right, nil
	}
	return 0, fmt.Errorf("unknown edge %q (expected top, bottom, left or right)", s)
}

// Aggregation is a per-pixel statistic computed across planes.
type Aggregation int

const (
	Max Aggregation = iota
	Min
	Mean
	Sum
	StdDev
	Median
)

var aggregationNames = [...]string{"max", "min", "mean", "sum", "stddev", "median"}

func (a Aggregation) String() string {
	if a < 0 || int(a) >= len(aggregationNames) {
		return fmt.Sprintf("aggregation(%d)", int(a))
	}
	return aggregationNames[a]
}

// KeepsType reports whether the aggregate is always one of the source values
// and so fits the source type. Median is not: an even count averages the two
// middle values.
func (a Aggregation) KeepsType() bool {
	return a == Max || a == Min
}

func ParseAggregation(s string) (Aggregation, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	switch name {
	case "average", "avg":
		return Mean, nil
	case "sd", "std":
		return StdDev, nil
	}
	for i, n := range aggregationNames {
		if n == name {
			return Aggregation(i), nil
		}
	}
	return 0, fmt.Errorf("unknown aggregation %q", s)
}
