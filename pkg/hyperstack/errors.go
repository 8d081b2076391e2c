package hyperstack

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel kinds for errors.Is. Every error returned by the engine wraps
// exactly one of these through its concrete type.
var (
	ErrConfiguration = errors.New("configuration error")
	ErrConflict      = errors.New("destination conflict")
	ErrMissingData   = errors.New("missing data")
	ErrTypeMismatch  = errors.New("type mismatch")
)

// ConfigurationError reports invalid parameters or incompatible inputs.
// Axis is NoAxis when the problem is not tied to one axis.
type ConfigurationError struct {
	Op   string
	Axis Axis
	Msg  string
}

// NewConfigurationError builds a ConfigurationError without an axis.
func NewConfigurationError(op, format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Op: op, Axis: NoAxis, Msg: fmt.Sprintf(format, args...)}
}

// NewAxisError builds a ConfigurationError naming the offending axis.
func NewAxisError(op string, axis Axis, format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Op: op, Axis: axis, Msg: fmt.Sprintf(format, args...)}
}

func (e *ConfigurationError) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	b.WriteString(": ")
	if e.Axis != NoAxis {
		b.WriteString(e.Axis.String())
		b.WriteString(" axis: ")
	}
	b.WriteString(e.Msg)
	return b.String()
}

func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

// ConflictError reports two source planes resolving to the same destination.
// First and Second are the zero-based source linear indices in the order
// they were visited.
type ConflictError struct {
	Op            string
	Target        Coordinate
	First, Second int
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s: source planes %d and %d both map to %s", e.Op, e.First, e.Second, e.Target)
}

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

// MissingDataError reports a coordinate of an output bounding box that no
// source plane filled.
type MissingDataError struct {
	Op         string
	Coordinate Coordinate
	Extents    Extents
}

func (e *MissingDataError) Error() string {
	return fmt.Sprintf("%s: no plane for %s in %s output", e.Op, e.Coordinate, e.Extents)
}

func (e *MissingDataError) Is(target error) bool { return target == ErrMissingData }

// TypeMismatchError reports an element type outside the known ranking.
type TypeMismatchError struct {
	Op      string
	Type    ElementType
	Ranking []ElementType
}

func (e *TypeMismatchError) Error() string {
	names := make([]string, len(e.Ranking))
	for i, t := range e.Ranking {
		names[i] = t.String()
	}
	return fmt.Sprintf("%s: element type %s is not in ranking [%s]", e.Op, e.Type, strings.Join(names, " < "))
}

func (e *TypeMismatchError) Is(target error) bool { return target == ErrTypeMismatch }
