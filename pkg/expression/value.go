package expression

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind is the dynamic type of a Value.
type Kind int

const (
	KindNumber Kind = iota
	KindString
	KindBool
	KindList
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	case KindList:
		return "list"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Value is the result of evaluating an expression.
type Value struct {
	kind Kind
	num  float64
	str  string
	b    bool
	list []Value
}

// Num returns a number value.
func Num(f float64) Value { return Value{kind: KindNumber, num: f} }

// Int returns a number value holding an integer.
func Int(i int) Value { return Value{kind: KindNumber, num: float64(i)} }

// Str returns a string value.
func Str(s string) Value { return Value{kind: KindString, str: s} }

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// List returns a list value.
func List(items ...Value) Value { return Value{kind: KindList, list: items} }

// IntList returns a list of integer numbers.
func IntList(items []int) Value {
	out := make([]Value, len(items))
	for i, v := range items {
		out[i] = Int(v)
	}
	return List(out...)
}

func (v Value) Kind() Kind { return v.kind }

// Number returns the numeric value. Booleans convert to 0/1 and strings
// are parsed; lists are an error.
func (v Value) Number() (float64, error) {
	switch v.kind {
	case KindNumber:
		return v.num, nil
	case KindBool:
		if v.b {
			return 1, nil
		}
		return 0, nil
	case KindString:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.str), 64)
		if err != nil {
			return 0, fmt.Errorf("string %q is not a number", v.str)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("cannot use %s as a number", v.kind)
	}
}

// AsInt returns the value as an integer, rejecting fractional numbers.
func (v Value) AsInt() (int, error) {
	f, err := v.Number()
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, fmt.Errorf("%v is not an integer", f)
	}
	return int(f), nil
}

// Ints flattens the value into integers: a number yields one element, a
// list yields each of its (possibly nested) elements.
func (v Value) Ints() ([]int, error) {
	if v.kind != KindList {
		i, err := v.AsInt()
		if err != nil {
			return nil, err
		}
		return []int{i}, nil
	}
	var out []int
	for _, item := range v.list {
		items, err := item.Ints()
		if err != nil {
			return nil, err
		}
		out = append(out, items...)
	}
	return out, nil
}

// Items returns the elements of a list value, or the value itself.
func (v Value) Items() []Value {
	if v.kind == KindList {
		return v.list
	}
	return []Value{v}
}

// Truthy is the boolean interpretation used by conditions.
func (v Value) Truthy() bool {
	switch v.kind {
	case KindBool:
		return v.b
	case KindNumber:
		return v.num != 0 && !math.IsNaN(v.num)
	case KindString:
		return v.str != ""
	default:
		return len(v.list) > 0
	}
}

// Equal compares kind and content; numbers and numeric strings do not mix.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNumber:
		return v.num == o.num
	case KindString:
		return v.str == o.str
	case KindBool:
		return v.b == o.b
	default:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(o.list[i]) {
				return false
			}
		}
		return true
	}
}

func (v Value) String() string {
	switch v.kind {
	case KindNumber:
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	case KindString:
		return v.str
	case KindBool:
		return strconv.FormatBool(v.b)
	default:
		parts := make([]string, len(v.list))
		for i, item := range v.list {
			parts[i] = item.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	}
}

// Env binds variable names to values for one evaluation.
type Env map[string]Value

// Clone returns a shallow copy that can be extended without touching e.
func (e Env) Clone() Env {
	out := make(Env, len(e)+4)
	for k, v := range e {
		out[k] = v
	}
	return out
}

// SetInt binds name to an integer.
func (e Env) SetInt(name string, v int) { e[name] = Int(v) }

// SetString binds name to a string. Strings that parse as numbers are
// still stored as strings; arithmetic converts them on use.
func (e Env) SetString(name string, v string) { e[name] = Str(v) }
