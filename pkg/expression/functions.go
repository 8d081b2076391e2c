package expression

import (
	"fmt"
	"math"
	"strconv"
)

type function func(args []Value) (Value, error)

var functions map[string]function

func init() {
	functions = map[string]function{
		"min":      reduceNumbers(math.Min),
		"max":      reduceNumbers(math.Max),
		"abs":      unaryNumber(math.Abs),
		"floor":    unaryNumber(math.Floor),
		"ceil":     unaryNumber(math.Ceil),
		"round":    unaryNumber(math.Round),
		"int":      unaryNumber(math.Trunc),
		"range":    rangeFunc,
		"seq":      seqFunc,
		"len":      lenFunc,
		"contains": containsFunc,
		"str":      strFunc,
		"num":      numFunc,
	}
}

func unaryNumber(fn func(float64) float64) function {
	return func(args []Value) (Value, error) {
		if len(args) != 1 {
			return Value{}, fmt.Errorf("expects 1 argument, got %d", len(args))
		}
		f, err := args[0].Number()
		if err != nil {
			return Value{}, err
		}
		return Num(fn(f)), nil
	}
}

// reduceNumbers folds every argument, flattening list arguments.
func reduceNumbers(fn func(a, b float64) float64) function {
	return func(args []Value) (Value, error) {
		var acc float64
		seen := false
		for _, a := range args {
			for _, item := range a.Items() {
				f, err := item.Number()
				if err != nil {
					return Value{}, err
				}
				if !seen {
					acc, seen = f, true
					continue
				}
				acc = fn(acc, f)
			}
		}
		if !seen {
			return Value{}, fmt.Errorf("needs at least one number")
		}
		return Num(acc), nil
	}
}

func intArgs(args []Value, lo, hi int) ([]int, error) {
	if len(args) < lo || len(args) > hi {
		return nil, fmt.Errorf("expects %d to %d arguments, got %d", lo, hi, len(args))
	}
	out := make([]int, len(args))
	for i, a := range args {
		v, err := a.AsInt()
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// MaxListLength bounds the lists built by range and seq.
const MaxListLength = 1 << 24

// rangeFunc is range(stop), range(start, stop) or range(start, stop, step)
// with an exclusive stop.
func rangeFunc(args []Value) (Value, error) {
	ints, err := intArgs(args, 1, 3)
	if err != nil {
		return Value{}, err
	}
	start, stop, step := 0, 0, 1
	switch len(ints) {
	case 1:
		stop = ints[0]
	case 2:
		start, stop = ints[0], ints[1]
	case 3:
		start, stop, step = ints[0], ints[1], ints[2]
	}
	if step == 0 {
		return Value{}, fmt.Errorf("step must not be zero")
	}
	if n := (float64(stop) - float64(start)) / float64(step); n > MaxListLength {
		return Value{}, fmt.Errorf("range would hold more than %d values", MaxListLength)
	}
	var out []int
	for i := start; (step > 0 && i < stop) || (step < 0 && i > stop); i += step {
		out = append(out, i)
	}
	return IntList(out), nil
}

// seqFunc is seq(from, to) with an inclusive end, counting down when to < from.
func seqFunc(args []Value) (Value, error) {
	ints, err := intArgs(args, 2, 2)
	if err != nil {
		return Value{}, err
	}
	from, to := ints[0], ints[1]
	if math.Abs(float64(to)-float64(from)) >= MaxListLength {
		return Value{}, fmt.Errorf("seq would hold more than %d values", MaxListLength)
	}
	step := 1
	if to < from {
		step = -1
	}
	out := []int{from}
	for i := from; i != to; {
		i += step
		out = append(out, i)
	}
	return IntList(out), nil
}

func lenFunc(args []Value) (Value, error) {
	if len(args) != 1 {
		return Value{}, fmt.Errorf("expects 1 argument, got %d", len(args))
	}
	switch args[0].kind {
	case KindList:
		return Int(len(args[0].list)), nil
	case KindString:
		return Int(len(args[0].str)), nil
	}
	return Value{}, fmt.Errorf("cannot take length of %s", args[0].kind)
}

func containsFunc(args []Value) (Value, error) {
	if len(args) != 2 {
		return Value{}, fmt.Errorf("expects 2 arguments, got %d", len(args))
	}
	for _, item := range args[0].Items() {
		if looseEqual(item, args[1]) {
			return Bool(true), nil
		}
	}
	return Bool(false), nil
}

func strFunc(args []Value) (Value, error) {
	if len(args) != 1 {
		return Value{}, fmt.Errorf("expects 1 argument, got %d", len(args))
	}
	return Str(args[0].String()), nil
}

func numFunc(args []Value) (Value, error) {
	if len(args) != 1 {
		return Value{}, fmt.Errorf("expects 1 argument, got %d", len(args))
	}
	if args[0].kind == KindString {
		f, err := strconv.ParseFloat(args[0].str, 64)
		if err != nil {
			return Value{}, fmt.Errorf("%q is not a number", args[0].str)
		}
		return Num(f), nil
	}
	f, err := args[0].Number()
	if err != nil {
		return Value{}, err
	}
	return Num(f), nil
}
