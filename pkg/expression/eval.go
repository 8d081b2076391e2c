package expression

import (
	"fmt"
	"math"
	"strings"
)

// Evaluator computes a value from a variable environment. Transforms depend
// on this interface only; Expression is the built-in implementation.
type Evaluator interface {
	Evaluate(env Env) (Value, error)
}

// EvaluatorFunc adapts a function to Evaluator.
type EvaluatorFunc func(env Env) (Value, error)

func (f EvaluatorFunc) Evaluate(env Env) (Value, error) { return f(env) }

// Expression is a parsed expression. It holds no evaluation state and can
// be evaluated from many goroutines at once.
type Expression struct {
	source string
	root   *orExpr
}

// Parse compiles source into an Expression.
func Parse(source string) (*Expression, error) {
	if strings.TrimSpace(source) == "" {
		return nil, fmt.Errorf("empty expression")
	}
	root, err := exprParser.ParseString("", source)
	if err != nil {
		return nil, fmt.Errorf("parse expression %q: %w", source, err)
	}
	return &Expression{source: source, root: root}, nil
}

// MustParse is Parse that panics on error, for expressions fixed at
// compile time.
func MustParse(source string) *Expression {
	e, err := Parse(source)
	if err != nil {
		panic(err)
	}
	return e
}

func (e *Expression) String() string { return e.source }

// Evaluate runs the expression against env. Unknown variables are errors.
func (e *Expression) Evaluate(env Env) (Value, error) {
	v, err := e.root.eval(env)
	if err != nil {
		return Value{}, fmt.Errorf("evaluate %q: %w", e.source, err)
	}
	return v, nil
}

func (n *orExpr) eval(env Env) (Value, error) {
	left, err := n.Left.eval(env)
	if err != nil || len(n.Right) == 0 {
		return left, err
	}
	if left.Truthy() {
		return Bool(true), nil
	}
	for _, r := range n.Right {
		v, err := r.eval(env)
		if err != nil {
			return Value{}, err
		}
		if v.Truthy() {
			return Bool(true), nil
		}
	}
	return Bool(false), nil
}

func (n *andExpr) eval(env Env) (Value, error) {
	left, err := n.Left.eval(env)
	if err != nil || len(n.Right) == 0 {
		return left, err
	}
	if !left.Truthy() {
		return Bool(false), nil
	}
	for _, r := range n.Right {
		v, err := r.eval(env)
		if err != nil {
			return Value{}, err
		}
		if !v.Truthy() {
			return Bool(false), nil
		}
	}
	return Bool(true), nil
}

func (n *notExpr) eval(env Env) (Value, error) {
	v, err := n.Value.eval(env)
	if err != nil || !n.Not {
		return v, err
	}
	return Bool(!v.Truthy()), nil
}

func (n *compareExpr) eval(env Env) (Value, error) {
	left, err := n.Left.eval(env)
	if err != nil || n.Tail == nil {
		return left, err
	}
	right, err := n.Tail.Right.eval(env)
	if err != nil {
		return Value{}, err
	}
	switch n.Tail.Op {
	case "==":
		return Bool(looseEqual(left, right)), nil
	case "!=":
		return Bool(!looseEqual(left, right)), nil
	}
	cmp, err := compare(left, right)
	if err != nil {
		return Value{}, err
	}
	switch n.Tail.Op {
	case "<":
		return Bool(cmp < 0), nil
	case "<=":
		return Bool(cmp <= 0), nil
	case ">":
		return Bool(cmp > 0), nil
	default:
		return Bool(cmp >= 0), nil
	}
}

// looseEqual compares numbers numerically even when one side is a numeric
// string, which is how annotation values usually arrive.
func looseEqual(a, b Value) bool {
	if a.kind == b.kind {
		return a.Equal(b)
	}
	if a.kind == KindList || b.kind == KindList {
		return false
	}
	fa, errA := a.Number()
	fb, errB := b.Number()
	if errA != nil || errB != nil {
		return a.String() == b.String()
	}
	return fa == fb
}

func compare(a, b Value) (int, error) {
	if a.kind == KindString && b.kind == KindString {
		return strings.Compare(a.str, b.str), nil
	}
	fa, err := a.Number()
	if err != nil {
		return 0, err
	}
	fb, err := b.Number()
	if err != nil {
		return 0, err
	}
	switch {
	case fa < fb:
		return -1, nil
	case fa > fb:
		return 1, nil
	}
	return 0, nil
}

func (n *addExpr) eval(env Env) (Value, error) {
	acc, err := n.Left.eval(env)
	if err != nil {
		return Value{}, err
	}
	for _, op := range n.Rest {
		right, err := op.Right.eval(env)
		if err != nil {
			return Value{}, err
		}
		if op.Op == "+" {
			acc, err = add(acc, right)
		} else {
			acc, err = arith(acc, right, func(x, y float64) (float64, error) { return x - y, nil })
		}
		if err != nil {
			return Value{}, err
		}
	}
	return acc, nil
}

func add(a, b Value) (Value, error) {
	switch {
	case a.kind == KindList && b.kind == KindList:
		return List(append(append([]Value(nil), a.list...), b.list...)...), nil
	case a.kind == KindString || b.kind == KindString:
		return Str(a.String() + b.String()), nil
	}
	return arith(a, b, func(x, y float64) (float64, error) { return x + y, nil })
}

func arith(a, b Value, fn func(x, y float64) (float64, error)) (Value, error) {
	x, err := a.Number()
	if err != nil {
		return Value{}, err
	}
	y, err := b.Number()
	if err != nil {
		return Value{}, err
	}
	r, err := fn(x, y)
	if err != nil {
		return Value{}, err
	}
	return Num(r), nil
}

func (n *mulExpr) eval(env Env) (Value, error) {
	acc, err := n.Left.eval(env)
	if err != nil {
		return Value{}, err
	}
	for _, op := range n.Rest {
		right, err := op.Right.eval(env)
		if err != nil {
			return Value{}, err
		}
		switch op.Op {
		case "*":
			acc, err = arith(acc, right, func(x, y float64) (float64, error) { return x * y, nil })
		case "/":
			acc, err = arith(acc, right, func(x, y float64) (float64, error) {
				if y == 0 {
					return 0, fmt.Errorf("division by zero")
				}
				return x / y, nil
			})
		default:
			acc, err = arith(acc, right, func(x, y float64) (float64, error) {
				if y == 0 {
					return 0, fmt.Errorf("modulo by zero")
				}
				return math.Mod(x, y), nil
			})
		}
		if err != nil {
			return Value{}, err
		}
	}
	return acc, nil
}

func (n *unaryExpr) eval(env Env) (Value, error) {
	v, err := n.Value.eval(env)
	if err != nil || !n.Neg {
		return v, err
	}
	f, err := v.Number()
	if err != nil {
		return Value{}, err
	}
	return Num(-f), nil
}

func (n *primary) eval(env Env) (Value, error) {
	switch {
	case n.Number != nil:
		return Num(*n.Number), nil
	case n.String != nil:
		return Str(*n.String), nil
	case n.Bool != nil:
		return Bool(*n.Bool == "true"), nil
	case n.Call != nil:
		return n.Call.eval(env)
	case n.Var != nil:
		v, ok := env[*n.Var]
		if !ok {
			return Value{}, fmt.Errorf("unknown variable %q", *n.Var)
		}
		return v, nil
	case n.List != nil:
		items := make([]Value, len(n.List.Items))
		for i, item := range n.List.Items {
			v, err := item.eval(env)
			if err != nil {
				return Value{}, err
			}
			items[i] = v
		}
		return List(items...), nil
	default:
		return n.Sub.eval(env)
	}
}

func (n *callExpr) eval(env Env) (Value, error) {
	// if() evaluates only the selected branch.
	if strings.EqualFold(n.Name, "if") {
		if len(n.Args) != 3 {
			return Value{}, fmt.Errorf("if expects 3 arguments, got %d", len(n.Args))
		}
		cond, err := n.Args[0].eval(env)
		if err != nil {
			return Value{}, err
		}
		if cond.Truthy() {
			return n.Args[1].eval(env)
		}
		return n.Args[2].eval(env)
	}
	fn, ok := functions[strings.ToLower(n.Name)]
	if !ok {
		return Value{}, fmt.Errorf("unknown function %q", n.Name)
	}
	args := make([]Value, len(n.Args))
	for i, a := range n.Args {
		v, err := a.eval(env)
		if err != nil {
			return Value{}, err
		}
		args[i] = v
	}
	v, err := fn(args)
	if err != nil {
		return Value{}, fmt.Errorf("%s: %w", n.Name, err)
	}
	return v, nil
}
