// Package expression implements the small expression language used to
// select axis indices, filter split outputs and compute per-plane
// relocation targets. Expressions see the current coordinate, the axis
// sizes and any numeric or string annotations as variables.
//
// Example:
//
//	e, err := expression.Parse("if(c == 0, z, num_z - 1 - z)")
//	v, err := e.Evaluate(expression.Env{"c": expression.Int(0), "z": expression.Int(2), "num_z": expression.Int(5)})
package expression

import (
	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

//nolint:govet // participle grammar tags are not standard struct tags
type orExpr struct {
	Left  *andExpr   `@@`
	Right []*andExpr `( ("||" | "OR") @@ )*`
}

//nolint:govet
type andExpr struct {
	Left  *notExpr   `@@`
	Right []*notExpr `( ("&&" | "AND") @@ )*`
}

//nolint:govet
type notExpr struct {
	Not   bool         `@("!" | "NOT")?`
	Value *compareExpr `@@`
}

//nolint:govet
type compareExpr struct {
	Left *addExpr   `@@`
	Tail *compareOp `@@?`
}

//nolint:govet
type compareOp struct {
	Op    string   `@("==" | "!=" | "<=" | ">=" | "<" | ">")`
	Right *addExpr `@@`
}

//nolint:govet
type addExpr struct {
	Left *mulExpr `@@`
	Rest []*addOp `@@*`
}

//nolint:govet
type addOp struct {
	Op    string   `@("+" | "-")`
	Right *mulExpr `@@`
}

//nolint:govet
type mulExpr struct {
	Left *unaryExpr `@@`
	Rest []*mulOp   `@@*`
}

//nolint:govet
type mulOp struct {
	Op    string     `@("*" | "/" | "%")`
	Right *unaryExpr `@@`
}

//nolint:govet
type unaryExpr struct {
	Neg   bool     `@"-"?`
	Value *primary `@@`
}

//nolint:govet
type primary struct {
	Number *float64  `  @Number`
	String *string   `| @String`
	Bool   *string   `| @("true" | "false")`
	Call   *callExpr `| @@`
	Var    *string   `| @Ident`
	List   *listExpr `| @@`
	Sub    *orExpr   `| "(" @@ ")"`
}

//nolint:govet
type callExpr struct {
	Name string    `@Ident "("`
	Args []*orExpr `( @@ ( "," @@ )* )? ")"`
}

//nolint:govet
type listExpr struct {
	Items []*orExpr `"[" ( @@ ( "," @@ )* )? "]"`
}

var exprLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Number", Pattern: `\d+(\.\d+)?([eE][-+]?\d+)?`},
	{Name: "String", Pattern: `"(\\.|[^"\\])*"`},
	{Name: "Ident", Pattern: `[A-Za-z_#][A-Za-z0-9_.#]*`},
	{Name: "Op", Pattern: `\|\||&&|==|!=|<=|>=|[-+*/%<>!(),\[\]]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

var exprParser = participle.MustBuild[orExpr](
	participle.Lexer(exprLexer),
	participle.Elide("Whitespace"),
	participle.Unquote("String"),
	participle.UseLookahead(4),
)
