package selector

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"hyperstacks/pkg/expression"
)

// rangeGrammar parses "0-3,5,-1,7..9". A leading minus belongs to the
// number, so "-2-1" is the range -2..1 and "3--1" is 3..-1.
//
//nolint:govet // participle grammar tags are not standard struct tags
type rangeGrammar struct {
	Items []*rangeItem `@@ ( "," @@ )*`
}

//nolint:govet
type rangeItem struct {
	From *signedInt `@@`
	To   *signedInt `( ( ".." | "-" ) @@ )?`
}

//nolint:govet
type signedInt struct {
	Neg   bool `@"-"?`
	Value int  `@Int`
}

func (s *signedInt) int() int {
	if s.Neg {
		return -s.Value
	}
	return s.Value
}

var rangeLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Int", Pattern: `[0-9]+`},
	{Name: "Punct", Pattern: `\.\.|[-,]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

var rangeParser = participle.MustBuild[rangeGrammar](
	participle.Lexer(rangeLexer),
	participle.Elide("Whitespace"),
)

// ParseRanges parses a comma separated list of integers and inclusive
// ranges written with "-" or "..".
func ParseRanges(s string) (Ranges, error) {
	parsed, err := rangeParser.ParseString("", s)
	if err != nil {
		return nil, fmt.Errorf("parse range %q: %w", s, err)
	}
	out := make(Ranges, len(parsed.Items))
	for i, item := range parsed.Items {
		from := item.From.int()
		to := from
		if item.To != nil {
			to = item.To.int()
		}
		out[i] = Range{From: from, To: to}
	}
	return out, nil
}

// Parse reads a selector from its text form:
//
//	""  or "all"       every index
//	"expr:<source>"    an expression
//	anything else      ranges, see ParseRanges
func Parse(s string) (Selector, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "" || strings.EqualFold(s, "all"):
		return All(), nil
	case strings.HasPrefix(s, "expr:"):
		e, err := expression.Parse(strings.TrimPrefix(s, "expr:"))
		if err != nil {
			return Selector{}, err
		}
		return Selector{Source: Expr{Evaluator: e}}, nil
	default:
		r, err := ParseRanges(s)
		if err != nil {
			return Selector{}, err
		}
		return Selector{Source: r}, nil
	}
}
