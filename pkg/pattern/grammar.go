package pattern

import (
	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

var patternLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Whitespace", Pattern: `\s+`},
	{Name: "String", Pattern: `"(\\.|[^"])*"`},
	{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_]*`},
	{Name: "Or", Pattern: `\|\|`},
	{Name: "And", Pattern: `&&`},
	{Name: "Punct", Pattern: `[!()\.\-]`},
})

var parser = participle.MustBuild[orExpr](
	participle.Lexer(patternLexer),
	participle.Elide("Whitespace"),
	participle.UseLookahead(2),
)

// orExpr is the lowest-precedence level: a chain of andExpr joined by "||".
type orExpr struct {
	Left *andExpr `parser:"@@"`
	Rest []*andExpr `parser:"( Or @@ )*"`
}

// andExpr is a chain of unaryExpr joined by "&&" or "-" (difference).
type andExpr struct {
	Left *unaryExpr `parser:"@@"`
	Ops  []*andOp   `parser:"@@*"`
}

type andOp struct {
	Op    string     `parser:"@( And | '-' )"`
	Right *unaryExpr `parser:"@@"`
}

// unaryExpr is an optional "!" applied to a primary.
type unaryExpr struct {
	Not     bool     `parser:"@'!'?"`
	Primary *primary `parser:"@@"`
}

// primary is either a parenthesized sub-expression or a selector.
type primary struct {
	Sub      *orExpr   `parser:"( '(' @@ ')'"`
	Selector *selector `parser:"| @@ )"`
}

// selector is either a bare keyword (all/any/true/none/false) or a compound
// "field.op(arg)" form.
type selector struct {
	Field string `parser:"@Ident"`
	Call  *call  `parser:"( '.' @@ )?"`
}

type call struct {
	Op  string `parser:"@Ident '('"`
	Arg string `parser:"@(String|Ident) ')'"`
}

// Parse compiles a predicate expression into an AST ready for Eval.
func Parse(expr string) (*Expr, error) {
	tree, err := parser.ParseString("", expr)
	if err != nil {
		return nil, err
	}
	return &Expr{tree: tree}, nil
}

// Expr is a compiled predicate, ready to be evaluated against a Context.
type Expr struct {
	tree *orExpr
}
