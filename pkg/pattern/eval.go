package pattern

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Verdict is the tri-valued result of evaluating a predicate: True, False, or
// Undef ("undecidable for this context" — the spec's `None`).
type Verdict int

const (
	Undef Verdict = iota
	False
	True
)

func (v Verdict) String() string {
	switch v {
	case True:
		return "true"
	case False:
		return "false"
	default:
		return "undef"
	}
}

func fromBool(b bool) Verdict {
	if b {
		return True
	}
	return False
}

// And implements strong Kleene conjunction: False is absorbing, Undef
// combines with True to stay Undef, and Undef combines with False to give
// False — matching and(None, Some(false)) = Some(false), and(None,
// Some(true)) = None from the spec.
func And(a, b Verdict) Verdict {
	if a == False || b == False {
		return False
	}
	if a == Undef || b == Undef {
		return Undef
	}
	return True
}

// Or is the dual of And: True is absorbing.
func Or(a, b Verdict) Verdict {
	if a == True || b == True {
		return True
	}
	if a == Undef || b == Undef {
		return Undef
	}
	return False
}

// Not flips True/False and leaves Undef unchanged.
func Not(a Verdict) Verdict {
	switch a {
	case True:
		return False
	case False:
		return True
	default:
		return Undef
	}
}

// CaseContext is the per-test-case portion of a Context; it is absent when
// the predicate is evaluated outside any particular case (e.g. at
// directive-load time).
type CaseContext struct {
	Name string
}

// Context is the identifying triple a directive filter is evaluated against.
type Context struct {
	Package  string
	Artifact string
	Case     *CaseContext
}

// fieldValue resolves a field name to a string value. ok is false when the
// field cannot be resolved in this context (e.g. "name" with no case bound),
// which makes any compound selector over it evaluate to Undef.
func (c Context) fieldValue(field string) (string, bool) {
	switch field {
	case "package":
		return c.Package, true
	case "artifact":
		return c.Artifact, true
	case "name":
		if c.Case == nil {
			return "", false
		}
		return c.Case.Name, true
	default:
		return "", false
	}
}

// Eval evaluates the compiled expression against ctx.
func (e *Expr) Eval(ctx Context) Verdict {
	return evalOr(e.tree, ctx)
}

func evalOr(n *orExpr, ctx Context) Verdict {
	v := evalAnd(n.Left, ctx)
	for _, rhs := range n.Rest {
		v = Or(v, evalAnd(rhs, ctx))
	}
	return v
}

func evalAnd(n *andExpr, ctx Context) Verdict {
	v := evalUnary(n.Left, ctx)
	for _, op := range n.Ops {
		rhs := evalUnary(op.Right, ctx)
		switch op.Op {
		case "&&":
			v = And(v, rhs)
		case "-":
			// Difference: x - y ≡ x && !y.
			v = And(v, Not(rhs))
		default:
			v = Undef
		}
	}
	return v
}

func evalUnary(n *unaryExpr, ctx Context) Verdict {
	v := evalPrimary(n.Primary, ctx)
	if n.Not {
		return Not(v)
	}
	return v
}

func evalPrimary(n *primary, ctx Context) Verdict {
	if n.Sub != nil {
		return evalOr(n.Sub, ctx)
	}
	return evalSelector(n.Selector, ctx)
}

func evalSelector(n *selector, ctx Context) Verdict {
	if n.Call == nil {
		switch n.Field {
		case "all", "any", "true":
			return True
		case "none", "false":
			return False
		default:
			return Undef
		}
	}

	value, ok := ctx.fieldValue(n.Field)
	if !ok {
		return Undef
	}

	arg := unquote(n.Call.Arg)

	switch n.Call.Op {
	case "equals":
		return fromBool(value == arg)
	case "contains":
		return fromBool(strings.Contains(value, arg))
	case "starts_with":
		return fromBool(strings.HasPrefix(value, arg))
	case "ends_with":
		return fromBool(strings.HasSuffix(value, arg))
	case "matches":
		re, err := regexp.Compile(arg)
		if err != nil {
			return Undef
		}
		return fromBool(re.MatchString(value))
	case "globs":
		matched, err := doublestar.Match(arg, value)
		if err != nil {
			return Undef
		}
		return fromBool(matched)
	default:
		return Undef
	}
}

func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

// Match parses and evaluates expr against ctx in one step, for callers that
// don't need to reuse a compiled Expr.
func Match(expr string, ctx Context) (Verdict, error) {
	compiled, err := Parse(expr)
	if err != nil {
		return Undef, fmt.Errorf("pattern: parse %q: %w", expr, err)
	}
	return compiled.Eval(ctx), nil
}
