/*
Package pattern implements the tri-valued boolean predicate language used by
metadata directive filters.

Expressions are parsed with alecthomas/participle/v2 into a small AST (or →
and → unary → primary) and evaluated against a Context to a Verdict: True,
False, or Undef. Undef means "undecidable in this context" — for example, a
compound selector over the "name" field when no case is bound. Combinators
follow strong Kleene (K3) truth tables: And and Or each have an absorbing
value (False and True respectively), matching the spec's
and(None,Some(false))=Some(false), and(None,Some(true))=None rules; Not
leaves Undef unchanged.

Simple selectors: all/any/true evaluate to True; none/false evaluate to
False. Compound selectors take the form field.op(arg), where op is one of
equals, contains, starts_with, ends_with, matches (regex via regexp), or
globs (doublestar glob matching).

A directive filter that evaluates to Undef is treated as non-matching by the
metadata engine — the conservative policy the spec mandates.
*/
package pattern
