package condition

import (
	"fmt"
	"sort"
	"strings"
)

// Expr is a small symbolic boolean expression tree over atom names,
// standing in for sympy.logic.boolalg in the distillation source. It
// supports exactly the operations derive_constraint needs: atom
// collection, substitution, CNF simplification and equality-by-string.
type Expr interface {
	fmt.Stringer
	// Atoms returns every distinct atom symbol referenced by e.
	Atoms() map[string]struct{}
	// Substitute replaces every occurrence of atoms named in values with
	// the given replacement expression (a Const for truth-value
	// substitution, or an arbitrary Expr to graft one symbolic formula
	// into another), returning a new, simplified expression.
	Substitute(values map[string]Expr) Expr
}

// Atom is a leaf boolean variable, a condition's interned symbol.
type Atom string

func (a Atom) String() string             { return string(a) }
func (a Atom) Atoms() map[string]struct{} { return map[string]struct{}{string(a): {}} }
func (a Atom) Substitute(values map[string]Expr) Expr {
	if v, ok := values[string(a)]; ok {
		return v
	}
	return a
}

// Const is a boolean literal.
type Const bool

func (c Const) String() string {
	if c {
		return "True"
	}
	return "False"
}
func (c Const) Atoms() map[string]struct{}           { return map[string]struct{}{} }
func (c Const) Substitute(map[string]Expr) Expr       { return c }

type notExpr struct{ x Expr }

// negate returns the negation of x, unexported since conditions expose
// their own Not combinator over Condition, not Expr.
func negate(x Expr) Expr {
	if c, ok := x.(Const); ok {
		return Const(!bool(c))
	}
	if n, ok := x.(notExpr); ok {
		return n.x
	}
	return notExpr{x}
}
func (n notExpr) String() string             { return "~" + paren(n.x) }
func (n notExpr) Atoms() map[string]struct{} { return n.x.Atoms() }
func (n notExpr) Substitute(values map[string]Expr) Expr {
	return negate(n.x.Substitute(values))
}

type andExpr struct{ xs []Expr }

func exprAnd(xs []Expr) Expr { return buildAssoc(xs, true) }

func (a andExpr) String() string             { return joinOps(a.xs, "&") }
func (a andExpr) Atoms() map[string]struct{} { return unionAtoms(a.xs) }
func (a andExpr) Substitute(values map[string]Expr) Expr {
	out := make([]Expr, len(a.xs))
	for i, x := range a.xs {
		out[i] = x.Substitute(values)
	}
	return exprAnd(out)
}

type orExpr struct{ xs []Expr }

func exprOr(xs []Expr) Expr { return buildAssoc(xs, false) }

func (o orExpr) String() string             { return joinOps(o.xs, "|") }
func (o orExpr) Atoms() map[string]struct{} { return unionAtoms(o.xs) }
func (o orExpr) Substitute(values map[string]Expr) Expr {
	out := make([]Expr, len(o.xs))
	for i, x := range o.xs {
		out[i] = x.Substitute(values)
	}
	return exprOr(out)
}

// ExprAnd is the exported n-ary And builder, for callers (the
// normalizer's α/γ objective) that need to combine Exprs directly
// rather than going through Condition.
func ExprAnd(xs []Expr) Expr { return exprAnd(xs) }

// ExprOr is the exported n-ary Or builder.
func ExprOr(xs []Expr) Expr { return exprOr(xs) }

// NotExpr is the exported Expr negation.
func NotExpr(x Expr) Expr { return negate(x) }

// Subst builds the Const-valued substitution map Substitute expects
// from a plain truth assignment, the common case (evaluation, SAT
// search) where every replacement is a boolean constant.
func Subst(values map[string]bool) map[string]Expr {
	out := make(map[string]Expr, len(values))
	for k, v := range values {
		out[k] = Const(v)
	}
	return out
}

// buildAssoc folds nested And/Or chains and short-circuits on constants,
// matching the source's reliance on sympy's automatic flattening.
func buildAssoc(xs []Expr, conjunctive bool) Expr {
	var flat []Expr
	for _, x := range xs {
		if conjunctive {
			if a, ok := x.(andExpr); ok {
				flat = append(flat, a.xs...)
				continue
			}
		} else {
			if o, ok := x.(orExpr); ok {
				flat = append(flat, o.xs...)
				continue
			}
		}
		flat = append(flat, x)
	}
	var kept []Expr
	for _, x := range flat {
		if c, ok := x.(Const); ok {
			if conjunctive && !bool(c) {
				return Const(false)
			}
			if !conjunctive && bool(c) {
				return Const(true)
			}
			continue
		}
		kept = append(kept, x)
	}
	if len(kept) == 0 {
		return Const(conjunctive)
	}
	if len(kept) == 1 {
		return kept[0]
	}
	if conjunctive {
		return andExpr{xs: kept}
	}
	return orExpr{xs: kept}
}

func exprXor(xs []Expr) Expr {
	var acc Expr = Const(false)
	for _, x := range xs {
		acc = exprOr([]Expr{
			exprAnd([]Expr{acc, negate(x)}),
			exprAnd([]Expr{negate(acc), x}),
		})
	}
	return acc
}

func exprImplies(cause, effect Expr) Expr {
	return exprOr([]Expr{negate(cause), effect})
}

// Equivalent builds the bi-implication a <-> b.
func Equivalent(a, b Expr) Expr {
	return exprAnd([]Expr{exprImplies(a, b), exprImplies(b, a)})
}

func unionAtoms(xs []Expr) map[string]struct{} {
	out := map[string]struct{}{}
	for _, x := range xs {
		for a := range x.Atoms() {
			out[a] = struct{}{}
		}
	}
	return out
}

func joinOps(xs []Expr, op string) string {
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = paren(x)
	}
	return strings.Join(parts, " "+op+" ")
}

func paren(x Expr) string {
	switch x.(type) {
	case Atom, Const:
		return x.String()
	default:
		return "(" + x.String() + ")"
	}
}

func sortedAtoms(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for a := range m {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}
