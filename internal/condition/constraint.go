package condition

import (
	"sort"

	"github.com/edera-run/workflowd/internal/graph"
)

// DeriveConstraint derives a symbolic expression binding conditions,
// mirroring edera.condition.derive_constraint: it analyzes whether
// conditions (typically task targets) fundamentally contradict each
// other, which complicates workflow trimming.
func DeriveConstraint(conditions []Condition) Expr {
	seen := map[string]Condition{}
	for _, c := range conditions {
		seen[Symbol(c)] = c
	}
	active := make([]Condition, 0, len(seen))
	for _, c := range seen {
		active = append(active, c)
	}
	globalConstraints := deriveGlobalConstraints(active)
	groups := groupByAtoms(globalConstraints)

	activeAtoms := map[string]struct{}{}
	for _, c := range active {
		activeAtoms[Symbol(c)] = struct{}{}
	}

	var reduced []Expr
	for _, group := range groups {
		reduced = append(reduced, reduceGroup(group, activeAtoms)...)
	}
	return exprAnd(reduced)
}

// deriveGlobalConstraints performs a fixed-point expansion over unknown
// atoms reachable via expression<->symbol equivalences and invariants.
func deriveGlobalConstraints(conditions []Condition) []Expr {
	stack := append([]Condition(nil), conditions...)
	collected := map[string]struct{}{}
	for _, c := range conditions {
		collected[Symbol(c)] = struct{}{}
	}
	var constraints []Expr
	for len(stack) > 0 {
		c := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, constraint := range deriveLocalConstraints(c) {
			constraints = append(constraints, constraint)
			for atom := range constraint.Atoms() {
				if _, ok := collected[atom]; ok {
					continue
				}
				collected[atom] = struct{}{}
				stack = append(stack, FromSymbol(atom))
			}
		}
	}
	return constraints
}

func deriveLocalConstraints(c Condition) []Expr {
	var out []Expr
	if expr := c.Expression(); expr != nil {
		out = append(out, Equivalent(Atom(Symbol(c)), expr))
	}
	for _, invariant := range c.Invariants() {
		out = append(out, Atom(Symbol(invariant)))
	}
	return out
}

// groupByAtoms partitions constraints into disjoint-set groups sharing
// atoms, so each group can be reduced independently.
func groupByAtoms(expressions []Expr) [][]Expr {
	ds := graph.NewDisjointSet[int]()
	atomOwner := map[string]int{}
	for i, expr := range expressions {
		ds.Make(i)
		for atom := range expr.Atoms() {
			if owner, ok := atomOwner[atom]; ok {
				ds.Union(i, owner)
			} else {
				atomOwner[atom] = i
			}
		}
	}
	grouped := map[int][]Expr{}
	for i, expr := range expressions {
		root := ds.Find(i)
		grouped[root] = append(grouped[root], expr)
	}
	roots := make([]int, 0, len(grouped))
	for root := range grouped {
		roots = append(roots, root)
	}
	sort.Ints(roots)
	out := make([][]Expr, len(roots))
	for i, root := range roots {
		out[i] = grouped[root]
	}
	return out
}

// reduceGroup reduces a group of constraints to a CNF formula over the
// active symbols, eliminating inactive atoms cheapest-first (weighted by
// the total size of the formulas they appear in), matching
// edera.condition._reduce_expressions.
func reduceGroup(expressions []Expr, active map[string]struct{}) []Expr {
	exprs := make([]Expr, len(expressions))
	for i, e := range expressions {
		exprs[i] = simplifyCNF(e)
	}

	inactive := map[string]struct{}{}
	for _, e := range exprs {
		for atom := range e.Atoms() {
			if _, ok := active[atom]; !ok {
				inactive[atom] = struct{}{}
			}
		}
	}

	type weighted struct {
		atom   string
		weight int
	}
	var order []weighted
	for atom := range inactive {
		w := 0
		for _, e := range exprs {
			if _, ok := e.Atoms()[atom]; ok {
				w += len(e.Atoms())
			}
		}
		order = append(order, weighted{atom, w})
	}
	sort.Slice(order, func(i, j int) bool {
		if order[i].weight != order[j].weight {
			return order[i].weight < order[j].weight
		}
		return order[i].atom < order[j].atom
	})

	for _, ow := range order {
		var focused []Expr
		var rest []Expr
		for _, e := range exprs {
			if _, ok := e.Atoms()[ow.atom]; ok {
				focused = append(focused, e)
			} else {
				rest = append(rest, e)
			}
		}
		focus := exprAnd(focused)
		eliminated := exprOr([]Expr{
			focus.Substitute(Subst(map[string]bool{ow.atom: false})),
			focus.Substitute(Subst(map[string]bool{ow.atom: true})),
		})
		eliminated = simplifyCNF(eliminated)
		exprs = append(rest, eliminated)
	}
	return exprs
}
