package condition

// evaluate computes the truth value of e under a total assignment.
func evaluate(e Expr, assignment map[string]bool) bool {
	switch v := e.(type) {
	case Const:
		return bool(v)
	case Atom:
		return assignment[string(v)]
	case notExpr:
		return !evaluate(v.x, assignment)
	case andExpr:
		for _, x := range v.xs {
			if !evaluate(x, assignment) {
				return false
			}
		}
		return true
	case orExpr:
		for _, x := range v.xs {
			if evaluate(x, assignment) {
				return true
			}
		}
		return false
	default:
		panic("condition: unknown expression kind")
	}
}

// simplifyCNF rewrites e into conjunctive-normal form by brute-force
// truth-table enumeration over its atoms: one clause per falsifying
// assignment, then clause subsumption removes redundant clauses. This
// stands in for sympy's simplify_logic(form="cnf"); it is only ever
// invoked on the small per-group expressions produced by atom
// partitioning, so exponential enumeration in the group's atom count
// is acceptable.
func simplifyCNF(e Expr) Expr {
	atoms := sortedAtoms(e.Atoms())
	if len(atoms) == 0 {
		if evaluate(e, nil) {
			return Const(true)
		}
		return Const(false)
	}
	n := len(atoms)
	var clauses [][]Expr
	for mask := 0; mask < (1 << n); mask++ {
		assignment := make(map[string]bool, n)
		for i, a := range atoms {
			assignment[a] = mask&(1<<i) != 0
		}
		if evaluate(e, assignment) {
			continue
		}
		clause := make([]Expr, n)
		for i, a := range atoms {
			if assignment[a] {
				clause[i] = negate(Atom(a))
			} else {
				clause[i] = Atom(a)
			}
		}
		clauses = append(clauses, clause)
	}
	if len(clauses) == 0 {
		return Const(true)
	}
	clauses = subsumeClauses(clauses)
	ors := make([]Expr, len(clauses))
	for i, clause := range clauses {
		ors[i] = exprOr(clause)
	}
	return exprAnd(ors)
}

// subsumeClauses drops any clause that is a strict superset of another
// (in terms of the literal set it contains), a cheap minimization pass.
func subsumeClauses(clauses [][]Expr) [][]Expr {
	sets := make([]map[string]struct{}, len(clauses))
	for i, clause := range clauses {
		sets[i] = map[string]struct{}{}
		for _, lit := range clause {
			sets[i][lit.String()] = struct{}{}
		}
	}
	var kept [][]Expr
	for i := range clauses {
		subsumed := false
		for j := range clauses {
			if i == j || len(sets[j]) >= len(sets[i]) {
				continue
			}
			if isSubset(sets[j], sets[i]) {
				subsumed = true
				break
			}
		}
		if !subsumed {
			kept = append(kept, clauses[i])
		}
	}
	return kept
}

func isSubset(small, big map[string]struct{}) bool {
	for k := range small {
		if _, ok := big[k]; !ok {
			return false
		}
	}
	return true
}
