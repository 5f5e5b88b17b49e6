package condition

// Satisfiable performs a DPLL-style backtracking search for a truth
// assignment that makes e true: substitute a candidate atom with each
// truth value, prune branches that immediately fold to False (via
// Expr.Substitute's constant folding), and recurse. Hand-rolled in the
// absence of any CNF/SAT library in the dependency set.
func Satisfiable(e Expr) (map[string]bool, bool) {
	atoms := sortedAtoms(e.Atoms())
	assignment := make(map[string]bool, len(atoms))
	return search(e, atoms, assignment)
}

func search(e Expr, atoms []string, assignment map[string]bool) (map[string]bool, bool) {
	if len(atoms) == 0 {
		if evaluate(e, assignment) {
			out := make(map[string]bool, len(assignment))
			for k, v := range assignment {
				out[k] = v
			}
			return out, true
		}
		return nil, false
	}
	atom, rest := atoms[0], atoms[1:]
	for _, val := range [2]bool{true, false} {
		sub := e.Substitute(Subst(map[string]bool{atom: val}))
		if c, ok := sub.(Const); ok && !bool(c) {
			continue
		}
		assignment[atom] = val
		if result, ok := search(sub, rest, assignment); ok {
			return result, true
		}
	}
	delete(assignment, atom)
	return nil, false
}
