package processors

import (
	"fmt"
	"sort"

	"github.com/edera-run/workflowd/internal/condition"
	"github.com/edera-run/workflowd/internal/graph"
	"github.com/edera-run/workflowd/internal/linearizer"
	"github.com/edera-run/workflowd/internal/task"
	"github.com/edera-run/workflowd/internal/workflow"
	"github.com/edera-run/workflowd/internal/xerrors"
)

// WorkflowNormalizer attempts to "normalize" task targets so the set of
// targets can be simultaneously all-true and all-false, a precondition
// for the trimmer's correctness. Grounded on
// original_source/edera/workflow/processors/workflow_normalizer.py.
type WorkflowNormalizer struct{}

// Check reports whether w is already normalized, without mutating it.
func (WorkflowNormalizer) Check(w *workflow.Workflow) bool {
	targets, err := targetGraph(w)
	if err != nil {
		return false
	}
	_, normalized := checkTargets(targets)
	return normalized
}

func (n WorkflowNormalizer) Process(w *workflow.Workflow) error {
	targets, err := targetGraph(w)
	if err != nil {
		return &xerrors.WorkflowNormalizationError{Reason: err.Error()}
	}
	constraint, normalized := checkTargets(targets)
	if normalized {
		return nil
	}
	corrections, err := deriveCorrections(targets, constraint)
	if err != nil {
		return &xerrors.WorkflowNormalizationError{Reason: err.Error()}
	}
	for _, t := range w.Graph.Items() {
		target := t.Target()
		if target == nil {
			continue
		}
		if corrected, ok := corrections[target.Name()]; ok {
			w.Replace(t, &targetOverridingTask{Wrapper: task.Wrapper{Base: t}, target: corrected})
		}
	}
	return nil
}

type targetOverridingTask struct {
	task.Wrapper
	target condition.Condition
}

func (t *targetOverridingTask) Target() condition.Condition { return t.target }

// targetGraph builds the graph of unique targets, with edges derived
// from task-level edges (targets of phony tasks transparently pass
// through), matching _get_graph_of_targets.
func targetGraph(w *workflow.Workflow) (*graph.NamedGraph[condition.Condition], error) {
	order, err := linearizer.LinearizeNamed(w.Graph)
	if err != nil {
		return nil, err
	}
	result := graph.NewNamed[condition.Condition]()
	parentTargetsByTask := make(map[string]map[string]condition.Condition)
	for _, t := range order {
		parentTargets := make(map[string]condition.Condition)
		for _, parent := range w.Graph.Parents(t) {
			if parent.Target() != nil {
				parentTargets[parent.Target().Name()] = parent.Target()
			} else {
				for name, c := range parentTargetsByTask[parent.Name()] {
					parentTargets[name] = c
				}
			}
		}
		if t.Target() == nil {
			parentTargetsByTask[t.Name()] = parentTargets
			continue
		}
		result.Add(t.Target())
		for _, parentTarget := range parentTargets {
			result.Link(parentTarget, t.Target())
		}
	}
	if _, err := linearizer.LinearizeNamed(result); err != nil {
		return nil, err
	}
	return result, nil
}

// checkTargets derives the joint constraint over targets and reports
// whether both the all-true and all-false assignment satisfy it.
func checkTargets(targets *graph.NamedGraph[condition.Condition]) (condition.Expr, bool) {
	constraint := condition.DeriveConstraint(targets.Items())
	atoms := constraint.Atoms()
	allTrue := make(map[string]bool, len(atoms))
	allFalse := make(map[string]bool, len(atoms))
	for atom := range atoms {
		allTrue[atom] = true
		allFalse[atom] = false
	}
	canBeFullyComplete := evalExpr(constraint, allTrue)
	canBeFullyIncomplete := evalExpr(constraint, allFalse)
	return constraint, canBeFullyComplete && canBeFullyIncomplete
}

func evalExpr(e condition.Expr, assignment map[string]bool) bool {
	sub := e.Substitute(condition.Subst(assignment))
	c, ok := sub.(condition.Const)
	return ok && bool(c)
}

// deriveCorrections solves the auxiliary α/γ SAT problem encoding
// whether each target can be pushed to always-complete or
// always-incomplete, and returns the conjunctive/disjunctive target
// corrections, chained along the pivot of non-correctable targets.
func deriveCorrections(
	targets *graph.NamedGraph[condition.Condition],
	constraint condition.Expr,
) (map[string]condition.Condition, error) {
	constraintAtoms := constraint.Atoms()
	items := targets.Items()
	sort.Slice(items, func(i, j int) bool { return items[i].Name() < items[j].Name() })

	pivot := map[string]bool{}
	roots := map[string]bool{}
	leafs := map[string]bool{}
	for _, t := range items {
		if _, ok := constraintAtoms[condition.Symbol(t)]; !ok {
			pivot[t.Name()] = true
		}
		if len(targets.Parents(t)) == 0 {
			roots[t.Name()] = true
		}
		if len(targets.Children(t)) == 0 {
			leafs[t.Name()] = true
		}
	}

	alpha0 := map[string]condition.Expr{}
	alpha1 := map[string]condition.Expr{}
	for i, t := range items {
		if pivot[t.Name()] {
			continue
		}
		alpha0[t.Name()] = condition.Atom(fmt.Sprintf("alpha/%d/0", i))
		alpha1[t.Name()] = condition.Atom(fmt.Sprintf("alpha/%d/1", i))
	}
	index := map[string]int{}
	for i, t := range items {
		index[t.Name()] = i
	}
	gamma := func(parent, child string) condition.Expr {
		return condition.Atom(fmt.Sprintf("gamma/%d-%d", index[parent], index[child]))
	}

	constraintAlpha0 := substituteBySymbol(constraint, items, alpha0)
	constraintAlpha1 := substituteBySymbol(constraint, items, alpha1)

	var incompleteClauses, completeClauses, orderClauses []condition.Expr
	for name, a0 := range alpha0 {
		t := findByName(items, name)
		var parentGammas []condition.Expr
		for _, parent := range targets.Parents(t) {
			parentGammas = append(parentGammas, gamma(parent.Name(), name))
		}
		incompleteClauses = append(incompleteClauses, condition.ExprOr([]condition.Expr{condition.NotExpr(a0), orList(parentGammas)}))
	}
	for name, a1 := range alpha1 {
		t := findByName(items, name)
		var childGammas []condition.Expr
		for _, child := range targets.Children(t) {
			childGammas = append(childGammas, gamma(name, child.Name()))
		}
		completeClauses = append(completeClauses, condition.ExprOr([]condition.Expr{a1, orList(childGammas)}))
	}
	for name := range alpha0 {
		orderClauses = append(orderClauses, condition.ExprOr([]condition.Expr{condition.NotExpr(alpha0[name]), alpha1[name]}))
	}

	objective := condition.ExprAnd(append(append(append(
		[]condition.Expr{constraintAlpha0, constraintAlpha1},
		incompleteClauses...), completeClauses...), orderClauses...))

	fixedByAtomName := map[string]bool{}
	for name := range alpha0 {
		if roots[name] {
			fixedByAtomName[alpha0[name].String()] = false
		}
	}
	for name := range alpha1 {
		if leafs[name] {
			fixedByAtomName[alpha1[name].String()] = true
		}
	}
	objective = objective.Substitute(condition.Subst(fixedByAtomName))

	solution, ok := condition.Satisfiable(objective)
	if !ok {
		return nil, fmt.Errorf("SAT has no solutions for target normalization")
	}

	ccts := map[string]bool{}
	dcts := map[string]bool{}
	for name := range alpha0 {
		if roots[name] {
			continue
		}
		if solution[alpha0[name].String()] {
			ccts[name] = true
		}
	}
	for name := range alpha1 {
		if leafs[name] {
			continue
		}
		if !solution[alpha1[name].String()] {
			dcts[name] = true
		}
	}

	corrections, infeasible := resolveCorrections(targets, items, ccts, dcts)
	if len(infeasible) > 0 {
		return nil, fmt.Errorf("some target corrections are not feasible: %v", infeasible)
	}
	return corrections, nil
}

// substituteBySymbol replaces every target's interned symbol atom with
// its α/γ replacement expression, building the α-indexed copies of the
// joint constraint that deriveCorrections' SAT objective needs.
func substituteBySymbol(e condition.Expr, items []condition.Condition, repl map[string]condition.Expr) condition.Expr {
	values := map[string]condition.Expr{}
	for _, t := range items {
		if r, ok := repl[t.Name()]; ok {
			values[condition.Symbol(t)] = r
		}
	}
	return e.Substitute(values)
}

// orList is a small convenience so an empty gamma list folds to False
// rather than panicking on a zero-length ExprOr.
func orList(xs []condition.Expr) condition.Expr {
	if len(xs) == 0 {
		return condition.Const(false)
	}
	return condition.ExprOr(xs)
}

func findByName(items []condition.Condition, name string) condition.Condition {
	for _, t := range items {
		if t.Name() == name {
			return t
		}
	}
	return nil
}

func resolveCorrections(
	targets *graph.NamedGraph[condition.Condition],
	items []condition.Condition,
	ccts, dcts map[string]bool,
) (map[string]condition.Condition, []string) {
	pivotSet := map[string]condition.Condition{}
	for _, t := range items {
		if !ccts[t.Name()] && !dcts[t.Name()] {
			pivotSet[t.Name()] = t
		}
	}
	result := map[string]condition.Condition{}
	for name, c := range pivotSet {
		result[name] = c
	}
	queue := make([]string, 0, len(pivotSet))
	for name := range pivotSet {
		queue = append(queue, name)
	}
	sort.Strings(queue)
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		t := findByName(items, name)
		for _, child := range targets.Children(t) {
			if ccts[child.Name()] {
				result[child.Name()] = condition.And(child, result[name])
				delete(ccts, child.Name())
				queue = append(queue, child.Name())
			}
		}
		for _, parent := range targets.Parents(t) {
			if dcts[parent.Name()] {
				result[parent.Name()] = condition.Or(parent, result[name])
				delete(dcts, parent.Name())
				queue = append(queue, parent.Name())
			}
		}
	}
	var infeasible []string
	for name := range ccts {
		infeasible = append(infeasible, name)
	}
	for name := range dcts {
		infeasible = append(infeasible, name)
	}
	out := map[string]condition.Condition{}
	for name, c := range result {
		if _, isPivot := pivotSet[name]; !isPivot {
			out[name] = c
		}
	}
	return out, infeasible
}
