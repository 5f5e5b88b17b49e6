// Package condition implements the boolean-condition algebra: combinators
// (¬ ∧ ∨ ⊕ →), a process-wide symbol interning map, and a small
// DPLL-style constraint derivation engine used by the workflow
// normalizer. Grounded on original_source/edera/condition.py.
package condition

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Condition is a computable boolean with algebraic combinators. Check
// either returns a boolean or fails (e.g. with an uncertainty error).
type Condition interface {
	// Name is the canonical, stable identifier of this condition.
	Name() string
	// Check computes the condition's current boolean value.
	Check() (bool, error)
	// Expression is the symbolic equivalent of this condition's symbol,
	// or nil if the condition has no known symbolic decomposition.
	Expression() Expr
	// Invariants are other conditions that always hold, used to derive
	// global constraints.
	Invariants() []Condition
	// Unwrap returns the base condition if this one is a wrapper.
	Unwrap() Condition
}

// interning is the process-wide symbolName -> Condition map, append-only
// so that FromSymbol can recover any condition ever interned.
var interning sync.Map // map[string]Condition

// Symbol returns the unique, interned symbol name for c, registering c
// the first time it is observed.
func Symbol(c Condition) string {
	name := "${" + c.Name() + "}"
	interning.LoadOrStore(name, c)
	return name
}

// FromSymbol recovers the Condition previously interned under symbol.
// It panics if symbol does not name an interned condition, matching the
// source's `assert symbol.name in cls.__instances`.
func FromSymbol(symbol string) Condition {
	v, ok := interning.Load(symbol)
	if !ok {
		panic(fmt.Sprintf("condition: %q is not an interned symbol", symbol))
	}
	return v.(Condition)
}

// Base provides the zero-value Invariants/Expression/Unwrap that most
// concrete conditions embed.
type Base struct{}

func (Base) Expression() Expr        { return nil }
func (Base) Invariants() []Condition { return nil }
func (Base) Unwrap() Condition       { return nil }

// Not returns the negation of c.
func Not(c Condition) Condition { return &negation{c: c} }

// And returns the conjunction of cs, flattening nested conjunctions.
func And(cs ...Condition) Condition { return &conjunction{operands: flattenConjunctions(cs)} }

// Or returns the disjunction of cs, flattening nested disjunctions.
func Or(cs ...Condition) Condition { return &disjunction{operands: flattenDisjunctions(cs)} }

// Xor returns the exclusive disjunction of cs.
func Xor(cs ...Condition) Condition { return &xorCond{operands: flattenXors(cs)} }

// Implies returns the implication cause -> effect.
func Implies(cause, effect Condition) Condition { return &implication{cause: cause, effect: effect} }

func flattenConjunctions(cs []Condition) []Condition {
	out := make([]Condition, 0, len(cs))
	for _, c := range cs {
		if conj, ok := c.(*conjunction); ok {
			out = append(out, conj.operands...)
			continue
		}
		out = append(out, c)
	}
	return out
}

func flattenDisjunctions(cs []Condition) []Condition {
	out := make([]Condition, 0, len(cs))
	for _, c := range cs {
		if disj, ok := c.(*disjunction); ok {
			out = append(out, disj.operands...)
			continue
		}
		out = append(out, c)
	}
	return out
}

func flattenXors(cs []Condition) []Condition {
	out := make([]Condition, 0, len(cs))
	for _, c := range cs {
		if xor, ok := c.(*xorCond); ok {
			out = append(out, xor.operands...)
			continue
		}
		out = append(out, c)
	}
	return out
}

func sortedNames(cs []Condition) []string {
	names := make([]string, len(cs))
	for i, c := range cs {
		names[i] = c.Name()
	}
	sort.Strings(names)
	return names
}

type negation struct {
	Base
	c Condition
}

func (n *negation) Name() string { return "~" + n.c.Name() }
func (n *negation) Check() (bool, error) {
	v, err := n.c.Check()
	if err != nil {
		return false, err
	}
	return !v, nil
}
func (n *negation) Expression() Expr { return negate(atomOf(n.c)) }

type conjunction struct {
	Base
	operands []Condition
}

func (c *conjunction) Name() string {
	return "(" + strings.Join(sortedNames(c.operands), " & ") + ")"
}
func (c *conjunction) Check() (bool, error) {
	for _, op := range c.operands {
		v, err := op.Check()
		if err != nil {
			return false, err
		}
		if !v {
			return false, nil
		}
	}
	return true, nil
}
func (c *conjunction) Expression() Expr { return exprAnd(atomsOf(c.operands)) }

type disjunction struct {
	Base
	operands []Condition
}

func (d *disjunction) Name() string {
	return "(" + strings.Join(sortedNames(d.operands), " | ") + ")"
}
func (d *disjunction) Check() (bool, error) {
	for _, op := range d.operands {
		v, err := op.Check()
		if err != nil {
			return false, err
		}
		if v {
			return true, nil
		}
	}
	return false, nil
}
func (d *disjunction) Expression() Expr { return exprOr(atomsOf(d.operands)) }

type xorCond struct {
	Base
	operands []Condition
}

func (x *xorCond) Name() string {
	return "(" + strings.Join(sortedNames(x.operands), " ^ ") + ")"
}
func (x *xorCond) Check() (bool, error) {
	result := false
	for _, op := range x.operands {
		v, err := op.Check()
		if err != nil {
			return false, err
		}
		result = result != v
	}
	return result, nil
}
func (x *xorCond) Expression() Expr { return exprXor(atomsOf(x.operands)) }

type implication struct {
	Base
	cause, effect Condition
}

func (i *implication) Name() string {
	return fmt.Sprintf("(%s >> %s)", i.cause.Name(), i.effect.Name())
}
func (i *implication) Check() (bool, error) {
	effect, err := i.effect.Check()
	if err != nil {
		return false, err
	}
	if effect {
		return true, nil
	}
	cause, err := i.cause.Check()
	if err != nil {
		return false, err
	}
	return !cause, nil
}
func (i *implication) Expression() Expr {
	return exprImplies(atomOf(i.cause), atomOf(i.effect))
}

func atomOf(c Condition) Expr  { return Atom(Symbol(c)) }
func atomsOf(cs []Condition) []Expr {
	out := make([]Expr, len(cs))
	for i, c := range cs {
		out[i] = atomOf(c)
	}
	return out
}

// Wrapper delegates all reads to a Base Condition, allowing any subset of
// behaviors to be overridden, matching ConditionWrapper.
type Wrapper struct {
	Base Condition
}

func (w *Wrapper) Name() string            { return w.Base.Name() }
func (w *Wrapper) Check() (bool, error)     { return w.Base.Check() }
func (w *Wrapper) Expression() Expr         { return w.Base.Expression() }
func (w *Wrapper) Invariants() []Condition  { return w.Base.Invariants() }
func (w *Wrapper) Unwrap() Condition        { return w.Base }
