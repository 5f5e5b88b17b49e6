package condition

import "testing"

type boolCondition struct {
	Base
	name string
	val  bool
	err  error
}

func (b *boolCondition) Name() string { return b.name }
func (b *boolCondition) Check() (bool, error) {
	if b.err != nil {
		return false, b.err
	}
	return b.val, nil
}

func TestNotNegatesCheck(t *testing.T) {
	c := &boolCondition{name: "A", val: true}
	n := Not(c)
	v, err := n.Check()
	if err != nil || v {
		t.Fatalf("Not(true) = (%v, %v), want (false, nil)", v, err)
	}
	if Not(Not(c)).Name() != "~~A" {
		t.Fatalf("double negation name = %q", Not(Not(c)).Name())
	}
}

func TestAndFlattensAndShortCircuits(t *testing.T) {
	a := &boolCondition{name: "A", val: true}
	b := &boolCondition{name: "B", val: true}
	cc := &boolCondition{name: "C", val: true}
	inner := And(a, b)
	outer := And(inner, cc)
	conj, ok := outer.(*conjunction)
	if !ok {
		t.Fatalf("And did not return a conjunction")
	}
	if len(conj.operands) != 3 {
		t.Fatalf("expected flattened conjunction of 3 operands, got %d", len(conj.operands))
	}

	bFalse := &boolCondition{name: "B", val: false}
	v, err := And(a, bFalse).Check()
	if err != nil || v {
		t.Fatalf("And(true,false) = (%v,%v), want (false,nil)", v, err)
	}
}

func TestAndNameIsSortedAndStable(t *testing.T) {
	a := &boolCondition{name: "B", val: true}
	b := &boolCondition{name: "A", val: true}
	n1 := And(a, b).Name()
	n2 := And(b, a).Name()
	if n1 != n2 {
		t.Fatalf("conjunction name not stable under operand order: %q vs %q", n1, n2)
	}
	if n1 != "(A & B)" {
		t.Fatalf("expected sorted operand names, got %q", n1)
	}
}

func TestOrShortCircuitsOnTrue(t *testing.T) {
	a := &boolCondition{name: "A", val: false}
	b := &boolCondition{name: "B", val: true}
	v, err := Or(a, b).Check()
	if err != nil || !v {
		t.Fatalf("Or(false,true) = (%v,%v), want (true,nil)", v, err)
	}
}

func TestXorParity(t *testing.T) {
	tr := &boolCondition{name: "T", val: true}
	fa := &boolCondition{name: "F", val: false}
	v, _ := Xor(tr, fa).Check()
	if !v {
		t.Fatalf("Xor(true,false) should be true")
	}
	v, _ = Xor(tr, tr).Check()
	if v {
		t.Fatalf("Xor(true,true) should be false")
	}
}

func TestImpliesIsFalseOnlyWhenCauseTrueEffectFalse(t *testing.T) {
	tr := &boolCondition{name: "T", val: true}
	fa := &boolCondition{name: "F", val: false}
	v, _ := Implies(tr, fa).Check()
	if v {
		t.Fatalf("Implies(true,false) should be false")
	}
	v, _ = Implies(fa, fa).Check()
	if !v {
		t.Fatalf("Implies(false,false) should be true")
	}
}

func TestCheckPropagatesError(t *testing.T) {
	errCond := &boolCondition{name: "E", err: errUncertain}
	if _, err := And(errCond, &boolCondition{name: "A", val: true}).Check(); err != errUncertain {
		t.Fatalf("expected uncertainty error to propagate, got %v", err)
	}
	if _, err := Or(&boolCondition{name: "A", val: false}, errCond).Check(); err != errUncertain {
		t.Fatalf("expected uncertainty error to propagate through Or, got %v", err)
	}
}

var errUncertain = &uncertainErr{}

type uncertainErr struct{}

func (*uncertainErr) Error() string { return "uncertain" }

func TestSymbolInterningRoundTrips(t *testing.T) {
	c := &boolCondition{name: "RoundTrip", val: true}
	sym := Symbol(c)
	got := FromSymbol(sym)
	if got != Condition(c) {
		t.Fatalf("FromSymbol(Symbol(c)) did not return the same interned condition")
	}
}

func TestFromSymbolPanicsOnUnknown(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic for unknown symbol")
		}
	}()
	FromSymbol("${never-interned}")
}

func TestWrapperDelegatesAndUnwraps(t *testing.T) {
	base := &boolCondition{name: "Base", val: true}
	w := &Wrapper{Base: base}
	if w.Name() != "Base" {
		t.Fatalf("Wrapper.Name() = %q, want Base", w.Name())
	}
	v, err := w.Check()
	if err != nil || !v {
		t.Fatalf("Wrapper.Check() = (%v,%v)", v, err)
	}
	if w.Unwrap() != Condition(base) {
		t.Fatalf("Wrapper.Unwrap() did not return the base condition")
	}
}
