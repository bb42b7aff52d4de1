// Package constraint implements the R1CS (Rank-1 Constraint System) ledger
// the VM appends to while it executes (spec §4.7 "VM core", §4.8 "Constraint
// gadgets"). It is grounded on the dense-matrix R1CS of
// vybium-vybium-starks-vm/internal/vybium-starks-vm/protocols/r1cs.go
// (`(A·w)*(B·w)=(C·w)`, a VerifyWitness dot-product check) but reshaped to an
// append-only sparse linear-combination ledger: a Zinc circuit can easily
// have thousands of variables with only two or three active terms per gate,
// so a dense `nCons × nVars` matrix wastes almost all of its memory on
// zeroes the teacher's fixed-size Fibonacci example never has to care about.
package constraint

import (
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

// Variable indexes one entry of a System's witness vector. Variable 0 is
// reserved for the constant `1` wire every linear combination can refer to
// without allocating a fresh variable for a literal coefficient.
type Variable int

// ConstOne is the reserved wire whose witness value is always 1.
const ConstOne Variable = 0

// Term is one coefficient·variable product inside a LinearCombination.
type Term struct {
	Coefficient fr.Element
	Variable    Variable
}

// LinearCombination is a sparse sum of Terms, the row of an R1CS matrix this
// package never materializes densely.
type LinearCombination []Term

// Constant builds a LinearCombination equal to a fixed field element,
// expressed against the ConstOne wire so it never allocates a variable
// (§4.8 "Constants never allocate a variable; they are absorbed into linear
// combinations").
func Constant(v fr.Element) LinearCombination {
	return LinearCombination{{Coefficient: v, Variable: ConstOne}}
}

// Linear builds a single-term LinearCombination referencing an existing
// variable with coefficient 1.
func Linear(v Variable) LinearCombination {
	one := fr.One()
	return LinearCombination{{Coefficient: one, Variable: v}}
}

// Scale returns lc with every coefficient multiplied by k.
func (lc LinearCombination) Scale(k fr.Element) LinearCombination {
	out := make(LinearCombination, len(lc))
	for i, t := range lc {
		var c fr.Element
		c.Mul(&t.Coefficient, &k)
		out[i] = Term{Coefficient: c, Variable: t.Variable}
	}
	return out
}

// Add concatenates lc and other into one linear combination; duplicate
// variables are not merged since evaluation sums every term regardless.
func (lc LinearCombination) Add(other LinearCombination) LinearCombination {
	out := make(LinearCombination, 0, len(lc)+len(other))
	out = append(out, lc...)
	out = append(out, other...)
	return out
}

// Sub is Add with other negated first.
func (lc LinearCombination) Sub(other LinearCombination) LinearCombination {
	var negOne fr.Element
	negOne.SetOne()
	negOne.Neg(&negOne)
	return lc.Add(other.Scale(negOne))
}

// Constraint is one row of the system: (A·w)*(B·w) = (C·w).
type Constraint struct {
	A, B, C LinearCombination
}

// System is the append-only R1CS ledger for one VM run. It owns both the
// witness vector (the concrete values the VM computed while executing) and
// the symbolic constraint list a prover would later feed to Groth16 — this
// VM only ever runs in "prover" mode, so a witness value is always present
// alongside a variable's index (§4.8 describes an "optional witness value"
// for gadgets used purely at circuit-definition time; Zinc's VM always
// executes concretely, so Witness is total over Variables).
type System struct {
	Witness     []fr.Element
	constraints []Constraint
}

// NewSystem returns a System with its ConstOne wire already allocated.
func NewSystem() *System {
	cs := &System{Witness: make([]fr.Element, 1)}
	cs.Witness[0] = fr.One()
	return cs
}

// Allocate reserves a new witness variable holding value and returns its
// index. Used by every gadget that needs to name an intermediate or output
// value in a constraint.
func (cs *System) Allocate(value fr.Element) Variable {
	cs.Witness = append(cs.Witness, value)
	return Variable(len(cs.Witness) - 1)
}

// Add appends one (A·w)*(B·w)=(C·w) row. The caller supplies the three
// linear combinations; Add does not itself check satisfiability — that is
// Verify's job, run separately so hot-path gadget code never pays for it.
func (cs *System) Add(a, b, c LinearCombination) {
	cs.constraints = append(cs.constraints, Constraint{A: a, B: b, C: c})
}

// NumConstraints reports how many rows have been appended.
func (cs *System) NumConstraints() int { return len(cs.constraints) }

func (cs *System) eval(lc LinearCombination) fr.Element {
	var acc fr.Element
	for _, t := range lc {
		var term fr.Element
		term.Mul(&t.Coefficient, &cs.Witness[t.Variable])
		acc.Add(&acc, &term)
	}
	return acc
}

// Verify checks every appended constraint against the current witness,
// mirroring the teacher's own VerifyWitness dot-product check one row at a
// time instead of as one dense pass. Used by tests; vm.RunCircuit does not
// call it before returning a result.
func (cs *System) Verify() error {
	for i, c := range cs.constraints {
		a := cs.eval(c.A)
		b := cs.eval(c.B)
		var lhs fr.Element
		lhs.Mul(&a, &b)
		rhs := cs.eval(c.C)
		if !lhs.Equal(&rhs) {
			return fmt.Errorf("constraint: row %d unsatisfied: (%s)*(%s) != %s", i, a.String(), b.String(), rhs.String())
		}
	}
	return nil
}
