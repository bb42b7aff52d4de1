// Package gadgets implements spec §4.8's constraint gadgets: typed wrappers
// around field elements that, in one call, both compute a value and enforce
// the corresponding R1CS constraints. Grounded on the "compute and constrain
// in one call" shape of
// vybium-vybium-starks-vm/internal/vybium-starks-vm/protocols/{bit_extraction,fermat_constraints}.go,
// generalized from that package's fixed STARK-trace gadgets to Zinc's
// typed-scalar, on-demand gadget calls, and on original_source/zinc-compiler
// for which gadgets exist and their call signatures.
package gadgets

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"github.com/zinc-lang/zinc/lang/bytecode"
	"github.com/zinc-lang/zinc/vm/constraint"
)

// Scalar is one typed, constrained value: a field element the VM computed
// (Value), the R1CS variable naming it (Var), and the scalar type governing
// how later gadgets range-check and cast it. A Scalar produced directly from
// a literal is never allocated a fresh variable — Var is constraint.ConstOne
// and Const is true, so it is absorbed into linear combinations instead
// (§4.8 "Constants never allocate a variable").
type Scalar struct {
	Value fr.Element
	Var   constraint.Variable
	Const bool
	Type  bytecode.Type
}

// LC returns s's linear-combination form for use as an R1CS gate operand.
func (s Scalar) LC() constraint.LinearCombination {
	if s.Const {
		return constraint.Constant(s.Value)
	}
	return constraint.Linear(s.Var)
}

// NewConstant builds a Scalar from a compile-time-known value, allocating no
// R1CS variable.
func NewConstant(t bytecode.Type, v fr.Element) Scalar {
	return Scalar{Value: v, Var: constraint.ConstOne, Const: true, Type: t}
}

// Witness allocates a fresh R1CS variable for v and returns the Scalar
// naming it, used whenever a gadget's result must participate in further
// constraints (as opposed to a constant that can stay absorbed).
func Witness(cs *constraint.System, t bytecode.Type, v fr.Element) Scalar {
	return Scalar{Value: v, Var: cs.Allocate(v), Type: t}
}

// FromBigInt builds a field element from a big.Int, reducing modulo the
// BN254 scalar field as fr.Element.SetBigInt always does.
func FromBigInt(i *big.Int) fr.Element {
	var e fr.Element
	e.SetBigInt(i)
	return e
}

// FromBool builds a 0/1 field element.
func FromBool(b bool) fr.Element {
	var e fr.Element
	if b {
		e.SetOne()
	}
	return e
}

// IsTrue reports whether s (assumed Boolean) carries the field value 1.
func (s Scalar) IsTrue() bool {
	var one fr.Element
	one.SetOne()
	return s.Value.Equal(&one)
}

// BoolType is the canonical serialized Boolean scalar type every logical
// gadget's result carries.
var BoolType = bytecode.Type{Tag: bytecode.TagBool}

// FieldType is the canonical serialized native-field scalar type.
var FieldType = bytecode.Type{Tag: bytecode.TagField}

func typeMismatch(op string, a, b bytecode.Type) error {
	return fmt.Errorf("gadgets: %s: operand type mismatch (%s vs %s)", op, a, b)
}
