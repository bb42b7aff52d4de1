package gadgets

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"github.com/zinc-lang/zinc/lang/bytecode"
	"github.com/zinc-lang/zinc/vm/constraint"
)

// DivisionByZeroError is returned by Div/Rem when the runtime divisor is
// zero under a true predicate (§4.7 "Division by a runtime zero:
// DivisionByZero").
type DivisionByZeroError struct{}

func (*DivisionByZeroError) Error() string { return "gadgets: division by zero" }

// Add/Sub/Mul/Div/Rem/Neg implement §4.6's range-checked arithmetic family:
// each computes its result in the BN254 scalar field, allocates a witness
// variable for it, asserts the defining R1CS relation, and then — unless the
// operand type is Field, or the VM is in unconstrained mode — range-checks
// the result against the operand bitlength (§4.8 "a final
// conditional_type_check re-ranges under a predicate"). unconstrained and
// cond are threaded through from the VM's current predicate and
// SetUnconstrained state.

func maybeRangeCheck(cs *constraint.System, out Scalar, cond, unconstrained bool) error {
	if out.Type.Tag != bytecode.TagInt {
		return nil
	}
	if err := ConditionalRangeCheck(cs, cond, out, out.Type.Bits, out.Type.Signed, unconstrained); err != nil {
		return fmt.Errorf("gadgets: %w", err)
	}
	return nil
}

func Add(cs *constraint.System, a, b Scalar, cond, unconstrained bool) (Scalar, error) {
	var v fr.Element
	v.Add(&a.Value, &b.Value)
	out := Witness(cs, a.Type, v)
	cs.Add(a.LC().Add(b.LC()), constraint.Constant(fr.One()), out.LC())
	return out, maybeRangeCheck(cs, out, cond, unconstrained)
}

func Sub(cs *constraint.System, a, b Scalar, cond, unconstrained bool) (Scalar, error) {
	var v fr.Element
	v.Sub(&a.Value, &b.Value)
	out := Witness(cs, a.Type, v)
	cs.Add(a.LC().Sub(b.LC()), constraint.Constant(fr.One()), out.LC())
	return out, maybeRangeCheck(cs, out, cond, unconstrained)
}

func Mul(cs *constraint.System, a, b Scalar, cond, unconstrained bool) (Scalar, error) {
	var v fr.Element
	v.Mul(&a.Value, &b.Value)
	out := Witness(cs, a.Type, v)
	cs.Add(a.LC(), b.LC(), out.LC())
	return out, maybeRangeCheck(cs, out, cond, unconstrained)
}

// Div computes integer/field division. For field operands it constrains
// `b*out = a`; for integer operands the remainder r = a - b*out gets its own
// witness and the constraint is `b*out = a - r`, the relation Rem also uses.
// A runtime zero divisor is caught before any constraint is asserted, since
// it would otherwise either reject a legitimately-zero `a` or silently admit
// an unconstrained `out`.
func Div(cs *constraint.System, a, b Scalar, cond, unconstrained bool) (Scalar, error) {
	if b.Value.IsZero() {
		return Scalar{}, &DivisionByZeroError{}
	}
	var inv, v fr.Element
	inv.Inverse(&b.Value)
	if a.Type.Tag == bytecode.TagField {
		v.Mul(&a.Value, &inv)
	} else {
		v = integerQuotient(a.Value, b.Value, a.Type.Signed)
	}
	out := Witness(cs, a.Type, v)
	if a.Type.Tag == bytecode.TagField {
		cs.Add(out.LC(), b.LC(), a.LC())
	} else {
		var bq, r fr.Element
		bq.Mul(&b.Value, &v)
		r.Sub(&a.Value, &bq)
		rem := Witness(cs, a.Type, r)
		cs.Add(out.LC(), b.LC(), a.LC().Sub(rem.LC()))
	}
	return out, maybeRangeCheck(cs, out, cond, unconstrained)
}

// Rem is the Euclidean-remainder companion to Div, per spec.md's fixed
// semantics for `%` on signed operands (sign of the divisor) — see
// DESIGN.md's Open-question decisions. Constrained by `a = b*q + r` with `q`
// the already-computed quotient.
func Rem(cs *constraint.System, a, b Scalar, cond, unconstrained bool) (Scalar, error) {
	if b.Value.IsZero() {
		return Scalar{}, &DivisionByZeroError{}
	}
	q := integerQuotient(a.Value, b.Value, a.Type.Signed)
	var bq, r fr.Element
	bq.Mul(&b.Value, &q)
	r.Sub(&a.Value, &bq)
	out := Witness(cs, a.Type, r)
	qVar := Witness(cs, a.Type, q)
	cs.Add(b.LC(), qVar.LC(), a.LC().Sub(out.LC()))
	return out, maybeRangeCheck(cs, out, cond, unconstrained)
}

func Neg(cs *constraint.System, a Scalar, cond, unconstrained bool) (Scalar, error) {
	var v fr.Element
	v.Neg(&a.Value)
	out := Witness(cs, a.Type, v)
	negOne := fr.One()
	negOne.Neg(&negOne)
	cs.Add(a.LC().Scale(negOne), constraint.Constant(fr.One()), out.LC())
	return out, maybeRangeCheck(cs, out, cond, unconstrained)
}

// integerQuotient computes Euclidean division (sign follows the divisor),
// working over big.Int since fr.Element has no native signed division.
func integerQuotient(a, b fr.Element, signed bool) fr.Element {
	ai, bi := new(big.Int), new(big.Int)
	a.BigInt(ai)
	b.BigInt(bi)
	if signed {
		ai = asSigned(ai)
		bi = asSigned(bi)
	}
	q := new(big.Int)
	m := new(big.Int)
	q.DivMod(ai, bi, m)
	if m.Sign() != 0 && (m.Sign() < 0) != (bi.Sign() < 0) {
		q.Sub(q, big.NewInt(1))
	}
	return FromBigInt(q)
}

// asSigned reinterprets a field-reduced big.Int as a signed value when it
// lies in the upper half of the field — fr.Element.BigInt always returns a
// value in [0, modulus), so a concrete signed integer that was negated by
// the Neg gadget reads back as `modulus + value` unless corrected here.
func asSigned(v *big.Int) *big.Int {
	half := new(big.Int).Rsh(fr.Modulus(), 1)
	if v.Cmp(half) <= 0 {
		return v
	}
	return new(big.Int).Sub(v, fr.Modulus())
}
