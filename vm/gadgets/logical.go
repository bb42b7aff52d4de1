package gadgets

import (
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"github.com/zinc-lang/zinc/vm/constraint"
)

// And/Or/Xor/Not implement §4.6's boolean-only logical operators via the
// standard {0,1} arithmetic identities: and = a·b, or = a+b-a·b,
// xor = a+b-2a·b, not = 1-a. Operands are assumed already-Boolean Scalars
// (the type checker rejects anything else before these are ever reached).

func And(cs *constraint.System, a, b Scalar) Scalar {
	var v fr.Element
	v.Mul(&a.Value, &b.Value)
	out := Witness(cs, BoolType, v)
	cs.Add(a.LC(), b.LC(), out.LC())
	return out
}

func Or(cs *constraint.System, a, b Scalar) Scalar {
	var ab, v fr.Element
	ab.Mul(&a.Value, &b.Value)
	v.Add(&a.Value, &b.Value)
	v.Sub(&v, &ab)
	out := Witness(cs, BoolType, v)
	// a*b is its own product gate; a+b-a*b = out is a linear identity once
	// the product term below is named.
	prod := Witness(cs, BoolType, ab)
	cs.Add(a.LC(), b.LC(), prod.LC())
	sum := a.LC().Add(b.LC()).Sub(prod.LC())
	cs.Add(sum, constraint.Constant(fr.One()), out.LC())
	return out
}

func Xor(cs *constraint.System, a, b Scalar) Scalar {
	var ab, two, v fr.Element
	ab.Mul(&a.Value, &b.Value)
	two.SetUint64(2)
	v.Add(&a.Value, &b.Value)
	var twoAB fr.Element
	twoAB.Mul(&two, &ab)
	v.Sub(&v, &twoAB)
	out := Witness(cs, BoolType, v)
	prod := Witness(cs, BoolType, ab)
	cs.Add(a.LC(), b.LC(), prod.LC())
	sum := a.LC().Add(b.LC()).Sub(prod.LC().Scale(two))
	cs.Add(sum, constraint.Constant(fr.One()), out.LC())
	return out
}

func Not(cs *constraint.System, a Scalar) Scalar {
	var one, v fr.Element
	one.SetOne()
	v.Sub(&one, &a.Value)
	out := Witness(cs, BoolType, v)
	sum := constraint.Constant(one).Sub(a.LC())
	cs.Add(sum, constraint.Constant(one), out.LC())
	return out
}
