package gadgets

import (
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"github.com/zinc-lang/zinc/vm/constraint"
)

// Eq is the standard "is-zero" gadget: allocate diff's inverse (0 when diff
// is itself 0), then enforce `diff*inv = 1-eq` and `diff*eq = 0` — together
// these pin eq to 1 when diff is 0 and to 0 otherwise, for any diff.
func Eq(cs *constraint.System, a, b Scalar) Scalar {
	var diff, inv fr.Element
	diff.Sub(&a.Value, &b.Value)
	if !diff.IsZero() {
		inv.Inverse(&diff)
	}
	one := fr.One()
	var eqVal fr.Element
	eqVal.Mul(&diff, &inv)
	eqVal.Sub(&one, &eqVal)

	out := Witness(cs, BoolType, eqVal)
	invVar := Witness(cs, FieldType, inv)
	diffLC := a.LC().Sub(b.LC())

	oneMinusOut := constraint.Constant(fr.One()).Sub(out.LC())
	cs.Add(diffLC, invVar.LC(), oneMinusOut)

	var zero fr.Element
	cs.Add(diffLC, out.LC(), constraint.Constant(zero))
	return out
}

func Ne(cs *constraint.System, a, b Scalar) Scalar {
	return Not(cs, Eq(cs, a, b))
}

// Lt/Le/Gt/Ge are built on one shared shifted-bit-decomposition gadget: for
// operands known to fit `bits` bits (already range-checked by construction),
// `shifted = a - b + 2^bits` lies in [0, 2^(bits+1)) and its top bit is 1
// exactly when a >= b. Decomposing it constrains that relationship the same
// way ToBits constrains a plain range check.
func compareGe(cs *constraint.System, a, b Scalar, bits int) Scalar {
	var diff fr.Element
	diff.Sub(&a.Value, &b.Value)
	shiftMag := new(big.Int).Lsh(big.NewInt(1), uint(bits))
	var shift fr.Element
	shift.SetBigInt(shiftMag)
	var shiftedVal fr.Element
	shiftedVal.Add(&diff, &shift)

	shifted := Witness(cs, FieldType, shiftedVal)
	cs.Add(a.LC().Sub(b.LC()).Add(constraint.Constant(shift)), constraint.Constant(fr.One()), shifted.LC())

	decomposed := ToBits(cs, shifted, bits+1)
	return decomposed[bits]
}

func Ge(cs *constraint.System, a, b Scalar) Scalar {
	bits := a.Type.Bits
	if bits == 0 {
		bits = 248
	}
	return compareGe(cs, a, b, bits)
}

func Lt(cs *constraint.System, a, b Scalar) Scalar {
	return Not(cs, Ge(cs, a, b))
}

func Le(cs *constraint.System, a, b Scalar) Scalar {
	return Ge(cs, b, a)
}

func Gt(cs *constraint.System, a, b Scalar) Scalar {
	return Lt(cs, b, a)
}
