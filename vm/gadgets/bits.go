package gadgets

import (
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"github.com/zinc-lang/zinc/lang/bytecode"
	"github.com/zinc-lang/zinc/vm/constraint"
)

// ToBits decomposes in into n boolean Scalars, least-significant bit first
// (§4.7 "bit-decomposition `to_bits`"). Each bit is constrained boolean
// (b*b=b) and their weighted sum is constrained equal to in's value — the
// same "decompose, constrain each bit, constrain the weighted sum" shape
// range.go's RangeCheck reuses for plain overflow checking.
func ToBits(cs *constraint.System, in Scalar, n int) []Scalar {
	bits := make([]Scalar, n)
	val := new(big.Int)
	in.Value.BigInt(val)

	sum := constraint.LinearCombination{}
	for i := 0; i < n; i++ {
		bit := val.Bit(i)
		var bv fr.Element
		if bit == 1 {
			bv.SetOne()
		}
		v := cs.Allocate(bv)
		bits[i] = Scalar{Value: bv, Var: v, Type: BoolType}

		// b*b = b: the standard boolean constraint.
		cs.Add(constraint.Linear(v), constraint.Linear(v), constraint.Linear(v))

		var coeff fr.Element
		coeff.SetBigInt(new(big.Int).Lsh(big.NewInt(1), uint(i)))
		sum = append(sum, constraint.Term{Coefficient: coeff, Variable: v})
	}

	one := constraint.Constant(fr.One())
	cs.Add(sum, one, in.LC())
	return bits
}

// FromBits composes a slice of boolean Scalars (least-significant first)
// back into a single Scalar of type t, the inverse of ToBits (§4.7
// `from_bits_unsigned|signed|field`). The weighted-sum constraint is the
// same shape ToBits emits, run in reverse: here the composed value is fresh
// and the bits are already-constrained inputs.
func FromBits(cs *constraint.System, bits []Scalar, t bytecode.Type) Scalar {
	val := new(big.Int)
	sum := constraint.LinearCombination{}
	for i, b := range bits {
		bv := new(big.Int)
		b.Value.BigInt(bv)
		if bv.Sign() != 0 {
			val.SetBit(val, i, 1)
		}
		var coeff fr.Element
		coeff.SetBigInt(new(big.Int).Lsh(big.NewInt(1), uint(i)))
		sum = append(sum, constraint.Term{Coefficient: coeff, Variable: b.Var})
	}

	if t.Tag == bytecode.TagInt && t.Signed {
		val = signedFromTwosComplement(val, len(bits))
	}
	fe := FromBigInt(val)
	out := Witness(cs, t, fe)
	one := constraint.Constant(fr.One())
	cs.Add(sum, one, out.LC())
	return out
}

func signedFromTwosComplement(v *big.Int, bits int) *big.Int {
	half := new(big.Int).Lsh(big.NewInt(1), uint(bits-1))
	if v.Cmp(half) < 0 {
		return v
	}
	full := new(big.Int).Lsh(big.NewInt(1), uint(bits))
	return new(big.Int).Sub(v, full)
}
