package gadgets

import (
	"fmt"
	"math/big"

	"github.com/zinc-lang/zinc/vm/constraint"
)

// RangeError reports a value that does not fit its scalar type's bitlength,
// the gadget-level source of the VM's ValueOverflow runtime error (§4.7
// "Failure model").
type RangeError struct {
	Value  *big.Int
	Bits   int
	Signed bool
}

func (e *RangeError) Error() string {
	kind := "u"
	if e.Signed {
		kind = "i"
	}
	return fmt.Sprintf("gadgets: value %s out of range for %s%d", e.Value.String(), kind, e.Bits)
}

// RangeCheck enforces that s's value fits an n-bit integer (signed or
// unsigned), per §4.8 "Every Scalar obtained from a gadget already satisfies
// the range of its scalar type unless the type is Field": it both decomposes
// s into bits (so the constraint graph enforces the range regardless of
// runtime control flow) and returns a *RangeError immediately when the
// concrete witness value does not fit, the out-of-band signal the VM raises
// as ValueOverflow. Field-typed scalars never reach this gadget — the
// arithmetic gadgets skip range checking for them entirely.
func RangeCheck(cs *constraint.System, s Scalar, bits int, signed bool) error {
	v := new(big.Int)
	s.Value.BigInt(v)

	if signed {
		half := new(big.Int).Lsh(big.NewInt(1), uint(bits-1))
		lo := new(big.Int).Neg(half)
		hi := new(big.Int).Sub(half, big.NewInt(1))
		if v.Cmp(lo) < 0 || v.Cmp(hi) > 0 {
			return &RangeError{Value: v, Bits: bits, Signed: true}
		}
		biased := new(big.Int).Add(v, half)
		unsigned := Witness(cs, s.Type, FromBigInt(biased))
		ToBits(cs, unsigned, bits)
		return nil
	}

	max := new(big.Int).Lsh(big.NewInt(1), uint(bits))
	if v.Sign() < 0 || v.Cmp(max) >= 0 {
		return &RangeError{Value: v, Bits: bits}
	}
	ToBits(cs, s, bits)
	return nil
}

// ConditionalRangeCheck re-ranges a value only when cond holds, the
// "conditional_type_check" contract §4.8 requires of arithmetic gadgets run
// under a predicate so that a false branch's would-be-overflowing value
// never aborts the run (its Store is already a no-op; its range check must
// be equally inert). When unconstrained is true (the VM's diagnostic mode,
// §4.7 "Unconstrained flag"), range checking is skipped outright.
func ConditionalRangeCheck(cs *constraint.System, cond bool, s Scalar, bits int, signed, unconstrained bool) error {
	if unconstrained || !cond {
		return nil
	}
	return RangeCheck(cs, s, bits, signed)
}
