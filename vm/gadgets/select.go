package gadgets

import (
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"github.com/zinc-lang/zinc/vm/constraint"
)

// ConditionalSelect implements §4.8's `out = b + cond·(a − b)` relation: the
// linear-combination form of the VM's predicated Store (§4.7 "predicated
// writes select between old and new values via a conditional-select
// gadget"). cond must be a Boolean Scalar.
func ConditionalSelect(cs *constraint.System, cond, a, b Scalar) Scalar {
	var diff, delta, out fr.Element
	diff.Sub(&a.Value, &b.Value)
	delta.Mul(&cond.Value, &diff)
	out.Add(&b.Value, &delta)

	result := Witness(cs, a.Type, out)

	diffLC := a.LC().Sub(b.LC())
	resultMinusB := result.LC().Sub(b.LC())
	cs.Add(cond.LC(), diffLC, resultMinusB)
	return result
}
