package vm

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"github.com/zinc-lang/zinc/lang/bytecode"
	"github.com/zinc-lang/zinc/vm/constraint"
	"github.com/zinc-lang/zinc/vm/gadgets"
)

func (m *Machine) execArith(inst bytecode.Instruction) error {
	pred := m.currentPredicate()
	condTrue := pred.IsTrue()

	if _, ok := inst.(bytecode.Neg); ok {
		v, err := m.popEval(1)
		if err != nil {
			return err
		}
		out, err := gadgets.Neg(m.cs, v[0], condTrue, m.unconstrained)
		if err != nil {
			return classifyGadgetError(err)
		}
		m.pushEval(out)
		return nil
	}

	vals, err := m.popEval(2)
	if err != nil {
		return err
	}
	a, b := vals[0], vals[1]

	var out gadgets.Scalar
	switch inst.(type) {
	case bytecode.Add:
		out, err = gadgets.Add(m.cs, a, b, condTrue, m.unconstrained)
	case bytecode.Sub:
		out, err = gadgets.Sub(m.cs, a, b, condTrue, m.unconstrained)
	case bytecode.Mul:
		out, err = gadgets.Mul(m.cs, a, b, condTrue, m.unconstrained)
	case bytecode.Div:
		out, err = gadgets.Div(m.cs, a, b, condTrue, m.unconstrained)
	case bytecode.Rem:
		out, err = gadgets.Rem(m.cs, a, b, condTrue, m.unconstrained)
	default:
		return newRunError(KindMalformedBytecode, fmt.Sprintf("not an arithmetic instruction: %T", inst))
	}
	if err != nil {
		return classifyGadgetError(err)
	}
	m.pushEval(out)
	return nil
}

func (m *Machine) execCompare(inst bytecode.Instruction) error {
	vals, err := m.popEval(2)
	if err != nil {
		return err
	}
	a, b := vals[0], vals[1]

	var out gadgets.Scalar
	switch inst.(type) {
	case bytecode.Eq:
		out = gadgets.Eq(m.cs, a, b)
	case bytecode.Ne:
		out = gadgets.Ne(m.cs, a, b)
	case bytecode.Lt:
		out = gadgets.Lt(m.cs, a, b)
	case bytecode.Le:
		out = gadgets.Le(m.cs, a, b)
	case bytecode.Gt:
		out = gadgets.Gt(m.cs, a, b)
	case bytecode.Ge:
		out = gadgets.Ge(m.cs, a, b)
	default:
		return newRunError(KindMalformedBytecode, fmt.Sprintf("not a comparison instruction: %T", inst))
	}
	m.pushEval(out)
	return nil
}

func (m *Machine) execLogical(inst bytecode.Instruction) error {
	if _, ok := inst.(bytecode.Not); ok {
		v, err := m.popEval(1)
		if err != nil {
			return err
		}
		m.pushEval(gadgets.Not(m.cs, v[0]))
		return nil
	}

	vals, err := m.popEval(2)
	if err != nil {
		return err
	}
	a, b := vals[0], vals[1]

	var out gadgets.Scalar
	switch inst.(type) {
	case bytecode.And:
		out = gadgets.And(m.cs, a, b)
	case bytecode.Or:
		out = gadgets.Or(m.cs, a, b)
	case bytecode.Xor:
		out = gadgets.Xor(m.cs, a, b)
	default:
		return newRunError(KindMalformedBytecode, fmt.Sprintf("not a logical instruction: %T", inst))
	}
	m.pushEval(out)
	return nil
}

func (m *Machine) execCast(ins bytecode.Cast) error {
	v, err := m.popEval(1)
	if err != nil {
		return err
	}
	val := v[0]
	t := ins.Target

	switch t.Tag {
	case bytecode.TagField:
		out := gadgets.Witness(m.cs, t, val.Value)
		m.cs.Add(val.LC(), constraint.Constant(fr.One()), out.LC())
		m.pushEval(out)
	case bytecode.TagInt:
		bits := gadgets.ToBits(m.cs, val, t.Bits)
		out := gadgets.FromBits(m.cs, bits, t)
		m.pushEval(out)
	case bytecode.TagBool:
		m.pushEval(gadgets.Ne(m.cs, val, gadgets.NewConstant(val.Type, fr.Element{})))
	default:
		return newRunError(KindMalformedBytecode, fmt.Sprintf("unsupported cast target %s", t))
	}
	return nil
}

func (m *Machine) execDbg(ins bytecode.Dbg) error {
	vals, err := m.popEval(len(ins.ArgTypes))
	if err != nil {
		return err
	}
	msg := ins.Format
	for _, v := range vals {
		iv := new(big.Int)
		v.Value.BigInt(iv)
		msg = strings.Replace(msg, "{}", iv.String(), 1)
	}
	fmt.Fprintln(m.stdout(), msg)
	return nil
}

// execCallLibrary dispatches §4.7's CallLibrary table into vm/gadgets.
// Multi-field intrinsics (hashing, signatures, arrays) need a byte/element
// packing convention the spec leaves unspecified at the instruction level;
// the conventions below are this port's own, documented where chosen.
// DESIGN.md's Open-question decisions note that no current lang/semantic
// predeclared-call syntax reaches this table, so no caller exists yet to
// constrain these conventions further.
func (m *Machine) execCallLibrary(ins bytecode.CallLibrary) error {
	vals, err := m.popEval(ins.InputSize)
	if err != nil {
		return err
	}

	switch ins.ID {
	case bytecode.LibSHA256:
		m.pushEval(gadgets.Sha256(m.cs, vals))

	case bytecode.LibPedersenHash:
		m.pushEval(gadgets.PedersenHash(m.cs, vals))

	case bytecode.LibSchnorrVerify:
		// Convention: pubkey packed as one field element (32 bytes),
		// signature as two (r, s), the remainder is the signed message.
		if len(vals) < 3 {
			return newRunError(KindMalformedBytecode, "schnorr_verify requires at least 3 operands")
		}
		pubBytes := vals[0].Value.Bytes()
		rBytes := vals[1].Value.Bytes()
		sBytes := vals[2].Value.Bytes()
		sig := append(append([]byte{}, rBytes[:]...), sBytes[:]...)
		out, err := gadgets.SchnorrVerify(m.cs, pubBytes[:], sig, vals[3:])
		if err != nil {
			return classifyGadgetError(err)
		}
		m.pushEval(out)

	case bytecode.LibToBits:
		m.pushEval(gadgets.ToBits(m.cs, vals[0], ins.OutputSize)...)

	case bytecode.LibFromBitsUnsigned:
		t := bytecode.Type{Tag: bytecode.TagInt, Signed: false, Bits: len(vals)}
		m.pushEval(gadgets.FromBits(m.cs, vals, t))

	case bytecode.LibFromBitsSigned:
		t := bytecode.Type{Tag: bytecode.TagInt, Signed: true, Bits: len(vals)}
		m.pushEval(gadgets.FromBits(m.cs, vals, t))

	case bytecode.LibFromBitsField:
		m.pushEval(gadgets.FromBits(m.cs, vals, gadgets.FieldType))

	case bytecode.LibFieldInverse:
		m.pushEval(gadgets.FieldInverse(m.cs, vals[0]))

	case bytecode.LibArrayReverse:
		m.pushEval(gadgets.ArrayReverse(vals)...)

	case bytecode.LibArrayTruncate:
		m.pushEval(gadgets.ArrayTruncate(vals, ins.OutputSize)...)

	case bytecode.LibArrayPad:
		if len(vals) == 0 {
			return newRunError(KindMalformedBytecode, "array::pad requires a fill value")
		}
		fill := vals[len(vals)-1]
		arr := vals[:len(vals)-1]
		m.pushEval(gadgets.ArrayPad(arr, ins.OutputSize, fill)...)

	case bytecode.LibMTreeMapGet:
		m.ensureMTree()
		value, ok := m.mtree.Get(vals[0].Value)
		if !ok {
			value = gadgets.NewConstant(gadgets.FieldType, fr.Element{})
		}
		if ins.OutputSize >= 2 {
			m.pushEval(value, gadgets.NewConstant(gadgets.BoolType, gadgets.FromBool(ok)))
		} else {
			m.pushEval(value)
		}

	case bytecode.LibMTreeMapContains:
		m.ensureMTree()
		m.pushEval(gadgets.NewConstant(gadgets.BoolType, gadgets.FromBool(m.mtree.Contains(vals[0].Value))))

	case bytecode.LibMTreeMapInsert:
		m.ensureMTree()
		m.mtree.Insert(vals[0].Value, vals[1])

	case bytecode.LibMTreeMapRemove:
		m.ensureMTree()
		removed := m.mtree.Remove(vals[0].Value)
		if ins.OutputSize >= 1 {
			m.pushEval(gadgets.NewConstant(gadgets.BoolType, gadgets.FromBool(removed)))
		}

	case bytecode.LibContractTransfer:
		if len(vals) < 2 {
			return newRunError(KindMalformedBytecode, "contract::transfer requires (to, amount)")
		}
		toAddr := new(big.Int)
		vals[0].Value.BigInt(toAddr)
		amount := new(big.Int)
		vals[1].Value.BigInt(amount)
		m.transfers = append(m.transfers, gadgets.Transfer{ToAddr: toAddr, Amount: amount})

	default:
		return newRunError(KindMalformedBytecode, fmt.Sprintf("unknown library id %d", ins.ID))
	}
	return nil
}

func (m *Machine) ensureMTree() {
	if m.mtree == nil {
		m.mtree = gadgets.NewMTreeMap()
	}
}
