package vm

import (
	"context"
	"fmt"
	"io"
	"math/big"
	"os"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"github.com/zinc-lang/zinc/lang/bytecode"
	"github.com/zinc-lang/zinc/vm/constraint"
	"github.com/zinc-lang/zinc/vm/gadgets"
	"github.com/zinc-lang/zinc/vm/storage"
)

// Machine is the fetch-decode-execute loop that runs one bytecode.Program
// while appending to a constraint.System. Grounded on the fetch-decode loop
// shape of the teacher's lang/machine package (machine.go/thread.go/frame.go),
// adapted from a byte-opcode plus LEB128-argument stream to a direct
// type-switch over bytecode.Instruction — Zinc's instruction set already
// gives every variant its own Go struct, so there is no argument stream left
// to decode. Unlike the teacher's real control-flow jumps, Zinc's
// If/Else/EndIf never move the instruction pointer off the sequential path
// (§4.7's predicated execution runs every instruction in both branches); only
// LoopEnd ever jumps backward.
type Machine struct {
	// MaxSteps bounds total instructions executed before the run is
	// cancelled, mirroring the teacher's lang/machine.Thread.MaxSteps. Zero
	// means no limit.
	MaxSteps int

	// Stdout is where Dbg instructions write their formatted output. Defaults
	// to os.Stdout.
	Stdout io.Writer

	cs      *constraint.System
	storage *storage.Storage
	mtree   *gadgets.MTreeMap

	eval  []gadgets.Scalar
	data  []dataFrame
	calls []callFrame
	cond  []condFrame
	loops []loopFrame

	unconstrained bool
	transfers     []gadgets.Transfer

	steps uint64
}

type dataFrame struct {
	slots []gadgets.Scalar
}

type callFrame struct {
	returnPC int
}

type condFrame struct {
	parent gadgets.Scalar
	cond   gadgets.Scalar
}

type loopFrame struct {
	remaining int
}

// NewMachine builds a Machine sharing cs with any other gadget-level setup
// the host already performed (e.g. storage.Init's root allocation).
func NewMachine(cs *constraint.System, st *storage.Storage) *Machine {
	return &Machine{
		cs:      cs,
		storage: st,
		data:    []dataFrame{{}},
	}
}

func (m *Machine) stdout() io.Writer {
	if m.Stdout != nil {
		return m.Stdout
	}
	return os.Stdout
}

// currentPredicate returns the Boolean Scalar the run is currently
// conditioned on — the AND of every enclosing If/Else's condition — or a
// constant true when no If is active.
func (m *Machine) currentPredicate() gadgets.Scalar {
	if len(m.cond) == 0 {
		return gadgets.NewConstant(gadgets.BoolType, gadgets.FromBool(true))
	}
	top := m.cond[len(m.cond)-1]
	return gadgets.And(m.cs, top.parent, top.cond)
}

func (m *Machine) pushEval(vs ...gadgets.Scalar) {
	m.eval = append(m.eval, vs...)
}

func (m *Machine) popEval(n int) ([]gadgets.Scalar, error) {
	if len(m.eval) < n {
		return nil, newRunError(KindMalformedBytecode, "evaluation stack underflow")
	}
	out := make([]gadgets.Scalar, n)
	copy(out, m.eval[len(m.eval)-n:])
	m.eval = m.eval[:len(m.eval)-n]
	return out, nil
}

func (m *Machine) frame() *dataFrame { return &m.data[len(m.data)-1] }

func (f *dataFrame) get(addr, size int) []gadgets.Scalar {
	out := make([]gadgets.Scalar, size)
	for i := 0; i < size; i++ {
		if addr+i < len(f.slots) {
			out[i] = f.slots[addr+i]
		} else {
			out[i] = gadgets.NewConstant(gadgets.FieldType, fr.Element{})
		}
	}
	return out
}

func (f *dataFrame) set(addr int, values []gadgets.Scalar) {
	need := addr + len(values)
	if need > len(f.slots) {
		grown := make([]gadgets.Scalar, need)
		copy(grown, f.slots)
		f.slots = grown
	}
	copy(f.slots[addr:], values)
}

// Run executes prog starting at entryAddress until an Exit instruction
// returns its output Scalars, or a RunError aborts the run (§4.7 "Failure
// model" — the partial constraint system is discarded by the caller, Run
// itself performs no rollback of cs since Add is append-only and harmless to
// leave behind on a discarded run).
func (m *Machine) Run(ctx context.Context, prog *bytecode.Program, entryAddress int) ([]gadgets.Scalar, error) {
	pc := entryAddress
	code := prog.Instructions

	for {
		select {
		case <-ctx.Done():
			return nil, newRunError(KindMalformedBytecode, fmt.Sprintf("run cancelled: %v", ctx.Err()))
		default:
		}

		m.steps++
		if m.MaxSteps > 0 && int(m.steps) > m.MaxSteps {
			return nil, newRunError(KindMalformedBytecode, "step limit exceeded")
		}
		if pc < 0 || pc >= len(code) {
			return nil, newRunError(KindMalformedBytecode, fmt.Sprintf("instruction pointer %d out of bounds", pc))
		}

		inst := code[pc]
		result, nextPC, err := m.step(inst, pc)
		if err != nil {
			return nil, err
		}
		if result != nil {
			return result, nil
		}
		pc = nextPC
	}
}

// step executes one instruction, returning (non-nil result, _, nil) only
// when the instruction was an Exit, and otherwise the instruction pointer
// to resume at.
func (m *Machine) step(inst bytecode.Instruction, pc int) ([]gadgets.Scalar, int, error) {
	switch ins := inst.(type) {
	case bytecode.Push:
		m.pushEval(m.pushConstant(ins))
		return nil, pc + 1, nil

	case bytecode.Load:
		m.pushEval(m.frame().get(ins.Address, ins.Size)...)
		return nil, pc + 1, nil

	case bytecode.Store:
		newVals, err := m.popEval(ins.Size)
		if err != nil {
			return nil, 0, err
		}
		old := m.frame().get(ins.Address, ins.Size)
		cond := m.currentPredicate()
		merged := make([]gadgets.Scalar, ins.Size)
		for i := range merged {
			merged[i] = gadgets.ConditionalSelect(m.cs, cond, newVals[i], old[i])
		}
		m.frame().set(ins.Address, merged)
		return nil, pc + 1, nil

	case bytecode.LoadByIndex:
		idx, err := m.popEval(1)
		if err != nil {
			return nil, 0, err
		}
		offset, err := scalarToIndex(idx[0])
		if err != nil {
			return nil, 0, err
		}
		base := offset * ins.ElemSize
		if base < 0 || base+ins.ElemSize > ins.TotalSize {
			return nil, 0, newRunError(KindIndexOutOfBounds, fmt.Sprintf("index %d out of bounds for %d elements", offset, ins.TotalSize/ins.ElemSize))
		}
		m.pushEval(m.frame().get(ins.Address+base, ins.ElemSize)...)
		return nil, pc + 1, nil

	case bytecode.StoreByIndex:
		vals, err := m.popEval(ins.ElemSize)
		if err != nil {
			return nil, 0, err
		}
		idx, err := m.popEval(1)
		if err != nil {
			return nil, 0, err
		}
		offset, err := scalarToIndex(idx[0])
		if err != nil {
			return nil, 0, err
		}
		base := offset * ins.ElemSize
		if base < 0 || base+ins.ElemSize > ins.TotalSize {
			return nil, 0, newRunError(KindIndexOutOfBounds, fmt.Sprintf("index %d out of bounds for %d elements", offset, ins.TotalSize/ins.ElemSize))
		}
		old := m.frame().get(ins.Address+base, ins.ElemSize)
		cond := m.currentPredicate()
		merged := make([]gadgets.Scalar, ins.ElemSize)
		for i := range merged {
			merged[i] = gadgets.ConditionalSelect(m.cs, cond, vals[i], old[i])
		}
		m.frame().set(ins.Address+base, merged)
		return nil, pc + 1, nil

	case bytecode.Add, bytecode.Sub, bytecode.Mul, bytecode.Div, bytecode.Rem, bytecode.Neg:
		return nil, pc + 1, m.execArith(inst)

	case bytecode.Eq, bytecode.Ne, bytecode.Lt, bytecode.Le, bytecode.Gt, bytecode.Ge:
		return nil, pc + 1, m.execCompare(inst)

	case bytecode.And, bytecode.Or, bytecode.Xor, bytecode.Not:
		return nil, pc + 1, m.execLogical(inst)

	case bytecode.Pop:
		if _, err := m.popEval(1); err != nil {
			return nil, 0, err
		}
		return nil, pc + 1, nil

	case bytecode.Cast:
		if err := m.execCast(ins); err != nil {
			return nil, 0, err
		}
		return nil, pc + 1, nil

	case bytecode.If:
		c, err := m.popEval(1)
		if err != nil {
			return nil, 0, err
		}
		parent := m.currentPredicate()
		m.cond = append(m.cond, condFrame{parent: parent, cond: c[0]})
		return nil, pc + 1, nil

	case bytecode.Else:
		if len(m.cond) == 0 {
			return nil, 0, newRunError(KindMalformedBytecode, "else without matching if")
		}
		top := m.cond[len(m.cond)-1]
		m.cond[len(m.cond)-1] = condFrame{parent: top.parent, cond: gadgets.Not(m.cs, top.cond)}
		return nil, pc + 1, nil

	case bytecode.EndIf:
		if len(m.cond) == 0 {
			return nil, 0, newRunError(KindMalformedBytecode, "endif without matching if")
		}
		m.cond = m.cond[:len(m.cond)-1]
		return nil, pc + 1, nil

	case bytecode.LoopBegin:
		m.loops = append(m.loops, loopFrame{remaining: ins.Iterations - 1})
		return nil, pc + 1, nil

	case bytecode.LoopEnd:
		if len(m.loops) == 0 {
			return nil, 0, newRunError(KindMalformedBytecode, "loopend without matching loopbegin")
		}
		top := &m.loops[len(m.loops)-1]
		if top.remaining > 0 {
			top.remaining--
			return nil, ins.Target, nil
		}
		m.loops = m.loops[:len(m.loops)-1]
		return nil, pc + 1, nil

	case *bytecode.Call:
		if ins.Address == nil {
			return nil, 0, newRunError(KindMalformedBytecode, "call with unresolved address")
		}
		args, err := m.popEval(ins.InputSize)
		if err != nil {
			return nil, 0, err
		}
		m.calls = append(m.calls, callFrame{returnPC: pc + 1})
		m.data = append(m.data, dataFrame{slots: args})
		return nil, *ins.Address, nil

	case bytecode.Return:
		vals, err := m.popEval(ins.OutputSize)
		if err != nil {
			return nil, 0, err
		}
		if len(m.calls) == 0 || len(m.data) <= 1 {
			return nil, 0, newRunError(KindMalformedBytecode, "return outside a call")
		}
		ret := m.calls[len(m.calls)-1].returnPC
		m.calls = m.calls[:len(m.calls)-1]
		m.data = m.data[:len(m.data)-1]
		m.pushEval(vals...)
		return nil, ret, nil

	case bytecode.CallLibrary:
		if err := m.execCallLibrary(ins); err != nil {
			return nil, 0, err
		}
		return nil, pc + 1, nil

	case bytecode.StorageInit:
		if m.storage == nil {
			return nil, 0, newRunError(KindStorageNotInitialized, "StorageInit reached with no backing storage")
		}
		return nil, pc + 1, nil

	case bytecode.StorageLoad:
		if m.storage == nil {
			return nil, 0, newRunError(KindStorageNotInitialized, "storage read with no backing storage")
		}
		vals, err := m.storage.Load(m.cs, ins.Index, nil)
		if err != nil {
			return nil, 0, classifyGadgetError(err)
		}
		m.pushEval(vals...)
		return nil, pc + 1, nil

	case bytecode.StorageStore:
		if m.storage == nil {
			return nil, 0, newRunError(KindStorageNotInitialized, "storage write with no backing storage")
		}
		vals, err := m.popEval(ins.Size)
		if err != nil {
			return nil, 0, err
		}
		if err := m.storage.Store(m.cs, ins.Index, vals); err != nil {
			return nil, 0, classifyGadgetError(err)
		}
		return nil, pc + 1, nil

	case bytecode.SetUnconstrained:
		m.unconstrained = true
		return nil, pc + 1, nil

	case bytecode.UnsetUnconstrained:
		m.unconstrained = false
		return nil, pc + 1, nil

	case bytecode.Dbg:
		if err := m.execDbg(ins); err != nil {
			return nil, 0, err
		}
		return nil, pc + 1, nil

	case bytecode.Assert:
		c, err := m.popEval(1)
		if err != nil {
			return nil, 0, err
		}
		pred := m.currentPredicate()
		one := gadgets.NewConstant(gadgets.BoolType, gadgets.FromBool(true))
		notC := gadgets.Not(m.cs, c[0])
		violated := gadgets.And(m.cs, pred, notC)
		m.cs.Add(violated.LC(), one.LC(), constraint.Constant(fr.Element{}))
		if pred.IsTrue() && !c[0].IsTrue() {
			return nil, 0, newRunError(KindAssertionError, ins.Message)
		}
		return nil, pc + 1, nil

	case bytecode.Exit:
		vals, err := m.popEval(ins.OutputSize)
		if err != nil {
			return nil, 0, err
		}
		return vals, pc, nil

	default:
		return nil, 0, newRunError(KindMalformedBytecode, fmt.Sprintf("unhandled instruction %T", inst))
	}
}

func (m *Machine) pushConstant(p bytecode.Push) gadgets.Scalar {
	t := p.Type
	switch t.Tag {
	case bytecode.TagBool:
		return gadgets.NewConstant(t, gadgets.FromBool(p.Value))
	case bytecode.TagInt, bytecode.TagField:
		v := p.Int
		if v == nil {
			v = big.NewInt(0)
		}
		return gadgets.NewConstant(t, gadgets.FromBigInt(v))
	default:
		return gadgets.NewConstant(t, fr.Element{})
	}
}

func scalarToIndex(s gadgets.Scalar) (int, error) {
	v := new(big.Int)
	s.Value.BigInt(v)
	if !v.IsInt64() {
		return 0, newRunError(KindIndexOutOfBounds, "index does not fit a machine int")
	}
	return int(v.Int64()), nil
}
