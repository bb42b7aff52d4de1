package compiler

import (
	"fmt"
	"math/big"

	"github.com/zinc-lang/zinc/lang/bytecode"
	"github.com/zinc-lang/zinc/lang/ir"
	"github.com/zinc-lang/zinc/lang/types"
)

// fcomp is the per-function emission state, the generalized counterpart of
// the teacher's fcomp: instead of building a block graph it walks an
// ir.Function's already-linear body once, appending instructions straight
// into the shared pcomp.instructions vector. scratch hands out data-stack
// addresses past the function's own locals for values that need a home
// across a predicated branch (Conditional/Match results, §4.8's
// conditional-select gadget realized here as a guarded Store/Store/Load).
type fcomp struct {
	pc      *pcomp
	scratch int
}

func (fc *fcomp) allocScratch(size int) int {
	addr := fc.scratch
	fc.scratch += size
	return addr
}

// emitFunctionBody lowers one ir.Function's statements into the shared
// instruction vector. isEntry distinguishes a directly invocable entry point
// (the circuit's main, a contract method, or a #[test] function — each
// reachable from the VM host API without a Call) from an ordinary helper
// function reachable only via Call/Return: an entry point halts the run with
// Exit, a helper returns control to its caller with Return (§4.7).
func (pc *pcomp) emitFunctionBody(fn *ir.Function, isEntry bool) {
	fc := &fcomp{pc: pc, scratch: fn.FrameSize}
	for _, s := range fn.Body {
		fc.emitStmt(s)
	}
	if fn.Trailing != nil {
		fc.emitExpr(fn.Trailing)
	}
	outputSize := ir.Size(fn.ReturnType)
	if isEntry {
		pc.emit(bytecode.Exit{OutputSize: outputSize})
	} else {
		pc.emit(bytecode.Return{OutputSize: outputSize})
	}
}

func (fc *fcomp) emitStmt(stmt ir.Stmt) {
	switch s := stmt.(type) {
	case *ir.ExprStmt:
		fc.emitExpr(s.Expr)
		fc.discard(ir.Size(s.Expr.Type))
	case *ir.Declaration:
		fc.emitExpr(s.Expr)
		// lowerLet only ever produces one binding today (no tuple-
		// destructuring `let` yet); frame.alloc is sequential, so the
		// declared value's whole Size occupies one contiguous run starting
		// at Addresses[0].
		fc.pc.emit(bytecode.Store{Address: s.Addresses[0], Size: ir.Size(s.Type)})
	case *ir.Loop:
		fc.emitLoop(s)
	case *ir.Function, *ir.Contract, *ir.Implementation, *ir.TypeStmt:
		// Never produced inside a block body by lang/ir's builder; nothing
		// to emit if one slipped through.
	default:
		panic(fmt.Sprintf("compiler: unhandled statement %T", stmt))
	}
}

// discard drops n scalars the preceding expression pushed but nothing
// binds, one Pop at a time — the teacher's own POP is likewise a single
// argless stack op (lang/compiler/opcode.go).
func (fc *fcomp) discard(n int) {
	for i := 0; i < n; i++ {
		fc.pc.emit(bytecode.Pop{})
	}
}

func (fc *fcomp) emitExpr(e *ir.Expr) {
	for _, el := range e.Elements {
		switch v := el.(type) {
		case ir.Push:
			fc.emitOperand(v.Operand)
		case ir.Apply:
			fc.emitApply(v)
		default:
			panic(fmt.Sprintf("compiler: unhandled IR element %T", el))
		}
	}
}

func (fc *fcomp) emitApply(a ir.Apply) {
	switch a.Op {
	case ir.OpAdd:
		fc.pc.emit(bytecode.Add{})
	case ir.OpSub:
		fc.pc.emit(bytecode.Sub{})
	case ir.OpMul:
		fc.pc.emit(bytecode.Mul{})
	case ir.OpDiv:
		fc.pc.emit(bytecode.Div{})
	case ir.OpRem:
		fc.pc.emit(bytecode.Rem{})
	case ir.OpNeg:
		fc.pc.emit(bytecode.Neg{})
	case ir.OpEq:
		fc.pc.emit(bytecode.Eq{})
	case ir.OpNe:
		fc.pc.emit(bytecode.Ne{})
	case ir.OpLt:
		fc.pc.emit(bytecode.Lt{})
	case ir.OpLe:
		fc.pc.emit(bytecode.Le{})
	case ir.OpGt:
		fc.pc.emit(bytecode.Gt{})
	case ir.OpGe:
		fc.pc.emit(bytecode.Ge{})
	case ir.OpAnd:
		fc.pc.emit(bytecode.And{})
	case ir.OpOr:
		fc.pc.emit(bytecode.Or{})
	case ir.OpXor:
		fc.pc.emit(bytecode.Xor{})
	case ir.OpNot:
		fc.pc.emit(bytecode.Not{})
	case ir.OpCast:
		fc.pc.emit(bytecode.Cast{Target: bytecode.FromSemantic(a.Type)})
	default:
		panic(fmt.Sprintf("compiler: unhandled operator %s", a.Op))
	}
}

func (fc *fcomp) emitOperand(op ir.Operand) {
	switch v := op.(type) {
	case ir.Constant:
		fc.emitConstant(v.Type, v.Int, v.Bool)
	case ir.Place:
		fc.pc.emit(bytecode.Load{Address: v.Address, Size: v.Size})
	case ir.StoragePlace:
		fc.pc.emit(bytecode.StorageLoad{Index: v.FieldIndex, Size: v.Size})
	case ir.IndexedLoad:
		fc.emitExpr(v.Index)
		fc.pc.emit(bytecode.LoadByIndex{Address: v.Base.Address, ElemSize: v.ElemSize, TotalSize: v.TotalSize})
	case *ir.Call:
		fc.emitCall(v)
	case *ir.Assign:
		fc.emitAssign(v)
	case *ir.Block:
		fc.emitBlockBody(v)
	case *ir.Conditional:
		fc.emitConditional(v)
	case *ir.Match:
		fc.emitMatch(v)
	case *ir.Array:
		fc.emitArray(v)
	case *ir.Tuple:
		for _, el := range v.Elements {
			fc.emitExpr(el)
		}
	case *ir.Structure:
		for _, f := range v.Fields {
			fc.emitExpr(f.Value)
		}
	default:
		panic(fmt.Sprintf("compiler: unhandled operand %T", op))
	}
}

func (fc *fcomp) emitConstant(t types.Type, i *big.Int, b bool) {
	bt := bytecode.FromSemantic(t)
	if bt.Tag == bytecode.TagBool {
		fc.pc.emit(bytecode.Push{Type: bt, Value: b})
		return
	}
	if i == nil {
		i = big.NewInt(0)
	}
	fc.pc.emit(bytecode.Push{Type: bt, Int: i})
}

func (fc *fcomp) emitAssign(a *ir.Assign) {
	if a.IsStorage {
		fc.emitExpr(a.Value)
		fc.pc.emit(bytecode.StorageStore{Index: a.StorageIndex, Size: a.StorageSize})
		return
	}
	if a.Index != nil {
		// STOREIDX's stack picture is `idx v... -`: the index sits below
		// the value(s) being written (lang/bytecode/opcode.go).
		fc.emitExpr(a.Index)
		fc.emitExpr(a.Value)
		fc.pc.emit(bytecode.StoreByIndex{Address: a.Target.Address, ElemSize: a.ElemSize, TotalSize: a.Target.Size})
		return
	}
	fc.emitExpr(a.Value)
	fc.pc.emit(bytecode.Store{Address: a.Target.Address, Size: a.Target.Size})
}

func (fc *fcomp) emitBlockBody(b *ir.Block) {
	for _, s := range b.Stmts {
		fc.emitStmt(s)
	}
	if b.Trailing != nil {
		fc.emitExpr(b.Trailing)
	}
}

// emitConditional realizes §4.8's conditional-select gadget at the
// instruction level: both arms run under predication (If/Else/EndIf), each
// storing its value into the same scratch slot — a Store under a false
// predicate is a no-op on observable state (§4.7), so whichever arm's
// condition was true is the one whose write survives. The merged value is
// recovered with a single Load once the predicate is popped.
func (fc *fcomp) emitConditional(c *ir.Conditional) {
	size := ir.Size(c.Type)
	var scratch int
	if size > 0 {
		scratch = fc.allocScratch(size)
	}

	fc.emitExpr(c.Condition)
	fc.pc.emit(bytecode.If{})
	fc.emitBlockBody(c.Main)
	if size > 0 {
		fc.pc.emit(bytecode.Store{Address: scratch, Size: size})
	}
	fc.pc.emit(bytecode.Else{})
	if c.Else != nil {
		fc.emitBlockBody(c.Else)
		if size > 0 {
			fc.pc.emit(bytecode.Store{Address: scratch, Size: size})
		}
	}
	fc.pc.emit(bytecode.EndIf{})

	if size > 0 {
		fc.pc.emit(bytecode.Load{Address: scratch, Size: size})
	}
}

// emitMatch lowers a match into a cascade of nested predicated blocks, one
// per arm: a branch's Eq test guards its own If, and the next arm's test
// (if any) is nested inside the matching Else, so only the first arm whose
// pattern equals the scrutinee ever writes the merged result (same
// conditional-select idiom as emitConditional, applied arm by arm).
func (fc *fcomp) emitMatch(m *ir.Match) {
	size := ir.Size(m.Type)
	var scratch int
	if size > 0 {
		scratch = fc.allocScratch(size)
	}

	scrSize := ir.Size(m.Scrutinee.Type)
	scrAddr := fc.allocScratch(scrSize)
	fc.emitExpr(m.Scrutinee)
	fc.pc.emit(bytecode.Store{Address: scrAddr, Size: scrSize})

	nested := 0
	for _, br := range m.Branches {
		if br.Pattern == nil {
			fc.emitExpr(br.Body)
			if size > 0 {
				fc.pc.emit(bytecode.Store{Address: scratch, Size: size})
			}
			continue
		}
		fc.pc.emit(bytecode.Load{Address: scrAddr, Size: scrSize})
		fc.emitConstant(br.Pattern.Type, br.Pattern.Int, br.Pattern.Bool)
		fc.pc.emit(bytecode.Eq{})
		fc.pc.emit(bytecode.If{})
		fc.emitExpr(br.Body)
		if size > 0 {
			fc.pc.emit(bytecode.Store{Address: scratch, Size: size})
		}
		fc.pc.emit(bytecode.Else{})
		nested++
	}
	for i := 0; i < nested; i++ {
		fc.pc.emit(bytecode.EndIf{})
	}

	if size > 0 {
		fc.pc.emit(bytecode.Load{Address: scratch, Size: size})
	}
}

// emitArray lowers an array literal or `[value; count]` repeat form by
// concatenating each element's scalars in order, exactly the flat layout
// lang/ir.Size gives an ArrayType. A repeat form has no duplicate-on-stack
// primitive to exploit, so its value expression is simply emitted Count
// times; since Repeat is always a pure, side-effect-free sub-expression by
// construction (a literal or a previously bound place), re-evaluating it is
// observably identical to copying it.
func (fc *fcomp) emitArray(a *ir.Array) {
	if a.Repeat != nil {
		for i := 0; i < a.Count; i++ {
			fc.emitExpr(a.Repeat)
		}
		return
	}
	for _, el := range a.Elements {
		fc.emitExpr(el)
	}
}

func (fc *fcomp) emitCall(c *ir.Call) {
	switch c.Intrinsic {
	case "":
		inputSize := 0
		for _, a := range c.Args {
			fc.emitExpr(a)
			inputSize += ir.Size(a.Type)
		}
		fc.pc.callTo(c.Callee, inputSize)
	case "require":
		for _, a := range c.Args {
			fc.emitExpr(a)
		}
		fc.pc.emit(bytecode.Assert{})
	case "dbg":
		argTypes := make([]bytecode.Type, 0, len(c.Args))
		for _, a := range c.Args {
			fc.emitExpr(a)
			argTypes = append(argTypes, bytecode.FromSemantic(a.Type))
		}
		fc.pc.emit(bytecode.Dbg{Format: c.Format, ArgTypes: argTypes})
	default:
		// The §4.7 CallLibrary intrinsic table (sha256, pedersen_hash,
		// schnorr_verify, to_bits, ...) has no predeclared call syntax in
		// lang/semantic yet, so the builder never produces a Call with any
		// other Intrinsic name; reaching here would be a compiler bug.
		panic(fmt.Sprintf("compiler: unknown intrinsic %q", c.Intrinsic))
	}
}

// emitLoop unrolls nothing: the bounded range compiles to a LoopBegin/
// LoopEnd pair around the body, with the loop index threaded through an
// ordinary Store/Load pair the compiler emits itself (§4.7 gives LoopBegin/
// LoopEnd no stack effect of their own beyond iteration counting — updating
// a named index is the compiler's job, the same way a for-loop lowers to
// plain arithmetic in any register/stack machine with no loop-variable
// primitive). A `while` sub-condition predicates the body in place rather
// than exiting the loop early, per §4.7.
func (fc *fcomp) emitLoop(l *ir.Loop) {
	count := new(big.Int).Sub(l.BoundsEnd, l.BoundsStart)
	if l.Inclusive {
		count.Add(count, big.NewInt(1))
	}
	if count.Sign() <= 0 {
		return
	}
	iterations := int(count.Int64())

	fc.emitConstant(l.IndexType, l.BoundsStart, false)
	fc.pc.emit(bytecode.Store{Address: l.IndexAddress, Size: 1})

	fc.pc.emit(bytecode.LoopBegin{Iterations: iterations})
	bodyStart := len(fc.pc.instructions)

	emitBody := func() {
		for _, s := range l.Body {
			fc.emitStmt(s)
		}
	}
	if l.WhileCondition != nil {
		fc.emitExpr(l.WhileCondition)
		fc.pc.emit(bytecode.If{})
		emitBody()
		fc.pc.emit(bytecode.EndIf{})
	} else {
		emitBody()
	}

	fc.pc.emit(bytecode.Load{Address: l.IndexAddress, Size: 1})
	fc.emitConstant(l.IndexType, big.NewInt(1), false)
	fc.pc.emit(bytecode.Add{})
	fc.pc.emit(bytecode.Store{Address: l.IndexAddress, Size: 1})

	fc.pc.emit(bytecode.LoopEnd{Target: bodyStart})
}
