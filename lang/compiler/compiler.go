// Package compiler lowers a lang/ir.Module into a lang/bytecode.Application:
// a single linear instruction vector plus the entry-point/contract/library
// metadata the artifact container carries (§4.6). Unlike the teacher's
// compiler package — which builds a CFG of basic blocks per function and
// linearizes it with jump-threading (lang/compiler in its original,
// unmodified form still sitting alongside this file) — Zinc's IR has no
// jumps at all: `if` compiles to predication (If/Else/EndIf) and every loop
// is statically bounded (LoopBegin/LoopEnd), so each function's body can be
// emitted straight through in one pass. The teacher's pcomp/fcomp split is
// kept as the organizing idiom (one compiler-wide pass that hands off to a
// per-function emitter), generalized to a jump-free target.
package compiler

import (
	"fmt"

	"github.com/zinc-lang/zinc/lang/bytecode"
	"github.com/zinc-lang/zinc/lang/ir"
)

// Compile lowers mod into its artifact form. The module's declared entry
// shape — exactly one `main` function, exactly one contract, or neither —
// was already enforced by the semantic analyzer's EntryPointAmbiguous check
// (§4.4 "Entry point rules"); Compile trusts that invariant and picks the
// Application variant accordingly.
func Compile(mod *ir.Module) (bytecode.Application, error) {
	pc := &pcomp{
		funcAddrs: make(map[string]int),
		pending:   nil,
	}

	var mainFn *ir.Function
	var contract *ir.Contract
	var contractFns []*ir.Function
	var tests []bytecode.UnitTest

	// Emit every function body up front so forward calls can be
	// back-patched once all addresses are known (§4.6: "reserving a
	// placeholder for each function's entry address, then back-patching
	// after all bodies are emitted").
	var walk func(items []ir.Stmt)
	walk = func(items []ir.Stmt) {
		for _, item := range items {
			switch it := item.(type) {
			case *ir.Function:
				addr := len(pc.instructions)
				pc.funcAddrs[it.Name] = addr
				it.Address = &addr
				// A function is a VM-invocable entry point — reachable
				// without a Call from anywhere else in the bytecode — when
				// it's the circuit's main, a contract method, or a unit
				// test; everything else is a plain helper invoked via
				// Call/Return.
				isEntry := it.Name == "main" || contract != nil || it.UnitTest != nil
				pc.emitFunctionBody(it, isEntry)
				if it.Name == "main" {
					mainFn = it
				}
				if contract != nil {
					contractFns = append(contractFns, it)
				}
				if it.UnitTest != nil {
					tests = append(tests, bytecode.UnitTest{
						Name:        it.Name,
						Address:     addr,
						ShouldPanic: it.UnitTest.ShouldPanic,
						IsIgnored:   it.UnitTest.Ignore,
					})
				}
			case *ir.Contract:
				contract = it
			case *ir.Implementation:
				walk(it.Items)
			case *ir.TypeStmt, *ir.Declaration, *ir.ExprStmt, *ir.Loop:
				// Module-level type declarations and top-level constant
				// bindings carry no executable content of their own; a
				// top-level const's value is folded at every use site by
				// lang/ir's constant evaluator, so nothing to emit here.
			}
		}
	}
	walk(mod.Items)

	for _, call := range pc.pending {
		addr, ok := pc.funcAddrs[call.name]
		if !ok {
			return nil, fmt.Errorf("compiler: call to undefined function %q", call.name)
		}
		a := addr
		call.target.Address = &a
	}

	prog := &bytecode.Program{Instructions: pc.instructions}

	switch {
	case contract != nil:
		return buildContract(contract, contractFns, tests, prog), nil
	case mainFn != nil:
		inputType := bytecode.Type{Tag: bytecode.TagTuple}
		for _, arg := range mainFn.Arguments {
			inputType.Elements = append(inputType.Elements, bytecode.FromSemantic(arg.Type))
		}
		return &bytecode.Circuit{
			Name:         "main",
			EntryAddress: pc.funcAddrs["main"],
			InputType:    inputType,
			OutputType:   bytecode.FromSemantic(mainFn.ReturnType),
			UnitTests:    tests,
			Program:      prog,
		}, nil
	default:
		return &bytecode.Library{Name: "lib", UnitTests: tests, Program: prog}, nil
	}
}

func buildContract(c *ir.Contract, methods []*ir.Function, tests []bytecode.UnitTest, prog *bytecode.Program) *bytecode.Contract {
	out := &bytecode.Contract{Name: c.Project, Program: prog, UnitTests: tests}
	for _, f := range c.Fields {
		out.StorageLayout = append(out.StorageLayout, bytecode.StorageField{
			Name:     f.Name,
			Type:     bytecode.FromSemantic(f.Type),
			IsPublic: f.IsPublic,
		})
	}
	for _, m := range methods {
		inputType := bytecode.Type{Tag: bytecode.TagTuple}
		for _, arg := range m.Arguments {
			if arg.Name == "self" {
				continue
			}
			inputType.Elements = append(inputType.Elements, bytecode.FromSemantic(arg.Type))
		}
		out.Methods = append(out.Methods, bytecode.ContractMethod{
			Name:       m.Name,
			Address:    mustAddr(m),
			InputType:  inputType,
			OutputType: bytecode.FromSemantic(m.ReturnType),
			IsMutable:  functionMutatesStorage(m),
		})
	}
	return out
}

// functionMutatesStorage reports whether fn's body ever writes a contract
// storage field (an IsStorage Assign), the one syntax-free signal available
// for a method's mutability: the source grammar has no `&mut self` marker
// of its own (lang/ast.Param carries no mutability flag), so this walks the
// already-lowered body instead of trusting the syntax.
func functionMutatesStorage(fn *ir.Function) bool {
	found := false

	var visitExpr func(e *ir.Expr)
	var visitStmt func(s ir.Stmt)
	var visitOperand func(op ir.Operand)

	visitExpr = func(e *ir.Expr) {
		if e == nil || found {
			return
		}
		for _, el := range e.Elements {
			if found {
				return
			}
			if push, ok := el.(ir.Push); ok {
				visitOperand(push.Operand)
			}
		}
	}

	visitOperand = func(op ir.Operand) {
		if found {
			return
		}
		switch v := op.(type) {
		case *ir.Assign:
			if v.IsStorage {
				found = true
				return
			}
			visitExpr(v.Index)
			visitExpr(v.Value)
		case *ir.Call:
			for _, a := range v.Args {
				visitExpr(a)
			}
		case *ir.Block:
			for _, s := range v.Stmts {
				visitStmt(s)
			}
			visitExpr(v.Trailing)
		case *ir.Conditional:
			visitExpr(v.Condition)
			for _, s := range v.Main.Stmts {
				visitStmt(s)
			}
			visitExpr(v.Main.Trailing)
			if v.Else != nil {
				for _, s := range v.Else.Stmts {
					visitStmt(s)
				}
				visitExpr(v.Else.Trailing)
			}
		case *ir.Match:
			visitExpr(v.Scrutinee)
			for _, br := range v.Branches {
				visitExpr(br.Body)
			}
		case *ir.Array:
			for _, el := range v.Elements {
				visitExpr(el)
			}
			visitExpr(v.Repeat)
		case *ir.Tuple:
			for _, el := range v.Elements {
				visitExpr(el)
			}
		case *ir.Structure:
			for _, f := range v.Fields {
				visitExpr(f.Value)
			}
		case ir.IndexedLoad:
			visitExpr(v.Index)
		}
	}

	visitStmt = func(s ir.Stmt) {
		if found {
			return
		}
		switch st := s.(type) {
		case *ir.ExprStmt:
			visitExpr(st.Expr)
		case *ir.Declaration:
			visitExpr(st.Expr)
		case *ir.Loop:
			visitExpr(st.WhileCondition)
			for _, b := range st.Body {
				visitStmt(b)
			}
		}
	}

	for _, s := range fn.Body {
		visitStmt(s)
	}
	visitExpr(fn.Trailing)
	return found
}

func mustAddr(fn *ir.Function) int {
	if fn.Address == nil {
		panic(fmt.Sprintf("compiler: function %q has no back-patched address", fn.Name))
	}
	return *fn.Address
}

// pendingCall remembers one emitted call instruction whose target function
// had not yet been assigned an address at emission time.
type pendingCall struct {
	name   string
	target *bytecode.Call
}

// pcomp holds compiler-wide state across every function body in the
// module, the same role the teacher's pcomp plays across a program's
// Functions list.
type pcomp struct {
	instructions []bytecode.Instruction
	funcAddrs    map[string]int
	pending      []pendingCall
}

func (pc *pcomp) emit(insn bytecode.Instruction) int {
	pc.instructions = append(pc.instructions, insn)
	return len(pc.instructions) - 1
}

func (pc *pcomp) callTo(name string, inputSize int) {
	call := &bytecode.Call{InputSize: inputSize}
	if addr, ok := pc.funcAddrs[name]; ok {
		a := addr
		call.Address = &a
	} else {
		pc.pending = append(pc.pending, pendingCall{name: name, target: call})
	}
	pc.emit(call)
}
