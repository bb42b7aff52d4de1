package compiler_test

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zinc-lang/zinc/lang/bytecode"
	"github.com/zinc-lang/zinc/lang/compiler"
	"github.com/zinc-lang/zinc/lang/ir"
	"github.com/zinc-lang/zinc/lang/types"
)

func u32() types.Type { return types.IntUnsignedType{Bits: 32} }

func constU32(n int64) *ir.Expr {
	return &ir.Expr{
		Type:     u32(),
		Elements: []ir.Element{ir.Push{Operand: ir.Constant{Type: u32(), Int: big.NewInt(n)}}},
	}
}

func placeExpr(p ir.Place) *ir.Expr {
	return &ir.Expr{Type: p.Type, Elements: []ir.Element{ir.Push{Operand: p}}}
}

func TestCompileMainCircuitAddsArgs(t *testing.T) {
	a := ir.Place{Name: "a", Address: 0, Size: 1, Type: u32()}
	b := ir.Place{Name: "b", Address: 1, Size: 1, Type: u32()}
	trailing := &ir.Expr{
		Type: u32(),
		Elements: []ir.Element{
			ir.Push{Operand: a},
			ir.Push{Operand: b},
			ir.Apply{Op: ir.OpAdd, Type: u32()},
		},
	}
	fn := &ir.Function{
		Name:       "main",
		Arguments:  []ir.Argument{{Name: "a", Address: 0, Type: u32()}, {Name: "b", Address: 1, Type: u32()}},
		ReturnType: u32(),
		FrameSize:  2,
		Trailing:   trailing,
	}
	mod := &ir.Module{Items: []ir.Stmt{fn}}

	app, err := compiler.Compile(mod)
	require.NoError(t, err)

	circuit, ok := app.(*bytecode.Circuit)
	require.True(t, ok)
	require.Equal(t, "main", circuit.Name)
	require.Equal(t, 0, circuit.EntryAddress)

	insns := circuit.Program.Instructions
	require.Equal(t, bytecode.Load{Address: 0, Size: 1}, insns[0])
	require.Equal(t, bytecode.Load{Address: 1, Size: 1}, insns[1])
	require.Equal(t, bytecode.Add{}, insns[2])
	require.Equal(t, bytecode.Exit{OutputSize: 1}, insns[3])
}

func TestCompileConditionalExpressionMergesThroughScratchSlot(t *testing.T) {
	cond := &ir.Expr{Type: types.BoolType{}, Elements: []ir.Element{
		ir.Push{Operand: ir.Constant{Type: types.BoolType{}, Bool: true}},
	}}
	main := &ir.Block{Trailing: constU32(1)}
	elseBlk := &ir.Block{Trailing: constU32(2)}
	trailing := &ir.Expr{
		Type: u32(),
		Elements: []ir.Element{
			ir.Push{Operand: &ir.Conditional{Condition: cond, Main: main, Else: elseBlk, Type: u32()}},
		},
	}
	fn := &ir.Function{Name: "main", ReturnType: u32(), FrameSize: 0, Trailing: trailing}
	mod := &ir.Module{Items: []ir.Stmt{fn}}

	app, err := compiler.Compile(mod)
	require.NoError(t, err)
	circuit := app.(*bytecode.Circuit)

	insns := circuit.Program.Instructions
	require.IsType(t, bytecode.Push{}, insns[0])
	require.Equal(t, bytecode.If{}, insns[1])
	require.Equal(t, bytecode.Push{Type: bytecode.FromSemantic(u32()), Int: big.NewInt(1)}, insns[2])
	require.Equal(t, bytecode.Store{Address: 0, Size: 1}, insns[3])
	require.Equal(t, bytecode.Else{}, insns[4])
	require.Equal(t, bytecode.Push{Type: bytecode.FromSemantic(u32()), Int: big.NewInt(2)}, insns[5])
	require.Equal(t, bytecode.Store{Address: 0, Size: 1}, insns[6])
	require.Equal(t, bytecode.EndIf{}, insns[7])
	require.Equal(t, bytecode.Load{Address: 0, Size: 1}, insns[8])
	require.Equal(t, bytecode.Exit{OutputSize: 1}, insns[9])
}

func TestCompileHelperCallBackpatchesForwardAddress(t *testing.T) {
	// main calls `double`, declared after it — exercises the pending-call
	// back-patch path, the one reason the emitter walks every function
	// before wiring call targets.
	callExpr := &ir.Expr{
		Type: u32(),
		Elements: []ir.Element{
			ir.Push{Operand: &ir.Call{Callee: "double", Args: []*ir.Expr{constU32(21)}, ResultType: u32()}},
		},
	}
	mainFn := &ir.Function{Name: "main", ReturnType: u32(), Trailing: callExpr}

	doubleArg := ir.Place{Name: "x", Address: 0, Size: 1, Type: u32()}
	doubleTrailing := &ir.Expr{
		Type: u32(),
		Elements: []ir.Element{
			ir.Push{Operand: doubleArg},
			ir.Push{Operand: doubleArg},
			ir.Apply{Op: ir.OpAdd, Type: u32()},
		},
	}
	doubleFn := &ir.Function{
		Name:       "double",
		Arguments:  []ir.Argument{{Name: "x", Address: 0, Type: u32()}},
		ReturnType: u32(),
		FrameSize:  1,
		Trailing:   doubleTrailing,
	}

	mod := &ir.Module{Items: []ir.Stmt{mainFn, doubleFn}}
	app, err := compiler.Compile(mod)
	require.NoError(t, err)
	circuit := app.(*bytecode.Circuit)

	call, ok := circuit.Program.Instructions[1].(*bytecode.Call)
	require.True(t, ok)
	require.NotNil(t, call.Address)
	require.Equal(t, *doubleFn.Address, *call.Address)
	require.Equal(t, 1, call.InputSize)

	require.Equal(t, bytecode.Exit{OutputSize: 1}, circuit.Program.Instructions[2])

	doubleBody := circuit.Program.Instructions[*doubleFn.Address:]
	require.Equal(t, bytecode.Load{Address: 0, Size: 1}, doubleBody[0])
	require.Equal(t, bytecode.Load{Address: 0, Size: 1}, doubleBody[1])
	require.Equal(t, bytecode.Add{}, doubleBody[2])
	require.Equal(t, bytecode.Return{OutputSize: 1}, doubleBody[3])
}

func TestCompileUndefinedCalleeErrors(t *testing.T) {
	callExpr := &ir.Expr{
		Type: u32(),
		Elements: []ir.Element{
			ir.Push{Operand: &ir.Call{Callee: "missing", ResultType: u32()}},
		},
	}
	fn := &ir.Function{Name: "main", ReturnType: u32(), Trailing: callExpr}
	mod := &ir.Module{Items: []ir.Stmt{fn}}

	_, err := compiler.Compile(mod)
	require.ErrorContains(t, err, `undefined function "missing"`)
}

func TestCompileBoundedLoopEmitsLoopBeginEnd(t *testing.T) {
	idx := ir.Place{Name: "i", Address: 0, Size: 1, Type: u32()}
	body := []ir.Stmt{
		&ir.ExprStmt{Expr: &ir.Expr{
			Type: types.UnitType{},
			Elements: []ir.Element{
				ir.Push{Operand: &ir.Assign{
					Target: ir.Place{Name: "acc", Address: 1, Size: 1, Type: u32()},
					Value:  placeExpr(idx),
				}},
			},
		}},
	}
	loop := &ir.Loop{
		Index:        "i",
		IndexAddress: 0,
		IndexType:    u32(),
		BoundsStart:  big.NewInt(0),
		BoundsEnd:    big.NewInt(3),
		Body:         body,
	}
	fn := &ir.Function{Name: "main", ReturnType: types.UnitType{}, FrameSize: 2, Body: []ir.Stmt{loop}}
	mod := &ir.Module{Items: []ir.Stmt{fn}}

	app, err := compiler.Compile(mod)
	require.NoError(t, err)
	circuit := app.(*bytecode.Circuit)

	insns := circuit.Program.Instructions
	loopBegin, ok := insns[2].(bytecode.LoopBegin)
	require.True(t, ok)
	require.Equal(t, 3, loopBegin.Iterations)

	foundEnd := false
	for _, in := range insns {
		if le, ok := in.(bytecode.LoopEnd); ok {
			require.Equal(t, 3, le.Target)
			foundEnd = true
		}
	}
	require.True(t, foundEnd)
	require.Equal(t, bytecode.Exit{OutputSize: 0}, insns[len(insns)-1])
}

func TestCompileWhileConditionPredicatesLoopBody(t *testing.T) {
	idx := ir.Place{Name: "i", Address: 0, Size: 1, Type: u32()}
	whileCond := &ir.Expr{
		Type: types.BoolType{},
		Elements: []ir.Element{
			ir.Push{Operand: idx},
			ir.Push{Operand: ir.Constant{Type: u32(), Int: big.NewInt(2)}},
			ir.Apply{Op: ir.OpLt, Type: types.BoolType{}},
		},
	}
	loop := &ir.Loop{
		Index:          "i",
		IndexAddress:   0,
		IndexType:      u32(),
		BoundsStart:    big.NewInt(0),
		BoundsEnd:      big.NewInt(5),
		WhileCondition: whileCond,
	}
	fn := &ir.Function{Name: "main", ReturnType: types.UnitType{}, FrameSize: 1, Body: []ir.Stmt{loop}}
	mod := &ir.Module{Items: []ir.Stmt{fn}}

	app, err := compiler.Compile(mod)
	require.NoError(t, err)
	circuit := app.(*bytecode.Circuit)

	hasIf, hasEndIf := false, false
	for _, in := range circuit.Program.Instructions {
		switch in.(type) {
		case bytecode.If:
			hasIf = true
		case bytecode.EndIf:
			hasEndIf = true
		}
	}
	require.True(t, hasIf, "while condition should predicate the loop body with If")
	require.True(t, hasEndIf)
}

func TestCompileContractMutatingMethodWritesStorage(t *testing.T) {
	contract := &ir.Contract{
		Project: "Wallet",
		Fields:  []ir.ContractField{{Name: "balance", Type: u32(), IsPublic: true}},
	}
	selfArg := ir.Argument{Name: "self", Address: 0, Type: &types.ContractType{Name: "Wallet"}}

	depositAssign := &ir.Expr{
		Type: types.UnitType{},
		Elements: []ir.Element{
			ir.Push{Operand: &ir.Assign{
				IsStorage:    true,
				StorageIndex: 0,
				StorageSize:  1,
				Value:        constU32(10),
			}},
		},
	}
	deposit := &ir.Function{
		Name:       "deposit",
		Arguments:  []ir.Argument{selfArg},
		ReturnType: types.UnitType{},
		Body:       []ir.Stmt{&ir.ExprStmt{Expr: depositAssign}},
	}

	balancePlace := ir.StoragePlace{FieldIndex: 0, Size: 1, Type: u32()}
	balanceTrailing := &ir.Expr{Type: u32(), Elements: []ir.Element{ir.Push{Operand: balancePlace}}}
	getBalance := &ir.Function{
		Name:       "get_balance",
		Arguments:  []ir.Argument{selfArg},
		ReturnType: u32(),
		Trailing:   balanceTrailing,
	}

	mod := &ir.Module{Items: []ir.Stmt{contract, deposit, getBalance}}
	app, err := compiler.Compile(mod)
	require.NoError(t, err)

	c, ok := app.(*bytecode.Contract)
	require.True(t, ok)
	require.Equal(t, "Wallet", c.Name)
	require.Len(t, c.StorageLayout, 1)
	require.Equal(t, "balance", c.StorageLayout[0].Name)

	var depositMethod, getBalanceMethod *bytecode.ContractMethod
	for i := range c.Methods {
		switch c.Methods[i].Name {
		case "deposit":
			depositMethod = &c.Methods[i]
		case "get_balance":
			getBalanceMethod = &c.Methods[i]
		}
	}
	require.NotNil(t, depositMethod)
	require.NotNil(t, getBalanceMethod)
	require.True(t, depositMethod.IsMutable)
	require.False(t, getBalanceMethod.IsMutable)

	depositBody := c.Program.Instructions[depositMethod.Address:]
	require.IsType(t, bytecode.Push{}, depositBody[0])
	require.Equal(t, bytecode.StorageStore{Index: 0, Size: 1}, depositBody[1])
	require.Equal(t, bytecode.Exit{OutputSize: 0}, depositBody[2])

	getBody := c.Program.Instructions[getBalanceMethod.Address:]
	require.Equal(t, bytecode.StorageLoad{Index: 0, Size: 1}, getBody[0])
	require.Equal(t, bytecode.Exit{OutputSize: 1}, getBody[1])
}

func TestCompileRequireAndDbgIntrinsics(t *testing.T) {
	requireExpr := &ir.Expr{
		Type: types.UnitType{},
		Elements: []ir.Element{
			ir.Push{Operand: &ir.Call{
				Intrinsic:  "require",
				Args:       []*ir.Expr{{Type: types.BoolType{}, Elements: []ir.Element{ir.Push{Operand: ir.Constant{Type: types.BoolType{}, Bool: true}}}}},
				ResultType: types.UnitType{},
			}},
		},
	}
	dbgExpr := &ir.Expr{
		Type: types.UnitType{},
		Elements: []ir.Element{
			ir.Push{Operand: &ir.Call{
				Intrinsic:  "dbg",
				Format:     "x = {}",
				Args:       []*ir.Expr{constU32(7)},
				ResultType: types.UnitType{},
			}},
		},
	}
	fn := &ir.Function{
		Name:       "main",
		ReturnType: types.UnitType{},
		Body: []ir.Stmt{
			&ir.ExprStmt{Expr: requireExpr},
			&ir.ExprStmt{Expr: dbgExpr},
		},
	}
	mod := &ir.Module{Items: []ir.Stmt{fn}}

	app, err := compiler.Compile(mod)
	require.NoError(t, err)
	circuit := app.(*bytecode.Circuit)

	insns := circuit.Program.Instructions
	require.Equal(t, bytecode.Assert{}, insns[1])
	dbg, ok := insns[3].(bytecode.Dbg)
	require.True(t, ok)
	require.Equal(t, "x = {}", dbg.Format)
	require.Equal(t, []bytecode.Type{bytecode.FromSemantic(u32())}, dbg.ArgTypes)
}

func TestCompileLibraryHasNoEntryPoint(t *testing.T) {
	helper := &ir.Function{Name: "helper", ReturnType: u32(), Trailing: constU32(1)}
	mod := &ir.Module{Items: []ir.Stmt{helper}}

	app, err := compiler.Compile(mod)
	require.NoError(t, err)

	lib, ok := app.(*bytecode.Library)
	require.True(t, ok)
	require.Equal(t, "lib", lib.Name)
	require.Equal(t, bytecode.Return{OutputSize: 1}, lib.Program.Instructions[len(lib.Program.Instructions)-1])
}
