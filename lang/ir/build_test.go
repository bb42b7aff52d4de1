package ir_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zinc-lang/zinc/internal/fileset"
	"github.com/zinc-lang/zinc/lang/ir"
	"github.com/zinc-lang/zinc/lang/parser"
	"github.com/zinc-lang/zinc/lang/semantic"
)

func build(t *testing.T, src string) *ir.Module {
	t.Helper()
	fs := fileset.New()
	id := fs.AddFile("test.zn", []byte(src))
	mod, err := parser.ParseFile(fs, id, "test")
	require.NoError(t, err)
	res, err := semantic.Analyze(mod)
	require.NoError(t, err)
	lowered, err := ir.Build(mod, res.Scope)
	require.NoError(t, err)
	return lowered
}

func TestBuildSimpleFunction(t *testing.T) {
	m := build(t, `
fn add(a: u32, b: u32) -> u32 {
    a + b
}
`)
	require.Len(t, m.Items, 1)
	fn, ok := m.Items[0].(*ir.Function)
	require.True(t, ok)
	require.Equal(t, "add", fn.Name)
	require.Len(t, fn.Arguments, 2)
	require.Equal(t, 0, fn.Arguments[0].Address)
	require.Equal(t, 1, fn.Arguments[1].Address)
	require.NotNil(t, fn.Trailing)
	require.Len(t, fn.Trailing.Elements, 3)
}

func TestBuildLetAllocatesAddressAfterParams(t *testing.T) {
	m := build(t, `
fn f(a: u32) -> u32 {
    let b = a + 1;
    b
}
`)
	fn := m.Items[0].(*ir.Function)
	require.Len(t, fn.Body, 1)
	decl, ok := fn.Body[0].(*ir.Declaration)
	require.True(t, ok)
	require.Equal(t, []int{1}, decl.Addresses)
}

func TestBuildForLoopBounds(t *testing.T) {
	m := build(t, `
fn sum() -> u32 {
    let mut total: u32 = 0;
    for i in 0..4 {
        total = total + 1;
    }
    total
}
`)
	fn := m.Items[0].(*ir.Function)
	var loop *ir.Loop
	for _, s := range fn.Body {
		if l, ok := s.(*ir.Loop); ok {
			loop = l
		}
	}
	require.NotNil(t, loop)
	require.Equal(t, int64(0), loop.BoundsStart.Int64())
	require.Equal(t, int64(4), loop.BoundsEnd.Int64())
	require.False(t, loop.Inclusive)
}

func TestBuildStructLiteralAndFieldAccess(t *testing.T) {
	m := build(t, `
struct Point {
    x: field,
    y: field,
}

fn origin() -> field {
    let p = Point { x: 0, y: 0 };
    p.x
}
`)
	var fn *ir.Function
	for _, item := range m.Items {
		if f, ok := item.(*ir.Function); ok && f.Name == "origin" {
			fn = f
		}
	}
	require.NotNil(t, fn)
	decl := fn.Body[0].(*ir.Declaration)
	structOp := decl.Expr.Elements[0].(ir.Push).Operand.(*ir.Structure)
	require.Len(t, structOp.Fields, 2)
	require.Equal(t, "x", structOp.Fields[0].Name)
	require.NotNil(t, fn.Trailing)
}

func TestBuildMatchBranches(t *testing.T) {
	m := build(t, `
enum Color {
    Red,
    Green,
    Blue,
}

fn is_red(c: Color) -> bool {
    match c {
        Color::Red => true,
        Color::Green => false,
        Color::Blue => false,
    }
}
`)
	fn := m.Items[1].(*ir.Function)
	require.NotNil(t, fn.Trailing)
	matchOp :=fn.Trailing.Elements[0].(ir.Push).Operand.(*ir.Match)
	require.Len(t, matchOp.Branches, 3)
	require.NotNil(t, matchOp.Branches[0].Pattern)
}

func TestBuildContractStorageAndMethod(t *testing.T) {
	m := build(t, `
contract Wallet {
    field balance: field;

    fn get(self) -> field {
        self.balance
    }
}
`)
	var contract *ir.Contract
	var method *ir.Function
	for _, item := range m.Items {
		switch it := item.(type) {
		case *ir.Contract:
			contract = it
		case *ir.Function:
			method = it
		}
	}
	require.NotNil(t, contract)
	require.Len(t, contract.Fields, 1)
	require.Equal(t, "balance", contract.Fields[0].Name)
	require.NotNil(t, method)
	require.NotNil(t, method.Trailing)
}

func TestBuildImplBlockMethod(t *testing.T) {
	m := build(t, `
struct Point {
    x: field,
    y: field,
}

impl Point {
    fn sum(self) -> field {
        self.x + self.y
    }
}
`)
	var impl *ir.Implementation
	for _, item := range m.Items {
		if i, ok := item.(*ir.Implementation); ok {
			impl = i
		}
	}
	require.NotNil(t, impl)
	require.Len(t, impl.Items, 1)
	fn, ok := impl.Items[0].(*ir.Function)
	require.True(t, ok)
	require.Equal(t, "sum", fn.Name)
}

func TestBuildArrayIndexAssignment(t *testing.T) {
	m := build(t, `
fn f() -> u8 {
    let mut xs = [0, 0];
    xs[0] = 1;
    xs[0]
}
`)
	fn := m.Items[0].(*ir.Function)
	var assignStmt *ir.ExprStmt
	for _, s := range fn.Body {
		if es, ok := s.(*ir.ExprStmt); ok {
			if _, ok := es.Expr.Elements[0].(ir.Push); ok {
				if _, ok := es.Expr.Elements[0].(ir.Push).Operand.(*ir.Assign); ok {
					assignStmt = es
				}
			}
		}
	}
	require.NotNil(t, assignStmt)
	assign := assignStmt.Expr.Elements[0].(ir.Push).Operand.(*ir.Assign)
	require.NotNil(t, assign.Index)
}

func TestBuildIfElseConditional(t *testing.T) {
	m := build(t, `
fn f(a: bool) -> u32 {
    if a {
        1
    } else {
        2
    }
}
`)
	fn := m.Items[0].(*ir.Function)
	require.NotNil(t, fn.Trailing)
	cond := fn.Trailing.Elements[0].(ir.Push).Operand.(*ir.Conditional)
	require.NotNil(t, cond.Main.Trailing)
	require.NotNil(t, cond.Else)
}
