package parser_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zinc-lang/zinc/internal/fileset"
	"github.com/zinc-lang/zinc/lang/ast"
	"github.com/zinc-lang/zinc/lang/parser"
)

func parse(t *testing.T, src string) *ast.Module {
	t.Helper()
	fs := fileset.New()
	id := fs.AddFile("t.zn", []byte(src))
	mod, err := parser.ParseFile(fs, id, "t")
	require.NoError(t, err)
	return mod
}

func TestParseFnDecl(t *testing.T) {
	mod := parse(t, `
fn add(a: u8, b: u8) -> u8 {
    a + b
}
`)
	require.Len(t, mod.Items, 1)
	fn, ok := mod.Items[0].(*ast.FnDecl)
	require.True(t, ok)
	require.Equal(t, "add", fn.Name)
	require.Len(t, fn.Params, 2)
	require.NotNil(t, fn.Ret)
	require.Len(t, fn.Body.Stmts, 0)
	require.NotNil(t, fn.Body.Tail)
}

func TestParseLetAndExprStmts(t *testing.T) {
	mod := parse(t, `
fn main() {
    let mut x: u8 = 1;
    x = x + 1;
    x
}
`)
	fn := mod.Items[0].(*ast.FnDecl)
	require.Len(t, fn.Body.Stmts, 2)
	let, ok := fn.Body.Stmts[0].(*ast.LetStmt)
	require.True(t, ok)
	require.True(t, let.Mut)
	require.Equal(t, "x", let.Name)
}

func TestParseIfElse(t *testing.T) {
	mod := parse(t, `
fn main() -> u8 {
    if true { 1 } else { 2 }
}
`)
	fn := mod.Items[0].(*ast.FnDecl)
	ifExpr, ok := fn.Body.Tail.(*ast.IfExpr)
	require.True(t, ok)
	require.NotNil(t, ifExpr.Else)
}

func TestParseForLoop(t *testing.T) {
	mod := parse(t, `
fn main() {
    for i in 0..10 {
        let x: u8 = i;
    }
}
`)
	fn := mod.Items[0].(*ast.FnDecl)
	forStmt, ok := fn.Body.Stmts[0].(*ast.ForStmt)
	require.True(t, ok)
	require.Equal(t, "i", forStmt.Index)
	require.False(t, forStmt.Bound.Inclusive)
}

func TestParseStructAndLiteral(t *testing.T) {
	mod := parse(t, `
struct Point { x: u8, y: u8 }

fn origin() -> Point {
    Point { x: 0, y: 0 }
}
`)
	require.Len(t, mod.Items, 2)
	sd, ok := mod.Items[0].(*ast.StructDecl)
	require.True(t, ok)
	require.Len(t, sd.Fields, 2)

	fn := mod.Items[1].(*ast.FnDecl)
	se, ok := fn.Body.Tail.(*ast.StructExpr)
	require.True(t, ok)
	require.Len(t, se.Fields, 2)
}

func TestParseEnum(t *testing.T) {
	mod := parse(t, `
enum Color {
    Red = 0,
    Green = 1,
    Blue = 2,
}
`)
	ed, ok := mod.Items[0].(*ast.EnumDecl)
	require.True(t, ok)
	require.Len(t, ed.Variants, 3)
	require.Equal(t, int64(1), ed.Variants[1].Value.Int64())
}

func TestParseContractStorageField(t *testing.T) {
	mod := parse(t, `
contract Counter {
    field pub value: u64;

    fn increment(self) {
        self.value = self.value + 1;
    }
}
`)
	cd, ok := mod.Items[0].(*ast.ContractDecl)
	require.True(t, ok)
	require.Len(t, cd.Items, 2)
	fd, ok := cd.Items[0].(*ast.FieldDecl)
	require.True(t, ok)
	require.True(t, fd.Pub)
	require.Equal(t, "value", fd.Name)
}

func TestParseMatch(t *testing.T) {
	mod := parse(t, `
fn main() -> u8 {
    match 1 {
        0 => 10,
        1 => 20,
        _ => 0,
    }
}
`)
	fn := mod.Items[0].(*ast.FnDecl)
	me, ok := fn.Body.Tail.(*ast.MatchExpr)
	require.True(t, ok)
	require.Len(t, me.Arms, 3)
	require.Nil(t, me.Arms[2].Pattern)
}

func TestParseIntrinsicCall(t *testing.T) {
	mod := parse(t, `
fn main() {
    dbg!(1);
}
`)
	fn := mod.Items[0].(*ast.FnDecl)
	es, ok := fn.Body.Stmts[0].(*ast.ExprStmt)
	require.True(t, ok)
	call, ok := es.X.(*ast.CallExpr)
	require.True(t, ok)
	require.True(t, call.Bang)
}

func TestParseErrorRecovers(t *testing.T) {
	fs := fileset.New()
	id := fs.AddFile("bad.zn", []byte(`
fn broken( {
}

fn ok() -> u8 { 1 }
`))
	mod, err := parser.ParseFile(fs, id, "bad")
	require.Error(t, err)
	require.NotNil(t, mod)
}
