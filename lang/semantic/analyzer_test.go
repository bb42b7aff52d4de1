package semantic_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zinc-lang/zinc/internal/fileset"
	"github.com/zinc-lang/zinc/lang/parser"
	"github.com/zinc-lang/zinc/lang/semantic"
)

func analyze(t *testing.T, src string) (*semantic.Result, error) {
	t.Helper()
	fs := fileset.New()
	id := fs.AddFile("test.zn", []byte(src))
	mod, err := parser.ParseFile(fs, id, "test")
	require.NoError(t, err)
	return semantic.Analyze(mod)
}

func TestAnalyzeSimpleFunction(t *testing.T) {
	_, err := analyze(t, `
fn add(a: u32, b: u32) -> u32 {
    a + b
}
`)
	require.NoError(t, err)
}

func TestAnalyzeLetAndReturnTypeMismatch(t *testing.T) {
	_, err := analyze(t, `
fn main() -> bool {
    let x: u32 = 1;
    x
}
`)
	require.Error(t, err)
}

func TestAnalyzeStructLiteralAndFieldAccess(t *testing.T) {
	_, err := analyze(t, `
struct Point {
    x: field,
    y: field,
}

fn origin() -> field {
    let p = Point { x: 0, y: 0 };
    p.x
}
`)
	require.NoError(t, err)
}

func TestAnalyzeEnumMatchExhaustive(t *testing.T) {
	_, err := analyze(t, `
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
	require.NoError(t, err)
}

func TestAnalyzeMatchNotExhaustive(t *testing.T) {
	_, err := analyze(t, `
enum Color {
    Red,
    Green,
    Blue,
}

fn is_red(c: Color) -> bool {
    match c {
        Color::Red => true,
        Color::Green => false,
    }
}
`)
	require.Error(t, err)
}

func TestAnalyzeUndeclaredIdentifier(t *testing.T) {
	_, err := analyze(t, `
fn f() -> field {
    y
}
`)
	require.Error(t, err)
}

func TestAnalyzeRedeclaredItem(t *testing.T) {
	_, err := analyze(t, `
struct Foo {
    x: field,
}

struct Foo {
    y: field,
}
`)
	require.Error(t, err)
}

func TestAnalyzeBinaryTypeMismatch(t *testing.T) {
	_, err := analyze(t, `
fn f() -> bool {
    1 == true
}
`)
	require.Error(t, err)
}

func TestAnalyzeCast(t *testing.T) {
	_, err := analyze(t, `
fn f(x: u32) -> field {
    x as field
}
`)
	require.NoError(t, err)
}

func TestAnalyzeForLoop(t *testing.T) {
	_, err := analyze(t, `
fn sum() -> u32 {
    let mut total: u32 = 0;
    for i in 0..4 {
        total = total + 1;
    }
    total
}
`)
	require.NoError(t, err)
}

func TestAnalyzeEntryKindCircuit(t *testing.T) {
	res, err := analyze(t, `
fn main() -> field {
    0
}
`)
	require.NoError(t, err)
	require.Equal(t, semantic.EntryCircuit, res.Entry)
}

func TestAnalyzeEntryKindContract(t *testing.T) {
	res, err := analyze(t, `
contract Token {
    field balance: u64;

    fn get(self) -> u64 {
        self.balance
    }
}
`)
	require.NoError(t, err)
	require.Equal(t, semantic.EntryContract, res.Entry)
}
