package lexer_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zinc-lang/zinc/internal/fileset"
	"github.com/zinc-lang/zinc/lang/lexer"
	"github.com/zinc-lang/zinc/lang/token"
)

func scan(t *testing.T, src string) []lexer.TokenAndValue {
	t.Helper()
	fs := fileset.New()
	id := fs.AddFile("t.zn", []byte(src))
	toks, err := lexer.ScanAll(fs, id)
	require.NoError(t, err)
	return toks
}

func kinds(toks []lexer.TokenAndValue) []token.Token {
	out := make([]token.Token, len(toks))
	for i, tv := range toks {
		out[i] = tv.Tok
	}
	return out
}

func TestScanKeywordsAndIdents(t *testing.T) {
	toks := scan(t, "fn main() -> u8 { let mut x: u8 = 1; x }")
	got := kinds(toks)
	require.Equal(t, []token.Token{
		token.FN, token.IDENT, token.LPAREN, token.RPAREN, token.ARROW, token.IDENT,
		token.LBRACE, token.LET, token.MUT, token.IDENT, token.COLON, token.IDENT,
		token.EQ, token.INT, token.SEMI, token.IDENT, token.RBRACE, token.EOF,
	}, got)
}

func TestScanIntegerBases(t *testing.T) {
	toks := scan(t, "0x2a 0b101 0o17 1_000")
	require.Len(t, toks, 5) // 4 ints + EOF
	for i, want := range []int64{42, 5, 15, 1000} {
		require.Equal(t, token.INT, toks[i].Tok)
		require.Equal(t, want, toks[i].Val.Int.Int64())
	}
}

func TestScanOperators(t *testing.T) {
	toks := scan(t, "== != <= >= && || ^^ .. ..= :: -> =>")
	got := kinds(toks)
	require.Equal(t, []token.Token{
		token.EQEQ, token.NEQ, token.LE, token.GE, token.ANDAND, token.OROR,
		token.CARETCARET, token.DOTDOT, token.DOTDOTEQ, token.COLONCOLON,
		token.ARROW, token.FATARROW, token.EOF,
	}, got)
}

func TestScanStringEscapes(t *testing.T) {
	toks := scan(t, `"a\nb"`)
	require.Equal(t, token.STRING, toks[0].Tok)
	require.Equal(t, "a\nb", toks[0].Val.Str)
}

func TestScanComments(t *testing.T) {
	toks := scan(t, "1 // line comment\n/* block /* nested */ still */ 2")
	require.Equal(t, []token.Token{token.INT, token.INT, token.EOF}, kinds(toks))
}

func TestUnterminatedString(t *testing.T) {
	fs := fileset.New()
	id := fs.AddFile("t.zn", []byte(`"abc`))
	_, err := lexer.ScanAll(fs, id)
	require.Error(t, err)
}
