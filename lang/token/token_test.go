package token

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTokenString(t *testing.T) {
	for tok := Token(0); tok < maxToken; tok++ {
		require.NotEmpty(t, tok.String(), "token %d missing String()", tok)
	}
}

func TestKeywords(t *testing.T) {
	for lit, tok := range Keywords {
		if tok == TRUE || tok == FALSE {
			continue
		}
		require.Equal(t, lit, tok.String())
	}
}

func TestPrecedence(t *testing.T) {
	require.Equal(t, PrecMultiplicative, Precedence(STAR))
	require.Equal(t, PrecAdditive, Precedence(PLUS))
	require.Equal(t, PrecCompare, Precedence(EQEQ))
	require.Equal(t, PrecAnd, Precedence(ANDAND))
	require.Equal(t, PrecXor, Precedence(CARETCARET))
	require.Equal(t, PrecOr, Precedence(OROR))
	require.Equal(t, PrecRange, Precedence(DOTDOT))
	require.Equal(t, PrecAssign, Precedence(EQ))
	require.Equal(t, PrecNone, Precedence(IDENT))
}

func TestRightAssoc(t *testing.T) {
	require.True(t, IsRightAssoc(EQ))
	require.False(t, IsRightAssoc(PLUS))
}
