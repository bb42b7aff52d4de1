package lexer

import (
	"math/big"

	"github.com/zinc-lang/zinc/internal/fileset"
	"github.com/zinc-lang/zinc/lang/token"
)

// scanNumber recognizes decimal, hex (0x), binary (0b) and octal (0o)
// integer literals, with '_' permitted as a digit separator (§4.1, §6).
func (l *Lexer) scanNumber(start fileset.Location) (token.Token, Value, fileset.Location) {
	from := l.off
	base := 10
	digits := "0123456789"

	if l.cur == '0' {
		switch l.peekByte() {
		case 'x', 'X':
			base, digits = 16, "0123456789abcdefABCDEF"
			l.next()
			l.next()
			from = l.off
		case 'b', 'B':
			base, digits = 2, "01"
			l.next()
			l.next()
			from = l.off
		case 'o', 'O':
			base, digits = 8, "01234567"
			l.next()
			l.next()
			from = l.off
		}
	}

	sawDigit := false
	for isInSet(l.cur, digits) || l.cur == '_' {
		if l.cur != '_' {
			sawDigit = true
		}
		l.next()
	}

	raw := string(l.src[from:l.off])
	clean := stripUnderscores(raw)
	if !sawDigit || clean == "" {
		l.errorf(start, "invalid integer literal: no digits")
		return token.ILLEGAL, Value{}, start
	}

	n := new(big.Int)
	if _, ok := n.SetString(clean, base); !ok {
		l.errorf(start, "invalid integer literal %q", raw)
		return token.ILLEGAL, Value{}, start
	}

	return token.INT, Value{Raw: raw, Int: n}, start
}

func isInSet(r rune, set string) bool {
	for _, c := range set {
		if c == r {
			return true
		}
	}
	return false
}

func stripUnderscores(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != '_' {
			out = append(out, s[i])
		}
	}
	return string(out)
}
