package lexer

import (
	"strings"

	"github.com/zinc-lang/zinc/internal/fileset"
	"github.com/zinc-lang/zinc/lang/token"
)

// scanString recognizes a double-quoted string literal with backslash
// escapes, used exclusively for compile-time debug messages (§3).
func (l *Lexer) scanString(start fileset.Location) (token.Token, Value, fileset.Location) {
	l.next() // opening quote
	var sb strings.Builder
	for {
		if l.cur < 0 || l.cur == '\n' {
			l.errorf(start, "unterminated string literal")
			return token.ILLEGAL, Value{}, start
		}
		if l.cur == '"' {
			l.next()
			break
		}
		if l.cur == '\\' {
			l.next()
			esc, ok := l.scanEscape()
			if !ok {
				l.errorf(l.loc(), "invalid string escape")
				continue
			}
			sb.WriteRune(esc)
			continue
		}
		sb.WriteRune(l.cur)
		l.next()
	}
	return token.STRING, Value{Raw: sb.String(), Str: sb.String()}, start
}

func (l *Lexer) scanEscape() (rune, bool) {
	c := l.cur
	l.next()
	switch c {
	case 'n':
		return '\n', true
	case 't':
		return '\t', true
	case 'r':
		return '\r', true
	case '\\':
		return '\\', true
	case '"':
		return '"', true
	case '0':
		return 0, true
	default:
		return c, false
	}
}
