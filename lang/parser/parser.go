// Package parser implements a recursive-descent, precedence-climbing parser
// that turns a Zinc token stream into a syntax tree, following the teacher's
// parser package shape: an init/advance loop driving the lexer, panic-mode
// error recovery synchronized at statement boundaries, and one parse method
// per grammar production.
package parser

import (
	"errors"
	"fmt"

	"github.com/zinc-lang/zinc/internal/diag"
	"github.com/zinc-lang/zinc/internal/fileset"
	"github.com/zinc-lang/zinc/lang/ast"
	"github.com/zinc-lang/zinc/lang/lexer"
	"github.com/zinc-lang/zinc/lang/token"
)

// ParseFile tokenizes and parses a single registered file into a *ast.Module.
// The returned error, if non-nil, unwraps to the individual diag.Error
// diagnostics collected while parsing.
func ParseFile(fs *fileset.FileSet, id fileset.FileID, name string) (*ast.Module, error) {
	f := fs.File(id)
	if f == nil {
		return nil, fmt.Errorf("parser: unknown file id %d", id)
	}

	var p parser
	p.init(id, f.Content)
	mod := p.parseModule(name)
	p.errs.Sort()
	return mod, p.errs.Err()
}

// parser holds the mutable state of a single parse.
type parser struct {
	lex  lexer.Lexer
	errs diag.List

	tok token.Token
	val lexer.Value
	loc fileset.Location

	// noStructLiteral disables parsing a bare "{" immediately after an
	// expression as the start of a struct literal; set while parsing the
	// condition of if/match/while so the following block isn't swallowed as
	// a struct body.
	noStructLiteral bool
}

func (p *parser) init(id fileset.FileID, src []byte) {
	p.lex.Init(id, src, &p.errs)
	p.advance()
}

func (p *parser) advance() {
	p.tok, p.val, p.loc = p.lex.Scan()
}

var errPanicMode = errors.New("parser: panic mode")

// expect consumes the current token if it matches one of toks and returns its
// location, otherwise it records an error and aborts the current production
// via panic(errPanicMode), to be recovered at a statement/item boundary.
func (p *parser) expect(toks ...token.Token) fileset.Location {
	loc := p.loc
	for _, t := range toks {
		if p.tok == t {
			p.advance()
			return loc
		}
	}
	p.errorExpected(toks...)
	panic(errPanicMode)
}

// accept consumes the current token and reports whether it matched tok,
// without aborting the parse on mismatch.
func (p *parser) accept(tok token.Token) bool {
	if p.tok == tok {
		p.advance()
		return true
	}
	return false
}

func (p *parser) error(loc fileset.Location, format string, args ...interface{}) {
	p.errs.Add(loc, format, args...)
}

func (p *parser) errorExpected(toks ...token.Token) {
	msg := "expected "
	if len(toks) == 1 {
		msg += toks[0].GoString()
	} else {
		msg += "one of "
		for i, t := range toks {
			if i > 0 {
				msg += ", "
			}
			msg += t.GoString()
		}
	}
	msg += ", found " + p.tok.GoString()
	p.error(p.loc, "%s", msg)
}

// syncAt is the set of tokens that are safe restart points after a parse
// error: each can only begin a new item or statement, never appear in the
// middle of one.
var syncAt = map[token.Token]bool{
	token.FN:       true,
	token.LET:      true,
	token.CONST:    true,
	token.STRUCT:   true,
	token.ENUM:     true,
	token.IMPL:     true,
	token.MOD:      true,
	token.USE:      true,
	token.TYPE:     true,
	token.CONTRACT: true,
	token.FIELD:    true,
	token.FOR:      true,
	token.IF:       true,
	token.RETURN:   true,
	token.RBRACE:   true,
	token.EOF:      true,
}

// synchronize advances past tokens until a safe restart point, consuming a
// trailing RBRACE as part of the recovery since it closes off the malformed
// construct. SEMI is not in syncAt, so a semicolon is skipped like any other
// token and never ends the scan. It always advances at least once, even if the
// current token is already a sync point, so a parse error can never stall
// the parser on the same token forever.
func (p *parser) synchronize() {
	p.advance()
	for !syncAt[p.tok] {
		p.advance()
	}
	if p.tok == token.SEMI || p.tok == token.RBRACE {
		p.advance()
	}
}

func tokenIn(t token.Token, toks ...token.Token) bool {
	for _, x := range toks {
		if t == x {
			return true
		}
	}
	return false
}
