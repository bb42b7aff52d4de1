package parser

import (
	"github.com/zinc-lang/zinc/lang/ast"
	"github.com/zinc-lang/zinc/lang/token"
)

// parseBlock parses a brace-delimited sequence of statements with an
// optional tail expression (§4.2: "{ stmts; tail }"): a trailing expression
// with no terminating semicolon becomes the block's value.
func (p *parser) parseBlock() *ast.Block {
	start := p.expect(token.LBRACE)

	var stmts []ast.Stmt
	var tail ast.Expr
	for p.tok != token.RBRACE && p.tok != token.EOF {
		if tail != nil {
			// a tail expression must be the last thing in the block; treat
			// a further item as a new statement and drop the earlier "tail"
			// status by wrapping it as an expression statement.
			stmts = append(stmts, &ast.ExprStmt{X: tail})
			tail = nil
		}

		s, exprTail := p.parseStmtOrTail()
		if s == nil && exprTail == nil {
			continue // recovered empty statement
		}
		if exprTail != nil {
			tail = exprTail
			continue
		}
		stmts = append(stmts, s)
	}

	end := p.expect(token.RBRACE)
	return &ast.Block{Start: start, End: end, Stmts: stmts, Tail: tail}
}

// parseStmtOrTail parses one block element. It returns either a Stmt, or
// (nil, expr) when the element is a bare expression not followed by ";" —
// which can only be valid as the block's tail.
func (p *parser) parseStmtOrTail() (stmt ast.Stmt, tail ast.Expr) {
	start := p.loc

	defer func() {
		if r := recover(); r != nil {
			if r == errPanicMode {
				p.synchronize()
				stmt = &ast.BadStmt{Start: start, End: p.loc}
				tail = nil
				return
			}
			panic(r)
		}
	}()

	switch p.tok {
	case token.SEMI:
		p.advance()
		return nil, nil

	case token.LET:
		return p.parseLetStmt(), nil

	case token.CONST:
		return p.parseConstStmt(), nil

	case token.FOR:
		return p.parseForStmt(), nil

	case token.FN, token.STRUCT, token.ENUM, token.IMPL, token.MOD, token.USE, token.TYPE, token.CONTRACT:
		return p.parseItem(), nil
	}

	expr := p.parseExpr()
	if p.accept(token.SEMI) {
		return &ast.ExprStmt{X: expr, EndLoc: p.loc}, nil
	}
	// no semicolon: either the block ends here (tail expression) or this is
	// a block-like expression (if/match/block) used as a statement on its
	// own line, which is valid without a trailing semicolon.
	if p.tok == token.RBRACE {
		return nil, expr
	}
	return &ast.ExprStmt{X: expr}, nil
}

func (p *parser) parseLetStmt() *ast.LetStmt {
	start := p.expect(token.LET)
	mut := p.accept(token.MUT)
	nameLoc := p.loc
	name := p.val.Raw
	p.expect(token.IDENT)

	var ty ast.TypeNode
	if p.accept(token.COLON) {
		ty = p.parseType()
	}
	p.expect(token.EQ)
	value := p.parseExpr()
	end := p.expect(token.SEMI)
	return &ast.LetStmt{Start: start, Mut: mut, Name: name, NameLoc: nameLoc, Type: ty, Value: value, EndLoc: end}
}

func (p *parser) parseConstStmt() *ast.ConstStmt {
	start := p.expect(token.CONST)
	nameLoc := p.loc
	name := p.val.Raw
	p.expect(token.IDENT)
	p.expect(token.COLON)
	ty := p.parseType()
	p.expect(token.EQ)
	value := p.parseExpr()
	end := p.expect(token.SEMI)
	return &ast.ConstStmt{Start: start, Name: name, NameLoc: nameLoc, Type: ty, Value: value, EndLoc: end}
}

// parseForStmt parses a bounded loop: "for i in lo..hi [while cond] { body }"
// (§4.2, §4.7).
func (p *parser) parseForStmt() *ast.ForStmt {
	start := p.expect(token.FOR)
	indexLoc := p.loc
	index := p.val.Raw
	p.expect(token.IDENT)
	p.expect(token.IN)

	p.noStructLiteral = true
	boundExpr := p.parseExpr()
	bound, ok := boundExpr.(*ast.RangeExpr)
	if !ok {
		start, end := boundExpr.Span()
		p.error(start, "expected a range expression as the loop bound")
		bound = &ast.RangeExpr{Start: boundExpr, End: &ast.BadExpr{Start: end, End: end}}
	}

	var whileCond ast.Expr
	if p.accept(token.WHILE) {
		whileCond = p.parseExpr()
	}
	p.noStructLiteral = false

	body := p.parseBlock()
	return &ast.ForStmt{Start: start, Index: index, IndexLoc: indexLoc, Bound: bound, WhileCond: whileCond, Body: body}
}

func isItemStart(t token.Token) bool {
	return tokenIn(t, token.FN, token.STRUCT, token.ENUM, token.IMPL, token.MOD, token.USE, token.TYPE, token.CONTRACT, token.CONST, token.PUB, token.HASH)
}
