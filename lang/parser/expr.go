package parser

import (
	"math/big"

	"github.com/zinc-lang/zinc/internal/fileset"
	"github.com/zinc-lang/zinc/lang/ast"
	"github.com/zinc-lang/zinc/lang/token"
)

func (p *parser) parseExpr() ast.Expr {
	return p.parseBinary(token.PrecAssign)
}

// parseBinary implements precedence climbing over the table defined in
// lang/token, specializing the EQ and range operators to their own node
// kinds instead of a generic BinaryExpr.
func (p *parser) parseBinary(minPrec int) ast.Expr {
	left := p.parseUnary()

	for {
		prec := token.Precedence(p.tok)
		if prec == token.PrecNone || prec < minPrec {
			return left
		}
		op := p.tok
		opLoc := p.loc
		p.advance()

		nextMin := prec + 1
		if token.IsRightAssoc(op) {
			nextMin = prec
		}
		right := p.parseBinary(nextMin)

		switch op {
		case token.EQ:
			left = &ast.AssignExpr{Target: left, Value: right}
		case token.DOTDOT, token.DOTDOTEQ:
			left = &ast.RangeExpr{Start: left, End: right, Inclusive: op == token.DOTDOTEQ}
		default:
			left = &ast.BinaryExpr{Left: left, Op: op, OpLoc: opLoc, Right: right}
		}
	}
}

func (p *parser) parseUnary() ast.Expr {
	if p.tok == token.NOT || p.tok == token.MINUS {
		op := p.tok
		loc := p.loc
		p.advance()
		operand := p.parseUnary()
		return &ast.UnaryExpr{Op: op, OpLoc: loc, Operand: operand}
	}
	return p.parseCastAndPostfix()
}

func (p *parser) parseCastAndPostfix() ast.Expr {
	e := p.parsePostfix(p.parsePrimary())
	for p.tok == token.AS {
		p.advance()
		ty := p.parseType()
		_, end := ty.Span()
		e = &ast.CastExpr{Operand: e, Type: ty, EndLoc: end}
		e = p.parsePostfix(e)
	}
	return e
}

// parsePostfix consumes trailing ., .N, [..], (..) and !(..) suffixes.
func (p *parser) parsePostfix(e ast.Expr) ast.Expr {
	for {
		switch p.tok {
		case token.DOT:
			p.advance()
			if p.tok == token.INT {
				idx := int(p.val.Int.Int64())
				end := p.loc
				p.advance()
				e = &ast.TupleIndexExpr{Base: e, Index: idx, EndLoc: end}
				continue
			}
			name := p.val.Raw
			end := p.expect(token.IDENT)
			e = &ast.FieldExpr{Base: e, Field: name, EndLoc: end}

		case token.LBRACK:
			p.advance()
			idx := p.parseExpr()
			end := p.expect(token.RBRACK)
			e = &ast.IndexExpr{Base: e, Index: idx, EndLoc: end}

		case token.LPAREN:
			p.advance()
			var args []ast.Expr
			for p.tok != token.RPAREN && p.tok != token.EOF {
				args = append(args, p.parseExpr())
				if !p.accept(token.COMMA) {
					break
				}
			}
			end := p.expect(token.RPAREN)
			e = &ast.CallExpr{Callee: e, Args: args, EndLoc: end}

		case token.NOT:
			p.advance()
			p.expect(token.LPAREN)
			var args []ast.Expr
			for p.tok != token.RPAREN && p.tok != token.EOF {
				args = append(args, p.parseExpr())
				if !p.accept(token.COMMA) {
					break
				}
			}
			end := p.expect(token.RPAREN)
			e = &ast.CallExpr{Callee: e, Bang: true, Args: args, EndLoc: end}

		default:
			return e
		}
	}
}

func (p *parser) parsePrimary() ast.Expr {
	switch p.tok {
	case token.INT:
		raw := p.val.Raw
		v := p.val.Int
		loc := p.loc
		p.advance()
		if v == nil {
			v = new(big.Int)
		}
		return &ast.IntLiteralExpr{Loc: loc, Raw: raw, Value: v}

	case token.TRUE, token.FALSE:
		val := p.tok == token.TRUE
		loc := p.loc
		p.advance()
		return &ast.BoolLiteralExpr{Loc: loc, Value: val}

	case token.STRING:
		s := p.val.Str
		loc := p.loc
		p.advance()
		return &ast.StringLiteralExpr{Loc: loc, Value: s}

	case token.IDENT, token.SELF_VALUE, token.SELF_TYPE:
		return p.parsePathOrStruct()

	case token.UNDERSCORE:
		loc := p.loc
		p.advance()
		return &ast.IdentExpr{Loc: loc, Name: "_"}

	case token.LPAREN:
		return p.parseTupleExpr()

	case token.LBRACK:
		return p.parseArrayExpr()

	case token.LBRACE:
		return p.parseBlockExprNode()

	case token.IF:
		return p.parseIfExpr()

	case token.MATCH:
		return p.parseMatchExpr()

	default:
		p.errorExpected(token.IDENT, token.INT, token.STRING, token.LPAREN, token.LBRACK, token.LBRACE, token.IF, token.MATCH)
		panic(errPanicMode)
	}
	return nil
}

// parsePathOrStruct parses an identifier, a "::"-separated path, or a
// struct literal "Path { field: expr, ... }" when struct literals are
// permitted in the current context.
func (p *parser) parsePathOrStruct() ast.Expr {
	loc := p.loc
	name := p.val.Raw
	p.advance()

	if p.tok != token.COLONCOLON {
		if p.tok == token.LBRACE && !p.noStructLiteral {
			return p.parseStructExprTail(&ast.PathExpr{Segments: []string{name}, Locs: []fileset.Location{loc}})
		}
		return &ast.IdentExpr{Loc: loc, Name: name}
	}

	path := &ast.PathExpr{Segments: []string{name}, Locs: []fileset.Location{loc}}
	for p.tok == token.COLONCOLON {
		p.advance()
		segLoc := p.loc
		seg := p.val.Raw
		p.expect(token.IDENT)
		path.Segments = append(path.Segments, seg)
		path.Locs = append(path.Locs, segLoc)
	}

	if p.tok == token.LBRACE && !p.noStructLiteral {
		return p.parseStructExprTail(path)
	}
	return path
}

func (p *parser) parseStructExprTail(path *ast.PathExpr) ast.Expr {
	start, _ := path.Span()
	p.expect(token.LBRACE)
	var fields []ast.StructFieldInit
	for p.tok != token.RBRACE && p.tok != token.EOF {
		fieldLoc := p.loc
		name := p.val.Raw
		p.expect(token.IDENT)
		p.expect(token.COLON)
		val := p.parseExpr()
		fields = append(fields, ast.StructFieldInit{Name: name, Loc: fieldLoc, Value: val})
		if !p.accept(token.COMMA) {
			break
		}
	}
	end := p.expect(token.RBRACE)
	return &ast.StructExpr{Start: start, EndLoc: end, Path: path, Fields: fields}
}

func (p *parser) parseTupleExpr() ast.Expr {
	start := p.expect(token.LPAREN)
	if p.tok == token.RPAREN {
		end := p.expect(token.RPAREN)
		return &ast.TupleExpr{Start: start, EndLoc: end}
	}

	first := p.parseExpr()
	if p.tok == token.RPAREN {
		end := p.expect(token.RPAREN)
		// a single parenthesized expression without a trailing comma is not
		// a tuple; represent it as a 1-ary grouping via TupleExpr would lose
		// that distinction, so just return the inner expression.
		_ = end
		return first
	}

	elems := []ast.Expr{first}
	for p.accept(token.COMMA) {
		if p.tok == token.RPAREN {
			break
		}
		elems = append(elems, p.parseExpr())
	}
	end := p.expect(token.RPAREN)
	return &ast.TupleExpr{Start: start, EndLoc: end, Elems: elems}
}

func (p *parser) parseArrayExpr() ast.Expr {
	start := p.expect(token.LBRACK)
	if p.tok == token.RBRACK {
		end := p.expect(token.RBRACK)
		return &ast.ArrayExpr{Start: start, EndLoc: end}
	}

	first := p.parseExpr()
	if p.tok == token.SEMI {
		p.advance()
		count := p.parseExpr()
		end := p.expect(token.RBRACK)
		return &ast.ArrayRepeatExpr{Start: start, EndLoc: end, Value: first, Count: count}
	}

	elems := []ast.Expr{first}
	for p.accept(token.COMMA) {
		if p.tok == token.RBRACK {
			break
		}
		elems = append(elems, p.parseExpr())
	}
	end := p.expect(token.RBRACK)
	return &ast.ArrayExpr{Start: start, EndLoc: end, Elems: elems}
}

func (p *parser) parseBlockExprNode() *ast.BlockExpr {
	return &ast.BlockExpr{Block: p.parseBlock()}
}

func (p *parser) parseIfExpr() ast.Expr {
	start := p.expect(token.IF)

	p.noStructLiteral = true
	cond := p.parseExpr()
	p.noStructLiteral = false

	then := p.parseBlockExprNode()

	var elseExpr ast.Expr
	if p.accept(token.ELSE) {
		if p.tok == token.IF {
			elseExpr = p.parseIfExpr()
		} else {
			elseExpr = p.parseBlockExprNode()
		}
	}
	return &ast.IfExpr{Start: start, Cond: cond, Then: then, Else: elseExpr}
}

func (p *parser) parseMatchExpr() ast.Expr {
	start := p.expect(token.MATCH)

	p.noStructLiteral = true
	scrutinee := p.parseExpr()
	p.noStructLiteral = false

	p.expect(token.LBRACE)
	var arms []ast.MatchArm
	for p.tok != token.RBRACE && p.tok != token.EOF {
		var pat ast.Expr
		if p.tok == token.UNDERSCORE {
			p.advance()
		} else {
			pat = p.parseExpr()
		}
		p.expect(token.FATARROW)
		body := p.parseExpr()
		arms = append(arms, ast.MatchArm{Pattern: pat, Body: body})
		if !p.accept(token.COMMA) {
			break
		}
	}
	end := p.expect(token.RBRACE)
	return &ast.MatchExpr{Start: start, EndLoc: end, Scrutinee: scrutinee, Arms: arms}
}

func (p *parser) parseExprList() []ast.Expr {
	var exprs []ast.Expr
	exprs = append(exprs, p.parseExpr())
	for p.accept(token.COMMA) {
		exprs = append(exprs, p.parseExpr())
	}
	return exprs
}
