package parser

import (
	"github.com/zinc-lang/zinc/lang/ast"
	"github.com/zinc-lang/zinc/lang/token"
)

// parseType parses a type expression: a named path with optional generic
// arguments, an array type "[T; N]", or a tuple type "(T1, T2, ...)".
func (p *parser) parseType() ast.TypeNode {
	switch p.tok {
	case token.LBRACK:
		return p.parseArrayType()
	case token.LPAREN:
		return p.parseTupleType()
	default:
		return p.parseNamedType()
	}
}

func (p *parser) parseNamedType() *ast.NamedTypeNode {
	start := p.loc
	path := []string{string(p.val.Raw)}
	p.expect(token.IDENT, token.SELF_TYPE, token.FIELD)

	for p.tok == token.COLONCOLON {
		p.advance()
		path = append(path, p.val.Raw)
		p.expect(token.IDENT)
	}

	var args []ast.TypeNode
	end := p.loc
	if p.tok == token.LT {
		p.advance()
		for p.tok != token.GT && p.tok != token.EOF {
			args = append(args, p.parseType())
			if !p.accept(token.COMMA) {
				break
			}
		}
		end = p.expect(token.GT)
	}

	return &ast.NamedTypeNode{Start: start, Path: path, Args: args, EndLoc: end}
}

func (p *parser) parseArrayType() *ast.ArrayTypeNode {
	start := p.expect(token.LBRACK)
	elem := p.parseType()
	p.expect(token.SEMI)
	size := p.parseExpr()
	end := p.expect(token.RBRACK)
	return &ast.ArrayTypeNode{Start: start, Elem: elem, Size: size, EndLoc: end}
}

func (p *parser) parseTupleType() *ast.TupleTypeNode {
	start := p.expect(token.LPAREN)
	var elems []ast.TypeNode
	for p.tok != token.RPAREN && p.tok != token.EOF {
		elems = append(elems, p.parseType())
		if !p.accept(token.COMMA) {
			break
		}
	}
	end := p.expect(token.RPAREN)
	return &ast.TupleTypeNode{Start: start, EndLoc: end, Elems: elems}
}
