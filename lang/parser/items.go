package parser

import (
	"math/big"

	"github.com/zinc-lang/zinc/internal/fileset"
	"github.com/zinc-lang/zinc/lang/ast"
	"github.com/zinc-lang/zinc/lang/token"
)

// parseModule parses every top-level item in the file until EOF.
func (p *parser) parseModule(name string) *ast.Module {
	mod := &ast.Module{Name: name}

	for p.tok != token.EOF {
		item := p.parseTopLevelItem()
		if item != nil {
			mod.Items = append(mod.Items, item)
		}
	}
	return mod
}

func (p *parser) parseTopLevelItem() (item ast.Item) {
	start := p.loc
	defer func() {
		if r := recover(); r != nil {
			if r == errPanicMode {
				p.synchronize()
				item = &ast.BadItem{Start: start, End: p.loc}
				return
			}
			panic(r)
		}
	}()
	return p.parseItem()
}

// parseItem parses a single item: optional attributes, optional "pub", then
// one of fn/struct/enum/impl/mod/use/type/contract/const.
func (p *parser) parseItem() ast.Item {
	attrs := p.parseAttrs()

	pub := p.accept(token.PUB)

	switch p.tok {
	case token.FN:
		return p.parseFnDecl(attrs, pub)
	case token.STRUCT:
		return p.parseStructDecl(pub)
	case token.ENUM:
		return p.parseEnumDecl(pub)
	case token.IMPL:
		return p.parseImplDecl()
	case token.MOD:
		return p.parseModDecl()
	case token.USE:
		return p.parseUseDecl()
	case token.TYPE:
		return p.parseTypeDecl()
	case token.CONTRACT:
		return p.parseContractDecl()
	case token.CONST:
		return p.parseConstStmt()
	default:
		p.errorExpected(token.FN, token.STRUCT, token.ENUM, token.IMPL, token.MOD, token.USE, token.TYPE, token.CONTRACT, token.CONST)
		panic(errPanicMode)
	}
}

// parseAttrs parses zero or more "#[name]" / "#[name(arg)]" attributes.
func (p *parser) parseAttrs() []ast.Attr {
	var attrs []ast.Attr
	for p.tok == token.HASH {
		loc := p.loc
		p.advance()
		p.expect(token.LBRACK)
		name := p.val.Raw
		p.expect(token.IDENT)

		var arg string
		if p.accept(token.LPAREN) {
			switch p.tok {
			case token.STRING:
				arg = p.val.Str
				p.advance()
			case token.IDENT:
				arg = p.val.Raw
				p.advance()
				if p.accept(token.EQ) {
					if p.tok == token.STRING {
						arg = arg + "=" + p.val.Str
						p.advance()
					} else {
						arg = arg + "=" + p.val.Raw
						p.advance()
					}
				}
			}
			p.expect(token.RPAREN)
		}
		p.expect(token.RBRACK)
		attrs = append(attrs, ast.Attr{Loc: loc, Name: name, Arg: arg})
	}
	return attrs
}

func (p *parser) parseFnDecl(attrs []ast.Attr, pub bool) *ast.FnDecl {
	start := p.expect(token.FN)
	nameLoc := p.loc
	name := p.val.Raw
	p.expect(token.IDENT)

	p.expect(token.LPAREN)
	var params []ast.Param
	for p.tok != token.RPAREN && p.tok != token.EOF {
		if p.tok == token.SELF_VALUE {
			pLoc := p.loc
			p.advance()
			params = append(params, ast.Param{Name: "self", NameLoc: pLoc})
		} else {
			pLoc := p.loc
			pName := p.val.Raw
			p.expect(token.IDENT)
			p.expect(token.COLON)
			ty := p.parseType()
			params = append(params, ast.Param{Name: pName, NameLoc: pLoc, Type: ty})
		}
		if !p.accept(token.COMMA) {
			break
		}
	}
	p.expect(token.RPAREN)

	var ret ast.TypeNode
	if p.accept(token.ARROW) {
		ret = p.parseType()
	}

	body := p.parseBlock()
	return &ast.FnDecl{Start: start, Attrs: attrs, Pub: pub, Name: name, NameLoc: nameLoc, Params: params, Ret: ret, Body: body}
}

// parseFieldDecl parses one struct field: "[pub] name: Type".
func (p *parser) parseFieldDecl() ast.FieldDecl {
	loc := p.loc
	pub := p.accept(token.PUB)
	name := p.val.Raw
	p.expect(token.IDENT)
	p.expect(token.COLON)
	ty := p.parseType()
	return ast.FieldDecl{Loc: loc, Pub: pub, Name: name, Type: ty}
}

// parseStorageFieldDecl parses one contract storage field: "field [pub]
// [const] name: Type;" (§3, §4.2). "const" marks the field immutable after
// the constructor runs.
func (p *parser) parseStorageFieldDecl() *ast.FieldDecl {
	loc := p.expect(token.FIELD)
	pub := p.accept(token.PUB)
	immutable := p.accept(token.CONST)
	name := p.val.Raw
	p.expect(token.IDENT)
	p.expect(token.COLON)
	ty := p.parseType()
	p.expect(token.SEMI)
	return &ast.FieldDecl{Loc: loc, Pub: pub, Immutable: immutable, Name: name, Type: ty}
}

func (p *parser) parseStructDecl(pub bool) *ast.StructDecl {
	start := p.expect(token.STRUCT)
	nameLoc := p.loc
	name := p.val.Raw
	p.expect(token.IDENT)
	p.expect(token.LBRACE)

	var fields []ast.FieldDecl
	for p.tok != token.RBRACE && p.tok != token.EOF {
		fields = append(fields, p.parseFieldDecl())
		if !p.accept(token.COMMA) {
			break
		}
	}
	end := p.expect(token.RBRACE)
	return &ast.StructDecl{Start: start, Pub: pub, Name: name, NameLoc: nameLoc, Fields: fields, EndLoc: end}
}

func (p *parser) parseEnumDecl(pub bool) *ast.EnumDecl {
	start := p.expect(token.ENUM)
	nameLoc := p.loc
	name := p.val.Raw
	p.expect(token.IDENT)
	p.expect(token.LBRACE)

	var variants []ast.EnumVariant
	for p.tok != token.RBRACE && p.tok != token.EOF {
		vLoc := p.loc
		vName := p.val.Raw
		p.expect(token.IDENT)
		var val *big.Int
		if p.accept(token.EQ) {
			val = p.val.Int
			p.expect(token.INT)
		}
		variants = append(variants, ast.EnumVariant{Loc: vLoc, Name: vName, Value: val})
		if !p.accept(token.COMMA) {
			break
		}
	}
	end := p.expect(token.RBRACE)
	return &ast.EnumDecl{Start: start, Pub: pub, Name: name, NameLoc: nameLoc, Variants: variants, EndLoc: end}
}

func (p *parser) parseImplDecl() *ast.ImplDecl {
	start := p.expect(token.IMPL)
	nameLoc := p.loc
	name := p.val.Raw
	p.expect(token.IDENT)
	p.expect(token.LBRACE)

	var items []ast.Item
	for p.tok != token.RBRACE && p.tok != token.EOF {
		items = append(items, p.parseTopLevelItem())
	}
	end := p.expect(token.RBRACE)
	return &ast.ImplDecl{Start: start, Name: name, NameLoc: nameLoc, Items: items, EndLoc: end}
}

func (p *parser) parseModDecl() *ast.ModDecl {
	start := p.expect(token.MOD)
	nameLoc := p.loc
	name := p.val.Raw
	p.expect(token.IDENT)

	if p.accept(token.SEMI) {
		return &ast.ModDecl{Start: start, Name: name, NameLoc: nameLoc, EndLoc: p.loc}
	}

	p.expect(token.LBRACE)
	var items []ast.Item
	for p.tok != token.RBRACE && p.tok != token.EOF {
		items = append(items, p.parseTopLevelItem())
	}
	end := p.expect(token.RBRACE)
	return &ast.ModDecl{Start: start, Name: name, NameLoc: nameLoc, Items: items, EndLoc: end}
}

func (p *parser) parseUseDecl() *ast.UseDecl {
	start := p.expect(token.USE)
	segLoc := p.loc
	seg := p.val.Raw
	p.expect(token.IDENT)
	path := &ast.PathExpr{Segments: []string{seg}, Locs: []fileset.Location{segLoc}}
	for p.tok == token.COLONCOLON {
		p.advance()
		segLoc = p.loc
		seg = p.val.Raw
		p.expect(token.IDENT)
		path.Segments = append(path.Segments, seg)
		path.Locs = append(path.Locs, segLoc)
	}
	end := p.expect(token.SEMI)
	return &ast.UseDecl{Start: start, Path: path, EndLoc: end}
}

func (p *parser) parseTypeDecl() *ast.TypeDecl {
	start := p.expect(token.TYPE)
	nameLoc := p.loc
	name := p.val.Raw
	p.expect(token.IDENT)
	p.expect(token.EQ)
	ty := p.parseType()
	end := p.expect(token.SEMI)
	return &ast.TypeDecl{Start: start, Name: name, NameLoc: nameLoc, Type: ty, EndLoc: end}
}

func (p *parser) parseContractDecl() *ast.ContractDecl {
	start := p.expect(token.CONTRACT)
	nameLoc := p.loc
	name := p.val.Raw
	p.expect(token.IDENT)
	p.expect(token.LBRACE)

	var items []ast.Item
	for p.tok != token.RBRACE && p.tok != token.EOF {
		if p.tok == token.FIELD {
			items = append(items, p.parseStorageFieldDecl())
			continue
		}
		items = append(items, p.parseTopLevelItem())
	}
	end := p.expect(token.RBRACE)
	return &ast.ContractDecl{Start: start, Name: name, NameLoc: nameLoc, Items: items, EndLoc: end}
}
