package ast

import (
	"fmt"
	"math/big"

	"github.com/zinc-lang/zinc/internal/fileset"
)

type (
	// LetStmt is "let [mut] name[: Type] = expr;".
	LetStmt struct {
		Start   fileset.Location
		Mut     bool
		Name    string
		NameLoc fileset.Location
		Type    TypeNode // nil when the type is inferred
		Value   Expr
		EndLoc  fileset.Location
	}

	// ConstStmt is "const NAME: Type = expr;", valid at module, impl, or
	// contract scope.
	ConstStmt struct {
		Start   fileset.Location
		Name    string
		NameLoc fileset.Location
		Type    TypeNode
		Value   Expr
		EndLoc  fileset.Location
	}

	// ExprStmt is a bare expression used as a statement.
	ExprStmt struct {
		X      Expr
		EndLoc fileset.Location
	}

	// ForStmt is a bounded, statically-unrolled loop (§4.2, §4.7): "for i in
	// lo..hi [while cond] { body }".
	ForStmt struct {
		Start       fileset.Location
		Index       string
		IndexLoc    fileset.Location
		Bound       *RangeExpr
		WhileCond   Expr // nil when there is no guard
		Body        *Block
	}

	// Attr is a `#[name]` or `#[name(arg)]` attribute attached to a function.
	Attr struct {
		Loc  fileset.Location
		Name string
		Arg  string
	}

	// Param is one function parameter.
	Param struct {
		Name    string
		NameLoc fileset.Location
		Type    TypeNode
	}

	// FnDecl is a function declaration, at module, impl, or contract scope.
	FnDecl struct {
		Start   fileset.Location
		Attrs   []Attr
		Pub     bool
		Name    string
		NameLoc fileset.Location
		Params  []Param
		Ret     TypeNode // nil means unit
		Body    *Block
	}

	// FieldDecl is one field of a struct or contract storage block.
	FieldDecl struct {
		Loc       fileset.Location
		Pub       bool
		Immutable bool
		Name      string
		Type      TypeNode
	}

	// StructDecl is "struct Name { fields }".
	StructDecl struct {
		Start   fileset.Location
		Pub     bool
		Name    string
		NameLoc fileset.Location
		Fields  []FieldDecl
		EndLoc  fileset.Location
	}

	// EnumVariant is one "Name[ = value]" variant of an enum.
	EnumVariant struct {
		Loc   fileset.Location
		Name  string
		Value *big.Int // nil when implicitly numbered
	}

	// EnumDecl is "enum Name { variants }".
	EnumDecl struct {
		Start    fileset.Location
		Pub      bool
		Name     string
		NameLoc  fileset.Location
		Variants []EnumVariant
		EndLoc   fileset.Location
	}

	// ImplDecl is "impl Name { items }", attaching methods/consts to a type.
	ImplDecl struct {
		Start   fileset.Location
		Name    string
		NameLoc fileset.Location
		Items   []Item
		EndLoc  fileset.Location
	}

	// ModDecl is "mod name;" or "mod name { items }".
	ModDecl struct {
		Start   fileset.Location
		Name    string
		NameLoc fileset.Location
		Items   []Item // nil for the file-reference form "mod name;"
		EndLoc  fileset.Location
	}

	// UseDecl is "use path::to::item;".
	UseDecl struct {
		Start  fileset.Location
		Path   *PathExpr
		EndLoc fileset.Location
	}

	// TypeDecl is "type Name = Type;", a type alias.
	TypeDecl struct {
		Start   fileset.Location
		Name    string
		NameLoc fileset.Location
		Type    TypeNode
		EndLoc  fileset.Location
	}

	// ContractDecl is "contract Name { storage fields and methods }".
	ContractDecl struct {
		Start   fileset.Location
		Name    string
		NameLoc fileset.Location
		Items   []Item
		EndLoc  fileset.Location
	}

	// EmptyStmt is a stray ";".
	EmptyStmt struct {
		Loc fileset.Location
	}
)

func (n *LetStmt) Format(f fmt.State, verb rune) { format(f, verb, n, "let "+n.Name, nil) }
func (n *LetStmt) Span() (start, end fileset.Location) { return n.Start, n.EndLoc }
func (n *LetStmt) Walk(v Visitor) {
	if n.Type != nil {
		Walk(v, n.Type)
	}
	Walk(v, n.Value)
}
func (n *LetStmt) stmt() {}

func (n *ConstStmt) Format(f fmt.State, verb rune) { format(f, verb, n, "const "+n.Name, nil) }
func (n *ConstStmt) Span() (start, end fileset.Location) { return n.Start, n.EndLoc }
func (n *ConstStmt) Walk(v Visitor) {
	Walk(v, n.Type)
	Walk(v, n.Value)
}
func (n *ConstStmt) stmt() {}
func (n *ConstStmt) item() {}

func (n *ExprStmt) Format(f fmt.State, verb rune) { format(f, verb, n, "expr stmt", nil) }
func (n *ExprStmt) Span() (start, end fileset.Location) {
	start, _ = n.X.Span()
	return start, n.EndLoc
}
func (n *ExprStmt) Walk(v Visitor) { Walk(v, n.X) }
func (n *ExprStmt) stmt()          {}

func (n *ForStmt) Format(f fmt.State, verb rune) { format(f, verb, n, "for "+n.Index, nil) }
func (n *ForStmt) Span() (start, end fileset.Location) {
	_, end = n.Body.Span()
	return n.Start, end
}
func (n *ForStmt) Walk(v Visitor) {
	Walk(v, n.Bound)
	if n.WhileCond != nil {
		Walk(v, n.WhileCond)
	}
	Walk(v, n.Body)
}
func (n *ForStmt) stmt() {}

func (n *FnDecl) Format(f fmt.State, verb rune) {
	format(f, verb, n, "fn "+n.Name, map[string]int{"params": len(n.Params)})
}
func (n *FnDecl) Span() (start, end fileset.Location) {
	_, end = n.Body.Span()
	return n.Start, end
}
func (n *FnDecl) Walk(v Visitor) {
	for _, p := range n.Params {
		if p.Type != nil {
			Walk(v, p.Type)
		}
	}
	if n.Ret != nil {
		Walk(v, n.Ret)
	}
	Walk(v, n.Body)
}
func (n *FnDecl) stmt() {}
func (n *FnDecl) item() {}

// HasAttr reports whether the function carries the named attribute, e.g.
// "test", "should_panic", "ignore".
func (n *FnDecl) HasAttr(name string) bool {
	for _, a := range n.Attrs {
		if a.Name == name {
			return true
		}
	}
	return false
}

// Format/Span/Walk/stmt/item let a *FieldDecl double as a contract storage
// item (§3 "contract storage"), alongside *FieldDecl values embedded by
// value inside StructDecl.Fields.
func (n *FieldDecl) Format(f fmt.State, verb rune) { format(f, verb, n, "field "+n.Name, nil) }
func (n *FieldDecl) Span() (start, end fileset.Location) {
	_, end = n.Type.Span()
	return n.Loc, end
}
func (n *FieldDecl) Walk(v Visitor) { Walk(v, n.Type) }
func (n *FieldDecl) stmt()          {}
func (n *FieldDecl) item()          {}

func (n *StructDecl) Format(f fmt.State, verb rune) {
	format(f, verb, n, "struct "+n.Name, map[string]int{"fields": len(n.Fields)})
}
func (n *StructDecl) Span() (start, end fileset.Location) { return n.Start, n.EndLoc }
func (n *StructDecl) Walk(v Visitor) {
	for _, fd := range n.Fields {
		Walk(v, fd.Type)
	}
}
func (n *StructDecl) stmt() {}
func (n *StructDecl) item() {}

func (n *EnumDecl) Format(f fmt.State, verb rune) {
	format(f, verb, n, "enum "+n.Name, map[string]int{"variants": len(n.Variants)})
}
func (n *EnumDecl) Span() (start, end fileset.Location) { return n.Start, n.EndLoc }
func (n *EnumDecl) Walk(v Visitor)                      {}
func (n *EnumDecl) stmt()                               {}
func (n *EnumDecl) item()                               {}

func (n *ImplDecl) Format(f fmt.State, verb rune) {
	format(f, verb, n, "impl "+n.Name, map[string]int{"items": len(n.Items)})
}
func (n *ImplDecl) Span() (start, end fileset.Location) { return n.Start, n.EndLoc }
func (n *ImplDecl) Walk(v Visitor) {
	for _, it := range n.Items {
		Walk(v, it)
	}
}
func (n *ImplDecl) stmt() {}
func (n *ImplDecl) item() {}

func (n *ModDecl) Format(f fmt.State, verb rune) { format(f, verb, n, "mod "+n.Name, nil) }
func (n *ModDecl) Span() (start, end fileset.Location) { return n.Start, n.EndLoc }
func (n *ModDecl) Walk(v Visitor) {
	for _, it := range n.Items {
		Walk(v, it)
	}
}
func (n *ModDecl) stmt() {}
func (n *ModDecl) item() {}

func (n *UseDecl) Format(f fmt.State, verb rune) { format(f, verb, n, "use", nil) }
func (n *UseDecl) Span() (start, end fileset.Location) { return n.Start, n.EndLoc }
func (n *UseDecl) Walk(v Visitor)                      { Walk(v, n.Path) }
func (n *UseDecl) stmt()                               {}
func (n *UseDecl) item()                               {}

func (n *TypeDecl) Format(f fmt.State, verb rune) { format(f, verb, n, "type "+n.Name, nil) }
func (n *TypeDecl) Span() (start, end fileset.Location) { return n.Start, n.EndLoc }
func (n *TypeDecl) Walk(v Visitor)                      { Walk(v, n.Type) }
func (n *TypeDecl) stmt()                               {}
func (n *TypeDecl) item()                               {}

func (n *ContractDecl) Format(f fmt.State, verb rune) {
	format(f, verb, n, "contract "+n.Name, map[string]int{"items": len(n.Items)})
}
func (n *ContractDecl) Span() (start, end fileset.Location) { return n.Start, n.EndLoc }
func (n *ContractDecl) Walk(v Visitor) {
	for _, it := range n.Items {
		Walk(v, it)
	}
}
func (n *ContractDecl) stmt() {}
func (n *ContractDecl) item() {}

func (n *EmptyStmt) Format(f fmt.State, verb rune)       { format(f, verb, n, "empty stmt", nil) }
func (n *EmptyStmt) Span() (start, end fileset.Location) { return n.Loc, n.Loc }
func (n *EmptyStmt) Walk(v Visitor)                      {}
func (n *EmptyStmt) stmt()                               {}
