package ast

import (
	"fmt"
	"math/big"

	"github.com/zinc-lang/zinc/internal/fileset"
	"github.com/zinc-lang/zinc/lang/token"
)

type (
	// IdentExpr is a bare identifier reference.
	IdentExpr struct {
		Loc  fileset.Location
		Name string
	}

	// IntLiteralExpr is an integer literal (§4.1).
	IntLiteralExpr struct {
		Loc   fileset.Location
		Raw   string
		Value *big.Int
	}

	// BoolLiteralExpr is `true` or `false`.
	BoolLiteralExpr struct {
		Loc   fileset.Location
		Value bool
	}

	// StringLiteralExpr is a double-quoted string, compile-time only (§3).
	StringLiteralExpr struct {
		Loc   fileset.Location
		Value string
	}

	// PathExpr is a `::`-separated identifier path, e.g. Color::Red.
	PathExpr struct {
		Segments []string
		Locs     []fileset.Location
	}

	// TupleExpr is a tuple literal "(a, b, ...)".
	TupleExpr struct {
		Start, EndLoc fileset.Location
		Elems         []Expr
	}

	// ArrayExpr is an array literal "[a, b, ...]".
	ArrayExpr struct {
		Start, EndLoc fileset.Location
		Elems         []Expr
	}

	// ArrayRepeatExpr is "[value; count]".
	ArrayRepeatExpr struct {
		Start, EndLoc fileset.Location
		Value         Expr
		Count         Expr
	}

	// StructFieldInit is one `field: expr` entry of a structure literal.
	StructFieldInit struct {
		Name  string
		Loc   fileset.Location
		Value Expr
	}

	// StructExpr is a structure literal "Name { field: expr, ... }".
	StructExpr struct {
		Start, EndLoc fileset.Location
		Path          *PathExpr
		Fields        []StructFieldInit
	}

	// BlockExpr wraps a Block used in expression position.
	BlockExpr struct {
		*Block
	}

	// IfExpr is "if cond { .. } else { .. }"; Else may be nil, a *BlockExpr or
	// another *IfExpr (else-if chains).
	IfExpr struct {
		Start fileset.Location
		Cond  Expr
		Then  *BlockExpr
		Else  Expr
	}

	// MatchArm is one "pattern => expr" arm of a match expression. Pattern is
	// nil for the wildcard arm `_`.
	MatchArm struct {
		Pattern Expr
		Body    Expr
	}

	// MatchExpr is "match scrutinee { pat => expr, ... }".
	MatchExpr struct {
		Start, EndLoc fileset.Location
		Scrutinee     Expr
		Arms          []MatchArm
	}

	// BinaryExpr is a binary operator expression.
	BinaryExpr struct {
		Left  Expr
		Op    token.Token
		OpLoc fileset.Location
		Right Expr
	}

	// UnaryExpr is a unary operator expression (! or unary -).
	UnaryExpr struct {
		Op      token.Token
		OpLoc   fileset.Location
		Operand Expr
	}

	// CastExpr is "expr as Type".
	CastExpr struct {
		Operand Expr
		Type    TypeNode
		EndLoc  fileset.Location
	}

	// RangeExpr is "start..end" or "start..=end".
	RangeExpr struct {
		Start     Expr
		End       Expr
		Inclusive bool
	}

	// CallExpr is a function/method call "callee(args)", or an intrinsic call
	// "name!(args)" when Bang is true.
	CallExpr struct {
		Callee Expr
		Bang   bool
		Args   []Expr
		EndLoc fileset.Location
	}

	// IndexExpr is "base[index]".
	IndexExpr struct {
		Base   Expr
		Index  Expr
		EndLoc fileset.Location
	}

	// FieldExpr is "base.field" (named field access).
	FieldExpr struct {
		Base   Expr
		Field  string
		EndLoc fileset.Location
	}

	// TupleIndexExpr is "base.0" (tuple element access).
	TupleIndexExpr struct {
		Base   Expr
		Index  int
		EndLoc fileset.Location
	}

	// AssignExpr is "place = value".
	AssignExpr struct {
		Target Expr
		Value  Expr
	}
)

func (n *IdentExpr) Format(f fmt.State, verb rune)       { format(f, verb, n, "ident "+n.Name, nil) }
func (n *IdentExpr) Span() (start, end fileset.Location) { return n.Loc, n.Loc }
func (n *IdentExpr) Walk(v Visitor)                      {}
func (n *IdentExpr) expr()                               {}

func (n *IntLiteralExpr) Format(f fmt.State, verb rune)       { format(f, verb, n, "int "+n.Raw, nil) }
func (n *IntLiteralExpr) Span() (start, end fileset.Location) { return n.Loc, n.Loc }
func (n *IntLiteralExpr) Walk(v Visitor)                      {}
func (n *IntLiteralExpr) expr()                               {}

func (n *BoolLiteralExpr) Format(f fmt.State, verb rune)       { format(f, verb, n, "bool", nil) }
func (n *BoolLiteralExpr) Span() (start, end fileset.Location) { return n.Loc, n.Loc }
func (n *BoolLiteralExpr) Walk(v Visitor)                      {}
func (n *BoolLiteralExpr) expr()                               {}

func (n *StringLiteralExpr) Format(f fmt.State, verb rune)       { format(f, verb, n, "string", nil) }
func (n *StringLiteralExpr) Span() (start, end fileset.Location) { return n.Loc, n.Loc }
func (n *StringLiteralExpr) Walk(v Visitor)                      {}
func (n *StringLiteralExpr) expr()                               {}

func (n *PathExpr) Format(f fmt.State, verb rune) { format(f, verb, n, "path", nil) }
func (n *PathExpr) Span() (start, end fileset.Location) {
	if len(n.Locs) == 0 {
		return fileset.Location{}, fileset.Location{}
	}
	return n.Locs[0], n.Locs[len(n.Locs)-1]
}
func (n *PathExpr) Walk(v Visitor) {}
func (n *PathExpr) expr()          {}

func (n *TupleExpr) Format(f fmt.State, verb rune) {
	format(f, verb, n, "tuple", map[string]int{"elems": len(n.Elems)})
}
func (n *TupleExpr) Span() (start, end fileset.Location) { return n.Start, n.EndLoc }
func (n *TupleExpr) Walk(v Visitor) {
	for _, e := range n.Elems {
		Walk(v, e)
	}
}
func (n *TupleExpr) expr() {}

func (n *ArrayExpr) Format(f fmt.State, verb rune) {
	format(f, verb, n, "array", map[string]int{"elems": len(n.Elems)})
}
func (n *ArrayExpr) Span() (start, end fileset.Location) { return n.Start, n.EndLoc }
func (n *ArrayExpr) Walk(v Visitor) {
	for _, e := range n.Elems {
		Walk(v, e)
	}
}
func (n *ArrayExpr) expr() {}

func (n *ArrayRepeatExpr) Format(f fmt.State, verb rune)       { format(f, verb, n, "array repeat", nil) }
func (n *ArrayRepeatExpr) Span() (start, end fileset.Location) { return n.Start, n.EndLoc }
func (n *ArrayRepeatExpr) Walk(v Visitor) {
	Walk(v, n.Value)
	Walk(v, n.Count)
}
func (n *ArrayRepeatExpr) expr() {}

func (n *StructExpr) Format(f fmt.State, verb rune) {
	format(f, verb, n, "struct literal", map[string]int{"fields": len(n.Fields)})
}
func (n *StructExpr) Span() (start, end fileset.Location) { return n.Start, n.EndLoc }
func (n *StructExpr) Walk(v Visitor) {
	Walk(v, n.Path)
	for _, fd := range n.Fields {
		Walk(v, fd.Value)
	}
}
func (n *StructExpr) expr() {}

func (n *BlockExpr) expr() {}

func (n *IfExpr) Format(f fmt.State, verb rune) { format(f, verb, n, "if", nil) }
func (n *IfExpr) Span() (start, end fileset.Location) {
	_, end = n.Then.Span()
	if n.Else != nil {
		_, end = n.Else.Span()
	}
	return n.Start, end
}
func (n *IfExpr) Walk(v Visitor) {
	Walk(v, n.Cond)
	Walk(v, n.Then)
	if n.Else != nil {
		Walk(v, n.Else)
	}
}
func (n *IfExpr) expr() {}

func (n *MatchExpr) Format(f fmt.State, verb rune) {
	format(f, verb, n, "match", map[string]int{"arms": len(n.Arms)})
}
func (n *MatchExpr) Span() (start, end fileset.Location) { return n.Start, n.EndLoc }
func (n *MatchExpr) Walk(v Visitor) {
	Walk(v, n.Scrutinee)
	for _, a := range n.Arms {
		if a.Pattern != nil {
			Walk(v, a.Pattern)
		}
		Walk(v, a.Body)
	}
}
func (n *MatchExpr) expr() {}

func (n *BinaryExpr) Format(f fmt.State, verb rune) {
	format(f, verb, n, "binary "+n.Op.GoString(), nil)
}
func (n *BinaryExpr) Span() (start, end fileset.Location) {
	start, _ = n.Left.Span()
	_, end = n.Right.Span()
	return start, end
}
func (n *BinaryExpr) Walk(v Visitor) {
	Walk(v, n.Left)
	Walk(v, n.Right)
}
func (n *BinaryExpr) expr() {}

func (n *UnaryExpr) Format(f fmt.State, verb rune) {
	format(f, verb, n, "unary "+n.Op.GoString(), nil)
}
func (n *UnaryExpr) Span() (start, end fileset.Location) {
	_, end = n.Operand.Span()
	return n.OpLoc, end
}
func (n *UnaryExpr) Walk(v Visitor) { Walk(v, n.Operand) }
func (n *UnaryExpr) expr()          {}

func (n *CastExpr) Format(f fmt.State, verb rune) { format(f, verb, n, "cast", nil) }
func (n *CastExpr) Span() (start, end fileset.Location) {
	start, _ = n.Operand.Span()
	return start, n.EndLoc
}
func (n *CastExpr) Walk(v Visitor) {
	Walk(v, n.Operand)
	Walk(v, n.Type)
}
func (n *CastExpr) expr() {}

func (n *RangeExpr) Format(f fmt.State, verb rune) { format(f, verb, n, "range", nil) }
func (n *RangeExpr) Span() (start, end fileset.Location) {
	start, _ = n.Start.Span()
	_, end = n.End.Span()
	return start, end
}
func (n *RangeExpr) Walk(v Visitor) {
	Walk(v, n.Start)
	Walk(v, n.End)
}
func (n *RangeExpr) expr() {}

func (n *CallExpr) Format(f fmt.State, verb rune) {
	format(f, verb, n, "call", map[string]int{"args": len(n.Args)})
}
func (n *CallExpr) Span() (start, end fileset.Location) {
	start, _ = n.Callee.Span()
	return start, n.EndLoc
}
func (n *CallExpr) Walk(v Visitor) {
	Walk(v, n.Callee)
	for _, a := range n.Args {
		Walk(v, a)
	}
}
func (n *CallExpr) expr() {}

func (n *IndexExpr) Format(f fmt.State, verb rune) { format(f, verb, n, "index", nil) }
func (n *IndexExpr) Span() (start, end fileset.Location) {
	start, _ = n.Base.Span()
	return start, n.EndLoc
}
func (n *IndexExpr) Walk(v Visitor) {
	Walk(v, n.Base)
	Walk(v, n.Index)
}
func (n *IndexExpr) expr() {}

func (n *FieldExpr) Format(f fmt.State, verb rune) { format(f, verb, n, "field "+n.Field, nil) }
func (n *FieldExpr) Span() (start, end fileset.Location) {
	start, _ = n.Base.Span()
	return start, n.EndLoc
}
func (n *FieldExpr) Walk(v Visitor) { Walk(v, n.Base) }
func (n *FieldExpr) expr()          {}

func (n *TupleIndexExpr) Format(f fmt.State, verb rune) { format(f, verb, n, "tuple index", nil) }
func (n *TupleIndexExpr) Span() (start, end fileset.Location) {
	start, _ = n.Base.Span()
	return start, n.EndLoc
}
func (n *TupleIndexExpr) Walk(v Visitor) { Walk(v, n.Base) }
func (n *TupleIndexExpr) expr()          {}

func (n *AssignExpr) Format(f fmt.State, verb rune) { format(f, verb, n, "assign", nil) }
func (n *AssignExpr) Span() (start, end fileset.Location) {
	start, _ = n.Target.Span()
	_, end = n.Value.Span()
	return start, end
}
func (n *AssignExpr) Walk(v Visitor) {
	Walk(v, n.Target)
	Walk(v, n.Value)
}
func (n *AssignExpr) expr() {}
