package ast

import (
	"fmt"
	"strings"

	"github.com/zinc-lang/zinc/internal/fileset"
)

// TypeNode is a syntactic type expression (§4.4 "type construction").
type TypeNode interface {
	Node
	typeNode()
}

type (
	// NamedTypeNode is a path to a primitive keyword or a nominal type, with
	// optional generic type arguments (e.g. MTreeMap<K, V>).
	NamedTypeNode struct {
		Start fileset.Location
		Path  []string
		Args  []TypeNode // generic type arguments, empty for non-generic types
		EndLoc fileset.Location
	}

	// ArrayTypeNode is "[T; N]".
	ArrayTypeNode struct {
		Start  fileset.Location
		Elem   TypeNode
		Size   Expr
		EndLoc fileset.Location
	}

	// TupleTypeNode is "(T1, T2, ...)"; zero elements denotes unit.
	TupleTypeNode struct {
		Start, EndLoc fileset.Location
		Elems         []TypeNode
	}
)

func (n *NamedTypeNode) Format(f fmt.State, verb rune) {
	format(f, verb, n, "type "+strings.Join(n.Path, "::"), nil)
}
func (n *NamedTypeNode) Span() (start, end fileset.Location) { return n.Start, n.EndLoc }
func (n *NamedTypeNode) Walk(v Visitor) {
	for _, a := range n.Args {
		Walk(v, a)
	}
}
func (n *NamedTypeNode) typeNode() {}

func (n *ArrayTypeNode) Format(f fmt.State, verb rune) { format(f, verb, n, "array type", nil) }
func (n *ArrayTypeNode) Span() (start, end fileset.Location) { return n.Start, n.EndLoc }
func (n *ArrayTypeNode) Walk(v Visitor) {
	Walk(v, n.Elem)
	Walk(v, n.Size)
}
func (n *ArrayTypeNode) typeNode() {}

func (n *TupleTypeNode) Format(f fmt.State, verb rune) {
	format(f, verb, n, "tuple type", map[string]int{"elems": len(n.Elems)})
}
func (n *TupleTypeNode) Span() (start, end fileset.Location) { return n.Start, n.EndLoc }
func (n *TupleTypeNode) Walk(v Visitor) {
	for _, e := range n.Elems {
		Walk(v, e)
	}
}
func (n *TupleTypeNode) typeNode() {}
