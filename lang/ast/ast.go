// Package ast defines the untyped syntax tree produced by the parser: one
// node type per grammar production, each carrying enough source location to
// drive diagnostics, following the teacher's ast package shape (a Node
// interface with Span/Walk/Format).
package ast

import (
	"fmt"
	"sort"
	"strings"

	"github.com/zinc-lang/zinc/internal/fileset"
)

// Node is any node of the syntax tree.
type Node interface {
	fmt.Formatter
	Span() (start, end fileset.Location)
	Walk(v Visitor)
}

// Expr is any expression node.
type Expr interface {
	Node
	expr()
}

// Stmt is any statement node.
type Stmt interface {
	Node
	stmt()
}

// Item is a top-level or impl-level declaration (fn/struct/enum/impl/mod/
// use/type/contract/const).
type Item interface {
	Stmt
	item()
}

// Module is the parsed form of a single source file: its ordered sequence of
// top-level items.
type Module struct {
	FileID fileset.FileID
	Name   string
	Items  []Item
}

func (n *Module) Format(f fmt.State, verb rune) { format(f, verb, n, "module "+n.Name, nil) }
func (n *Module) Span() (start, end fileset.Location) {
	if len(n.Items) == 0 {
		return fileset.Location{File: n.FileID, Line: 1, Col: 1}, fileset.Location{File: n.FileID, Line: 1, Col: 1}
	}
	start, _ = n.Items[0].Span()
	_, end = n.Items[len(n.Items)-1].Span()
	return start, end
}
func (n *Module) Walk(v Visitor) {
	for _, it := range n.Items {
		Walk(v, it)
	}
}

// Block is a brace-delimited sequence of statements with an optional tail
// expression (§4.2: "{ stmts; tail }").
type Block struct {
	Start, End fileset.Location
	Stmts      []Stmt
	Tail       Expr
}

func (n *Block) Format(f fmt.State, verb rune) {
	format(f, verb, n, "block", map[string]int{"stmts": len(n.Stmts)})
}
func (n *Block) Span() (start, end fileset.Location) { return n.Start, n.End }
func (n *Block) Walk(v Visitor) {
	for _, s := range n.Stmts {
		Walk(v, s)
	}
	if n.Tail != nil {
		Walk(v, n.Tail)
	}
}
func (n *Block) expr() {}

// BadExpr is a placeholder for a syntactically invalid expression, produced
// during panic-mode error recovery so that parsing of the surrounding tree
// can continue.
type BadExpr struct {
	Start, End fileset.Location
}

func (n *BadExpr) Format(f fmt.State, verb rune)       { format(f, verb, n, "bad expr", nil) }
func (n *BadExpr) Span() (start, end fileset.Location) { return n.Start, n.End }
func (n *BadExpr) Walk(v Visitor)                      {}
func (n *BadExpr) expr()                               {}

// BadStmt is a placeholder for a syntactically invalid statement, produced
// during panic-mode error recovery.
type BadStmt struct {
	Start, End fileset.Location
}

func (n *BadStmt) Format(f fmt.State, verb rune)       { format(f, verb, n, "bad stmt", nil) }
func (n *BadStmt) Span() (start, end fileset.Location) { return n.Start, n.End }
func (n *BadStmt) Walk(v Visitor)                      {}
func (n *BadStmt) stmt()                               {}

// BadItem is a placeholder for a syntactically invalid top-level item.
type BadItem struct {
	Start, End fileset.Location
}

func (n *BadItem) Format(f fmt.State, verb rune)       { format(f, verb, n, "bad item", nil) }
func (n *BadItem) Span() (start, end fileset.Location) { return n.Start, n.End }
func (n *BadItem) Walk(v Visitor)                      {}
func (n *BadItem) stmt()                               {}
func (n *BadItem) item()                               {}

func format(f fmt.State, verb rune, n Node, label string, counts map[string]int) {
	if verb != 'v' && verb != 's' {
		fmt.Fprintf(f, "%%!%c(%T)", verb, n)
		return
	}
	label = strings.ReplaceAll(label, "\n", "⏎")
	fmt.Fprint(f, label)
	if f.Flag('#') && len(counts) > 0 {
		keys := make([]string, 0, len(counts))
		for k := range counts {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fmt.Fprint(f, " {")
		for i, k := range keys {
			if i > 0 {
				fmt.Fprint(f, ", ")
			}
			fmt.Fprintf(f, "%s=%d", k, counts[k])
		}
		fmt.Fprint(f, "}")
	}
}
