package ast

import (
	"fmt"
	"io"
	"strings"

	"github.com/zinc-lang/zinc/internal/fileset"
)

// Printer controls pretty-printing of the syntax tree, mainly useful for
// debugging the parser.
type Printer struct {
	// Output is the io.Writer to print to.
	Output io.Writer

	// FileSet resolves Span locations to file paths; when nil, locations are
	// omitted from the output.
	FileSet *fileset.FileSet
}

// Print walks n depth-first, writing one indented line per node.
func (p *Printer) Print(n Node) error {
	pp := &printer{w: p.Output, fs: p.FileSet}
	Walk(pp, n)
	return pp.err
}

type printer struct {
	w     io.Writer
	fs    *fileset.FileSet
	depth int
	err   error
}

func (p *printer) Visit(n Node, dir VisitDirection) Visitor {
	if dir == VisitExit || p.err != nil {
		p.depth--
		return nil
	}
	p.printNode(n, p.depth)
	p.depth++
	return p
}

func (p *printer) printNode(n Node, indent int) {
	if p.err != nil {
		return
	}
	prefix := strings.Repeat(". ", indent)
	if p.fs == nil {
		_, p.err = fmt.Fprintf(p.w, "%s%v\n", prefix, n)
		return
	}
	start, _ := n.Span()
	_, p.err = fmt.Fprintf(p.w, "%s[%s:%d:%d] %v\n", prefix, p.fs.Path(start.File), start.Line, start.Col, n)
}
