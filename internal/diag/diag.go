// Package diag implements diagnostic collection and caret rendering shared by
// the lexer and parser, generalizing the teacher's go/scanner.ErrorList idiom
// to Zinc's fileset.Location. The semantic analyzer keeps its own list of
// typed errors instead.
package diag

import (
	"fmt"
	"sort"
	"strings"

	"github.com/zinc-lang/zinc/internal/fileset"
)

// Error is a single located diagnostic.
type Error struct {
	Loc fileset.Location
	Msg string
}

func (e Error) Error() string {
	if e.Loc.Unknown() {
		return e.Msg
	}
	return fmt.Sprintf("%d:%d: %s", e.Loc.Line, e.Loc.Col, e.Msg)
}

// List accumulates errors in the order they are reported, then can be sorted
// and rendered as a single combined error implementing Unwrap() []error, the
// same contract the teacher's scanner.ErrorList exposes.
type List struct {
	errs []Error
}

// Add appends a new diagnostic to the list.
func (l *List) Add(loc fileset.Location, format string, args ...interface{}) {
	l.errs = append(l.errs, Error{Loc: loc, Msg: fmt.Sprintf(format, args...)})
}

// Len reports the number of collected diagnostics.
func (l *List) Len() int { return len(l.errs) }

// Sort orders diagnostics by file, then line, then column.
func (l *List) Sort() {
	sort.SliceStable(l.errs, func(i, j int) bool {
		a, b := l.errs[i].Loc, l.errs[j].Loc
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Col < b.Col
	})
}

// Err returns nil if the list is empty, or a combined error otherwise.
func (l *List) Err() error {
	if len(l.errs) == 0 {
		return nil
	}
	cp := make(listErr, len(l.errs))
	copy(cp, l.errs)
	return cp
}

// All returns a copy of the collected diagnostics.
func (l *List) All() []Error {
	out := make([]Error, len(l.errs))
	copy(out, l.errs)
	return out
}

type listErr []Error

func (e listErr) Error() string {
	var sb strings.Builder
	for i, err := range e {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(err.Error())
	}
	return sb.String()
}

func (e listErr) Unwrap() []error {
	out := make([]error, len(e))
	for i, err := range e {
		out[i] = err
	}
	return out
}

// Render renders a single diagnostic with a caret pointing at its column,
// reading the offending line from fs. color enables ANSI highlighting of the
// caret (the CLI gates this on isatty).
func Render(fs *fileset.FileSet, e Error, color bool) string {
	var sb strings.Builder
	path := fs.Path(e.Loc.File)
	fmt.Fprintf(&sb, "%s:%d:%d: %s\n", path, e.Loc.Line, e.Loc.Col, e.Msg)
	line := fs.Line(e.Loc)
	if line == "" {
		return sb.String()
	}
	sb.WriteString(line)
	sb.WriteByte('\n')
	col := e.Loc.Col
	if col < 1 {
		col = 1
	}
	sb.WriteString(strings.Repeat(" ", col-1))
	if color {
		sb.WriteString("\x1b[31m^\x1b[0m")
	} else {
		sb.WriteByte('^')
	}
	return sb.String()
}
