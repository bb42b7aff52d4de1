package lexer

import (
	"github.com/zinc-lang/zinc/internal/diag"
	"github.com/zinc-lang/zinc/internal/fileset"
	"github.com/zinc-lang/zinc/lang/token"
)

// ScanAll tokenizes a single registered file in full, returning every token
// (including the trailing EOF) and any errors encountered. Scanning does not
// stop at the first error, mirroring the teacher's ScanFiles helper.
func ScanAll(fs *fileset.FileSet, id fileset.FileID) ([]TokenAndValue, error) {
	f := fs.File(id)
	if f == nil {
		return nil, nil
	}
	var l Lexer
	var errs diag.List
	l.Init(id, f.Content, &errs)

	var out []TokenAndValue
	for {
		tok, val, loc := l.Scan()
		out = append(out, TokenAndValue{Tok: tok, Val: val, Loc: loc})
		if tok == token.EOF {
			break
		}
	}
	return out, errs.Err()
}
