package semantic

import (
	"github.com/zinc-lang/zinc/internal/fileset"
	"github.com/zinc-lang/zinc/lang/ast"
)

// EntryKind classifies what an application module is, per §4.4 "Entry point
// rules": exactly one of a main function (circuit), a contract, or neither
// plus at least one #[test] function (library).
type EntryKind int

const (
	EntryLibrary EntryKind = iota
	EntryCircuit
	EntryContract
)

func (k EntryKind) String() string {
	switch k {
	case EntryCircuit:
		return "circuit"
	case EntryContract:
		return "contract"
	default:
		return "library"
	}
}

type entryError struct {
	loc fileset.Location
	msg string
}

// classifyEntry scans a module's top-level items for main/contract/test
// declarations and reports EntryPointAmbiguous if more than one applies.
func classifyEntry(mod *ast.Module) (EntryKind, *entryError) {
	var mainFn *ast.FnDecl
	var contract *ast.ContractDecl
	hasTest := false

	for _, item := range mod.Items {
		switch it := item.(type) {
		case *ast.FnDecl:
			if it.Name == "main" {
				mainFn = it
			}
			if it.HasAttr("test") {
				hasTest = true
			}
		case *ast.ContractDecl:
			contract = it
		}
	}

	switch {
	case mainFn != nil && contract != nil:
		return EntryLibrary, &entryError{loc: contract.Start, msg: "a module may not declare both a main function and a contract"}
	case mainFn != nil:
		return EntryCircuit, nil
	case contract != nil:
		return EntryContract, nil
	case hasTest:
		return EntryLibrary, nil
	default:
		return EntryLibrary, nil
	}
}
