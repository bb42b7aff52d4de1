// Package semantic implements the two-pass, scope-based semantic analyzer:
// name resolution, type construction, type checking and inference, casting,
// constant folding, match exhaustiveness and entry-point classification
// (§4.4), grounded on the teacher's lang/resolver package's declare-before-use
// block-scope walk, generalized to Zinc's nominal static type system.
package semantic

import (
	"fmt"

	"github.com/zinc-lang/zinc/internal/fileset"
)

// ErrorKind is the closed taxonomy of semantic errors (§4.4).
type ErrorKind int

const (
	_ ErrorKind = iota
	TypeMismatch
	TypeDuplicateField
	TypeInstantiationForbidden
	BindingExpectedTuple
	ConditionalBranchTypesMismatch
	MatchNotExhausted
	MatchBranchDuplicate
	LoopWhileExpectedBooleanCondition
	LoopBoundsExpectedConstantRangeExpression
	UseStatementExpectedPath
	ImplStatementExpectedStructureOrEnumeration
	FunctionArgumentCount
	FunctionArgumentType
	ConstantExpectedConstant
	LiteralTooLarge
	RedeclaredItem
	UndeclaredItem
	IntegerTypeMismatch
	CastingInvalid
	ExpressionNonConstantElement
	EntryPointAmbiguous
)

var errorKindNames = [...]string{
	TypeMismatch:                                 "TypeMismatch",
	TypeDuplicateField:                           "TypeDuplicateField",
	TypeInstantiationForbidden:                   "TypeInstantiationForbidden",
	BindingExpectedTuple:                         "BindingExpectedTuple",
	ConditionalBranchTypesMismatch:                "ConditionalBranchTypesMismatch",
	MatchNotExhausted:                            "MatchNotExhausted",
	MatchBranchDuplicate:                         "MatchBranchDuplicate",
	LoopWhileExpectedBooleanCondition:            "LoopWhileExpectedBooleanCondition",
	LoopBoundsExpectedConstantRangeExpression:    "LoopBoundsExpectedConstantRangeExpression",
	UseStatementExpectedPath:                     "UseStatementExpectedPath",
	ImplStatementExpectedStructureOrEnumeration:  "ImplStatementExpectedStructureOrEnumeration",
	FunctionArgumentCount:                        "FunctionArgumentCount",
	FunctionArgumentType:                         "FunctionArgumentType",
	ConstantExpectedConstant:                     "ConstantExpectedConstant",
	LiteralTooLarge:                              "LiteralTooLarge",
	RedeclaredItem:                               "RedeclaredItem",
	UndeclaredItem:                               "UndeclaredItem",
	IntegerTypeMismatch:                          "IntegerTypeMismatch",
	CastingInvalid:                               "CastingInvalid",
	ExpressionNonConstantElement:                 "ExpressionNonConstantElement",
	EntryPointAmbiguous:                          "EntryPointAmbiguous",
}

func (k ErrorKind) String() string {
	if int(k) >= 0 && int(k) < len(errorKindNames) && errorKindNames[k] != "" {
		return errorKindNames[k]
	}
	return "unknown"
}

// Error is one located semantic diagnostic.
type Error struct {
	Kind ErrorKind
	Loc  fileset.Location
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%d:%d: %s: %s", e.Loc.Line, e.Loc.Col, e.Kind, e.Msg)
}

// errorList accumulates Errors during a single analysis run.
type errorList struct {
	errs []*Error
}

func (l *errorList) add(kind ErrorKind, loc fileset.Location, format string, args ...interface{}) {
	l.errs = append(l.errs, &Error{Kind: kind, Loc: loc, Msg: fmt.Sprintf(format, args...)})
}

func (l *errorList) err() error {
	if len(l.errs) == 0 {
		return nil
	}
	out := make(errList, len(l.errs))
	copy(out, l.errs)
	return out
}

type errList []*Error

func (e errList) Error() string {
	s := ""
	for i, err := range e {
		if i > 0 {
			s += "\n"
		}
		s += err.Error()
	}
	return s
}

func (e errList) Unwrap() []error {
	out := make([]error, len(e))
	for i, err := range e {
		out[i] = err
	}
	return out
}
