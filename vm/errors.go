package vm

import (
	"errors"
	"fmt"

	"github.com/zinc-lang/zinc/vm/gadgets"
	"github.com/zinc-lang/zinc/vm/storage"
)

// RunError is the closed runtime error taxonomy a circuit/method run can
// fail with (§4.7 "Failure model", §7 "Runtime" errors). Every VM-level
// error returned from RunCircuit/RunContractMethod implements it; a host
// switches on Kind rather than unwrapping sentinel errors, matching the
// bytecode artifact's own closed-enum style (Variant, LibraryID, TypeTag).
type RunError struct {
	Kind    ErrorKind
	Message string
	cause   error
}

// ErrorKind enumerates spec §4.7's six failure modes plus the host-level
// BytecodeError cases §6 names for load_bytecode.
type ErrorKind uint8

const (
	KindAssertionError ErrorKind = iota
	KindValueOverflow
	KindDivisionByZero
	KindIndexOutOfBounds
	KindMerkleAuthenticationFailed
	KindMalformedBytecode
	KindStorageNotInitialized
)

func (k ErrorKind) String() string {
	switch k {
	case KindAssertionError:
		return "AssertionError"
	case KindValueOverflow:
		return "ValueOverflow"
	case KindDivisionByZero:
		return "DivisionByZero"
	case KindIndexOutOfBounds:
		return "IndexOutOfBounds"
	case KindMerkleAuthenticationFailed:
		return "MerkleAuthenticationFailed"
	case KindMalformedBytecode:
		return "MalformedBytecode"
	case KindStorageNotInitialized:
		return "StorageNotInitialized"
	default:
		return "UnknownError"
	}
}

func (e *RunError) Error() string {
	if e.Message == "" {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *RunError) Unwrap() error { return e.cause }

func newRunError(kind ErrorKind, msg string) *RunError {
	return &RunError{Kind: kind, Message: msg}
}

// classifyGadgetError maps the concrete error types vm/gadgets and
// vm/storage return into this package's closed taxonomy — those packages
// are deliberately ignorant of the VM's error enum (they are usable
// standalone, e.g. by a future prover-only tool), so the mapping happens
// once, here, at the boundary the machine crosses into them.
func classifyGadgetError(err error) *RunError {
	if err == nil {
		return nil
	}
	var rangeErr *gadgets.RangeError
	if errors.As(err, &rangeErr) {
		return &RunError{Kind: KindValueOverflow, Message: rangeErr.Error(), cause: err}
	}
	var divErr *gadgets.DivisionByZeroError
	if errors.As(err, &divErr) {
		return &RunError{Kind: KindDivisionByZero, Message: divErr.Error(), cause: err}
	}
	var merkleErr *storage.MerkleAuthenticationError
	if errors.As(err, &merkleErr) {
		return &RunError{Kind: KindMerkleAuthenticationFailed, Message: merkleErr.Error(), cause: err}
	}
	return &RunError{Kind: KindMalformedBytecode, Message: err.Error(), cause: err}
}
