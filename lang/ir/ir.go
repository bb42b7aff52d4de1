// Package ir defines the typed intermediate representation lowered from a
// semantically analyzed module (§4.5): a small statement tree plus
// expressions shaped as RPN-like Operand/Operator sequences, the same split
// original_source/zinc-compiler/src/generator uses between its Statement
// enum and GeneratorExpression element list. Unlike the teacher's bytecode
// package (which targets a CFG of basic blocks for goto-style control flow),
// this tree has no jumps: loops are bounded and `if` is predicated, so the
// compiler stage can linearize it directly.
package ir

import (
	"math/big"

	"github.com/zinc-lang/zinc/internal/fileset"
	"github.com/zinc-lang/zinc/lang/types"
)

// Operator is a unary/binary/cast transform applied to the top of the
// evaluation stack (§4.6's Add/Sub/.../Cast instruction family).
type Operator int

const (
	OpAdd Operator = iota
	OpSub
	OpMul
	OpDiv
	OpRem
	OpNeg
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpAnd
	OpOr
	OpXor
	OpNot
	OpCast
)

func (o Operator) String() string {
	names := [...]string{
		"Add", "Sub", "Mul", "Div", "Rem", "Neg",
		"Eq", "Ne", "Lt", "Le", "Gt", "Ge",
		"And", "Or", "Xor", "Not", "Cast",
	}
	if int(o) < len(names) {
		return names[o]
	}
	return "Operator(?)"
}

// Module is the IR form of one compiled source module: its top-level items
// in declaration order, ready for the bytecode emitter.
type Module struct {
	Items []Stmt
}

// Stmt is the closed statement sum used both at module scope and nested
// inside a block/function/loop body (§4.5 lists Function/Contract/
// Implementation/Type alongside Expression/Declaration/Loop because the
// source grammar allows `impl`/`contract`/fn bodies to nest one inside
// another at the syntax level; generalized one-for-one here).
type Stmt interface{ irStmt() }

// ExprStmt evaluates Expr and discards its result.
type ExprStmt struct {
	Loc  fileset.Location
	Expr *Expr
}

// Declaration binds the scalars Expr evaluates to into one or more named
// stack slots (a tuple-destructuring `let` binds more than one).
type Declaration struct {
	Loc       fileset.Location
	Bindings  []string
	Addresses []int
	Type      types.Type
	Expr      *Expr
}

// Loop is a statically bounded `for` (§4.7): BoundsStart/BoundsEnd are
// compile-time constants, Inclusive mirrors `..=`, and WhileCondition (if
// non-nil) predicates the body on each iteration rather than exiting early.
type Loop struct {
	Loc            fileset.Location
	Index          string
	IndexAddress   int
	IndexType      types.Type
	BoundsStart    *big.Int
	BoundsEnd      *big.Int
	Inclusive      bool
	WhileCondition *Expr
	Body           []Stmt
}

// Argument is one parameter of a Function.
type Argument struct {
	Name    string
	Address int
	Type    types.Type
}

// UnitTest carries the `#[test]` metadata for a function compiled as a unit
// test entry rather than an ordinary callable (§6, vm/testrunner.go).
type UnitTest struct {
	ShouldPanic bool
	Ignore      bool
}

// Function is a compiled function body. Address is filled in by the
// bytecode emitter once every function's entry point is known
// (back-patching, §4.6); it is nil until then.
type Function struct {
	Loc        fileset.Location
	Address    *int
	Name       string
	Arguments  []Argument
	ReturnType types.Type
	Body       []Stmt
	Trailing   *Expr // the function's return value; nil when ReturnType is Unit
	UnitTest   *UnitTest
	// FrameSize is the number of scalar data-stack slots this function's
	// parameters and locals occupy; the emitter allocates any further
	// scratch slots it needs (conditional/match result staging) starting
	// here.
	FrameSize int
}

// ContractField is one storage slot of a Contract.
type ContractField struct {
	Name     string
	Type     types.Type
	IsPublic bool
}

// Contract declares a contract's storage layout. Its methods are lowered as
// ordinary Functions (with an implicit `self` argument) alongside it.
type Contract struct {
	Loc          fileset.Location
	Project      string
	Fields       []ContractField
	IsDependency bool
}

// Implementation groups the Functions/Declarations an `impl` block attaches
// to an existing structure or enumeration.
type Implementation struct {
	Loc   fileset.Location
	Items []Stmt
}

// TypeStmt records a named type for metadata purposes (struct/enum/alias
// declarations); it carries no executable content.
type TypeStmt struct {
	Loc  fileset.Location
	Name string
	Type types.Type
}

func (*ExprStmt) irStmt()       {}
func (*Declaration) irStmt()    {}
func (*Loop) irStmt()           {}
func (*Function) irStmt()       {}
func (*Contract) irStmt()       {}
func (*Implementation) irStmt() {}
func (*TypeStmt) irStmt()       {}

// Expr is one evaluation: a flat Operand/Operator sequence in reverse-Polish
// order. Elements pushes values; the interleaved Operators consume the top
// of the stack and push their result, exactly mirroring how the bytecode
// emitter will later turn this into Push/Load/Add/... instructions (§4.6).
type Expr struct {
	Loc      fileset.Location
	Type     types.Type
	Elements []Element
}

// Element is one item of an Expr's linear sequence.
type Element interface{ irElement() }

// Push evaluates an Operand and places its value(s) on top of the stack.
type Push struct {
	Operand Operand
}

// Apply consumes operand(s) already on the stack and applies Op. Type is
// the operation's result type — for OpCast specifically, its target type —
// carried here rather than recomputed from operand types downstream, since
// a flattened Expr's Elements list loses intermediate sub-expression types.
type Apply struct {
	Op   Operator
	Type types.Type
	Loc  fileset.Location
}

func (Push) irElement()  {}
func (Apply) irElement() {}

// Operand is anything that can be pushed: a leaf value, a place reference,
// or one of the structured forms (block/conditional/match/array/tuple/
// structure/call) that themselves recursively contain Exprs.
type Operand interface{ irOperand() }

// Constant is a compile-time-known value, absorbed directly into a Push
// instruction with no data-stack address of its own.
type Constant struct {
	Type types.Type
	Int  *big.Int // integer/field constants
	Bool bool     // boolean constants
}

// Place is a load from a stack slot at a known frame-relative address
// (a local variable, parameter, or loop index).
type Place struct {
	Name    string
	Address int
	Size    int
	Type    types.Type
}

// StoragePlace is a load from one contract storage field.
type StoragePlace struct {
	FieldIndex int
	Size       int
	Type       types.Type
}

// IndexedLoad is a runtime-indexed array read (§4.6's LoadByIndex): Base
// must already be addressable (a Place), Index is evaluated at runtime.
type IndexedLoad struct {
	Base       Place
	Index      *Expr
	ElemSize   int
	TotalSize  int
	ResultType types.Type
}

// Call invokes a user function (by its eventual back-patched address) or,
// when Intrinsic is non-empty, a fixed library routine (§4.7 CallLibrary).
type Call struct {
	Callee     string
	Intrinsic  string
	Format     string // dbg!'s format string; empty for every other call
	Args       []*Expr
	ResultType types.Type
}

// Assign stores Value into Target, respecting the current predicate
// (§4.7: a Store under a false condition is a no-op on observable state).
// Index is non-nil for an indexed store (`target[i] = value`, §4.6
// StoreByIndex); Target then names the base array place rather than the
// individual element. IsStorage selects a contract field write
// (StorageStore) instead, addressed by StorageIndex/StorageSize rather
// than Target.
type Assign struct {
	Target       Place
	Index        *Expr
	ElemSize     int
	IsStorage    bool
	StorageIndex int
	StorageSize  int
	Value        *Expr
}

// Block is a nested `{ stmts...; trailing? }` expression.
type Block struct {
	Stmts    []Stmt
	Trailing *Expr // nil if the block's value is Unit
}

// Conditional is `if cond { main } [else { else }]`, compiled with
// predicated execution rather than a branch (§4.7). Type is the value both
// arms produce (Unit when the conditional is used only for its effects).
type Conditional struct {
	Condition *Expr
	Main      *Block
	Else      *Block // nil when there is no `else`
	Type      types.Type
}

// MatchBranch is one arm of a Match: Pattern nil means the wildcard `_`.
type MatchBranch struct {
	Pattern *Constant
	Body    *Expr
}

// Match is a `match` expression compiled as a cascade of equality tests
// against the scrutinee, each guarding its branch's predicated block.
type Match struct {
	Scrutinee *Expr
	Branches  []MatchBranch
	Type      types.Type
}

// Array is either an element list or a `[value; count]` repeat form.
type Array struct {
	Elements []*Expr // nil when Repeat is set
	Repeat   *Expr
	Count    int
	ElemType types.Type
}

// Tuple is a tuple literal.
type Tuple struct {
	Elements []*Expr
}

// StructureFieldInit is one field of a Structure literal, in declaration
// order (not necessarily source order).
type StructureFieldInit struct {
	Name  string
	Value *Expr
}

// Structure is a structure literal, fields reordered to the declared layout
// so its runtime representation is a flat concatenation of field scalars.
type Structure struct {
	Type   *types.StructureType
	Fields []StructureFieldInit
}

func (Constant) irOperand()     {}
func (Place) irOperand()        {}
func (StoragePlace) irOperand() {}
func (IndexedLoad) irOperand()  {}
func (*Call) irOperand()        {}
func (*Assign) irOperand()      {}
func (*Block) irOperand()       {}
func (*Conditional) irOperand() {}
func (*Match) irOperand()       {}
func (*Array) irOperand()       {}
func (*Tuple) irOperand()       {}
func (*Structure) irOperand()   {}

// Size returns the number of scalar stack slots t occupies at runtime.
// Strings are compile-time only (§3) and contracts/functions are never
// runtime values, so both occupy zero slots.
func Size(t types.Type) int {
	switch tt := t.(type) {
	case types.UnitType, types.StringType, *types.ContractType, *types.FunctionType:
		return 0
	case types.BoolType, types.IntSignedType, types.IntUnsignedType, types.FieldType:
		return 1
	case *types.EnumerationType:
		return 1
	case types.ArrayType:
		return tt.Size * Size(tt.Element)
	case types.TupleType:
		total := 0
		for _, e := range tt.Elements {
			total += Size(e)
		}
		return total
	case *types.StructureType:
		total := 0
		for _, f := range tt.Fields {
			total += Size(f.Type)
		}
		return total
	default:
		return 0
	}
}
