package bytecode

// UnitTest records one `#[test]` function's metadata (§3 "Bytecode
// entities").
type UnitTest struct {
	Name        string
	Address     int
	ShouldPanic bool
	IsIgnored   bool
}

// Variant discriminates the three shapes an Application's metadata can take
// (§6 "Bytecode artifact": `variant(u8) // Circuit=1, Contract=2, Library=3`).
type Variant uint8

const (
	VariantCircuit  Variant = 1
	VariantContract Variant = 2
	VariantLibrary  Variant = 3
)

func (v Variant) String() string {
	switch v {
	case VariantCircuit:
		return "circuit"
	case VariantContract:
		return "contract"
	case VariantLibrary:
		return "library"
	default:
		return "unknown"
	}
}

// Program is a self-contained instruction vector: every function's body,
// concatenated and addressed absolutely (§4.6: "Linearizes IR into a single
// instruction vector"). Unlike the teacher's Funcode-per-function layout,
// Zinc has no nested closures or cells, so one flat vector plus
// back-patched Call/LoopEnd targets is sufficient.
type Program struct {
	Instructions []Instruction
}

// StorageField describes one contract storage slot's on-disk layout (§6).
type StorageField struct {
	Name        string
	Type        Type
	IsPublic    bool
	IsImmutable bool
}

// ContractMethod is one callable entry point of a Contract application.
type ContractMethod struct {
	Name       string
	Address    int
	InputType  Type
	OutputType Type
	IsMutable  bool
}

// Circuit is a single-entry-point application compiled from a `main`
// function (§3).
type Circuit struct {
	Name         string
	EntryAddress int
	InputType    Type
	OutputType   Type
	UnitTests    []UnitTest
	Program      *Program
}

// Contract is a multi-entry-point application with persistent storage.
type Contract struct {
	Name          string
	StorageLayout []StorageField
	Methods       []ContractMethod
	UnitTests     []UnitTest
	Program       *Program
}

// Library is an application with no entry point, compiled solely for its
// unit tests (§4.4 "Entry point rules").
type Library struct {
	Name      string
	UnitTests []UnitTest
	Program   *Program
}

// Application is the closed sum of the three artifact shapes (§3).
type Application interface {
	applicationVariant() Variant
	programOf() *Program
}

func (*Circuit) applicationVariant() Variant  { return VariantCircuit }
func (*Contract) applicationVariant() Variant { return VariantContract }
func (*Library) applicationVariant() Variant  { return VariantLibrary }

func (c *Circuit) programOf() *Program  { return c.Program }
func (c *Contract) programOf() *Program { return c.Program }
func (l *Library) programOf() *Program  { return l.Program }

// VariantOf reports which of the three Application shapes app is.
func VariantOf(app Application) Variant { return app.applicationVariant() }
