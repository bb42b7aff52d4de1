package bytecode_test

import (
	"math/big"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/zinc-lang/zinc/lang/bytecode"
	"github.com/zinc-lang/zinc/lang/types"
)

func TestOpcodeNameRoundTrip(t *testing.T) {
	for _, op := range []bytecode.Opcode{bytecode.OpAdd, bytecode.OpPush, bytecode.OpCall, bytecode.OpStorageLoad} {
		name := op.String()
		got, ok := bytecode.LookupOpcode(name)
		require.True(t, ok)
		require.Equal(t, op, got)
	}
}

func TestLibraryIDNameRoundTrip(t *testing.T) {
	id, ok := bytecode.LookupLibrary("mtreemap::insert")
	require.True(t, ok)
	require.Equal(t, bytecode.LibMTreeMapInsert, id)
	require.Equal(t, "mtreemap::insert", id.String())
}

func TestFromSemanticType(t *testing.T) {
	st := &types.StructureType{
		Name:     "Point",
		UniqueID: types.NextUniqueID(),
		Fields: []types.StructField{
			{Name: "x", Type: types.FieldType{}},
			{Name: "y", Type: types.FieldType{}},
		},
	}
	bt := bytecode.FromSemantic(st)
	require.Equal(t, bytecode.TagStruct, bt.Tag)
	require.Equal(t, "Point", bt.Name)
	require.Len(t, bt.Fields, 2)
	require.Equal(t, 2, bytecode.Size(bt))
}

func TestArrayTypeSize(t *testing.T) {
	at := types.ArrayType{Element: types.IntUnsignedType{Bits: 32}, Size: 4}
	bt := bytecode.FromSemantic(at)
	require.Equal(t, bytecode.TagArray, bt.Tag)
	require.Equal(t, 4, bytecode.Size(bt))
}

func buildAddCircuit() *bytecode.Circuit {
	addr := 0
	prog := &bytecode.Program{
		Instructions: []bytecode.Instruction{
			bytecode.Load{Address: 0, Size: 1},
			bytecode.Load{Address: 1, Size: 1},
			bytecode.Add{},
			bytecode.Exit{OutputSize: 1},
		},
	}
	return &bytecode.Circuit{
		Name:         "add",
		EntryAddress: addr,
		InputType:    bytecode.Type{Tag: bytecode.TagTuple, Elements: []bytecode.Type{{Tag: bytecode.TagInt, Bits: 32}, {Tag: bytecode.TagInt, Bits: 32}}},
		OutputType:   bytecode.Type{Tag: bytecode.TagInt, Bits: 32},
		UnitTests:    nil,
		Program:      prog,
	}
}

func TestEncodeDecodeCircuitRoundTrip(t *testing.T) {
	c := buildAddCircuit()
	buildID := bytecode.NewBuildID()
	data, err := bytecode.Encode(c, buildID)
	require.NoError(t, err)

	app, gotID, err := bytecode.Decode(data)
	require.NoError(t, err)
	require.Equal(t, buildID, gotID)
	require.Equal(t, bytecode.VariantCircuit, bytecode.VariantOf(app))

	got, ok := app.(*bytecode.Circuit)
	require.True(t, ok)
	require.Equal(t, c.Name, got.Name)
	require.Equal(t, c.EntryAddress, got.EntryAddress)
	require.Len(t, got.Program.Instructions, 4)
	require.IsType(t, bytecode.Load{}, got.Program.Instructions[0])
	require.IsType(t, bytecode.Add{}, got.Program.Instructions[2])
}

func TestEncodeDecodeWithoutBuildID(t *testing.T) {
	c := buildAddCircuit()
	data, err := bytecode.Encode(c, uuid.Nil)
	require.NoError(t, err)
	_, gotID, err := bytecode.Decode(data)
	require.NoError(t, err)
	require.Equal(t, uuid.Nil, gotID)
}

func TestDecodeRejectsBadMagic(t *testing.T) {
	_, _, err := bytecode.Decode([]byte("not a zinc artifact"))
	require.Error(t, err)
	var malformed *bytecode.MalformedBytecodeError
	require.ErrorAs(t, err, &malformed)
}

func TestDecodeRejectsTruncatedStream(t *testing.T) {
	c := buildAddCircuit()
	data, err := bytecode.Encode(c, uuid.Nil)
	require.NoError(t, err)
	_, _, err = bytecode.Decode(data[:len(data)-10])
	require.Error(t, err)
}

func TestEncodeRejectsUnresolvedCallAddress(t *testing.T) {
	prog := &bytecode.Program{Instructions: []bytecode.Instruction{&bytecode.Call{Address: nil, InputSize: 1}}}
	lib := &bytecode.Library{Name: "l", Program: prog}
	_, err := bytecode.Encode(lib, uuid.Nil)
	require.Error(t, err)
}

func TestEncodeNegativeIntegerConstant(t *testing.T) {
	prog := &bytecode.Program{
		Instructions: []bytecode.Instruction{
			bytecode.Push{Type: bytecode.Type{Tag: bytecode.TagInt, Signed: true, Bits: 32}, Int: big.NewInt(-7)},
			bytecode.Exit{OutputSize: 1},
		},
	}
	c := &bytecode.Circuit{Name: "neg", Program: prog, InputType: bytecode.Type{Tag: bytecode.TagUnit}, OutputType: bytecode.Type{Tag: bytecode.TagInt, Signed: true, Bits: 32}}
	data, err := bytecode.Encode(c, uuid.Nil)
	require.NoError(t, err)
	app, _, err := bytecode.Decode(data)
	require.NoError(t, err)
	got := app.(*bytecode.Circuit)
	push := got.Program.Instructions[0].(bytecode.Push)
	require.Equal(t, int64(-7), push.Int.Int64())
}

func TestDisassembleCircuit(t *testing.T) {
	c := buildAddCircuit()
	text := bytecode.Disassemble(c)
	require.Contains(t, text, "circuit: add")
	require.Contains(t, text, "load 0 1")
	require.Contains(t, text, "add")
	require.Contains(t, text, "exit 1")
}

func TestContractStorageAndMethodsSortedDeterministically(t *testing.T) {
	contract := &bytecode.Contract{
		Name: "Wallet",
		StorageLayout: []bytecode.StorageField{
			{Name: "z_balance", Type: bytecode.Type{Tag: bytecode.TagField}},
			{Name: "a_owner", Type: bytecode.Type{Tag: bytecode.TagInt, Bits: 160}},
		},
		Methods: []bytecode.ContractMethod{
			{Name: "withdraw", Address: 5, InputType: bytecode.Type{Tag: bytecode.TagField}, OutputType: bytecode.Type{Tag: bytecode.TagUnit}, IsMutable: true},
			{Name: "balance", Address: 1, InputType: bytecode.Type{Tag: bytecode.TagUnit}, OutputType: bytecode.Type{Tag: bytecode.TagField}},
		},
		Program: &bytecode.Program{Instructions: []bytecode.Instruction{bytecode.Exit{OutputSize: 0}}},
	}
	data, err := bytecode.Encode(contract, uuid.Nil)
	require.NoError(t, err)
	app, _, err := bytecode.Decode(data)
	require.NoError(t, err)
	got := app.(*bytecode.Contract)
	require.Equal(t, []string{"a_owner", "z_balance"}, []string{got.StorageLayout[0].Name, got.StorageLayout[1].Name})
	require.Equal(t, []string{"balance", "withdraw"}, []string{got.Methods[0].Name, got.Methods[1].Name})
}
