package types_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zinc-lang/zinc/lang/types"
)

func TestPrimitiveEquality(t *testing.T) {
	require.True(t, types.BoolType{}.Equal(types.BoolType{}))
	require.False(t, types.BoolType{}.Equal(types.UnitType{}))
	require.True(t, types.IntUnsignedType{Bits: 32}.Equal(types.IntUnsignedType{Bits: 32}))
	require.False(t, types.IntUnsignedType{Bits: 32}.Equal(types.IntUnsignedType{Bits: 64}))
	require.False(t, types.IntUnsignedType{Bits: 32}.Equal(types.IntSignedType{Bits: 32}))
}

func TestCompoundEquality(t *testing.T) {
	a := types.ArrayType{Element: types.IntUnsignedType{Bits: 8}, Size: 4}
	b := types.ArrayType{Element: types.IntUnsignedType{Bits: 8}, Size: 4}
	c := types.ArrayType{Element: types.IntUnsignedType{Bits: 8}, Size: 5}
	require.True(t, a.Equal(b))
	require.False(t, a.Equal(c))

	t1 := types.TupleType{Elements: []types.Type{types.BoolType{}, types.FieldType{}}}
	t2 := types.TupleType{Elements: []types.Type{types.BoolType{}, types.FieldType{}}}
	require.True(t, t1.Equal(t2))
}

func TestNominalEqualityRequiresUniqueID(t *testing.T) {
	s1 := &types.StructureType{Name: "Point", UniqueID: types.NextUniqueID(), Fields: []types.StructField{
		{Name: "x", Type: types.FieldType{}},
		{Name: "y", Type: types.FieldType{}},
	}}
	s2 := &types.StructureType{Name: "Point", UniqueID: types.NextUniqueID(), Fields: s1.Fields}

	require.False(t, s1.Equal(s2), "structurally identical declarations must remain nominally distinct")
	require.True(t, s1.Equal(s1))
}

func TestUniqueIDMonotonic(t *testing.T) {
	a := types.NextUniqueID()
	b := types.NextUniqueID()
	require.Less(t, a, b)
}

func TestScopeDeclareAndLookup(t *testing.T) {
	root := types.NewScope(types.EntryScope, nil)
	child := types.NewScope(types.BlockScope, root)

	v := types.NewVariable(types.BoolType{}, true, types.MemoryStack, 0)
	require.True(t, root.Declare("flag", v))
	require.False(t, root.Declare("flag", v), "redeclaring in the same scope must fail")

	found, ok := child.Lookup("flag")
	require.True(t, ok)
	require.Equal(t, v, found)

	_, ok = child.LookupLocal("flag")
	require.False(t, ok, "LookupLocal must not see ancestor bindings")
}

func TestItemIDsAreUnique(t *testing.T) {
	a := types.NewVariable(types.FieldType{}, false, types.MemoryStack, 0)
	b := types.NewConstant(int64(1), types.FieldType{})
	require.NotEqual(t, a.ItemID(), b.ItemID())
}

func TestScopeNamesSorted(t *testing.T) {
	s := types.NewScope(types.BlockScope, nil)
	s.Declare("z", types.NewVariable(types.BoolType{}, false, types.MemoryStack, 0))
	s.Declare("a", types.NewVariable(types.BoolType{}, false, types.MemoryStack, 1))
	require.Equal(t, []string{"a", "z"}, s.Names())
}
