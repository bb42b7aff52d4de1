package gadgets_test

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zinc-lang/zinc/lang/bytecode"
	"github.com/zinc-lang/zinc/vm/constraint"
	"github.com/zinc-lang/zinc/vm/gadgets"
)

func u64Type(bits int, signed bool) bytecode.Type {
	return bytecode.Type{Tag: bytecode.TagInt, Bits: bits, Signed: signed}
}

func witness(cs *constraint.System, t bytecode.Type, v int64) gadgets.Scalar {
	return gadgets.Witness(cs, t, gadgets.FromBigInt(big.NewInt(v)))
}

func toInt64(s gadgets.Scalar) int64 {
	v := new(big.Int)
	s.Value.BigInt(v)
	return v.Int64()
}

func TestAddProducesSumAndSatisfiesConstraints(t *testing.T) {
	cs := constraint.NewSystem()
	ty := u64Type(32, false)
	a := witness(cs, ty, 7)
	b := witness(cs, ty, 35)

	out, err := gadgets.Add(cs, a, b, true, false)
	require.NoError(t, err)
	require.Equal(t, int64(42), toInt64(out))
	require.NoError(t, cs.Verify())
}

func TestAddOverflowReportsRangeError(t *testing.T) {
	cs := constraint.NewSystem()
	ty := u64Type(8, false)
	a := witness(cs, ty, 250)
	b := witness(cs, ty, 10)

	_, err := gadgets.Add(cs, a, b, true, false)
	require.Error(t, err)
}

func TestAddOverflowSkippedWhenUnconstrained(t *testing.T) {
	cs := constraint.NewSystem()
	ty := u64Type(8, false)
	a := witness(cs, ty, 250)
	b := witness(cs, ty, 10)

	_, err := gadgets.Add(cs, a, b, true, true)
	require.NoError(t, err)
}

func TestAddOverflowSkippedWhenPredicateFalse(t *testing.T) {
	cs := constraint.NewSystem()
	ty := u64Type(8, false)
	a := witness(cs, ty, 250)
	b := witness(cs, ty, 10)

	_, err := gadgets.Add(cs, a, b, false, false)
	require.NoError(t, err)
}

func TestDivByZeroErrors(t *testing.T) {
	cs := constraint.NewSystem()
	ty := u64Type(32, false)
	a := witness(cs, ty, 10)
	zero := gadgets.NewConstant(ty, gadgets.FromBigInt(big.NewInt(0)))

	_, err := gadgets.Div(cs, a, zero, true, false)
	require.Error(t, err)
	var divErr *gadgets.DivisionByZeroError
	require.ErrorAs(t, err, &divErr)
}

func TestDivRemRoundTrip(t *testing.T) {
	cs := constraint.NewSystem()
	ty := u64Type(32, false)
	a := witness(cs, ty, 17)
	b := witness(cs, ty, 5)

	q, err := gadgets.Div(cs, a, b, true, false)
	require.NoError(t, err)
	require.Equal(t, int64(3), toInt64(q))

	r, err := gadgets.Rem(cs, a, b, true, false)
	require.NoError(t, err)
	require.Equal(t, int64(2), toInt64(r))
	require.NoError(t, cs.Verify())
}

func TestEqGadget(t *testing.T) {
	cs := constraint.NewSystem()
	ty := u64Type(32, false)
	a := witness(cs, ty, 9)
	b := witness(cs, ty, 9)
	c := witness(cs, ty, 10)

	require.True(t, gadgets.Eq(cs, a, b).IsTrue())
	require.False(t, gadgets.Eq(cs, a, c).IsTrue())
	require.NoError(t, cs.Verify())
}

func TestComparisons(t *testing.T) {
	cs := constraint.NewSystem()
	ty := u64Type(16, false)
	small := witness(cs, ty, 3)
	big_ := witness(cs, ty, 30)

	require.True(t, gadgets.Lt(cs, small, big_).IsTrue())
	require.False(t, gadgets.Lt(cs, big_, small).IsTrue())
	require.True(t, gadgets.Ge(cs, big_, small).IsTrue())
	require.True(t, gadgets.Le(cs, small, small).IsTrue())
	require.True(t, gadgets.Gt(cs, big_, small).IsTrue())
	require.NoError(t, cs.Verify())
}

func TestLogicalIdentities(t *testing.T) {
	cs := constraint.NewSystem()
	T := gadgets.NewConstant(gadgets.BoolType, gadgets.FromBool(true))
	F := gadgets.NewConstant(gadgets.BoolType, gadgets.FromBool(false))

	require.True(t, gadgets.And(cs, T, T).IsTrue())
	require.False(t, gadgets.And(cs, T, F).IsTrue())
	require.True(t, gadgets.Or(cs, F, T).IsTrue())
	require.False(t, gadgets.Or(cs, F, F).IsTrue())
	require.True(t, gadgets.Xor(cs, T, F).IsTrue())
	require.False(t, gadgets.Xor(cs, T, T).IsTrue())
	require.False(t, gadgets.Not(cs, T).IsTrue())
	require.NoError(t, cs.Verify())
}

func TestConditionalSelect(t *testing.T) {
	cs := constraint.NewSystem()
	ty := u64Type(32, false)
	a := witness(cs, ty, 1)
	b := witness(cs, ty, 2)
	T := gadgets.NewConstant(gadgets.BoolType, gadgets.FromBool(true))
	F := gadgets.NewConstant(gadgets.BoolType, gadgets.FromBool(false))

	require.Equal(t, int64(1), toInt64(gadgets.ConditionalSelect(cs, T, a, b)))
	require.Equal(t, int64(2), toInt64(gadgets.ConditionalSelect(cs, F, a, b)))
	require.NoError(t, cs.Verify())
}

func TestBitsRoundTrip(t *testing.T) {
	cs := constraint.NewSystem()
	ty := u64Type(8, false)
	v := witness(cs, ty, 0b10110101)

	bits := gadgets.ToBits(cs, v, 8)
	require.Len(t, bits, 8)
	require.True(t, bits[0].IsTrue())
	require.False(t, bits[1].IsTrue())

	back := gadgets.FromBits(cs, bits, ty)
	require.Equal(t, int64(0b10110101), toInt64(back))
	require.NoError(t, cs.Verify())
}

func TestRangeCheckRejectsOutOfRange(t *testing.T) {
	cs := constraint.NewSystem()
	ty := u64Type(8, false)
	v := gadgets.Witness(cs, ty, gadgets.FromBigInt(big.NewInt(300)))

	err := gadgets.RangeCheck(cs, v, 8, false)
	require.Error(t, err)
	var rangeErr *gadgets.RangeError
	require.ErrorAs(t, err, &rangeErr)
}

func TestSha256Deterministic(t *testing.T) {
	cs := constraint.NewSystem()
	ty := u64Type(32, false)
	a := witness(cs, ty, 1)
	b := witness(cs, ty, 2)

	h1 := gadgets.Sha256(cs, []gadgets.Scalar{a, b})
	h2 := gadgets.Sha256(cs, []gadgets.Scalar{a, b})
	require.True(t, h1.Value.Equal(&h2.Value))
}

func TestArrayReverseTruncatePad(t *testing.T) {
	cs := constraint.NewSystem()
	ty := u64Type(32, false)
	elems := []gadgets.Scalar{witness(cs, ty, 1), witness(cs, ty, 2), witness(cs, ty, 3)}

	rev := gadgets.ArrayReverse(elems)
	require.Equal(t, []int64{3, 2, 1}, []int64{toInt64(rev[0]), toInt64(rev[1]), toInt64(rev[2])})

	trunc := gadgets.ArrayTruncate(elems, 2)
	require.Len(t, trunc, 2)

	fill := witness(cs, ty, 0)
	padded := gadgets.ArrayPad(elems, 5, fill)
	require.Len(t, padded, 5)
	require.Equal(t, int64(0), toInt64(padded[4]))
}

func TestMTreeMapLifecycle(t *testing.T) {
	m := gadgets.NewMTreeMap()
	key := gadgets.FromBigInt(big.NewInt(5))
	val := gadgets.NewConstant(u64Type(32, false), gadgets.FromBigInt(big.NewInt(99)))

	_, ok := m.Get(key)
	require.False(t, ok)

	m.Insert(key, val)
	got, ok := m.Get(key)
	require.True(t, ok)
	require.Equal(t, int64(99), toInt64(got))
	require.True(t, m.Contains(key))

	require.True(t, m.Remove(key))
	require.False(t, m.Contains(key))
}
