package constraint_test

import (
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/stretchr/testify/require"

	"github.com/zinc-lang/zinc/vm/constraint"
)

func elem(v uint64) fr.Element {
	var e fr.Element
	e.SetUint64(v)
	return e
}

func TestNewSystemReservesConstOne(t *testing.T) {
	cs := constraint.NewSystem()
	require.Len(t, cs.Witness, 1)
	one := fr.One()
	require.True(t, cs.Witness[constraint.ConstOne].Equal(&one))
}

func TestAllocateGrowsWitness(t *testing.T) {
	cs := constraint.NewSystem()
	v := cs.Allocate(elem(42))
	require.Equal(t, constraint.Variable(1), v)
	require.True(t, cs.Witness[v].Equal(ptr(elem(42))))
}

func TestVerifySatisfiedMultiplication(t *testing.T) {
	cs := constraint.NewSystem()
	a := cs.Allocate(elem(3))
	b := cs.Allocate(elem(4))
	c := cs.Allocate(elem(12))

	cs.Add(constraint.Linear(a), constraint.Linear(b), constraint.Linear(c))
	require.NoError(t, cs.Verify())
	require.Equal(t, 1, cs.NumConstraints())
}

func TestVerifyRejectsUnsatisfiedConstraint(t *testing.T) {
	cs := constraint.NewSystem()
	a := cs.Allocate(elem(3))
	b := cs.Allocate(elem(4))
	c := cs.Allocate(elem(13))

	cs.Add(constraint.Linear(a), constraint.Linear(b), constraint.Linear(c))
	require.Error(t, cs.Verify())
}

func TestLinearCombinationAlgebra(t *testing.T) {
	a := constraint.Linear(1)
	b := constraint.Linear(2)

	sum := a.Add(b)
	require.Len(t, sum, 2)

	diff := a.Sub(b)
	require.Len(t, diff, 2)
	require.True(t, diff[1].Coefficient.Equal(ptr(negOne())))

	two := elem(2)
	scaled := a.Scale(two)
	require.True(t, scaled[0].Coefficient.Equal(&two))
}

func TestConstantDoesNotAllocateAVariable(t *testing.T) {
	lc := constraint.Constant(elem(7))
	require.Len(t, lc, 1)
	require.Equal(t, constraint.ConstOne, lc[0].Variable)
}

func ptr(e fr.Element) *fr.Element { return &e }

func negOne() fr.Element {
	var e fr.Element
	e.SetOne()
	e.Neg(&e)
	return e
}
