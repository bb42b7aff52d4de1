package storage_test

import (
	"math/big"
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/stretchr/testify/require"

	"github.com/zinc-lang/zinc/vm/constraint"
	"github.com/zinc-lang/zinc/vm/gadgets"
	"github.com/zinc-lang/zinc/vm/storage"
)

func elem(v int64) fr.Element {
	var e fr.Element
	e.SetBigInt(big.NewInt(v))
	return e
}

func scalar(v int64) gadgets.Scalar {
	return gadgets.NewConstant(gadgets.FieldType, elem(v))
}

func TestNewInMemoryTreeStartsAllZero(t *testing.T) {
	tree := storage.NewInMemoryTree(2)
	require.Equal(t, 2, tree.Depth())

	leaf, path := tree.Load(0)
	require.Len(t, leaf, 1)
	require.True(t, leaf[0].IsZero())
	require.Len(t, path, 2)
}

func TestStoreChangesRoot(t *testing.T) {
	tree := storage.NewInMemoryTree(2)
	before := tree.Root()

	newRoot, _ := tree.Store(1, []fr.Element{elem(42)})
	require.False(t, before.Equal(&newRoot))
	require.True(t, tree.Root().Equal(&newRoot))

	leaf, _ := tree.Load(1)
	want := elem(42)
	require.True(t, leaf[0].Equal(&want))
}

func TestRecomputeRootMatchesTreeRoot(t *testing.T) {
	tree := storage.NewInMemoryTree(2)
	tree.Store(3, []fr.Element{elem(7)})

	leaf, path := tree.Load(3)
	recomputed := storage.RecomputeRoot(leaf, 3, path)
	require.True(t, recomputed.Equal(ptr(tree.Root())))
}

func TestDepthForFields(t *testing.T) {
	require.Equal(t, 1, storage.DepthForFields(0))
	require.Equal(t, 1, storage.DepthForFields(1))
	require.Equal(t, 1, storage.DepthForFields(2))
	require.Equal(t, 2, storage.DepthForFields(3))
	require.Equal(t, 2, storage.DepthForFields(4))
	require.Equal(t, 3, storage.DepthForFields(5))
}

func TestStorageLoadAuthenticatesAgainstRoot(t *testing.T) {
	tree := storage.NewInMemoryTree(2)
	cs := constraint.NewSystem()
	s := storage.Init(cs, tree)

	vals, err := s.Load(cs, 0, nil)
	require.NoError(t, err)
	require.Len(t, vals, 1)
}

func TestStorageStoreThenLoadRoundTrips(t *testing.T) {
	tree := storage.NewInMemoryTree(2)
	cs := constraint.NewSystem()
	s := storage.Init(cs, tree)

	err := s.Store(cs, 2, []gadgets.Scalar{scalar(99)})
	require.NoError(t, err)

	vals, err := s.Load(cs, 2, nil)
	require.NoError(t, err)
	require.Len(t, vals, 1)
	got := new(big.Int)
	vals[0].Value.BigInt(got)
	require.Equal(t, big.NewInt(99), got)
}

func TestStorageLoadFailsOnTamperedRoot(t *testing.T) {
	tree := storage.NewInMemoryTree(2)
	cs := constraint.NewSystem()
	s := storage.Init(cs, tree)

	// Write directly through the backing tree without updating s.Root, so the
	// storage gadget's cached root is now stale relative to the tree.
	tree.Store(0, []fr.Element{elem(5)})

	_, err := s.Load(cs, 0, nil)
	require.Error(t, err)
	var authErr *storage.MerkleAuthenticationError
	require.ErrorAs(t, err, &authErr)
}

func ptr(e fr.Element) *fr.Element { return &e }
