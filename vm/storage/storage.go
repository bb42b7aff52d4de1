package storage

import (
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"github.com/zinc-lang/zinc/vm/constraint"
	"github.com/zinc-lang/zinc/vm/gadgets"
)

// Storage is the §4.9 storage gadget: the current Merkle root Scalar plus
// the IMerkleTree collaborator backing it. Load and Store both re-hash a
// leaf's authentication path in-circuit and assert it matches Root before
// trusting (Load) or replacing (Store) anything — a contract body that reads
// or writes storage built on a stale or tampered root fails the constraint
// system rather than silently returning wrong data.
type Storage struct {
	Root  gadgets.Scalar
	Tree  IMerkleTree
	Depth int
}

// Init allocates the in-circuit root variable for tree's current root,
// per §4.7 "StorageInit allocates in-circuit variables for the initial root".
func Init(cs *constraint.System, tree IMerkleTree) *Storage {
	root := gadgets.Witness(cs, gadgets.FieldType, tree.Root())
	return &Storage{Root: root, Tree: tree, Depth: tree.Depth()}
}

func assertEqual(cs *constraint.System, a, b gadgets.Scalar) {
	cs.Add(a.LC(), constraint.Constant(fr.One()), b.LC())
}

// rehash recomputes a root in-circuit from a leaf's Scalars, its index, and
// its (concrete, constant) authentication path, returning the recomputed
// root Scalar. Mirrors RecomputeRoot but building R1CS rows with
// gadgets.Sha256 at each level instead of evaluating sha256 directly.
func rehash(cs *constraint.System, leaf []gadgets.Scalar, index int, authPath []fr.Element) gadgets.Scalar {
	cur := gadgets.Sha256(cs, leaf)
	idx := index
	for _, sib := range authPath {
		sibling := gadgets.NewConstant(gadgets.FieldType, sib)
		var pair []gadgets.Scalar
		if idx%2 == 0 {
			pair = []gadgets.Scalar{cur, sibling}
		} else {
			pair = []gadgets.Scalar{sibling, cur}
		}
		cur = gadgets.Sha256(cs, pair)
		idx /= 2
	}
	return cur
}

// Load reads leaf index's stored Scalars, asserting their recomputed
// authentication path matches the current root (§4.9 "asserting equality to
// the current root"). A mismatch is the in-circuit signal for
// MerkleAuthenticationFailed; callers are expected to convert assertEqual's
// unsatisfied constraint (detected by a later cs.Verify, or — for an
// eagerly-checked host — the concrete comparison below) into that error.
func (s *Storage) Load(cs *constraint.System, index int, fieldTypes []gadgets.Scalar) ([]gadgets.Scalar, error) {
	values, authPath := s.Tree.Load(index)
	leaf := make([]gadgets.Scalar, len(values))
	for i, v := range values {
		t := gadgets.FieldType
		if i < len(fieldTypes) {
			t = fieldTypes[i].Type
		}
		leaf[i] = gadgets.Witness(cs, t, v)
	}

	recomputed := rehash(cs, leaf, index, authPath)
	assertEqual(cs, recomputed, s.Root)

	if err := s.checkRoot(recomputed, index); err != nil {
		return nil, err
	}
	return leaf, nil
}

// Store writes new Scalars to leaf index. It first re-authenticates the
// existing leaf against the current root (the same check Load performs),
// then recomputes the root over the new leaf values along the same
// authentication path and replaces Root with it (§4.9 "does the same, then
// replaces the current root variable").
func (s *Storage) Store(cs *constraint.System, index int, newValues []gadgets.Scalar) error {
	oldValues, authPath := s.Tree.Load(index)
	oldLeaf := make([]gadgets.Scalar, len(oldValues))
	for i, v := range oldValues {
		t := gadgets.FieldType
		if i < len(newValues) {
			t = newValues[i].Type
		}
		oldLeaf[i] = gadgets.Witness(cs, t, v)
	}
	oldRoot := rehash(cs, oldLeaf, index, authPath)
	assertEqual(cs, oldRoot, s.Root)
	if err := s.checkRoot(oldRoot, index); err != nil {
		return err
	}

	newVals := make([]fr.Element, len(newValues))
	for i, v := range newValues {
		newVals[i] = v.Value
	}
	concreteRoot, _ := s.Tree.Store(index, newVals)

	newRoot := rehash(cs, newValues, index, authPath)
	assertEqual(cs, newRoot, gadgets.Witness(cs, gadgets.FieldType, concreteRoot))

	s.Root = newRoot
	return nil
}

func (s *Storage) checkRoot(computed gadgets.Scalar, index int) error {
	expected := new(big.Int)
	s.Root.Value.BigInt(expected)
	got := new(big.Int)
	computed.Value.BigInt(got)
	if expected.Cmp(got) != 0 {
		return &MerkleAuthenticationError{Index: index, Expected: expected, Got: got}
	}
	return nil
}
