// Package storage implements spec §4.9's storage gadget: a Merkle-authenticated
// leaf store whose root is a constrained Scalar, and whose load/store methods
// re-hash each leaf's authentication path in-circuit on every access. Grounded
// on the authentication-path shape of
// vybium-vybium-starks-vm/internal/vybium-starks-vm/core/merkle.go, reworked
// around the IMerkleTree collaborator interface spec §6 names explicitly.
package storage

import (
	"crypto/sha256"
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

// IMerkleTree is the off-circuit backing collaborator spec §6 names: a
// perfect binary tree of depth Depth whose leaves hold a contract's storage
// slots. The VM's storage gadget consults it for concrete leaf data and
// authentication paths, then re-derives and asserts the same root in-circuit
// — the tree itself carries no constraints of its own.
type IMerkleTree interface {
	Depth() int
	Root() fr.Element
	Load(index int) (leafValues []fr.Element, authPath []fr.Element)
	Store(index int, leafValues []fr.Element) (newRoot fr.Element, authPath []fr.Element)
}

// InMemoryTree is the reference IMerkleTree: every run's storage starts here
// unless a host supplies its own (a database-row-backed or remote
// implementation, per §4.9's "not part of the circuit" note). Hashing is
// SHA-256 over the big-endian concatenation of child digests, the fixed
// hash §4.7 names for leaf/path hashing.
type InMemoryTree struct {
	depth  int
	leaves [][]fr.Element
	nodes  [][]fr.Element // nodes[level][index], level 0 = leaves' hashes
}

// NewInMemoryTree builds a tree with 2^depth leaves, each initialized to a
// single zero field element (an empty storage slot).
func NewInMemoryTree(depth int) *InMemoryTree {
	n := 1 << uint(depth)
	t := &InMemoryTree{
		depth:  depth,
		leaves: make([][]fr.Element, n),
	}
	for i := range t.leaves {
		t.leaves[i] = []fr.Element{{}}
	}
	t.rebuild()
	return t
}

func leafHash(values []fr.Element) fr.Element {
	h := sha256.New()
	for _, v := range values {
		b := v.Bytes()
		h.Write(b[:])
	}
	var out fr.Element
	out.SetBytes(h.Sum(nil))
	return out
}

func nodeHash(left, right fr.Element) fr.Element {
	h := sha256.New()
	lb := left.Bytes()
	rb := right.Bytes()
	h.Write(lb[:])
	h.Write(rb[:])
	var out fr.Element
	out.SetBytes(h.Sum(nil))
	return out
}

func (t *InMemoryTree) rebuild() {
	n := len(t.leaves)
	level := make([]fr.Element, n)
	for i, lv := range t.leaves {
		level[i] = leafHash(lv)
	}
	t.nodes = [][]fr.Element{level}
	for len(level) > 1 {
		next := make([]fr.Element, len(level)/2)
		for i := range next {
			next[i] = nodeHash(level[2*i], level[2*i+1])
		}
		t.nodes = append(t.nodes, next)
		level = next
	}
}

func (t *InMemoryTree) Depth() int { return t.depth }

func (t *InMemoryTree) Root() fr.Element {
	top := t.nodes[len(t.nodes)-1]
	return top[0]
}

// authPath returns the sibling digest at every level from the leaf up to
// (but not including) the root, the data a rehashing circuit needs to
// recompute the root from one changed leaf.
func (t *InMemoryTree) authPath(index int) []fr.Element {
	path := make([]fr.Element, 0, t.depth)
	idx := index
	for level := 0; level < t.depth; level++ {
		sibling := idx ^ 1
		path = append(path, t.nodes[level][sibling])
		idx /= 2
	}
	return path
}

func (t *InMemoryTree) Load(index int) ([]fr.Element, []fr.Element) {
	return t.leaves[index], t.authPath(index)
}

func (t *InMemoryTree) Store(index int, values []fr.Element) (fr.Element, []fr.Element) {
	path := t.authPath(index)
	t.leaves[index] = values
	t.rebuild()
	return t.Root(), path
}

// RecomputeRoot re-derives the root from a leaf's values, its index, and its
// authentication path — the same recomputation both Load (verify) and Store
// (verify-then-replace) perform in-circuit via the storage gadget's rehash.
func RecomputeRoot(leafValues []fr.Element, index int, authPath []fr.Element) fr.Element {
	cur := leafHash(leafValues)
	idx := index
	for _, sibling := range authPath {
		if idx%2 == 0 {
			cur = nodeHash(cur, sibling)
		} else {
			cur = nodeHash(sibling, cur)
		}
		idx /= 2
	}
	return cur
}

// DepthForFields returns ⌈log2(fields)⌉, §4.7's storage-tree sizing rule,
// with a minimum depth of 1 so a one-field contract still gets a tree (not a
// bare leaf with no root to authenticate against).
func DepthForFields(fields int) int {
	if fields <= 1 {
		return 1
	}
	d := 0
	n := 1
	for n < fields {
		n <<= 1
		d++
	}
	return d
}

// MerkleAuthenticationError is returned when a re-derived root does not match
// the storage gadget's current root Scalar (§4.7 "Failure model").
type MerkleAuthenticationError struct {
	Index    int
	Expected *big.Int
	Got      *big.Int
}

func (e *MerkleAuthenticationError) Error() string {
	return fmt.Sprintf("storage: authentication failed at index %d: expected root %s, computed %s", e.Index, e.Expected.String(), e.Got.String())
}
