package gadgets

import (
	"crypto/sha256"
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/hash"
	eddsa "github.com/consensys/gnark-crypto/signature/eddsa"
	"github.com/dolthub/swiss"

	"github.com/zinc-lang/zinc/lang/bytecode"
	"github.com/zinc-lang/zinc/vm/constraint"
)

// Sha256 and PedersenHash realize §4.7's CallLibrary hash intrinsics. Both
// compute their digest off-circuit with a real hash library — the in-circuit
// bit-level compression-function gadget original_source/zinc-compiler hand-
// rolls is out of this port's reach — and then bind the digest into the
// constraint system as a single opaque witness, the same trust boundary
// `vm/storage`'s leaf rehashing draws for its own SHA-256 authentication
// path. Every input Scalar is serialized as its 32-byte field-element
// encoding, concatenated in argument order.
func Sha256(cs *constraint.System, inputs []Scalar) Scalar {
	h := sha256.New()
	for _, in := range inputs {
		b := in.Value.Bytes()
		h.Write(b[:])
	}
	digest := h.Sum(nil)
	var v fr.Element
	v.SetBytes(digest)
	return Witness(cs, FieldType, v)
}

// PedersenHash approximates the original's Pedersen commitment with
// gnark-crypto's MiMC, the BN254-scalar-field-native, circuit-friendly hash
// the ecosystem offers in place of an elliptic-curve Pedersen construction
// (DESIGN.md's domain-stack wiring for this package).
func PedersenHash(cs *constraint.System, inputs []Scalar) Scalar {
	h := hash.MIMC_BN254.New()
	for _, in := range inputs {
		b := in.Value.Bytes()
		h.Write(b[:])
	}
	digest := h.Sum(nil)
	var v fr.Element
	v.SetBytes(digest)
	return Witness(cs, FieldType, v)
}

// SchnorrVerify checks an EdDSA (twisted-Edwards-over-BN254) signature —
// gnark-crypto's stand-in for the original's Schnorr-over-the-embedded-curve
// scheme, the closest verifiable signature primitive the ecosystem exposes
// for this field. pubKey/sig are the raw bytes of a previously-produced
// eddsa public key / signature; msg is the signed message bytes recovered
// from the argument Scalars the same way Sha256 serializes its inputs.
func SchnorrVerify(cs *constraint.System, pubKeyBytes, sigBytes []byte, msg []Scalar) (Scalar, error) {
	var pub eddsa.PublicKey
	if _, err := pub.SetBytes(pubKeyBytes); err != nil {
		return Scalar{}, fmt.Errorf("gadgets: schnorr_verify: invalid public key: %w", err)
	}
	h := sha256.New()
	for _, m := range msg {
		b := m.Value.Bytes()
		h.Write(b[:])
	}
	ok, err := pub.Verify(sigBytes, h.Sum(nil), hash.MIMC_BN254.New())
	if err != nil {
		return Scalar{}, fmt.Errorf("gadgets: schnorr_verify: %w", err)
	}
	return NewConstant(BoolType, FromBool(ok)), nil
}

// FieldInverse is the named §4.7 intrinsic wrapping fr.Element.Inverse;
// division by zero is a compile-time-checked precondition for this
// intrinsic's callers (per original_source, it is used only where the
// divisor is already known nonzero), so it panics rather than erroring —
// mirroring the spec's own framing of this as a primitive, not a
// checked arithmetic operator like Div.
func FieldInverse(cs *constraint.System, a Scalar) Scalar {
	if a.Value.IsZero() {
		panic("gadgets: field_inverse of zero")
	}
	var v fr.Element
	v.Inverse(&a.Value)
	out := Witness(cs, FieldType, v)
	cs.Add(a.LC(), out.LC(), constraint.Constant(fr.One()))
	return out
}

// ArrayReverse/ArrayTruncate/ArrayPad are pure data-shape intrinsics — no
// constraints beyond what already bind each element Scalar, since
// reordering or resizing a flat scalar run changes no value's range or
// relation to any other.

func ArrayReverse(elems []Scalar) []Scalar {
	out := make([]Scalar, len(elems))
	for i, e := range elems {
		out[len(elems)-1-i] = e
	}
	return out
}

func ArrayTruncate(elems []Scalar, n int) []Scalar {
	if n >= len(elems) {
		return elems
	}
	return elems[:n]
}

func ArrayPad(elems []Scalar, n int, fill Scalar) []Scalar {
	if n <= len(elems) {
		return elems
	}
	out := make([]Scalar, n)
	copy(out, elems)
	for i := len(elems); i < n; i++ {
		out[i] = fill
	}
	return out
}

// MTreeMap is the off-circuit backing table for the authenticated-map
// intrinsics (`MTreeMap::get|contains|insert|remove`, §4.7): a swiss-table
// hash map keyed by the map key's field-element byte encoding, the fast
// lookup path a real implementation consults before any Merkle
// (re)authentication against `vm/storage`'s tree (DESIGN.md's domain-stack
// wiring for `dolthub/swiss`).
type MTreeMap struct {
	backing *swiss.Map[fr.Element, Scalar]
}

func NewMTreeMap() *MTreeMap {
	return &MTreeMap{backing: swiss.NewMap[fr.Element, Scalar](8)}
}

func (m *MTreeMap) Get(key fr.Element) (Scalar, bool) {
	return m.backing.Get(key)
}

func (m *MTreeMap) Contains(key fr.Element) bool {
	return m.backing.Has(key)
}

func (m *MTreeMap) Insert(key fr.Element, value Scalar) {
	m.backing.Put(key, value)
}

func (m *MTreeMap) Remove(key fr.Element) bool {
	return m.backing.Delete(key)
}

// Transfer records one `<Contract>::transfer` call (§4.7): the library
// intrinsic itself never moves value — it is the out-of-scope zkSync payment
// collaborator's job (§1) — so the VM only appends a
// record of the requested transfer to the run's result for the host to act
// on.
type Transfer struct {
	To     bytecode.Type // ETH_ADDRESS-typed Scalar's serialized form
	ToAddr *big.Int
	Amount *big.Int
}
