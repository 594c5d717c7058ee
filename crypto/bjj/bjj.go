// Package bjj wraps BabyJubJub keypair generation, ECDH shared-key
// derivation, and EdDSA-over-BabyJubJub signing/verification on top of
// github.com/iden3/go-iden3-crypto/babyjub.
package bjj

import (
	"math/big"

	"github.com/iden3/go-iden3-crypto/babyjub"

	"github.com/therealyingtong/maci/field"
)

// PrivKey is a 32-byte seed from which the actual BabyJubJub scalar is
// derived by the standard pruned-buffer construction; the seed, not the
// derived scalar, is what gets stored and serialized.
type PrivKey struct {
	raw babyjub.PrivateKey
}

// NewPrivKey generates a fresh random private key seed from crypto/rand.
// The seed is drawn below P, so it survives a Field/PrivKeyFromField
// round trip unchanged.
func NewPrivKey() PrivKey {
	return PrivKeyFromField(field.Random())
}

// PrivKeyFromField rebuilds a PrivKey from its field-element seed
// representation, left-padding to 32 bytes.
func PrivKeyFromField(f field.F) PrivKey {
	b := f.BigInt().Bytes()
	var raw babyjub.PrivateKey
	copy(raw[len(raw)-len(b):], b)
	return PrivKey{raw: raw}
}

// Field returns the 32-byte seed as a field element, the canonical
// serialization used when a Keypair is hashed or persisted by a caller.
func (k PrivKey) Field() field.F {
	return field.NewFromBytes(k.raw[:])
}

// Public derives the public key, applying the pruned-buffer scalar
// derivation internally before the base-point scalar multiplication:
// pubKey = scalarMul(basePoint, prune(privKey)).
func (k PrivKey) Public() PubKey {
	pub := k.raw.Public()
	return PubKey{X: field.New(pub.X), Y: field.New(pub.Y)}
}

func (k PrivKey) scalar() *big.Int {
	return k.raw.Scalar().BigInt()
}

// PubKey is a point (x, y) on BabyJubJub.
type PubKey struct {
	X field.F `json:"x"`
	Y field.F `json:"y"`
}

// Slice serializes the public key as [x, y], the canonical 2-element vector
// form used for hashing and as part of Command/StateLeaf vectors.
func (pk PubKey) Slice() field.Slice {
	return field.Slice{pk.X, pk.Y}
}

// Equal reports whether two public keys have the same coordinates.
func (pk PubKey) Equal(o PubKey) bool {
	return pk.X.Equal(o.X) && pk.Y.Equal(o.Y)
}

// IsZero reports whether pk is the zero point, the pubKey of a blank state
// leaf.
func (pk PubKey) IsZero() bool {
	return pk.X.IsZero() && pk.Y.IsZero()
}

func (pk PubKey) point() *babyjub.Point {
	return &babyjub.Point{X: pk.X.BigInt(), Y: pk.Y.BigInt()}
}

// Keypair bundles a private seed with its derived public key.
type Keypair struct {
	Priv PrivKey
	Pub  PubKey
}

// NewKeypair generates a fresh random keypair.
func NewKeypair() Keypair {
	priv := NewPrivKey()
	return Keypair{Priv: priv, Pub: priv.Public()}
}

// Signature is an EdDSA-over-BabyJubJub signature: a curve point R8 and a
// scalar S, exactly the two fields MACI commands append to their plaintext
// before encryption.
type Signature struct {
	R8 PubKey
	S  field.F
}

// Slice serializes the signature as [R8.x, R8.y, S], matching the trailing
// three elements of a Message's ten-element plaintext layout.
func (s Signature) Slice() field.Slice {
	return field.Slice{s.R8.X, s.R8.Y, s.S}
}

// Sign produces an EdDSA-over-BabyJubJub signature of msg using Poseidon as
// the internal challenge hash, the scheme MACI requires.
func Sign(sk PrivKey, msg field.F) Signature {
	sig := sk.raw.SignPoseidon(msg.BigInt())
	return Signature{
		R8: PubKey{X: field.New(sig.R8.X), Y: field.New(sig.R8.Y)},
		S:  field.New(sig.S),
	}
}

// Verify reports whether sig is a valid EdDSA-over-BabyJubJub signature of
// msg under pk. Any algebraic failure (non-canonical coordinates, a point
// off the curve) verifies to false rather than panicking.
func Verify(pk PubKey, msg field.F, sig Signature) bool {
	bjPub := babyjub.PublicKey(*pk.point())
	bjSig := &babyjub.Signature{
		R8: sig.R8.point(),
		S:  sig.S.BigInt(),
	}
	return bjPub.VerifyPoseidon(msg.BigInt(), bjSig)
}

// ECDH derives the Diffie-Hellman shared secret between sk and pk as a
// single field element: the x-coordinate of scalarMul(pk, prune(sk)).
// It is symmetric: ECDH(a.Priv, b.Pub) == ECDH(b.Priv, a.Pub) for any
// keypairs a, b.
func ECDH(sk PrivKey, pk PubKey) field.F {
	shared := babyjub.NewPoint().Mul(sk.scalar(), pk.point())
	return field.New(shared.X)
}
