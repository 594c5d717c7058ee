// Package field implements arithmetic over the SNARK-friendly prime field
// used throughout the MACI core: BabyJubJub scalars, Poseidon hash inputs,
// Merkle tree leaves and vote weights all live in this field.
package field

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"math/big"

	"golang.org/x/crypto/sha3"
)

// P is the SNARK scalar field modulus, the scalar field of the BN254
// pairing curve over which BabyJubJub is defined.
var P, _ = new(big.Int).SetString(
	"21888242871839275222246405745257275088548364400416034343698204186575808495617", 10)

// F is a canonical representative of the field modulo P. The zero value is
// the additive identity. Values are never mixed with native integers; every
// constructor reduces its input modulo P so this is the single choke point
// for field reduction in the codebase.
type F struct {
	v big.Int
}

// Zero is the additive identity of F.
func Zero() F { return F{} }

// One is the multiplicative identity of F.
func One() F { return NewInt(1) }

// New reduces i modulo P and returns the canonical representative.
func New(i *big.Int) F {
	var f F
	f.v.Mod(i, P)
	return f
}

// NewInt builds an F from a native int64.
func NewInt(i int64) F {
	return New(big.NewInt(i))
}

// NewFromBytes builds an F from a big-endian byte slice, reducing modulo P.
func NewFromBytes(b []byte) F {
	return New(new(big.Int).SetBytes(b))
}

// MustFromString parses a base-10 string into F, panicking on malformed
// input. Intended for constants and tests, not for untrusted wire input.
func MustFromString(s string) F {
	i, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic(fmt.Sprintf("field: invalid decimal string %q", s))
	}
	return New(i)
}

// BigInt returns the value as a *big.Int in [0, P). The returned pointer is
// a fresh copy; mutating it does not affect f.
func (f F) BigInt() *big.Int {
	return new(big.Int).Set(&f.v)
}

// Add returns f + g mod P.
func (f F) Add(g F) F {
	var r big.Int
	r.Add(&f.v, &g.v)
	return New(&r)
}

// Sub returns f - g mod P.
func (f F) Sub(g F) F {
	var r big.Int
	r.Sub(&f.v, &g.v)
	return New(&r)
}

// Mul returns f * g mod P.
func (f F) Mul(g F) F {
	var r big.Int
	r.Mul(&f.v, &g.v)
	return New(&r)
}

// Square returns f * f mod P.
func (f F) Square() F {
	return f.Mul(f)
}

// Neg returns -f mod P.
func (f F) Neg() F {
	var r big.Int
	r.Neg(&f.v)
	return New(&r)
}

// IsZero reports whether f is the additive identity.
func (f F) IsZero() bool {
	return f.v.Sign() == 0
}

// Equal reports whether f and g are the same canonical representative.
func (f F) Equal(g F) bool {
	return f.v.Cmp(&g.v) == 0
}

// Cmp behaves like big.Int.Cmp on the canonical representatives.
func (f F) Cmp(g F) int {
	return f.v.Cmp(&g.v)
}

// String returns the canonical decimal representation, the wire format
// consumed by the external prover.
func (f F) String() string {
	return f.v.String()
}

// MarshalJSON encodes f as a JSON string of its decimal representation,
// the stable decimal-string convention circuit inputs are expected
// to use.
func (f F) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.v.String())
}

// UnmarshalJSON decodes a JSON string of decimal digits into f, reducing
// modulo P.
func (f *F) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("field: unmarshal: %w", err)
	}
	i, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return fmt.Errorf("field: invalid decimal string %q", s)
	}
	f.v.Mod(i, P)
	return nil
}

// MarshalCBOR encodes f as the CBOR encoding of its underlying *big.Int.
func (f F) MarshalCBOR() ([]byte, error) {
	return cborEncodeBigInt(&f.v)
}

// UnmarshalCBOR decodes f from the CBOR encoding of a *big.Int, as written
// by MarshalCBOR, reducing modulo P.
func (f *F) UnmarshalCBOR(data []byte) error {
	i, err := cborDecodeBigInt(data)
	if err != nil {
		return fmt.Errorf("field: unmarshal cbor: %w", err)
	}
	f.v.Mod(i, P)
	return nil
}

// Random returns a uniformly random element of F, read from crypto/rand.
// Used for message IVs, command salts, and the per-batch random state leaf
// fields.
func Random() F {
	i, err := rand.Int(rand.Reader, P)
	if err != nil {
		// crypto/rand.Reader failing is a fatal host-environment error, not
		// something callers can recover from.
		panic(fmt.Sprintf("field: crypto/rand failure: %v", err))
	}
	return New(i)
}

// NothingUpMySleeve is the deterministic message-tree zero value, derived as
// keccak256("Maci") mod P, so its origin is publicly verifiable and carries
// no hidden trapdoor.
var NothingUpMySleeve = func() F {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte("Maci"))
	return NewFromBytes(h.Sum(nil))
}()
