// Package poseidon wraps the iden3 Poseidon permutation as the hash H used
// throughout the MACI core: state leaf hashing, EdDSA challenge hashing,
// Merkle inner nodes, and the symmetric cipher's keystream all reduce to
// calls into this package.
package poseidon

import (
	"fmt"
	"math/big"

	iden3poseidon "github.com/iden3/go-iden3-crypto/poseidon"

	"github.com/therealyingtong/maci/field"
)

// maxArity is the widest input vector the underlying permutation accepts in
// a single call before inputs must be chunked and re-hashed.
const maxArity = 16

// H hashes a sequence of field elements to a single field element. Inputs
// wider than the permutation's native arity are chunked and the chunk
// hashes are hashed again, the standard multi-input strategy for
// extending a fixed-arity Poseidon permutation to variable-length input.
func H(inputs ...field.F) field.F {
	if len(inputs) == 0 {
		panic("poseidon: H called with no inputs")
	}
	if len(inputs) <= maxArity {
		return hashChunk(inputs)
	}

	var chunkHashes []field.F
	for start := 0; start < len(inputs); start += maxArity {
		end := start + maxArity
		if end > len(inputs) {
			end = len(inputs)
		}
		chunkHashes = append(chunkHashes, hashChunk(inputs[start:end]))
	}
	return hashChunk(chunkHashes)
}

// HashOne is H applied to a single element.
func HashOne(x field.F) field.F {
	return H(x)
}

func hashChunk(inputs []field.F) field.F {
	h, err := iden3poseidon.Hash(toBigInts(inputs))
	if err != nil {
		// Poseidon only fails on arity it cannot accept; maxArity keeps us
		// under that ceiling, so reaching here is a programmer error.
		panic(fmt.Sprintf("poseidon: hash failed: %v", err))
	}
	return field.New(h)
}

func toBigInts(inputs []field.F) []*big.Int {
	out := make([]*big.Int, len(inputs))
	for i, f := range inputs {
		out[i] = f.BigInt()
	}
	return out
}
