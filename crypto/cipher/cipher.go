// Package cipher implements the symmetric stream cipher MACI uses to
// encrypt a command's plaintext field-element vector under an
// ECDH-derived shared key. It offers a convenience Encrypt that draws its
// own IV alongside EncryptWithIV, which takes the IV explicitly. The
// keystream is a Poseidon-based stream cipher rather than a discrete-log
// scheme, matching what the MACI circuits expect to invert during message
// processing.
package cipher

import (
	"github.com/therealyingtong/maci/crypto/poseidon"
	"github.com/therealyingtong/maci/field"
)

// Ciphertext is the encrypted form of a field-element plaintext vector: a
// random IV plus one output element per plaintext element.
type Ciphertext struct {
	IV   field.F
	Data []field.F
}

// Encrypt encrypts plaintext under key using a freshly drawn random IV.
// Equivalent to EncryptWithIV(plaintext, key, field.Random()).
func Encrypt(plaintext []field.F, key field.F) Ciphertext {
	return EncryptWithIV(plaintext, key, field.Random())
}

// EncryptWithIV encrypts plaintext under key using the given IV, making the
// randomness explicit so tests and the batch circuit-input builder can
// inject deterministic values.
//
// For each index i, the keystream element k_i = H([key, iv+i]) and
// data[i] = plaintext[i] + k_i (mod P).
func EncryptWithIV(plaintext []field.F, key, iv field.F) Ciphertext {
	data := make([]field.F, len(plaintext))
	for i, pt := range plaintext {
		data[i] = pt.Add(keystreamElement(key, iv, i))
	}
	return Ciphertext{IV: iv, Data: data}
}

// Decrypt recovers the plaintext vector from ct under key. Using a
// different key than the one used to encrypt yields a vector unrelated to
// the original plaintext, indistinguishable from a validly-encrypted
// invalid command.
func Decrypt(ct Ciphertext, key field.F) []field.F {
	plaintext := make([]field.F, len(ct.Data))
	for i, d := range ct.Data {
		plaintext[i] = d.Sub(keystreamElement(key, ct.IV, i))
	}
	return plaintext
}

func keystreamElement(key, iv field.F, i int) field.F {
	return poseidon.H(key, iv.Add(field.NewInt(int64(i))))
}
