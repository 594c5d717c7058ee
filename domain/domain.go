// Package domain defines the MACI wire types — StateLeaf, Command, Message
// — and their single canonical field-element vector serialization. Every
// hash, signature and encryption in the core operates on these vectors;
// JSON and CBOR marshaling of every field.F they contain falls out of
// field.F's own Marshal/Unmarshal pair, so these types need no marshal
// methods of their own beyond the json struct tags.
package domain

import (
	"github.com/therealyingtong/maci/crypto/bjj"
	"github.com/therealyingtong/maci/crypto/poseidon"
	"github.com/therealyingtong/maci/field"
	"github.com/therealyingtong/maci/merkletree"
)

// StateLeaf is one user slot, hashed to form a state-tree leaf.
type StateLeaf struct {
	PubKey             bjj.PubKey `json:"pubKey"`
	VoteOptionTreeRoot field.F    `json:"voteOptionTreeRoot"`
	VoiceCreditBalance field.F    `json:"voiceCreditBalance"`
	Nonce              field.F    `json:"nonce"`
}

// Slice serializes a StateLeaf as [pubKey.x, pubKey.y, voteOptionTreeRoot,
// voiceCreditBalance, nonce], the 5-element vector.
func (s StateLeaf) Slice() field.Slice {
	return field.Slice{s.PubKey.X, s.PubKey.Y, s.VoteOptionTreeRoot, s.VoiceCreditBalance, s.Nonce}
}

// Hash returns H(s.Slice()), the value stored at the corresponding
// state-tree leaf.
func (s StateLeaf) Hash() field.F {
	return poseidon.H(s.Slice()...)
}

// BlankStateLeaf returns the blank leaf for a vote-option tree of the
// given depth: zero pubkey, the root of an all-zero vote-option tree,
// zero balance, zero nonce.
func BlankStateLeaf(voteOptionTreeDepth int) StateLeaf {
	return StateLeaf{
		PubKey:             bjj.PubKey{X: field.Zero(), Y: field.Zero()},
		VoteOptionTreeRoot: BlankVoteOptionTreeRoot(voteOptionTreeDepth),
		VoiceCreditBalance: field.Zero(),
		Nonce:              field.Zero(),
	}
}

// BlankVoteOptionTreeRoot returns the root of a vote-option tree of the
// given depth with every leaf set to zero. The tree is rebuilt on every
// call; the result is not cached.
func BlankVoteOptionTreeRoot(voteOptionTreeDepth int) field.F {
	return merkletree.New(voteOptionTreeDepth, field.Zero()).Root()
}

// RandomStateLeaf draws all four StateLeaf fields from a CSPRNG, producing
// the ephemeral "zeroth leaf" refreshed at the end of every processed
// batch.
func RandomStateLeaf() StateLeaf {
	return StateLeaf{
		PubKey:             bjj.PubKey{X: field.Random(), Y: field.Random()},
		VoteOptionTreeRoot: field.Random(),
		VoiceCreditBalance: field.Random(),
		Nonce:              field.Random(),
	}
}

// Command is a user's cleartext voting intent.
type Command struct {
	StateIndex      field.F    `json:"stateIndex"`
	NewPubKey       bjj.PubKey `json:"newPubKey"`
	VoteOptionIndex field.F    `json:"voteOptionIndex"`
	NewVoteWeight   field.F    `json:"newVoteWeight"`
	Nonce           field.F    `json:"nonce"`
	Salt            field.F    `json:"salt"`
}

// Slice serializes a Command as [stateIndex, newPubKey.x, newPubKey.y,
// voteOptionIndex, newVoteWeight, nonce, salt], the 7-element vector.
func (c Command) Slice() field.Slice {
	return field.Slice{
		c.StateIndex,
		c.NewPubKey.X,
		c.NewPubKey.Y,
		c.VoteOptionIndex,
		c.NewVoteWeight,
		c.Nonce,
		c.Salt,
	}
}

// Hash returns H(c.Slice()), the message commands are signed over.
func (c Command) Hash() field.F {
	return poseidon.H(c.Slice()...)
}

// Sign produces an EdDSA-over-BabyJubJub signature of c.Hash() under sk.
// The caller still has to assemble PlaintextVector and encrypt it to get
// a publishable Message.
func (c Command) Sign(sk bjj.PrivKey) bjj.Signature {
	return bjj.Sign(sk, c.Hash())
}

// Message is an encrypted Command plus its EdDSA signature. Plaintext
// layout before encryption is the 7 Command elements followed by R8.x,
// R8.y, S.
type Message struct {
	IV   field.F     `json:"iv"`
	Data [10]field.F `json:"data"`
}

// Slice serializes a Message as [iv, data_0 .. data_9], the 11-element
// vector.
func (m Message) Slice() field.Slice {
	s := make(field.Slice, 11)
	s[0] = m.IV
	copy(s[1:], m.Data[:])
	return s
}

// Hash returns H(m.Slice()), used as the leaf value of the message tree.
func (m Message) Hash() field.F {
	return poseidon.H(m.Slice()...)
}

// PlaintextVector assembles the 10-element plaintext MACI encrypts: the
// 7-element Command vector followed by R8.x, R8.y, S of the signature.
func PlaintextVector(cmd Command, sig bjj.Signature) [10]field.F {
	var out [10]field.F
	copy(out[0:7], cmd.Slice())
	copy(out[7:10], sig.Slice())
	return out
}

// SplitPlaintextVector is the inverse of PlaintextVector: it splits a
// decrypted 10-element plaintext back into a Command and a Signature. The
// Command returned here is a candidate only — callers must still verify
// the signature and validity predicates before trusting it, since a
// plaintext produced by decrypting with the wrong key is indistinguishable
// from a genuine one at this stage.
func SplitPlaintextVector(plaintext [10]field.F) (Command, bjj.Signature) {
	cmd := Command{
		StateIndex:      plaintext[0],
		NewPubKey:       bjj.PubKey{X: plaintext[1], Y: plaintext[2]},
		VoteOptionIndex: plaintext[3],
		NewVoteWeight:   plaintext[4],
		Nonce:           plaintext[5],
		Salt:            plaintext[6],
	}
	sig := bjj.Signature{
		R8: bjj.PubKey{X: plaintext[7], Y: plaintext[8]},
		S:  plaintext[9],
	}
	return cmd, sig
}
