package domain

import (
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/therealyingtong/maci/crypto/bjj"
	"github.com/therealyingtong/maci/field"
)

func TestStateLeafSliceShape(t *testing.T) {
	c := qt.New(t)

	leaf := StateLeaf{
		PubKey:             bjj.PubKey{X: field.NewInt(1), Y: field.NewInt(2)},
		VoteOptionTreeRoot: field.NewInt(3),
		VoiceCreditBalance: field.NewInt(4),
		Nonce:              field.NewInt(5),
	}
	c.Assert(len(leaf.Slice()), qt.Equals, 5)
	c.Assert(leaf.Hash().Equal(leaf.Hash()), qt.IsTrue)
}

func TestBlankStateLeafIsDeterministic(t *testing.T) {
	c := qt.New(t)

	a := BlankStateLeaf(4)
	b := BlankStateLeaf(4)
	c.Assert(a.Hash().Equal(b.Hash()), qt.IsTrue)
	c.Assert(a.PubKey.IsZero(), qt.IsTrue)
}

func TestBlankStateLeafDepthChangesRoot(t *testing.T) {
	c := qt.New(t)

	a := BlankStateLeaf(3)
	b := BlankStateLeaf(4)
	c.Assert(a.VoteOptionTreeRoot.Equal(b.VoteOptionTreeRoot), qt.IsFalse)
}

func TestRandomStateLeafIsNotBlank(t *testing.T) {
	c := qt.New(t)

	r := RandomStateLeaf()
	blank := BlankStateLeaf(4)
	c.Assert(r.Hash().Equal(blank.Hash()), qt.IsFalse)
}

func TestCommandSliceShapeAndHash(t *testing.T) {
	c := qt.New(t)

	cmd := Command{
		StateIndex:      field.NewInt(1),
		NewPubKey:       bjj.PubKey{X: field.NewInt(2), Y: field.NewInt(3)},
		VoteOptionIndex: field.NewInt(4),
		NewVoteWeight:   field.NewInt(5),
		Nonce:           field.NewInt(6),
		Salt:            field.NewInt(7),
	}
	c.Assert(len(cmd.Slice()), qt.Equals, 7)

	other := cmd
	other.Salt = field.NewInt(8)
	c.Assert(cmd.Hash().Equal(other.Hash()), qt.IsFalse)
}

func TestCommandSignVerifiesUnderPublicKey(t *testing.T) {
	c := qt.New(t)

	kp := bjj.NewKeypair()
	cmd := Command{
		StateIndex:      field.NewInt(1),
		NewPubKey:       kp.Pub,
		VoteOptionIndex: field.NewInt(0),
		NewVoteWeight:   field.NewInt(3),
		Nonce:           field.NewInt(1),
		Salt:            field.Random(),
	}
	sig := cmd.Sign(kp.Priv)
	c.Assert(bjj.Verify(kp.Pub, cmd.Hash(), sig), qt.IsTrue)
}

func TestPlaintextVectorRoundTrip(t *testing.T) {
	c := qt.New(t)

	kp := bjj.NewKeypair()
	cmd := Command{
		StateIndex:      field.NewInt(2),
		NewPubKey:       kp.Pub,
		VoteOptionIndex: field.NewInt(1),
		NewVoteWeight:   field.NewInt(2),
		Nonce:           field.NewInt(1),
		Salt:            field.Random(),
	}
	sig := cmd.Sign(kp.Priv)

	pt := PlaintextVector(cmd, sig)
	c.Assert(len(pt), qt.Equals, 10)

	gotCmd, gotSig := SplitPlaintextVector(pt)
	c.Assert(gotCmd, qt.DeepEquals, cmd)
	c.Assert(gotSig, qt.DeepEquals, sig)
}

func TestMessageSliceShapeAndHash(t *testing.T) {
	c := qt.New(t)

	var data [10]field.F
	for i := range data {
		data[i] = field.NewInt(int64(i))
	}
	msg := Message{IV: field.NewInt(99), Data: data}
	c.Assert(len(msg.Slice()), qt.Equals, 11)

	other := msg
	other.IV = field.NewInt(100)
	c.Assert(msg.Hash().Equal(other.Hash()), qt.IsFalse)
}
