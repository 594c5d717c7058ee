package bjj

import (
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/therealyingtong/maci/field"
)

func TestKeypairInvariant(t *testing.T) {
	c := qt.New(t)

	kp := NewKeypair()
	c.Assert(kp.Pub.Equal(kp.Priv.Public()), qt.IsTrue)
	c.Assert(kp.Pub.IsZero(), qt.IsFalse)
}

func TestSignVerify(t *testing.T) {
	c := qt.New(t)

	kp := NewKeypair()
	msg := field.NewInt(123456789)
	sig := Sign(kp.Priv, msg)

	c.Assert(Verify(kp.Pub, msg, sig), qt.IsTrue)
}

func TestVerifyRejectsTamperedMessage(t *testing.T) {
	c := qt.New(t)

	kp := NewKeypair()
	sig := Sign(kp.Priv, field.NewInt(1))
	c.Assert(Verify(kp.Pub, field.NewInt(2), sig), qt.IsFalse)
}

func TestVerifyRejectsTamperedSignature(t *testing.T) {
	c := qt.New(t)

	kp := NewKeypair()
	msg := field.NewInt(1)
	sig := Sign(kp.Priv, msg)
	sig.S = sig.S.Add(field.NewInt(1))
	c.Assert(Verify(kp.Pub, msg, sig), qt.IsFalse)
}

func TestVerifyRejectsWrongKey(t *testing.T) {
	c := qt.New(t)

	kp1 := NewKeypair()
	kp2 := NewKeypair()
	msg := field.NewInt(42)
	sig := Sign(kp1.Priv, msg)
	c.Assert(Verify(kp2.Pub, msg, sig), qt.IsFalse)
}

func TestECDHSymmetry(t *testing.T) {
	c := qt.New(t)

	a := NewKeypair()
	b := NewKeypair()

	sharedA := ECDH(a.Priv, b.Pub)
	sharedB := ECDH(b.Priv, a.Pub)
	c.Assert(sharedA.Equal(sharedB), qt.IsTrue)
}

func TestPrivKeyFieldRoundTrip(t *testing.T) {
	c := qt.New(t)

	kp := NewKeypair()
	f := kp.Priv.Field()
	rebuilt := PrivKeyFromField(f)
	c.Assert(rebuilt.Public().Equal(kp.Pub), qt.IsTrue)
}
