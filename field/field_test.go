package field

import (
	"encoding/json"
	"math/big"
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestReductionIsCanonical(t *testing.T) {
	c := qt.New(t)

	// P itself reduces to zero.
	c.Assert(New(P).IsZero(), qt.IsTrue)

	// P+1 reduces to one.
	pPlusOne := new(big.Int).Add(P, big.NewInt(1))
	c.Assert(New(pPlusOne).Equal(One()), qt.IsTrue)

	// Negative values wrap around.
	neg := New(big.NewInt(-1))
	c.Assert(neg.Equal(New(new(big.Int).Sub(P, big.NewInt(1)))), qt.IsTrue)
}

func TestArithmetic(t *testing.T) {
	c := qt.New(t)

	a := NewInt(5)
	b := NewInt(3)

	c.Assert(a.Add(b).Equal(NewInt(8)), qt.IsTrue)
	c.Assert(a.Sub(b).Equal(NewInt(2)), qt.IsTrue)
	c.Assert(a.Mul(b).Equal(NewInt(15)), qt.IsTrue)
	c.Assert(a.Square().Equal(NewInt(25)), qt.IsTrue)
	c.Assert(a.Neg().Add(a).IsZero(), qt.IsTrue)
}

func TestJSONRoundTrip(t *testing.T) {
	c := qt.New(t)

	f := NewInt(424242)
	data, err := json.Marshal(f)
	c.Assert(err, qt.IsNil)
	c.Assert(string(data), qt.Equals, `"424242"`)

	var g F
	c.Assert(json.Unmarshal(data, &g), qt.IsNil)
	c.Assert(g.Equal(f), qt.IsTrue)
}

func TestCBORRoundTrip(t *testing.T) {
	c := qt.New(t)

	f := NewInt(987654321)
	data, err := f.MarshalCBOR()
	c.Assert(err, qt.IsNil)

	var g F
	c.Assert(g.UnmarshalCBOR(data), qt.IsNil)
	c.Assert(g.Equal(f), qt.IsTrue)
}

func TestRandomIsInField(t *testing.T) {
	c := qt.New(t)

	for i := 0; i < 16; i++ {
		r := Random()
		c.Assert(r.BigInt().Cmp(P) < 0, qt.IsTrue)
		c.Assert(r.BigInt().Sign() >= 0, qt.IsTrue)
	}
}

func TestNothingUpMySleeveIsNonZeroAndCanonical(t *testing.T) {
	c := qt.New(t)
	c.Assert(NothingUpMySleeve.BigInt().Sign() > 0, qt.IsTrue)
	c.Assert(NothingUpMySleeve.BigInt().Cmp(P) < 0, qt.IsTrue)
}
