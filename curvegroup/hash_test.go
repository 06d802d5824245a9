package curvegroup

import (
	"crypto/sha256"
	"math/big"
	"testing"

	"threshold.network/fse/internal/testutils"
)

func TestHashToScalarIsLittleEndianReduction(t *testing.T) {
	c := New()
	msg := []byte{0, 1, 2, 3}

	got := c.HashToScalar(msg)

	digest := sha256.Sum256(msg)
	reversed := make([]byte, len(digest))
	for i, v := range digest {
		reversed[len(digest)-1-i] = v
	}
	want := new(big.Int).Mod(new(big.Int).SetBytes(reversed), c.Order())

	testutils.AssertBigIntsEqual(t, "HashToScalar", want, got)
}

func TestHashToScalarIsDeterministic(t *testing.T) {
	c := New()
	msg := []byte("fair signature exchange")

	testutils.AssertBigIntsEqual(t, "repeated HashToScalar calls", c.HashToScalar(msg), c.HashToScalar(msg))
}

func TestChallengeHashBindsPointAndMessage(t *testing.T) {
	c := New()
	r := c.ScalarBaseMul(big.NewInt(9))

	c1 := c.ChallengeHash(r, []byte("m1"))
	c2 := c.ChallengeHash(r, []byte("m2"))

	if c1.Cmp(c2) == 0 {
		t.Fatalf("expected distinct challenges for distinct messages")
	}

	other := c.ScalarBaseMul(big.NewInt(10))
	c3 := c.ChallengeHash(other, []byte("m1"))
	if c1.Cmp(c3) == 0 {
		t.Fatalf("expected distinct challenges for distinct commitment points")
	}
}
