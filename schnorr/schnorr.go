// Package schnorr implements the unblinded Schnorr signature baseline every
// other protocol in this module builds on: key generation, signing, and
// verification over a single prime-order group.
package schnorr

import (
	"fmt"
	"io"
	"math/big"

	"threshold.network/fse/curvegroup"
)

// SecretKey is a uniform random scalar sk in F_q. It is held by the signer
// only and is never transmitted.
type SecretKey struct {
	sk *big.Int
}

// Scalar exposes the underlying secret scalar for protocols built on top of
// plain Schnorr (blind signing, batched commit-and-release schemes) that
// need to combine it with session-specific randomness.
func (k SecretKey) Scalar() *big.Int {
	return k.sk
}

// PublicKey is the point pk = sk*g.
type PublicKey struct {
	Point curvegroup.Point
}

// Signature is a Schnorr signature (R, s) satisfying s*g = R + c*pk with
// c = H(encode(R) || m).
type Signature struct {
	R curvegroup.Point
	S *big.Int
}

// KeyGen samples sk uniformly from F_q and returns the key pair (sk, sk*g).
func KeyGen(curve *curvegroup.Curve, rng io.Reader) (SecretKey, PublicKey, error) {
	sk, err := curve.RandomScalar(rng)
	if err != nil {
		return SecretKey{}, PublicKey{}, fmt.Errorf("schnorr: keygen: %w", err)
	}
	pk := curve.ScalarBaseMul(sk)
	return SecretKey{sk: sk}, PublicKey{Point: pk}, nil
}

// Sign produces a Schnorr signature on m under sk:
//
//	r <- F_q;  R = r*g
//	c = H(encode(R) || m)
//	s = r + c*sk
func Sign(curve *curvegroup.Curve, sk SecretKey, m []byte, rng io.Reader) (Signature, error) {
	r, err := curve.RandomScalar(rng)
	if err != nil {
		return Signature{}, fmt.Errorf("schnorr: sign: %w", err)
	}

	R := curve.ScalarBaseMul(r)
	c := curve.ChallengeHash(R, m)

	s := new(big.Int).Add(r, new(big.Int).Mul(c, sk.sk))
	s.Mod(s, curve.Order())

	return Signature{R: R, S: s}, nil
}

// Verify checks that sig is a valid signature on m under pk: it recomputes
// c = H(encode(R) || m) and accepts iff s*g = R + c*pk.
func Verify(curve *curvegroup.Curve, pk PublicKey, m []byte, sig Signature) bool {
	c := curve.ChallengeHash(sig.R, m)

	lhs := curve.ScalarBaseMul(sig.S)
	rhs := curve.Add(sig.R, curve.ScalarMul(pk.Point, c))

	return curvegroup.PointsEqual(lhs, rhs)
}
