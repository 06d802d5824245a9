package curvegroup

import (
	"crypto/sha256"
	"math/big"
)

// HashToScalar implements H: bytes -> F_q: SHA-256 of the input, interpreted
// as an unsigned little-endian integer, reduced modulo q.
//
// This deliberately does not use the BIP-340-style tagged, big-endian hash
// the rest of the FROST/BIP-340 lineage in this corpus uses for its H1..H5
// functions — this module's protocols (Schnorr, BlindSchnorr, FSE, BFSE) use
// a single untagged hash with little-endian reduction, matching the
// reference implementation this module generalizes.
func (c *Curve) HashToScalar(b []byte) *big.Int {
	digest := sha256.Sum256(b)
	return reduceLittleEndian(digest[:], c.curve.N)
}

// reduceLittleEndian interprets b as an unsigned little-endian integer and
// reduces it modulo q. The slight statistical bias this introduces (at most
// 2^-128 for a 256-bit q) is accepted as standard practice.
func reduceLittleEndian(b []byte, q *big.Int) *big.Int {
	reversed := make([]byte, len(b))
	for i, v := range b {
		reversed[len(b)-1-i] = v
	}
	x := new(big.Int).SetBytes(reversed)
	return x.Mod(x, q)
}

// concat returns a fresh byte slice holding a followed by every element of
// bs, without mutating any of the inputs (append(a, b...) can silently
// extend a in place when a has spare capacity).
func concat(a []byte, bs ...[]byte) []byte {
	c := make([]byte, len(a))
	copy(c, a)
	for _, b := range bs {
		c = append(c, b...)
	}
	return c
}

// ChallengeHash computes H(encode(R) || m), the Schnorr-style challenge used
// throughout this module: Schnorr.Sign/Verify, BlindSchnorr, FSE, and BFSE
// all derive their per-message challenge this way.
func (c *Curve) ChallengeHash(r Point, message []byte) *big.Int {
	return c.HashToScalar(concat(c.Encode(r), message))
}
