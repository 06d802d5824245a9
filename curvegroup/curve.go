// Package curvegroup implements the GroupOps substrate the rest of this
// module is built on: a single prime-order elliptic-curve group G with
// generator g, scalar field F_q, and a canonical, injective byte encoding of
// group elements.
//
// The source this module generalizes from carried two parallel group
// instantiations — one over a pairing-equipped curve, one over a
// short-Weierstrass curve — even though no protocol in the core uses
// pairings. This package collapses that duplication into the one concrete
// instantiation (secp256k1) that the FROST/BIP-340 lineage of this
// implementation already uses elsewhere, wrapped behind a small interface so
// a different curve could be substituted without touching Schnorr, FSE, or
// BFSE.
package curvegroup

import (
	"fmt"
	"io"
	"math/big"

	"github.com/ethereum/go-ethereum/crypto/secp256k1"
)

// Point is an affine point on the curve. The zero value is not a valid
// point; use Curve.Identity for the group identity.
type Point struct {
	X *big.Int
	Y *big.Int
}

// identityTag marks the canonical encoding of the group identity. A valid
// affine point is always encoded with the 0x04 SEC1 uncompressed-point
// prefix, so 0x00 can never collide with it.
const identityTag = 0x00

// EncodedPointLength is the length in bytes of Curve.Encode's output.
const EncodedPointLength = 65

// Curve is the prime-order group (G, +, g, q) every protocol in this module
// is parameterized over.
type Curve struct {
	curve *secp256k1.BitCurve
}

// New returns the secp256k1 instantiation of Curve used throughout this
// module.
func New() *Curve {
	return &Curve{curve: secp256k1.S256()}
}

// Generator returns g, the fixed base point of the group.
func (c *Curve) Generator() Point {
	return Point{
		X: new(big.Int).Set(c.curve.Gx),
		Y: new(big.Int).Set(c.curve.Gy),
	}
}

// Order returns q, the prime order of the group (and of F_q).
func (c *Curve) Order() *big.Int {
	return new(big.Int).Set(c.curve.N)
}

// Identity returns the group identity element, canonically represented as
// (0, 0) — a pair that can never be a valid affine point on secp256k1
// (setting x = 0 in y^2 = x^3 + 7 leaves y^2 = 7, which has no solution
// modulo the field prime).
func (c *Curve) Identity() Point {
	return Point{X: big.NewInt(0), Y: big.NewInt(0)}
}

// IsIdentity reports whether P is the canonical identity representation.
func (c *Curve) IsIdentity(p Point) bool {
	return p.X.Sign() == 0 && p.Y.Sign() == 0
}

// IsOnCurve reports whether p is a valid point on the curve (excluding the
// identity, which is not an affine curve point).
func (c *Curve) IsOnCurve(p Point) bool {
	return c.curve.IsOnCurve(p.X, p.Y)
}

// ScalarBaseMul returns s*g.
func (c *Curve) ScalarBaseMul(s *big.Int) Point {
	sMod := new(big.Int).Mod(s, c.curve.N)
	x, y := c.curve.ScalarBaseMult(sMod.Bytes())
	return Point{X: x, Y: y}
}

// ScalarMul returns s*P.
func (c *Curve) ScalarMul(p Point, s *big.Int) Point {
	sMod := new(big.Int).Mod(s, c.curve.N)
	x, y := c.curve.ScalarMult(p.X, p.Y, sMod.Bytes())
	return Point{X: x, Y: y}
}

// Add returns P+Q.
func (c *Curve) Add(p, q Point) Point {
	x, y := c.curve.Add(p.X, p.Y, q.X, q.Y)
	return Point{X: x, Y: y}
}

// Double returns 2*P.
func (c *Curve) Double(p Point) Point {
	x, y := c.curve.Double(p.X, p.Y)
	return Point{X: x, Y: y}
}

// Negate returns -P.
func (c *Curve) Negate(p Point) Point {
	if c.IsIdentity(p) {
		return p
	}
	return Point{X: new(big.Int).Set(p.X), Y: new(big.Int).Sub(c.curve.Params().P, p.Y)}
}

// Sub returns P-Q.
func (c *Curve) Sub(p, q Point) Point {
	return c.Add(p, c.Negate(q))
}

// PointsEqual reports whether two points represent the same group element.
func PointsEqual(p, q Point) bool {
	return p.X.Cmp(q.X) == 0 && p.Y.Cmp(q.Y) == 0
}

// Encode serializes a point to a fixed-width, canonical, injective byte
// string suitable for use as hash input. Valid curve points use the SEC1
// uncompressed encoding (0x04 || X || Y, both 32-byte big-endian); the
// identity uses a dedicated 0x00 prefix that can never arise from an
// uncompressed affine encoding.
func (c *Curve) Encode(p Point) []byte {
	if c.IsIdentity(p) {
		return make([]byte, EncodedPointLength)
	}
	return c.curve.Marshal(p.X, p.Y)
}

// DecodePoint parses an encoding produced by Encode back into a Point. It
// returns an error if b is not a validly-encoded identity or on-curve point.
func (c *Curve) DecodePoint(b []byte) (Point, error) {
	if len(b) != EncodedPointLength {
		return Point{}, fmt.Errorf("curvegroup: encoded point must be %d bytes, got %d", EncodedPointLength, len(b))
	}
	if b[0] == identityTag {
		for _, v := range b[1:] {
			if v != 0 {
				return Point{}, fmt.Errorf("curvegroup: malformed identity encoding")
			}
		}
		return c.Identity(), nil
	}
	x, y := c.curve.Unmarshal(b)
	if x == nil || y == nil {
		return Point{}, fmt.Errorf("curvegroup: invalid point encoding")
	}
	p := Point{X: x, Y: y}
	if !c.IsOnCurve(p) {
		return Point{}, fmt.Errorf("curvegroup: decoded point is not on the curve")
	}
	return p, nil
}

// maxSampleAttempts bounds the rejection-sampling loop in RandomScalar. With
// q this close to 2^256 a retry is already astronomically unlikely; this
// only guards against a broken or adversarial io.Reader spinning forever.
const maxSampleAttempts = 256

// RandomScalar draws a uniform scalar from F_q using rng, rejecting draws
// that fall outside [0, q). It returns an error wrapping ErrEntropy if rng
// fails or is exhausted before a valid sample is found.
func (c *Curve) RandomScalar(rng io.Reader) (*big.Int, error) {
	buf := make([]byte, (c.curve.BitSize+7)/8)
	for attempt := 0; attempt < maxSampleAttempts; attempt++ {
		if _, err := io.ReadFull(rng, buf); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrEntropy, err)
		}
		candidate := new(big.Int).SetBytes(buf)
		if candidate.Cmp(c.curve.N) < 0 {
			return candidate, nil
		}
	}
	return nil, fmt.Errorf("%w: exhausted %d sampling attempts", ErrEntropy, maxSampleAttempts)
}
