// Package fse implements the non-interactive Fair Signature Exchange
// protocol: a signer commits, in one shot, to n independent Schnorr
// signatures over n messages. Releasing a single shared scalar k
// atomically unlocks every signature in the batch, so a counterparty either
// gets all n signatures or none of them.
//
// Per-message work in Sign and Verify (scalar multiplications, challenge
// hashes, and the alpha arithmetic) is batched through
// curvegroup.ParallelMap so that large n is spread across worker
// goroutines; Recover is a plain sequential loop. This mirrors the
// rayon::par_iter data-parallel maps this package generalizes from. Nonce
// and k sampling stay strictly sequential, ahead of any parallel section,
// because crypto/rand.Reader is not safe to fan out across goroutines
// without its own synchronization.
package fse

import (
	"fmt"
	"io"
	"math/big"

	"threshold.network/fse/curvegroup"
	"threshold.network/fse/schnorr"
)

var two = big.NewInt(2)

// GenKey samples a fresh Schnorr key pair for use with Sign/Verify.
func GenKey(curve *curvegroup.Curve, rng io.Reader) (schnorr.SecretKey, schnorr.PublicKey, error) {
	return schnorr.KeyGen(curve, rng)
}

// Batch is the output of Sign: n commitment/response pairs plus the shared
// release point and scalar. Before k is revealed, alpha and R alone
// information-theoretically hide every s_i.
type Batch struct {
	// Alpha holds alpha_i = (s_i + k) / 2 for each message, sent to the
	// counterparty immediately.
	Alpha []*big.Int
	// R holds the per-message Schnorr commitment R_i = r_i*g.
	R []curvegroup.Point
	// K is the shared release commitment K = k*g.
	K curvegroup.Point
	// k is the shared release scalar, withheld until the exchange's
	// fairness condition is met.
	k *big.Int
}

// ReleaseScalar returns the scalar that, once revealed, lets the
// counterparty recover every signature in the batch via Recover.
func (b Batch) ReleaseScalar() *big.Int {
	return b.k
}

// Sign produces a fair-exchange batch of n commitments over messages, one
// Schnorr signature commitment per message, plus the shared release
// scalar k. The batch's Alpha/R/K fields may be disclosed immediately; k
// must be withheld until the counterparty has fulfilled its end of the
// exchange.
func Sign(curve *curvegroup.Curve, sk schnorr.SecretKey, messages [][]byte, rng io.Reader) (Batch, error) {
	n := len(messages)
	q := curve.Order()

	r := make([]*big.Int, n)
	for i := 0; i < n; i++ {
		ri, err := curve.RandomScalar(rng)
		if err != nil {
			return Batch{}, fmt.Errorf("fse: sign: %w", err)
		}
		r[i] = ri
	}

	k, err := curve.RandomScalar(rng)
	if err != nil {
		return Batch{}, fmt.Errorf("fse: sign: %w", err)
	}
	K := curve.ScalarBaseMul(k)

	inv2 := new(big.Int).ModInverse(two, q)

	R, err := curvegroup.ParallelMap(n, func(i int) (curvegroup.Point, error) {
		return curve.ScalarBaseMul(r[i]), nil
	})
	if err != nil {
		return Batch{}, err
	}

	alpha, err := curvegroup.ParallelMap(n, func(i int) (*big.Int, error) {
		c := curve.ChallengeHash(R[i], messages[i])

		s := new(big.Int).Add(r[i], new(big.Int).Mul(c, sk.Scalar()))
		s.Mod(s, q)

		a := new(big.Int).Add(s, k)
		a.Mul(a, inv2)
		a.Mod(a, q)
		return a, nil
	})
	if err != nil {
		return Batch{}, err
	}

	return Batch{Alpha: alpha, R: R, K: K, k: k}, nil
}

// Verify checks, without knowledge of k, that every (alpha_i, R_i) pair in
// the batch commits to a valid signature: 2*alpha_i*g == K + R_i + c_i*pk.
// It reports whether ALL n commitments are valid; it does not reveal which
// one failed, since a fair exchange must not leak partial information.
//
// The returned error is either a wrapped curvegroup.ErrPrecondition (a
// caller-bug mismatched batch length) or, when the batch itself fails to
// verify, a wrapped curvegroup.ErrInvalidTranscript — the session must be
// discarded and is not retryable either way.
func Verify(curve *curvegroup.Curve, pk schnorr.PublicKey, messages [][]byte, alpha []*big.Int, R []curvegroup.Point, K curvegroup.Point) (bool, error) {
	n := len(messages)
	if len(alpha) != n || len(R) != n {
		return false, fmt.Errorf("fse: verify: %w: got %d messages, %d alpha, %d commitments", curvegroup.ErrPrecondition, n, len(alpha), len(R))
	}

	oks, err := curvegroup.ParallelMap(n, func(i int) (bool, error) {
		c := curve.ChallengeHash(R[i], messages[i])
		com := curve.Add(R[i], curve.ScalarMul(pk.Point, c))

		twoAlpha := new(big.Int).Mod(new(big.Int).Mul(two, alpha[i]), curve.Order())
		lhs := curve.ScalarBaseMul(twoAlpha)
		rhs := curve.Add(K, com)

		return curvegroup.PointsEqual(lhs, rhs), nil
	})
	if err != nil {
		return false, err
	}

	for _, ok := range oks {
		if !ok {
			return false, fmt.Errorf("fse: verify: batch failed 2*alpha*g == K + com: %w", curvegroup.ErrInvalidTranscript)
		}
	}
	return true, nil
}

// Recover reconstructs every signature in the batch once k is known:
// s_i = 2*alpha_i - k.
func Recover(curve *curvegroup.Curve, alpha []*big.Int, R []curvegroup.Point, k *big.Int) []schnorr.Signature {
	n := len(alpha)
	q := curve.Order()
	sigs := make([]schnorr.Signature, n)
	for i := 0; i < n; i++ {
		s := new(big.Int).Mul(two, alpha[i])
		s.Sub(s, k)
		s.Mod(s, q)
		sigs[i] = schnorr.Signature{R: R[i], S: s}
	}
	return sigs
}
