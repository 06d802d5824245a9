// Package bfse implements Blind Fair Signature Exchange: a three-round,
// cut-and-choose variant of fse in which the verifier blinds two parallel
// candidate branches before the signer commits to either one. The signer
// picks which branch to reveal only after seeing both branches' blinded
// challenges, so the choice cannot be steered by the verifier; each session
// leaks the content of exactly one branch, giving the verifier 1/2 soundness
// per session against a signer trying to bias which branch gets revealed.
//
// State machine: INIT -> SIGNER_R1 -> VERIFIER_R1 -> SIGNER_R2 -> DONE.
package bfse

import (
	"errors"
	"fmt"
	"io"
	"math/big"

	"threshold.network/fse/curvegroup"
	"threshold.network/fse/schnorr"
)

var two = big.NewInt(2)

// Signer is the cut-and-choose signing party for a fixed batch size n.
type Signer struct {
	curve *curvegroup.Curve
	sk    schnorr.SecretKey
	n     int
}

// NewSigner constructs a blind-exchange signer for a batch of n messages.
func NewSigner(curve *curvegroup.Curve, sk schnorr.SecretKey, n int) *Signer {
	return &Signer{curve: curve, sk: sk, n: n}
}

// SignerState carries the signer's two branches of nonces from Round1 to
// Round2.
type SignerState struct {
	r0 []*big.Int
	r1 []*big.Int
}

// SignerRound1Message commits to both candidate branches.
type SignerRound1Message struct {
	R0 []curvegroup.Point
	R1 []curvegroup.Point
}

// Round1 samples both branches' nonces sequentially, then derives both
// branches' commitments in parallel.
func (s *Signer) Round1(rng io.Reader) (SignerState, SignerRound1Message, error) {
	r0 := make([]*big.Int, s.n)
	r1 := make([]*big.Int, s.n)
	for i := 0; i < s.n; i++ {
		r0i, err := s.curve.RandomScalar(rng)
		if err != nil {
			return SignerState{}, SignerRound1Message{}, fmt.Errorf("bfse: signer round1: %w", err)
		}
		r0[i] = r0i

		r1i, err := s.curve.RandomScalar(rng)
		if err != nil {
			return SignerState{}, SignerRound1Message{}, fmt.Errorf("bfse: signer round1: %w", err)
		}
		r1[i] = r1i
	}

	R0, err := curvegroup.ParallelMap(s.n, func(i int) (curvegroup.Point, error) {
		return s.curve.ScalarBaseMul(r0[i]), nil
	})
	if err != nil {
		return SignerState{}, SignerRound1Message{}, err
	}
	R1, err := curvegroup.ParallelMap(s.n, func(i int) (curvegroup.Point, error) {
		return s.curve.ScalarBaseMul(r1[i]), nil
	})
	if err != nil {
		return SignerState{}, SignerRound1Message{}, err
	}

	return SignerState{r0: r0, r1: r1}, SignerRound1Message{R0: R0, R1: R1}, nil
}

// VerifierRound1Message carries the verifier's blinded challenges for both
// branches.
type VerifierRound1Message struct {
	C0 []*big.Int
	C1 []*big.Int
}

// SignerRound2Message is the released batch for whichever branch the
// signer chose, plus the bit identifying that branch.
type SignerRound2Message struct {
	ComK  curvegroup.Point
	Alpha []*big.Int
	Com   []curvegroup.Point
	B     bool
}

// Round2 picks a branch uniformly at random AFTER seeing both challenge
// vectors, then releases that branch's batch. The unchosen branch's
// nonces are discarded; nothing about them is ever sent.
func (s *Signer) Round2(state SignerState, m1 VerifierRound1Message, rng io.Reader) (SignerRound2Message, *big.Int, error) {
	q := s.curve.Order()

	bBytes := make([]byte, 1)
	if _, err := io.ReadFull(rng, bBytes); err != nil {
		return SignerRound2Message{}, nil, fmt.Errorf("%w: bfse: signer round2: %v", curvegroup.ErrEntropy, err)
	}
	b := bBytes[0]&1 == 1

	r, c := state.r0, m1.C0
	if b {
		r, c = state.r1, m1.C1
	}

	k, err := s.curve.RandomScalar(rng)
	if err != nil {
		return SignerRound2Message{}, nil, fmt.Errorf("bfse: signer round2: %w", err)
	}
	comK := s.curve.ScalarBaseMul(k)

	inv2 := new(big.Int).ModInverse(two, q)

	sVals, err := curvegroup.ParallelMap(s.n, func(i int) (*big.Int, error) {
		si := new(big.Int).Add(r[i], new(big.Int).Mul(c[i], s.sk.Scalar()))
		si.Mod(si, q)
		return si, nil
	})
	if err != nil {
		return SignerRound2Message{}, nil, err
	}

	com, err := curvegroup.ParallelMap(s.n, func(i int) (curvegroup.Point, error) {
		return s.curve.ScalarBaseMul(sVals[i]), nil
	})
	if err != nil {
		return SignerRound2Message{}, nil, err
	}

	alpha, err := curvegroup.ParallelMap(s.n, func(i int) (*big.Int, error) {
		a := new(big.Int).Add(sVals[i], k)
		a.Mul(a, inv2)
		a.Mod(a, q)
		return a, nil
	})
	if err != nil {
		return SignerRound2Message{}, nil, err
	}

	return SignerRound2Message{ComK: comK, Alpha: alpha, Com: com, B: b}, k, nil
}

// Verifier is the cut-and-choose verifying party.
type Verifier struct {
	curve *curvegroup.Curve
	pk    schnorr.PublicKey
	n     int
}

// NewVerifier constructs a blind-exchange verifier for a batch of n
// messages.
func NewVerifier(curve *curvegroup.Curve, pk schnorr.PublicKey, n int) *Verifier {
	return &Verifier{curve: curve, pk: pk, n: n}
}

// VerifierState carries the verifier's blinding randomness for both
// branches from Round1 to Round2.
type VerifierState struct {
	alpha0, beta0 *big.Int
	alpha1, beta1 *big.Int
}

// Round1 blinds both of the signer's candidate commitment vectors with
// independent (alpha, beta) pairs and derives both branches' challenge
// vectors.
func (v *Verifier) Round1(m1 SignerRound1Message, messages [][]byte, rng io.Reader) (VerifierState, VerifierRound1Message, error) {
	if len(m1.R0) != v.n || len(m1.R1) != v.n || len(messages) != v.n {
		return VerifierState{}, VerifierRound1Message{}, fmt.Errorf("bfse: verifier round1: %w: batch size mismatch", curvegroup.ErrPrecondition)
	}

	alpha0, err := v.curve.RandomScalar(rng)
	if err != nil {
		return VerifierState{}, VerifierRound1Message{}, fmt.Errorf("bfse: verifier round1: %w", err)
	}
	beta0, err := v.curve.RandomScalar(rng)
	if err != nil {
		return VerifierState{}, VerifierRound1Message{}, fmt.Errorf("bfse: verifier round1: %w", err)
	}
	alpha1, err := v.curve.RandomScalar(rng)
	if err != nil {
		return VerifierState{}, VerifierRound1Message{}, fmt.Errorf("bfse: verifier round1: %w", err)
	}
	beta1, err := v.curve.RandomScalar(rng)
	if err != nil {
		return VerifierState{}, VerifierRound1Message{}, fmt.Errorf("bfse: verifier round1: %w", err)
	}

	q := v.curve.Order()

	c0, err := curvegroup.ParallelMap(v.n, func(i int) (*big.Int, error) {
		rPrime := v.blindedCommitment(m1.R0[i], alpha0, beta0)
		cPrime := v.curve.ChallengeHash(rPrime, messages[i])
		c := new(big.Int).Add(cPrime, beta0)
		c.Mod(c, q)
		return c, nil
	})
	if err != nil {
		return VerifierState{}, VerifierRound1Message{}, err
	}

	c1, err := curvegroup.ParallelMap(v.n, func(i int) (*big.Int, error) {
		rPrime := v.blindedCommitment(m1.R1[i], alpha1, beta1)
		cPrime := v.curve.ChallengeHash(rPrime, messages[i])
		c := new(big.Int).Add(cPrime, beta1)
		c.Mod(c, q)
		return c, nil
	})
	if err != nil {
		return VerifierState{}, VerifierRound1Message{}, err
	}

	return VerifierState{alpha0: alpha0, beta0: beta0, alpha1: alpha1, beta1: beta1}, VerifierRound1Message{C0: c0, C1: c1}, nil
}

// branchCheck reports the outcome of the two independent equations Round2
// verifies for a single batch index.
type branchCheck struct {
	comOK   bool
	alphaOK bool
}

// Round2 checks the released branch against the challenges the verifier
// issued for that branch, and returns whether the whole batch verifies.
// The returned error wraps curvegroup.ErrPrecondition for a batch-size
// mismatch, or curvegroup.ErrInvalidTranscript naming which equation(s)
// failed across the chosen branch — never which index, since a fair
// exchange must not leak partial information about the batch.
func (v *Verifier) Round2(m1 SignerRound1Message, m2 VerifierRound1Message, m3 SignerRound2Message) (bool, error) {
	if len(m3.Com) != v.n || len(m3.Alpha) != v.n {
		return false, fmt.Errorf("bfse: verifier round2: %w: expected batch size %d, got %d commitments and %d alpha", curvegroup.ErrPrecondition, v.n, len(m3.Com), len(m3.Alpha))
	}

	R, c := m1.R0, m2.C0
	if m3.B {
		R, c = m1.R1, m2.C1
	}

	q := v.curve.Order()

	checks, err := curvegroup.ParallelMap(v.n, func(i int) (branchCheck, error) {
		expectedCom := v.curve.Add(R[i], v.curve.ScalarMul(v.pk.Point, c[i]))
		comOK := curvegroup.PointsEqual(expectedCom, m3.Com[i])

		twoAlpha := new(big.Int).Mod(new(big.Int).Mul(two, m3.Alpha[i]), q)
		lhs := v.curve.ScalarBaseMul(twoAlpha)
		rhs := v.curve.Add(m3.ComK, m3.Com[i])
		alphaOK := curvegroup.PointsEqual(lhs, rhs)

		return branchCheck{comOK: comOK, alphaOK: alphaOK}, nil
	})
	if err != nil {
		return false, err
	}

	var comFailed, alphaFailed bool
	for _, chk := range checks {
		if !chk.comOK {
			comFailed = true
		}
		if !chk.alphaOK {
			alphaFailed = true
		}
	}

	var failures []error
	if comFailed {
		failures = append(failures, fmt.Errorf("commitment equation com_i == R_i + c_i*pk failed for the chosen branch: %w", curvegroup.ErrInvalidTranscript))
	}
	if alphaFailed {
		failures = append(failures, fmt.Errorf("release equation 2*alpha_i*g == com_k + com_i failed for the chosen branch: %w", curvegroup.ErrInvalidTranscript))
	}
	if len(failures) > 0 {
		return false, errors.Join(failures...)
	}
	return true, nil
}

// Recover reconstructs the released branch's signatures once k is known.
func (v *Verifier) Recover(m1 SignerRound1Message, m3 SignerRound2Message, k *big.Int) []schnorr.Signature {
	R := m1.R0
	if m3.B {
		R = m1.R1
	}

	q := v.curve.Order()
	sigs := make([]schnorr.Signature, v.n)
	for i := 0; i < v.n; i++ {
		s := new(big.Int).Mul(two, m3.Alpha[i])
		s.Sub(s, k)
		s.Mod(s, q)
		sigs[i] = schnorr.Signature{R: R[i], S: s}
	}
	return sigs
}

func (v *Verifier) blindedCommitment(R curvegroup.Point, alpha, beta *big.Int) curvegroup.Point {
	withAlpha := v.curve.Add(R, v.curve.ScalarBaseMul(alpha))
	return v.curve.Add(withAlpha, v.curve.ScalarMul(v.pk.Point, beta))
}
