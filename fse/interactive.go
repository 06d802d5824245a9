package fse

import (
	"errors"
	"fmt"
	"io"
	"math/big"

	"threshold.network/fse/curvegroup"
	"threshold.network/fse/schnorr"
)

// Signer drives the two-round interactive form of fair signature exchange:
// the signer commits to its nonces in Round1, receives per-message
// challenges from the verifier, and only then produces the batch's
// alpha/commitment values in Round2. This is equivalent to Sign/Verify but
// lets the verifier choose the challenge hash input out of band (e.g. to
// bind additional session context) instead of deriving it solely from
// (R_i, message_i).
type Signer struct {
	curve *curvegroup.Curve
	sk    schnorr.SecretKey
	n     int
}

// NewSigner constructs an interactive batch signer for a fixed batch size n.
func NewSigner(curve *curvegroup.Curve, sk schnorr.SecretKey, n int) *Signer {
	return &Signer{curve: curve, sk: sk, n: n}
}

// SignerState carries the signer's nonces from Round1 to Round2.
type SignerState struct {
	r []*big.Int
}

// SignerRound1Message commits to one nonce per message.
type SignerRound1Message struct {
	R []curvegroup.Point
}

// Round1 samples n nonces sequentially, then derives their commitments in
// parallel.
func (s *Signer) Round1(rng io.Reader) (SignerState, SignerRound1Message, error) {
	r := make([]*big.Int, s.n)
	for i := 0; i < s.n; i++ {
		ri, err := s.curve.RandomScalar(rng)
		if err != nil {
			return SignerState{}, SignerRound1Message{}, fmt.Errorf("fse: signer round1: %w", err)
		}
		r[i] = ri
	}

	R, err := curvegroup.ParallelMap(s.n, func(i int) (curvegroup.Point, error) {
		return s.curve.ScalarBaseMul(r[i]), nil
	})
	if err != nil {
		return SignerState{}, SignerRound1Message{}, err
	}

	return SignerState{r: r}, SignerRound1Message{R: R}, nil
}

// VerifierRound1Message carries the verifier's per-message challenges.
type VerifierRound1Message struct {
	C []*big.Int
}

// SignerRound2Message is the released batch: the release commitment
// ComK = k*g, alpha_i = (s_i + k) / 2, and com_i = s_i*g for each message.
type SignerRound2Message struct {
	ComK  curvegroup.Point
	Alpha []*big.Int
	Com   []curvegroup.Point
}

// Round2 releases the batch's commitment half. k itself is returned
// separately so callers can withhold it until the exchange's fairness
// condition is satisfied.
func (s *Signer) Round2(state SignerState, m1 VerifierRound1Message, rng io.Reader) (SignerRound2Message, *big.Int, error) {
	q := s.curve.Order()

	k, err := s.curve.RandomScalar(rng)
	if err != nil {
		return SignerRound2Message{}, nil, fmt.Errorf("fse: signer round2: %w", err)
	}
	comK := s.curve.ScalarBaseMul(k)

	inv2 := new(big.Int).ModInverse(two, q)

	sVals, err := curvegroup.ParallelMap(s.n, func(i int) (*big.Int, error) {
		si := new(big.Int).Add(state.r[i], new(big.Int).Mul(m1.C[i], s.sk.Scalar()))
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

	return SignerRound2Message{ComK: comK, Alpha: alpha, Com: com}, k, nil
}

// Verifier drives the other side of the interactive exchange.
type Verifier struct {
	curve *curvegroup.Curve
	pk    schnorr.PublicKey
	n     int
}

// NewVerifier constructs an interactive batch verifier for a fixed batch
// size n.
func NewVerifier(curve *curvegroup.Curve, pk schnorr.PublicKey, n int) *Verifier {
	return &Verifier{curve: curve, pk: pk, n: n}
}

// Round1 derives one Schnorr challenge per message from the signer's
// commitments.
func (v *Verifier) Round1(m1 SignerRound1Message, messages [][]byte) (VerifierRound1Message, error) {
	if len(m1.R) != v.n || len(messages) != v.n {
		return VerifierRound1Message{}, fmt.Errorf("fse: verifier round1: %w: expected %d messages, got %d", curvegroup.ErrPrecondition, v.n, len(messages))
	}

	c, err := curvegroup.ParallelMap(v.n, func(i int) (*big.Int, error) {
		return v.curve.ChallengeHash(m1.R[i], messages[i]), nil
	})
	if err != nil {
		return VerifierRound1Message{}, err
	}

	return VerifierRound1Message{C: c}, nil
}

// branchCheck reports the outcome of the two independent equations Round2
// verifies for a single batch index.
type branchCheck struct {
	comOK   bool
	alphaOK bool
}

// Round2 checks the released batch against the challenges issued in
// Round1: 2*alpha_i*g == com_k + com_i, and com_i == R_i + c_i*pk. The
// returned error wraps curvegroup.ErrPrecondition for a batch-size
// mismatch, or curvegroup.ErrInvalidTranscript naming which equation(s)
// failed across the batch — never which index, since a fair exchange must
// not leak partial information about the batch.
func (v *Verifier) Round2(m1 SignerRound1Message, m2 VerifierRound1Message, m3 SignerRound2Message) (bool, error) {
	if len(m3.Com) != v.n || len(m3.Alpha) != v.n {
		return false, fmt.Errorf("fse: verifier round2: %w: expected batch size %d, got %d commitments and %d alpha", curvegroup.ErrPrecondition, v.n, len(m3.Com), len(m3.Alpha))
	}

	q := v.curve.Order()

	checks, err := curvegroup.ParallelMap(v.n, func(i int) (branchCheck, error) {
		expectedCom := v.curve.Add(m1.R[i], v.curve.ScalarMul(v.pk.Point, m2.C[i]))
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
		failures = append(failures, fmt.Errorf("commitment equation com_i == R_i + c_i*pk failed: %w", curvegroup.ErrInvalidTranscript))
	}
	if alphaFailed {
		failures = append(failures, fmt.Errorf("release equation 2*alpha_i*g == com_k + com_i failed: %w", curvegroup.ErrInvalidTranscript))
	}
	if len(failures) > 0 {
		return false, errors.Join(failures...)
	}
	return true, nil
}

// Recover reconstructs the batch's signatures once k is revealed,
// identical to the non-interactive Recover.
func (v *Verifier) Recover(m1 SignerRound1Message, m3 SignerRound2Message, k *big.Int) []schnorr.Signature {
	return Recover(v.curve, m3.Alpha, m1.R, k)
}
