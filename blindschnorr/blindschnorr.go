// Package blindschnorr implements the three-message blind Schnorr signature
// protocol: a signer produces signatures on messages it never sees in the
// clear, and the resulting signature is unlinkable to the signing session
// that produced it.
//
// The protocol runs in three rounds:
//
//	Signer.Round1   ->  (r, R = r*g)                  signer sends R
//	Verifier.Round1 ->  (alpha, beta, c)               verifier sends c
//	Signer.Round2   ->  s = r + c*sk                   signer sends s
//	Verifier.Round2 ->  (R', s') = (R + alpha*g + beta*pk, s + alpha)
//
// R' and s' form a standard schnorr.Signature verifiable under the signer's
// public key, but c' = H(encode(R') || m) is computed by the verifier alone
// and never observed by the signer.
package blindschnorr

import (
	"errors"
	"fmt"
	"io"
	"math/big"

	"threshold.network/fse/curvegroup"
	"threshold.network/fse/schnorr"
)

// ErrTranscriptMismatch is returned by Verifier.Round2 when the signer's
// second-round message does not satisfy s*g = R + c*pk for the challenge the
// verifier issued in Round1.
var ErrTranscriptMismatch = errors.New("blindschnorr: signer message fails verification equation")

// Signer holds the long-term key material of the signing party.
type Signer struct {
	curve *curvegroup.Curve
	sk    schnorr.SecretKey
}

// NewSigner wraps an existing Schnorr key pair as a blind-signing party.
func NewSigner(curve *curvegroup.Curve, sk schnorr.SecretKey) *Signer {
	return &Signer{curve: curve, sk: sk}
}

// SignerState is the signer's private per-session state carried from
// Round1 to Round2. It must not be reused across sessions.
type SignerState struct {
	r *big.Int
}

// SignerRound1Message is R = r*g, sent to the verifier.
type SignerRound1Message struct {
	R curvegroup.Point
}

// Round1 samples the signer's nonce and commits to it.
func (s *Signer) Round1(rng io.Reader) (SignerState, SignerRound1Message, error) {
	r, err := s.curve.RandomScalar(rng)
	if err != nil {
		return SignerState{}, SignerRound1Message{}, fmt.Errorf("blindschnorr: signer round1: %w", err)
	}
	R := s.curve.ScalarBaseMul(r)
	return SignerState{r: r}, SignerRound1Message{R: R}, nil
}

// SignerRound2Message is s = r + c*sk, sent to the verifier.
type SignerRound2Message struct {
	S *big.Int
}

// Round2 responds to the verifier's challenge with the blinded response.
func (s *Signer) Round2(state SignerState, m1 VerifierRound1Message) SignerRound2Message {
	q := s.curve.Order()
	prod := new(big.Int).Mul(m1.C, s.sk.Scalar())
	res := new(big.Int).Add(state.r, prod)
	res.Mod(res, q)
	return SignerRound2Message{S: res}
}

// Verifier holds the signer's public key and drives the blinding.
type Verifier struct {
	curve *curvegroup.Curve
	pk    schnorr.PublicKey
}

// NewVerifier constructs a blind-signature requester for the given signer
// public key.
func NewVerifier(curve *curvegroup.Curve, pk schnorr.PublicKey) *Verifier {
	return &Verifier{curve: curve, pk: pk}
}

// VerifierState is the verifier's private per-session blinding randomness.
type VerifierState struct {
	alpha *big.Int
	beta  *big.Int
}

// VerifierRound1Message is the blinded challenge c = c' + beta sent to the
// signer, where c' = H(encode(R') || m) is the challenge that will appear in
// the final, unblinded signature.
type VerifierRound1Message struct {
	C *big.Int
}

// Round1 blinds the signer's commitment R with fresh randomness (alpha,
// beta), derives the challenge against the blinded commitment R', and
// returns the blinded challenge c = H(encode(R') || m) + beta for the
// signer to sign over.
func (v *Verifier) Round1(m1 SignerRound1Message, message []byte, rng io.Reader) (VerifierState, VerifierRound1Message, error) {
	alpha, err := v.curve.RandomScalar(rng)
	if err != nil {
		return VerifierState{}, VerifierRound1Message{}, fmt.Errorf("blindschnorr: verifier round1: %w", err)
	}
	beta, err := v.curve.RandomScalar(rng)
	if err != nil {
		return VerifierState{}, VerifierRound1Message{}, fmt.Errorf("blindschnorr: verifier round1: %w", err)
	}

	rPrime := v.blindedCommitment(m1.R, alpha, beta)
	cPrime := v.curve.ChallengeHash(rPrime, message)

	q := v.curve.Order()
	c := new(big.Int).Add(cPrime, beta)
	c.Mod(c, q)

	return VerifierState{alpha: alpha, beta: beta}, VerifierRound1Message{C: c}, nil
}

// Round2 unblinds the signer's response into a standard Schnorr signature.
// It returns ErrTranscriptMismatch if the signer's message does not satisfy
// the verification equation for the challenge issued in Round1.
func (v *Verifier) Round2(state VerifierState, m1 SignerRound1Message, m2 VerifierRound1Message, m3 SignerRound2Message) (schnorr.Signature, error) {
	lhs := v.curve.ScalarBaseMul(m3.S)
	rhs := v.curve.Add(m1.R, v.curve.ScalarMul(v.pk.Point, m2.C))
	if !curvegroup.PointsEqual(lhs, rhs) {
		return schnorr.Signature{}, ErrTranscriptMismatch
	}

	q := v.curve.Order()
	sPrime := new(big.Int).Add(m3.S, state.alpha)
	sPrime.Mod(sPrime, q)

	rPrime := v.blindedCommitment(m1.R, state.alpha, state.beta)

	return schnorr.Signature{R: rPrime, S: sPrime}, nil
}

// blindedCommitment computes R' = R + alpha*g + beta*pk.
func (v *Verifier) blindedCommitment(R curvegroup.Point, alpha, beta *big.Int) curvegroup.Point {
	withAlpha := v.curve.Add(R, v.curve.ScalarBaseMul(alpha))
	return v.curve.Add(withAlpha, v.curve.ScalarMul(v.pk.Point, beta))
}
