package blindschnorr

import (
	"crypto/rand"
	"errors"
	"testing"

	"threshold.network/fse/curvegroup"
	"threshold.network/fse/internal/testutils"
	"threshold.network/fse/schnorr"
)

func runSession(t *testing.T, curve *curvegroup.Curve, sk schnorr.SecretKey, pk schnorr.PublicKey, message []byte) (schnorr.Signature, error) {
	signer := NewSigner(curve, sk)
	verifier := NewVerifier(curve, pk)

	signerState, m1, err := signer.Round1(rand.Reader)
	if err != nil {
		t.Fatalf("signer round1: %v", err)
	}

	verifierState, m2, err := verifier.Round1(m1, message, rand.Reader)
	if err != nil {
		t.Fatalf("verifier round1: %v", err)
	}

	m3 := signer.Round2(signerState, m2)

	return verifier.Round2(verifierState, m1, m2, m3)
}

func TestBlindSignatureVerifiesUnderPlainSchnorr(t *testing.T) {
	curve := curvegroup.New()
	sk, pk, err := schnorr.KeyGen(curve, rand.Reader)
	if err != nil {
		t.Fatalf("keygen: %v", err)
	}

	message := []byte("a message the signer never reads")
	sig, err := runSession(t, curve, sk, pk, message)
	if err != nil {
		t.Fatalf("blind signing session: %v", err)
	}

	testutils.AssertBoolsEqual(t, "schnorr.Verify(blind signature)", true, schnorr.Verify(curve, pk, message, sig))
}

func TestBlindSignaturesAreUnlinkableCommitments(t *testing.T) {
	curve := curvegroup.New()
	sk, pk, err := schnorr.KeyGen(curve, rand.Reader)
	if err != nil {
		t.Fatalf("keygen: %v", err)
	}

	message := []byte("same message, two sessions")
	sig1, err := runSession(t, curve, sk, pk, message)
	if err != nil {
		t.Fatalf("session 1: %v", err)
	}
	sig2, err := runSession(t, curve, sk, pk, message)
	if err != nil {
		t.Fatalf("session 2: %v", err)
	}

	if curvegroup.PointsEqual(sig1.R, sig2.R) {
		t.Fatalf("two independent blind-signing sessions produced the same commitment R")
	}
}

func TestRound2RejectsForgedSignerResponse(t *testing.T) {
	curve := curvegroup.New()
	sk, pk, err := schnorr.KeyGen(curve, rand.Reader)
	if err != nil {
		t.Fatalf("keygen: %v", err)
	}

	signer := NewSigner(curve, sk)
	verifier := NewVerifier(curve, pk)

	_, m1, err := signer.Round1(rand.Reader)
	if err != nil {
		t.Fatalf("signer round1: %v", err)
	}
	verifierState, m2, err := verifier.Round1(m1, []byte("m"), rand.Reader)
	if err != nil {
		t.Fatalf("verifier round1: %v", err)
	}

	forged := SignerRound2Message{S: verifierState.alpha}
	_, err = verifier.Round2(verifierState, m1, m2, forged)
	if !errors.Is(err, ErrTranscriptMismatch) {
		t.Fatalf("expected ErrTranscriptMismatch for a forged response, got %v", err)
	}
}
