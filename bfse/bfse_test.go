package bfse

import (
	"crypto/rand"
	"testing"

	"threshold.network/fse/curvegroup"
	"threshold.network/fse/internal/testutils"
	"threshold.network/fse/schnorr"
)

func batchMessages(n int) [][]byte {
	messages := make([][]byte, n)
	for i := range messages {
		messages[i] = []byte{byte(i), byte(2 * i), byte(3 * i)}
	}
	return messages
}

func TestCutAndChooseRoundTrip(t *testing.T) {
	curve := curvegroup.New()
	sk, pk, err := schnorr.KeyGen(curve, rand.Reader)
	if err != nil {
		t.Fatalf("keygen: %v", err)
	}

	n := 4
	messages := batchMessages(n)
	signer := NewSigner(curve, sk, n)
	verifier := NewVerifier(curve, pk, n)

	signerState, m1, err := signer.Round1(rand.Reader)
	if err != nil {
		t.Fatalf("signer round1: %v", err)
	}

	_, m2, err := verifier.Round1(m1, messages, rand.Reader)
	if err != nil {
		t.Fatalf("verifier round1: %v", err)
	}

	m3, k, err := signer.Round2(signerState, m2, rand.Reader)
	if err != nil {
		t.Fatalf("signer round2: %v", err)
	}

	ok, err := verifier.Round2(m1, m2, m3)
	if err != nil {
		t.Fatalf("verifier round2: %v", err)
	}
	testutils.AssertBoolsEqual(t, "verifier.Round2(chosen branch)", true, ok)

	sigs := verifier.Recover(m1, m3, k)
	if len(sigs) != n {
		t.Fatalf("expected %d recovered signatures, got %d", n, len(sigs))
	}
	for i, sig := range sigs {
		testutils.AssertBoolsEqual(t, "schnorr.Verify(bfse recovered signature)", true, schnorr.Verify(curve, pk, messages[i], sig))
	}
}

func TestRound1RejectsBatchSizeMismatch(t *testing.T) {
	curve := curvegroup.New()
	sk, pk, err := schnorr.KeyGen(curve, rand.Reader)
	if err != nil {
		t.Fatalf("keygen: %v", err)
	}

	signer := NewSigner(curve, sk, 3)
	verifier := NewVerifier(curve, pk, 3)

	_, m1, err := signer.Round1(rand.Reader)
	if err != nil {
		t.Fatalf("signer round1: %v", err)
	}

	_, _, err = verifier.Round1(m1, batchMessages(2), rand.Reader)
	testutils.AssertError(t, "Round1 with mismatched batch size", curvegroup.ErrPrecondition, err)
}

func TestRound2RejectsForgedCommitment(t *testing.T) {
	curve := curvegroup.New()
	sk, pk, err := schnorr.KeyGen(curve, rand.Reader)
	if err != nil {
		t.Fatalf("keygen: %v", err)
	}

	n := 3
	messages := batchMessages(n)
	signer := NewSigner(curve, sk, n)
	verifier := NewVerifier(curve, pk, n)

	signerState, m1, err := signer.Round1(rand.Reader)
	if err != nil {
		t.Fatalf("signer round1: %v", err)
	}
	_, m2, err := verifier.Round1(m1, messages, rand.Reader)
	if err != nil {
		t.Fatalf("verifier round1: %v", err)
	}
	m3, _, err := signer.Round2(signerState, m2, rand.Reader)
	if err != nil {
		t.Fatalf("signer round2: %v", err)
	}

	m3.Com[0] = curve.Identity()
	ok, err := verifier.Round2(m1, m2, m3)
	testutils.AssertError(t, "verifier.Round2 with forged commitment", curvegroup.ErrInvalidTranscript, err)
	testutils.AssertBoolsEqual(t, "verifier.Round2 with forged commitment", false, ok)
}

func TestBranchesAreIndependentlyBlinded(t *testing.T) {
	curve := curvegroup.New()
	sk, pk, err := schnorr.KeyGen(curve, rand.Reader)
	if err != nil {
		t.Fatalf("keygen: %v", err)
	}

	n := 3
	messages := batchMessages(n)
	signer := NewSigner(curve, sk, n)
	verifier := NewVerifier(curve, pk, n)

	_, m1, err := signer.Round1(rand.Reader)
	if err != nil {
		t.Fatalf("signer round1: %v", err)
	}
	_, m2, err := verifier.Round1(m1, messages, rand.Reader)
	if err != nil {
		t.Fatalf("verifier round1: %v", err)
	}

	for i := range m2.C0 {
		if m2.C0[i].Cmp(m2.C1[i]) == 0 {
			t.Fatalf("expected independent blinding to produce distinct branch challenges at index %d", i)
		}
	}
}

// TestSignerBitIsUniform runs many independent sessions and confirms the
// signer's branch-choice bit b is not fixed to a single value: across 100
// sessions both b=false and b=true must occur at least once.
func TestSignerBitIsUniform(t *testing.T) {
	curve := curvegroup.New()
	sk, pk, err := schnorr.KeyGen(curve, rand.Reader)
	if err != nil {
		t.Fatalf("keygen: %v", err)
	}

	n := 2
	messages := batchMessages(n)
	signer := NewSigner(curve, sk, n)
	verifier := NewVerifier(curve, pk, n)

	var sawFalse, sawTrue bool
	const sessions = 100
	for i := 0; i < sessions; i++ {
		signerState, m1, err := signer.Round1(rand.Reader)
		if err != nil {
			t.Fatalf("signer round1: %v", err)
		}
		_, m2, err := verifier.Round1(m1, messages, rand.Reader)
		if err != nil {
			t.Fatalf("verifier round1: %v", err)
		}
		m3, _, err := signer.Round2(signerState, m2, rand.Reader)
		if err != nil {
			t.Fatalf("signer round2: %v", err)
		}
		if m3.B {
			sawTrue = true
		} else {
			sawFalse = true
		}
	}

	if !sawFalse || !sawTrue {
		t.Fatalf("expected branch bit b to take both values across %d sessions; sawFalse=%v sawTrue=%v", sessions, sawFalse, sawTrue)
	}
}

// TestBranchForgeryDetectedWithHalfProbability corrupts one of the signer's
// two committed branches immediately after Round1, before the signer has
// picked which one to reveal. Since the signer's choice of branch is made
// independently of the corruption, the verifier accepts only in the
// sessions where the signer happened to reveal the untouched branch —
// roughly half the time.
func TestBranchForgeryDetectedWithHalfProbability(t *testing.T) {
	curve := curvegroup.New()
	sk, pk, err := schnorr.KeyGen(curve, rand.Reader)
	if err != nil {
		t.Fatalf("keygen: %v", err)
	}

	n := 2
	messages := batchMessages(n)
	signer := NewSigner(curve, sk, n)
	verifier := NewVerifier(curve, pk, n)

	const trials = 100
	accepted := 0
	for i := 0; i < trials; i++ {
		signerState, m1, err := signer.Round1(rand.Reader)
		if err != nil {
			t.Fatalf("signer round1: %v", err)
		}

		corrupted := m1
		corrupted.R1 = append([]curvegroup.Point(nil), m1.R1...)
		corrupted.R1[0] = curve.Identity()

		_, m2, err := verifier.Round1(corrupted, messages, rand.Reader)
		if err != nil {
			t.Fatalf("verifier round1: %v", err)
		}

		m3, _, err := signer.Round2(signerState, m2, rand.Reader)
		if err != nil {
			t.Fatalf("signer round2: %v", err)
		}

		ok, err := verifier.Round2(corrupted, m2, m3)
		if m3.B {
			if err == nil && ok {
				t.Fatalf("expected verifier to reject the corrupted branch once the signer revealed it")
			}
			continue
		}
		if err != nil || !ok {
			t.Fatalf("expected verifier to accept the untouched branch, got ok=%v err=%v", ok, err)
		}
		accepted++
	}

	const lowerBound, upperBound = trials/2 - trials/4, trials/2 + trials/4
	if accepted < lowerBound || accepted > upperBound {
		t.Fatalf("expected roughly half of %d trials to accept the signer-chosen branch, got %d", trials, accepted)
	}
}
