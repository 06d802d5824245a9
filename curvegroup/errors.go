package curvegroup

import "errors"

// ErrPrecondition marks a caller-bug precondition violation: mismatched
// vector lengths, an out-of-range branch index, or similar. It is never
// produced by honest use of the protocols in this module and is not a
// cryptographic failure.
var ErrPrecondition = errors.New("curvegroup: precondition violation")

// ErrEntropy marks a failure of the caller-supplied randomness source.
var ErrEntropy = errors.New("curvegroup: entropy failure")

// ErrInvalidTranscript marks a verification-side rejection: one or more of
// the protocol's verification equations did not hold. It carries no
// information useful to an attacker beyond "this transcript is rejected" and
// the session must be discarded — there is no retry semantics.
var ErrInvalidTranscript = errors.New("curvegroup: invalid transcript")
