package circlestark

import "github.com/vybium/circle-stark-verifier/internal/circle-stark-verifier/protocols"

// Verify checks a Circle-STARK proof against params, the tree roots and
// per-tree column log-sizes the caller independently expects, and the
// Fiat-Shamir channel state the proof's transcript should continue
// from. It returns true only if every verification step succeeds; any
// failure returns false alongside a *VerifyError whose Code classifies
// the failure.
//
// initialDigest and initialNDraws seed the channel; pass a 32-byte
// all-zero digest and zero draws to start a fresh transcript.
func Verify(
	proof *Proof,
	params VerificationParams,
	treeRoots [][]byte,
	treeColumnLogSizes [][]uint32,
	initialDigest []byte,
	initialNDraws uint32,
) (bool, error) {
	ok, err := protocols.Verify(proof, params, treeRoots, treeColumnLogSizes, initialDigest, initialNDraws)
	if err != nil {
		return false, wrapVerifyError(err)
	}
	return ok, nil
}
