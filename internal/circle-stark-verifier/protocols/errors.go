package protocols

import "errors"

// ErrOodsMismatch is returned when the composition polynomial's
// evaluation at the OODS point disagrees with the value sampled from
// the proof's composition tree.
var ErrOodsMismatch = errors.New("oods: composition evaluation mismatch")

// ErrFriCommitmentMismatch is returned when a FRI layer's recomputed
// Merkle root disagrees with its committed root.
var ErrFriCommitmentMismatch = errors.New("fri: commitment mismatch")

// ErrFriLastLayerMismatch is returned when the folded evaluation at the
// final layer disagrees with the committed last-layer polynomial, or
// when that polynomial's degree exceeds the configured bound.
var ErrFriLastLayerMismatch = errors.New("fri: last layer mismatch")

// ErrFriInvalidProofShape is returned when a FRI proof's layer counts or
// witness lengths don't match the configuration driving verification.
var ErrFriInvalidProofShape = errors.New("fri: invalid proof shape")

// ErrFriInsufficientDegree is returned when the configured last-layer
// degree bound is incompatible with the committed domain log-size.
var ErrFriInsufficientDegree = errors.New("fri: insufficient degree bound")
