package circlestark

import (
	"errors"
	"fmt"

	"github.com/vybium/circle-stark-verifier/internal/circle-stark-verifier/core"
	"github.com/vybium/circle-stark-verifier/internal/circle-stark-verifier/protocols"
	"github.com/vybium/circle-stark-verifier/internal/circle-stark-verifier/utils"
)

// ErrorCode classifies a verification failure, per the taxonomy a caller
// needs to distinguish a malformed proof from a genuinely invalid one.
type ErrorCode int

const (
	// ErrUnknown covers any failure that does not map to a known code.
	ErrUnknown ErrorCode = iota

	// ErrShape marks a structural mismatch: tree counts, column counts,
	// or log-sizes outside the supported range.
	ErrShape

	// ErrFieldInverse marks an attempt to invert a zero field element.
	ErrFieldInverse

	// ErrMerkleMismatch marks a recomputed Merkle root that does not
	// match the committed root.
	ErrMerkleMismatch

	// ErrChannelExhausted marks a Fiat-Shamir draw that exceeded its
	// rejection-sampling retry budget.
	ErrChannelExhausted

	// ErrProofOfWork marks a proof-of-work nonce that fails the
	// configured difficulty.
	ErrProofOfWork

	// ErrOodsMismatch marks an out-of-domain composition evaluation
	// that disagrees with the claimed composition polynomial.
	ErrOodsMismatch

	// ErrFriMismatch marks a FRI commitment mismatch, a last-layer
	// mismatch, or an incompatible last-layer degree bound. FRI
	// proof-shape failures, such as a missing fold sibling, are
	// reported as ErrShape.
	ErrFriMismatch
)

// VerifyError wraps a verification failure with the ErrorCode a caller
// can switch on, while preserving the underlying error via Unwrap.
type VerifyError struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// Error returns the error message.
func (e *VerifyError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("circlestark: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("circlestark: %s", e.Message)
}

// Unwrap returns the underlying cause.
func (e *VerifyError) Unwrap() error { return e.Cause }

// Is reports whether target is a *VerifyError with the same Code.
func (e *VerifyError) Is(target error) bool {
	t, ok := target.(*VerifyError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// classify maps an internal sentinel error to its public ErrorCode.
func classify(err error) ErrorCode {
	switch {
	case errors.Is(err, core.ErrShape), errors.Is(err, core.ErrMerkleShape), errors.Is(err, core.ErrMerkleOOB),
		errors.Is(err, protocols.ErrFriInvalidProofShape):
		return ErrShape
	case errors.Is(err, core.ErrZeroInverse):
		return ErrFieldInverse
	case errors.Is(err, core.ErrMerkleMismatch):
		return ErrMerkleMismatch
	case errors.Is(err, utils.ErrChannelExhausted):
		return ErrChannelExhausted
	case errors.Is(err, utils.ErrPowFailed):
		return ErrProofOfWork
	case errors.Is(err, protocols.ErrOodsMismatch):
		return ErrOodsMismatch
	case errors.Is(err, protocols.ErrFriCommitmentMismatch), errors.Is(err, protocols.ErrFriLastLayerMismatch),
		errors.Is(err, protocols.ErrFriInsufficientDegree):
		return ErrFriMismatch
	default:
		return ErrUnknown
	}
}

// wrapVerifyError classifies err and wraps it as a *VerifyError, or
// returns nil if err is nil.
func wrapVerifyError(err error) error {
	if err == nil {
		return nil
	}
	return &VerifyError{Code: classify(err), Message: "verification failed", Cause: err}
}
