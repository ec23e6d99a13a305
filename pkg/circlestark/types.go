package circlestark

import (
	"github.com/vybium/circle-stark-verifier/internal/circle-stark-verifier/core"
	"github.com/vybium/circle-stark-verifier/internal/circle-stark-verifier/protocols"
	"github.com/vybium/circle-stark-verifier/internal/circle-stark-verifier/utils"
)

// M31 is a base-field element of order 2^31-1.
type M31 = core.M31

// QM31 is a secure-field element, the degree-4 extension used for
// Fiat-Shamir randomness and out-of-domain sampling.
type QM31 = core.QM31

// Proof is the fully parsed wire format of a Circle-STARK proof.
type Proof = protocols.Proof

// FriProof is the FRI witness embedded in a Proof.
type FriProof = protocols.FriProof

// TreeDecommitment is one committed tree's Merkle witness.
type TreeDecommitment = protocols.TreeDecommitment

// ComponentInfo describes one AIR component's mask layout.
type ComponentInfo = protocols.ComponentInfo

// ComponentParams is one entry of VerificationParams.Components.
type ComponentParams = protocols.ComponentParams

// VerificationParams is the caller-supplied description of the AIR a
// Proof is checked against.
type VerificationParams = protocols.VerificationParams

// FriConfig parameterizes the FRI protocol a proof was generated under.
type FriConfig = utils.FriConfig

// PcsConfig bundles the FRI configuration with the proof-of-work
// difficulty the channel must be checked against.
type PcsConfig = utils.PcsConfig

// DefaultFriConfig returns the FRI parameters used by the reference
// Fibonacci fixture.
func DefaultFriConfig() *FriConfig { return utils.DefaultFriConfig() }

// DefaultPcsConfig returns the PCS parameters used by the reference
// Fibonacci fixture.
func DefaultPcsConfig() *PcsConfig { return utils.DefaultPcsConfig() }
