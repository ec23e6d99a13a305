// Package circlestark verifies Circle-STARK proofs: the FRI-based,
// circle-group polynomial commitment scheme used by STWO-style provers.
//
// # Features
//
// - Multi-column, multi-log-size Merkle commitment verification
// - Keccak-based Fiat-Shamir channel with proof-of-work
// - Out-of-domain sampling (OODS) consistency check for the
//   composition polynomial
// - FRI commit phase, query sampling, DEEP-quotient answers, and
//   fold/decommit verification
//
// # Quick Start
//
// Verifying a proof against its AIR parameters:
//
//	proof := &circlestark.Proof{ /* parsed from the wire */ }
//	params := circlestark.VerificationParams{ /* from the AIR */ }
//
//	ok, err := circlestark.Verify(proof, params, treeRoots, treeColumnLogSizes, initialDigest, 0)
//	if err != nil {
//		log.Fatal(err)
//	}
//	if ok {
//		fmt.Println("proof is valid")
//	}
//
// # Architecture
//
// circle-stark-verifier uses a hybrid public/private layout:
//
// - pkg/circlestark/: public API (this package)
// - internal/circle-stark-verifier/core: field tower, circle group,
//   Merkle verifier
// - internal/circle-stark-verifier/utils: Fiat-Shamir channel and
//   configuration
// - internal/circle-stark-verifier/protocols: PCS, FRI, OODS, and the
//   verification orchestrator
//
// Implementation details under internal/ can change without breaking
// the public API.
//
// # References
//
// - FRI paper: https://eccc.weizmann.ac.il/report/2017/134/
package circlestark
