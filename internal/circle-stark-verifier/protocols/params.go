package protocols

import (
	"fmt"

	"github.com/vybium/circle-stark-verifier/internal/circle-stark-verifier/core"
)

// ComponentInfo describes one AIR component's mask layout.
// MaskOffsets is indexed [tree][column][offset]; each offset is a
// signed step (in units of the component's trace step) from the OODS
// point.
type ComponentInfo struct {
	MaxConstraintLogDegreeBound uint32
	LogSize                     uint32
	MaskOffsets                 [][][]int32
	PreprocessedColumns         []uint32
}

// ComponentParams is one entry of VerificationParams.Components.
type ComponentParams struct {
	LogSize    uint32
	ClaimedSum core.QM31
	Info       ComponentInfo
}

// VerificationParams is the caller-supplied description of the AIR
// being verified against.
type VerificationParams struct {
	Components                         []ComponentParams
	NPreprocessedColumns                uint32
	ComponentsCompositionLogDegreeBound uint32
}

// Validate checks the params for structural soundness. The sample-point
// traversal resets its allocator per component, which only behaves
// correctly for a single component; this implementation documents that
// assumption by failing loudly rather than silently mis-allocating when
// more are present.
func (p VerificationParams) Validate() error {
	if len(p.Components) == 0 {
		return fmt.Errorf("%w: no components", core.ErrShape)
	}
	if len(p.Components) != 1 {
		return fmt.Errorf("%w: multi-component proofs are not a documented precondition of the mask-point allocator (got %d components)", core.ErrShape, len(p.Components))
	}
	if p.ComponentsCompositionLogDegreeBound == 0 {
		return fmt.Errorf("%w: composition log degree bound must be positive", core.ErrShape)
	}
	return nil
}
