package protocols

import (
	"bytes"
	"fmt"

	"github.com/vybium/circle-stark-verifier/internal/circle-stark-verifier/core"
	"github.com/vybium/circle-stark-verifier/internal/circle-stark-verifier/utils"
)

// SamplePoint is one mask-offset evaluation: the (tree, column) it
// belongs to and the CirclePoint (over QM31) at which the prover
// claims to have sampled a value.
type SamplePoint struct {
	Tree   int
	Column int
	Point  core.CirclePointQM31
}

// computeSamplePoints materializes every mask-offset sample point for
// the (precondition: single) component, plus the 4 composition-tree
// entries.
func computeSamplePoints(oodsPoint core.CirclePointQM31, params VerificationParams, compositionLogSize uint32) ([]SamplePoint, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	component := params.Components[0]

	var points []SamplePoint
	for treeIdx, treeCols := range component.Info.MaskOffsets {
		traceStep := core.SubgroupGenerator(component.LogSize)
		for colIdx, offsets := range treeCols {
			for _, offset := range offsets {
				shift := traceStep
				if offset < 0 {
					shift = traceStep.Mul(uint32(-offset)).Neg()
				} else {
					shift = traceStep.Mul(uint32(offset))
				}
				shiftedPoint := core.AtIndex(shift)
				p := oodsPoint.Add(core.LiftM31Point(shiftedPoint))
				points = append(points, SamplePoint{Tree: treeIdx, Column: colIdx, Point: p})
			}
		}
	}
	for i := 0; i < 4; i++ {
		points = append(points, SamplePoint{Tree: compositionTreeIndex, Column: i, Point: oodsPoint})
	}
	return points, nil
}

// flattenSampledValues walks sampledValues in tree-major, column-major
// order.
func flattenSampledValues(sampledValues [][][]core.QM31) []core.QM31 {
	var out []core.QM31
	for _, tree := range sampledValues {
		for _, column := range tree {
			out = append(out, column...)
		}
	}
	return out
}

// Verify runs the full verification pipeline, returning true only if
// every step succeeds; any failure returns false with the first
// failing error.
func Verify(proof *Proof, params VerificationParams, treeRoots [][]byte, treeColumnLogSizes [][]uint32, initialDigest []byte, initialNDraws uint32) (bool, error) {
	// Step 1 (shape): validate proof and parameters before any
	// cryptographic work begins.
	if err := proof.Validate(); err != nil {
		return false, err
	}
	if err := params.Validate(); err != nil {
		return false, err
	}
	if len(treeRoots) != len(treeColumnLogSizes) {
		return false, fmt.Errorf("%w: treeRoots and treeColumnLogSizes length mismatch", core.ErrShape)
	}
	for i, root := range treeRoots {
		if !bytes.Equal(root, proof.Commitments[i]) {
			return false, fmt.Errorf("%w: supplied tree root %d does not match proof commitment", core.ErrShape, i)
		}
	}

	// Step 2: channel seeded from caller-supplied state.
	channel := utils.NewChannelFromState(initialDigest, initialNDraws)

	// Step 3/4: register the first k commitment trees (preprocessed,
	// original, interaction) and draw the pre-OODS randomness.
	pcs := NewPcsState(proof.Config)
	for i := 0; i < compositionTreeIndex; i++ {
		pcs.Commit(proof.Commitments[i], treeColumnLogSizes[i], channel)
	}
	if _, err := channel.DrawSecureFelt(); err != nil {
		return false, fmt.Errorf("draw pre-oods randomness: %w", err)
	}

	// Step 5: commit the composition tree; its 4 columns share the
	// composition log-degree bound.
	compositionLogSizes := make([]uint32, 4)
	for i := range compositionLogSizes {
		compositionLogSizes[i] = params.ComponentsCompositionLogDegreeBound
	}
	pcs.Commit(proof.Commitments[compositionTreeIndex], compositionLogSizes, channel)

	// Step 6: draw the OODS point.
	t, err := channel.DrawSecureFelt()
	if err != nil {
		return false, fmt.Errorf("draw oods randomness: %w", err)
	}
	oodsPoint, err := core.PointFromSecureState(t)
	if err != nil {
		return false, fmt.Errorf("derive oods point: %w", err)
	}

	// Step 7: compute every mask sample point.
	samplePoints, err := computeSamplePoints(oodsPoint, params, params.ComponentsCompositionLogDegreeBound)
	if err != nil {
		return false, err
	}
	_ = samplePoints

	// Step 8: verify OODS consistency of the composition polynomial.
	compositionEval, err := EvalCompositionAtPoint(proof.CompositionPoly, oodsPoint)
	if err != nil {
		return false, err
	}
	if len(proof.SampledValues) <= compositionTreeIndex || len(proof.SampledValues[compositionTreeIndex]) != 4 {
		return false, fmt.Errorf("%w: composition tree must sample exactly 4 columns", core.ErrShape)
	}
	var compositionFromProof [4]core.M31
	for i := 0; i < 4; i++ {
		samples := proof.SampledValues[compositionTreeIndex][i]
		if len(samples) != 1 {
			return false, fmt.Errorf("%w: composition column %d must carry exactly one sample", core.ErrShape, i)
		}
		coords := samples[0].ToM31Array()
		compositionFromProof[i] = coords[0]
	}
	compositionOodsEval := core.FromPartialEvals(compositionFromProof)
	if !compositionEval.Equal(compositionOodsEval) {
		return false, ErrOodsMismatch
	}

	// Step 9: flatten sampled values and mix into the channel.
	channel.MixFelts(flattenSampledValues(proof.SampledValues))

	// Step 10: draw the FRI random coefficient.
	randomCoeff, err := channel.DrawSecureFelt()
	if err != nil {
		return false, fmt.Errorf("draw fri random coefficient: %w", err)
	}

	// Step 11: FRI commit phase over the PCS bounds.
	bounds := pcs.CalculateBounds()
	friState, err := FriCommitPhase(channel, pcs.Config.Fri, proof.FriProof, bounds)
	if err != nil {
		return false, err
	}

	// Step 12: proof-of-work check, then mix the nonce.
	if err := channel.VerifyPow(pcs.Config.PowBits, proof.ProofOfWork); err != nil {
		return false, err
	}
	channel.MixU64(proof.ProofOfWork)

	// Step 13: sample FRI query positions.
	positionsByLogSize := SampleQueryPositions(channel, pcs.Config.Fri, bounds)

	// Step 14: Merkle-verify every tree at its query positions.
	for treeIdx, tree := range pcs.Trees {
		var queries []core.ColumnQuery
		for colIdx, colLogSize := range tree.ColumnLogSizes {
			positions, ok := positionsByLogSize[colLogSize]
			if !ok {
				continue
			}
			values := proof.QueriedValues[treeIdx][colIdx]
			if len(values) != len(positions) {
				return false, fmt.Errorf("%w: tree %d column %d has %d queried values, want %d",
					core.ErrShape, treeIdx, colIdx, len(values), len(positions))
			}
			for i, pos := range positions {
				buf := m31ToBytes(values[i])
				queries = append(queries, core.ColumnQuery{LogSize: colLogSize, Column: uint32(colIdx), Row: pos, Value: buf})
			}
		}
		verifier := core.NewMultiLayerVerifier(tree.Root)
		if err := verifier.Verify(queries, proof.Decommitments[treeIdx].ToCoreDecommitment()); err != nil {
			return false, err
		}
	}

	// Step 15: compute FRI answers (DEEP quotients) for the first
	// layer's columns, grouped by the sample points that land on them.
	firstLogSize := friState.FirstLayerLogSize
	positions, ok := positionsByLogSize[firstLogSize]
	if !ok {
		return false, fmt.Errorf("%w: no query positions sampled for first FRI layer log-size %d", core.ErrShape, firstLogSize)
	}
	batchesByPoint := map[core.QM31]*ColumnSampleBatch{}
	var batchOrder []core.QM31
	for _, sp := range samplePoints {
		key := sp.Point.X.Add(sp.Point.Y)
		b, exists := batchesByPoint[key]
		if !exists {
			b = &ColumnSampleBatch{Point: sp.Point}
			batchesByPoint[key] = b
			batchOrder = append(batchOrder, key)
		}
		var value core.QM31
		if sp.Tree < len(proof.SampledValues) && sp.Column < len(proof.SampledValues[sp.Tree]) && len(proof.SampledValues[sp.Tree][sp.Column]) > 0 {
			value = proof.SampledValues[sp.Tree][sp.Column][0]
		}
		b.Samples = append(b.Samples, ColumnSamplePoint{Tree: uint32(sp.Tree), Column: uint32(sp.Column), Value: value})
	}
	batches := make([]ColumnSampleBatch, 0, len(batchOrder))
	for _, key := range batchOrder {
		batches = append(batches, *batchesByPoint[key])
	}

	// queriedColumnValues is keyed by (tree, column): mask offsets land
	// on any of the committed trees, not only the composition tree, and
	// column indices repeat across trees.
	queriedColumnValues := map[queriedValueKey][]core.M31{}
	for treeIdx, tree := range pcs.Trees {
		for colIdx, colLogSize := range tree.ColumnLogSizes {
			if colLogSize == firstLogSize {
				queriedColumnValues[queriedValueKey{Tree: uint32(treeIdx), Column: uint32(colIdx)}] = proof.QueriedValues[treeIdx][colIdx]
			}
		}
	}

	firstLayerDomain := core.CanonicCoset(firstLogSize)
	answers, err := FriAnswers(firstLayerDomain, positions, batches, randomCoeff, queriedColumnValues)
	if err != nil {
		return false, err
	}

	// Step 16: FRI decommit.
	if err := FriDecommit(friState, proof.FriProof, positions, answers); err != nil {
		return false, err
	}

	return true, nil
}

func m31ToBytes(v core.M31) []byte {
	x := v.Value()
	return []byte{byte(x), byte(x >> 8), byte(x >> 16), byte(x >> 24)}
}
