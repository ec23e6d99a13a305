package protocols

import (
	"fmt"
	"sort"

	"github.com/vybium/circle-stark-verifier/internal/circle-stark-verifier/core"
	"github.com/vybium/circle-stark-verifier/internal/circle-stark-verifier/utils"
)

// FriVerifierState is the FRI verifier's working state for one
// verification run.
type FriVerifierState struct {
	Config            *utils.FriConfig
	Bounds            []CirclePolyDegreeBound // sorted descending
	FirstLayerDomains map[uint32]core.CircleDomain
	FirstLayerLogSize uint32
	FirstLayerAlpha   core.QM31
	InnerAlphas       []core.QM31
	LastLayerPoly     []core.QM31
	LastLayerLogSize  uint32
}

// FriCommitPhase runs the FRI commit phase: mixes every layer root into
// the channel, drawing a line-folding alpha per layer, then mixes and
// validates the last-layer polynomial.
func FriCommitPhase(channel *utils.Channel, cfg *utils.FriConfig, proof FriProof, bounds []CirclePolyDegreeBound) (*FriVerifierState, error) {
	if len(bounds) == 0 {
		return nil, fmt.Errorf("%w: FRI commit phase given no column bounds", core.ErrShape)
	}
	sorted := append([]CirclePolyDegreeBound(nil), bounds...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].LogSize > sorted[j].LogSize })

	firstLayerLogSize := sorted[0].LogSize + cfg.LogBlowupFactor
	domains := map[uint32]core.CircleDomain{}
	seen := map[uint32]bool{}
	for _, b := range sorted {
		l := b.LogSize + cfg.LogBlowupFactor
		if l > core.MaxCircleDomainLogSize {
			return nil, fmt.Errorf("%w: circle domain log-size %d exceeds maximum %d", core.ErrShape, l, core.MaxCircleDomainLogSize)
		}
		if !seen[l] {
			seen[l] = true
			domains[l] = core.CanonicCoset(l)
		}
	}

	channel.CommitRoot(proof.FirstLayer.Root)
	firstAlpha, err := channel.DrawSecureFelt()
	if err != nil {
		return nil, fmt.Errorf("draw first-layer alpha: %w", err)
	}

	innerAlphas := make([]core.QM31, len(proof.InnerLayers))
	for i, layer := range proof.InnerLayers {
		channel.CommitRoot(layer.Root)
		a, err := channel.DrawSecureFelt()
		if err != nil {
			return nil, fmt.Errorf("draw inner-layer %d alpha: %w", i, err)
		}
		innerAlphas[i] = a
	}

	channel.MixFelts(proof.LastLayerPoly)

	lastLayerLogSize := firstLayerLogSize - uint32(len(proof.InnerLayers)) - 1
	if cfg.LogLastLayerDegreeBound+cfg.LogBlowupFactor != lastLayerLogSize {
		return nil, fmt.Errorf("%w: last-layer degree bound %d + blowup %d != last layer domain log-size %d",
			ErrFriInsufficientDegree, cfg.LogLastLayerDegreeBound, cfg.LogBlowupFactor, lastLayerLogSize)
	}
	if len(proof.LastLayerPoly) != 1<<cfg.LogLastLayerDegreeBound {
		return nil, fmt.Errorf("%w: last-layer polynomial has %d coefficients, want %d",
			ErrFriLastLayerMismatch, len(proof.LastLayerPoly), 1<<cfg.LogLastLayerDegreeBound)
	}

	return &FriVerifierState{
		Config:            cfg,
		Bounds:            sorted,
		FirstLayerDomains: domains,
		FirstLayerLogSize: firstLayerLogSize,
		FirstLayerAlpha:   firstAlpha,
		InnerAlphas:       innerAlphas,
		LastLayerPoly:     proof.LastLayerPoly,
		LastLayerLogSize:  lastLayerLogSize,
	}, nil
}

// QueryPositionsByLogSize maps a (post-blowup) column log-size to its
// sorted, deduplicated, sampled query row indices.
type QueryPositionsByLogSize map[uint32][]uint32

// SampleQueryPositions draws nQueries indices per distinct column
// log-size present in bounds (after blowup): since every domain size
// is a power of two, uniform sampling is a direct mask of a drawn u32,
// no rejection needed.
func SampleQueryPositions(channel *utils.Channel, cfg *utils.FriConfig, bounds []CirclePolyDegreeBound) QueryPositionsByLogSize {
	out := QueryPositionsByLogSize{}
	seen := map[uint32]bool{}
	for _, b := range bounds {
		l := b.LogSize + cfg.LogBlowupFactor
		if seen[l] {
			continue
		}
		seen[l] = true
		mask := uint32(1)<<l - 1
		set := map[uint32]bool{}
		for drawn := uint32(0); drawn < cfg.NQueries; {
			draws := channel.DrawU32s()
			for _, d := range draws {
				if drawn >= cfg.NQueries {
					break
				}
				set[d&mask] = true
				drawn++
			}
		}
		rows := make([]uint32, 0, len(set))
		for r := range set {
			rows = append(rows, r)
		}
		sort.Slice(rows, func(i, j int) bool { return rows[i] < rows[j] })
		out[l] = rows
	}
	return out
}

// ColumnSamplePoint is one (tree, column, value) triple sampled at a
// shared out-of-domain point, used to build a DEEP quotient batch. Tree
// disambiguates column indices that repeat across the preprocessed,
// original, interaction, and composition trees.
type ColumnSamplePoint struct {
	Tree   uint32
	Column uint32
	Value  core.QM31
}

// queriedValueKey identifies one committed column within one tree, the
// key queriedColumnValues is indexed by in FriAnswers.
type queriedValueKey struct {
	Tree   uint32
	Column uint32
}

// ColumnSampleBatch groups every sample taken at the same point.
type ColumnSampleBatch struct {
	Point   core.CirclePointQM31
	Samples []ColumnSamplePoint
}

// lineCoefficients computes (a, b, c) for the quotient numerator
// a*y + b*x + c of one batch. The batch's sampled values are combined
// with increasing powers of randomCoeff into one value, and the result
// is a=1, b=0, c=combined-point.y, so a*y + b*x + c equals that combined
// value at batch.Point. The line is fixed by batch.Point alone; it is
// not interpolated through the conjugate point.
func lineCoefficients(batch ColumnSampleBatch, randomCoeff core.QM31) (a, b, c core.QM31) {
	combined := core.QM31Zero()
	power := core.QM31One()
	for _, s := range batch.Samples {
		combined = combined.Add(s.Value.Mul(power))
		power = power.Mul(randomCoeff)
	}
	// a*y + b*x + c = combined at batch.Point; x does not enter the line.
	a = core.QM31One()
	b = core.QM31Zero()
	c = combined.Sub(batch.Point.Y)
	return a, b, c
}

// FriAnswers computes the DEEP-quotient answers for every queried
// position at log-size logSize. queriedColumnValues maps a (tree,
// column) pair to its queried M31 values, indexed the same way as
// positions (queriedColumnValues[key][i] is the value at positions[i]).
func FriAnswers(domain core.CircleDomain, positions []uint32, batches []ColumnSampleBatch, randomCoeff core.QM31, queriedColumnValues map[queriedValueKey][]core.M31) ([]core.QM31, error) {
	points := make([]core.CirclePointQM31, len(positions))
	for i, pos := range positions {
		points[i] = core.LiftM31Point(domain.At(pos))
	}

	answers := make([]core.QM31, len(positions))
	for _, batch := range batches {
		a, b, c := lineCoefficients(batch, randomCoeff)

		denominators := make([]core.QM31, len(positions))
		for i, p := range points {
			denominators[i] = p.X.Sub(batch.Point.X)
		}
		invDenominators, err := core.BatchInverseQM31(denominators)
		if err != nil {
			return nil, fmt.Errorf("fri answers: %w", err)
		}

		for i, p := range points {
			numerator := a.Mul(p.Y).Add(b.Mul(p.X)).Add(c)
			for _, s := range batch.Samples {
				key := queriedValueKey{Tree: s.Tree, Column: s.Column}
				vals, ok := queriedColumnValues[key]
				if !ok || i >= len(vals) {
					return nil, fmt.Errorf("%w: missing queried value for tree %d column %d", core.ErrShape, s.Tree, s.Column)
				}
				numerator = numerator.Sub(core.QM31FromM31(vals[i]))
			}
			answers[i] = answers[i].Add(numerator.Mul(invDenominators[i]))
		}
	}
	return answers, nil
}

// ibutterfly folds one pair of evaluations (v0 at x, v1 at -x) along
// the circle-line with folding coefficient alpha:
// ((v0+v1) + alpha*(v0-v1)*x^-1) / 2.
func ibutterfly(v0, v1, alpha, xInv core.QM31) core.QM31 {
	two := core.QM31FromM31(core.NewM31Unchecked(2))
	twoInv, _ := two.Inverse()
	sum := v0.Add(v1)
	diff := v0.Sub(v1).Mul(xInv).Mul(alpha)
	return sum.Add(diff).Mul(twoInv)
}

// verifyAndFoldLayer Merkle-verifies curEvals (at curLogSize) against
// layer's committed root, then folds each queried pair down one level
// using alpha, returning the next level's positions and evaluations.
func verifyAndFoldLayer(layer FriLayerProof, curLogSize uint32, curPositions []uint32, curEvals []core.QM31, alpha core.QM31, layerLabel string) ([]uint32, []core.QM31, error) {
	verifier := core.NewMultiLayerVerifier(layer.Root)
	queries := make([]core.ColumnQuery, len(curPositions))
	for qi, pos := range curPositions {
		coords := curEvals[qi].ToM31Array()
		buf := make([]byte, 16)
		for k, m := range coords {
			v := m.Value()
			buf[k*4] = byte(v)
			buf[k*4+1] = byte(v >> 8)
			buf[k*4+2] = byte(v >> 16)
			buf[k*4+3] = byte(v >> 24)
		}
		queries[qi] = core.ColumnQuery{LogSize: curLogSize, Column: 0, Row: pos, Value: buf}
	}
	if err := verifier.Verify(queries, layer.Decommitment.ToCoreDecommitment()); err != nil {
		return nil, nil, fmt.Errorf("%w: %s: %v", ErrFriCommitmentMismatch, layerLabel, err)
	}

	domain := core.CanonicCoset(curLogSize)
	nextPositions := make([]uint32, 0, len(curPositions))
	nextEvals := make([]core.QM31, 0, len(curPositions))
	visited := map[uint32]bool{}
	for qi, pos := range curPositions {
		parent := pos >> 1
		if visited[parent] {
			continue
		}
		visited[parent] = true
		sibling := pos ^ 1
		siblingEval, ok := layer.NonQueriedEvals[sibling]
		if !ok {
			for qj, p2 := range curPositions {
				if p2 == sibling {
					siblingEval = curEvals[qj]
					ok = true
					break
				}
			}
		}
		if !ok {
			return nil, nil, fmt.Errorf("%w: missing fold sibling at row %d in %s", ErrFriInvalidProofShape, sibling, layerLabel)
		}
		x := domain.At(pos).X
		xInv, err := x.Inverse()
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", core.ErrZeroInverse, err)
		}
		var v0, v1 core.QM31
		if pos&1 == 0 {
			v0, v1 = curEvals[qi], siblingEval
		} else {
			v0, v1 = siblingEval, curEvals[qi]
		}
		folded := ibutterfly(v0, v1, alpha, core.QM31FromM31(xInv))
		nextPositions = append(nextPositions, parent)
		nextEvals = append(nextEvals, folded)
	}
	return nextPositions, nextEvals, nil
}

// FriDecommit folds the DEEP-quotient answers down through the first
// layer and every inner layer to the last layer, verifying each
// layer's Merkle decommitment and comparing the final folded value
// against the committed last-layer polynomial.
func FriDecommit(state *FriVerifierState, proof FriProof, positions []uint32, answers []core.QM31) error {
	curPositions := append([]uint32(nil), positions...)
	curEvals := append([]core.QM31(nil), answers...)
	curLogSize := state.FirstLayerLogSize

	nextPositions, nextEvals, err := verifyAndFoldLayer(proof.FirstLayer, curLogSize, curPositions, curEvals, state.FirstLayerAlpha, "first layer")
	if err != nil {
		return err
	}
	curPositions, curEvals, curLogSize = nextPositions, nextEvals, curLogSize-1

	for i, layer := range proof.InnerLayers {
		nextPositions, nextEvals, err := verifyAndFoldLayer(layer, curLogSize, curPositions, curEvals, state.InnerAlphas[i], fmt.Sprintf("inner layer %d", i))
		if err != nil {
			return err
		}
		curPositions, curEvals, curLogSize = nextPositions, nextEvals, curLogSize-1
	}

	lastDomain := core.CanonicCoset(state.LastLayerLogSize)
	for i, pos := range curPositions {
		point := lastDomain.At(pos)
		expected, err := evalCirclePoly(state.LastLayerPoly, core.LiftM31Point(point))
		if err != nil {
			return err
		}
		if !expected.Equal(curEvals[i]) {
			return fmt.Errorf("%w: position %d", ErrFriLastLayerMismatch, pos)
		}
	}
	return nil
}
