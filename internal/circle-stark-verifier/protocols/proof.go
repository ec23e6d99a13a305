package protocols

import (
	"encoding/binary"
	"fmt"

	"github.com/vybium/circle-stark-verifier/internal/circle-stark-verifier/core"
	"github.com/vybium/circle-stark-verifier/internal/circle-stark-verifier/utils"
)

// TreeDecommitment is one tree's Merkle witness: pre-hashed sibling
// nodes needed to fold the queried leaves up to the root, keyed by
// log-size and sibling row.
type TreeDecommitment struct {
	SiblingHashes map[uint32]map[uint32][]byte
}

// ToCoreDecommitment adapts the wire witness to the shape
// core.MultiLayerVerifier.Verify expects.
func (d TreeDecommitment) ToCoreDecommitment() core.Decommitment {
	return core.Decommitment{LayerSiblings: d.SiblingHashes}
}

// FriLayerProof is one FRI layer's witness: the committed root, the
// Merkle decommitment for that layer's queried positions, and the raw
// values needed to fill non-queried sibling slots before folding.
type FriLayerProof struct {
	Root            []byte
	Decommitment    TreeDecommitment
	NonQueriedEvals map[uint32]core.QM31 // row -> evaluation, for unqueried fold siblings
}

// FriProof is the full FRI witness: the first layer (over the initial
// columns), the inner layers (over folded univariate evaluations), and
// the last layer's explicit low-degree polynomial.
type FriProof struct {
	FirstLayer    FriLayerProof
	InnerLayers   []FriLayerProof
	LastLayerPoly []core.QM31
}

// Proof is the fully parsed wire format of a Circle-STARK proof.
type Proof struct {
	// Commitments holds the tree roots in order: preprocessed, original,
	// interaction, composition.
	Commitments [][]byte
	// SampledValues[tree][column] is the list of QM31 values sampled at
	// the mask points for that column.
	SampledValues [][][]core.QM31
	// Decommitments[tree] is that tree's Merkle witness.
	Decommitments []TreeDecommitment
	// QueriedValues[tree][column][query] is the raw M31 value at a
	// sampled query position, column-major within the tree.
	QueriedValues [][][]core.M31
	ProofOfWork   uint64
	FriProof      FriProof
	// CompositionPoly holds the composition polynomial's 4 M31
	// coefficient vectors, one per QM31 basis component.
	CompositionPoly [4][]core.M31
	Config          *utils.PcsConfig
}

// preprocessedTreeIndex through compositionTreeIndex fix the wire
// order: preprocessed, original, interaction, composition.
const (
	preprocessedTreeIndex = iota
	originalTreeIndex
	interactionTreeIndex
	compositionTreeIndex
	expectedTreeCount
)

// Validate checks the proof's structural shape before any cryptographic
// work begins.
func (p *Proof) Validate() error {
	if len(p.Commitments) != expectedTreeCount {
		return fmt.Errorf("%w: expected %d tree commitments (preprocessed, original, interaction, composition), got %d",
			core.ErrShape, expectedTreeCount, len(p.Commitments))
	}
	for i, root := range p.Commitments {
		if len(root) != core.MerkleDigestSize {
			return fmt.Errorf("%w: commitment %d has length %d, want %d", core.ErrShape, i, len(root), core.MerkleDigestSize)
		}
	}
	if len(p.SampledValues) != expectedTreeCount {
		return fmt.Errorf("%w: sampled values present for %d trees, want %d", core.ErrShape, len(p.SampledValues), expectedTreeCount)
	}
	if len(p.Decommitments) != expectedTreeCount {
		return fmt.Errorf("%w: decommitments present for %d trees, want %d", core.ErrShape, len(p.Decommitments), expectedTreeCount)
	}
	if len(p.QueriedValues) != expectedTreeCount {
		return fmt.Errorf("%w: queried values present for %d trees, want %d", core.ErrShape, len(p.QueriedValues), expectedTreeCount)
	}
	for i := range p.CompositionPoly {
		if len(p.CompositionPoly[i]) == 0 {
			return fmt.Errorf("%w: composition polynomial basis component %d is empty", core.ErrShape, i)
		}
	}
	if len(p.FriProof.LastLayerPoly) == 0 {
		return fmt.Errorf("%w: FRI last-layer polynomial is empty", core.ErrShape)
	}
	if p.Config == nil {
		return fmt.Errorf("%w: missing PCS config", core.ErrShape)
	}
	if err := p.Config.Validate(); err != nil {
		return fmt.Errorf("%w: %v", core.ErrShape, err)
	}
	return nil
}

// proofReader walks a byte-exact wire encoding of a Proof, all integers
// little-endian, failing closed on any truncated or malformed section.
type proofReader struct {
	buf []byte
	pos int
}

func newProofReader(data []byte) *proofReader { return &proofReader{buf: data} }

func (r *proofReader) take(n int) ([]byte, error) {
	if n < 0 || r.pos+n > len(r.buf) {
		return nil, fmt.Errorf("%w: unexpected end of proof bytes at offset %d", core.ErrShape, r.pos)
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

func (r *proofReader) u32() (uint32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *proofReader) u64() (uint64, error) {
	b, err := r.take(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (r *proofReader) root() ([]byte, error) {
	b, err := r.take(core.MerkleDigestSize)
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), b...), nil
}

func (r *proofReader) m31() (core.M31, error) {
	v, err := r.u32()
	if err != nil {
		return core.M31{}, err
	}
	return core.NewM31(uint64(v)), nil
}

func (r *proofReader) qm31() (core.QM31, error) {
	var coords [4]core.M31
	for i := range coords {
		v, err := r.m31()
		if err != nil {
			return core.QM31{}, err
		}
		coords[i] = v
	}
	return core.FromPartialEvals(coords), nil
}

// siblings reads a length-prefixed list of (logSize, row, 32-byte hash)
// triples into the nested map core.Decommitment expects.
func (r *proofReader) siblings() (map[uint32]map[uint32][]byte, error) {
	count, err := r.u32()
	if err != nil {
		return nil, err
	}
	out := map[uint32]map[uint32][]byte{}
	for i := uint32(0); i < count; i++ {
		logSize, err := r.u32()
		if err != nil {
			return nil, fmt.Errorf("sibling %d: %w", i, err)
		}
		row, err := r.u32()
		if err != nil {
			return nil, fmt.Errorf("sibling %d: %w", i, err)
		}
		hash, err := r.root()
		if err != nil {
			return nil, fmt.Errorf("sibling %d: %w", i, err)
		}
		if out[logSize] == nil {
			out[logSize] = map[uint32][]byte{}
		}
		out[logSize][row] = hash
	}
	return out, nil
}

// nonQueriedEvals reads a length-prefixed list of (row, QM31) pairs.
func (r *proofReader) nonQueriedEvals() (map[uint32]core.QM31, error) {
	count, err := r.u32()
	if err != nil {
		return nil, err
	}
	out := make(map[uint32]core.QM31, count)
	for i := uint32(0); i < count; i++ {
		row, err := r.u32()
		if err != nil {
			return nil, fmt.Errorf("non-queried eval %d: %w", i, err)
		}
		val, err := r.qm31()
		if err != nil {
			return nil, fmt.Errorf("non-queried eval %d: %w", i, err)
		}
		out[row] = val
	}
	return out, nil
}

func (r *proofReader) friLayer() (FriLayerProof, error) {
	root, err := r.root()
	if err != nil {
		return FriLayerProof{}, fmt.Errorf("root: %w", err)
	}
	sib, err := r.siblings()
	if err != nil {
		return FriLayerProof{}, fmt.Errorf("decommitment: %w", err)
	}
	nqe, err := r.nonQueriedEvals()
	if err != nil {
		return FriLayerProof{}, fmt.Errorf("non-queried evals: %w", err)
	}
	return FriLayerProof{Root: root, Decommitment: TreeDecommitment{SiblingHashes: sib}, NonQueriedEvals: nqe}, nil
}

// ParseProof decodes a byte-exact wire-format proof (§6: commitments,
// sampledValues, decommitments, queriedValues, proofOfWork, friProof,
// compositionPoly, config, in that order, every integer little-endian)
// into a parsed Proof, validating its shape before returning it. Any
// length-prefix mismatch or truncation fails with core.ErrShape before
// any cryptographic work runs.
func ParseProof(data []byte) (*Proof, error) {
	r := newProofReader(data)

	treeCount, err := r.u32()
	if err != nil {
		return nil, fmt.Errorf("parse proof: commitments: %w", err)
	}

	commitments := make([][]byte, treeCount)
	for i := range commitments {
		root, err := r.root()
		if err != nil {
			return nil, fmt.Errorf("parse proof: commitment %d: %w", i, err)
		}
		commitments[i] = root
	}

	sampledValues := make([][][]core.QM31, treeCount)
	for t := range sampledValues {
		numCols, err := r.u32()
		if err != nil {
			return nil, fmt.Errorf("parse proof: sampledValues tree %d: %w", t, err)
		}
		cols := make([][]core.QM31, numCols)
		for c := range cols {
			numSamples, err := r.u32()
			if err != nil {
				return nil, fmt.Errorf("parse proof: sampledValues tree %d column %d: %w", t, c, err)
			}
			samples := make([]core.QM31, numSamples)
			for s := range samples {
				v, err := r.qm31()
				if err != nil {
					return nil, fmt.Errorf("parse proof: sampledValues tree %d column %d sample %d: %w", t, c, s, err)
				}
				samples[s] = v
			}
			cols[c] = samples
		}
		sampledValues[t] = cols
	}

	decommitments := make([]TreeDecommitment, treeCount)
	for t := range decommitments {
		sib, err := r.siblings()
		if err != nil {
			return nil, fmt.Errorf("parse proof: decommitments tree %d: %w", t, err)
		}
		decommitments[t] = TreeDecommitment{SiblingHashes: sib}
	}

	queriedValues := make([][][]core.M31, treeCount)
	for t := range queriedValues {
		numCols, err := r.u32()
		if err != nil {
			return nil, fmt.Errorf("parse proof: queriedValues tree %d: %w", t, err)
		}
		cols := make([][]core.M31, numCols)
		for c := range cols {
			numQueries, err := r.u32()
			if err != nil {
				return nil, fmt.Errorf("parse proof: queriedValues tree %d column %d: %w", t, c, err)
			}
			vals := make([]core.M31, numQueries)
			for q := range vals {
				v, err := r.m31()
				if err != nil {
					return nil, fmt.Errorf("parse proof: queriedValues tree %d column %d query %d: %w", t, c, q, err)
				}
				vals[q] = v
			}
			cols[c] = vals
		}
		queriedValues[t] = cols
	}

	pow, err := r.u64()
	if err != nil {
		return nil, fmt.Errorf("parse proof: proofOfWork: %w", err)
	}

	firstLayer, err := r.friLayer()
	if err != nil {
		return nil, fmt.Errorf("parse proof: friProof firstLayer: %w", err)
	}

	numInner, err := r.u32()
	if err != nil {
		return nil, fmt.Errorf("parse proof: friProof innerLayers: %w", err)
	}
	innerLayers := make([]FriLayerProof, numInner)
	for i := range innerLayers {
		layer, err := r.friLayer()
		if err != nil {
			return nil, fmt.Errorf("parse proof: friProof innerLayer %d: %w", i, err)
		}
		innerLayers[i] = layer
	}

	numLastLayer, err := r.u32()
	if err != nil {
		return nil, fmt.Errorf("parse proof: friProof lastLayerPoly: %w", err)
	}
	lastLayerPoly := make([]core.QM31, numLastLayer)
	for i := range lastLayerPoly {
		v, err := r.qm31()
		if err != nil {
			return nil, fmt.Errorf("parse proof: friProof lastLayerPoly %d: %w", i, err)
		}
		lastLayerPoly[i] = v
	}

	var compositionPoly [4][]core.M31
	for i := range compositionPoly {
		numCoeffs, err := r.u32()
		if err != nil {
			return nil, fmt.Errorf("parse proof: compositionPoly %d: %w", i, err)
		}
		coeffs := make([]core.M31, numCoeffs)
		for j := range coeffs {
			v, err := r.m31()
			if err != nil {
				return nil, fmt.Errorf("parse proof: compositionPoly %d coefficient %d: %w", i, j, err)
			}
			coeffs[j] = v
		}
		compositionPoly[i] = coeffs
	}

	logBlowupFactor, err := r.u32()
	if err != nil {
		return nil, fmt.Errorf("parse proof: config logBlowupFactor: %w", err)
	}
	logLastLayerDegreeBound, err := r.u32()
	if err != nil {
		return nil, fmt.Errorf("parse proof: config logLastLayerDegreeBound: %w", err)
	}
	nQueries, err := r.u32()
	if err != nil {
		return nil, fmt.Errorf("parse proof: config nQueries: %w", err)
	}
	powBits, err := r.u32()
	if err != nil {
		return nil, fmt.Errorf("parse proof: config powBits: %w", err)
	}

	proof := &Proof{
		Commitments:   commitments,
		SampledValues: sampledValues,
		Decommitments: decommitments,
		QueriedValues: queriedValues,
		ProofOfWork:   pow,
		FriProof: FriProof{
			FirstLayer:    firstLayer,
			InnerLayers:   innerLayers,
			LastLayerPoly: lastLayerPoly,
		},
		CompositionPoly: compositionPoly,
		Config: &utils.PcsConfig{
			Fri: &utils.FriConfig{
				LogBlowupFactor:         logBlowupFactor,
				LogLastLayerDegreeBound: logLastLayerDegreeBound,
				NQueries:                nQueries,
			},
			PowBits: powBits,
		},
	}
	if err := proof.Validate(); err != nil {
		return nil, err
	}
	return proof, nil
}
