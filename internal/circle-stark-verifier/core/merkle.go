package core

import (
	"bytes"
	"fmt"
	"sort"

	"golang.org/x/crypto/sha3"
)

// MerkleDigestSize is the output width of the commitment hash (Keccak-256).
const MerkleDigestSize = 32

// ErrMerkleShape is returned when a decommitment's column/value layout
// does not match the log-sizes the verifier was configured with.
var ErrMerkleShape = fmt.Errorf("merkle: shape mismatch")

// ErrMerkleMismatch is returned when a recomputed root does not match
// the committed root.
var ErrMerkleMismatch = fmt.Errorf("merkle: root mismatch")

// ErrMerkleOOB is returned when a query index falls outside the
// committed layer's size.
var ErrMerkleOOB = fmt.Errorf("merkle: query index out of bounds")

func merkleHash(parts ...[]byte) []byte {
	h := sha3.NewLegacyKeccak256()
	for _, p := range parts {
		h.Write(p)
	}
	return h.Sum(nil)
}

// ColumnQuery is one queried column's claimed value at a given row, at a
// given Merkle layer (log-size).
type ColumnQuery struct {
	LogSize uint32
	Column  uint32
	Row     uint32
	Value   []byte
}

// Decommitment is the witness accompanying a batch of queried values: for
// every layer touched (from the largest log-size down to 0), the sibling
// hashes needed to recompute that layer's contribution to the root.
type Decommitment struct {
	// LayerSiblings[logSize][r] is the hash of the node at (logSize, r),
	// supplied when that node is the sibling (r = row^1) of a node at
	// row that must be folded up into (logSize-1, row/2).
	LayerSiblings map[uint32]map[uint32][]byte
}

// MultiLayerVerifier verifies a decommitment against a single committed
// root, covering possibly many columns spread across many distinct
// log-sizes within one tree.
type MultiLayerVerifier struct {
	Root []byte
}

// NewMultiLayerVerifier builds a verifier bound to a previously committed
// root.
func NewMultiLayerVerifier(root []byte) *MultiLayerVerifier {
	return &MultiLayerVerifier{Root: root}
}

// Verify checks that queries, hashed per-row per-logSize and folded
// upward using decommitment siblings, reproduce v.Root. Queries for the
// same (logSize, row) are first grouped and hashed together (multiple
// columns sharing a row commit to one leaf), then folded layer by layer
// down to log-size 0, where the final node must equal v.Root.
func (v *MultiLayerVerifier) Verify(queries []ColumnQuery, decommitment Decommitment) error {
	if len(queries) == 0 {
		return fmt.Errorf("%w: no queries", ErrMerkleShape)
	}

	byLayer := map[uint32]map[uint32][][]byte{}
	var logSizes []uint32
	seenLogSize := map[uint32]bool{}
	for _, q := range queries {
		if byLayer[q.LogSize] == nil {
			byLayer[q.LogSize] = map[uint32][][]byte{}
		}
		if q.Row >= uint32(1)<<q.LogSize {
			return fmt.Errorf("%w: row %d at log-size %d", ErrMerkleOOB, q.Row, q.LogSize)
		}
		byLayer[q.LogSize][q.Row] = append(byLayer[q.LogSize][q.Row], q.Value)
		if !seenLogSize[q.LogSize] {
			seenLogSize[q.LogSize] = true
			logSizes = append(logSizes, q.LogSize)
		}
	}
	sort.Slice(logSizes, func(i, j int) bool { return logSizes[i] > logSizes[j] })

	// nodes[row] holds the running folded hash at the current layer.
	nodes := map[uint32][]byte{}

	for li, logSize := range logSizes {
		rows := byLayer[logSize]
		for row, values := range rows {
			leaf := merkleHash(values...)
			if prior, folded := nodes[row]; folded {
				// A larger log-size already folded down to this row;
				// combine its carried node with this layer's own leaf
				// rather than discarding it.
				nodes[row] = merkleHash(prior, leaf)
			} else {
				nodes[row] = leaf
			}
		}

		nextLogSize := uint32(0)
		if li+1 < len(logSizes) {
			nextLogSize = logSizes[li+1]
		} else {
			nextLogSize = 0
		}

		for cur := logSize; cur > nextLogSize; cur-- {
			siblings := decommitment.LayerSiblings[cur]
			parents := map[uint32][]byte{}
			for row, node := range nodes {
				parentRow := row / 2
				if _, done := parents[parentRow]; done {
					continue
				}
				siblingRow := row ^ 1
				var left, right []byte
				sibling, haveSibling := nodes[siblingRow]
				if !haveSibling {
					s, ok := siblings[siblingRow]
					if !ok {
						return fmt.Errorf("%w: missing sibling at log-size %d row %d", ErrMerkleShape, cur, siblingRow)
					}
					sibling = s
				}
				if row%2 == 0 {
					left, right = node, sibling
				} else {
					left, right = sibling, node
				}
				parents[parentRow] = merkleHash(left, right)
			}
			nodes = parents
		}
	}

	root, ok := nodes[0]
	if !ok {
		return fmt.Errorf("%w: folding did not reach the root", ErrMerkleShape)
	}
	if !bytes.Equal(root, v.Root) {
		return ErrMerkleMismatch
	}
	return nil
}
