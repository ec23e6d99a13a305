package protocols

import (
	"sort"

	"github.com/vybium/circle-stark-verifier/internal/circle-stark-verifier/utils"
)

// CommittedTree is one registered Merkle commitment: its root plus the
// post-blowup log-size of each of its columns.
type CommittedTree struct {
	Root           []byte
	ColumnLogSizes []uint32
}

// CirclePolyDegreeBound is a column's degree bound, expressed as a
// log-size, after removing the blowup factor.
type CirclePolyDegreeBound struct {
	LogSize uint32
}

// PcsState holds every tree committed so far in a verification run,
// plus the PCS configuration driving blowup and FRI.
type PcsState struct {
	Config *utils.PcsConfig
	Trees  []CommittedTree
}

// NewPcsState returns a PCS state bound to cfg with no trees committed.
func NewPcsState(cfg *utils.PcsConfig) *PcsState {
	return &PcsState{Config: cfg}
}

// Commit mixes root into the channel and records the tree, with each
// column's log-size increased by the configured blowup factor.
func (s *PcsState) Commit(root []byte, columnLogSizes []uint32, channel *utils.Channel) {
	channel.CommitRoot(root)
	blown := make([]uint32, len(columnLogSizes))
	for i, l := range columnLogSizes {
		blown[i] = l + s.Config.Fri.LogBlowupFactor
	}
	s.Trees = append(s.Trees, CommittedTree{Root: root, ColumnLogSizes: blown})
}

// CalculateBounds flattens every committed column's log-size across all
// trees, sorts descending and deduplicates, then subtracts the blowup
// factor to recover each column's degree bound.
func (s *PcsState) CalculateBounds() []CirclePolyDegreeBound {
	seen := map[uint32]bool{}
	var logSizes []uint32
	for _, t := range s.Trees {
		for _, l := range t.ColumnLogSizes {
			if !seen[l] {
				seen[l] = true
				logSizes = append(logSizes, l)
			}
		}
	}
	sort.Slice(logSizes, func(i, j int) bool { return logSizes[i] > logSizes[j] })

	bounds := make([]CirclePolyDegreeBound, len(logSizes))
	for i, l := range logSizes {
		bounds[i] = CirclePolyDegreeBound{LogSize: l - s.Config.Fri.LogBlowupFactor}
	}
	return bounds
}
