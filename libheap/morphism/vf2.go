package morphism

import (
	"github.com/2x3systems/goheap/goheap"
	"github.com/2x3systems/goheap/metrics"
	"github.com/plan-systems/klog"
)

// VF2 is a depth-first backtracking morphism search parameterized by termination conditions and an
// ordered list of feasibility predicates.
//
// Candidate order and predicate order are fixed, so the first morphism found is reproducible.
type VF2 struct {
	// Admits is an optional whole-graph precondition checked before searching.
	Admits func(pattern, target goheap.Graph) bool

	MorphismFound      Termination
	NoMorphismPossible Termination

	// Feasibility is evaluated in order; the first rejection short-circuits.
	Feasibility []Feasibility
}

// Search returns the morphisms from pattern into target in discovery order.
// If existence is set, the search stops at the first morphism found.
func (alg *VF2) Search(pattern, target goheap.Graph, existence bool) []Morphism {
	metrics.MorphismSearches.Inc()

	if alg.Admits != nil && !alg.Admits(pattern, target) {
		return nil
	}

	s := NewSearchState(pattern, target)
	var hits []Morphism
	alg.match(s, existence, &hits)
	s.Reclaim()

	if len(hits) > 0 {
		metrics.MorphismsFound.Add(float64(len(hits)))
	}
	klog.V(3).Infof("vf2: %d morphism(s) of %d-vertex pattern into %d-vertex target", len(hits), pattern.Size(), target.Size())
	return hits
}

// match returns false once the search should stop globally.
func (alg *VF2) match(s *SearchState, existence bool, hits *[]Morphism) bool {
	if alg.NoMorphismPossible(s) {
		return true
	}
	if alg.MorphismFound(s) {
		*hits = append(*hits, s.Morphism())
		return !existence
	}

	start := len(s.cands)
	s.cands = s.ComputeCandidates(s.cands)
	end := len(s.cands)

	more := true
	for i := start; i < end && more; i++ {
		c := s.cands[i]
		if alg.isFeasible(s, c) {
			s.Extend(c)
			more = alg.match(s, existence, hits)
			s.Backtrack()
		}
	}

	s.cands = s.cands[:start]
	return more
}

func (alg *VF2) isFeasible(s *SearchState, c Pair) bool {
	for _, f := range alg.Feasibility {
		if !f(s, c) {
			return false
		}
	}
	return true
}

// MorphismFound holds once every pattern vertex is matched.
func MorphismFound(s *SearchState) bool {
	return s.P.NumUnmatched() == 0
}

// NoMorphismPossible holds once the pattern has more unmatched or frontier vertices than the target.
func NoMorphismPossible(s *SearchState) bool {
	return s.P.NumUnmatched() > s.T.NumUnmatched() ||
		s.P.numOut > s.T.numOut ||
		s.P.numIn > s.T.numIn
}
