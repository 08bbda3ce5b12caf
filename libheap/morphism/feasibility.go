package morphism

import (
	"github.com/2x3systems/goheap/goheap"
)

// CompatibleNodeTypes requires both vertices to carry the same vertex label
// (node type, nonterminal label and rank, or variable name).
func CompatibleNodeTypes(s *SearchState, c Pair) bool {
	return s.P.G.VertexLabel(c.P) == s.T.G.VertexLabel(c.T)
}

// CompatibleExternalNodes requires both vertices to be external at the same ordinal, or both internal.
func CompatibleExternalNodes(s *SearchState, c Pair) bool {
	return s.P.G.ExternalIndex(c.P) == s.T.G.ExternalIndex(c.T)
}

// EmbeddingExternalNodes is the dangling condition of an embedding: an internal pattern vertex must
// land on an internal target vertex with exactly as many neighbors, while an external pattern vertex
// may land on a target vertex with more.
func EmbeddingExternalNodes(s *SearchState, c Pair) bool {
	P, T := s.P.G, s.T.G
	if !goheap.IsExternal(P, c.P) {
		return !goheap.IsExternal(T, c.T) && goheap.Degree(P, c.P) == goheap.Degree(T, c.T)
	}
	return goheap.Degree(T, c.T) >= goheap.Degree(P, c.P)
}

// CompatibleSuccessors requires matched successors to correspond.
//
// Every matched successor of c.P must map to a successor of c.T.  A matched successor of c.T must have a
// successor of c.P as preimage, except in embedding mode (exact unset) where both pattern endpoints are external.
func CompatibleSuccessors(exact bool) Feasibility {
	return func(s *SearchState, c Pair) bool {
		P, T := s.P.G, s.T.G
		pSucc := P.SuccessorsOf(c.P)
		tSucc := T.SuccessorsOf(c.T)

		for _, q := range pSucc {
			if img := s.patternImage(q, c); img >= 0 && !containsVtx(tSucc, img) {
				return false
			}
		}
		for _, u := range tSucc {
			if pre := s.targetPreimage(u, c); pre >= 0 && !containsVtx(pSucc, pre) {
				if exact || !goheap.IsExternal(P, c.P) || !goheap.IsExternal(P, pre) {
					return false
				}
			}
		}
		return true
	}
}

// CompatiblePredecessors is CompatibleSuccessors for incoming arcs.
func CompatiblePredecessors(exact bool) Feasibility {
	return func(s *SearchState, c Pair) bool {
		P, T := s.P.G, s.T.G
		pPred := P.PredecessorsOf(c.P)
		tPred := T.PredecessorsOf(c.T)

		for _, q := range pPred {
			if img := s.patternImage(q, c); img >= 0 && !containsVtx(tPred, img) {
				return false
			}
		}
		for _, u := range tPred {
			if pre := s.targetPreimage(u, c); pre >= 0 && !containsVtx(pPred, pre) {
				if exact || !goheap.IsExternal(P, c.P) || !goheap.IsExternal(P, pre) {
					return false
				}
			}
		}
		return true
	}
}

// CompatibleEdgeLabels requires every arc between c.P and a matched neighbor to carry exactly the labels
// of the corresponding target arc.
func CompatibleEdgeLabels(s *SearchState, c Pair) bool {
	return edgeLabelsAgree(s, c, func(p, q int32) bool { return true })
}

// EmbeddingEdgeLabels relaxes CompatibleEdgeLabels: an arc between two external pattern nodes only needs
// its labels to be present on the target arc.
func EmbeddingEdgeLabels(s *SearchState, c Pair) bool {
	P := s.P.G
	return edgeLabelsAgree(s, c, func(p, q int32) bool {
		return !goheap.IsExternal(P, p) || !goheap.IsExternal(P, q)
	})
}

func edgeLabelsAgree(s *SearchState, c Pair, strict func(p, q int32) bool) bool {
	P, T := s.P.G, s.T.G
	for _, q := range P.SuccessorsOf(c.P) {
		if img := s.patternImage(q, c); img >= 0 {
			if !labelsEmbed(P.EdgeLabels(c.P, q), T.EdgeLabels(c.T, img), strict(c.P, q)) {
				return false
			}
		}
	}
	for _, q := range P.PredecessorsOf(c.P) {
		if img := s.patternImage(q, c); img >= 0 {
			if !labelsEmbed(P.EdgeLabels(q, c.P), T.EdgeLabels(img, c.T), strict(q, c.P)) {
				return false
			}
		}
	}
	return true
}

func labelsEmbed(pLabels, tLabels []goheap.EdgeLabel, strict bool) bool {
	if strict && len(pLabels) != len(tLabels) {
		return false
	}
	for _, L := range pLabels {
		found := false
		for _, Lt := range tLabels {
			if L == Lt {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// OneStepLookaheadOut compares the unmatched successors of c.P and c.T.
//
// The target must offer at least as many out-frontier successors.  Total unmatched successor counts must be
// equal if exact is set or c.P is internal, otherwise the target may have more.
func OneStepLookaheadOut(exact bool) Feasibility {
	return func(s *SearchState, c Pair) bool {
		pFront, pTotal := countUnmatched(&s.P, s.P.G.SuccessorsOf(c.P), c.P, s.P.InOutFrontier)
		tFront, tTotal := countUnmatched(&s.T, s.T.G.SuccessorsOf(c.T), c.T, s.T.InOutFrontier)
		return lookaheadHolds(s, c, exact, pFront, pTotal, tFront, tTotal)
	}
}

// OneStepLookaheadIn is OneStepLookaheadOut for predecessors.
func OneStepLookaheadIn(exact bool) Feasibility {
	return func(s *SearchState, c Pair) bool {
		pFront, pTotal := countUnmatched(&s.P, s.P.G.PredecessorsOf(c.P), c.P, s.P.InInFrontier)
		tFront, tTotal := countUnmatched(&s.T, s.T.G.PredecessorsOf(c.T), c.T, s.T.InInFrontier)
		return lookaheadHolds(s, c, exact, pFront, pTotal, tFront, tTotal)
	}
}

func lookaheadHolds(s *SearchState, c Pair, exact bool, pFront, pTotal, tFront, tTotal int32) bool {
	if pFront > tFront {
		return false
	}
	if exact || !goheap.IsExternal(s.P.G, c.P) {
		return pTotal == tTotal
	}
	return pTotal <= tTotal
}

func countUnmatched(side *Side, neighbors []int32, self int32, inFrontier func(v int32) bool) (front, total int32) {
	for _, u := range neighbors {
		if u == self || side.IsMatched(u) {
			continue
		}
		total++
		if inFrontier(u) {
			front++
		}
	}
	return
}

// TwoStepLookahead compares the summed degree of the unmatched neighbors of c.P and c.T:
// equal if exact is set, otherwise the target may have more.
func TwoStepLookahead(exact bool) Feasibility {
	return func(s *SearchState, c Pair) bool {
		pSum := neighborDegreeSum(&s.P, c.P)
		tSum := neighborDegreeSum(&s.T, c.T)
		if exact {
			return pSum == tSum
		}
		return pSum <= tSum
	}
}

func neighborDegreeSum(side *Side, v int32) int32 {
	sum := int32(0)
	for _, u := range side.G.SuccessorsOf(v) {
		if u != v && !side.IsMatched(u) {
			sum += goheap.Degree(side.G, u)
		}
	}
	for _, u := range side.G.PredecessorsOf(v) {
		if u != v && !side.IsMatched(u) {
			sum += goheap.Degree(side.G, u)
		}
	}
	return sum
}

// MinAbstractionDistance is the soundness predicate of abstraction.
//
// A pattern node that will be absorbed (internal) or that keeps outgoing structure inside the abstraction
// (external with successors) may only land on a target node at least depth selector steps away from the node
// of every variable.  Variables for which isExempt returns true are ignored.
func MinAbstractionDistance(depth int32, isExempt func(varName string) bool) Feasibility {
	return func(s *SearchState, c Pair) bool {
		if depth <= 0 {
			return true
		}
		P := s.P.G
		if P.VertexLabel(c.P).Kind != goheap.KindNode {
			return true
		}
		if goheap.IsExternal(P, c.P) && len(P.SuccessorsOf(c.P)) == 0 {
			return true
		}
		dist := s.variableDistances(isExempt)
		return dist[c.T] >= depth
	}
}

func containsVtx(ids []int32, v int32) bool {
	for _, u := range ids {
		if u == v {
			return true
		}
	}
	return false
}
