package morphism

import (
	"math"
	"sync"

	"github.com/2x3systems/goheap/goheap"
)

// Side holds the matching state of one of the two graphs of a search.
//
// The out (in) frontier is the set of unmatched vertices that are successors (predecessors)
// of a matched vertex.  Vertices stay flagged after they are matched so that backtracking
// only has to undo what a single extension added.
type Side struct {
	G goheap.Graph

	match      []int32
	inOut      []bool
	inIn       []bool
	numOut     int32 // unmatched vertices flagged inOut
	numIn      int32 // unmatched vertices flagged inIn
	numMatched int32
}

func (side *Side) reset(G goheap.Graph) {
	N := int(G.Size())
	side.G = G
	side.numOut = 0
	side.numIn = 0
	side.numMatched = 0

	if cap(side.match) < N {
		side.match = make([]int32, N)
		side.inOut = make([]bool, N)
		side.inIn = make([]bool, N)
	} else {
		side.match = side.match[:N]
		side.inOut = side.inOut[:N]
		side.inIn = side.inIn[:N]
	}
	for i := range side.match {
		side.match[i] = -1
		side.inOut[i] = false
		side.inIn[i] = false
	}
}

// Match returns the vertex v is matched to on the other side, or -1.
func (side *Side) Match(v int32) int32 {
	return side.match[v]
}

func (side *Side) IsMatched(v int32) bool {
	return side.match[v] >= 0
}

// InOutFrontier reports whether v is unmatched and a successor of a matched vertex.
func (side *Side) InOutFrontier(v int32) bool {
	return side.inOut[v] && side.match[v] < 0
}

// InInFrontier reports whether v is unmatched and a predecessor of a matched vertex.
func (side *Side) InInFrontier(v int32) bool {
	return side.inIn[v] && side.match[v] < 0
}

func (side *Side) OutFrontierLen() int32 { return side.numOut }
func (side *Side) InFrontierLen() int32  { return side.numIn }
func (side *Side) NumMatched() int32     { return side.numMatched }

// NumUnmatched returns how many vertices of this side are still unmatched.
func (side *Side) NumUnmatched() int32 {
	return int32(len(side.match)) - side.numMatched
}

func (side *Side) matchVertex(v, other int32) {
	side.match[v] = other
	side.numMatched++
	if side.inOut[v] {
		side.numOut--
	}
	if side.inIn[v] {
		side.numIn--
	}
}

func (side *Side) unmatchVertex(v int32) {
	side.match[v] = -1
	side.numMatched--
	if side.inOut[v] {
		side.numOut++
	}
	if side.inIn[v] {
		side.numIn++
	}
}

const (
	setOut byte = iota
	setIn
)

// journalEntry records one vertex newly flagged into a frontier set of one side.
type journalEntry struct {
	v       int32
	pattern bool
	set     byte
}

// delta is what one Extend() pushed: the pair and where its journal entries start.
type delta struct {
	pair  Pair
	start int
}

// SearchState is the single mutable state of a VF2 search.
//
// Extend() pushes one delta onto an undo log and Backtrack() pops exactly one, so the state
// is never copied during the search.
type SearchState struct {
	P Side // pattern
	T Side // target

	deltas  []delta
	journal []journalEntry
	cands   []Pair

	varDist      []int32
	varDistValid bool
}

var searchStatePool = sync.Pool{
	New: func() interface{} {
		return new(SearchState)
	},
}

// NewSearchState returns a pooled, empty search state for the given graphs.
// Call Reclaim() when done.
func NewSearchState(pattern, target goheap.Graph) *SearchState {
	s := searchStatePool.Get().(*SearchState)
	s.P.reset(pattern)
	s.T.reset(target)
	s.deltas = s.deltas[:0]
	s.journal = s.journal[:0]
	s.cands = s.cands[:0]
	s.varDistValid = false
	return s
}

func (s *SearchState) Reclaim() {
	s.P.G = nil
	s.T.G = nil
	searchStatePool.Put(s)
}

func (s *SearchState) Pattern() goheap.Graph { return s.P.G }
func (s *SearchState) Target() goheap.Graph  { return s.T.G }

// Depth returns the number of pairs currently matched.
func (s *SearchState) Depth() int {
	return len(s.deltas)
}

// Extend matches c.P with c.T and grows both frontiers.
func (s *SearchState) Extend(c Pair) {
	s.deltas = append(s.deltas, delta{
		pair:  c,
		start: len(s.journal),
	})

	s.P.matchVertex(c.P, c.T)
	s.T.matchVertex(c.T, c.P)

	s.flagNeighbors(&s.P, true, c.P)
	s.flagNeighbors(&s.T, false, c.T)
}

func (s *SearchState) flagNeighbors(side *Side, pattern bool, v int32) {
	for _, u := range side.G.SuccessorsOf(v) {
		if !side.inOut[u] {
			side.inOut[u] = true
			if side.match[u] < 0 {
				side.numOut++
			}
			s.journal = append(s.journal, journalEntry{u, pattern, setOut})
		}
	}
	for _, u := range side.G.PredecessorsOf(v) {
		if !side.inIn[u] {
			side.inIn[u] = true
			if side.match[u] < 0 {
				side.numIn++
			}
			s.journal = append(s.journal, journalEntry{u, pattern, setIn})
		}
	}
}

// Backtrack undoes exactly the most recent Extend().
func (s *SearchState) Backtrack() {
	last := len(s.deltas) - 1
	d := s.deltas[last]
	s.deltas = s.deltas[:last]

	for i := len(s.journal) - 1; i >= d.start; i-- {
		e := s.journal[i]
		side := &s.T
		if e.pattern {
			side = &s.P
		}
		unmatched := side.match[e.v] < 0
		if e.set == setOut {
			side.inOut[e.v] = false
			if unmatched {
				side.numOut--
			}
		} else {
			side.inIn[e.v] = false
			if unmatched {
				side.numIn--
			}
		}
	}
	s.journal = s.journal[:d.start]

	s.P.unmatchVertex(d.pair.P)
	s.T.unmatchVertex(d.pair.T)
}

// ComputeCandidates appends the candidate pairs for the next extension to dst.
//
// The lowest unmatched pattern vertex of the out frontier is paired with every target vertex of the
// out frontier (ascending); failing that, the in frontiers are used the same way; failing that, and
// only if the pattern frontier is empty, the lowest unmatched pattern vertex is paired with every
// unmatched target vertex.
func (s *SearchState) ComputeCandidates(dst []Pair) []Pair {
	P, T := &s.P, &s.T

	switch {
	case P.numOut > 0 && T.numOut > 0:
		p := P.lowest(P.InOutFrontier)
		for t := range T.match {
			if T.InOutFrontier(int32(t)) {
				dst = append(dst, Pair{p, int32(t)})
			}
		}

	case P.numIn > 0 && T.numIn > 0:
		p := P.lowest(P.InInFrontier)
		for t := range T.match {
			if T.InInFrontier(int32(t)) {
				dst = append(dst, Pair{p, int32(t)})
			}
		}

	case P.numOut == 0 && P.numIn == 0:
		p := P.lowest(func(v int32) bool { return P.match[v] < 0 })
		if p < 0 {
			break
		}
		for t, m := range T.match {
			if m < 0 {
				dst = append(dst, Pair{p, int32(t)})
			}
		}
	}

	return dst
}

func (side *Side) lowest(in func(v int32) bool) int32 {
	for v := range side.match {
		if in(int32(v)) {
			return int32(v)
		}
	}
	return -1
}

// Morphism returns a copy of the current pattern-to-target mapping.
func (s *SearchState) Morphism() Morphism {
	return append(Morphism(nil), s.P.match...)
}

// patternImage returns the target vertex q maps to once c is added, or -1.
func (s *SearchState) patternImage(q int32, c Pair) int32 {
	if q == c.P {
		return c.T
	}
	return s.P.match[q]
}

// targetPreimage returns the pattern vertex mapped onto u once c is added, or -1.
func (s *SearchState) targetPreimage(u int32, c Pair) int32 {
	if u == c.T {
		return c.P
	}
	return s.T.match[u]
}

// variableDistances returns, per target vertex, the least number of selector steps from the node of any
// non-exempt variable (math.MaxInt32 if unreachable).  Computed once per search.
func (s *SearchState) variableDistances(isExempt func(varName string) bool) []int32 {
	if s.varDistValid {
		return s.varDist
	}

	T := s.T.G
	N := int(T.Size())
	if cap(s.varDist) < N {
		s.varDist = make([]int32, N)
	}
	dist := s.varDist[:N]
	for i := range dist {
		dist[i] = math.MaxInt32
	}

	var queue []int32
	for v := int32(0); v < int32(N); v++ {
		L := T.VertexLabel(v)
		if L.Kind != goheap.KindVariable || isExempt(L.Name) {
			continue
		}
		for _, node := range T.SuccessorsOf(v) {
			if dist[node] != 0 {
				dist[node] = 0
				queue = append(queue, node)
			}
		}
	}

	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
		for _, w := range T.SuccessorsOf(u) {
			if T.VertexLabel(w).Kind == goheap.KindNode && dist[w] > dist[u]+1 {
				dist[w] = dist[u] + 1
				queue = append(queue, w)
			}
		}
	}

	s.varDist = dist
	s.varDistValid = true
	return dist
}
