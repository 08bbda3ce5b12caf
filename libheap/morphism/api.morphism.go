// Package morphism searches for structure-preserving mappings (exact morphisms or embeddings)
// from a pattern graph into a target graph using a VF2-style backtracking search.
//
// The search itself is agnostic of what is being matched: the installed Feasibility predicates
// alone decide whether a search computes an isomorphism, an embedding, or an embedding that
// also respects a minimum distance from variables.
package morphism

// Pair proposes mapping pattern vertex P onto target vertex T.
type Pair struct {
	P int32
	T int32
}

// Morphism maps each pattern vertex (by index) onto a target vertex.
type Morphism []int32

// Feasibility accepts or rejects extending the current search state with a candidate pair.
//
// A Feasibility must not modify the search state.
type Feasibility func(s *SearchState, c Pair) bool

// Termination decides whether the search at the current state is complete or hopeless.
type Termination func(s *SearchState) bool
