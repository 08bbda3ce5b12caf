package morphism

import (
	"github.com/2x3systems/goheap/goheap"
)

// Checker runs a VF2 search and iterates over the morphisms found.
type Checker struct {
	alg   *VF2
	found []Morphism
	next  int
}

func NewChecker(alg *VF2) *Checker {
	return &Checker{alg: alg}
}

// Run searches for all morphisms from pattern into target.
func (chk *Checker) Run(pattern, target goheap.Graph) {
	chk.found = chk.alg.Search(pattern, target, false)
	chk.next = 0
}

// RunFirst searches only for the first morphism and reports whether one exists.
func (chk *Checker) RunFirst(pattern, target goheap.Graph) bool {
	chk.found = chk.alg.Search(pattern, target, true)
	chk.next = 0
	return len(chk.found) > 0
}

// Exists is RunFirst without keeping the checker's results around.
func (chk *Checker) Exists(pattern, target goheap.Graph) bool {
	return len(chk.alg.Search(pattern, target, true)) > 0
}

func (chk *Checker) HasMorphism() bool {
	return len(chk.found) > 0
}

func (chk *Checker) HasNext() bool {
	return chk.next < len(chk.found)
}

// Next returns the next morphism in discovery order.
func (chk *Checker) Next() Morphism {
	m := chk.found[chk.next]
	chk.next++
	return m
}

// All returns every morphism found by the last Run.
func (chk *Checker) All() []Morphism {
	return chk.found
}

var isomorphism = VF2{
	Admits: func(pattern, target goheap.Graph) bool {
		return pattern.Size() == target.Size()
	},
	MorphismFound:      MorphismFound,
	NoMorphismPossible: NoMorphismPossible,
	Feasibility: []Feasibility{
		CompatibleNodeTypes,
		CompatiblePredecessors(true),
		CompatibleSuccessors(true),
		OneStepLookaheadIn(true),
		OneStepLookaheadOut(true),
		TwoStepLookahead(true),
		CompatibleExternalNodes,
		CompatibleEdgeLabels,
	},
}

// embeddingFeasibility lists the predicates of an embedding search in evaluation order.
func embeddingFeasibility() []Feasibility {
	return []Feasibility{
		CompatibleNodeTypes,
		CompatiblePredecessors(false),
		CompatibleSuccessors(false),
		OneStepLookaheadIn(false),
		OneStepLookaheadOut(false),
		TwoStepLookahead(false),
		EmbeddingExternalNodes,
		EmbeddingEdgeLabels,
	}
}

var embedding = VF2{
	MorphismFound:      MorphismFound,
	NoMorphismPossible: NoMorphismPossible,
	Feasibility:        embeddingFeasibility(),
}

// NewIsomorphismChecker matches graphs exactly, external ordinals included.
func NewIsomorphismChecker() *Checker {
	return NewChecker(&isomorphism)
}

// NewEmbeddingChecker finds embeddings: pattern structure must be present in the target, internal pattern
// vertices must not have extra target structure, external ones may.
func NewEmbeddingChecker() *Checker {
	return NewChecker(&embedding)
}

// NewMinDistanceEmbeddingChecker is NewEmbeddingChecker plus the MinAbstractionDistance soundness predicate.
func NewMinDistanceEmbeddingChecker(opts goheap.Opts) *Checker {
	alg := &VF2{
		MorphismFound:      MorphismFound,
		NoMorphismPossible: NoMorphismPossible,
		Feasibility: append(embeddingFeasibility(),
			MinAbstractionDistance(opts.MinAbstractionDistance, opts.IsConstant),
		),
	}
	return NewChecker(alg)
}
