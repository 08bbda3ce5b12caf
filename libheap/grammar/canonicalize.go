package grammar

import (
	"github.com/2x3systems/goheap/goheap"
	"github.com/2x3systems/goheap/libheap"
	"github.com/2x3systems/goheap/libheap/morphism"
	"github.com/2x3systems/goheap/metrics"
	"github.com/plan-systems/klog"
)

// Canonicalizer abstracts heap configurations by folding embedded rule right-hand sides into
// nonterminal edges until no rule embeds anymore.
type Canonicalizer struct {
	Grammar *Grammar
	Opts    goheap.Opts
}

func NewCanonicalizer(G *Grammar, opts goheap.Opts) *Canonicalizer {
	return &Canonicalizer{
		Grammar: G,
		Opts:    opts,
	}
}

// Canonicalize returns the distinct fixed points reachable from hc by folding.
//
// Rules are tried in grammar order, and embeddings are searched with the min-distance embedding checker
// so that no fold hides a node a variable still inspects.  With Opts.Confluent set, only the first
// embedding found is folded at each step, giving exactly one result.  hc is never modified.
func (c *Canonicalizer) Canonicalize(hc *libheap.HeapConfiguration) []*libheap.HeapConfiguration {
	var results []*libheap.HeapConfiguration
	if c.Opts.Confluent {
		results = []*libheap.HeapConfiguration{c.foldFirst(hc.Clone())}
	} else {
		results = c.foldAll(hc)
	}
	metrics.CanonicalResults.Observe(float64(len(results)))
	return results
}

// foldFirst folds H in place until no rule embeds.
func (c *Canonicalizer) foldFirst(H *libheap.HeapConfiguration) *libheap.HeapConfiguration {
	chk := morphism.NewMinDistanceEmbeddingChecker(c.Opts)

	for folded := true; folded; {
		folded = false
		c.Grammar.ForEachRule(func(nt goheap.Nonterminal, rhs *libheap.HeapConfiguration) bool {
			if !chk.RunFirst(rhs.Graph(), H.Graph()) {
				return true
			}
			match := libheap.NewMatching(rhs, H, chk.Next())
			H.Builder().
				ReplaceMatching(match, nt).
				Build()
			metrics.Folds.WithLabelValues(nt.Label).Inc()
			klog.V(3).Infof("canonicalize: folded %s, %d nodes remain", nt.Label, H.CountNodes())
			folded = true
			return false
		})
	}

	return H
}

// foldAll explores every fold order breadth first, deduplicating intermediate configurations up to isomorphism.
func (c *Canonicalizer) foldAll(hc *libheap.HeapConfiguration) []*libheap.HeapConfiguration {
	chk := morphism.NewMinDistanceEmbeddingChecker(c.Opts)

	seen := libheap.NewHeapSet()
	fixed := libheap.NewHeapSet()

	start := hc.Clone()
	seen.TryAdd(start)
	queue := []*libheap.HeapConfiguration{start}

	for len(queue) > 0 {
		H := queue[0]
		queue = queue[1:]

		folded := false
		c.Grammar.ForEachRule(func(nt goheap.Nonterminal, rhs *libheap.HeapConfiguration) bool {
			chk.Run(rhs.Graph(), H.Graph())
			for chk.HasNext() {
				folded = true
				F := H.Clone()
				F.Builder().
					ReplaceMatching(libheap.NewMatching(rhs, H, chk.Next()), nt).
					Build()
				metrics.Folds.WithLabelValues(nt.Label).Inc()
				if seen.TryAdd(F) {
					queue = append(queue, F)
				}
			}
			return true
		})

		if !folded {
			fixed.TryAdd(H)
		}
	}

	klog.V(2).Infof("canonicalize: %d configurations explored, %d fixed points", seen.Len(), fixed.Len())
	return fixed.Items()
}
