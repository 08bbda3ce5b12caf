// Package metrics exposes engine counters through the default Prometheus registry.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MorphismSearches = promauto.NewCounter(prometheus.CounterOpts{
		Name: "goheap_morphism_searches_total",
		Help: "Number of VF2 morphism searches run",
	})

	MorphismsFound = promauto.NewCounter(prometheus.CounterOpts{
		Name: "goheap_morphisms_found_total",
		Help: "Number of morphisms or embeddings returned by VF2 searches",
	})

	// Folds counts matched subgraphs replaced by a nonterminal edge, by nonterminal label.
	Folds = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "goheap_folds_total",
		Help: "Number of subgraphs folded into a nonterminal edge during canonicalization",
	}, []string{"nonterminal"})

	// Materializations counts nonterminal edges replaced by a rule right-hand side, by nonterminal label.
	Materializations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "goheap_materializations_total",
		Help: "Number of heap configurations produced by materialization",
	}, []string{"nonterminal"})

	CanonicalResults = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "goheap_canonical_results",
		Help:    "Number of distinct fixed points returned per canonicalization",
		Buckets: []float64{1, 2, 4, 8, 16, 64, 256},
	})
)
