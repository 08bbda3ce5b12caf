// Package grammar implements hyperedge replacement grammars over heap configurations, and the two
// directions they are used in: materialization (replacing a nonterminal edge by a rule) and
// canonicalization (folding rule instances back into nonterminal edges).
package grammar

import (
	"github.com/2x3systems/goheap/goheap"
	"github.com/2x3systems/goheap/libheap"
	"github.com/emirpasic/gods/trees/redblacktree"
	"github.com/pkg/errors"
)

// Grammar is an immutable mapping from nonterminal to a set of right-hand sides.
//
// Nonterminals iterate in (label, rank) order and right-hand sides in insertion order.
type Grammar struct {
	rules *redblacktree.Tree // goheap.Nonterminal -> []*libheap.HeapConfiguration
}

// Nonterminals returns every nonterminal that has at least one rule.
func (G *Grammar) Nonterminals() []goheap.Nonterminal {
	nts := make([]goheap.Nonterminal, 0, G.rules.Size())
	itr := G.rules.Iterator()
	for itr.Next() {
		nts = append(nts, itr.Key().(goheap.Nonterminal))
	}
	return nts
}

// RightHandSidesFor returns the rules of nt; callers must not mutate the returned configurations.
func (G *Grammar) RightHandSidesFor(nt goheap.Nonterminal) []*libheap.HeapConfiguration {
	rhs, found := G.rules.Get(nt)
	if !found {
		return nil
	}
	return rhs.([]*libheap.HeapConfiguration)
}

// NumRules returns the total number of right-hand sides.
func (G *Grammar) NumRules() int {
	n := 0
	itr := G.rules.Iterator()
	for itr.Next() {
		n += len(itr.Value().([]*libheap.HeapConfiguration))
	}
	return n
}

// ForEachRule calls fn for every rule in grammar order until fn returns false.
func (G *Grammar) ForEachRule(fn func(nt goheap.Nonterminal, rhs *libheap.HeapConfiguration) bool) {
	itr := G.rules.Iterator()
	for itr.Next() {
		nt := itr.Key().(goheap.Nonterminal)
		for _, rhs := range itr.Value().([]*libheap.HeapConfiguration) {
			if !fn(nt, rhs) {
				return
			}
		}
	}
}

// Builder assembles a Grammar.  Repeated rules for the same nonterminal union into one rule set,
// and isomorphic right-hand sides collapse into one.
type Builder struct {
	rules *redblacktree.Tree
}

func NewBuilder() *Builder {
	return &Builder{
		rules: redblacktree.NewWith(goheap.NonterminalComparator),
	}
}

// CheckRule reports whether nt -> rhs can be used as a rule.
//
// rhs must have exactly nt.Rank external nodes, and folding it must strictly shrink a heap:
// it either absorbs a non-external node or a selector, or it replaces two or more edges by one.
func CheckRule(nt goheap.Nonterminal, rhs *libheap.HeapConfiguration) error {
	if rhs.CountExternalNodes() != int(nt.Rank) {
		return errors.Wrapf(goheap.ErrRankMismatch, "rule for %s/%d has %d external nodes", nt.Label, nt.Rank, rhs.CountExternalNodes())
	}

	absorbed := rhs.CountNodes() - rhs.CountExternalNodes()
	for _, node := range rhs.Nodes() {
		absorbed += len(rhs.SelectorLabelsOf(node))
	}
	edges := rhs.CountNonterminalEdges() + rhs.CountVariableEdges()
	if absorbed == 0 && edges < 2 {
		return errors.Wrapf(goheap.ErrNonShrinkingRule, "rule for %s/%d", nt.Label, nt.Rank)
	}
	return nil
}

// AddRule adds nt -> rhs, panicking with the CheckRule error if it is not a usable rule.
func (gb *Builder) AddRule(nt goheap.Nonterminal, rhs *libheap.HeapConfiguration) *Builder {
	if gb.rules == nil {
		panic(goheap.ErrBuilderInvalid)
	}
	if err := CheckRule(nt, rhs); err != nil {
		panic(err)
	}

	var existing []*libheap.HeapConfiguration
	if prev, found := gb.rules.Get(nt); found {
		existing = prev.([]*libheap.HeapConfiguration)
	}
	for _, prev := range existing {
		if prev.Equals(rhs) {
			return gb
		}
	}
	gb.rules.Put(nt, append(existing, rhs))
	return gb
}

func (gb *Builder) AddRules(nt goheap.Nonterminal, rhs ...*libheap.HeapConfiguration) *Builder {
	for _, R := range rhs {
		gb.AddRule(nt, R)
	}
	return gb
}

// Build returns the grammar and invalidates this builder.
func (gb *Builder) Build() *Grammar {
	if gb.rules == nil {
		panic(goheap.ErrBuilderInvalid)
	}
	G := &Grammar{rules: gb.rules}
	gb.rules = nil
	return G
}

// ParseGrammar builds a grammar from the rules declared in a HeapFile.
func ParseGrammar(src string) (*Grammar, error) {
	defs, err := libheap.ParseDefs(src)
	if err != nil {
		return nil, err
	}
	return FromDefs(defs)
}

// FromDefs builds a grammar from already parsed rules.
func FromDefs(defs *libheap.Defs) (*Grammar, error) {
	gb := NewBuilder()
	for _, rule := range defs.Rules {
		if err := CheckRule(rule.Nonterminal, rule.HC); err != nil {
			return nil, err
		}
		gb.AddRule(rule.Nonterminal, rule.HC)
	}
	return gb.Build(), nil
}
