package grammar

import (
	"github.com/2x3systems/goheap/goheap"
	"github.com/2x3systems/goheap/libheap"
	"github.com/2x3systems/goheap/metrics"
	"github.com/pkg/errors"
	"github.com/plan-systems/klog"
)

// Capability is what a materialization must make available: the node at tentacle Tentacle of a
// nonterminal edge must gain an outgoing selector labeled Selector.
type Capability struct {
	Tentacle int32
	Selector string
}

// VarSelector requires the node a variable points at to have a given outgoing selector.
type VarSelector struct {
	Var      string
	Selector string
}

// GrammarResponse is what a Resolver offers for one materialization request.
type GrammarResponse interface {
	NumRules() int
}

// DefaultGrammarResponse lists the right-hand sides able to provide a requested capability.
type DefaultGrammarResponse struct {
	Rules []*libheap.HeapConfiguration
}

func (resp *DefaultGrammarResponse) NumRules() int {
	return len(resp.Rules)
}

// Resolver filters a grammar's rules down to those able to provide a capability.
type Resolver struct {
	Grammar *Grammar
}

// Resolve returns the rules of nt whose external node at want.Tentacle has an outgoing want.Selector.
func (r *Resolver) Resolve(nt goheap.Nonterminal, want Capability) GrammarResponse {
	resp := &DefaultGrammarResponse{}
	for _, rhs := range r.Grammar.RightHandSidesFor(nt) {
		if int(want.Tentacle) >= rhs.CountExternalNodes() {
			continue
		}
		if _, provides := rhs.SelectorTargetOf(rhs.ExternalNodeAt(want.Tentacle), want.Selector); provides {
			resp.Rules = append(resp.Rules, rhs)
		}
	}
	return resp
}

// GrammarResponseApplier turns a response into materialized heap configurations.
type GrammarResponseApplier interface {

	// Apply returns one new configuration per rule in resp, each a clone of hc with edge replaced.
	// hc is never modified.  A response of an unsupported kind yields goheap.ErrWrongResponseType.
	Apply(hc *libheap.HeapConfiguration, edge int32, resp GrammarResponse) ([]*libheap.HeapConfiguration, error)
}

// DefaultResponseApplier applies a *DefaultGrammarResponse.
type DefaultResponseApplier struct{}

func (DefaultResponseApplier) Apply(hc *libheap.HeapConfiguration, edge int32, resp GrammarResponse) ([]*libheap.HeapConfiguration, error) {
	rules, ok := resp.(*DefaultGrammarResponse)
	if !ok {
		return nil, errors.Wrapf(goheap.ErrWrongResponseType, "got %T", resp)
	}

	label := hc.LabelOf(edge).Label
	out := make([]*libheap.HeapConfiguration, 0, len(rules.Rules))
	for _, rhs := range rules.Rules {
		dup := hc.Clone()
		dup.Builder().
			ReplaceNonterminalEdge(edge, rhs).
			Build()
		out = append(out, dup)
		metrics.Materializations.WithLabelValues(label).Inc()
	}
	return out, nil
}

// Materializer concretizes heap configurations so that required selectors become available.
type Materializer struct {
	Resolver Resolver
	Applier  GrammarResponseApplier
}

// NewMaterializer returns a Materializer using the default resolver and applier over G.
func NewMaterializer(G *Grammar) *Materializer {
	return &Materializer{
		Resolver: Resolver{Grammar: G},
		Applier:  DefaultResponseApplier{},
	}
}

// MaterializeEdge replaces edge in clones of hc by every rule able to provide want.
// An empty result means no rule applies.
func (m *Materializer) MaterializeEdge(hc *libheap.HeapConfiguration, edge int32, want Capability) ([]*libheap.HeapConfiguration, error) {
	resp := m.Resolver.Resolve(hc.LabelOf(edge), want)
	if resp.NumRules() == 0 {
		return nil, nil
	}
	return m.Applier.Apply(hc, edge, resp)
}

// Materialize returns the configurations obtained from hc by materializing, in turn, each requirement.
//
// A requirement already met passes a configuration through unchanged, as does one no nonterminal edge
// can provide.  Otherwise the first nonterminal edge (lowest public ID) attached to the variable's node at a
// tentacle some rule can expand is materialized, yielding one configuration per applicable rule.
func (m *Materializer) Materialize(hc *libheap.HeapConfiguration, reqs ...VarSelector) ([]*libheap.HeapConfiguration, error) {
	current := []*libheap.HeapConfiguration{hc}

	for _, req := range reqs {
		var next []*libheap.HeapConfiguration
		for _, Hi := range current {
			out, err := m.materializeOne(Hi, req)
			if err != nil {
				return nil, errors.Wrapf(err, "materializing %s.%s", req.Var, req.Selector)
			}
			next = append(next, out...)
		}
		current = next
	}

	return current, nil
}

func (m *Materializer) materializeOne(hc *libheap.HeapConfiguration, req VarSelector) ([]*libheap.HeapConfiguration, error) {
	varEdge, exists := hc.VariableWith(req.Var)
	if !exists {
		return nil, errors.Wrapf(goheap.ErrBadID, "no variable %q", req.Var)
	}
	node := hc.TargetOf(varEdge)
	if _, met := hc.SelectorTargetOf(node, req.Selector); met {
		return []*libheap.HeapConfiguration{hc}, nil
	}

	for _, edge := range hc.AttachedNonterminalEdgesOf(node) {
		for i, t := range hc.AttachedNodesOf(edge) {
			if t != node {
				continue
			}
			out, err := m.MaterializeEdge(hc, edge, Capability{Tentacle: int32(i), Selector: req.Selector})
			if err != nil || len(out) > 0 {
				return out, err
			}
		}
	}

	klog.V(2).Infof("materialize: no rule provides %s.%s", req.Var, req.Selector)
	return []*libheap.HeapConfiguration{hc}, nil
}
