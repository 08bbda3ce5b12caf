package libheap

import (
	"github.com/2x3systems/goheap/goheap"
	"github.com/pkg/errors"
)

// Builder is the sole mutation API of a HeapConfiguration.
//
// A Builder is single use: Build() compacts storage, detaches the builder, and any further call on it panics.
// Precondition violations panic with an error wrapping one of the goheap sentinel errors.
type Builder struct {
	hc *HeapConfiguration
}

func (b *Builder) target() *HeapConfiguration {
	if b.hc == nil {
		panic(goheap.ErrBuilderInvalid)
	}
	return b.hc
}

// Build compacts the underlying storage and invalidates this builder.
// Public IDs of surviving elements are unchanged.
func (b *Builder) Build() *HeapConfiguration {
	hc := b.target()
	hc.pack()
	hc.builder = nil
	b.hc = nil
	return hc
}

// AddNodes adds count nodes of the given type and returns their public IDs.
func (b *Builder) AddNodes(typ goheap.NodeType, count int) []int32 {
	hc := b.target()
	ids := make([]int32, count)
	for i := range ids {
		v := hc.addVertex(goheap.NodeLabel(typ))
		ids[i] = hc.public(v)
	}
	return ids
}

// RemoveIsolatedNode removes a node that has no incident selector, tentacle or variable edge.
func (b *Builder) RemoveIsolatedNode(node int32) *Builder {
	hc := b.target()
	v := hc.priv(node, goheap.KindNode)
	V := &hc.store.vtx[v]
	if len(V.out) > 0 || len(V.pred) > 0 {
		panic(errors.Wrapf(goheap.ErrNotIsolated, "node %d", node))
	}
	hc.removeVertex(v)
	return b
}

func (b *Builder) AddSelector(from int32, sel string, to int32) *Builder {
	hc := b.target()
	vf := hc.priv(from, goheap.KindNode)
	vt := hc.priv(to, goheap.KindNode)
	L := goheap.SelectorLabel(sel)
	if _, exists := hc.store.findLabel(vf, L); exists {
		panic(errors.Wrapf(goheap.ErrDuplicateSelector, "node %d already has selector %q", from, sel))
	}
	hc.store.addArcLabel(vf, vt, L)
	return b
}

func (b *Builder) RemoveSelector(node int32, sel string) *Builder {
	hc := b.target()
	hc.removeSelector(hc.priv(node, goheap.KindNode), sel)
	return b
}

func (hc *HeapConfiguration) removeSelector(v int32, sel string) {
	L := goheap.SelectorLabel(sel)
	to, exists := hc.store.findLabel(v, L)
	if !exists {
		panic(errors.Wrapf(goheap.ErrMissingSelector, "node %d has no selector %q", hc.public(v), sel))
	}
	hc.store.removeArcLabel(v, to, L)
}

// ReplaceSelector relabels the selector oldSel of node to newSel, keeping its target.
func (b *Builder) ReplaceSelector(node int32, oldSel, newSel string) *Builder {
	hc := b.target()
	v := hc.priv(node, goheap.KindNode)
	to, exists := hc.store.findLabel(v, goheap.SelectorLabel(oldSel))
	if !exists {
		panic(errors.Wrapf(goheap.ErrMissingSelector, "node %d has no selector %q", node, oldSel))
	}
	if oldSel == newSel {
		return b
	}
	if _, dupe := hc.store.findLabel(v, goheap.SelectorLabel(newSel)); dupe {
		panic(errors.Wrapf(goheap.ErrDuplicateSelector, "node %d already has selector %q", node, newSel))
	}
	hc.store.removeArcLabel(v, to, goheap.SelectorLabel(oldSel))
	hc.store.addArcLabel(v, to, goheap.SelectorLabel(newSel))
	return b
}

// SetExternal marks node as external, assigning it the next free ordinal.
func (b *Builder) SetExternal(node int32) *Builder {
	hc := b.target()
	v := hc.priv(node, goheap.KindNode)
	V := &hc.store.vtx[v]
	if V.extIdx >= 0 {
		panic(errors.Wrapf(goheap.ErrAlreadyExternal, "node %d", node))
	}
	V.extIdx = int32(len(hc.externals))
	hc.externals = append(hc.externals, v)
	return b
}

// UnsetExternal drops node from the external nodes; the ordinals of later external nodes shift down by one.
func (b *Builder) UnsetExternal(node int32) *Builder {
	hc := b.target()
	v := hc.priv(node, goheap.KindNode)
	if hc.store.vtx[v].extIdx < 0 {
		panic(errors.Wrapf(goheap.ErrNotExternal, "node %d", node))
	}
	hc.unsetExternal(v)
	return b
}

// AddVariableEdge attaches a uniquely named variable to target and returns the variable edge's public ID.
func (b *Builder) AddVariableEdge(name string, target int32) int32 {
	hc := b.target()
	vt := hc.priv(target, goheap.KindNode)
	if hc.variableWith(name) >= 0 {
		panic(errors.Wrapf(goheap.ErrDuplicateVariable, "variable %q", name))
	}
	v := hc.addVertex(goheap.VariableLabel(name))
	hc.store.addArcLabel(v, vt, goheap.TentacleLabel(0))
	return hc.public(v)
}

func (b *Builder) RemoveVariableEdge(varEdge int32) *Builder {
	hc := b.target()
	hc.removeVertex(hc.priv(varEdge, goheap.KindVariable))
	return b
}

// AddNonterminalEdge adds a hyperedge labeled nt whose i-th tentacle is tentacles[i].
func (b *Builder) AddNonterminalEdge(nt goheap.Nonterminal, tentacles ...int32) int32 {
	hc := b.target()
	if int32(len(tentacles)) != nt.Rank {
		panic(errors.Wrapf(goheap.ErrRankMismatch, "%s has rank %d but got %d tentacles", nt.Label, nt.Rank, len(tentacles)))
	}
	privs := make([]int32, len(tentacles))
	for i, node := range tentacles {
		privs[i] = hc.priv(node, goheap.KindNode)
	}
	return hc.public(hc.addNonterminal(nt, privs))
}

func (hc *HeapConfiguration) addNonterminal(nt goheap.Nonterminal, tentacles []int32) int32 {
	v := hc.addVertex(goheap.NonterminalLabel(nt))
	for i, t := range tentacles {
		hc.store.addArcLabel(v, t, goheap.TentacleLabel(int32(i)))
	}
	return v
}

// AddNonterminalEdgeBuilder starts a hyperedge whose tentacles are given one at a time.
func (b *Builder) AddNonterminalEdgeBuilder(nt goheap.Nonterminal) *NonterminalEdgeBuilder {
	b.target()
	return &NonterminalEdgeBuilder{
		parent: b,
		nt:     nt,
	}
}

// NonterminalEdgeBuilder collects tentacles for one hyperedge.
type NonterminalEdgeBuilder struct {
	parent    *Builder
	nt        goheap.Nonterminal
	tentacles []int32
}

func (eb *NonterminalEdgeBuilder) AddTentacle(node int32) *NonterminalEdgeBuilder {
	eb.tentacles = append(eb.tentacles, node)
	return eb
}

// Build adds the hyperedge to the parent builder, returning the parent.
func (eb *NonterminalEdgeBuilder) Build() *Builder {
	eb.parent.AddNonterminalEdge(eb.nt, eb.tentacles...)
	return eb.parent
}

func (b *Builder) RemoveNonterminalEdge(edge int32) *Builder {
	hc := b.target()
	hc.removeVertex(hc.priv(edge, goheap.KindNonterminal))
	return b
}

// ReplaceNonterminal relabels edge with nt, which must have the same rank as the current label.
func (b *Builder) ReplaceNonterminal(edge int32, nt goheap.Nonterminal) *Builder {
	hc := b.target()
	V := &hc.store.vtx[hc.priv(edge, goheap.KindNonterminal)]
	if V.label.Rank != nt.Rank {
		panic(errors.Wrapf(goheap.ErrRankMismatch, "cannot relabel %s/%d as %s/%d", V.label.Name, V.label.Rank, nt.Label, nt.Rank))
	}
	V.label = goheap.NonterminalLabel(nt)
	return b
}

// ReplaceNonterminalEdge substitutes replacement for edge: the external node with ordinal i is glued onto
// the edge's i-th tentacle, and every other element of replacement is copied in under fresh public IDs.
func (b *Builder) ReplaceNonterminalEdge(edge int32, replacement *HeapConfiguration) *Builder {
	hc := b.target()
	replacement.assertIdle()

	v := hc.priv(edge, goheap.KindNonterminal)
	rank := hc.store.vtx[v].label.Rank
	if int(rank) != replacement.CountExternalNodes() {
		panic(errors.Wrapf(goheap.ErrRankMismatch, "edge %d has rank %d but replacement has %d external nodes", edge, rank, replacement.CountExternalNodes()))
	}

	tentacles := hc.tentaclesOf(v)
	hc.removeVertex(v)

	R := &replacement.store
	glue := make([]int32, len(R.vtx))
	for r, Vr := range R.vtx {
		if Vr.extIdx >= 0 {
			glue[r] = tentacles[Vr.extIdx]
			continue
		}
		if Vr.label.Kind == goheap.KindVariable && hc.variableWith(Vr.label.Name) >= 0 {
			panic(errors.Wrapf(goheap.ErrDuplicateVariable, "variable %q", Vr.label.Name))
		}
		glue[r] = hc.addVertex(Vr.label)
	}

	for r, Vr := range R.vtx {
		from := glue[r]
		for _, a := range Vr.out {
			to := glue[a.to]
			for _, L := range a.labels {
				if L.IsSelector() {
					if _, exists := hc.store.findLabel(from, L); exists {
						panic(errors.Wrapf(goheap.ErrDuplicateSelector, "gluing selector %q onto node %d", L.Selector, hc.public(from)))
					}
				}
				hc.store.addArcLabel(from, to, L)
			}
		}
	}

	return b
}

// Matching maps every vertex of a pattern heap configuration (by private ID) to the public ID
// of its image in a host heap configuration.
type Matching struct {
	Pattern *HeapConfiguration
	Image   []int32
}

// NewMatching converts a morphism from pattern into host, given as target vertex per pattern vertex,
// into a Matching that survives host storage compaction.
func NewMatching(pattern, host *HeapConfiguration, morphism []int32) Matching {
	image := make([]int32, len(morphism))
	for p, t := range morphism {
		image[p] = host.public(t)
	}
	return Matching{
		Pattern: pattern,
		Image:   image,
	}
}

// ReplaceMatching folds the matched subgraph into one hyperedge labeled nt:
// selectors leaving images of pattern nodes are removed, images of non-external pattern elements are removed,
// and a hyperedge is added whose i-th tentacle is the image of the pattern's i-th external node.
func (b *Builder) ReplaceMatching(m Matching, nt goheap.Nonterminal) *Builder {
	hc := b.target()
	P := &m.Pattern.store
	if int(nt.Rank) != m.Pattern.CountExternalNodes() {
		panic(errors.Wrapf(goheap.ErrRankMismatch, "%s has rank %d but pattern has %d external nodes", nt.Label, nt.Rank, m.Pattern.CountExternalNodes()))
	}
	if len(m.Image) != len(P.vtx) {
		panic(errors.Wrapf(goheap.ErrBadID, "matching covers %d of %d pattern elements", len(m.Image), len(P.vtx)))
	}

	image := func(p int) int32 {
		return hc.priv(m.Image[p], P.vtx[p].label.Kind)
	}

	for p, Vp := range P.vtx {
		if Vp.label.Kind != goheap.KindNode {
			continue
		}
		for _, a := range Vp.out {
			for _, L := range a.labels {
				hc.removeSelector(image(p), L.Selector)
			}
		}
	}

	tentacles := make([]int32, len(m.Pattern.externals))
	for i, p := range m.Pattern.externals {
		tentacles[i] = image(int(p))
	}

	// hyperedges and variables first so that absorbed nodes are detached by the time they go
	for pass := 0; pass < 2; pass++ {
		for p, Vp := range P.vtx {
			if Vp.extIdx >= 0 || (Vp.label.Kind == goheap.KindNode) != (pass == 1) {
				continue
			}
			hc.removeVertex(image(p))
		}
	}

	hc.addNonterminal(nt, tentacles)
	return b
}
