package libheap

import (
	"sort"

	"github.com/2x3systems/goheap/goheap"
	"github.com/2x3systems/goheap/libheap/morphism"
	"github.com/pkg/errors"
)

// HeapConfiguration is a hypergraph modeling a heap snapshot: typed nodes, labeled selector edges,
// nonterminal hyperedges and variable edges, plus an ordered set of external nodes.
//
// Every element is addressed by a public ID that stays fixed for the lifetime of the configuration
// (and its clones).  Mutation happens only through a Builder.
type HeapConfiguration struct {
	store     heapStore
	privOf    []int32 // public ID -> private ID, -1 once removed
	externals []int32 // private IDs ordered by external ordinal
	builder   *Builder
}

// NewHeapConfiguration returns an empty heap configuration.
func NewHeapConfiguration() *HeapConfiguration {
	return &HeapConfiguration{}
}

// Clone returns a fully independent copy of hc; public IDs carry over unchanged.
func (hc *HeapConfiguration) Clone() *HeapConfiguration {
	hc.assertIdle()
	return &HeapConfiguration{
		store:     hc.store.clone(),
		privOf:    append([]int32(nil), hc.privOf...),
		externals: append([]int32(nil), hc.externals...),
	}
}

// Builder returns the active builder of hc, creating one if none is active.
func (hc *HeapConfiguration) Builder() *Builder {
	if hc.builder == nil {
		hc.builder = &Builder{hc: hc}
	}
	return hc.builder
}

// Graph returns the read-only digraph view used by the morphism engine.
// The view is invalidated by the next Builder() session.
func (hc *HeapConfiguration) Graph() goheap.Graph {
	hc.assertIdle()
	return storeGraph{&hc.store}
}

func (hc *HeapConfiguration) assertIdle() {
	if hc.builder != nil {
		panic(goheap.ErrBuilderActive)
	}
}

func (hc *HeapConfiguration) addVertex(label goheap.VertexLabel) int32 {
	public := int32(len(hc.privOf))
	v := hc.store.addVertex(label, public)
	hc.privOf = append(hc.privOf, v)
	return v
}

func (hc *HeapConfiguration) removeVertex(v int32) {
	V := &hc.store.vtx[v]
	if V.extIdx >= 0 {
		hc.unsetExternal(v)
	}
	hc.privOf[V.public] = -1
	hc.store.removeVertex(v)
}

func (hc *HeapConfiguration) unsetExternal(v int32) {
	idx := hc.store.vtx[v].extIdx
	hc.externals = append(hc.externals[:idx], hc.externals[idx+1:]...)
	hc.store.vtx[v].extIdx = -1
	for i := idx; i < int32(len(hc.externals)); i++ {
		hc.store.vtx[hc.externals[i]].extIdx = i
	}
}

// pack compacts storage and rewrites every private ID reference through the resulting swap map.
func (hc *HeapConfiguration) pack() {
	remap := hc.store.pack()
	if remap == nil {
		return
	}
	for public, v := range hc.privOf {
		if v >= 0 {
			hc.privOf[public] = remap[v]
		}
	}
	for i, v := range hc.externals {
		hc.externals[i] = remap[v]
	}
}

// priv resolves a public ID to a private ID, panicking if id is unknown, removed or of the wrong kind.
func (hc *HeapConfiguration) priv(id int32, kind goheap.ElemKind) int32 {
	if id < 0 || int(id) >= len(hc.privOf) || hc.privOf[id] < 0 {
		panic(errors.Wrapf(goheap.ErrBadID, "public ID %d", id))
	}
	v := hc.privOf[id]
	if got := hc.store.vtx[v].label.Kind; got != kind {
		panic(errors.Wrapf(goheap.ErrWrongKind, "public ID %d is a %v, expected %v", id, got, kind))
	}
	return v
}

func (hc *HeapConfiguration) public(v int32) int32 {
	return hc.store.vtx[v].public
}

// publicIDs lists the public IDs of all live elements of the given kind, ascending.
func (hc *HeapConfiguration) publicIDs(kind goheap.ElemKind) []int32 {
	var ids []int32
	for _, V := range hc.store.vtx {
		if !V.removed && V.label.Kind == kind {
			ids = append(ids, V.public)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (hc *HeapConfiguration) count(kind goheap.ElemKind) int {
	n := 0
	for _, V := range hc.store.vtx {
		if !V.removed && V.label.Kind == kind {
			n++
		}
	}
	return n
}

func (hc *HeapConfiguration) Nodes() []int32            { return hc.publicIDs(goheap.KindNode) }
func (hc *HeapConfiguration) NonterminalEdges() []int32 { return hc.publicIDs(goheap.KindNonterminal) }
func (hc *HeapConfiguration) VariableEdges() []int32    { return hc.publicIDs(goheap.KindVariable) }

func (hc *HeapConfiguration) CountNodes() int            { return hc.count(goheap.KindNode) }
func (hc *HeapConfiguration) CountNonterminalEdges() int { return hc.count(goheap.KindNonterminal) }
func (hc *HeapConfiguration) CountVariableEdges() int    { return hc.count(goheap.KindVariable) }
func (hc *HeapConfiguration) CountExternalNodes() int    { return len(hc.externals) }

// ExternalNodes returns the public IDs of the external nodes ordered by ordinal.
func (hc *HeapConfiguration) ExternalNodes() []int32 {
	ids := make([]int32, len(hc.externals))
	for i, v := range hc.externals {
		ids[i] = hc.public(v)
	}
	return ids
}

// ExternalNodeAt returns the public ID of the external node with the given ordinal.
func (hc *HeapConfiguration) ExternalNodeAt(ordinal int32) int32 {
	if ordinal < 0 || int(ordinal) >= len(hc.externals) {
		panic(errors.Wrapf(goheap.ErrNotExternal, "no external node at ordinal %d", ordinal))
	}
	return hc.public(hc.externals[ordinal])
}

func (hc *HeapConfiguration) IsExternalNode(node int32) bool {
	return hc.store.vtx[hc.priv(node, goheap.KindNode)].extIdx >= 0
}

// ExternalIndexOf returns the external ordinal of node, or -1 if it is not external.
func (hc *HeapConfiguration) ExternalIndexOf(node int32) int32 {
	return hc.store.vtx[hc.priv(node, goheap.KindNode)].extIdx
}

func (hc *HeapConfiguration) NodeTypeOf(node int32) goheap.NodeType {
	return goheap.NodeType(hc.store.vtx[hc.priv(node, goheap.KindNode)].label.Name)
}

// SelectorLabelsOf returns the selector labels leaving node in insertion order.
func (hc *HeapConfiguration) SelectorLabelsOf(node int32) []string {
	V := &hc.store.vtx[hc.priv(node, goheap.KindNode)]
	var sels []string
	for _, a := range V.out {
		for _, L := range a.labels {
			sels = append(sels, L.Selector)
		}
	}
	return sels
}

// SelectorTargetOf returns the node reached from node via the given selector.
func (hc *HeapConfiguration) SelectorTargetOf(node int32, sel string) (int32, bool) {
	v := hc.priv(node, goheap.KindNode)
	to, found := hc.store.findLabel(v, goheap.SelectorLabel(sel))
	if !found {
		return -1, false
	}
	return hc.public(to), true
}

// SuccessorsOf returns the distinct nodes reachable from node via one selector.
func (hc *HeapConfiguration) SuccessorsOf(node int32) []int32 {
	V := &hc.store.vtx[hc.priv(node, goheap.KindNode)]
	ids := make([]int32, 0, len(V.succ))
	for _, to := range V.succ {
		ids = append(ids, hc.public(to))
	}
	return ids
}

// PredecessorsOf returns the distinct nodes having a selector pointing at node.
func (hc *HeapConfiguration) PredecessorsOf(node int32) []int32 {
	return hc.attachedOf(node, goheap.KindNode)
}

// AttachedNonterminalEdgesOf returns the distinct hyperedges with a tentacle at node.
func (hc *HeapConfiguration) AttachedNonterminalEdgesOf(node int32) []int32 {
	return hc.attachedOf(node, goheap.KindNonterminal)
}

// AttachedVariableEdgesOf returns the variable edges pointing at node.
func (hc *HeapConfiguration) AttachedVariableEdgesOf(node int32) []int32 {
	return hc.attachedOf(node, goheap.KindVariable)
}

func (hc *HeapConfiguration) attachedOf(node int32, kind goheap.ElemKind) []int32 {
	V := &hc.store.vtx[hc.priv(node, goheap.KindNode)]
	var ids []int32
	for _, from := range V.pred {
		if hc.store.vtx[from].label.Kind == kind {
			ids = append(ids, hc.public(from))
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// LabelOf returns the nonterminal labeling the given hyperedge.
func (hc *HeapConfiguration) LabelOf(edge int32) goheap.Nonterminal {
	L := hc.store.vtx[hc.priv(edge, goheap.KindNonterminal)].label
	return goheap.Nonterminal{Label: L.Name, Rank: L.Rank}
}

// AttachedNodesOf returns the tentacle nodes of the given hyperedge, ordered by tentacle ordinal.
func (hc *HeapConfiguration) AttachedNodesOf(edge int32) []int32 {
	v := hc.priv(edge, goheap.KindNonterminal)
	tentacles := hc.tentaclesOf(v)
	for i, t := range tentacles {
		tentacles[i] = hc.public(t)
	}
	return tentacles
}

// tentaclesOf returns the private IDs of the tentacle nodes of hyperedge vertex v.
func (hc *HeapConfiguration) tentaclesOf(v int32) []int32 {
	V := &hc.store.vtx[v]
	tentacles := make([]int32, V.label.Rank)
	for _, a := range V.out {
		for _, L := range a.labels {
			tentacles[L.Tentacle] = a.to
		}
	}
	return tentacles
}

// VariableWith returns the variable edge with the given name.
func (hc *HeapConfiguration) VariableWith(name string) (int32, bool) {
	if v := hc.variableWith(name); v >= 0 {
		return hc.public(v), true
	}
	return -1, false
}

func (hc *HeapConfiguration) variableWith(name string) int32 {
	for v, V := range hc.store.vtx {
		if !V.removed && V.label.Kind == goheap.KindVariable && V.label.Name == name {
			return int32(v)
		}
	}
	return -1
}

func (hc *HeapConfiguration) NameOf(varEdge int32) string {
	return hc.store.vtx[hc.priv(varEdge, goheap.KindVariable)].label.Name
}

// TargetOf returns the node a variable edge points at.
func (hc *HeapConfiguration) TargetOf(varEdge int32) int32 {
	V := &hc.store.vtx[hc.priv(varEdge, goheap.KindVariable)]
	return hc.public(V.succ[0])
}

// Equals reports whether hc and other are isomorphic, respecting node types, labels and external ordinals.
func (hc *HeapConfiguration) Equals(other *HeapConfiguration) bool {
	if hc == other {
		return true
	}
	if len(hc.store.vtx) != len(other.store.vtx) || len(hc.externals) != len(other.externals) {
		return false
	}
	return morphism.NewIsomorphismChecker().Exists(hc.Graph(), other.Graph())
}
