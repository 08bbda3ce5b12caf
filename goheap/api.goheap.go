package goheap

// ElemKind identifies what a heap element (and so a graph vertex) stands for.
type ElemKind byte

const (
	KindNode ElemKind = iota + 1
	KindNonterminal
	KindVariable
)

func (kind ElemKind) String() string {
	switch kind {
	case KindNode:
		return "node"
	case KindNonterminal:
		return "nonterminal"
	case KindVariable:
		return "variable"
	}
	return "?"
}

// NodeType is the nominal type of a heap node.
type NodeType string

// Nonterminal is a hyperedge label with a fixed rank (number of tentacles).
type Nonterminal struct {
	Label string
	Rank  int32
}

// NonterminalComparator orders nonterminals by label then rank.
func NonterminalComparator(A, B interface{}) int {
	a := A.(Nonterminal)
	b := B.(Nonterminal)
	if a.Label < b.Label {
		return -1
	} else if a.Label > b.Label {
		return 1
	}
	return int(a.Rank - b.Rank)
}

// VertexLabel labels a vertex of the underlying digraph.
//
// Nodes carry their type name, nonterminal hyperedges carry their label and rank,
// and variable edges carry their name.
type VertexLabel struct {
	Kind ElemKind
	Name string
	Rank int32
}

func NodeLabel(typ NodeType) VertexLabel {
	return VertexLabel{Kind: KindNode, Name: string(typ)}
}

func NonterminalLabel(nt Nonterminal) VertexLabel {
	return VertexLabel{Kind: KindNonterminal, Name: nt.Label, Rank: nt.Rank}
}

func VariableLabel(name string) VertexLabel {
	return VertexLabel{Kind: KindVariable, Name: name}
}

// EdgeLabel labels an arc of the underlying digraph.
//
// Selector arcs run node to node and carry the selector name.
// Tentacle arcs run from a hyperedge (or variable) vertex to a node and carry the tentacle ordinal.
type EdgeLabel struct {
	Selector string
	Tentacle int32
}

func SelectorLabel(name string) EdgeLabel {
	return EdgeLabel{Selector: name, Tentacle: -1}
}

func TentacleLabel(ordinal int32) EdgeLabel {
	return EdgeLabel{Tentacle: ordinal}
}

func (L EdgeLabel) IsSelector() bool {
	return L.Tentacle < 0
}

// Graph is the read-only digraph view of a heap configuration that the morphism engine walks.
//
// Vertices are dense private IDs in [0, Size()).  Successor and predecessor lists hold distinct vertices;
// parallel arcs between the same ordered pair are folded into one arc carrying several labels.
type Graph interface {
	Size() int32
	VertexLabel(v int32) VertexLabel
	SuccessorsOf(v int32) []int32
	PredecessorsOf(v int32) []int32

	// EdgeLabels returns the labels on the arc from -> to, or nil if there is no such arc.
	EdgeLabels(from, to int32) []EdgeLabel

	// ExternalIndex returns the external ordinal of v, or -1 if v is not external.
	ExternalIndex(v int32) int32
}

// Degree returns the number of distinct successors plus distinct predecessors of v.
func Degree(G Graph, v int32) int32 {
	return int32(len(G.SuccessorsOf(v)) + len(G.PredecessorsOf(v)))
}

// IsExternal is a convenience wrapper for G.ExternalIndex(v) >= 0.
func IsExternal(G Graph, v int32) bool {
	return G.ExternalIndex(v) >= 0
}

// PrintOpts specifies what is printed when printing a heap configuration
type PrintOpts struct {
	Label     string // Prefix label
	Multiline bool   // If set, each statement is placed on its own line
	PublicIDs bool   // If set, public IDs are appended as comments
}

// DefaultPrintOpts{}
var DefaultPrintOpts = PrintOpts{
	Multiline: true,
}
