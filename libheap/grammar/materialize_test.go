package grammar_test

import (
	"testing"

	"github.com/2x3systems/goheap/goheap"
	"github.com/2x3systems/goheap/libheap"
	"github.com/2x3systems/goheap/libheap/grammar"
	"github.com/stretchr/testify/require"
)

const summarized = `heap {
	nodes t, u : Node
	x -> t
	y -> u
	L(t, u)
}`

func requireHasSelector(t *testing.T, hc *libheap.HeapConfiguration, varName, sel string) int32 {
	t.Helper()
	v, ok := hc.VariableWith(varName)
	require.True(t, ok)
	to, ok := hc.SelectorTargetOf(hc.TargetOf(v), sel)
	require.True(t, ok, hc.String())
	return to
}

func TestMaterializeVariable(t *testing.T) {
	G := mustGrammar(t, sllRules)
	H := mustHeap(t, summarized)

	out, err := grammar.NewMaterializer(G).Materialize(H.HC, grammar.VarSelector{Var: "x", Selector: "next"})
	require.NoError(t, err)
	require.Len(t, out, 2)

	// one concrete successor, one fresh intermediate node
	var sizes []int
	for _, M := range out {
		requireHasSelector(t, M, "x", "next")
		sizes = append(sizes, M.CountNodes())
	}
	require.ElementsMatch(t, []int{2, 3}, sizes)

	// input untouched
	require.Equal(t, 1, H.HC.CountNonterminalEdges())
	_, ok := H.HC.SelectorTargetOf(H.Nodes["t"], "next")
	require.False(t, ok)
}

func TestMaterializeThenCanonicalize(t *testing.T) {
	G := mustGrammar(t, sllRules)
	H := mustHeap(t, summarized).HC

	out, err := grammar.NewMaterializer(G).Materialize(H, grammar.VarSelector{Var: "x", Selector: "next"})
	require.NoError(t, err)

	canon := grammar.NewCanonicalizer(G, goheap.DefaultOpts())
	for _, M := range out {
		folded := canon.Canonicalize(M)
		require.Len(t, folded, 1)
		require.True(t, folded[0].Equals(H), folded[0].String())
	}
}

func TestMaterializePassThrough(t *testing.T) {
	G := mustGrammar(t, sllRules)
	M := grammar.NewMaterializer(G)

	// already concrete
	H := mustHeap(t, `heap { nodes a, b : Node  a.next -> b  x -> a }`).HC
	out, err := M.Materialize(H, grammar.VarSelector{Var: "x", Selector: "next"})
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Same(t, H, out[0])

	// no rule can provide the selector at that tentacle
	S := mustHeap(t, summarized).HC
	out, err = M.Materialize(S, grammar.VarSelector{Var: "y", Selector: "next"})
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Same(t, S, out[0])

	_, err = M.Materialize(S, grammar.VarSelector{Var: "nope", Selector: "next"})
	require.ErrorIs(t, err, goheap.ErrBadID)
}

func TestMaterializeChained(t *testing.T) {
	G := mustGrammar(t, sllRules)
	H := mustHeap(t, summarized).HC

	out, err := grammar.NewMaterializer(G).Materialize(H,
		grammar.VarSelector{Var: "x", Selector: "next"},
		grammar.VarSelector{Var: "x", Selector: "next"},
	)
	require.NoError(t, err)
	require.Len(t, out, 2)
}

func TestMaterializeEdge(t *testing.T) {
	G := mustGrammar(t, sllRules)
	H := mustHeap(t, summarized)
	edge := H.HC.NonterminalEdges()[0]
	M := grammar.NewMaterializer(G)

	out, err := M.MaterializeEdge(H.HC, edge, grammar.Capability{Tentacle: 0, Selector: "next"})
	require.NoError(t, err)
	require.Len(t, out, 2)
	var edges []int
	for _, R := range out {
		edges = append(edges, R.CountNonterminalEdges())
	}
	require.ElementsMatch(t, []int{0, 1}, edges)

	out, err = M.MaterializeEdge(H.HC, edge, grammar.Capability{Tentacle: 1, Selector: "next"})
	require.NoError(t, err)
	require.Empty(t, out)

	out, err = M.MaterializeEdge(H.HC, edge, grammar.Capability{Tentacle: 0, Selector: "prev"})
	require.NoError(t, err)
	require.Empty(t, out)
}

type bogusResponse struct{}

func (bogusResponse) NumRules() int { return 1 }

func TestApplyRejectsForeignResponse(t *testing.T) {
	H := mustHeap(t, summarized).HC
	edge := H.NonterminalEdges()[0]

	_, err := grammar.DefaultResponseApplier{}.Apply(H, edge, bogusResponse{})
	require.ErrorIs(t, err, goheap.ErrWrongResponseType)
}

func TestResolve(t *testing.T) {
	G := mustGrammar(t, sllRules)
	r := grammar.Resolver{Grammar: G}

	resp := r.Resolve(L2, grammar.Capability{Tentacle: 0, Selector: "next"})
	require.Equal(t, 2, resp.NumRules())
	require.Equal(t, 0, r.Resolve(L2, grammar.Capability{Tentacle: 5, Selector: "next"}).NumRules())
	require.Equal(t, 0, r.Resolve(goheap.Nonterminal{Label: "Q", Rank: 2}, grammar.Capability{Selector: "next"}).NumRules())
}
