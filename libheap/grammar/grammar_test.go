package grammar_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/2x3systems/goheap/goheap"
	"github.com/2x3systems/goheap/libheap"
	"github.com/2x3systems/goheap/libheap/grammar"
	"github.com/stretchr/testify/require"
)

var L2 = goheap.Nonterminal{Label: "L", Rank: 2}

// sllRules summarizes singly linked list segments; the last rule makes folding confluent.
const sllRules = `
nonterminal L/2

rule L {
	nodes a, b : Node
	ext a, b
	a.next -> b
}

rule L {
	nodes a, m, b : Node
	ext a, b
	a.next -> m
	L(m, b)
}

rule L {
	nodes a, m, b : Node
	ext a, b
	L(a, m)
	L(m, b)
}
`

func mustGrammar(t *testing.T, src string) *grammar.Grammar {
	t.Helper()
	G, err := grammar.ParseGrammar(src)
	require.NoError(t, err)
	return G
}

func mustHeap(t *testing.T, src string) libheap.HeapDef {
	t.Helper()
	def, err := libheap.ParseHeap(src)
	require.NoError(t, err)
	return def
}

// chainSrc declares nodes n0..n<N-1> linked by next, with optional extra statements.
func chainSrc(N int, extra ...string) string {
	var b strings.Builder
	b.WriteString("heap {\n  nodes ")
	for i := 0; i < N; i++ {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "n%d", i)
	}
	b.WriteString(" : Node\n")
	for i := 0; i+1 < N; i++ {
		fmt.Fprintf(&b, "  n%d.next -> n%d\n", i, i+1)
	}
	for _, stmt := range extra {
		b.WriteString("  " + stmt + "\n")
	}
	b.WriteString("}\n")
	return b.String()
}

func requirePanicsWith(t *testing.T, target error, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		require.NotNil(t, r)
		err, ok := r.(error)
		require.True(t, ok)
		require.ErrorIs(t, err, target)
	}()
	fn()
}

func TestGrammarBuilder(t *testing.T) {
	edge := mustHeap(t, `heap { nodes a, b : Node  ext a, b  a.next -> b }`).HC
	same := mustHeap(t, `heap { nodes q, p : Node  ext p, q  p.next -> q }`).HC
	back := mustHeap(t, `heap { nodes a, b : Node  ext b, a  a.next -> b }`).HC
	T := goheap.Nonterminal{Label: "T", Rank: 2}

	gb := grammar.NewBuilder()
	gb.AddRules(L2, edge, same, back)
	gb.AddRule(T, edge)
	requirePanicsWith(t, goheap.ErrRankMismatch, func() {
		gb.AddRule(goheap.Nonterminal{Label: "U", Rank: 1}, edge)
	})
	G := gb.Build()
	requirePanicsWith(t, goheap.ErrBuilderInvalid, func() { gb.Build() })

	require.Equal(t, []goheap.Nonterminal{L2, T}, G.Nonterminals())
	require.Len(t, G.RightHandSidesFor(L2), 2)
	require.Len(t, G.RightHandSidesFor(T), 1)
	require.Empty(t, G.RightHandSidesFor(goheap.Nonterminal{Label: "X", Rank: 2}))
	require.Equal(t, 3, G.NumRules())

	visited := 0
	G.ForEachRule(func(nt goheap.Nonterminal, rhs *libheap.HeapConfiguration) bool {
		visited++
		return nt != L2
	})
	require.Equal(t, 1, visited)
}

func TestParseGrammar(t *testing.T) {
	G := mustGrammar(t, sllRules)
	require.Equal(t, []goheap.Nonterminal{L2}, G.Nonterminals())
	require.Equal(t, 3, G.NumRules())

	_, err := grammar.ParseGrammar(`nonterminal L/3  rule L { nodes a : Node  ext a }`)
	require.ErrorIs(t, err, goheap.ErrRankMismatch)
}

func TestRulesMustShrink(t *testing.T) {
	for _, src := range []string{
		`rule L { nodes a, b : Node  ext a, b }`,
		`nonterminal K/2  rule L { nodes a, b : Node  ext a, b  K(a, b) }`,
		`rule L { nodes a, b : Node  ext a, b  x -> a }`,
	} {
		_, err := grammar.ParseGrammar(src)
		require.ErrorIs(t, err, goheap.ErrNonShrinkingRule, src)
	}

	G := mustGrammar(t, `rule L { nodes a, b : Node  ext a, b  L(a, b)  L(b, a) }`)
	require.Equal(t, 1, G.NumRules())

	bare := mustHeap(t, `heap { nodes a, b : Node  ext a, b }`).HC
	requirePanicsWith(t, goheap.ErrNonShrinkingRule, func() {
		grammar.NewBuilder().AddRule(L2, bare)
	})
}

func TestCanonicalizeFoldsChain(t *testing.T) {
	G := mustGrammar(t, `
rule L {
	nodes a, b : Node
	ext a, b
	a.next -> b
}
rule L {
	nodes a, m, b : Node
	ext a, b
	L(a, m)
	L(m, b)
}`)

	H := mustHeap(t, chainSrc(10)).HC
	out := grammar.NewCanonicalizer(G, goheap.DefaultOpts()).Canonicalize(H)
	require.Len(t, out, 1)

	C := out[0]
	require.Equal(t, []int32{0, 9}, C.Nodes())
	edges := C.NonterminalEdges()
	require.Len(t, edges, 1)
	require.Equal(t, L2, C.LabelOf(edges[0]))
	require.Equal(t, []int32{0, 9}, C.AttachedNodesOf(edges[0]))

	// input untouched
	require.Equal(t, 10, H.CountNodes())
	require.Equal(t, 0, H.CountNonterminalEdges())
}

func TestCanonicalizeExhaustive(t *testing.T) {
	G := mustGrammar(t, sllRules)
	opts := goheap.DefaultOpts()
	opts.Confluent = false

	out := grammar.NewCanonicalizer(G, opts).Canonicalize(mustHeap(t, chainSrc(4)).HC)
	require.Len(t, out, 1)
	require.Equal(t, 2, out[0].CountNodes())
	require.Equal(t, 1, out[0].CountNonterminalEdges())
}

func TestCanonicalizeNonConfluent(t *testing.T) {
	G := mustGrammar(t, `
rule A {
	nodes a, b : Node
	ext a, b
	a.next -> b
}
rule B {
	nodes a, m, b : Node
	ext a, b
	a.next -> m
	m.next -> b
}`)
	H := mustHeap(t, chainSrc(3)).HC

	opts := goheap.DefaultOpts()
	first := grammar.NewCanonicalizer(G, opts).Canonicalize(H)
	require.Len(t, first, 1)

	opts.Confluent = false
	all := grammar.NewCanonicalizer(G, opts).Canonicalize(H)
	require.Len(t, all, 2)
	require.False(t, all[0].Equals(all[1]))

	// the confluent answer is one of the fixed points
	require.True(t, first[0].Equals(all[0]) || first[0].Equals(all[1]))
	for _, C := range all {
		for _, n := range C.Nodes() {
			require.Empty(t, C.SelectorLabelsOf(n))
		}
	}
}

func TestCanonicalizeKeepsVariableNeighborhood(t *testing.T) {
	G := mustGrammar(t, sllRules)
	H := mustHeap(t, chainSrc(10, "x -> n0")).HC

	opts := goheap.DefaultOpts()
	opts.MinAbstractionDistance = 1
	out := grammar.NewCanonicalizer(G, opts).Canonicalize(H)
	require.Len(t, out, 1)

	C := out[0]
	require.Equal(t, []int32{0, 1, 9}, C.Nodes())
	to, ok := C.SelectorTargetOf(0, "next")
	require.True(t, ok)
	require.Equal(t, int32(1), to)
	edges := C.NonterminalEdges()
	require.Len(t, edges, 1)
	require.Equal(t, []int32{1, 9}, C.AttachedNodesOf(edges[0]))

	// without the distance bound the variable's node is absorbed into the summary
	out = grammar.NewCanonicalizer(G, goheap.DefaultOpts()).Canonicalize(H)
	require.Len(t, out, 1)
	require.Equal(t, []int32{0, 9}, out[0].Nodes())
}

func TestCanonicalizeExemptsConstants(t *testing.T) {
	G := mustGrammar(t, sllRules)
	H := mustHeap(t, chainSrc(10, "0 -> n0")).HC

	opts := goheap.DefaultOpts()
	opts.MinAbstractionDistance = 1
	out := grammar.NewCanonicalizer(G, opts).Canonicalize(H)
	require.Len(t, out, 1)
	require.Equal(t, []int32{0, 1, 9}, out[0].Nodes())

	opts.AggressiveNullAbstraction = true
	out = grammar.NewCanonicalizer(G, opts).Canonicalize(H)
	require.Len(t, out, 1)
	require.Equal(t, []int32{0, 9}, out[0].Nodes())
	v, ok := out[0].VariableWith("0")
	require.True(t, ok)
	require.Equal(t, int32(0), out[0].TargetOf(v))
}

func TestCanonicalizeWithoutRules(t *testing.T) {
	G := grammar.NewBuilder().Build()
	H := mustHeap(t, chainSrc(3)).HC
	out := grammar.NewCanonicalizer(G, goheap.DefaultOpts()).Canonicalize(H)
	require.Len(t, out, 1)
	require.True(t, out[0].Equals(H))
	require.NotSame(t, H, out[0])
}
