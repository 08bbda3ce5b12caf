package libheap_test

import (
	"strings"
	"testing"

	"github.com/2x3systems/goheap/goheap"
	"github.com/2x3systems/goheap/libheap"
	"github.com/gogo/protobuf/proto"
	"github.com/stretchr/testify/require"
)

const dllSrc = `
# doubly linked segment with a summarized tail
nonterminal DL/2

rule DL {
	nodes a, b : Node
	ext a, b
	a.next -> b
	b.prev -> a
}

heap {
	nodes h, t, u : Node
	h.next -> t
	t.prev -> h
	DL(t, u)
	head -> h
	tail -> u
}
`

func TestParseDefs(t *testing.T) {
	defs, err := libheap.ParseDefs(dllSrc)
	require.NoError(t, err)

	require.Equal(t, goheap.Nonterminal{Label: "DL", Rank: 2}, defs.Nonterminals["DL"])
	require.Len(t, defs.Rules, 1)
	require.Len(t, defs.Heaps, 1)

	rule := defs.Rules[0]
	require.Equal(t, "DL", rule.Nonterminal.Label)
	require.Equal(t, []int32{rule.Nodes["a"], rule.Nodes["b"]}, rule.HC.ExternalNodes())

	H := defs.Heaps[0]
	require.Equal(t, 3, H.HC.CountNodes())
	require.Equal(t, 1, H.HC.CountNonterminalEdges())
	require.Equal(t, 2, H.HC.CountVariableEdges())

	head, ok := H.HC.VariableWith("head")
	require.True(t, ok)
	require.Equal(t, H.Nodes["h"], H.HC.TargetOf(head))

	edge := H.HC.NonterminalEdges()[0]
	require.Equal(t, []int32{H.Nodes["t"], H.Nodes["u"]}, H.HC.AttachedNodesOf(edge))
}

func TestParseConstantVariables(t *testing.T) {
	H := mustHeap(t, `heap { nodes a, b : Node  a.next -> b  0 -> a  null -> b }`)

	zero, ok := H.HC.VariableWith("0")
	require.True(t, ok)
	require.Equal(t, H.Nodes["a"], H.HC.TargetOf(zero))

	var out strings.Builder
	H.HC.WriteAsString(&out, goheap.DefaultPrintOpts)
	again := mustHeap(t, out.String())
	require.True(t, H.HC.Equals(again.HC))
}

func TestParseErrors(t *testing.T) {
	for _, tc := range []struct {
		src    string
		target error
	}{
		{`heap { nodes a : Node  a.next -> b }`, goheap.ErrUndeclaredNode},
		{`heap { nodes a, a : Node }`, goheap.ErrBadExpr},
		{`heap { nodes a, b : Node  a.next -> b  a.next -> a }`, goheap.ErrDuplicateSelector},
		{`heap { nodes a : Node  x -> a  x -> a }`, goheap.ErrDuplicateVariable},
		{`nonterminal L/2  heap { nodes a : Node  L(a) }`, goheap.ErrRankMismatch},
		{`nonterminal L/3  rule L { nodes a, b : Node  ext a, b }`, goheap.ErrRankMismatch},
		{`heap { nodes a : Node `, goheap.ErrBadExpr},
		{`heap { nodes a, b : Node  0(a, b) }`, goheap.ErrBadExpr},
		{`heap { nodes a : Node  1 -> a  1 -> a }`, goheap.ErrDuplicateVariable},
	} {
		_, err := libheap.ParseDefs(tc.src)
		require.ErrorIs(t, err, tc.target, tc.src)
	}

	_, err := libheap.ParseHeap(`heap { nodes a : Node }  heap { nodes b : Node }`)
	require.ErrorIs(t, err, goheap.ErrBadExpr)
}

func TestWriteAsStringRoundTrip(t *testing.T) {
	defs, err := libheap.ParseDefs(dllSrc)
	require.NoError(t, err)
	H := defs.Heaps[0].HC

	for _, opts := range []goheap.PrintOpts{{}, goheap.DefaultPrintOpts, {Multiline: true, Label: "dll", PublicIDs: true}} {
		var buf strings.Builder
		H.WriteAsString(&buf, opts)

		again, err := libheap.ParseHeap(buf.String())
		require.NoError(t, err, buf.String())
		require.True(t, H.Equals(again.HC), buf.String())
	}

	require.NotContains(t, H.String(), "\n")
}

func TestEncodingRoundTrip(t *testing.T) {
	def := mustHeap(t, `heap {
		nodes a, b, c : Node
		ext c, a
		a.next -> b
		b.next -> c
		b.prev -> a
		L(a, c)
		x -> b
	}`)
	hc := def.HC

	// holes in the public ID space must survive
	hc.Builder().RemoveVariableEdge(func() int32 { id, _ := hc.VariableWith("x"); return id }())
	hc.Builder().Build()

	enc := hc.AppendEncoding(nil)
	decoded, err := libheap.NewHeapConfigurationFromEncoding(enc)
	require.NoError(t, err)

	require.True(t, hc.Equals(decoded))
	require.Equal(t, hc.Nodes(), decoded.Nodes())
	require.Equal(t, hc.ExternalNodes(), decoded.ExternalNodes())
	require.Equal(t, hc.NonterminalEdges(), decoded.NonterminalEdges())
	require.Equal(t, hc.Fingerprint(), decoded.Fingerprint())
	require.Equal(t, hc.String(), decoded.String())

	// the decoded configuration is fully usable
	decoded.Builder().AddVariableEdge("y", def.Nodes["c"])
	decoded.Builder().Build()
	require.Equal(t, 1, decoded.CountVariableEdges())
}

func TestEncodingRejectsGarbage(t *testing.T) {
	enc := chain(3).AppendEncoding(nil)

	_, err := libheap.NewHeapConfigurationFromEncoding(enc[:len(enc)-2])
	require.ErrorIs(t, err, goheap.ErrBadEncoding)

	_, err = libheap.NewHeapConfigurationFromEncoding([]byte{0x7f})
	require.ErrorIs(t, err, goheap.ErrBadEncoding)
}

type rawLabel struct {
	sel      string
	tentacle int // -1 for a selector
}

type rawArc struct {
	to     int
	labels []rawLabel
}

type rawVertex struct {
	kind   goheap.ElemKind
	name   string
	rank   int
	extIdx int // -1 if internal
	public int
	arcs   []rawArc
}

// encodeRaw writes vertices in the HeapEncoding layout without any of the Builder's checks.
func encodeRaw(numPublic int, vtx ...rawVertex) []byte {
	buf := proto.NewBuffer(nil)
	put := func(x int) { buf.EncodeVarint(uint64(x)) }
	put(1)
	put(numPublic)
	put(len(vtx))
	for _, V := range vtx {
		put(int(V.kind))
		buf.EncodeStringBytes(V.name)
		put(V.rank)
		put(V.extIdx + 1)
		put(V.public)
		put(len(V.arcs))
		for _, a := range V.arcs {
			put(a.to)
			put(len(a.labels))
			for _, L := range a.labels {
				buf.EncodeStringBytes(L.sel)
				put(L.tentacle + 1)
			}
		}
	}
	return buf.Bytes()
}

func rawNode(public, extIdx int, arcs ...rawArc) rawVertex {
	return rawVertex{kind: goheap.KindNode, name: "Node", extIdx: extIdx, public: public, arcs: arcs}
}

func tentacle(to int, ordinals ...int) rawArc {
	a := rawArc{to: to}
	for _, i := range ordinals {
		a.labels = append(a.labels, rawLabel{tentacle: i})
	}
	return a
}

func selector(to int, sel string) rawArc {
	return rawArc{to: to, labels: []rawLabel{{sel: sel, tentacle: -1}}}
}

func TestEncodingRejectsInconsistentHeaps(t *testing.T) {
	edge := func(arcs ...rawArc) rawVertex {
		return rawVertex{kind: goheap.KindNonterminal, name: "L", rank: 2, extIdx: -1, public: 2, arcs: arcs}
	}

	{
		enc := encodeRaw(3, rawNode(0, 0, selector(1, "next")), rawNode(1, 1), edge(tentacle(0, 0), tentacle(1, 1)))
		hc, err := libheap.NewHeapConfigurationFromEncoding(enc)
		require.NoError(t, err)
		require.Equal(t, []int32{0, 1}, hc.AttachedNodesOf(2))
		require.Equal(t, []int32{0, 1}, hc.ExternalNodes())
	}

	cases := make(map[string][]byte)
	cases["tentacle past rank"] = encodeRaw(3, rawNode(0, -1), rawNode(1, -1), edge(tentacle(0, 0), tentacle(1, 7)))
	cases["missing tentacle"] = encodeRaw(3, rawNode(0, -1), rawNode(1, -1), edge(tentacle(0, 0)))
	cases["repeated tentacle"] = encodeRaw(3, rawNode(0, -1), rawNode(1, -1), edge(tentacle(0, 0, 1), tentacle(1, 1)))
	cases["tentacle on node"] = encodeRaw(2, rawNode(0, -1, tentacle(1, 0)), rawNode(1, -1))
	cases["selector on edge"] = encodeRaw(3, rawNode(0, -1), rawNode(1, -1),
		edge(tentacle(0, 0), tentacle(1, 1), selector(0, "next")))
	cases["selector into edge"] = encodeRaw(3, rawNode(0, -1, selector(2, "next")), rawNode(1, -1),
		edge(tentacle(0, 0), tentacle(1, 1)))
	cases["repeated selector"] = encodeRaw(2, rawNode(0, -1, rawArc{to: 1, labels: []rawLabel{{"next", -1}, {"next", -1}}}), rawNode(1, -1))
	cases["repeated ext"] = encodeRaw(2, rawNode(0, 0), rawNode(1, 0))
	cases["ext gap"] = encodeRaw(2, rawNode(0, 0), rawNode(1, 2))
	cases["ext on edge"] = encodeRaw(3, rawNode(0, -1), rawNode(1, -1), rawVertex{kind: goheap.KindNonterminal, name: "L", rank: 2, extIdx: 0, public: 2, arcs: []rawArc{tentacle(0, 0), tentacle(1, 1)}})
	cases["repeated public ID"] = encodeRaw(2, rawNode(0, -1), rawNode(0, -1))
	cases["unknown kind"] = encodeRaw(1, rawVertex{kind: 0, extIdx: -1})
	cases["two-target variable"] = encodeRaw(3, rawNode(0, -1), rawNode(1, -1), rawVertex{kind: goheap.KindVariable, name: "x", extIdx: -1, public: 2, arcs: []rawArc{tentacle(0, 0), tentacle(1, 0)}})
	cases["repeated variable"] = encodeRaw(3, rawNode(0, -1),
		rawVertex{kind: goheap.KindVariable, name: "x", extIdx: -1, public: 1, arcs: []rawArc{tentacle(0, 0)}},
		rawVertex{kind: goheap.KindVariable, name: "x", extIdx: -1, public: 2, arcs: []rawArc{tentacle(0, 0)}})
	cases["oversized header"] = encodeRaw(1<<30, rawNode(0, -1))
	cases["vertices exceed buffer"] = []byte{1, 0xe8, 0x07, 0xe8, 0x07}

	for name, enc := range cases {
		_, err := libheap.NewHeapConfigurationFromEncoding(enc)
		require.ErrorIs(t, err, goheap.ErrBadEncoding, name)
	}
}

func TestFingerprint(t *testing.T) {
	a := mustHeap(t, `heap { nodes a, b, c : Node  a.next -> b  b.next -> c }`).HC
	b := mustHeap(t, `heap { nodes z, y, x : Node  y.next -> z  x.next -> y }`).HC
	c := mustHeap(t, `heap { nodes a, b, c : Node  a.next -> b  a.prev -> c }`).HC

	require.Equal(t, a.Fingerprint(), b.Fingerprint())
	require.NotEqual(t, a.Fingerprint(), c.Fingerprint())
	require.Equal(t, a.Fingerprint(), a.Clone().Fingerprint())
}

func TestHeapSet(t *testing.T) {
	set := libheap.NewHeapSet()

	require.True(t, set.TryAdd(chain(3)))
	require.False(t, set.TryAdd(chain(3)))
	require.True(t, set.TryAdd(chain(4)))
	require.True(t, set.TryAdd(mustHeap(t, `heap { nodes a, b, c : Node  a.next -> b  c.next -> b }`).HC))
	require.False(t, set.TryAdd(mustHeap(t, `heap { nodes q, p, r : Node  r.next -> p  q.next -> p }`).HC))

	require.Equal(t, 3, set.Len())
	require.Equal(t, 4, set.Items()[1].CountNodes())
}
