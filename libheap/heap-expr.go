package libheap

import (
	"fmt"
	"io"
	"strings"

	"github.com/2x3systems/goheap/goheap"
	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
	"github.com/pkg/errors"
)

/*
HeapFile is the text form of heap configurations and grammar rules:

	nonterminal L/2

	rule L {
		nodes a, b, c : Node
		ext a, c
		a.next -> b
		L(b, c)
	}

	heap {
		nodes n0, n1 : Node
		n0.next -> n1
		x -> n0
	}

A rule's rank is its number of external nodes (in "ext" order), which must agree with any
"nonterminal" declaration of the same label.  Inside a heap, nonterminal ranks come from declarations,
or else from the number of tentacles given.
*/
type HeapFile struct {
	Decls []*Decl `@@*`
}

type Decl struct {
	Nonterminal *NonterminalDecl `  @@`
	Rule        *RuleDecl        `| @@`
	Heap        *HeapDecl        `| @@`
}

type NonterminalDecl struct {
	Label string `"nonterminal" @Ident`
	Rank  int32  `"/" @Int`
}

type RuleDecl struct {
	Label string  `"rule" @Ident`
	Body  []*Stmt `"{" @@* "}"`
}

type HeapDecl struct {
	Body []*Stmt `"heap" "{" @@* "}"`
}

type Stmt struct {
	Nodes *NodesStmt `  @@`
	Ext   *ExtStmt   `| @@`
	Elem  *ElemStmt  `| @@`
}

type NodesStmt struct {
	Names []string `"nodes" @Ident ("," @Ident)*`
	Type  string   `":" @Ident`
}

type ExtStmt struct {
	Names []string `"ext" @Ident ("," @Ident)*`
}

// ElemStmt is one of: a selector "a.next -> b", a variable "x -> a", or a hyperedge "L(a, b)".
// Variable names may also be integers, such as the constant "0".
type ElemStmt struct {
	Name      string   `@(Ident | Int)`
	Selector  string   `( "." @Ident`
	SelTarget string   `  "->" @Ident`
	VarTarget string   `| "->" @Ident`
	Tentacles []string `| "(" (@Ident ("," @Ident)*)? ")" )`
}

var heapLexer = lexer.MustSimple([]lexer.SimpleRule{
	{"Comment", `#[^\n]*`},
	{"Arrow", `->`},
	{"Ident", `[A-Za-z_][A-Za-z0-9_]*`},
	{"Int", `[0-9]+`},
	{"Punct", `[{}():.,/]`},
	{"Whitespace", `[ \t\r\n]+`},
})

var parseHeapFile = participle.MustBuild[HeapFile](
	participle.Lexer(heapLexer),
	participle.Elide("Comment", "Whitespace"),
)

// HeapDef is a heap configuration read from text, with its node names.
type HeapDef struct {
	HC    *HeapConfiguration
	Nodes map[string]int32 // node name -> public ID
}

// RuleDef is a grammar rule read from text.
type RuleDef struct {
	Nonterminal goheap.Nonterminal
	HeapDef
}

// Defs holds everything declared in a HeapFile, in declaration order.
type Defs struct {
	Nonterminals map[string]goheap.Nonterminal
	Rules        []RuleDef
	Heaps        []HeapDef
}

// ParseDefs parses a HeapFile and builds every rule and heap it declares.
func ParseDefs(src string) (*Defs, error) {
	file, err := parseHeapFile.ParseString("", src)
	if err != nil {
		return nil, errors.Wrap(goheap.ErrBadExpr, err.Error())
	}

	defs := &Defs{
		Nonterminals: make(map[string]goheap.Nonterminal),
	}

	for _, decl := range file.Decls {
		if nt := decl.Nonterminal; nt != nil {
			if prev, exists := defs.Nonterminals[nt.Label]; exists && prev.Rank != nt.Rank {
				return nil, errors.Wrapf(goheap.ErrRankMismatch, "nonterminal %s declared with ranks %d and %d", nt.Label, prev.Rank, nt.Rank)
			}
			defs.Nonterminals[nt.Label] = goheap.Nonterminal{Label: nt.Label, Rank: nt.Rank}
		}
	}

	for _, decl := range file.Decls {
		switch {
		case decl.Rule != nil:
			def, err := defs.buildHeap(decl.Rule.Body)
			if err != nil {
				return nil, errors.Wrapf(err, "rule %s", decl.Rule.Label)
			}
			nt := goheap.Nonterminal{Label: decl.Rule.Label, Rank: int32(def.HC.CountExternalNodes())}
			if declared, exists := defs.Nonterminals[nt.Label]; exists && declared.Rank != nt.Rank {
				return nil, errors.Wrapf(goheap.ErrRankMismatch, "rule %s has %d external nodes but is declared with rank %d", nt.Label, nt.Rank, declared.Rank)
			}
			defs.Nonterminals[nt.Label] = nt
			defs.Rules = append(defs.Rules, RuleDef{nt, def})

		case decl.Heap != nil:
			def, err := defs.buildHeap(decl.Heap.Body)
			if err != nil {
				return nil, errors.Wrapf(err, "heap #%d", len(defs.Heaps)+1)
			}
			defs.Heaps = append(defs.Heaps, def)
		}
	}

	return defs, nil
}

// ParseHeap parses src, which must declare exactly one heap, and returns that heap.
func ParseHeap(src string) (HeapDef, error) {
	defs, err := ParseDefs(src)
	if err != nil {
		return HeapDef{}, err
	}
	if len(defs.Heaps) != 1 {
		return HeapDef{}, errors.Wrapf(goheap.ErrBadExpr, "expected one heap, found %d", len(defs.Heaps))
	}
	return defs.Heaps[0], nil
}

func (defs *Defs) buildHeap(body []*Stmt) (def HeapDef, err error) {
	def = HeapDef{
		HC:    NewHeapConfiguration(),
		Nodes: make(map[string]int32),
	}

	b := def.HC.Builder()
	node := func(name string) int32 {
		id, exists := def.Nodes[name]
		if !exists && err == nil {
			err = errors.Wrapf(goheap.ErrUndeclaredNode, "%q", name)
		}
		return id
	}

	// Declarations may follow their use, so nodes go first.
	for _, stmt := range body {
		if stmt.Nodes == nil {
			continue
		}
		ids := b.AddNodes(goheap.NodeType(stmt.Nodes.Type), len(stmt.Nodes.Names))
		for i, name := range stmt.Nodes.Names {
			if _, dupe := def.Nodes[name]; dupe {
				return def, errors.Wrapf(goheap.ErrBadExpr, "node %q declared twice", name)
			}
			def.Nodes[name] = ids[i]
		}
	}

	// Builder preconditions panic; report them as parse errors instead.
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = e
			} else {
				panic(r)
			}
		}
	}()

	for _, stmt := range body {
		switch {
		case stmt.Ext != nil:
			for _, name := range stmt.Ext.Names {
				if id := node(name); err == nil {
					b.SetExternal(id)
				}
			}

		case stmt.Elem != nil:
			elem := stmt.Elem
			switch {
			case elem.Selector != "":
				from, to := node(elem.Name), node(elem.SelTarget)
				if err == nil {
					b.AddSelector(from, elem.Selector, to)
				}
			case elem.VarTarget != "":
				if id := node(elem.VarTarget); err == nil {
					b.AddVariableEdge(elem.Name, id)
				}
			default:
				if c := elem.Name[0]; c >= '0' && c <= '9' {
					err = errors.Wrapf(goheap.ErrBadExpr, "%q is not a nonterminal label", elem.Name)
					break
				}
				tentacles := make([]int32, len(elem.Tentacles))
				for i, name := range elem.Tentacles {
					tentacles[i] = node(name)
				}
				nt, declared := defs.Nonterminals[elem.Name]
				if !declared {
					nt = goheap.Nonterminal{Label: elem.Name, Rank: int32(len(tentacles))}
				}
				if err == nil {
					b.AddNonterminalEdge(nt, tentacles...)
				}
			}
		}
		if err != nil {
			return def, err
		}
	}

	b.Build()
	return def, err
}

// WriteAsString writes hc as a HeapFile heap declaration; nodes are named n<publicID>.
func (hc *HeapConfiguration) WriteAsString(out io.Writer, opts goheap.PrintOpts) {
	hc.assertIdle()

	sep := "  "
	if opts.Multiline {
		sep = "\n    "
	}

	var buf strings.Builder
	if opts.Label != "" {
		buf.WriteString("# ")
		buf.WriteString(opts.Label)
		buf.WriteByte('\n')
	}
	buf.WriteString("heap {")

	// nodes, grouped by type in order of first appearance
	{
		var types []goheap.NodeType
		byType := make(map[goheap.NodeType][]string)
		for _, n := range hc.Nodes() {
			typ := hc.NodeTypeOf(n)
			if _, seen := byType[typ]; !seen {
				types = append(types, typ)
			}
			byType[typ] = append(byType[typ], nodeName(n))
		}
		for _, typ := range types {
			fmt.Fprintf(&buf, "%snodes %s : %s", sep, strings.Join(byType[typ], ", "), typ)
		}
	}

	if hc.CountExternalNodes() > 0 {
		names := make([]string, 0, hc.CountExternalNodes())
		for _, n := range hc.ExternalNodes() {
			names = append(names, nodeName(n))
		}
		fmt.Fprintf(&buf, "%sext %s", sep, strings.Join(names, ", "))
	}

	for _, n := range hc.Nodes() {
		for _, sel := range hc.SelectorLabelsOf(n) {
			to, _ := hc.SelectorTargetOf(n, sel)
			fmt.Fprintf(&buf, "%s%s.%s -> %s", sep, nodeName(n), sel, nodeName(to))
		}
	}

	for _, e := range hc.NonterminalEdges() {
		tentacles := hc.AttachedNodesOf(e)
		names := make([]string, len(tentacles))
		for i, t := range tentacles {
			names[i] = nodeName(t)
		}
		fmt.Fprintf(&buf, "%s%s(%s)", sep, hc.LabelOf(e).Label, strings.Join(names, ", "))
		if opts.PublicIDs {
			fmt.Fprintf(&buf, "  # %d", e)
		}
	}

	for _, v := range hc.VariableEdges() {
		fmt.Fprintf(&buf, "%s%s -> %s", sep, hc.NameOf(v), nodeName(hc.TargetOf(v)))
	}

	if opts.Multiline {
		buf.WriteString("\n}\n")
	} else {
		buf.WriteString("  }")
	}
	out.Write([]byte(buf.String()))
}

// String returns hc on a single line.
func (hc *HeapConfiguration) String() string {
	var buf strings.Builder
	hc.WriteAsString(&buf, goheap.PrintOpts{})
	return buf.String()
}

func nodeName(id int32) string {
	return fmt.Sprintf("n%d", id)
}
