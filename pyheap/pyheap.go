// Package pyheap exposes heap configurations, grammars and catalogs to gpython scripts as the
// "_pyheap" module.
package pyheap

import (
	"errors"
	"os"
	"strings"

	"github.com/2x3systems/goheap/goheap"
	"github.com/2x3systems/goheap/libheap"
	"github.com/2x3systems/goheap/libheap/catalog"
	"github.com/2x3systems/goheap/libheap/grammar"
	"github.com/go-python/gpython/py"
	"github.com/plan-systems/klog"
)

var (
	LIB_VERSION = "v1.2024.1"
)

var (
	pyHeapType      = py.NewType("Heap", "a heap configuration: nodes, selectors, variables and nonterminal edges")
	pyGrammarType   = py.NewType("Grammar", "a hyperedge replacement grammar")
	pyCatalogType   = py.NewType("Catalog", "a persistent catalog of canonical heap configurations")
	pyWorkspaceType = py.NewType("Workspace", "collects active session resources and catalogs")
)

const (
	READ_ONLY = 0x01

	kWorkspaceAttr = "_Workspace"
)

func boolObj(b bool) py.Object {
	if b {
		return py.True
	}
	return py.False
}

func wrapHeaps(heaps []*libheap.HeapConfiguration) py.Object {
	tuple := make(py.Tuple, len(heaps))
	for i, hc := range heaps {
		tuple[i] = pyHeap{hc}
	}
	return tuple
}

func getHeap(obj py.Object) (pyHeap, error) {
	H, ok := obj.(pyHeap)
	if !ok {
		return H, py.ExceptionNewf(py.TypeError, "expected Heap object (got %v)", obj.Type().Name)
	}
	return H, nil
}

/////////////////////////////////
// Heap

type pyHeap struct {
	*libheap.HeapConfiguration
}

func (H pyHeap) Type() *py.Type {
	return pyHeapType
}

func (H pyHeap) M__str__() (py.Object, error) {
	writer := strings.Builder{}
	H.WriteAsString(&writer, goheap.DefaultPrintOpts)
	return py.String(writer.String()), nil
}

func (H pyHeap) M__repr__() (py.Object, error) {
	return py.String(H.String()), nil
}

func py_ParseHeap(module py.Object, args py.Tuple) (py.Object, error) {
	var src string
	if err := py.LoadTuple(args, []interface{}{&src}); err != nil {
		return nil, err
	}
	def, err := libheap.ParseHeap(src)
	if err != nil {
		return nil, py.ExceptionNewf(py.ValueError, "%v", err)
	}
	return pyHeap{def.HC}, nil
}

func py_Heap_NumNodes(self py.Object, args py.Tuple) (py.Object, error) {
	H := self.(pyHeap)
	return py.Int(H.CountNodes()), nil
}

func py_Heap_NumEdges(self py.Object, args py.Tuple) (py.Object, error) {
	H := self.(pyHeap)
	return py.Int(H.CountNonterminalEdges()), nil
}

func py_Heap_Clone(self py.Object, args py.Tuple) (py.Object, error) {
	H := self.(pyHeap)
	return pyHeap{H.Clone()}, nil
}

func py_Heap_Equals(self py.Object, args py.Tuple) (py.Object, error) {
	H := self.(pyHeap)
	if len(args) != 1 {
		return nil, py.ExceptionNewf(py.TypeError, "Equals() takes exactly one Heap")
	}
	other, err := getHeap(args[0])
	if err != nil {
		return nil, err
	}
	return boolObj(H.Equals(other.HeapConfiguration)), nil
}

func py_Heap_Fingerprint(self py.Object, args py.Tuple) (py.Object, error) {
	H := self.(pyHeap)
	return py.Int(int64(H.Fingerprint())), nil
}

/////////////////////////////////
// Grammar

type pyGrammar struct {
	*grammar.Grammar
}

func (G pyGrammar) Type() *py.Type {
	return pyGrammarType
}

func py_ParseGrammar(module py.Object, args py.Tuple) (py.Object, error) {
	var src string
	if err := py.LoadTuple(args, []interface{}{&src}); err != nil {
		return nil, err
	}
	G, err := grammar.ParseGrammar(src)
	if err != nil {
		return nil, py.ExceptionNewf(py.ValueError, "%v", err)
	}
	return pyGrammar{G}, nil
}

func py_Grammar_NumRules(self py.Object, args py.Tuple) (py.Object, error) {
	G := self.(pyGrammar)
	return py.Int(G.NumRules()), nil
}

// Canonicalize(heap) returns a tuple of canonical heaps, using the workspace options.
func py_Grammar_Canonicalize(self py.Object, args py.Tuple) (py.Object, error) {
	G := self.(pyGrammar)
	if len(args) != 1 {
		return nil, py.ExceptionNewf(py.TypeError, "Canonicalize() takes exactly one Heap")
	}
	H, err := getHeap(args[0])
	if err != nil {
		return nil, err
	}
	canon := grammar.NewCanonicalizer(G.Grammar, gWorkspace.Opts)
	return wrapHeaps(canon.Canonicalize(H.HeapConfiguration)), nil
}

// Materialize(heap, var, selector) returns a tuple of heaps in which var's node has selector.
func py_Grammar_Materialize(self py.Object, args py.Tuple) (py.Object, error) {
	G := self.(pyGrammar)
	if len(args) != 3 {
		return nil, py.ExceptionNewf(py.TypeError, "Materialize() takes a Heap, a variable and a selector")
	}
	var req grammar.VarSelector
	if err := py.LoadTuple(args[1:], []interface{}{&req.Var, &req.Selector}); err != nil {
		return nil, err
	}
	H, err := getHeap(args[0])
	if err != nil {
		return nil, err
	}
	heaps, err := grammar.NewMaterializer(G.Grammar).Materialize(H.HeapConfiguration, req)
	if err != nil {
		return nil, py.ExceptionNewf(py.RuntimeError, "%v", err)
	}
	return wrapHeaps(heaps), nil
}

/////////////////////////////////
// Workspace

type Workspace struct {
	Opts     goheap.Opts
	catalogs []*catalog.Catalog
}

var gWorkspace = &Workspace{
	Opts: goheap.DefaultOpts(),
}

func (ws *Workspace) Close() {
	for _, cat := range ws.catalogs {
		if err := cat.Close(); err != nil {
			klog.Warningf("workspace: closing catalog: %v", err)
		}
	}
	ws.catalogs = nil
}

func (ws *Workspace) Type() *py.Type {
	return pyWorkspaceType
}

func py_GetWorkspace(module py.Object, args py.Tuple) (py.Object, error) {
	wsObj, _ := py.GetAttrString(module, kWorkspaceAttr)
	if wsObj == nil {
		wsObj = gWorkspace
		py.SetAttrString(module, kWorkspaceAttr, wsObj)
	}
	return wsObj, nil
}

func py_Workspace_LoadOpts(self py.Object, args py.Tuple) (py.Object, error) {
	ws := self.(*Workspace)

	var pathname string
	if err := py.LoadTuple(args, []interface{}{&pathname}); err != nil {
		return nil, err
	}
	opts, err := goheap.LoadOpts(pathname)
	if err != nil {
		return nil, py.ExceptionNewf(py.ValueError, "%v", err)
	}
	ws.Opts = opts
	return py.None, nil
}

func py_Workspace_SetConfluent(self py.Object, args py.Tuple) (py.Object, error) {
	ws := self.(*Workspace)
	if err := py.LoadTuple(args, []interface{}{&ws.Opts.Confluent}); err != nil {
		return nil, err
	}
	return py.None, nil
}

func py_Workspace_SetMinDistance(self py.Object, args py.Tuple) (py.Object, error) {
	ws := self.(*Workspace)
	var depth int32
	if err := py.LoadTuple(args, []interface{}{&depth}); err != nil {
		return nil, err
	}
	if depth < 0 {
		return nil, py.ExceptionNewf(py.ValueError, "min abstraction distance must be >= 0")
	}
	ws.Opts.MinAbstractionDistance = depth
	return py.None, nil
}

func py_Workspace_CatalogExists(self py.Object, args py.Tuple) (py.Object, error) {
	_ = self.(*Workspace)

	var pathname string
	err := py.LoadTuple(args, []interface{}{&pathname})
	if err != nil {
		return nil, err
	}
	_, err = os.Stat(pathname)
	if os.IsNotExist(err) {
		return py.False, nil
	}
	return py.True, nil
}

func py_Workspace_OpenCatalog(self py.Object, args py.Tuple) (py.Object, error) {
	ws := self.(*Workspace)

	var pathname string
	var flags int32
	err := py.LoadTuple(args, []interface{}{&pathname, &flags})
	if err != nil {
		return nil, err
	}

	cat, err := catalog.OpenCatalog(catalog.CatalogOpts{
		ReadOnly:   (flags & READ_ONLY) != 0,
		DbPathName: pathname,
	})
	if err != nil {
		return nil, py.ExceptionNewf(py.RuntimeError, "%v", err)
	}
	ws.catalogs = append(ws.catalogs, cat)

	return pyCatalog{cat}, nil
}

/////////////////////////////////
// Catalog

type pyCatalog struct {
	*catalog.Catalog
}

func (cat pyCatalog) Type() *py.Type {
	return pyCatalogType
}

func py_Catalog_Close(self py.Object, args py.Tuple) (py.Object, error) {
	cat := self.(pyCatalog)
	if cat.Catalog != nil {
		if err := cat.Close(); err != nil {
			return nil, py.ExceptionNewf(py.RuntimeError, "%v", err)
		}
	}
	return py.None, nil
}

func py_Catalog_TryAdd(self py.Object, args py.Tuple) (py.Object, error) {
	cat := self.(pyCatalog)
	if cat.IsReadOnly() {
		return nil, py.ExceptionNewf(py.PermissionError, "%v", errors.New("catalog is in read-only mode"))
	}
	if len(args) != 1 {
		return nil, py.ExceptionNewf(py.TypeError, "TryAdd() takes exactly one Heap")
	}
	H, err := getHeap(args[0])
	if err != nil {
		return nil, err
	}
	added, err := cat.TryAdd(H.HeapConfiguration)
	if err != nil {
		return nil, py.ExceptionNewf(py.RuntimeError, "%v", err)
	}
	return boolObj(added), nil
}

func py_Catalog_NumHeaps(self py.Object, args py.Tuple) (py.Object, error) {
	cat := self.(pyCatalog)
	return py.Int(cat.NumHeaps()), nil
}

// Select(min_nodes=0, max_nodes=0) returns a tuple of stored heaps.
func py_Catalog_Select(self py.Object, args py.Tuple) (py.Object, error) {
	cat := self.(pyCatalog)

	var minNodes, maxNodes int32
	if len(args) > 0 {
		if err := py.LoadTuple(args, []interface{}{&minNodes, &maxNodes}); err != nil {
			return nil, err
		}
	}

	var heaps []*libheap.HeapConfiguration
	err := cat.Select(catalog.HeapSelector{
		MinNodes: int(minNodes),
		MaxNodes: int(maxNodes),
	}, func(hc *libheap.HeapConfiguration) bool {
		heaps = append(heaps, hc)
		return true
	})
	if err != nil {
		return nil, py.ExceptionNewf(py.RuntimeError, "%v", err)
	}
	return wrapHeaps(heaps), nil
}

func init() {

	/////////////////////////////////
	// Heap
	{
		pyHeapType.Dict["NumNodes"] = py.MustNewMethod("NumNodes", py_Heap_NumNodes, 0, "")
		pyHeapType.Dict["NumEdges"] = py.MustNewMethod("NumEdges", py_Heap_NumEdges, 0, "number of nonterminal edges")
		pyHeapType.Dict["Clone"] = py.MustNewMethod("Clone", py_Heap_Clone, 0, "")
		pyHeapType.Dict["Equals"] = py.MustNewMethod("Equals", py_Heap_Equals, 0, "reports if two heaps are isomorphic")
		pyHeapType.Dict["Fingerprint"] = py.MustNewMethod("Fingerprint", py_Heap_Fingerprint, 0, "")
	}

	/////////////////////////////////
	// Grammar
	{
		pyGrammarType.Dict["NumRules"] = py.MustNewMethod("NumRules", py_Grammar_NumRules, 0, "")
		pyGrammarType.Dict["Canonicalize"] = py.MustNewMethod("Canonicalize", py_Grammar_Canonicalize, 0, "folds a heap until no rule embeds")
		pyGrammarType.Dict["Materialize"] = py.MustNewMethod("Materialize", py_Grammar_Materialize, 0, "unfolds edges until a variable's node has a selector")
	}

	/////////////////////////////////
	// Catalog
	{
		pyCatalogType.Dict["TryAdd"] = py.MustNewMethod("TryAdd", py_Catalog_TryAdd, 0, "")
		pyCatalogType.Dict["NumHeaps"] = py.MustNewMethod("NumHeaps", py_Catalog_NumHeaps, 0, "")
		pyCatalogType.Dict["Select"] = py.MustNewMethod("Select", py_Catalog_Select, 0, "")
		pyCatalogType.Dict["Close"] = py.MustNewMethod("Close", py_Catalog_Close, 0, "")
	}

	/////////////////////////////////
	// Workspace
	{
		pyWorkspaceType.Dict["LoadOpts"] = py.MustNewMethod("LoadOpts", py_Workspace_LoadOpts, 0, "")
		pyWorkspaceType.Dict["SetConfluent"] = py.MustNewMethod("SetConfluent", py_Workspace_SetConfluent, 0, "")
		pyWorkspaceType.Dict["SetMinDistance"] = py.MustNewMethod("SetMinDistance", py_Workspace_SetMinDistance, 0, "")
		pyWorkspaceType.Dict["OpenCatalog"] = py.MustNewMethod("OpenCatalog", py_Workspace_OpenCatalog, 0, "")
		pyWorkspaceType.Dict["CatalogExists"] = py.MustNewMethod("CatalogExists", py_Workspace_CatalogExists, 0, "")
	}

	{
		methods := []*py.Method{
			py.MustNewMethod("ParseHeap", py_ParseHeap, 0, ""),
			py.MustNewMethod("ParseGrammar", py_ParseGrammar, 0, ""),
			py.MustNewMethod("GetWorkspace", py_GetWorkspace, 0, ""),
		}

		globals := py.StringDict{
			"LIB_VERSION": py.String(LIB_VERSION),
			"PY_VERSION":  py.String("v3.4.0"),
			"READ_ONLY":   py.Int(READ_ONLY),
		}

		py.RegisterModule(&py.ModuleImpl{
			Info: py.ModuleInfo{
				Name: "_pyheap",
				Doc:  "heap abstraction gpython module",
			},
			Methods: methods,
			Globals: globals,
			OnContextClosed: func(m *py.Module) {
				gWorkspace.Close()
			},
		})
	}
}
