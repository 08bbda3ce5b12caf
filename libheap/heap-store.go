package libheap

import (
	"github.com/2x3systems/goheap/goheap"
)

// arc is a directed edge of the store digraph carrying one or more labels.
type arc struct {
	to     int32
	labels []goheap.EdgeLabel
}

// vertex is one element slot of a heapStore: a node, a nonterminal hyperedge or a variable edge.
type vertex struct {
	label   goheap.VertexLabel
	public  int32 // public ID owning this slot
	extIdx  int32 // external ordinal, or -1
	removed bool
	out     []arc   // outgoing arcs, one per distinct successor
	succ    []int32 // out[i].to, kept in step with out
	pred    []int32 // distinct predecessors
}

// heapStore is an arena digraph: vertices live in a dense slice addressed by private ID.
//
// Removal only marks a slot; pack() swaps removed slots to the tail and truncates.
type heapStore struct {
	vtx          []vertex
	removedCount int32
}

func (st *heapStore) addVertex(label goheap.VertexLabel, public int32) int32 {
	v := int32(len(st.vtx))
	st.vtx = append(st.vtx, vertex{
		label:  label,
		public: public,
		extIdx: -1,
	})
	return v
}

func (st *heapStore) arcIndex(from, to int32) int {
	for i, succ := range st.vtx[from].succ {
		if succ == to {
			return i
		}
	}
	return -1
}

func (st *heapStore) edgeLabels(from, to int32) []goheap.EdgeLabel {
	if i := st.arcIndex(from, to); i >= 0 {
		return st.vtx[from].out[i].labels
	}
	return nil
}

// findLabel returns the successor reached from v via an arc carrying the given label.
func (st *heapStore) findLabel(v int32, L goheap.EdgeLabel) (int32, bool) {
	for _, a := range st.vtx[v].out {
		for _, Li := range a.labels {
			if Li == L {
				return a.to, true
			}
		}
	}
	return -1, false
}

func (st *heapStore) addArcLabel(from, to int32, L goheap.EdgeLabel) {
	Vf := &st.vtx[from]
	if i := st.arcIndex(from, to); i >= 0 {
		Vf.out[i].labels = append(Vf.out[i].labels, L)
		return
	}

	Vf.out = append(Vf.out, arc{
		to:     to,
		labels: []goheap.EdgeLabel{L},
	})
	Vf.succ = append(Vf.succ, to)

	Vt := &st.vtx[to]
	Vt.pred = append(Vt.pred, from)
}

// removeArcLabel removes one label from the arc from -> to, dropping the arc once it carries no labels.
func (st *heapStore) removeArcLabel(from, to int32, L goheap.EdgeLabel) bool {
	i := st.arcIndex(from, to)
	if i < 0 {
		return false
	}

	Vf := &st.vtx[from]
	labels := Vf.out[i].labels
	for j, Lj := range labels {
		if Lj == L {
			labels = append(labels[:j], labels[j+1:]...)
			Vf.out[i].labels = labels
			if len(labels) == 0 {
				st.removeArc(from, i)
			}
			return true
		}
	}
	return false
}

func (st *heapStore) removeArc(from int32, i int) {
	Vf := &st.vtx[from]
	to := Vf.succ[i]
	Vf.out = append(Vf.out[:i], Vf.out[i+1:]...)
	Vf.succ = append(Vf.succ[:i], Vf.succ[i+1:]...)

	Vt := &st.vtx[to]
	Vt.pred = removeID(Vt.pred, from)
}

// detach removes every arc incident to v.
func (st *heapStore) detach(v int32) {
	V := &st.vtx[v]
	for len(V.out) > 0 {
		st.removeArc(v, len(V.out)-1)
	}
	for len(V.pred) > 0 {
		from := V.pred[len(V.pred)-1]
		st.removeArc(from, st.arcIndex(from, v))
	}
}

func (st *heapStore) removeVertex(v int32) {
	st.detach(v)
	st.vtx[v].removed = true
	st.vtx[v].extIdx = -1
	st.removedCount++
}

// pack swaps every removed slot to the tail and truncates, returning the old-to-new private ID map
// (removed slots map to -1).  Returns nil if nothing was removed.
func (st *heapStore) pack() []int32 {
	if st.removedCount == 0 {
		return nil
	}

	N := int32(len(st.vtx))
	remap := make([]int32, N)
	for i := range remap {
		if st.vtx[i].removed {
			remap[i] = -1
		} else {
			remap[i] = int32(i)
		}
	}

	lo, hi := int32(0), N-1
	for {
		for lo <= hi && !st.vtx[lo].removed {
			lo++
		}
		for hi >= lo && st.vtx[hi].removed {
			hi--
		}
		if lo >= hi {
			break
		}
		st.vtx[lo], st.vtx[hi] = st.vtx[hi], st.vtx[lo]
		remap[hi] = lo
		lo++
		hi--
	}

	live := N - st.removedCount
	for i := live; i < N; i++ {
		st.vtx[i] = vertex{}
	}
	st.vtx = st.vtx[:live]
	st.removedCount = 0

	for i := range st.vtx {
		V := &st.vtx[i]
		for j := range V.out {
			V.out[j].to = remap[V.out[j].to]
			V.succ[j] = V.out[j].to
		}
		for j, from := range V.pred {
			V.pred[j] = remap[from]
		}
	}

	return remap
}

func (st *heapStore) clone() heapStore {
	dup := heapStore{
		vtx:          make([]vertex, len(st.vtx)),
		removedCount: st.removedCount,
	}
	for i, V := range st.vtx {
		out := make([]arc, len(V.out))
		for j, a := range V.out {
			out[j] = arc{
				to:     a.to,
				labels: append([]goheap.EdgeLabel(nil), a.labels...),
			}
		}
		V.out = out
		V.succ = append([]int32(nil), V.succ...)
		V.pred = append([]int32(nil), V.pred...)
		dup.vtx[i] = V
	}
	return dup
}

func removeID(ids []int32, id int32) []int32 {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}

// storeGraph is the read-only goheap.Graph view over a packed heapStore.
type storeGraph struct {
	st *heapStore
}

func (G storeGraph) Size() int32 {
	return int32(len(G.st.vtx))
}

func (G storeGraph) VertexLabel(v int32) goheap.VertexLabel {
	return G.st.vtx[v].label
}

func (G storeGraph) SuccessorsOf(v int32) []int32 {
	return G.st.vtx[v].succ
}

func (G storeGraph) PredecessorsOf(v int32) []int32 {
	return G.st.vtx[v].pred
}

func (G storeGraph) EdgeLabels(from, to int32) []goheap.EdgeLabel {
	return G.st.edgeLabels(from, to)
}

func (G storeGraph) ExternalIndex(v int32) int32 {
	return G.st.vtx[v].extIdx
}
