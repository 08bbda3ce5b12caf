package libheap

import (
	"github.com/2x3systems/goheap/goheap"
	"github.com/gogo/protobuf/proto"
	"github.com/pkg/errors"
)

const heapEncodingVersion = 1

/*
HeapEncoding is a varint stream (protobuf wire primitives, no message framing):

	version
	numPublicIDs
	numVertices
	per vertex:
		kind, name (string), rank, extIdx+1, publicID, numArcs
		per arc:
			to, numLabels
			per label: selector (string), tentacle+1

Public IDs are kept so that a decoded configuration addresses its elements exactly as the encoded one did.
*/
type HeapEncoding []byte

// AppendEncoding returns the encoding of hc.
func (hc *HeapConfiguration) AppendEncoding(dst []byte) HeapEncoding {
	hc.assertIdle()

	buf := proto.NewBuffer(dst)
	put := func(x int) {
		buf.EncodeVarint(uint64(x))
	}

	put(heapEncodingVersion)
	put(len(hc.privOf))
	put(len(hc.store.vtx))

	for _, V := range hc.store.vtx {
		put(int(V.label.Kind))
		buf.EncodeStringBytes(V.label.Name)
		put(int(V.label.Rank))
		put(int(V.extIdx + 1))
		put(int(V.public))
		put(len(V.out))
		for _, a := range V.out {
			put(int(a.to))
			put(len(a.labels))
			for _, L := range a.labels {
				buf.EncodeStringBytes(L.Selector)
				put(int(L.Tentacle + 1))
			}
		}
	}

	return buf.Bytes()
}

const (
	// minVertexBytes is the smallest encoding of one vertex: six single-byte varints.
	minVertexBytes = 6

	maxPublicIDs = 1 << 24
)

// NewHeapConfigurationFromEncoding decodes a HeapEncoding produced by AppendEncoding.
//
// The decoded configuration is checked against the invariants a Builder maintains;
// any violation yields ErrBadEncoding.
func NewHeapConfigurationFromEncoding(enc []byte) (*HeapConfiguration, error) {
	buf := proto.NewBuffer(enc)

	var err error
	get := func(max int) int {
		if err != nil {
			return 0
		}
		var x uint64
		x, err = buf.DecodeVarint()
		if err == nil && x > uint64(max) {
			err = errors.Wrapf(goheap.ErrBadEncoding, "value %d exceeds %d", x, max)
		}
		return int(x)
	}
	getString := func() string {
		if err != nil {
			return ""
		}
		var s string
		s, err = buf.DecodeStringBytes()
		return s
	}

	if version := get(1 << 16); err == nil && version != heapEncodingVersion {
		return nil, errors.Wrapf(goheap.ErrBadEncoding, "unsupported version %d", version)
	}
	numPublic := get(maxPublicIDs)
	numVtx := get(numPublic)
	if err == nil && numVtx > len(enc)/minVertexBytes {
		err = errors.Errorf("%d vertices cannot fit in %d bytes", numVtx, len(enc))
	}
	if err != nil {
		return nil, errors.Wrap(goheap.ErrBadEncoding, err.Error())
	}

	hc := &HeapConfiguration{
		privOf: make([]int32, numPublic),
	}
	for i := range hc.privOf {
		hc.privOf[i] = -1
	}
	hc.store.vtx = make([]vertex, numVtx)

	var externals []int32
	for v := 0; v < numVtx && err == nil; v++ {
		V := &hc.store.vtx[v]
		V.label.Kind = goheap.ElemKind(get(int(goheap.KindVariable)))
		V.label.Name = getString()
		V.label.Rank = int32(get(1 << 16))
		V.extIdx = int32(get(numVtx)) - 1
		V.public = int32(get(numPublic - 1))
		numArcs := get(numVtx)

		for j := 0; j < numArcs && err == nil; j++ {
			a := arc{to: int32(get(numVtx - 1))}
			numLabels := get(1 << 16)
			for k := 0; k < numLabels && err == nil; k++ {
				sel := getString()
				a.labels = append(a.labels, goheap.EdgeLabel{
					Selector: sel,
					Tentacle: int32(get(1<<16)) - 1,
				})
			}
			V.out = append(V.out, a)
			V.succ = append(V.succ, a.to)
		}
		if err != nil {
			break
		}

		if hc.privOf[V.public] >= 0 {
			err = errors.Errorf("public ID %d used twice", V.public)
			break
		}
		hc.privOf[V.public] = int32(v)
		if V.extIdx >= 0 {
			for len(externals) <= int(V.extIdx) {
				externals = append(externals, -1)
			}
			if externals[V.extIdx] >= 0 {
				err = errors.Errorf("external ordinal %d used twice", V.extIdx)
				break
			}
			externals[V.extIdx] = int32(v)
		}
	}
	if err != nil {
		return nil, errors.Wrap(goheap.ErrBadEncoding, err.Error())
	}

	for _, v := range externals {
		if v < 0 {
			return nil, errors.Wrap(goheap.ErrBadEncoding, "external ordinals are not contiguous")
		}
	}
	hc.externals = externals

	if err = hc.store.checkDecoded(); err != nil {
		return nil, errors.Wrap(goheap.ErrBadEncoding, err.Error())
	}

	for v := range hc.store.vtx {
		for _, to := range hc.store.vtx[v].succ {
			hc.store.vtx[to].pred = append(hc.store.vtx[to].pred, int32(v))
		}
	}

	return hc, nil
}

// checkDecoded verifies the shape rules the Builder otherwise guarantees.
func (st *heapStore) checkDecoded() error {
	varNames := make(map[string]struct{})

	for v := range st.vtx {
		V := &st.vtx[v]

		rank := V.label.Rank
		switch V.label.Kind {
		case goheap.KindNode:
			if rank != 0 {
				return errors.Errorf("node %d has rank %d", v, rank)
			}
		case goheap.KindVariable:
			if rank != 0 {
				return errors.Errorf("variable %d has rank %d", v, rank)
			}
			if _, dupe := varNames[V.label.Name]; dupe {
				return errors.Errorf("variable %q appears twice", V.label.Name)
			}
			varNames[V.label.Name] = struct{}{}
			rank = 1
		case goheap.KindNonterminal:
		default:
			return errors.Errorf("vertex %d has unknown kind %d", v, V.label.Kind)
		}
		if V.extIdx >= 0 && V.label.Kind != goheap.KindNode {
			return errors.Errorf("%v %d is external", V.label.Kind, v)
		}

		var (
			tentacles = make([]bool, rank)
			selectors = make(map[string]struct{})
		)
		for i, a := range V.out {
			for _, prev := range V.succ[:i] {
				if prev == a.to {
					return errors.Errorf("vertex %d has two arcs to %d", v, a.to)
				}
			}
			if len(a.labels) == 0 {
				return errors.Errorf("arc %d -> %d has no labels", v, a.to)
			}
			if st.vtx[a.to].label.Kind != goheap.KindNode {
				return errors.Errorf("arc %d -> %d does not end at a node", v, a.to)
			}
			for _, L := range a.labels {
				if L.IsSelector() {
					if V.label.Kind != goheap.KindNode || L.Selector == "" {
						return errors.Errorf("bad selector %q on %v %d", L.Selector, V.label.Kind, v)
					}
					if _, dupe := selectors[L.Selector]; dupe {
						return errors.Errorf("node %d has selector %q twice", v, L.Selector)
					}
					selectors[L.Selector] = struct{}{}
					continue
				}
				if L.Selector != "" || L.Tentacle >= rank || tentacles[L.Tentacle] {
					return errors.Errorf("bad tentacle %d on %v %d of rank %d", L.Tentacle, V.label.Kind, v, rank)
				}
				tentacles[L.Tentacle] = true
			}
		}
		for i, seen := range tentacles {
			if !seen {
				return errors.Errorf("%v %d is missing tentacle %d", V.label.Kind, v, i)
			}
		}
	}
	return nil
}
