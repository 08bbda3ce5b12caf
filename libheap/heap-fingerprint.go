package libheap

import (
	"encoding/binary"
	"sort"

	"github.com/cespare/xxhash/v2"
)

// fingerprintRounds is the number of neighborhood refinement rounds folded into a Fingerprint.
const fingerprintRounds = 3

// Fingerprint returns an isomorphism-invariant hash of hc: isomorphic configurations always share a
// fingerprint, while distinct fingerprints prove two configurations differ.
//
// Each vertex starts with a hash of its label and external ordinal; each round rehashes a vertex together
// with the (label, color) pairs of its arcs, combined order-independently.
func (hc *HeapConfiguration) Fingerprint() uint64 {
	hc.assertIdle()

	st := &hc.store
	N := len(st.vtx)
	colors := make([]uint64, N)
	next := make([]uint64, N)

	var scrap [32]byte
	digest := xxhash.New()

	for v, V := range st.vtx {
		digest.Reset()
		digest.Write([]byte{byte(V.label.Kind)})
		digest.WriteString(V.label.Name)
		binary.LittleEndian.PutUint32(scrap[0:], uint32(V.label.Rank))
		binary.LittleEndian.PutUint32(scrap[4:], uint32(V.extIdx))
		digest.Write(scrap[:8])
		colors[v] = digest.Sum64()
	}

	arcHash := func(a *arc, color uint64, dir byte) uint64 {
		sum := uint64(0)
		for _, L := range a.labels {
			digest.Reset()
			digest.Write([]byte{dir})
			digest.WriteString(L.Selector)
			binary.LittleEndian.PutUint32(scrap[0:], uint32(L.Tentacle))
			binary.LittleEndian.PutUint64(scrap[4:], color)
			digest.Write(scrap[:12])
			sum += digest.Sum64()
		}
		return sum
	}

	for round := 0; round < fingerprintRounds; round++ {
		for v := range st.vtx {
			V := &st.vtx[v]
			sum := uint64(0)
			for i := range V.out {
				sum += arcHash(&V.out[i], colors[V.out[i].to], '>')
			}
			for _, from := range V.pred {
				Vf := &st.vtx[from]
				for i := range Vf.out {
					if Vf.out[i].to == int32(v) {
						sum += arcHash(&Vf.out[i], colors[from], '<')
					}
				}
			}
			binary.LittleEndian.PutUint64(scrap[0:], colors[v])
			binary.LittleEndian.PutUint64(scrap[8:], sum)
			next[v] = xxhash.Sum64(scrap[:16])
		}
		colors, next = next, colors
	}

	sort.Slice(colors, func(i, j int) bool { return colors[i] < colors[j] })

	digest.Reset()
	binary.LittleEndian.PutUint64(scrap[0:], uint64(N))
	digest.Write(scrap[:8])
	for _, c := range colors {
		binary.LittleEndian.PutUint64(scrap[0:], c)
		digest.Write(scrap[:8])
	}
	return digest.Sum64()
}
