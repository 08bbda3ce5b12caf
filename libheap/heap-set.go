package libheap

import (
	"github.com/emirpasic/gods/trees/redblacktree"
	"github.com/emirpasic/gods/utils"
)

// HeapSet collects heap configurations up to isomorphism.
//
// Configurations are bucketed by fingerprint; the isomorphism check only runs within a bucket.
type HeapSet struct {
	buckets *redblacktree.Tree // fingerprint (uint64) -> []*HeapConfiguration
	items   []*HeapConfiguration
}

func NewHeapSet() *HeapSet {
	return &HeapSet{
		buckets: redblacktree.NewWith(utils.UInt64Comparator),
	}
}

// TryAdd adds hc if no isomorphic configuration is already present.
//
// Returns true if hc was added.  The set keeps a reference to hc, so hc must not be mutated afterwards.
func (set *HeapSet) TryAdd(hc *HeapConfiguration) bool {
	fp := hc.Fingerprint()

	var bucket []*HeapConfiguration
	if found, ok := set.buckets.Get(fp); ok {
		bucket = found.([]*HeapConfiguration)
	}
	for _, existing := range bucket {
		if existing.Equals(hc) {
			return false
		}
	}
	set.buckets.Put(fp, append(bucket, hc))

	set.items = append(set.items, hc)
	return true
}

func (set *HeapSet) Len() int {
	return len(set.items)
}

// Items returns the added configurations in the order they were added.
func (set *HeapSet) Items() []*HeapConfiguration {
	return set.items
}
