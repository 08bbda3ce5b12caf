// Package catalog persists canonical heap configurations in a badger database, one entry per
// isomorphism class.
package catalog

import (
	"encoding/binary"
	"runtime"

	"github.com/2x3systems/goheap/goheap"
	"github.com/2x3systems/goheap/libheap"
	"github.com/dgraph-io/badger/v4"
	"github.com/gogo/protobuf/proto"
	"github.com/pkg/errors"
	"github.com/plan-systems/klog"
)

/***

Catalog database format:

	gCatalogStateKey => CatalogState (varints: MajorVers, MinorVers, NumHeaps)

	kHeapPrefix, NumNodes (uint16), Fingerprint (uint64), SeqNum (uint64)   => HeapEncoding
	...

Entries sharing a fingerprint are adjacent, so TryAdd only decodes and compares the handful of heaps
whose fingerprint collides with the candidate's.  Select walks entries in ascending node count.

***/

var (
	gCatalogStateKey = []byte{0x00, 0x00, 0x01}
)

const (
	kHeapPrefix   = byte(0x01)
	kHeapKeyLen   = 1 + 2 + 8 + 8
	kMajorVersion = 2024
	kMinorVersion = 1
)

// CatalogOpts specifies params for opening a Catalog
type CatalogOpts struct {
	DbPathName string // empty means an in-memory catalog
	ReadOnly   bool
}

// CatalogState is the persisted header of a Catalog.
type CatalogState struct {
	MajorVers uint64
	MinorVers uint64
	NumHeaps  uint64
}

func (state *CatalogState) Marshal() []byte {
	buf := proto.NewBuffer(nil)
	buf.EncodeVarint(state.MajorVers)
	buf.EncodeVarint(state.MinorVers)
	buf.EncodeVarint(state.NumHeaps)
	return buf.Bytes()
}

func (state *CatalogState) Unmarshal(val []byte) error {
	buf := proto.NewBuffer(val)
	var err error
	for _, field := range []*uint64{&state.MajorVers, &state.MinorVers, &state.NumHeaps} {
		if *field, err = buf.DecodeVarint(); err != nil {
			return errors.Wrap(goheap.ErrBadEncoding, "catalog state")
		}
	}
	return nil
}

// HeapSelector bounds the heaps returned by Catalog.Select.
type HeapSelector struct {
	MinNodes int
	MaxNodes int // zero means no upper bound
}

// Catalog is a db wrapper for a catalog of canonical heap configurations.
type Catalog struct {
	readOnly   bool
	stateDirty bool
	state      CatalogState
	db         *badger.DB
}

// OpenCatalog opens (or creates) the catalog at opts.DbPathName.
func OpenCatalog(opts CatalogOpts) (*Catalog, error) {
	cat := &Catalog{
		readOnly: opts.ReadOnly,
	}

	dbOpts := badger.DefaultOptions(opts.DbPathName)
	dbOpts.ReadOnly = opts.ReadOnly
	dbOpts.DetectConflicts = false // not needed so disable for performance
	dbOpts.Logger = nil
	dbOpts.MetricsEnabled = false

	// Badger for windows currently does not support read-only mode
	if runtime.GOOS == "windows" {
		dbOpts.ReadOnly = false
	}

	if len(opts.DbPathName) == 0 {
		if opts.ReadOnly {
			return nil, errors.Wrap(goheap.ErrBadCatalogParam, "DbPathName must be specified for read-only catalog")
		}
		dbOpts.InMemory = true
	}

	var err error
	cat.db, err = badger.Open(dbOpts)
	if err != nil {
		return nil, errors.Wrapf(err, "opening catalog %q", opts.DbPathName)
	}

	err = cat.loadState()
	if err == badger.ErrKeyNotFound {
		err = nil
		cat.stateDirty = true
		cat.state = CatalogState{
			MajorVers: kMajorVersion,
			MinorVers: kMinorVersion,
		}
	}

	if err == nil && (cat.state.MajorVers != kMajorVersion || cat.state.MinorVers != kMinorVersion) {
		err = errors.Wrapf(goheap.ErrBadCatalogParam, "catalog version %d.%d is incompatible", cat.state.MajorVers, cat.state.MinorVers)
	}

	if err != nil {
		cat.Close()
		return nil, err
	}

	return cat, nil
}

func (cat *Catalog) loadState() error {
	return cat.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(gCatalogStateKey)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return cat.state.Unmarshal(val)
		})
	})
}

func (cat *Catalog) flushState() error {
	if !cat.stateDirty || cat.readOnly {
		return nil
	}
	err := cat.db.Update(func(txn *badger.Txn) error {
		return txn.Set(gCatalogStateKey, cat.state.Marshal())
	})
	if err == nil {
		cat.stateDirty = false
	}
	return err
}

// Close flushes the catalog state and closes the underlying db, returning the first error.
func (cat *Catalog) Close() error {
	var err error
	if cat.db != nil {
		err = cat.flushState()
		if closeErr := cat.db.Close(); err == nil {
			err = closeErr
		}
		cat.db = nil
	}
	return err
}

func (cat *Catalog) IsReadOnly() bool {
	return cat.readOnly
}

// NumHeaps returns the number of isomorphism classes stored.
func (cat *Catalog) NumHeaps() int64 {
	return int64(cat.state.NumHeaps)
}

func formHeapKeyPrefix(key []byte, hc *libheap.HeapConfiguration) []byte {
	var scrap [8]byte
	key = append(key, kHeapPrefix)
	binary.BigEndian.PutUint16(scrap[:2], uint16(hc.CountNodes()))
	key = append(key, scrap[:2]...)
	binary.BigEndian.PutUint64(scrap[:], hc.Fingerprint())
	key = append(key, scrap[:]...)
	return key
}

// TryAdd adds hc unless an isomorphic heap configuration is already stored.
// Returns true if hc was added.
func (cat *Catalog) TryAdd(hc *libheap.HeapConfiguration) (bool, error) {
	if cat.readOnly {
		return false, errors.Wrap(goheap.ErrBadCatalogParam, "catalog is read-only")
	}

	var keyBuf [kHeapKeyLen]byte
	prefix := formHeapKeyPrefix(keyBuf[:0], hc)

	added := false
	seqNum := cat.state.NumHeaps + 1
	err := cat.db.Update(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{
			PrefetchValues: true,
			PrefetchSize:   4,
			Prefix:         prefix,
		})
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			dupe := false
			item := it.Item()
			err := item.Value(func(val []byte) error {
				existing, err := libheap.NewHeapConfigurationFromEncoding(val)
				if err != nil {
					klog.Warningf("catalog: skipping undecodable entry %x: %v", item.Key(), err)
					return nil
				}
				dupe = existing.Equals(hc)
				return nil
			})
			if err != nil || dupe {
				return err
			}
		}

		key := binary.BigEndian.AppendUint64(prefix, seqNum)
		if err := txn.Set(key, hc.AppendEncoding(nil)); err != nil {
			return err
		}
		added = true
		return nil
	})
	if err != nil {
		return false, err
	}

	// the count only advances once the entry is committed
	if added {
		cat.state.NumHeaps = seqNum
		cat.stateDirty = true
	}
	return added, nil
}

// Select calls onHit with each stored heap configuration meeting sel, in ascending node count.
//
// Enumeration stops when there are no more matches or if onHit() returns false.
func (cat *Catalog) Select(sel HeapSelector, onHit func(hc *libheap.HeapConfiguration) bool) error {
	var scrap [2]byte
	prefix := []byte{kHeapPrefix}
	binary.BigEndian.PutUint16(scrap[:], uint16(sel.MinNodes))
	start := append([]byte{kHeapPrefix}, scrap[:]...)

	txn := cat.db.NewTransaction(false)
	defer txn.Discard()

	it := txn.NewIterator(badger.IteratorOptions{
		PrefetchValues: true,
		PrefetchSize:   100,
		Prefix:         prefix,
	})
	defer it.Close()

	for it.Seek(start); it.ValidForPrefix(prefix); it.Next() {
		item := it.Item()
		numNodes := int(binary.BigEndian.Uint16(item.Key()[1:3]))
		if sel.MaxNodes > 0 && numNodes > sel.MaxNodes {
			break
		}

		var hc *libheap.HeapConfiguration
		err := item.Value(func(val []byte) error {
			var err error
			hc, err = libheap.NewHeapConfigurationFromEncoding(val)
			return err
		})
		if err != nil {
			klog.Warningf("catalog: skipping undecodable entry %x: %v", item.Key(), err)
			continue
		}
		if !onHit(hc) {
			break
		}
	}

	return nil
}
