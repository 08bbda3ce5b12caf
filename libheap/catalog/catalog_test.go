package catalog_test

import (
	"os"
	"path"
	"testing"

	"github.com/2x3systems/goheap/goheap"
	"github.com/2x3systems/goheap/libheap"
	"github.com/2x3systems/goheap/libheap/catalog"
	"github.com/stretchr/testify/require"
)

var heaps = []string{
	`heap { nodes a : Node }`,
	`heap { nodes a, b : Node  a.next -> b }`,
	`heap { nodes a, b : Node  a.next -> b  b.next -> a }`,
	`heap { nodes a, b, c : Node  a.next -> b  b.next -> c  x -> a }`,
}

func mustHeap(t *testing.T, src string) *libheap.HeapConfiguration {
	def, err := libheap.ParseHeap(src)
	require.NoError(t, err)
	return def.HC
}

func TestBasics(t *testing.T) {
	dir, err := os.MkdirTemp("", "junk*")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	opts := catalog.CatalogOpts{
		DbPathName: path.Join(dir, "TestBasics"),
	}
	cat, err := catalog.OpenCatalog(opts)
	require.NoError(t, err)

	for _, src := range heaps {
		hc := mustHeap(t, src)
		added, err := cat.TryAdd(hc)
		require.NoError(t, err)
		require.True(t, added, src)

		added, err = cat.TryAdd(hc.Clone())
		require.NoError(t, err)
		require.False(t, added, src)
	}

	// same shape, different node names and insertion order
	added, err := cat.TryAdd(mustHeap(t, `heap { nodes q, p : Node  p.next -> q }`))
	require.NoError(t, err)
	require.False(t, added)

	require.EqualValues(t, len(heaps), cat.NumHeaps())
	require.NoError(t, cat.Close())

	// reopen read-only and walk what was stored
	opts.ReadOnly = true
	cat, err = catalog.OpenCatalog(opts)
	require.NoError(t, err)
	defer cat.Close()
	require.EqualValues(t, len(heaps), cat.NumHeaps())

	count := 0
	lastNodes := 0
	err = cat.Select(catalog.HeapSelector{}, func(hc *libheap.HeapConfiguration) bool {
		require.GreaterOrEqual(t, hc.CountNodes(), lastNodes)
		lastNodes = hc.CountNodes()
		count++
		return true
	})
	require.NoError(t, err)
	require.Equal(t, len(heaps), count)

	count = 0
	err = cat.Select(catalog.HeapSelector{MinNodes: 2, MaxNodes: 2}, func(hc *libheap.HeapConfiguration) bool {
		require.Equal(t, 2, hc.CountNodes())
		count++
		return true
	})
	require.NoError(t, err)
	require.Equal(t, 2, count)

	_, err = cat.TryAdd(mustHeap(t, heaps[0]))
	require.ErrorIs(t, err, goheap.ErrBadCatalogParam)
}

func TestInMemory(t *testing.T) {
	cat, err := catalog.OpenCatalog(catalog.CatalogOpts{})
	require.NoError(t, err)
	defer cat.Close()

	added, err := cat.TryAdd(mustHeap(t, heaps[1]))
	require.NoError(t, err)
	require.True(t, added)

	_, err = catalog.OpenCatalog(catalog.CatalogOpts{ReadOnly: true})
	require.ErrorIs(t, err, goheap.ErrBadCatalogParam)
}
