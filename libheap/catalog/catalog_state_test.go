package catalog

import (
	"testing"

	"github.com/2x3systems/goheap/libheap"
	"github.com/stretchr/testify/require"
)

func TestFailedCommitKeepsCount(t *testing.T) {
	cat, err := OpenCatalog(CatalogOpts{})
	require.NoError(t, err)

	def, err := libheap.ParseHeap(`heap { nodes a, b : Node  a.next -> b }`)
	require.NoError(t, err)
	added, err := cat.TryAdd(def.HC)
	require.NoError(t, err)
	require.True(t, added)

	require.NoError(t, cat.db.Close())

	def, err = libheap.ParseHeap(`heap { nodes a : Node }`)
	require.NoError(t, err)
	added, err = cat.TryAdd(def.HC)
	require.Error(t, err)
	require.False(t, added)
	require.EqualValues(t, 1, cat.NumHeaps())

	// the pending state can no longer be flushed
	require.Error(t, cat.Close())
	require.NoError(t, cat.Close())
}
