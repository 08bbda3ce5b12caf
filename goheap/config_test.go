package goheap_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/2x3systems/goheap/goheap"
	"github.com/stretchr/testify/require"
)

func TestLoadOpts(t *testing.T) {
	dir := t.TempDir()
	pathname := filepath.Join(dir, "opts.yaml")

	err := os.WriteFile(pathname, []byte("min_abstraction_distance: 2\naggressive_null_abstraction: true\nconfluent: false\n"), 0o644)
	require.NoError(t, err)

	opts, err := goheap.LoadOpts(pathname)
	require.NoError(t, err)
	require.Equal(t, int32(2), opts.MinAbstractionDistance)
	require.False(t, opts.Confluent)
	require.True(t, opts.IsConstant("null"))
	require.False(t, opts.IsConstant("x"))

	// Constants is untouched by the overlay
	require.Equal(t, goheap.DefaultOpts().Constants, opts.Constants)
}

func TestLoadOptsRejectsNegativeDistance(t *testing.T) {
	pathname := filepath.Join(t.TempDir(), "opts.yaml")
	require.NoError(t, os.WriteFile(pathname, []byte("min_abstraction_distance: -1\n"), 0o644))

	_, err := goheap.LoadOpts(pathname)
	require.Error(t, err)
}

func TestDefaultOptsIgnoreConstants(t *testing.T) {
	opts := goheap.DefaultOpts()
	require.True(t, opts.Confluent)
	require.False(t, opts.IsConstant("null"))
}

func TestNonterminalComparator(t *testing.T) {
	L2 := goheap.Nonterminal{Label: "L", Rank: 2}
	L3 := goheap.Nonterminal{Label: "L", Rank: 3}
	T2 := goheap.Nonterminal{Label: "T", Rank: 2}

	require.Equal(t, 0, goheap.NonterminalComparator(L2, L2))
	require.Less(t, goheap.NonterminalComparator(L2, L3), 0)
	require.Less(t, goheap.NonterminalComparator(L3, T2), 0)
	require.Greater(t, goheap.NonterminalComparator(T2, L2), 0)
}
