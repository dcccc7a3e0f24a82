package btree

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func intLess(a, b int) bool { return a < b }

func TestNodeFindIndex(t *testing.T) {
	n := newLeafNode[int, string](0)
	for _, k := range []int{10, 20, 30, 40} {
		idx, found := n.findIndex(intLess, k)
		n.insertEntryAt(idx, Entry[int, string]{Key: k, Value: "v"})
		require.False(t, found)
	}

	idx, found := n.findIndex(intLess, 30)
	require.True(t, found)
	require.Equal(t, 2, idx)

	idx, found = n.findIndex(intLess, 25)
	require.False(t, found)
	require.Equal(t, 2, idx)

	idx, found = n.findIndex(intLess, 5)
	require.False(t, found)
	require.Equal(t, 0, idx)

	idx, found = n.findIndex(intLess, 99)
	require.False(t, found)
	require.Equal(t, 4, idx)
}

func TestNodeInsertRemoveEntryAt(t *testing.T) {
	n := newLeafNode[int, string](0)
	n.insertEntryAt(0, Entry[int, string]{Key: 1, Value: "a"})
	n.insertEntryAt(1, Entry[int, string]{Key: 2, Value: "b"})
	n.insertEntryAt(1, Entry[int, string]{Key: 3, Value: "c"})
	require.Equal(t, []int{1, 3, 2}, keysOf(n))

	removed := n.removeEntryAt(1)
	require.Equal(t, 3, removed.Key)
	require.Equal(t, []int{1, 2}, keysOf(n))
	require.Equal(t, 2, n.size)
}

func TestNodeInsertRemoveChildAt(t *testing.T) {
	n := newInternalNode[int, string](0)
	n.insertChildAt(0, 100)
	n.insertChildAt(1, 200)
	n.insertChildAt(1, 150)
	require.Equal(t, []uint64{100, 150, 200}, n.children)

	removed := n.removeChildAt(1)
	require.Equal(t, uint64(150), removed)
	require.Equal(t, []uint64{100, 200}, n.children)
}

func keysOf(n *node[int, string]) []int {
	keys := make([]int, n.size)
	for i, e := range n.entries {
		keys[i] = e.Key
	}
	return keys
}
