package btree

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpenPagerCreatesEmptyRootLeaf(t *testing.T) {
	path := filepath.Join(t.TempDir(), "idx")
	p, err := openPager[int, string](path, 4, ".tree", ".data", IntCodec{}, StringCodec{}, defaultLogger)
	require.NoError(t, err)
	defer p.close()

	require.Equal(t, uint64(0), p.rootSlot)
	require.Equal(t, uint64(1), p.nodeCount)

	root, err := p.readNode(0)
	require.NoError(t, err)
	require.True(t, root.isLeaf)
	require.Equal(t, 0, root.size)
}

func TestPagerWriteReadNodeRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "idx")
	p, err := openPager[int, string](path, 4, ".tree", ".data", IntCodec{}, StringCodec{}, defaultLogger)
	require.NoError(t, err)
	defer p.close()

	n := newLeafNode[int, string](0)
	n.insertEntryAt(0, Entry[int, string]{Key: 1, Value: "one"})
	n.insertEntryAt(1, Entry[int, string]{Key: 2, Value: "two"})
	require.NoError(t, p.writeNode(n))

	got, err := p.readNode(0)
	require.NoError(t, err)
	require.True(t, got.isLeaf)
	require.Equal(t, 2, got.size)
	require.Equal(t, 1, got.entries[0].Key)
	require.Equal(t, "one", got.entries[0].Value)
	require.Equal(t, "two", got.entries[1].Value)
}

func TestPagerSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "idx")
	p, err := openPager[int, string](path, 4, ".tree", ".data", IntCodec{}, StringCodec{}, defaultLogger)
	require.NoError(t, err)

	right := &node[int, string]{slot: p.allocateSlot(), isLeaf: true}
	right.insertEntryAt(0, Entry[int, string]{Key: 99, Value: "ninety-nine"})
	require.NoError(t, p.writeNode(right))

	p.rootSlot = right.slot
	require.NoError(t, p.writeHeader())
	require.NoError(t, p.close())

	reopened, err := openPager[int, string](path, 4, ".tree", ".data", IntCodec{}, StringCodec{}, defaultLogger)
	require.NoError(t, err)
	defer reopened.close()

	require.Equal(t, right.slot, reopened.rootSlot)
	require.Equal(t, uint64(2), reopened.nodeCount)

	got, err := reopened.readNode(right.slot)
	require.NoError(t, err)
	require.Equal(t, 1, got.size)
	require.Equal(t, "ninety-nine", got.entries[0].Value)
}

func TestPagerRejectsSmallBranchingFactor(t *testing.T) {
	path := filepath.Join(t.TempDir(), "idx")
	_, err := openPager[int, string](path, 1, ".tree", ".data", IntCodec{}, StringCodec{}, defaultLogger)
	require.Error(t, err)
}
