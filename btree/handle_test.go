package btree

import (
	"fmt"
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func openTestHandle(t *testing.T, branchingFactor int) *Handle[int, string] {
	t.Helper()
	path := filepath.Join(t.TempDir(), "idx")
	cfg := DefaultConfig()
	cfg.T = branchingFactor
	h, err := Open[int, string](path, IntCodec{}, StringCodec{}, intLess, WithConfig[int, string](cfg))
	require.NoError(t, err)
	t.Cleanup(func() { h.Close() })
	return h
}

func TestHandleInsertAndAt(t *testing.T) {
	h := openTestHandle(t, 3)

	inserted, err := h.Insert(1, "one")
	require.NoError(t, err)
	require.True(t, inserted)

	inserted, err = h.Insert(1, "uno")
	require.NoError(t, err)
	require.False(t, inserted, "duplicate insert must not overwrite")

	val, ok, err := h.At(1)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "one", val)

	_, ok, err = h.At(2)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestHandleUpdate(t *testing.T) {
	h := openTestHandle(t, 3)
	_, err := h.Insert(5, "five")
	require.NoError(t, err)

	updated, err := h.Update(5, "V")
	require.NoError(t, err)
	require.True(t, updated)

	val, ok, err := h.At(5)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "V", val)

	updated, err = h.Update(6, "nope")
	require.NoError(t, err)
	require.False(t, updated)
}

func TestHandleSplitsAndStaysBalanced(t *testing.T) {
	h := openTestHandle(t, 2) // t=2: maxKeys=3, minKeys=1; splits happen quickly

	const n = 500
	for i := 0; i < n; i++ {
		inserted, err := h.Insert(i, fmt.Sprintf("v%d", i))
		require.NoError(t, err)
		require.True(t, inserted)
	}
	require.NoError(t, h.Validate())

	for i := 0; i < n; i++ {
		val, ok, err := h.At(i)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, fmt.Sprintf("v%d", i), val)
	}
}

func TestHandleEraseLeafAndInternal(t *testing.T) {
	h := openTestHandle(t, 2)

	const n = 200
	for i := 0; i < n; i++ {
		_, err := h.Insert(i, fmt.Sprintf("v%d", i))
		require.NoError(t, err)
	}
	require.NoError(t, h.Validate())

	// Delete every third key, exercising leaf deletes, internal-node
	// predecessor/successor replacement, and rebalance cascades.
	for i := 0; i < n; i += 3 {
		erased, err := h.Erase(i)
		require.NoError(t, err)
		require.True(t, erased)
		require.NoError(t, h.Validate())
	}

	for i := 0; i < n; i++ {
		_, ok, err := h.At(i)
		require.NoError(t, err)
		if i%3 == 0 {
			require.False(t, ok, "key %d should have been erased", i)
		} else {
			require.True(t, ok, "key %d should still be present", i)
		}
	}

	erased, err := h.Erase(999999)
	require.NoError(t, err)
	require.False(t, erased)
}

func TestHandleEraseEverythingEmptiesTree(t *testing.T) {
	h := openTestHandle(t, 2)
	keys := []int{5, 3, 8, 1, 4, 7, 9, 2, 6}
	for _, k := range keys {
		_, err := h.Insert(k, "x")
		require.NoError(t, err)
	}
	require.NoError(t, h.Validate())

	for _, k := range keys {
		erased, err := h.Erase(k)
		require.NoError(t, err)
		require.True(t, erased)
		require.NoError(t, h.Validate())
	}

	it, err := h.Begin()
	require.NoError(t, err)
	require.False(t, it.Valid())

	inserted, err := h.Insert(42, "reborn")
	require.NoError(t, err)
	require.True(t, inserted)
	require.NoError(t, h.Validate())

	val, ok, err := h.At(42)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "reborn", val)
}

func TestHandleRandomizedInsertEraseMaintainsInvariants(t *testing.T) {
	h := openTestHandle(t, 3)
	rng := rand.New(rand.NewSource(7))

	present := map[int]bool{}
	for i := 0; i < 2000; i++ {
		k := rng.Intn(300)
		if rng.Intn(2) == 0 {
			inserted, err := h.Insert(k, fmt.Sprintf("v%d", k))
			require.NoError(t, err)
			require.Equal(t, !present[k], inserted)
			present[k] = true
		} else {
			erased, err := h.Erase(k)
			require.NoError(t, err)
			require.Equal(t, present[k], erased)
			present[k] = false
		}
	}
	require.NoError(t, h.Validate())

	for k, want := range present {
		_, ok, err := h.At(k)
		require.NoError(t, err)
		require.Equal(t, want, ok, "key %d", k)
	}
}

func TestHandlePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "idx")
	h, err := Open[int, string](path, IntCodec{}, StringCodec{}, intLess)
	require.NoError(t, err)

	for i := 0; i < 50; i++ {
		_, err := h.Insert(i, fmt.Sprintf("v%d", i))
		require.NoError(t, err)
	}
	require.NoError(t, h.Close())

	reopened, err := Open[int, string](path, IntCodec{}, StringCodec{}, intLess)
	require.NoError(t, err)
	defer reopened.Close()

	require.NoError(t, reopened.Validate())
	for i := 0; i < 50; i++ {
		val, ok, err := reopened.At(i)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, fmt.Sprintf("v%d", i), val)
	}
}

func TestHandleOperationsAfterCloseReturnErrClosed(t *testing.T) {
	h := openTestHandle(t, 3)
	require.NoError(t, h.Close())

	_, _, err := h.At(1)
	require.ErrorIs(t, err, ErrClosed)

	_, err = h.Insert(1, "x")
	require.ErrorIs(t, err, ErrClosed)

	_, err = h.Erase(1)
	require.ErrorIs(t, err, ErrClosed)
}
