package btree

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateEmptyTree(t *testing.T) {
	h := openTestHandle(t, 3)
	require.NoError(t, h.Validate())
}

func TestValidateAfterManyOperations(t *testing.T) {
	h := openTestHandle(t, 3)
	for i := 0; i < 1000; i++ {
		_, err := h.Insert(i, fmt.Sprintf("v%d", i))
		require.NoError(t, err)
		if i%7 == 0 && i > 0 {
			require.NoError(t, h.Validate())
		}
	}
	require.NoError(t, h.Validate())

	for i := 0; i < 1000; i += 2 {
		_, err := h.Erase(i)
		require.NoError(t, err)
	}
	require.NoError(t, h.Validate())
}

func TestValidateDetectsOutOfOrderKeys(t *testing.T) {
	h := openTestHandle(t, 3)
	_, err := h.Insert(1, "a")
	require.NoError(t, err)
	_, err = h.Insert(2, "b")
	require.NoError(t, err)

	root, err := h.core.pager.readNode(h.core.pager.rootSlot)
	require.NoError(t, err)
	root.entries[0], root.entries[1] = root.entries[1], root.entries[0]
	require.NoError(t, h.core.pager.writeNode(root))

	require.Error(t, h.Validate())
}
