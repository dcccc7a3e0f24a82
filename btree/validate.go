package btree

// validateTree walks the whole tree once, checking every invariant a
// correct B-tree must hold: key counts within [t-1, 2t-1] (root
// excepted on the lower bound), keys sorted within each node,
// separator keys correctly bounding their child subtrees, and every
// leaf at the same depth.
func validateTree[K, V any](t *treeCore[K, V]) error {
	if t.pager.rootSlot == noRoot {
		return nil
	}
	root, err := t.pager.readNode(t.pager.rootSlot)
	if err != nil {
		return err
	}
	_, err = validateNode(t, root, true, nil, nil)
	return err
}

// validateNode recursively checks node, returning its leaf depth (0
// for a leaf). Two subtrees under the same parent must report equal
// depths, which is how this function enforces the equal-leaf-depth
// invariant globally, one level at a time. lo/hi bound the keys this
// subtree may legally contain; a nil bound means unbounded on that
// side.
func validateNode[K, V any](t *treeCore[K, V], n *node[K, V], isRoot bool, lo, hi *K) (int, error) {
	minKeys := t.pager.t - 1
	if isRoot {
		minKeys = 0
	}
	if n.size < minKeys {
		return 0, errInvalid(n.slot, "node has %d keys, fewer than minimum %d", n.size, minKeys)
	}
	if n.size > t.pager.maxKeys {
		return 0, errInvalid(n.slot, "node has %d keys, more than maximum %d", n.size, t.pager.maxKeys)
	}
	if !n.isLeaf && len(n.children) != n.size+1 {
		return 0, errInvalid(n.slot, "internal node has %d keys but %d children", n.size, len(n.children))
	}

	for i := 0; i < n.size; i++ {
		if i > 0 && !t.less(n.entries[i-1].Key, n.entries[i].Key) {
			return 0, errInvalid(n.slot, "keys not strictly increasing at position %d", i)
		}
	}
	if lo != nil && n.size > 0 && t.less(n.entries[0].Key, *lo) {
		return 0, errInvalid(n.slot, "smallest key violates inherited lower bound")
	}
	if hi != nil && n.size > 0 && !t.less(n.entries[n.size-1].Key, *hi) {
		return 0, errInvalid(n.slot, "largest key violates inherited upper bound")
	}

	if n.isLeaf {
		return 0, nil
	}

	depth := -1
	for i, childSlot := range n.children {
		child, err := t.pager.readNode(childSlot)
		if err != nil {
			return 0, err
		}
		var childLo, childHi *K
		if i > 0 {
			childLo = &n.entries[i-1].Key
		} else {
			childLo = lo
		}
		if i < n.size {
			childHi = &n.entries[i].Key
		} else {
			childHi = hi
		}
		childDepth, err := validateNode(t, child, false, childLo, childHi)
		if err != nil {
			return 0, err
		}
		if depth == -1 {
			depth = childDepth
		} else if depth != childDepth {
			return 0, errInvalid(n.slot, "children at unequal depths: %d and %d", depth, childDepth)
		}
	}
	return depth + 1, nil
}
