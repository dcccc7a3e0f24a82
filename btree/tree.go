package btree

import "github.com/pkg/errors"

// pathFrame records one step of a root-to-node descent: the node
// visited (slot) and the index used either to continue the descent
// (children[index]) or, for the terminal frame, the key position at
// which the search concluded.
//
// This is the redesign called for in spec.md §9: instead of letting
// rebalance rediscover a node's position among its parent's children
// by scanning pointers, findPath records that position as it
// descends, so every non-terminal frame's index already IS the
// child's position among its parent — rebalance and the split
// cascade use it directly instead of a pointer-equality scan.
type pathFrame struct {
	slot  uint64
	index int
}

// treeCore implements the search/insert/delete algorithms over a
// pager. It holds no durable state of its own: slot bookkeeping lives
// entirely in the pager.
type treeCore[K, V any] struct {
	pager *pager[K, V]
	less  LessFunc[K]
}

// findPath descends from the root looking for key, pushing a
// pathFrame at every node visited. It returns the path, the index at
// which the search concluded, and whether the key was found there.
func (t *treeCore[K, V]) findPath(key K) ([]pathFrame, int, bool, error) {
	if t.pager.rootSlot == noRoot {
		return nil, 0, false, nil
	}

	var path []pathFrame
	slot := t.pager.rootSlot
	for {
		n, err := t.pager.readNode(slot)
		if err != nil {
			return nil, 0, false, err
		}
		index, found := n.findIndex(t.less, key)
		path = append(path, pathFrame{slot: slot, index: index})
		if found || n.isLeaf {
			return path, index, found, nil
		}
		slot = n.children[index]
	}
}

// at returns the value stored for key, if any.
func (t *treeCore[K, V]) at(key K) (V, bool, error) {
	path, index, found, err := t.findPath(key)
	var zero V
	if err != nil || !found {
		return zero, false, err
	}
	n, err := t.pager.readNode(path[len(path)-1].slot)
	if err != nil {
		return zero, false, err
	}
	return n.entries[index].Value, true, nil
}

// insert adds data if its key is absent. Returns false without
// modifying anything if the key is already present.
func (t *treeCore[K, V]) insert(data Entry[K, V]) (bool, error) {
	if t.pager.rootSlot == noRoot {
		root := newLeafNode[K, V](t.pager.allocateSlot())
		root.insertEntryAt(0, data)
		if err := t.pager.writeNode(root); err != nil {
			return false, err
		}
		t.pager.rootSlot = root.slot
		return true, t.pager.writeHeader()
	}

	path, index, found, err := t.findPath(data.Key)
	if err != nil {
		return false, err
	}
	if found {
		return false, nil
	}

	leafFrame := path[len(path)-1]
	path = path[:len(path)-1]

	leaf, err := t.pager.readNode(leafFrame.slot)
	if err != nil {
		return false, err
	}
	leaf.insertEntryAt(index, data)
	if err := t.pager.writeNode(leaf); err != nil {
		return false, err
	}

	if leaf.size > t.pager.maxKeys {
		if err := t.splitCascade(path, leafFrame.slot); err != nil {
			return false, err
		}
	}
	return true, nil
}

// splitCascade splits the overfull node at overfullSlot, promoting
// its median key into the parent named by the top of path, and
// repeats as long as the parent it just grew is itself overfull. When
// path is empty, overfullSlot was the root and a fresh root is
// allocated above it.
func (t *treeCore[K, V]) splitCascade(path []pathFrame, overfullSlot uint64) error {
	for {
		n, err := t.pager.readNode(overfullSlot)
		if err != nil {
			return err
		}

		mid := n.size / 2
		separator := n.entries[mid]

		right := &node[K, V]{slot: t.pager.allocateSlot(), isLeaf: n.isLeaf}
		right.entries = append(right.entries, n.entries[mid+1:]...)
		right.size = len(right.entries)
		if !n.isLeaf {
			right.children = append(right.children, n.children[mid+1:]...)
		}

		n.entries = n.entries[:mid]
		n.size = mid
		if !n.isLeaf {
			n.children = n.children[:mid+1]
		}

		if err := t.pager.writeNode(n); err != nil {
			return err
		}
		if err := t.pager.writeNode(right); err != nil {
			return err
		}

		if len(path) == 0 {
			newRoot := newInternalNode[K, V](t.pager.allocateSlot())
			newRoot.insertEntryAt(0, separator)
			newRoot.children = []uint64{n.slot, right.slot}
			if err := t.pager.writeNode(newRoot); err != nil {
				return err
			}
			t.pager.rootSlot = newRoot.slot
			return t.pager.writeHeader()
		}

		parentFrame := path[len(path)-1]
		path = path[:len(path)-1]
		parent, err := t.pager.readNode(parentFrame.slot)
		if err != nil {
			return err
		}
		parent.insertEntryAt(parentFrame.index, separator)
		parent.insertChildAt(parentFrame.index+1, right.slot)
		if err := t.pager.writeNode(parent); err != nil {
			return err
		}

		if parent.size <= t.pager.maxKeys {
			return nil
		}
		overfullSlot = parentFrame.slot
	}
}

// update overwrites the value for an existing key. Returns false if
// the key is absent.
func (t *treeCore[K, V]) update(data Entry[K, V]) (bool, error) {
	path, index, found, err := t.findPath(data.Key)
	if err != nil || !found {
		return false, err
	}
	frame := path[len(path)-1]
	n, err := t.pager.readNode(frame.slot)
	if err != nil {
		return false, err
	}
	n.entries[index].Value = data.Value
	if err := t.pager.writeNode(n); err != nil {
		return false, err
	}
	return true, nil
}

// erase removes key if present. Returns false if absent.
func (t *treeCore[K, V]) erase(key K) (bool, error) {
	path, index, found, err := t.findPath(key)
	if err != nil || !found {
		return false, err
	}

	curFrame := path[len(path)-1]
	path = path[:len(path)-1]
	cur, err := t.pager.readNode(curFrame.slot)
	if err != nil {
		return false, err
	}

	if cur.isLeaf {
		cur.removeEntryAt(index)
		if err := t.pager.writeNode(cur); err != nil {
			return false, err
		}
		if cur.slot == t.pager.rootSlot {
			if cur.size == 0 {
				t.pager.rootSlot = noRoot
				return true, t.pager.writeHeader()
			}
			return true, nil
		}
		if cur.size < t.pager.t-1 {
			if err := t.rebalance(path, cur); err != nil {
				return false, err
			}
		}
		return true, nil
	}

	return true, t.eraseFromInternal(path, cur, index)
}

// eraseFromInternal implements the internal-node deletion case:
// replace the separator at index with its predecessor (rightmost key
// of the left child) if that subtree has a spare key, else its
// successor (leftmost key of the right child) if that one does, else
// merge the two children through the separator and then remove the
// separator from the merged node.
func (t *treeCore[K, V]) eraseFromInternal(path []pathFrame, cur *node[K, V], index int) error {
	leftSlot, rightSlot := cur.children[index], cur.children[index+1]
	left, err := t.pager.readNode(leftSlot)
	if err != nil {
		return err
	}

	if left.size > t.pager.t-1 {
		spine := append(append([]pathFrame{}, path...), pathFrame{slot: cur.slot, index: index})
		pred, predPath, err := t.descendSpine(spine, leftSlot, true)
		if err != nil {
			return err
		}
		cur.entries[index] = pred.entries[pred.size-1]
		if err := t.pager.writeNode(cur); err != nil {
			return err
		}
		pred.removeEntryAt(pred.size - 1)
		if err := t.pager.writeNode(pred); err != nil {
			return err
		}
		if pred.size < t.pager.t-1 {
			return t.rebalance(predPath, pred)
		}
		return nil
	}

	right, err := t.pager.readNode(rightSlot)
	if err != nil {
		return err
	}
	if right.size > t.pager.t-1 {
		spine := append(append([]pathFrame{}, path...), pathFrame{slot: cur.slot, index: index + 1})
		succ, succPath, err := t.descendSpine(spine, rightSlot, false)
		if err != nil {
			return err
		}
		cur.entries[index] = succ.entries[0]
		if err := t.pager.writeNode(cur); err != nil {
			return err
		}
		succ.removeEntryAt(0)
		if err := t.pager.writeNode(succ); err != nil {
			return err
		}
		if succ.size < t.pager.t-1 {
			return t.rebalance(succPath, succ)
		}
		return nil
	}

	// Both children minimal: merge right into left through the
	// separator at index, drop that separator and pointer from cur,
	// and erase the separator (the key being deleted) from left.
	mergedAt := left.size
	left.entries = append(left.entries, cur.entries[index])
	left.entries = append(left.entries, right.entries...)
	left.size = len(left.entries)
	if !left.isLeaf {
		left.children = append(left.children, right.children...)
	} else {
		left.removeEntryAt(mergedAt)
	}
	if err := t.pager.writeNode(left); err != nil {
		return err
	}
	if !left.isLeaf {
		spine := append(append([]pathFrame{}, path...), pathFrame{slot: cur.slot, index: index})
		if err := t.eraseFromInternal(spine, left, mergedAt); err != nil {
			return err
		}
	}

	cur.removeEntryAt(index)
	cur.removeChildAt(index + 1)
	if err := t.pager.writeNode(cur); err != nil {
		return err
	}

	if cur.slot == t.pager.rootSlot && cur.size == 0 {
		t.pager.rootSlot = left.slot
		return t.pager.writeHeader()
	}
	if cur.slot != t.pager.rootSlot && cur.size < t.pager.t-1 {
		return t.rebalance(path, cur)
	}
	return nil
}

// descendSpine walks the rightmost (predecessor search) or leftmost
// (successor search) spine from startSlot to a leaf, appending one
// pathFrame per level so the returned path satisfies the same
// "index is a child-descent position" invariant findPath guarantees.
func (t *treeCore[K, V]) descendSpine(path []pathFrame, startSlot uint64, rightmost bool) (*node[K, V], []pathFrame, error) {
	slot := startSlot
	for {
		n, err := t.pager.readNode(slot)
		if err != nil {
			return nil, nil, err
		}
		if n.isLeaf {
			return n, path, nil
		}
		childIdx := 0
		if rightmost {
			childIdx = n.size
		}
		path = append(path, pathFrame{slot: slot, index: childIdx})
		slot = n.children[childIdx]
	}
}

// rebalance restores the minimum-keys invariant for node, walking up
// through path as far as necessary. path's top frame names node's
// parent and node's position among that parent's children (per
// pathFrame's invariant — no pointer scan needed).
func (t *treeCore[K, V]) rebalance(path []pathFrame, n *node[K, V]) error {
	if len(path) == 0 || n.size >= t.pager.t-1 {
		return nil
	}

	parentFrame := path[len(path)-1]
	path = path[:len(path)-1]
	parent, err := t.pager.readNode(parentFrame.slot)
	if err != nil {
		return err
	}
	j := parentFrame.index

	if j > 0 {
		leftSib, err := t.pager.readNode(parent.children[j-1])
		if err != nil {
			return err
		}
		if leftSib.size > t.pager.t-1 {
			return t.borrowFromLeft(parent, n, leftSib, j)
		}
	}
	if j < parent.size {
		rightSib, err := t.pager.readNode(parent.children[j+1])
		if err != nil {
			return err
		}
		if rightSib.size > t.pager.t-1 {
			return t.borrowFromRight(parent, n, rightSib, j)
		}
	}
	if j > 0 {
		leftSib, err := t.pager.readNode(parent.children[j-1])
		if err != nil {
			return err
		}
		return t.mergeWithLeft(path, parent, n, leftSib, j)
	}
	rightSib, err := t.pager.readNode(parent.children[j+1])
	if err != nil {
		return err
	}
	return t.mergeWithRight(path, parent, n, rightSib, j)
}

// borrowFromLeft rotates one key right through the parent: the
// parent's separator moves down into node, left's last key moves up
// into the parent, and (for internal nodes) left's last child moves
// to the front of node.
func (t *treeCore[K, V]) borrowFromLeft(parent, n, left *node[K, V], j int) error {
	n.insertEntryAt(0, parent.entries[j-1])
	parent.entries[j-1] = left.entries[left.size-1]
	left.removeEntryAt(left.size - 1)
	if !n.isLeaf {
		n.insertChildAt(0, left.removeChildAt(len(left.children)-1))
	}
	if err := t.pager.writeNode(left); err != nil {
		return err
	}
	if err := t.pager.writeNode(parent); err != nil {
		return err
	}
	return t.pager.writeNode(n)
}

// borrowFromRight is the mirror of borrowFromLeft.
func (t *treeCore[K, V]) borrowFromRight(parent, n, right *node[K, V], j int) error {
	n.insertEntryAt(n.size, parent.entries[j])
	parent.entries[j] = right.entries[0]
	right.removeEntryAt(0)
	if !n.isLeaf {
		n.insertChildAt(len(n.children), right.removeChildAt(0))
	}
	if err := t.pager.writeNode(right); err != nil {
		return err
	}
	if err := t.pager.writeNode(parent); err != nil {
		return err
	}
	return t.pager.writeNode(n)
}

// mergeWithLeft absorbs node and the separator at parent[j-1] into
// left, then removes that separator and node's pointer from parent,
// cascading the rebalance upward if parent underflowed.
func (t *treeCore[K, V]) mergeWithLeft(path []pathFrame, parent, n, left *node[K, V], j int) error {
	left.entries = append(left.entries, parent.entries[j-1])
	left.entries = append(left.entries, n.entries...)
	left.size = len(left.entries)
	if !left.isLeaf {
		left.children = append(left.children, n.children...)
	}
	if err := t.pager.writeNode(left); err != nil {
		return err
	}

	parent.removeEntryAt(j - 1)
	parent.removeChildAt(j)
	if err := t.pager.writeNode(parent); err != nil {
		return err
	}
	return t.afterParentShrink(path, parent, left.slot)
}

// mergeWithRight absorbs the separator at parent[j] and right into
// node, then removes that separator and right's pointer from parent.
func (t *treeCore[K, V]) mergeWithRight(path []pathFrame, parent, n, right *node[K, V], j int) error {
	n.entries = append(n.entries, parent.entries[j])
	n.entries = append(n.entries, right.entries...)
	n.size = len(n.entries)
	if !n.isLeaf {
		n.children = append(n.children, right.children...)
	}
	if err := t.pager.writeNode(n); err != nil {
		return err
	}

	parent.removeEntryAt(j)
	parent.removeChildAt(j + 1)
	if err := t.pager.writeNode(parent); err != nil {
		return err
	}
	return t.afterParentShrink(path, parent, n.slot)
}

// afterParentShrink handles the aftermath of a merge at the parent
// level: promote survivingChildSlot to root if parent emptied out at
// the root, otherwise cascade rebalance upward if parent underflowed.
func (t *treeCore[K, V]) afterParentShrink(path []pathFrame, parent *node[K, V], survivingChildSlot uint64) error {
	if parent.slot == t.pager.rootSlot && parent.size == 0 {
		t.pager.rootSlot = survivingChildSlot
		return t.pager.writeHeader()
	}
	if parent.slot != t.pager.rootSlot && parent.size < t.pager.t-1 {
		return t.rebalance(path, parent)
	}
	return nil
}

// errInvalid wraps a validation failure naming the offending slot.
func errInvalid(slot uint64, format string, args ...any) error {
	return errors.Wrapf(errors.Errorf(format, args...), "slot %d", slot)
}
