package btree

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// Visualizer prints a colorized, indented rendering of a tree for
// interactive debugging, in the spirit of the REPL's inspection
// commands: internal nodes in cyan, leaves in green, and slot numbers
// dimmed out so the keys stand out.
type Visualizer[K, V any] struct {
	out        io.Writer
	keyFormat  func(K) string
	slotColor  *color.Color
	nodeColor  *color.Color
	leafColor  *color.Color
}

// NewVisualizer builds a Visualizer writing to out, formatting keys
// with keyFormat (typically fmt.Sprint).
func NewVisualizer[K, V any](out io.Writer, keyFormat func(K) string) *Visualizer[K, V] {
	return &Visualizer[K, V]{
		out:       out,
		keyFormat: keyFormat,
		slotColor: color.New(color.Faint),
		nodeColor: color.New(color.FgCyan),
		leafColor: color.New(color.FgGreen),
	}
}

// Print renders the whole tree rooted at h's current root slot.
func (v *Visualizer[K, V]) Print(h *Handle[K, V]) error {
	if err := h.guard(); err != nil {
		return err
	}
	if h.core.pager.rootSlot == noRoot {
		fmt.Fprintln(v.out, v.slotColor.Sprint("(empty tree)"))
		return nil
	}
	return v.printNode(h.core.pager, h.core.pager.rootSlot, 0)
}

func (v *Visualizer[K, V]) printNode(p *pager[K, V], slot uint64, depth int) error {
	n, err := p.readNode(slot)
	if err != nil {
		return err
	}

	indent := strings.Repeat("  ", depth)
	keys := make([]string, n.size)
	for i, e := range n.entries {
		keys[i] = v.keyFormat(e.Key)
	}

	label := v.leafColor
	kind := "leaf"
	if !n.isLeaf {
		label = v.nodeColor
		kind = "node"
	}
	fmt.Fprintf(v.out, "%s%s %s\n",
		indent,
		label.Sprintf("[%s %s]", kind, strings.Join(keys, ", ")),
		v.slotColor.Sprintf("(slot %d)", slot))

	for _, childSlot := range n.children {
		if err := v.printNode(p, childSlot, depth+1); err != nil {
			return err
		}
	}
	return nil
}
