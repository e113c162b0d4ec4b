package shred

import "github.com/datalith/strata/pkg/schema"

// layout holds the column index tables the shredder and assembler both
// derive from a schema tree: leafIndex maps each leaf node to its column
// index, subtree maps every node to the half-open column index range of
// the leaves below it.
type layout struct {
	leafIndex map[*schema.Node]int
	subtree   map[*schema.Node][2]int
}

func newLayout(root *schema.Node) *layout {
	l := &layout{
		leafIndex: make(map[*schema.Node]int),
		subtree:   make(map[*schema.Node][2]int),
	}
	next := 0
	l.index(root, &next)
	return l
}

func (l *layout) index(n *schema.Node, next *int) {
	start := *next
	if n.IsLeaf() {
		l.leafIndex[n] = *next
		*next = *next + 1
	} else {
		for _, c := range n.Children {
			l.index(c, next)
		}
	}
	l.subtree[n] = [2]int{start, *next}
}

// firstLeaf returns the column index of the leftmost leaf below n
func (l *layout) firstLeaf(n *schema.Node) int {
	return l.subtree[n][0]
}
