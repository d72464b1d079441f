package huffman

import "slices"

// A Node is either a leaf holding one code point or an internal node owning
// exactly two children.
type Node struct {
	Char  rune
	Freq  uint64
	Left  *Node
	Right *Node
}

// IsLeaf reports whether n has no children.
func (n *Node) IsLeaf() bool {
	return n.Left == nil && n.Right == nil
}

// Leaves returns the number of leaves under n.
func (n *Node) Leaves() int {
	if n == nil {
		return 0
	}
	if n.IsLeaf() {
		return 1
	}
	return n.Left.Leaves() + n.Right.Leaves()
}

// BuildTree builds a Huffman tree from f and returns its root together with
// the number of distinct symbols. An all-zero table yields a nil root.
//
// Ties are broken deterministically: leaves of equal frequency keep ascending
// code point order, and a merged node is inserted after every node whose
// frequency is equal to its own.
func BuildTree(f Frequencies) (*Node, int) {
	var nodes []*Node
	for c, freq := range f {
		if freq > 0 {
			nodes = append(nodes, &Node{Char: rune(c), Freq: uint64(freq)})
		}
	}
	unique := len(nodes)
	if unique == 0 {
		return nil, 0
	}
	slices.SortStableFunc(nodes, func(a, b *Node) int {
		switch {
		case a.Freq < b.Freq:
			return -1
		case a.Freq > b.Freq:
			return 1
		}
		return 0
	})

	for len(nodes) > 1 {
		parent := &Node{
			Freq:  nodes[0].Freq + nodes[1].Freq,
			Left:  nodes[0],
			Right: nodes[1],
		}
		nodes = nodes[2:]
		i := len(nodes)
		for i > 0 && nodes[i-1].Freq > parent.Freq {
			i--
		}
		nodes = slices.Insert(nodes, i, parent)
	}
	return nodes[0], unique
}
