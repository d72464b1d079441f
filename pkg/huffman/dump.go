package huffman

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Dump writes an indented preorder listing of the tree, one node per line,
// with each leaf's code taken from codes. Frequencies are shown only when the
// tree has them; a tree read back from an archive does not.
func Dump(w io.Writer, root *Node, codes CodeTable) error {
	if root == nil {
		_, err := fmt.Fprintln(w, "(empty tree)")
		return err
	}
	return dump(w, root, codes, 0, root.Freq > 0)
}

func dump(w io.Writer, n *Node, codes CodeTable, level int, withFreq bool) error {
	var freq string
	if withFreq {
		freq = fmt.Sprintf(" (%d)", n.Freq)
	}
	indent := strings.Repeat("  ", level)
	if n.IsLeaf() {
		_, err := fmt.Fprintf(w, "%s%s%s: %s\n", indent, strconv.QuoteRune(n.Char), freq, codes[n.Char])
		return err
	}
	if _, err := fmt.Fprintf(w, "%sNode%s\n", indent, freq); err != nil {
		return err
	}
	if err := dump(w, n.Left, codes, level+1, withFreq); err != nil {
		return err
	}
	return dump(w, n.Right, codes, level+1, withFreq)
}
