package huffman

import (
	"errors"
	"fmt"
	"strings"
)

// MaxCodeLen is the longest code the bit writer accepts.
const MaxCodeLen = 64

// ErrUnknownSymbol is returned when encoding a code point that has no code.
var ErrUnknownSymbol = errors.New("symbol not in code table")

// A Code is a path from the root, left-aligned: the first edge is the most
// significant of the Len low-order bits of Bits.
type Code struct {
	Bits uint64
	Len  uint8
}

// String renders c as a string of '0' and '1'.
func (c Code) String() string {
	var sb strings.Builder
	for i := int(c.Len) - 1; i >= 0; i-- {
		if c.Bits>>uint(i)&1 == 1 {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String()
}

// CodeTable maps code points to their codes.
type CodeTable map[rune]Code

// Lookup returns the code for c.
func (t CodeTable) Lookup(c rune) (Code, error) {
	code, ok := t[c]
	if !ok {
		return Code{}, fmt.Errorf("%w: %U", ErrUnknownSymbol, c)
	}
	return code, nil
}

// AssignCodes walks the tree depth first and returns the code of every leaf.
// A root that is itself a leaf gets the one-bit code 0.
func AssignCodes(root *Node) (CodeTable, error) {
	t := make(CodeTable)
	if root == nil {
		return t, nil
	}
	if root.IsLeaf() {
		t[root.Char] = Code{Bits: 0, Len: 1}
		return t, nil
	}
	if err := assign(root, Code{}, t); err != nil {
		return nil, err
	}
	return t, nil
}

func assign(n *Node, prefix Code, t CodeTable) error {
	if n.IsLeaf() {
		t[n.Char] = prefix
		return nil
	}
	if prefix.Len == MaxCodeLen {
		return fmt.Errorf("code longer than %d bits", MaxCodeLen)
	}
	left := Code{Bits: prefix.Bits << 1, Len: prefix.Len + 1}
	if err := assign(n.Left, left, t); err != nil {
		return err
	}
	right := Code{Bits: prefix.Bits<<1 | 1, Len: prefix.Len + 1}
	return assign(n.Right, right, t)
}
