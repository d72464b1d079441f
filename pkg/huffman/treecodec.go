package huffman

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"
)

// Tree markers are whole bytes, one per node.
const (
	markerInternal byte = '0'
	markerLeaf     byte = '1'
)

// ErrCorruptTree is returned when a serialized tree cannot be decoded.
var ErrCorruptTree = errors.New("corrupt tree")

// WriteTree serializes the tree rooted at root in preorder. A nil root writes
// nothing.
func WriteTree(w io.Writer, root *Node) error {
	if root == nil {
		return nil
	}
	var buf [5]byte
	if root.IsLeaf() {
		buf[0] = markerLeaf
		binary.LittleEndian.PutUint32(buf[1:], uint32(root.Char))
		if _, err := w.Write(buf[:]); err != nil {
			return fmt.Errorf("write leaf: %w", err)
		}
		return nil
	}
	buf[0] = markerInternal
	if _, err := w.Write(buf[:1]); err != nil {
		return fmt.Errorf("write internal node: %w", err)
	}
	if err := WriteTree(w, root.Left); err != nil {
		return err
	}
	return WriteTree(w, root.Right)
}

// ReadTree decodes a tree written by WriteTree that holds exactly unique
// leaves. unique == 0 reads nothing and returns a nil root.
func ReadTree(r io.Reader, unique int) (*Node, error) {
	if unique < 0 || unique > NumChars {
		return nil, fmt.Errorf("%w: unique symbol count %d", ErrCorruptTree, unique)
	}
	if unique == 0 {
		return nil, nil
	}
	tr := &treeReader{r: r, budget: 2*unique - 1}
	root, err := tr.read()
	if err != nil {
		return nil, err
	}
	if tr.leaves != unique {
		return nil, fmt.Errorf("%w: %d leaves, header says %d", ErrCorruptTree, tr.leaves, unique)
	}
	return root, nil
}

type treeReader struct {
	r      io.Reader
	buf    [4]byte
	budget int // nodes still allowed
	leaves int
}

func (tr *treeReader) read() (*Node, error) {
	if tr.budget == 0 {
		return nil, fmt.Errorf("%w: too many nodes", ErrCorruptTree)
	}
	tr.budget--

	if _, err := io.ReadFull(tr.r, tr.buf[:1]); err != nil {
		return nil, fmt.Errorf("%w: read marker: %v", ErrCorruptTree, err)
	}
	switch tr.buf[0] {
	case markerLeaf:
		if _, err := io.ReadFull(tr.r, tr.buf[:4]); err != nil {
			return nil, fmt.Errorf("%w: read character: %v", ErrCorruptTree, err)
		}
		c := binary.LittleEndian.Uint32(tr.buf[:4])
		if c > utf8.MaxRune {
			return nil, fmt.Errorf("%w: code point %#x out of range", ErrCorruptTree, c)
		}
		tr.leaves++
		return &Node{Char: rune(c)}, nil
	case markerInternal:
		left, err := tr.read()
		if err != nil {
			return nil, err
		}
		right, err := tr.read()
		if err != nil {
			return nil, err
		}
		return &Node{Left: left, Right: right}, nil
	default:
		return nil, fmt.Errorf("%w: bad marker %#x", ErrCorruptTree, tr.buf[0])
	}
}
