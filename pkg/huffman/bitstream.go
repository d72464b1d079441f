package huffman

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/dgryski/go-bitstream"
)

// ErrTruncated is returned when a segment ends before all of its characters
// have been decoded.
var ErrTruncated = errors.New("truncated segment")

// Encode reads UTF-8 text from r and writes its packed codes to w, most
// significant bit first. The last byte is zero-padded, so every call leaves w
// on a byte boundary. It returns the number of characters encoded and the
// number of bytes written.
func Encode(r io.Reader, w io.Writer, codes CodeTable) (chars, written int64, err error) {
	rr, ok := r.(io.RuneReader)
	if !ok {
		rr = bufio.NewReader(r)
	}
	buf := bufio.NewWriter(w)
	cw := &countingWriter{w: buf}
	bw := bitstream.NewWriter(cw)

	for {
		c, size, err := rr.ReadRune()
		if err == io.EOF {
			break
		}
		if err != nil {
			return chars, cw.n, fmt.Errorf("read character %d: %w", chars, err)
		}
		if c == utf8.RuneError && size == 1 {
			return chars, cw.n, fmt.Errorf("%w at character %d", ErrInvalidUTF8, chars)
		}
		code, err := codes.Lookup(c)
		if err != nil {
			return chars, cw.n, err
		}
		if err := bw.WriteBits(code.Bits, int(code.Len)); err != nil {
			return chars, cw.n, fmt.Errorf("write code: %w", err)
		}
		chars++
	}
	if err := bw.Flush(bitstream.Zero); err != nil {
		return chars, cw.n, fmt.Errorf("pad segment: %w", err)
	}
	if err := buf.Flush(); err != nil {
		return chars, cw.n, fmt.Errorf("flush segment: %w", err)
	}
	return chars, cw.n, nil
}

// Decode reads one segment of n characters from r, walking the tree from
// root one bit at a time, and writes the text to w. It stops right after the
// n-th character, so r is left at the start of the next segment. It returns
// the number of bytes consumed from r. A nil w discards the text.
func Decode(r io.Reader, w io.Writer, root *Node, n int64) (int64, error) {
	if n == 0 {
		return 0, nil
	}
	if root == nil {
		return 0, fmt.Errorf("%w: %d characters but no tree", ErrCorruptTree, n)
	}

	cr := &countingReader{r: r}
	br := bitstream.NewReader(cr)
	var out *bufio.Writer
	if w != nil {
		out = bufio.NewWriter(w)
	}
	emit := func(c rune) error {
		if out == nil {
			return nil
		}
		_, err := out.WriteRune(c)
		return err
	}

	var decoded int64
	node := root
	for decoded < n {
		bit, err := br.ReadBit()
		if err == io.EOF {
			return cr.n, fmt.Errorf("%w: %d of %d characters", ErrTruncated, decoded, n)
		}
		if err != nil {
			return cr.n, fmt.Errorf("read bit: %w", err)
		}
		if !root.IsLeaf() {
			if bit == bitstream.One {
				node = node.Right
			} else {
				node = node.Left
			}
			if !node.IsLeaf() {
				continue
			}
		}
		if err := emit(node.Char); err != nil {
			return cr.n, fmt.Errorf("write character: %w", err)
		}
		node = root
		decoded++
	}
	if out != nil {
		if err := out.Flush(); err != nil {
			return cr.n, fmt.Errorf("flush output: %w", err)
		}
	}
	return cr.n, nil
}

// Skip decodes a segment without producing output and returns the number of
// bytes it occupies.
func Skip(r io.Reader, root *Node, n int64) (int64, error) {
	return Decode(r, nil, root, n)
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	return n, err
}

type countingReader struct {
	r io.Reader
	n int64
}

func (cr *countingReader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	cr.n += int64(n)
	if n == 0 && err == nil && len(p) > 0 {
		return 0, io.ErrNoProgress
	}
	return n, err
}
