// Package huffman builds Huffman trees over Unicode code points and packs
// text into byte-aligned bitstream segments.
package huffman

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"unicode/utf8"
)

// NumChars is the size of the code point domain.
const NumChars = utf8.MaxRune + 1

// ErrInvalidUTF8 is returned when input text is not valid UTF-8.
var ErrInvalidUTF8 = errors.New("invalid UTF-8")

// Frequencies is a dense occurrence table indexed by code point.
type Frequencies []uint32

// NewFrequencies returns a zeroed table covering every code point.
func NewFrequencies() Frequencies {
	return make(Frequencies, NumChars)
}

// Merge adds the sparse counts c into f.
func (f Frequencies) Merge(c Counts) {
	for r, n := range c {
		f[r] += n
	}
}

// Unique returns the number of code points with a nonzero count.
func (f Frequencies) Unique() int {
	n := 0
	for _, v := range f {
		if v > 0 {
			n++
		}
	}
	return n
}

// Counts is a sparse per-file frequency table.
type Counts map[rune]uint32

// Count reads runes from r until EOF, adding each one to f.
// It returns the number of characters read.
func Count(r io.Reader, f Frequencies) (int64, error) {
	return count(r, func(c rune) { f[c]++ })
}

// CountSparse is like Count but accumulates into a fresh sparse table.
func CountSparse(r io.Reader) (Counts, int64, error) {
	c := make(Counts)
	n, err := count(r, func(ch rune) { c[ch]++ })
	if err != nil {
		return nil, 0, err
	}
	return c, n, nil
}

// CountFile opens path and counts its characters into f.
func CountFile(path string, f Frequencies) (int64, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	n, err := Count(file, f)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", path, err)
	}
	return n, nil
}

func count(r io.Reader, add func(rune)) (int64, error) {
	br, ok := r.(io.RuneReader)
	if !ok {
		br = bufio.NewReader(r)
	}
	var total int64
	for {
		c, size, err := br.ReadRune()
		if err == io.EOF {
			return total, nil
		}
		if err != nil {
			return 0, err
		}
		if c == utf8.RuneError && size == 1 {
			return 0, fmt.Errorf("%w at character %d", ErrInvalidUTF8, total)
		}
		add(c)
		total++
	}
}
