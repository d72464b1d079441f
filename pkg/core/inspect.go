package core

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"huffarc/pkg/huffman"
)

// Segment describes where one file lives in the bitstream.
type Segment struct {
	FileEntry
	Offset int64
	Size   int64
}

// Layout reads the header of the archive at path and locates every segment.
func Layout(path string) (*Manifest, []Segment, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()

	br := bufio.NewReader(f)
	m, headerLen, err := ReadHeader(br)
	if err != nil {
		return nil, nil, fmt.Errorf("read header of %s: %w", path, err)
	}
	counts := m.Counts()
	offsets, err := ProbeOffsets(br, headerLen, m.Root, counts)
	if err != nil {
		return nil, nil, err
	}

	segments := make([]Segment, len(m.Files))
	for i, fe := range m.Files {
		segments[i] = Segment{FileEntry: fe, Offset: offsets[i]}
		if i > 0 {
			segments[i-1].Size = offsets[i] - offsets[i-1]
		}
	}
	if n := len(segments); n > 0 {
		last, err := huffman.Skip(br, m.Root, counts[n-1])
		if err != nil {
			return nil, nil, fmt.Errorf("probe segment %d: %w", n-1, err)
		}
		segments[n-1].Size = last
	}
	return m, segments, nil
}

// Inspect writes a report on the archive at path to w: header counts, one
// line per file and, when withTree is set, the Huffman tree with its codes.
func Inspect(path string, w io.Writer, withTree bool) error {
	m, segments, err := Layout(path)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "unique symbols: %d\n", m.Unique)
	fmt.Fprintf(w, "characters:     %d\n", m.Total)
	fmt.Fprintf(w, "files:          %d\n\n", len(m.Files))

	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "CHARS\tOFFSET\tBYTES\t NAME")
	for _, s := range segments {
		fmt.Fprintf(tw, "%d\t%d\t%d\t %s\n", s.Chars, s.Offset, s.Size, s.Name)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if withTree {
		codes, err := huffman.AssignCodes(m.Root)
		if err != nil {
			return fmt.Errorf("assign codes: %w", err)
		}
		fmt.Fprintln(w)
		return huffman.Dump(w, m.Root, codes)
	}
	return nil
}
