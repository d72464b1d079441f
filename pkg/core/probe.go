package core

import (
	"fmt"
	"io"

	"huffarc/pkg/huffman"
)

// ProbeOffsets returns the archive offset of every segment. r must be
// positioned at start, the end of the header; counts are the per-file
// character counts in manifest order. Segment i is located by skipping
// segments 0..i-1, so the last segment is never read.
func ProbeOffsets(r io.Reader, start int64, root *huffman.Node, counts []int64) ([]int64, error) {
	offsets := make([]int64, len(counts))
	if len(counts) == 0 {
		return offsets, nil
	}
	offsets[0] = start
	for i := 1; i < len(counts); i++ {
		n, err := huffman.Skip(r, root, counts[i-1])
		if err != nil {
			return nil, fmt.Errorf("probe segment %d: %w", i-1, err)
		}
		offsets[i] = offsets[i-1] + n
	}
	return offsets, nil
}
