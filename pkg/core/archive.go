package core

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"path"
	"path/filepath"

	"huffarc/pkg/huffman"
)

// MaxNameLen is the longest file name accepted in a manifest.
const MaxNameLen = 4096

var (
	// ErrCorruptArchive is returned when an archive header is inconsistent
	// or truncated.
	ErrCorruptArchive = errors.New("corrupt archive")

	// ErrTooLarge is returned when a count does not fit the archive's
	// 32-bit fields.
	ErrTooLarge = errors.New("count exceeds archive limit")
)

// Entry holds file information for compression
type Entry struct {
	RelPath  string // Slash-separated path within the archive
	FilePath string // Full file path on disk
}

// FileEntry is one manifest record.
type FileEntry struct {
	Name  string // Slash-separated relative path
	Chars int64  // Number of characters, not bytes
}

// Manifest is the archive header. Files are stored in segment order.
type Manifest struct {
	Unique int
	Total  int64
	Root   *huffman.Node
	Files  []FileEntry
}

// Counts returns the per-file character counts in manifest order.
func (m *Manifest) Counts() []int64 {
	counts := make([]int64, len(m.Files))
	for i, f := range m.Files {
		counts[i] = f.Chars
	}
	return counts
}

// WriteHeader writes m in archive layout: unique count, total, tree, file
// count, names and per-file character counts. Integers are 4-byte
// little-endian.
func WriteHeader(w io.Writer, m *Manifest) error {
	if err := writeInt32(w, int64(m.Unique), "unique symbol count"); err != nil {
		return err
	}
	if err := writeInt32(w, m.Total, "total character count"); err != nil {
		return err
	}
	if err := huffman.WriteTree(w, m.Root); err != nil {
		return fmt.Errorf("write tree: %w", err)
	}
	if err := writeInt32(w, int64(len(m.Files)), "file count"); err != nil {
		return err
	}
	for _, f := range m.Files {
		if len(f.Name) > MaxNameLen {
			return fmt.Errorf("name %q: %w", f.Name, ErrTooLarge)
		}
		if err := writeInt32(w, int64(len(f.Name)), "name length"); err != nil {
			return err
		}
		if _, err := io.WriteString(w, f.Name); err != nil {
			return fmt.Errorf("write name: %w", err)
		}
	}
	for _, f := range m.Files {
		if err := writeInt32(w, f.Chars, "character count of "+f.Name); err != nil {
			return err
		}
	}
	return nil
}

func writeInt32(w io.Writer, v int64, what string) error {
	if v < 0 || v > math.MaxInt32 {
		return fmt.Errorf("%s %d: %w", what, v, ErrTooLarge)
	}
	if err := binary.Write(w, binary.LittleEndian, int32(v)); err != nil {
		return fmt.Errorf("write %s: %w", what, err)
	}
	return nil
}

// ReadHeader reads an archive header from r and returns it with its length
// in bytes, which is the offset of the first segment. r is left positioned
// at that offset.
func ReadHeader(r io.Reader) (*Manifest, int64, error) {
	cr := &countingReader{r: r}
	m, err := readHeader(cr)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrCorruptArchive, err)
	}
	return m, cr.n, nil
}

func readHeader(r io.Reader) (*Manifest, error) {
	unique, err := readInt32(r, "unique symbol count")
	if err != nil {
		return nil, err
	}
	total, err := readInt32(r, "total character count")
	if err != nil {
		return nil, err
	}
	root, err := huffman.ReadTree(r, int(unique))
	if err != nil {
		return nil, err
	}
	numFiles, err := readInt32(r, "file count")
	if err != nil {
		return nil, err
	}

	files := make([]FileEntry, 0, min(numFiles, 1024))
	for i := 0; i < int(numFiles); i++ {
		nameLen, err := readInt32(r, "name length")
		if err != nil {
			return nil, err
		}
		if nameLen == 0 || nameLen > MaxNameLen {
			return nil, fmt.Errorf("name %d: bad length %d", i, nameLen)
		}
		name := make([]byte, nameLen)
		if _, err := io.ReadFull(r, name); err != nil {
			return nil, fmt.Errorf("read name %d: %w", i, err)
		}
		if !filepath.IsLocal(filepath.FromSlash(string(name))) {
			return nil, fmt.Errorf("unsafe file name %q", name)
		}
		files = append(files, FileEntry{Name: string(name)})
	}
	if err := checkNames(files); err != nil {
		return nil, err
	}

	var sum int64
	for i := range files {
		n, err := readInt32(r, "character count")
		if err != nil {
			return nil, err
		}
		files[i].Chars = n
		sum += n
	}
	if sum != total {
		return nil, fmt.Errorf("file character counts sum to %d, header says %d", sum, total)
	}
	if total > 0 && root == nil {
		return nil, fmt.Errorf("%d characters but no symbols", total)
	}

	return &Manifest{
		Unique: int(unique),
		Total:  total,
		Root:   root,
		Files:  files,
	}, nil
}

// checkNames requires every name to be clean and to map to its own output
// file: no duplicates, and no name that is a directory of another.
func checkNames(files []FileEntry) error {
	seen := make(map[string]bool, len(files))
	for _, f := range files {
		if clean := path.Clean(f.Name); clean != f.Name || clean == "." {
			return fmt.Errorf("file name %q is not clean", f.Name)
		}
		if seen[f.Name] {
			return fmt.Errorf("duplicate file name %q", f.Name)
		}
		seen[f.Name] = true
	}
	for _, f := range files {
		for dir := path.Dir(f.Name); dir != "."; dir = path.Dir(dir) {
			if seen[dir] {
				return fmt.Errorf("file name %q is a directory of %q", dir, f.Name)
			}
		}
	}
	return nil
}

func readInt32(r io.Reader, what string) (int64, error) {
	var v int32
	if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
		return 0, fmt.Errorf("read %s: %w", what, err)
	}
	if v < 0 {
		return 0, fmt.Errorf("negative %s %d", what, v)
	}
	return int64(v), nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (cr *countingReader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	cr.n += int64(n)
	return n, err
}
