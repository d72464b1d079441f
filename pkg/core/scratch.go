package core

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pierrec/lz4/v4"
)

// scratch is a directory of per-file temporaries, one per manifest entry,
// concatenated into the archive in manifest order.
type scratch struct {
	dir string
	lz4 bool
}

func newScratch(parent string, compressed bool) (*scratch, error) {
	if err := os.MkdirAll(parent, 0755); err != nil {
		return nil, fmt.Errorf("create scratch parent %s: %w", parent, err)
	}
	dir, err := os.MkdirTemp(parent, "huffarc-scratch-")
	if err != nil {
		return nil, fmt.Errorf("create scratch directory: %w", err)
	}
	return &scratch{dir: dir, lz4: compressed}, nil
}

func (s *scratch) path(i int) string {
	return filepath.Join(s.dir, fmt.Sprintf("%06d.seg", i))
}

// concat appends temporaries 0..n-1 to w and returns the bytes copied.
func (s *scratch) concat(w io.Writer, n int) (int64, error) {
	var total int64
	for i := 0; i < n; i++ {
		r, err := openScratch(s.path(i), s.lz4)
		if err != nil {
			return total, err
		}
		copied, err := io.Copy(w, r)
		r.Close()
		total += copied
		if err != nil {
			return total, fmt.Errorf("copy %s: %w", s.path(i), err)
		}
	}
	return total, nil
}

func (s *scratch) remove() error {
	return os.RemoveAll(s.dir)
}

type scratchWriter struct {
	f  *os.File
	zw *lz4.Writer
}

func createScratch(path string, compressed bool) (*scratchWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	w := &scratchWriter{f: f}
	if compressed {
		w.zw = lz4.NewWriter(f)
	}
	return w, nil
}

func (w *scratchWriter) Write(p []byte) (int, error) {
	if w.zw != nil {
		return w.zw.Write(p)
	}
	return w.f.Write(p)
}

func (w *scratchWriter) Close() error {
	if w.zw != nil {
		if err := w.zw.Close(); err != nil {
			w.f.Close()
			return fmt.Errorf("close LZ4 writer %s: %w", w.f.Name(), err)
		}
	}
	return w.f.Close()
}

type scratchReader struct {
	f *os.File
	r io.Reader
}

func openScratch(path string, compressed bool) (*scratchReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	r := &scratchReader{f: f, r: f}
	if compressed {
		r.r = lz4.NewReader(f)
	}
	return r, nil
}

func (r *scratchReader) Read(p []byte) (int, error) {
	return r.r.Read(p)
}

func (r *scratchReader) Close() error {
	return r.f.Close()
}
