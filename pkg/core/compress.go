package core

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"huffarc/pkg/huffman"
	"huffarc/pkg/progress"

	"github.com/sirupsen/logrus"
)

// Compress packs every regular file under input, or input itself when it is
// a file, into a new archive at output.
func Compress(ctx context.Context, input, output string, opts Options) error {
	opts, err := opts.withDefaults()
	if err != nil {
		return err
	}
	log := opts.Logger.WithField("strategy", opts.Strategy)

	info, err := os.Stat(input)
	if err != nil {
		return fmt.Errorf("stat input: %w", err)
	}

	var entries []Entry
	if info.IsDir() {
		entries, err = collectDirEntries(input, output, log)
		if err != nil {
			return fmt.Errorf("collect entries: %w", err)
		}
	} else {
		entries = []Entry{{RelPath: filepath.Base(input), FilePath: input}}
	}

	// Calculate total size for progress
	sizes := entrySizes(entries)
	var totalSize uint64
	for _, s := range sizes {
		totalSize += uint64(s)
	}
	progress.Init(totalSize)
	defer progress.Stop()

	start := time.Now()
	c := &compressor{
		opts:    opts,
		log:     log,
		entries: entries,
		sizes:   sizes,
		output:  output,
	}
	if err := c.run(ctx); err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"files":   len(entries),
		"elapsed": time.Since(start),
	}).Info("compression finished")
	return nil
}

// entrySizes returns the size of each entry in bytes, 0 when it cannot be
// determined.
func entrySizes(entries []Entry) []int64 {
	sizes := make([]int64, len(entries))
	for i, entry := range entries {
		info, err := os.Stat(entry.FilePath)
		if err != nil {
			continue
		}
		sizes[i] = info.Size()
	}
	return sizes
}

// collectDirEntries gathers all regular files under root with slash-separated
// relative paths, in lexical order. Symlinks to regular files are followed;
// other entries are skipped. The file at exclude is skipped.
func collectDirEntries(root, exclude string, log logrus.FieldLogger) ([]Entry, error) {
	excludeAbs, err := filepath.Abs(exclude)
	if err != nil {
		return nil, fmt.Errorf("resolve output path: %w", err)
	}
	var entries []Entry
	err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		if info.Mode()&os.ModeSymlink != 0 {
			target, err := os.Stat(path)
			if err != nil {
				log.WithField("file", path).Debugf("skipping unresolvable symlink: %v", err)
				return nil
			}
			info = target
		}
		if !info.Mode().IsRegular() {
			log.WithFields(logrus.Fields{"file": path, "mode": info.Mode().Type()}).Debug("skipping non-regular file")
			return nil
		}
		if abs, err := filepath.Abs(path); err == nil && abs == excludeAbs {
			return nil
		}
		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return fmt.Errorf("relative path for %s: %w", path, err)
		}
		entries = append(entries, Entry{RelPath: filepath.ToSlash(relPath), FilePath: path})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk directory %s: %w", root, err)
	}
	return entries, nil
}

type compressor struct {
	opts    Options
	log     logrus.FieldLogger
	entries []Entry
	sizes   []int64
	output  string
}

func (c *compressor) run(ctx context.Context) error {
	var (
		freqs  huffman.Frequencies
		counts []int64
		err    error
	)
	if c.opts.Strategy == Concurrent {
		freqs, counts, err = c.countConcurrent(ctx)
	} else {
		freqs, counts, err = c.countSerial()
	}
	if err != nil {
		return err
	}

	m, codes, err := buildManifest(freqs, c.entries, counts)
	if err != nil {
		return err
	}
	c.log.WithFields(logrus.Fields{
		"unique": m.Unique,
		"chars":  m.Total,
	}).Debug("tree built")

	f, err := createOutput(c.output)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriterSize(f, c.opts.BufferSize)
	if err := WriteHeader(w, m); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush header: %w", err)
	}

	switch c.opts.Strategy {
	case Serial:
		err = c.encodeSerial(w, codes, counts)
	case Concurrent:
		err = c.encodeConcurrent(ctx, w, codes, counts)
	case Parallel:
		err = c.encodeParallel(ctx, w, counts)
	default:
		err = fmt.Errorf("unknown strategy %v", c.opts.Strategy)
	}
	if err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}
	return f.Close()
}

// countSerial counts every file into one table, in manifest order.
func (c *compressor) countSerial() (huffman.Frequencies, []int64, error) {
	freqs := huffman.NewFrequencies()
	counts := make([]int64, len(c.entries))
	for i, entry := range c.entries {
		n, err := huffman.CountFile(entry.FilePath, freqs)
		if err != nil {
			return nil, nil, err
		}
		counts[i] = n
	}
	return freqs, counts, nil
}

// countConcurrent counts files in goroutine batches. Each worker counts into
// its own sparse table and holds the shared table's lock only to merge.
func (c *compressor) countConcurrent(ctx context.Context) (huffman.Frequencies, []int64, error) {
	freqs := huffman.NewFrequencies()
	counts := make([]int64, len(c.entries))
	var mu sync.Mutex

	err := runBatches(ctx, len(c.entries), c.opts.Threads, func(i int) error {
		path := c.entries[i].FilePath
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open %s: %w", path, err)
		}
		defer f.Close()

		local, n, err := huffman.CountSparse(bufio.NewReaderSize(f, c.opts.BufferSize))
		if err != nil {
			return fmt.Errorf("count %s: %w", path, err)
		}
		mu.Lock()
		freqs.Merge(local)
		mu.Unlock()
		counts[i] = n
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return freqs, counts, nil
}

func buildManifest(freqs huffman.Frequencies, entries []Entry, counts []int64) (*Manifest, huffman.CodeTable, error) {
	root, unique := huffman.BuildTree(freqs)
	codes, err := huffman.AssignCodes(root)
	if err != nil {
		return nil, nil, fmt.Errorf("assign codes: %w", err)
	}
	m := &Manifest{
		Unique: unique,
		Root:   root,
		Files:  make([]FileEntry, len(entries)),
	}
	for i, entry := range entries {
		m.Files[i] = FileEntry{Name: entry.RelPath, Chars: counts[i]}
		m.Total += counts[i]
	}
	return m, codes, nil
}

// createOutput replaces any existing file at output.
func createOutput(output string) (*os.File, error) {
	if _, err := os.Stat(output); err == nil {
		if err := os.Remove(output); err != nil {
			return nil, fmt.Errorf("remove existing output: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("check output existence: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(output), 0755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	f, err := os.Create(output)
	if err != nil {
		return nil, fmt.Errorf("create output: %w", err)
	}
	return f, nil
}

// encodeFile encodes the file at path into w and checks that it still holds
// the number of characters counted earlier.
func encodeFile(path string, w io.Writer, codes huffman.CodeTable, want int64, bufSize int) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := bufio.NewReaderSize(&progress.Reader{R: f}, bufSize)
	n, _, err := huffman.Encode(r, w, codes)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if n != want {
		return fmt.Errorf("encode %s: %d characters, counted %d; file changed during compression", path, n, want)
	}
	return nil
}

func (c *compressor) encodeSerial(w io.Writer, codes huffman.CodeTable, counts []int64) error {
	for i, entry := range c.entries {
		if err := encodeFile(entry.FilePath, w, codes, counts[i], c.opts.BufferSize); err != nil {
			return err
		}
		c.log.WithField("file", entry.RelPath).Debug("encoded")
	}
	return nil
}

func (c *compressor) scratchParent() string {
	if c.opts.ScratchDir != "" {
		return c.opts.ScratchDir
	}
	return filepath.Dir(c.output)
}

func (c *compressor) encodeConcurrent(ctx context.Context, w io.Writer, codes huffman.CodeTable, counts []int64) error {
	s, err := newScratch(c.scratchParent(), c.opts.ScratchLZ4)
	if err != nil {
		return err
	}
	defer s.remove()

	err = runBatches(ctx, len(c.entries), c.opts.Threads, func(i int) error {
		entry := c.entries[i]
		sw, err := createScratch(s.path(i), s.lz4)
		if err != nil {
			return err
		}
		if err := encodeFile(entry.FilePath, sw, codes, counts[i], c.opts.BufferSize); err != nil {
			sw.Close()
			return err
		}
		if err := sw.Close(); err != nil {
			return err
		}
		c.log.WithField("file", entry.RelPath).Debug("encoded")
		return nil
	})
	if err != nil {
		return err
	}

	if _, err := s.concat(w, len(c.entries)); err != nil {
		return fmt.Errorf("concatenate segments: %w", err)
	}
	return nil
}

// encodeParallel runs one worker process per file. The header is already on
// disk, so each worker reads the tree back from the archive.
func (c *compressor) encodeParallel(ctx context.Context, w io.Writer, counts []int64) error {
	archive, err := filepath.Abs(c.output)
	if err != nil {
		return fmt.Errorf("resolve archive path: %w", err)
	}
	s, err := newScratch(c.scratchParent(), c.opts.ScratchLZ4)
	if err != nil {
		return err
	}
	defer s.remove()

	tasks := make([]workerTask, len(c.entries))
	for i, entry := range c.entries {
		input, err := filepath.Abs(entry.FilePath)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", entry.FilePath, err)
		}
		size := c.sizes[i]
		tasks[i] = workerTask{
			name: entry.RelPath,
			args: []string{
				"encode",
				"-archive", archive,
				"-input", input,
				"-output", s.path(i),
				"-chars", strconv.FormatInt(counts[i], 10),
				"-lz4=" + strconv.FormatBool(s.lz4),
			},
			onDone: func() { progress.AddBytes(uint64(size)) },
		}
	}
	if err := runProcesses(ctx, c.opts, tasks); err != nil {
		return err
	}

	if _, err := s.concat(w, len(c.entries)); err != nil {
		return fmt.Errorf("concatenate segments: %w", err)
	}
	return nil
}
