package core

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"huffarc/pkg/huffman"
	"huffarc/pkg/progress"

	"github.com/sirupsen/logrus"
)

// Decompress restores every file of the archive at input under outputDir,
// which is created if absent.
func Decompress(ctx context.Context, input, outputDir string, opts Options) error {
	opts, err := opts.withDefaults()
	if err != nil {
		return err
	}
	log := opts.Logger.WithField("strategy", opts.Strategy)

	f, err := os.Open(input)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat input: %w", err)
	}

	br := bufio.NewReaderSize(f, opts.BufferSize)
	m, headerLen, err := ReadHeader(br)
	if err != nil {
		return fmt.Errorf("read header of %s: %w", input, err)
	}

	progress.Init(uint64(info.Size() - headerLen))
	defer progress.Stop()

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("create output dir %s: %w", outputDir, err)
	}

	start := time.Now()
	d := &decompressor{
		opts:      opts,
		log:       log,
		archive:   f,
		size:      info.Size(),
		manifest:  m,
		headerLen: headerLen,
		outputDir: outputDir,
	}
	switch opts.Strategy {
	case Serial:
		err = d.serial(br)
	case Concurrent:
		err = d.concurrent(ctx, br)
	case Parallel:
		err = d.parallel(ctx, br)
	default:
		err = fmt.Errorf("unknown strategy %v", opts.Strategy)
	}
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"files":   len(m.Files),
		"elapsed": time.Since(start),
	}).Info("decompression finished")
	return nil
}

type decompressor struct {
	opts      Options
	log       logrus.FieldLogger
	archive   *os.File
	size      int64
	manifest  *Manifest
	headerLen int64
	outputDir string
}

func (d *decompressor) destPath(i int) string {
	return filepath.Join(d.outputDir, filepath.FromSlash(d.manifest.Files[i].Name))
}

// segmentEnd returns where segment i ends given the probed offsets. The last
// segment runs to the end of the archive.
func (d *decompressor) segmentEnd(offsets []int64, i int) int64 {
	if i+1 < len(offsets) {
		return offsets[i+1]
	}
	return d.size
}

// serial decodes every segment from the shared stream, in manifest order. A
// file that cannot be created is skipped over and reported at the end; a
// failure reading the stream aborts the run.
func (d *decompressor) serial(r io.Reader) error {
	var errs []error
	for i, fe := range d.manifest.Files {
		log := d.log.WithField("file", fe.Name)
		out, err := createDest(d.destPath(i))
		if err != nil {
			log.Warnf("skipping: %v", err)
			errs = append(errs, err)
			n, err := huffman.Skip(r, d.manifest.Root, fe.Chars)
			if err != nil {
				return errors.Join(append(errs, fmt.Errorf("skip %s: %w", fe.Name, err))...)
			}
			progress.AddBytes(uint64(n))
			continue
		}
		n, err := decodeInto(r, out, d.manifest.Root, fe.Chars)
		if err != nil {
			return errors.Join(append(errs, err)...)
		}
		progress.AddBytes(uint64(n))
		log.Debug("decoded")
	}
	return errors.Join(errs...)
}

// concurrent probes segment offsets once, then decodes in goroutine batches.
// Each goroutine reads through its own section of the archive, so there is no
// shared file cursor.
func (d *decompressor) concurrent(ctx context.Context, r io.Reader) error {
	offsets, err := ProbeOffsets(r, d.headerLen, d.manifest.Root, d.manifest.Counts())
	if err != nil {
		return fmt.Errorf("probe offsets: %w", err)
	}

	return runBatches(ctx, len(d.manifest.Files), d.opts.Threads, func(i int) error {
		fe := d.manifest.Files[i]
		sr := io.NewSectionReader(d.archive, offsets[i], d.segmentEnd(offsets, i)-offsets[i])
		n, err := decodeToFile(bufio.NewReaderSize(sr, d.opts.BufferSize), d.destPath(i), d.manifest.Root, fe.Chars)
		if err != nil {
			return err
		}
		progress.AddBytes(uint64(n))
		d.log.WithField("file", fe.Name).Debug("decoded")
		return nil
	})
}

// parallel probes segment offsets, then hands each segment to a worker
// process that reopens the archive and seeks to it.
func (d *decompressor) parallel(ctx context.Context, r io.Reader) error {
	offsets, err := ProbeOffsets(r, d.headerLen, d.manifest.Root, d.manifest.Counts())
	if err != nil {
		return fmt.Errorf("probe offsets: %w", err)
	}
	archive, err := filepath.Abs(d.archive.Name())
	if err != nil {
		return fmt.Errorf("resolve archive path: %w", err)
	}

	tasks := make([]workerTask, len(d.manifest.Files))
	for i, fe := range d.manifest.Files {
		dest, err := filepath.Abs(d.destPath(i))
		if err != nil {
			return fmt.Errorf("resolve %s: %w", d.destPath(i), err)
		}
		segment := d.segmentEnd(offsets, i) - offsets[i]
		tasks[i] = workerTask{
			name: fe.Name,
			args: []string{
				"decode",
				"-archive", archive,
				"-offset", strconv.FormatInt(offsets[i], 10),
				"-chars", strconv.FormatInt(fe.Chars, 10),
				"-output", dest,
			},
			onDone: func() { progress.AddBytes(uint64(segment)) },
		}
	}
	return runProcesses(ctx, d.opts, tasks)
}

// decodeToFile decodes one segment from r into a new file at dest and
// returns the number of archive bytes consumed.
func decodeToFile(r io.Reader, dest string, root *huffman.Node, chars int64) (int64, error) {
	out, err := createDest(dest)
	if err != nil {
		return 0, err
	}
	return decodeInto(r, out, root, chars)
}

// createDest creates dest and any missing parent directories.
func createDest(dest string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return nil, fmt.Errorf("create parent dir for %s: %w", dest, err)
	}
	out, err := os.Create(dest)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", dest, err)
	}
	return out, nil
}

// decodeInto decodes one segment from r into out and closes it.
func decodeInto(r io.Reader, out *os.File, root *huffman.Node, chars int64) (int64, error) {
	n, err := huffman.Decode(r, out, root, chars)
	if err != nil {
		out.Close()
		return n, fmt.Errorf("decode %s: %w", out.Name(), err)
	}
	if err := out.Close(); err != nil {
		return n, fmt.Errorf("close %s: %w", out.Name(), err)
	}
	return n, nil
}
