package core

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"huffarc/pkg/huffman"

	"github.com/sirupsen/logrus"
)

// workerEnv marks a process started by the process pool.
const workerEnv = "HUFFARC_WORKER"

// MaybeRunWorker runs the worker task named by os.Args and exits when the
// process was started by the process pool. Otherwise it returns immediately.
// Call it before any other initialisation in main and in TestMain.
func MaybeRunWorker() {
	if os.Getenv(workerEnv) != "1" {
		return
	}
	log := logrus.New()
	log.SetOutput(os.Stderr)

	args := os.Args[1:]
	if len(args) > 0 && args[0] == "worker" {
		args = args[1:]
	}
	if err := RunWorker(args, log); err != nil {
		log.Error(err)
		os.Exit(1)
	}
	os.Exit(0)
}

// RunWorker runs one worker task:
//
//	encode -archive A -input F -output T -chars N [-lz4]
//	decode -archive A -offset O -chars N -output F
//
// Both tasks read the tree from the header of archive A.
func RunWorker(args []string, log logrus.FieldLogger) error {
	if len(args) == 0 {
		return errors.New("worker: missing task")
	}
	task := args[0]
	fs := flag.NewFlagSet("worker "+task, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	archive := fs.String("archive", "", "archive to read the tree from")
	output := fs.String("output", "", "file to write")
	chars := fs.Int64("chars", 0, "characters in the segment")

	switch task {
	case "encode":
		input := fs.String("input", "", "file to encode")
		compressed := fs.Bool("lz4", false, "frame the output with LZ4")
		if err := fs.Parse(args[1:]); err != nil {
			return fmt.Errorf("worker %s: %w", task, err)
		}
		log.WithField("file", *input).Debug("encode worker")
		return encodeWorker(*archive, *input, *output, *chars, *compressed)
	case "decode":
		offset := fs.Int64("offset", -1, "segment offset in the archive")
		if err := fs.Parse(args[1:]); err != nil {
			return fmt.Errorf("worker %s: %w", task, err)
		}
		log.WithField("file", *output).Debug("decode worker")
		return decodeWorker(*archive, *offset, *chars, *output)
	}
	return fmt.Errorf("worker: unknown task %q", task)
}

// readManifest reads the header of the archive at path.
func readManifest(path string) (*Manifest, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()

	m, headerLen, err := ReadHeader(bufio.NewReader(f))
	if err != nil {
		return nil, 0, fmt.Errorf("read header of %s: %w", path, err)
	}
	return m, headerLen, nil
}

func encodeWorker(archive, input, output string, chars int64, compressed bool) error {
	m, _, err := readManifest(archive)
	if err != nil {
		return err
	}
	codes, err := huffman.AssignCodes(m.Root)
	if err != nil {
		return fmt.Errorf("assign codes: %w", err)
	}

	sw, err := createScratch(output, compressed)
	if err != nil {
		return err
	}
	if err := encodeFile(input, sw, codes, chars, DefaultBufferSize); err != nil {
		sw.Close()
		return err
	}
	return sw.Close()
}

func decodeWorker(archive string, offset, chars int64, output string) error {
	m, headerLen, err := readManifest(archive)
	if err != nil {
		return err
	}
	if offset < headerLen {
		return fmt.Errorf("offset %d inside header of %d bytes", offset, headerLen)
	}

	f, err := os.Open(archive)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()

	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return fmt.Errorf("seek to %d: %w", offset, err)
	}
	_, err = decodeToFile(bufio.NewReader(f), output, m.Root, chars)
	return err
}
