package core

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"huffarc/pkg/huffman"

	"github.com/cespare/xxhash/v2"
)

// ErrVerifyMismatch is returned by Verify when decoded content differs from
// the source files.
var ErrVerifyMismatch = errors.New("archive does not match source")

// Verify decodes every file of the archive at path and compares its xxhash64
// digest with the digest of the same name under sourceDir.
func Verify(path, sourceDir string, opts Options) error {
	opts, err := opts.withDefaults()
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()

	br := bufio.NewReaderSize(f, opts.BufferSize)
	m, _, err := ReadHeader(br)
	if err != nil {
		return fmt.Errorf("read header of %s: %w", path, err)
	}

	var mismatched []string
	for _, fe := range m.Files {
		decoded := xxhash.New()
		if _, err := huffman.Decode(br, decoded, m.Root, fe.Chars); err != nil {
			return fmt.Errorf("decode %s: %w", fe.Name, err)
		}

		want, err := digestFile(filepath.Join(sourceDir, filepath.FromSlash(fe.Name)))
		switch {
		case errors.Is(err, os.ErrNotExist):
			mismatched = append(mismatched, fe.Name+" (missing)")
		case err != nil:
			return err
		case want != decoded.Sum64():
			mismatched = append(mismatched, fe.Name)
		}
	}
	if len(mismatched) > 0 {
		return fmt.Errorf("%w: %s", ErrVerifyMismatch, strings.Join(mismatched, ", "))
	}
	opts.Logger.WithField("files", len(m.Files)).Info("archive verified")
	return nil
}

func digestFile(path string) (uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	d := xxhash.New()
	if _, err := io.Copy(d, f); err != nil {
		return 0, fmt.Errorf("read %s: %w", path, err)
	}
	return d.Sum64(), nil
}
