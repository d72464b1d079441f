package core

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func compressCorpus(t *testing.T, files map[string]string) (src, archive string) {
	t.Helper()
	src = t.TempDir()
	writeFiles(t, src, files)
	archive = filepath.Join(t.TempDir(), "corpus.huff")
	if err := Compress(context.Background(), src, archive, testOptions(Serial)); err != nil {
		t.Fatalf("Compression failed: %v", err)
	}
	return src, archive
}

func TestVerify(t *testing.T) {
	src, archive := compressCorpus(t, corpus)
	if err := Verify(archive, src, testOptions(Serial)); err != nil {
		t.Fatalf("Verify of fresh archive failed: %v", err)
	}

	if err := os.WriteFile(filepath.Join(src, "greek.txt"), []byte("changed"), 0644); err != nil {
		t.Fatalf("Failed to modify source: %v", err)
	}
	if err := os.Remove(filepath.Join(src, "one.txt")); err != nil {
		t.Fatalf("Failed to remove source: %v", err)
	}
	err := Verify(archive, src, testOptions(Serial))
	if !errors.Is(err, ErrVerifyMismatch) {
		t.Fatalf("Verify error = %v, want ErrVerifyMismatch", err)
	}
	for _, want := range []string{"greek.txt", "one.txt (missing)"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %q", err, want)
		}
	}
	if strings.Contains(err.Error(), "emoji.txt") {
		t.Errorf("error %q names an unchanged file", err)
	}
}

func TestInspect(t *testing.T) {
	_, archive := compressCorpus(t, map[string]string{"a.txt": "aaab", "b.txt": "bbba"})

	var buf bytes.Buffer
	if err := Inspect(archive, &buf, true); err != nil {
		t.Fatalf("Inspect failed: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"unique symbols: 2",
		"characters:     8",
		"files:          2",
		"a.txt",
		"b.txt",
		"Node\n",
		"  'a': 0\n",
		"  'b': 1\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Inspect output missing %q:\n%s", want, out)
		}
	}

	_, segments, err := Layout(archive)
	if err != nil {
		t.Fatalf("Layout failed: %v", err)
	}
	want := []Segment{
		{FileEntry: FileEntry{Name: "a.txt", Chars: 4}, Offset: 49, Size: 1},
		{FileEntry: FileEntry{Name: "b.txt", Chars: 4}, Offset: 50, Size: 1},
	}
	if len(segments) != len(want) {
		t.Fatalf("Layout returned %d segments, want %d", len(segments), len(want))
	}
	for i := range want {
		if segments[i] != want[i] {
			t.Errorf("segment %d = %+v, want %+v", i, segments[i], want[i])
		}
	}
}

func TestInspectCorruptArchive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "junk.huff")
	if err := os.WriteFile(path, []byte("not an archive"), 0644); err != nil {
		t.Fatalf("Failed to write junk: %v", err)
	}
	if err := Inspect(path, &bytes.Buffer{}, false); !errors.Is(err, ErrCorruptArchive) {
		t.Errorf("Inspect error = %v, want ErrCorruptArchive", err)
	}
}
