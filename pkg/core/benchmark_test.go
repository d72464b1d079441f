package core

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// benchCorpus writes files text files of size bytes each into a new
// directory.
func benchCorpus(b *testing.B, files, size int) string {
	b.Helper()
	dir, err := os.MkdirTemp("", "huffarc-bench")
	if err != nil {
		b.Fatalf("Failed to create temp directory: %v", err)
	}
	b.Cleanup(func() { os.RemoveAll(dir) })

	line := "The quick brown fox jumps over the lazy dog. Größe, naïve, 東京.\n"
	content := strings.Repeat(line, size/len(line)+1)[:size]
	// Cut back to a rune boundary.
	for len(content) > 0 && content[len(content)-1]&0xC0 == 0x80 {
		content = content[:len(content)-1]
	}
	for i := 0; i < files; i++ {
		path := filepath.Join(dir, fmt.Sprintf("file%03d.txt", i))
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			b.Fatalf("Failed to write test file: %v", err)
		}
	}
	return dir
}

func benchOptions(s Strategy) Options {
	opts := testOptions(s)
	opts.Threads = DefaultThreads
	opts.Processes = DefaultProcesses
	return opts
}

// BenchmarkCompression benchmarks each strategy on 32 files of 256KB.
func BenchmarkCompression(b *testing.B) {
	src := benchCorpus(b, 32, 256*1024)
	for _, s := range Strategies {
		b.Run(s.String(), func(b *testing.B) {
			archive := filepath.Join(b.TempDir(), "bench.huff")
			b.SetBytes(32 * 256 * 1024)
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if err := Compress(context.Background(), src, archive, benchOptions(s)); err != nil {
					b.Fatalf("Compression failed: %v", err)
				}
			}
		})
	}
}

// BenchmarkDecompression benchmarks each strategy on the same archive.
func BenchmarkDecompression(b *testing.B) {
	src := benchCorpus(b, 32, 256*1024)
	archive := filepath.Join(b.TempDir(), "bench.huff")
	if err := Compress(context.Background(), src, archive, benchOptions(Serial)); err != nil {
		b.Fatalf("Compression failed during setup: %v", err)
	}

	for _, s := range Strategies {
		b.Run(s.String(), func(b *testing.B) {
			b.SetBytes(32 * 256 * 1024)
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				out := filepath.Join(b.TempDir(), fmt.Sprintf("decompressed_%d", i))
				if err := Decompress(context.Background(), archive, out, benchOptions(s)); err != nil {
					b.Fatalf("Decompression failed: %v", err)
				}
			}
		})
	}
}
