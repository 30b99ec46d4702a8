package loader

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoad_PlainText(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "a.txt")
	if err := os.WriteFile(p, []byte("hello semantic world"), 0o644); err != nil {
		t.Fatal(err)
	}

	chunks, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Text != "hello semantic world" {
		t.Fatalf("text = %q", chunks[0].Text)
	}
	if !filepath.IsAbs(chunks[0].Source) {
		t.Fatalf("source not absolute: %s", chunks[0].Source)
	}
}

func TestLoad_RejectsBinary(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "blob.bin")
	if err := os.WriteFile(p, []byte{1, 2, 0, 3, 4}, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(p); err == nil {
		t.Fatal("expected error for binary content")
	}
}

func TestLoad_EmptyFileYieldsZeroChunks(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "empty.txt")
	if err := os.WriteFile(p, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	chunks, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(chunks) != 0 {
		t.Fatalf("expected 0 chunks, got %d", len(chunks))
	}
}

func TestSplitText_Short(t *testing.T) {
	got := SplitText("short text")
	if len(got) != 1 || got[0] != "short text" {
		t.Fatalf("got %v", got)
	}
	if SplitText("   \n\t ") != nil {
		t.Fatal("whitespace-only input should yield no chunks")
	}
}

func TestSplitText_LongWithOverlap(t *testing.T) {
	word := "word "
	text := strings.Repeat(word, 1000) // 5000 runes

	chunks := SplitText(text)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if n := len([]rune(c)); n > chunkSize {
			t.Fatalf("chunk %d too large: %d runes", i, n)
		}
	}
	// consecutive chunks share overlapping text
	first := []rune(chunks[0])
	tail := string(first[len(first)-50:])
	if !strings.Contains(chunks[1], strings.TrimSpace(tail)) {
		t.Fatalf("no overlap between chunks 0 and 1")
	}
}
