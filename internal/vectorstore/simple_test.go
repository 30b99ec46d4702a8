package vectorstore

import (
	"context"
	"hash/fnv"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/kamusis/mbed-cli/internal/loader"
)

// stubProvider embeds text as a deterministic bag-of-words histogram.
type stubProvider struct{ dim int }

func (p stubProvider) ModelID() string { return "stub:test" }
func (p stubProvider) Dim() int        { return p.dim }

func (p stubProvider) Embed(_ context.Context, text string) ([]float32, error) {
	v := make([]float32, p.dim)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(w))
		v[h.Sum32()%uint32(p.dim)]++
	}
	return v, nil
}

func openTestStore(t *testing.T, dir string) Store {
	t.Helper()
	s, err := Open(KindSimple, dir, stubProvider{dim: 16}, zerolog.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return s
}

func TestSimple_InsertQueryDelete(t *testing.T) {
	dir := t.TempDir()
	s := openTestStore(t, dir)
	ctx := context.Background()

	idsA, err := s.Insert(ctx, []loader.Chunk{
		{Text: "the quick brown fox", Source: "/docs/a.txt"},
		{Text: "jumps over the lazy dog", Source: "/docs/a.txt"},
	})
	if err != nil {
		t.Fatalf("Insert a: %v", err)
	}
	if len(idsA) != 2 {
		t.Fatalf("expected 2 ids, got %d", len(idsA))
	}

	idsB, err := s.Insert(ctx, []loader.Chunk{
		{Text: "entirely different words here", Source: "/docs/b.txt"},
	})
	if err != nil {
		t.Fatalf("Insert b: %v", err)
	}

	hits, err := s.Query(ctx, "quick brown fox", 10)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(hits) != 3 {
		t.Fatalf("expected 3 hits, got %d", len(hits))
	}
	if hits[0].Source != "/docs/a.txt" {
		t.Fatalf("best hit should be a.txt, got %s (score %.3f)", hits[0].Source, hits[0].Score)
	}
	for i := 1; i < len(hits); i++ {
		if hits[i].Score > hits[i-1].Score {
			t.Fatalf("hits not sorted by score desc")
		}
	}

	if err := s.DeleteByID(ctx, idsB[0]); err != nil {
		t.Fatalf("DeleteByID: %v", err)
	}
	hits, err = s.Query(ctx, "different words", 10)
	if err != nil {
		t.Fatal(err)
	}
	for _, h := range hits {
		if h.ChunkID == idsB[0] {
			t.Fatalf("deleted chunk still returned")
		}
	}
}

func TestSimple_DeleteUnknownID(t *testing.T) {
	s := openTestStore(t, t.TempDir())
	if err := s.DeleteByID(context.Background(), "no-such-id"); err == nil {
		t.Fatal("expected error for unknown chunk id")
	}
}

func TestSimple_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s := openTestStore(t, dir)
	ids, err := s.Insert(ctx, []loader.Chunk{{Text: "persistent content", Source: "/x.txt"}})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	s2 := openTestStore(t, dir)
	hits, err := s2.Query(ctx, "persistent content", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 || hits[0].ChunkID != ids[0] || hits[0].Source != "/x.txt" {
		t.Fatalf("reopened store lost data: %+v", hits)
	}
}

func TestSimple_BulkBuildGroupsBySource(t *testing.T) {
	s := openTestStore(t, t.TempDir())
	got, err := s.BulkBuild(context.Background(), []loader.Chunk{
		{Text: "one", Source: "/a"},
		{Text: "two", Source: "/b"},
		{Text: "three", Source: "/a"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(got["/a"]) != 2 || len(got["/b"]) != 1 {
		t.Fatalf("wrong grouping: %v", got)
	}
}

func TestParseKind(t *testing.T) {
	if _, err := ParseKind("sqlite"); err != nil {
		t.Fatal(err)
	}
	if _, err := ParseKind("simple"); err != nil {
		t.Fatal(err)
	}
	if _, err := ParseKind("chromadb"); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}
