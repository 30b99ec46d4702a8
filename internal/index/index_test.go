package index

import (
	"context"
	"errors"
	"hash/fnv"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/gofrs/flock"
	"github.com/rs/zerolog"

	"github.com/kamusis/mbed-cli/internal/loader"
	"github.com/kamusis/mbed-cli/internal/manifest"
	"github.com/kamusis/mbed-cli/internal/vectorstore"
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

var testProv = stubProvider{dim: 16}

func writeFile(t *testing.T, root, rel, content string) string {
	t.Helper()
	p := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func buildTestIndex(t *testing.T, root string, opts BuildOptions) *BuildResult {
	t.Helper()
	if opts.Storage == "" {
		opts.Storage = vectorstore.KindSimple
	}
	if opts.TopK == 0 {
		opts.TopK = 3
	}
	res, err := Build(context.Background(), root, testProv, opts, zerolog.Nop())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return res
}

// storeSources queries the store with a large k and returns the set of
// source paths still present.
func storeSources(t *testing.T, root string, m *manifest.Manifest) map[string]bool {
	t.Helper()
	store, err := vectorstore.Open(m.Storage, manifest.Dir(root), testProv, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	hits, err := store.Query(context.Background(), "anything at all", 1000)
	if err != nil {
		t.Fatal(err)
	}
	out := map[string]bool{}
	for _, h := range hits {
		out[h.Source] = true
	}
	return out
}

func TestBuild_EmptyDirectory(t *testing.T) {
	root := t.TempDir()

	_, err := Build(context.Background(), root, testProv, BuildOptions{
		Storage: vectorstore.KindSimple, TopK: 3,
	}, zerolog.Nop())
	if !errors.Is(err, ErrEmptyDirectory) {
		t.Fatalf("expected ErrEmptyDirectory, got %v", err)
	}
	// nothing is left behind
	if _, err := os.Stat(manifest.Dir(root)); !os.IsNotExist(err) {
		t.Fatal("reserved dir left behind after failed build")
	}
}

func TestBuild_AlreadyIndexed(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.txt", "alpha content")
	buildTestIndex(t, root, BuildOptions{})

	_, err := Build(context.Background(), root, testProv, BuildOptions{
		Storage: vectorstore.KindSimple, TopK: 3,
	}, zerolog.Nop())
	if !errors.Is(err, manifest.ErrAlreadyIndexed) {
		t.Fatalf("expected ErrAlreadyIndexed, got %v", err)
	}
}

func TestBuild_ExcludePatterns(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.txt", "alpha content")
	writeFile(t, root, "secret.env", "KEY=value")

	buildTestIndex(t, root, BuildOptions{Exclude: []string{"*.env"}})

	m, err := manifest.Load(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(m.Files) != 1 {
		t.Fatalf("expected 1 tracked file, got %d", len(m.Files))
	}
	if _, ok := m.Files["a.txt"]; !ok {
		t.Fatalf("a.txt not tracked: %v", m.Files)
	}
}

func TestBuildDeleteSynchronize(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.txt", "alpha content about foxes")
	writeFile(t, root, "b.txt", "beta content about dogs")

	buildTestIndex(t, root, BuildOptions{})

	m, err := manifest.Load(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(m.Files) != 2 {
		t.Fatalf("expected 2 tracked files, got %d", len(m.Files))
	}
	if len(m.Files["a.txt"].ChunkIDs) == 0 {
		t.Fatal("a.txt has no chunk ids")
	}

	if err := os.Remove(filepath.Join(root, "b.txt")); err != nil {
		t.Fatal(err)
	}

	changes, err := Status(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(changes.Added) != 0 || len(changes.Modified) != 0 {
		t.Fatalf("unexpected changes: %+v", changes)
	}
	if len(changes.Deleted) != 1 || changes.Deleted[0].Rel != "b.txt" {
		t.Fatalf("deleted = %+v", changes.Deleted)
	}

	res, err := Synchronize(context.Background(), root, changes, testProv, zerolog.Nop())
	if err != nil {
		t.Fatalf("Synchronize: %v", err)
	}
	if res.Removed != 1 || res.Processed != 0 || len(res.Errors) != 0 {
		t.Fatalf("result = %+v", res)
	}

	m, err = manifest.Load(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(m.Files) != 1 {
		t.Fatalf("expected 1 tracked file after sync, got %d", len(m.Files))
	}

	sources := storeSources(t, root, m)
	if sources[filepath.Join(root, "b.txt")] {
		t.Fatal("b.txt chunks still resolve in the vector store")
	}
	if !sources[filepath.Join(root, "a.txt")] {
		t.Fatal("a.txt chunks vanished from the vector store")
	}
}

func TestSynchronize_ModifiedReplacesChunks(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.txt", "original content")
	buildTestIndex(t, root, BuildOptions{})

	m, err := manifest.Load(root)
	if err != nil {
		t.Fatal(err)
	}
	oldIDs := m.Files["a.txt"].ChunkIDs

	writeFile(t, root, "a.txt", "completely new content, and longer than before")

	changes, err := Status(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(changes.Modified) != 1 || changes.Modified[0].Rel != "a.txt" {
		t.Fatalf("modified = %+v", changes)
	}

	res, err := Synchronize(context.Background(), root, changes, testProv, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if res.Processed != 1 || len(res.Errors) != 0 {
		t.Fatalf("result = %+v", res)
	}

	m, err = manifest.Load(root)
	if err != nil {
		t.Fatal(err)
	}
	newIDs := m.Files["a.txt"].ChunkIDs
	if len(newIDs) == 0 || reflect.DeepEqual(oldIDs, newIDs) {
		t.Fatalf("chunk ids unchanged after modification: old=%v new=%v", oldIDs, newIDs)
	}
}

func TestSynchronize_NoChangesIsNoOp(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.txt", "alpha content")
	buildTestIndex(t, root, BuildOptions{})

	before, err := os.ReadFile(manifest.Path(root))
	if err != nil {
		t.Fatal(err)
	}

	changes, err := Status(root)
	if err != nil {
		t.Fatal(err)
	}
	if !changes.Empty() {
		t.Fatalf("expected clean tree, got %+v", changes)
	}

	res, err := Synchronize(context.Background(), root, changes, testProv, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if res.Processed != 0 || res.Removed != 0 || len(res.Errors) != 0 {
		t.Fatalf("result = %+v", res)
	}

	after, err := os.ReadFile(manifest.Path(root))
	if err != nil {
		t.Fatal(err)
	}
	if string(before) != string(after) {
		t.Fatal("manifest rewritten by a no-op synchronize")
	}
}

func TestSynchronize_Idempotent(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.txt", "alpha content")
	buildTestIndex(t, root, BuildOptions{})

	writeFile(t, root, "b.txt", "new file content")
	changes, err := Status(root)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Synchronize(context.Background(), root, changes, testProv, zerolog.Nop()); err != nil {
		t.Fatal(err)
	}

	// a second detection pass with no intervening change finds nothing
	changes, err = Status(root)
	if err != nil {
		t.Fatal(err)
	}
	if !changes.Empty() {
		t.Fatalf("second pass not clean: %+v", changes)
	}
}

func TestSynchronize_PerFileFailureIsIsolated(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.txt", "alpha content")
	buildTestIndex(t, root, BuildOptions{})

	// one unloadable file, one good file
	badPath := filepath.Join(root, "bad.bin")
	if err := os.WriteFile(badPath, []byte{1, 0, 2}, 0o644); err != nil {
		t.Fatal(err)
	}
	writeFile(t, root, "c.txt", "gamma content")

	changes, err := Status(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(changes.Added) != 2 {
		t.Fatalf("added = %+v", changes.Added)
	}

	res, err := Synchronize(context.Background(), root, changes, testProv, zerolog.Nop())
	if err != nil {
		t.Fatalf("Synchronize must not fail for a per-file error: %v", err)
	}
	if res.Processed != 1 {
		t.Fatalf("processed = %d", res.Processed)
	}
	if len(res.Errors) != 1 || res.Errors[0].Path != "bad.bin" {
		t.Fatalf("errors = %+v", res.Errors)
	}

	m, err := manifest.Load(root)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := m.Files["bad.bin"]; ok {
		t.Fatal("failed file must not be tracked")
	}
	if _, ok := m.Files["c.txt"]; !ok {
		t.Fatal("good file missing from manifest")
	}
}

func TestSynchronize_Busy(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.txt", "alpha content")
	buildTestIndex(t, root, BuildOptions{})
	writeFile(t, root, "b.txt", "beta content")

	l := flock.New(LockPath(root))
	locked, err := l.TryLock()
	if err != nil || !locked {
		t.Fatalf("cannot take test lock: %v", err)
	}
	defer l.Unlock()

	changes, err := Status(root)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Synchronize(context.Background(), root, changes, testProv, zerolog.Nop()); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
}

func TestSearch_DedupKeepsMaxScorePerPath(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.txt", "fox fox fox\n\nfox dog")
	writeFile(t, root, "b.txt", "unrelated words entirely")
	buildTestIndex(t, root, BuildOptions{})

	// give a.txt a second chunk so dedup has something to collapse
	m, err := manifest.Load(root)
	if err != nil {
		t.Fatal(err)
	}
	store, err := vectorstore.Open(m.Storage, manifest.Dir(root), testProv, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.Insert(context.Background(), []loader.Chunk{
		{Text: "fox fox", Source: filepath.Join(root, "a.txt")},
	}); err != nil {
		t.Fatal(err)
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	results, err := Search(context.Background(), root, "fox", 10, testProv, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}

	seen := map[string]bool{}
	for _, r := range results {
		if seen[r.Path] {
			t.Fatalf("duplicate path in results: %s", r.Path)
		}
		seen[r.Path] = true
	}
	if len(results) == 0 || results[0].Path != filepath.Join(root, "a.txt") {
		t.Fatalf("best result should be a.txt: %+v", results)
	}
	for i := 1; i < len(results); i++ {
		if results[i].Score > results[i-1].Score {
			t.Fatal("results not sorted by score desc")
		}
	}
}

func TestSearch_NotIndexed(t *testing.T) {
	root := t.TempDir()
	if _, err := Search(context.Background(), root, "query", 0, testProv, zerolog.Nop()); !errors.Is(err, manifest.ErrNotIndexed) {
		t.Fatalf("expected ErrNotIndexed, got %v", err)
	}
}

func TestSearch_ModelMismatch(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.txt", "alpha content")
	buildTestIndex(t, root, BuildOptions{})

	m, err := manifest.Load(root)
	if err != nil {
		t.Fatal(err)
	}
	m.EmbeddingModel = "openai:something-else"
	if err := manifest.Save(root, m); err != nil {
		t.Fatal(err)
	}

	_, err = Search(context.Background(), root, "query", 0, testProv, zerolog.Nop())
	if err == nil || !strings.Contains(err.Error(), "model mismatch") {
		t.Fatalf("expected model mismatch error, got %v", err)
	}
}
