package vectorstore

import (
	"bufio"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/kamusis/mbed-cli/internal/embeddings"
	"github.com/kamusis/mbed-cli/internal/loader"
)

const (
	simpleChunksFile  = "chunks.jsonl"
	simpleVectorsFile = "vectors.f32"
)

// chunkEntry is one row in chunks.jsonl. Its position in the file matches
// the position of its vector in vectors.f32.
type chunkEntry struct {
	ID     string `json:"id"`
	Source string `json:"source"`
}

// simpleStore keeps all vectors in memory and searches by brute-force
// cosine similarity. Every mutation rewrites both flat files whole, via
// temp file + rename.
type simpleStore struct {
	dir    string
	prov   embeddings.Provider
	logger zerolog.Logger
	dim    int
	chunks []chunkEntry
	vecs   []float32
}

func openSimple(dir string, prov embeddings.Provider, logger zerolog.Logger) (Store, error) {
	s := &simpleStore{dir: dir, prov: prov, logger: logger}

	chunksPath := filepath.Join(dir, simpleChunksFile)
	if _, err := os.Stat(chunksPath); os.IsNotExist(err) {
		return s, nil
	}

	chunks, err := loadChunkEntries(chunksPath)
	if err != nil {
		return nil, err
	}
	s.chunks = chunks

	vecs, dim, err := loadVectors(filepath.Join(dir, simpleVectorsFile), len(chunks))
	if err != nil {
		return nil, err
	}
	s.vecs = vecs
	s.dim = dim
	return s, nil
}

func loadChunkEntries(path string) ([]chunkEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open chunks file %s: %w", path, err)
	}
	defer f.Close()

	var out []chunkEntry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var e chunkEntry
		if err := json.Unmarshal(line, &e); err != nil {
			return nil, fmt.Errorf("invalid chunks JSONL %s: %w", path, err)
		}
		out = append(out, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("cannot read chunks file %s: %w", path, err)
	}
	return out, nil
}

func loadVectors(path string, nChunks int) ([]float32, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("cannot open vector file %s: %w", path, err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, 0, fmt.Errorf("cannot stat vector file %s: %w", path, err)
	}
	if st.Size()%4 != 0 {
		return nil, 0, fmt.Errorf("vector file size is not multiple of 4 bytes: %d", st.Size())
	}
	nFloats := int(st.Size() / 4)
	if nChunks == 0 {
		if nFloats != 0 {
			return nil, 0, fmt.Errorf("vector file %s has data but no chunks are recorded", path)
		}
		return nil, 0, nil
	}
	if nFloats%nChunks != 0 {
		return nil, 0, fmt.Errorf("vector file size mismatch: %d floats for %d chunks", nFloats, nChunks)
	}

	out := make([]float32, nFloats)
	if err := binary.Read(io.LimitReader(f, st.Size()), binary.LittleEndian, out); err != nil {
		return nil, 0, fmt.Errorf("cannot read vectors from %s: %w", path, err)
	}
	return out, nFloats / nChunks, nil
}

func (s *simpleStore) BulkBuild(ctx context.Context, chunks []loader.Chunk) (map[string][]string, error) {
	out := make(map[string][]string)
	for _, c := range chunks {
		id, err := s.append(ctx, c)
		if err != nil {
			return nil, err
		}
		out[c.Source] = append(out[c.Source], id)
	}
	if err := s.persist(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *simpleStore) Insert(ctx context.Context, chunks []loader.Chunk) ([]string, error) {
	var ids []string
	for _, c := range chunks {
		id, err := s.append(ctx, c)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := s.persist(); err != nil {
		return nil, err
	}
	return ids, nil
}

// append embeds one chunk and adds it to the in-memory state without
// persisting. Callers persist once per batch.
func (s *simpleStore) append(ctx context.Context, c loader.Chunk) (string, error) {
	vec, err := s.prov.Embed(ctx, c.Text)
	if err != nil {
		return "", fmt.Errorf("cannot embed chunk of %s: %w", c.Source, err)
	}
	if s.dim == 0 {
		s.dim = len(vec)
	}
	if len(vec) != s.dim {
		return "", fmt.Errorf("embedding dim changed: got %d want %d", len(vec), s.dim)
	}

	id := uuid.NewString()
	s.chunks = append(s.chunks, chunkEntry{ID: id, Source: c.Source})
	s.vecs = append(s.vecs, vec...)
	return id, nil
}

func (s *simpleStore) DeleteByID(_ context.Context, id string) error {
	for i, c := range s.chunks {
		if c.ID != id {
			continue
		}
		s.chunks = append(s.chunks[:i], s.chunks[i+1:]...)
		s.vecs = append(s.vecs[:i*s.dim], s.vecs[(i+1)*s.dim:]...)
		return s.persist()
	}
	return fmt.Errorf("chunk id not found: %s", id)
}

func (s *simpleStore) Query(ctx context.Context, text string, k int) ([]Hit, error) {
	if len(s.chunks) == 0 {
		return nil, nil
	}

	qv, err := s.prov.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("cannot embed query: %w", err)
	}
	if len(qv) != s.dim {
		return nil, fmt.Errorf("query embedding dim mismatch: got %d want %d", len(qv), s.dim)
	}

	hits := make([]Hit, 0, len(s.chunks))
	for i, c := range s.chunks {
		score, err := Cosine(qv, s.vecs[i*s.dim:(i+1)*s.dim])
		if err != nil {
			return nil, err
		}
		hits = append(hits, Hit{ChunkID: c.ID, Source: c.Source, Score: score})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if k > 0 && len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func (s *simpleStore) Close() error {
	return nil
}

// persist rewrites both flat files. Each file is written to a temp sibling
// and renamed into place so readers never see a torn file.
func (s *simpleStore) persist() error {
	chunksPath := filepath.Join(s.dir, simpleChunksFile)
	tmp := chunksPath + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("cannot create chunks file: %w", err)
	}
	bw := bufio.NewWriter(f)
	for _, c := range s.chunks {
		line, err := json.Marshal(c)
		if err != nil {
			_ = f.Close()
			return err
		}
		if _, err := bw.Write(line); err != nil {
			_ = f.Close()
			return err
		}
		if err := bw.WriteByte('\n'); err != nil {
			_ = f.Close()
			return err
		}
	}
	if err := bw.Flush(); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp, chunksPath); err != nil {
		return fmt.Errorf("cannot install chunks file: %w", err)
	}

	vecsPath := filepath.Join(s.dir, simpleVectorsFile)
	tmp = vecsPath + ".tmp"
	vf, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("cannot create vectors file: %w", err)
	}
	if len(s.vecs) > 0 {
		if err := binary.Write(vf, binary.LittleEndian, s.vecs); err != nil {
			_ = vf.Close()
			return fmt.Errorf("cannot write vectors: %w", err)
		}
	}
	if err := vf.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp, vecsPath); err != nil {
		return fmt.Errorf("cannot install vectors file: %w", err)
	}
	return nil
}
