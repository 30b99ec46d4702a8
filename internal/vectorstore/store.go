// Package vectorstore persists embedded chunks and answers nearest-neighbor
// queries over them.
package vectorstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/kamusis/mbed-cli/internal/embeddings"
	"github.com/kamusis/mbed-cli/internal/loader"
)

// Kind identifies a vector store backend.
type Kind string

const (
	// KindSQLite stores vectors in a sqlite-vec database file.
	KindSQLite Kind = "sqlite"
	// KindSimple stores vectors in flat files and searches by brute force.
	KindSimple Kind = "simple"
)

// ParseKind validates a backend selector string.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindSQLite, KindSimple:
		return Kind(s), nil
	default:
		return "", fmt.Errorf("unsupported storage backend: %s", s)
	}
}

// Hit is one raw nearest-neighbor result.
type Hit struct {
	ChunkID string
	Source  string
	Score   float64
}

// Store is a vector store over embedded chunks. Chunk ids are assigned by
// the store at insert time and are opaque to callers.
type Store interface {
	// BulkBuild embeds and inserts all chunks, returning chunk ids grouped
	// by source path. Used once, by the initial index build.
	BulkBuild(ctx context.Context, chunks []loader.Chunk) (map[string][]string, error)

	// Insert embeds and inserts the chunks of a single document, returning
	// the assigned chunk ids in insertion order.
	Insert(ctx context.Context, chunks []loader.Chunk) ([]string, error)

	// DeleteByID removes a single chunk.
	DeleteByID(ctx context.Context, id string) error

	// Query embeds text and returns up to k nearest chunks, best first.
	Query(ctx context.Context, text string, k int) ([]Hit, error)

	Close() error
}

// Open opens the backend of the given kind rooted at dir (the reserved
// index subdirectory). The provider is used for all embedding calls.
func Open(kind Kind, dir string, prov embeddings.Provider, logger zerolog.Logger) (Store, error) {
	switch kind {
	case KindSQLite:
		return openSQLite(dir, prov, logger)
	case KindSimple:
		return openSimple(dir, prov, logger)
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", kind)
	}
}

// ArtifactsPresent reports whether the backend's on-disk artifacts exist
// in dir. Used by diagnostics only.
func ArtifactsPresent(kind Kind, dir string) bool {
	switch kind {
	case KindSQLite:
		_, err := os.Stat(filepath.Join(dir, sqliteDBFile))
		return err == nil
	case KindSimple:
		_, err := os.Stat(filepath.Join(dir, simpleChunksFile))
		return err == nil
	default:
		return false
	}
}
