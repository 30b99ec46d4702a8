// Package manifest persists the per-directory record of what the vector
// store is believed to contain. The manifest is the sole source of truth
// for tracked files and their chunk ids.
package manifest

import (
	"time"

	"github.com/kamusis/mbed-cli/internal/vectorstore"
)

const (
	// DirName is the reserved index subdirectory at the root of an indexed
	// tree. Its presence is the "is this directory indexed" signal.
	DirName = ".mbed"

	fileName = "manifest.json"

	// SchemaVersion is the current manifest schema. Version 1 predates
	// schema_version and embedding_dim; Load upgrades it in memory.
	SchemaVersion = 2
)

// Config holds index-wide settings chosen at init time.
type Config struct {
	TopK    int      `json:"top_k"`
	Exclude []string `json:"exclude"`
}

// FileRecord tracks one indexed source file.
type FileRecord struct {
	Path      string   `json:"path"`
	MTime     float64  `json:"mtime"`
	Size      int64    `json:"size"`
	ChunkIDs  []string `json:"chunk_ids"`
	IndexedAt string   `json:"indexed_at"`
}

// Manifest describes one indexed directory.
//
// EmbeddingModel and Storage are immutable after creation. Files maps the
// path relative to the indexed root to its record; ChunkIDs must exactly
// match the chunks present in the vector store for that file.
type Manifest struct {
	SchemaVersion  int                   `json:"schema_version"`
	EmbeddingModel string                `json:"embedding_model"`
	Storage        vectorstore.Kind      `json:"storage"`
	EmbeddingDim   int                   `json:"embedding_dim,omitempty"`
	CreatedAt      string                `json:"created_at"`
	LastUpdated    string                `json:"last_updated"`
	Config         Config                `json:"config"`
	Files          map[string]FileRecord `json:"files"`
}

// New returns a fresh manifest for a directory being indexed now.
func New(model string, storage vectorstore.Kind, topK int, exclude []string) *Manifest {
	now := Now()
	if exclude == nil {
		exclude = []string{}
	}
	return &Manifest{
		SchemaVersion:  SchemaVersion,
		EmbeddingModel: model,
		Storage:        storage,
		CreatedAt:      now,
		LastUpdated:    now,
		Config:         Config{TopK: topK, Exclude: exclude},
		Files:          map[string]FileRecord{},
	}
}

// Now returns the current time in the manifest's timestamp format
// (RFC3339 UTC with a Z suffix, which sorts lexically).
func Now() string {
	return time.Now().UTC().Format(time.RFC3339)
}
