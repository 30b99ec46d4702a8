// Package index ties the manifest, change detection, and the vector store
// together: initial builds, incremental synchronization, and queries.
package index

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/kamusis/mbed-cli/internal/embeddings"
	"github.com/kamusis/mbed-cli/internal/manifest"
	"github.com/kamusis/mbed-cli/internal/tracker"
	"github.com/kamusis/mbed-cli/internal/vectorstore"
)

// ErrEmptyDirectory means an initial build found zero qualifying files.
var ErrEmptyDirectory = errors.New("no documents found")

// openStore opens the backend recorded in the manifest, refusing a provider
// whose model differs from the one the index was built with.
func openStore(root string, m *manifest.Manifest, prov embeddings.Provider, logger zerolog.Logger) (vectorstore.Store, error) {
	if prov.ModelID() != m.EmbeddingModel {
		return nil, fmt.Errorf("embedding model mismatch: index=%s provider=%s",
			m.EmbeddingModel, prov.ModelID())
	}
	return vectorstore.Open(m.Storage, manifest.Dir(root), prov, logger)
}

// Status loads the manifest for root and detects pending changes.
func Status(root string) (*tracker.ChangeSet, error) {
	m, err := manifest.Load(root)
	if err != nil {
		return nil, err
	}
	return tracker.Detect(root, m)
}
