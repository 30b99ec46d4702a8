package index

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/kamusis/mbed-cli/internal/embeddings"
	"github.com/kamusis/mbed-cli/internal/loader"
	"github.com/kamusis/mbed-cli/internal/manifest"
	"github.com/kamusis/mbed-cli/internal/tracker"
	"github.com/kamusis/mbed-cli/internal/vectorstore"
)

// BuildOptions controls the one-time initial build of a directory index.
type BuildOptions struct {
	Storage vectorstore.Kind
	TopK    int
	Exclude []string
}

// BuildResult summarizes a completed initial build.
type BuildResult struct {
	Files  int
	Chunks int
}

// Build creates the index for a previously unindexed root: reserved
// subdirectory, vector store, and initial manifest.
//
// Unlike Synchronize, document loading here is all-or-nothing: a single
// unreadable file fails the whole build, and nothing is left behind. The
// manifest is written exactly once, after the bulk build succeeds.
func Build(ctx context.Context, root string, prov embeddings.Provider, opts BuildOptions, logger zerolog.Logger) (_ *BuildResult, err error) {
	if manifest.Exists(root) {
		return nil, fmt.Errorf("%w: %s", manifest.ErrAlreadyIndexed, root)
	}

	dir := manifest.Dir(root)
	_, statErr := os.Stat(dir)
	createdDir := os.IsNotExist(statErr)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create index dir %s: %w", dir, err)
	}

	release, err := acquireLock(root)
	if err != nil {
		return nil, err
	}
	unlocked := false
	defer func() {
		if !unlocked {
			release()
		}
		// A failed build must not leave a half-initialized index behind.
		if err != nil && createdDir {
			_ = os.RemoveAll(dir)
		}
	}()

	files, err := tracker.Scan(root, opts.Exclude)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrEmptyDirectory, root)
	}

	logger.Info().Int("files", len(files)).Str("root", root).Msg("building index")

	var allChunks []loader.Chunk
	for _, f := range files {
		chunks, err := loader.Load(f.Path)
		if err != nil {
			return nil, fmt.Errorf("cannot load %s: %w", f.Rel, err)
		}
		allChunks = append(allChunks, chunks...)
	}

	store, err := vectorstore.Open(opts.Storage, dir, prov, logger)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	idsBySource, err := store.BulkBuild(ctx, allChunks)
	if err != nil {
		return nil, err
	}

	m := manifest.New(prov.ModelID(), opts.Storage, opts.TopK, opts.Exclude)
	m.EmbeddingDim = prov.Dim()
	for _, f := range files {
		ids := idsBySource[f.Path]
		if ids == nil {
			// zero chunks is valid; the file is still tracked
			ids = []string{}
		}
		m.Files[f.Rel] = manifest.FileRecord{
			Path:      f.Path,
			MTime:     f.MTime,
			Size:      f.Size,
			ChunkIDs:  ids,
			IndexedAt: manifest.Now(),
		}
	}

	if err := manifest.Save(root, m); err != nil {
		return nil, err
	}

	release()
	unlocked = true

	return &BuildResult{Files: len(files), Chunks: len(allChunks)}, nil
}
