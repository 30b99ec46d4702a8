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
)

// FileError records one file that failed during synchronization.
type FileError struct {
	Path    string
	Message string
}

// Result summarizes one synchronization batch.
type Result struct {
	Processed int
	Removed   int
	Errors    []FileError
}

// Synchronize applies a detected change set to the vector store and the
// manifest.
//
// Added and modified files are handled in one pass with per-file isolation:
// one file's load/embed/insert failure is recorded and the batch continues.
// Stale chunk deletes are tolerated as warnings so a failed delete never
// blocks re-insertion of fresh content. Deleted files are handled second.
// The manifest is persisted exactly once, after both passes; an empty
// change set is a no-op that leaves the manifest file untouched.
func Synchronize(ctx context.Context, root string, changes *tracker.ChangeSet, prov embeddings.Provider, logger zerolog.Logger) (*Result, error) {
	if changes.Empty() {
		return &Result{}, nil
	}

	m, err := manifest.Load(root)
	if err != nil {
		return nil, err
	}

	release, err := acquireLock(root)
	if err != nil {
		return nil, err
	}
	defer release()

	store, err := openStore(root, m, prov, logger)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	res := &Result{}

	upserts := make([]tracker.Change, 0, len(changes.Added)+len(changes.Modified))
	upserts = append(upserts, changes.Added...)
	upserts = append(upserts, changes.Modified...)

	for _, c := range upserts {
		// Modified files carry chunks from the previous indexing; drop them
		// first. A failed delete is less harmful than failing the file, so
		// it only warns.
		if rec, ok := m.Files[c.Rel]; ok {
			for _, id := range rec.ChunkIDs {
				if err := store.DeleteByID(ctx, id); err != nil {
					logger.Warn().Str("file", c.Rel).Str("chunk_id", id).Err(err).
						Msg("cannot delete stale chunk")
				}
			}
		}

		chunks, err := loader.Load(c.Path)
		if err != nil {
			res.Errors = append(res.Errors, FileError{Path: c.Rel, Message: err.Error()})
			logger.Error().Str("file", c.Rel).Err(err).Msg("cannot index file")
			continue
		}
		ids, err := store.Insert(ctx, chunks)
		if err != nil {
			res.Errors = append(res.Errors, FileError{Path: c.Rel, Message: err.Error()})
			logger.Error().Str("file", c.Rel).Err(err).Msg("cannot index file")
			continue
		}
		if ids == nil {
			ids = []string{}
		}

		st, err := os.Stat(c.Path)
		if err != nil {
			res.Errors = append(res.Errors, FileError{Path: c.Rel, Message: err.Error()})
			continue
		}
		m.Files[c.Rel] = manifest.FileRecord{
			Path:      c.Path,
			MTime:     float64(st.ModTime().UnixNano()) / 1e9,
			Size:      st.Size(),
			ChunkIDs:  ids,
			IndexedAt: manifest.Now(),
		}
		res.Processed++
		logger.Debug().Str("file", c.Rel).Int("chunks", len(ids)).Msg("indexed")
	}

	for _, c := range changes.Deleted {
		rec, ok := m.Files[c.Rel]
		if !ok {
			logger.Warn().Str("file", c.Rel).Msg("deleted file not tracked in manifest")
			continue
		}
		for _, id := range rec.ChunkIDs {
			if err := store.DeleteByID(ctx, id); err != nil {
				logger.Warn().Str("file", c.Rel).Str("chunk_id", id).Err(err).
					Msg("cannot delete chunk")
			}
		}
		delete(m.Files, c.Rel)
		res.Removed++
		logger.Debug().Str("file", c.Rel).Msg("removed from index")
	}

	m.LastUpdated = manifest.Now()
	if err := manifest.Save(root, m); err != nil {
		return nil, fmt.Errorf("cannot persist manifest after sync: %w", err)
	}
	return res, nil
}
