package index

import (
	"context"
	"sort"

	"github.com/rs/zerolog"

	"github.com/kamusis/mbed-cli/internal/embeddings"
	"github.com/kamusis/mbed-cli/internal/manifest"
)

// SearchResult is one matched file with its best similarity score.
type SearchResult struct {
	Path  string
	Score float64
}

// Search runs a similarity query against the index at root.
//
// topK overrides the manifest's configured default when positive. Raw hits
// are deduplicated by source path, keeping the maximum score per path, so a
// file with several matching chunks appears once. Because dedup happens
// after the k-nearest fetch, fewer than k results may come back.
func Search(ctx context.Context, root, query string, topK int, prov embeddings.Provider, logger zerolog.Logger) ([]SearchResult, error) {
	m, err := manifest.Load(root)
	if err != nil {
		return nil, err
	}

	k := topK
	if k <= 0 {
		k = m.Config.TopK
	}

	store, err := openStore(root, m, prov, logger)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	hits, err := store.Query(ctx, query, k)
	if err != nil {
		return nil, err
	}

	best := make(map[string]float64)
	for _, h := range hits {
		if h.Source == "" {
			continue
		}
		if score, ok := best[h.Source]; !ok || h.Score > score {
			best[h.Source] = h.Score
		}
	}

	out := make([]SearchResult, 0, len(best))
	for path, score := range best {
		out = append(out, SearchResult{Path: path, Score: score})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Path < out[j].Path
	})
	return out, nil
}
