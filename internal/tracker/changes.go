package tracker

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/kamusis/mbed-cli/internal/manifest"
)

// Change is one detected difference between the manifest and the live tree.
// OldMTime is set for modified and deleted files, NewMTime for added and
// modified ones.
type Change struct {
	Rel      string
	Path     string
	OldMTime float64
	NewMTime float64
}

// ChangeSet holds the classified changes of one detection pass. Added and
// Modified preserve scan order; Deleted is sorted by relative path.
type ChangeSet struct {
	Added    []Change
	Modified []Change
	Deleted  []Change
}

// Total returns the number of changes across all three buckets.
func (cs *ChangeSet) Total() int {
	return len(cs.Added) + len(cs.Modified) + len(cs.Deleted)
}

// Empty reports whether no changes were detected.
func (cs *ChangeSet) Empty() bool {
	return cs.Total() == 0
}

// Detect compares the manifest against a live scan of root.
//
// A file is modified when its mtime or size differs from the manifest
// record; no content hashing is performed, so a rewrite that preserves both
// within mtime granularity goes undetected. Exclude patterns are evaluated
// against the live tree only; records already in the manifest are never
// retroactively dropped by a pattern added later.
func Detect(root string, m *manifest.Manifest) (*ChangeSet, error) {
	if _, err := os.Stat(manifest.Dir(root)); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", manifest.ErrNotIndexed, root)
	}

	live, err := Scan(root, m.Config.Exclude)
	if err != nil {
		return nil, err
	}

	cs := &ChangeSet{}
	seen := make(map[string]struct{}, len(live))
	for _, f := range live {
		seen[f.Rel] = struct{}{}
		rec, ok := m.Files[f.Rel]
		if !ok {
			cs.Added = append(cs.Added, Change{Rel: f.Rel, Path: f.Path, NewMTime: f.MTime})
			continue
		}
		if f.MTime != rec.MTime || f.Size != rec.Size {
			cs.Modified = append(cs.Modified, Change{
				Rel:      f.Rel,
				Path:     f.Path,
				OldMTime: rec.MTime,
				NewMTime: f.MTime,
			})
		}
	}

	for rel, rec := range m.Files {
		if _, ok := seen[rel]; ok {
			continue
		}
		// Deleted means absent on disk. A tracked file hidden from the scan
		// by a pattern added after indexing still exists and stays tracked;
		// exclusion is not retroactive.
		if _, err := os.Stat(filepath.Join(root, filepath.FromSlash(rel))); err == nil {
			continue
		}
		cs.Deleted = append(cs.Deleted, Change{Rel: rel, Path: rec.Path, OldMTime: rec.MTime})
	}
	sort.Slice(cs.Deleted, func(i, j int) bool { return cs.Deleted[i].Rel < cs.Deleted[j].Rel })

	return cs, nil
}
