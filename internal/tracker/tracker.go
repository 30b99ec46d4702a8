// Package tracker scans an indexed tree and classifies files as added,
// modified, or deleted relative to the manifest.
package tracker

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	ignore "github.com/sabhiram/go-gitignore"

	"github.com/kamusis/mbed-cli/internal/manifest"
)

// FileInfo captures one live file found during a scan.
type FileInfo struct {
	Rel   string
	Path  string
	MTime float64
	Size  int64
}

// Scan enumerates all regular files under root in walk order, skipping the
// reserved index subdirectory and anything matched by an exclude pattern.
//
// Patterns use gitignore matching against the path relative to root: a bare
// name matches any path segment, so a pattern naming a directory excludes
// its whole subtree.
func Scan(root string, exclude []string) ([]FileInfo, error) {
	matcher := ignore.CompileIgnoreLines(exclude...)

	var out []FileInfo
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if rel == manifest.DirName || matcher.MatchesPath(rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if matcher.MatchesPath(rel) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		out = append(out, FileInfo{
			Rel:   rel,
			Path:  path,
			MTime: mtimeSeconds(info),
			Size:  info.Size(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("cannot scan %s: %w", root, err)
	}
	return out, nil
}

// mtimeSeconds returns the modification time as float seconds since epoch,
// matching the granularity recorded in the manifest.
func mtimeSeconds(info os.FileInfo) float64 {
	return float64(info.ModTime().UnixNano()) / 1e9
}
