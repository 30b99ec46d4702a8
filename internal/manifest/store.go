package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

var (
	// ErrNotIndexed means an operation needs a manifest that does not exist.
	ErrNotIndexed = errors.New("directory is not indexed")

	// ErrAlreadyIndexed means init was requested on an indexed directory.
	ErrAlreadyIndexed = errors.New("directory is already indexed")
)

// Dir returns the reserved index subdirectory for root.
func Dir(root string) string {
	return filepath.Join(root, DirName)
}

// Path returns the manifest file path for root.
func Path(root string) string {
	return filepath.Join(root, DirName, fileName)
}

// Exists reports whether root has a manifest.
func Exists(root string) bool {
	_, err := os.Stat(Path(root))
	return err == nil
}

// Load reads and migrates the manifest for root.
//
// Returns ErrNotIndexed when the reserved subdirectory or the manifest file
// is missing. Older schema versions are upgraded in memory; the upgraded
// form is written back on the next Save.
func Load(root string) (*Manifest, error) {
	if _, err := os.Stat(Dir(root)); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrNotIndexed, root)
	}

	p := Path(root)
	b, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotIndexed, root)
		}
		return nil, fmt.Errorf("cannot read manifest %s: %w", p, err)
	}

	m := &Manifest{}
	if err := json.Unmarshal(b, m); err != nil {
		return nil, fmt.Errorf("invalid manifest JSON %s: %w", p, err)
	}
	migrate(m)
	return m, nil
}

// migrate fills explicit defaults for fields older schema versions lacked.
func migrate(m *Manifest) {
	if m.SchemaVersion == 0 {
		m.SchemaVersion = 1
	}
	if m.Config.TopK <= 0 {
		m.Config.TopK = 3
	}
	if m.Config.Exclude == nil {
		m.Config.Exclude = []string{}
	}
	if m.Files == nil {
		m.Files = map[string]FileRecord{}
	}
	m.SchemaVersion = SchemaVersion
}

// Save writes the manifest for root as one whole-document replacement:
// marshal to a temp sibling, then rename over the target.
func Save(root string, m *Manifest) error {
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}

	p := Path(root)
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("cannot write manifest %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, p); err != nil {
		return fmt.Errorf("cannot install manifest %s: %w", p, err)
	}
	return nil
}
