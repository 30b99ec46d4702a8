package index

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/kamusis/mbed-cli/internal/manifest"
)

// ErrBusy means another process holds the index lock for this directory.
var ErrBusy = errors.New("another mbed operation is in progress")

const lockFile = "lock"

// LockPath returns the advisory lock file path for root.
func LockPath(root string) string {
	return filepath.Join(manifest.Dir(root), lockFile)
}

// acquireLock takes the advisory lock guarding mutating operations on the
// index at root. It does not block: a held lock fails fast with ErrBusy.
// The returned function releases the lock.
func acquireLock(root string) (func(), error) {
	p := LockPath(root)
	l := flock.New(p)
	locked, err := l.TryLock()
	if err != nil {
		return nil, fmt.Errorf("cannot acquire index lock %s: %w", p, err)
	}
	if !locked {
		return nil, fmt.Errorf("%w (lock: %s)", ErrBusy, p)
	}
	return func() { _ = l.Unlock() }, nil
}
