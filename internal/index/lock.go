package index

import (
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/sa-retail/strukindex/internal/errors"
)

// BuildLock is a cross-process advisory lock guarding one year's build.
// Two indexer invocations for the same year must never interleave;
// builds for different years may run concurrently.
type BuildLock struct {
	path   string
	flock  *flock.Flock
	locked bool
}

// NewBuildLock creates the lock for a year under dataDir. The lock file
// is <dataDir>/<year>.build.lock.
func NewBuildLock(dataDir, year string) *BuildLock {
	path := filepath.Join(dataDir, year+".build.lock")
	return &BuildLock{path: path, flock: flock.New(path)}
}

// TryLock attempts to acquire the lock without blocking. Returns a
// build-in-progress error when another process holds it.
func (l *BuildLock) TryLock() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err)
	}

	acquired, err := l.flock.TryLock()
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err).
			WithDetail("lock", l.path)
	}
	if !acquired {
		return errors.New(errors.ErrCodeBuildInProgress,
			"another build holds the lock for this year", nil).
			WithDetail("lock", l.path)
	}
	l.locked = true
	return nil
}

// Unlock releases the lock. Safe to call when not held.
func (l *BuildLock) Unlock() error {
	if !l.locked {
		return nil
	}
	l.locked = false
	return l.flock.Unlock()
}
