package index

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/Aman-CERP/docsearch/internal/errors"
)

// LockFile is the name of the build lock inside the index directory.
const LockFile = ".index.lock"

// FileLock provides cross-process locking of an index directory so two
// builds never write the same artifacts.
type FileLock struct {
	path   string
	flock  *flock.Flock
	locked bool
}

// NewFileLock creates a lock for the index directory dir.
func NewFileLock(dir string) *FileLock {
	lockPath := filepath.Join(dir, LockFile)
	return &FileLock{
		path:  lockPath,
		flock: flock.New(lockPath),
	}
}

// TryLock acquires the lock without blocking. A lock held by another
// process yields ERR_202_INDEX_LOCKED.
func (l *FileLock) TryLock() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}

	acquired, err := l.flock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !acquired {
		return errors.New(errors.ErrCodeIndexLocked,
			fmt.Sprintf("index %s is being built by another process", filepath.Dir(l.path)), nil).
			WithDetail("lock", l.path).
			WithSuggestion("Wait for the other build to finish and retry")
	}

	l.locked = true
	return nil
}

// Unlock releases the lock. It is safe to call on an unlocked FileLock.
func (l *FileLock) Unlock() error {
	if !l.locked {
		return nil
	}
	l.locked = false
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}

// Path returns the path to the lock file.
func (l *FileLock) Path() string {
	return l.path
}
