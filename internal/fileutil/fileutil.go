package fileutil

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
)

// ErrLocked reports that another process holds the lock.
var ErrLocked = errors.New("locked by another process")

// TempPath returns a collision-free path inside dir ending in ext. Nothing is
// created on disk.
func TempPath(dir, ext string) string {
	if strings.TrimSpace(dir) == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "m4bmerge-"+uuid.NewString()+ext)
}

// Exists reports whether path names an existing file or directory.
func Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// RemoveIfExists deletes path, treating an already missing file as success.
func RemoveIfExists(path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// AbsPath resolves path against the working directory.
func AbsPath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", errors.New("empty path")
	}
	return filepath.Abs(path)
}

// SamePath reports whether a and b resolve to the same absolute path.
func SamePath(a, b string) bool {
	if a == b {
		return true
	}
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return false
	}
	return absA == absB
}

// Lock is an advisory lock held next to a file.
type Lock struct {
	path string
	lock *flock.Flock
}

// LockFile takes the advisory lock "<path>.lock" without blocking. It fails
// with ErrLocked when another process holds it.
func LockFile(path string) (*Lock, error) {
	lockPath := path + ".lock"
	lock := flock.New(lockPath)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", lockPath, err)
	}
	if !ok {
		return nil, fmt.Errorf("%s: %w", lockPath, ErrLocked)
	}
	return &Lock{path: lockPath, lock: lock}, nil
}

// Path returns the lock file location.
func (l *Lock) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// Release unlocks and removes the lock file.
func (l *Lock) Release() error {
	if l == nil || l.lock == nil {
		return nil
	}
	if err := l.lock.Unlock(); err != nil {
		return fmt.Errorf("release lock %s: %w", l.path, err)
	}
	return RemoveIfExists(l.path)
}
