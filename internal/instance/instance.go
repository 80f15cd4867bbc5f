// Package instance makes sure only one farm runs per user at a time.
package instance

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/autonomys/pulsar/internal/paths"
	"github.com/gofrs/flock"
)

// ErrAlreadyRunning is returned when another farm holds the lock.
var ErrAlreadyRunning = errors.New("a farming instance is already running")

// Lock is a held instance lock.
type Lock struct {
	fl *flock.Flock
}

// Path returns the default lock file location.
func Path() (string, error) { return paths.LockPath() }

// Acquire takes the advisory lock at path without blocking. It returns
// ErrAlreadyRunning when the lock is held elsewhere.
func Acquire(path string) (*Lock, error) {
	if err := paths.EnsureDir(filepath.Dir(path), paths.DirPermNormal); err != nil {
		return nil, err
	}
	fl := flock.New(path)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("taking instance lock %s: %w", path, err)
	}
	if !ok {
		return nil, ErrAlreadyRunning
	}
	return &Lock{fl: fl}, nil
}

// Release frees the lock. It is safe to call more than once.
func (l *Lock) Release() error {
	if l == nil || l.fl == nil {
		return nil
	}
	return l.fl.Unlock()
}

// IsRunning reports whether a farm currently holds the lock at path.
func IsRunning(path string) (bool, error) {
	l, err := Acquire(path)
	if errors.Is(err, ErrAlreadyRunning) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return false, l.Release()
}
