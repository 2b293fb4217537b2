// Package lock serializes apply and reset per branch with an advisory file
// lock under the repository's state directory.
package lock

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/cockroachdb/errors"

	"github.com/AllyMarthaJ/git-reabsorb/internal/domain"
)

// FileLocker implements domain.BranchLocker.
type FileLocker struct {
	dir string
}

// New creates a locker keeping lock files in dir, usually
// <git dir>/reabsorb/locks.
func New(dir string) *FileLocker { return &FileLocker{dir: dir} }

// Lock takes the branch lock without blocking. It fails with an error
// matching domain.ErrLockHeld when another holder exists.
func (l *FileLocker) Lock(branch string) (func() error, error) {
	path := filepath.Join(l.dir, filepath.FromSlash(branch)+".lock")
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, errors.Wrap(err, "opening lock file")
	}
	if err := tryLock(f); err != nil {
		_ = f.Close()
		if errors.Is(err, errWouldBlock) {
			holder := readPID(path)
			return nil, errors.Wrapf(domain.ErrLockHeld, "%s (pid %s)", path, holder)
		}
		return nil, errors.Wrapf(err, "locking %s", path)
	}

	if err := f.Truncate(0); err == nil {
		_, _ = f.WriteAt([]byte(strconv.Itoa(os.Getpid())), 0)
	}

	released := false
	return func() error {
		if released {
			return nil
		}
		released = true
		uerr := unlock(f)
		cerr := f.Close()
		if uerr != nil {
			return uerr
		}
		return cerr
	}, nil
}

func readPID(path string) string {
	data, err := os.ReadFile(path)
	if err != nil || len(data) == 0 {
		return "unknown"
	}
	return string(data)
}
