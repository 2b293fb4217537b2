//go:build !unix

package lock

import (
	"errors"
	"os"
	"sync"
)

var errWouldBlock = errors.New("lock would block")

// Without flock the lock only guards against holders in this process.
var (
	mu   sync.Mutex
	held = map[string]bool{}
)

func tryLock(f *os.File) error {
	mu.Lock()
	defer mu.Unlock()
	if held[f.Name()] {
		return errWouldBlock
	}
	held[f.Name()] = true
	return nil
}

func unlock(f *os.File) error {
	mu.Lock()
	defer mu.Unlock()
	delete(held, f.Name())
	return nil
}
