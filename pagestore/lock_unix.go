//go:build !windows && !js && !wasip1

package pagestore

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// processLock is an OS-level advisory lock guarding a store's backing file
// against a second process opening it concurrently. It is not a substitute
// for the in-process exclusive-transaction guard, which is a single-threaded
// precondition rather than a race to arbitrate — this only stops a second
// *process* from corrupting the same file.
type processLock struct {
	file *os.File
}

// acquireProcessLock takes an exclusive, non-blocking flock on path+".lock".
func acquireProcessLock(path string) (*processLock, error) {
	lockPath := path + ".lock"
	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("pagestore: cannot open lock file: %w", err)
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		return nil, fmt.Errorf("pagestore: store %q is locked by another process: %w", path, err)
	}

	return &processLock{file: f}, nil
}

func (l *processLock) release() error {
	if l.file == nil {
		return nil
	}
	unix.Flock(int(l.file.Fd()), unix.LOCK_UN)
	name := l.file.Name()
	err := l.file.Close()
	os.Remove(name)
	return err
}
