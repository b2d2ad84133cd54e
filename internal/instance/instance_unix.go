//go:build !windows

package instance

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"golang.org/x/sys/unix"

	"cryptick/internal/paths"
)

// Acquire takes an exclusive flock on dir/instance.lock. The lock goes away
// with the process, so a crash never leaves a stale lock behind.
func Acquire(dir string) (func(), error) {
	if err := os.MkdirAll(dir, paths.DirPerm); err != nil {
		return nil, fmt.Errorf("create lock dir [%s]: %w", dir, err)
	}
	path := filepath.Join(dir, paths.LockFileName)
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, paths.FilePerm)
	if err != nil {
		return nil, fmt.Errorf("open lock file [%s]: %w", path, err)
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		_ = f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, ErrAlreadyRunning
		}
		return nil, fmt.Errorf("lock [%s]: %w", path, err)
	}

	_ = f.Truncate(0)
	_, _ = f.WriteString(strconv.Itoa(os.Getpid()) + "\n")

	return func() {
		_ = unix.Flock(int(f.Fd()), unix.LOCK_UN)
		_ = f.Close()
	}, nil
}
