// Package lockfile prevents two daemon processes from monitoring the same
// set of sessions concurrently, via a PID file with an advisory flock.
package lockfile

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// ErrHeldByOther is returned by Acquire when another live process already
// holds the lock.
var ErrHeldByOther = errors.New("lockfile: already held by another process")

// Lock is an acquired, held PID-file lock. Release it on shutdown.
type Lock struct {
	path string
	file *os.File
}

// Acquire creates (or reuses) the PID file at path and takes an exclusive,
// non-blocking flock on it. If the file already carries a live process's
// PID, Acquire returns ErrHeldByOther without touching the file.
func Acquire(path string) (*Lock, error) {
	if _, alive := readLivePID(path); alive {
		return nil, ErrHeldByOther
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("lockfile: open %s: %w", path, err)
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, ErrHeldByOther
		}
		return nil, fmt.Errorf("lockfile: flock %s: %w", path, err)
	}

	if err := f.Truncate(0); err != nil {
		f.Close()
		return nil, fmt.Errorf("lockfile: truncate %s: %w", path, err)
	}
	if _, err := f.WriteAt([]byte(strconv.Itoa(os.Getpid())), 0); err != nil {
		f.Close()
		return nil, fmt.Errorf("lockfile: write pid to %s: %w", path, err)
	}

	return &Lock{path: path, file: f}, nil
}

// Release drops the flock and removes the PID file.
func (l *Lock) Release() error {
	if err := unix.Flock(int(l.file.Fd()), unix.LOCK_UN); err != nil {
		l.file.Close()
		return fmt.Errorf("lockfile: unlock %s: %w", l.path, err)
	}
	if err := l.file.Close(); err != nil {
		return fmt.Errorf("lockfile: close %s: %w", l.path, err)
	}
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("lockfile: remove %s: %w", l.path, err)
	}
	return nil
}

// readLivePID reports the PID stored in path and whether that process is
// still alive (signal 0 succeeds, or is refused with EPERM because the
// process belongs to another user). Any failure to read or parse the file
// is treated as "no live holder".
func readLivePID(path string) (int, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, false
	}
	if err := unix.Kill(pid, 0); err != nil && !errors.Is(err, unix.EPERM) {
		return 0, false
	}
	return pid, true
}
