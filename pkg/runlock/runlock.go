// Package runlock guards one-shot worker binaries against overlapping runs
// on the same host using an exclusive pidfile.
package runlock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

// ErrAlreadyRunning reports that a live process still owns the lock.
var ErrAlreadyRunning = errors.New("runlock: another instance is running")

// Lock is a held pidfile. Release removes it.
type Lock struct {
	path string
}

// Acquire creates <dir>/<name>.pid exclusively. A pidfile left behind by a
// process that is no longer alive is treated as stale and taken over.
func Acquire(dir, name string) (*Lock, error) {
	path := filepath.Join(dir, name+".pid")

	for attempt := 0; attempt < 2; attempt++ {
		file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			_, werr := fmt.Fprintf(file, "%d\n", os.Getpid())
			cerr := file.Close()
			if werr != nil || cerr != nil {
				_ = os.Remove(path)
				return nil, fmt.Errorf("runlock: write pidfile %s: %w", path, errors.Join(werr, cerr))
			}
			return &Lock{path: path}, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("runlock: create pidfile %s: %w", path, err)
		}

		pid, perr := readPID(path)
		if perr == nil && processAlive(pid) {
			return nil, ErrAlreadyRunning
		}
		// Stale or unreadable pidfile. Remove and retry once.
		if rerr := os.Remove(path); rerr != nil && !errors.Is(rerr, os.ErrNotExist) {
			return nil, fmt.Errorf("runlock: remove stale pidfile %s: %w", path, rerr)
		}
	}

	return nil, ErrAlreadyRunning
}

// Release removes the pidfile. Safe to call more than once.
func (l *Lock) Release() error {
	if l == nil || l.path == "" {
		return nil
	}
	path := l.path
	l.path = ""
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("runlock: release %s: %w", path, err)
	}
	return nil
}

// Path returns the pidfile location, for logging.
func (l *Lock) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

func readPID(path string) (int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("runlock: malformed pidfile %s", path)
	}
	return pid, nil
}

func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	if err == nil {
		return true
	}
	return errors.Is(err, syscall.EPERM)
}
