package jsonfile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
)

// ErrLocked is returned by TryLock when another process holds the lock.
var ErrLocked = errors.New("project is locked by another run")

// Lock is an advisory lock file that serializes runs on the same project.
type Lock struct {
	path string
}

// TryLock creates <dir>/<name>.lock exclusively. A lock file left behind by a
// process that no longer exists is removed and taken over; otherwise it
// returns ErrLocked if the file already exists.
func TryLock(dir, name string) (*Lock, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	path := filepath.Join(dir, name+".lock")
	f, err := createExclusive(path)
	if os.IsExist(err) && removeStale(path) {
		f, err = createExclusive(path)
	}
	if err != nil {
		if os.IsExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrLocked, path)
		}
		return nil, err
	}

	_, _ = f.WriteString(strconv.Itoa(os.Getpid()))
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return nil, err
	}

	return &Lock{path: path}, nil
}

func createExclusive(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
}

// removeStale deletes the lock file at path when the PID it records is no
// longer running. A file without a readable PID is left alone.
func removeStale(path string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 || processAlive(pid) {
		return false
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return false
	}
	log.Warn().Str("lock", path).Int("pid", pid).Msg("removed stale lock")
	return true
}

func processAlive(pid int) bool {
	p, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = p.Signal(syscall.Signal(0))
	return err == nil || !errors.Is(err, os.ErrProcessDone)
}

// AcquireLock retries TryLock every interval until it succeeds or ctx ends.
func AcquireLock(ctx context.Context, dir, name string, interval time.Duration) (*Lock, error) {
	for {
		l, err := TryLock(dir, name)
		if err == nil {
			return l, nil
		}
		if !errors.Is(err, ErrLocked) {
			return nil, err
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("wait for lock: %w", ctx.Err())
		case <-time.After(interval):
		}
	}
}

// Unlock removes the lock file.
func (l *Lock) Unlock() error {
	if l == nil {
		return nil
	}
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
