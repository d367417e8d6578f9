// Package lock provides advisory file locks that serialize govem invocations
// touching the same installation key or the same shim.
//
// Locks are kernel advisory locks (flock), so they are released automatically
// when the process exits, even without a clean Release.
package lock

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/gofrs/flock"
)

const (
	// DefaultTimeout bounds how long Acquire waits for another invocation.
	DefaultTimeout = 10 * time.Second
	// RetryDelay is the polling interval while waiting for a held lock.
	RetryDelay = 100 * time.Millisecond
)

// Lock names shared across packages.
const (
	NameShim     = "shim"
	NameRegistry = "registry"
)

// ErrLocked is returned when another invocation holds the lock past the timeout.
var ErrLocked = errors.New("lock is held by another govem invocation")

var validName = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// Lock is a held advisory lock.
type Lock struct {
	file *flock.Flock
	path string
}

// Acquire takes the lock named name inside dir, waiting up to timeout.
// A zero timeout uses DefaultTimeout.
func Acquire(ctx context.Context, dir, name string, timeout time.Duration) (*Lock, error) {
	if !validName.MatchString(name) {
		return nil, fmt.Errorf("invalid lock name %q", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	path := filepath.Join(dir, name+".lock")
	fl := flock.New(path)

	lockCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	locked, err := fl.TryLockContext(lockCtx, RetryDelay)
	if err != nil {
		// Parent cancellation is the caller's error, not contention.
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %s", ErrLocked, path)
		}
		return nil, fmt.Errorf("acquire lock %s: %w", path, err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s", ErrLocked, path)
	}

	return &Lock{file: fl, path: path}, nil
}

// TryAcquire takes the lock without waiting.
func TryAcquire(dir, name string) (*Lock, error) {
	if !validName.MatchString(name) {
		return nil, fmt.Errorf("invalid lock name %q", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}

	path := filepath.Join(dir, name+".lock")
	fl := flock.New(path)

	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", path, err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s", ErrLocked, path)
	}
	return &Lock{file: fl, path: path}, nil
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.path
}

// Release unlocks. The lock file itself is left in place; removing it would
// let two waiters lock different inodes.
func (l *Lock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	err := l.file.Unlock()
	l.file = nil
	if err != nil {
		return fmt.Errorf("release lock %s: %w", l.path, err)
	}
	return nil
}
