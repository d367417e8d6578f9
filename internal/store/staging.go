package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ZebulonRouseFrantzich/govem/internal/lock"
	"github.com/google/uuid"
)

// Prefixes of the transient entries the store creates under the data root.
const (
	stagingPrefix  = ".staging-"
	trashPrefix    = ".trash-"
	downloadPrefix = ".download-"
)

// uuidLen is the length of a canonical UUID string.
const uuidLen = 36

func (s *Store) transientPath(prefix string, k Key) string {
	return filepath.Join(s.root, prefix+k.String()+"-"+uuid.NewString())
}

// NewStaging creates an empty staging directory for k. It is a sibling of
// the final install directory, so Promote is a same-filesystem rename.
func (s *Store) NewStaging(k Key) (string, error) {
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return "", fmt.Errorf("create data root: %w", err)
	}
	dir := s.transientPath(stagingPrefix, k)
	if err := os.Mkdir(dir, 0o755); err != nil {
		return "", fmt.Errorf("create staging directory: %w", err)
	}
	return dir, nil
}

// NewDownloadPath returns a fresh path under the data root for a downloaded
// archive. Sweep removes it if the process dies before cleaning up.
func (s *Store) NewDownloadPath(k Key) (string, error) {
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return "", fmt.Errorf("create data root: %w", err)
	}
	return s.transientPath(downloadPrefix, k), nil
}

// Promote renames staging to the install directory for k. It fails with
// ErrAlreadyInstalled if anything already occupies that path.
func (s *Store) Promote(staging string, k Key) (string, error) {
	dir := s.Dir(k)
	if _, err := os.Lstat(dir); err == nil {
		return "", fmt.Errorf("%w: %s exists", ErrAlreadyInstalled, dir)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("check install directory: %w", err)
	}

	if err := os.Rename(staging, dir); err != nil {
		return "", fmt.Errorf("promote staging: %w", err)
	}
	return dir, nil
}

// Trash atomically moves the install directory for k out of the way and
// returns its new location. Once Trash returns, k no longer loads as
// installed.
func (s *Store) Trash(k Key) (string, error) {
	trash := s.transientPath(trashPrefix, k)
	if err := os.Rename(s.Dir(k), trash); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrNotInstalled, k)
		}
		return "", fmt.Errorf("move installation to trash: %w", err)
	}
	return trash, nil
}

// Discard deletes a staging, trash or download path. Paths outside the
// data root's transient entries are refused.
func (s *Store) Discard(path string) error {
	if !s.isTransient(path) {
		return fmt.Errorf("refusing to discard %s: not a transient entry", path)
	}
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("discard %s: %w", filepath.Base(path), err)
	}
	return nil
}

func (s *Store) isTransient(path string) bool {
	if filepath.Dir(filepath.Clean(path)) != filepath.Clean(s.root) {
		return false
	}
	_, _, ok := parseTransient(filepath.Base(path))
	return ok
}

// parseTransient splits ".staging-<key>-<uuid>[.tmp]" into prefix and key.
func parseTransient(name string) (string, string, bool) {
	for _, prefix := range []string{stagingPrefix, trashPrefix, downloadPrefix} {
		rest, ok := strings.CutPrefix(name, prefix)
		if !ok {
			continue
		}
		rest = strings.TrimSuffix(rest, ".tmp")
		if len(rest) < uuidLen+2 || rest[len(rest)-uuidLen-1] != '-' {
			return "", "", false
		}
		if _, err := uuid.Parse(rest[len(rest)-uuidLen:]); err != nil {
			return "", "", false
		}
		return prefix, rest[:len(rest)-uuidLen-1], true
	}
	return "", "", false
}

// Sweep deletes transient entries last modified more than olderThan ago.
// Entries whose key lock is held belong to a running invocation and are
// skipped. It returns the names removed.
func (s *Store) Sweep(olderThan time.Duration) ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read data root: %w", err)
	}

	cutoff := s.clock.Now().Add(-olderThan)
	var removed []string
	var errs []error

	for _, e := range entries {
		_, key, ok := parseTransient(e.Name())
		if !ok {
			continue
		}
		info, err := e.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}

		l, err := lock.TryAcquire(filepath.Join(s.root, locksDir), key)
		if err != nil {
			s.logger.Debug("skipping transient entry in use", "name", e.Name(), "error", err)
			continue
		}
		err = os.RemoveAll(filepath.Join(s.root, e.Name()))
		l.Release()
		if err != nil {
			errs = append(errs, fmt.Errorf("remove %s: %w", e.Name(), err))
			continue
		}
		s.logger.Debug("swept transient entry", "name", e.Name())
		removed = append(removed, e.Name())
	}

	return removed, errors.Join(errs...)
}
