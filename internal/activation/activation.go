// Package activation owns the shim that makes one installation "active".
//
// The shim is a symlink shim_root/<command> pointing at the active
// installation's executable. The link is the only record of which version
// is active, and it is always replaced by renaming a fully formed link over
// it, so the command never goes briefly missing.
package activation

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ZebulonRouseFrantzich/govem/internal/lock"
	"github.com/ZebulonRouseFrantzich/govem/internal/store"
	"github.com/google/uuid"
)

// ErrShimConflict means a file govem did not create occupies a shim path.
var ErrShimConflict = errors.New("shim path is occupied by a non-symlink")

// Installations is the part of the installation store activation needs.
type Installations interface {
	Get(ctx context.Context, k store.Key) (store.InstalledVersion, error)
	FindByExecutable(ctx context.Context, path string) (store.InstalledVersion, bool, error)
	Lock(ctx context.Context, name string) (*lock.Lock, error)
}

// Config configures a Manager.
type Config struct {
	Installations Installations
	ShimRoot      string
	Command       string
	Logger        *slog.Logger
}

// Manager switches the active Godot version by pointing the command shim
// in its shim root at an installed executable, and maintains the
// per-version shims.
type Manager struct {
	installs Installations
	shimRoot string
	command  string
	logger   *slog.Logger
}

// New creates a Manager.
func New(cfg Config) *Manager {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Manager{
		installs: cfg.Installations,
		shimRoot: cfg.ShimRoot,
		command:  cfg.Command,
		logger:   logger,
	}
}

// ShimPath returns the path of the stable command.
func (m *Manager) ShimPath() string {
	return filepath.Join(m.shimRoot, m.command)
}

// VersionShimPath returns the path of the per-version command for k.
func (m *Manager) VersionShimPath(k store.Key) string {
	return filepath.Join(m.shimRoot, m.command+"-"+k.String())
}

// Activate points the shim at k's executable. It holds k's lock so the
// installation cannot be removed mid-switch, then the shim lock.
func (m *Manager) Activate(ctx context.Context, k store.Key) (store.InstalledVersion, error) {
	keyLock, err := m.installs.Lock(ctx, k.String())
	if err != nil {
		return store.InstalledVersion{}, err
	}
	defer keyLock.Release()

	iv, err := m.installs.Get(ctx, k)
	if err != nil {
		return store.InstalledVersion{}, err
	}

	shimLock, err := m.installs.Lock(ctx, lock.NameShim)
	if err != nil {
		return store.InstalledVersion{}, err
	}
	defer shimLock.Release()

	if err := replaceLink(m.ShimPath(), iv.Executable); err != nil {
		return store.InstalledVersion{}, fmt.Errorf("activate %s: %w", k, err)
	}
	m.logger.Debug("activated version", "key", k.String(), "shim", m.ShimPath(), "target", iv.Executable)
	return iv, nil
}

// Current resolves the shim back to a registered installation. A missing
// shim, or one pointing anywhere else, yields false. It never fails.
func (m *Manager) Current(ctx context.Context) (store.InstalledVersion, bool) {
	target, err := readLink(m.ShimPath())
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			m.logger.Debug("shim unreadable", "shim", m.ShimPath(), "error", err)
		}
		return store.InstalledVersion{}, false
	}

	iv, ok, err := m.installs.FindByExecutable(ctx, target)
	if err != nil {
		m.logger.Debug("could not resolve shim target", "target", target, "error", err)
		return store.InstalledVersion{}, false
	}
	return iv, ok
}

// Deactivate removes the shim. It is a no-op when the shim is absent.
func (m *Manager) Deactivate(ctx context.Context) error {
	shimLock, err := m.installs.Lock(ctx, lock.NameShim)
	if err != nil {
		return err
	}
	defer shimLock.Release()

	return m.removeShim()
}

// DeactivateIf removes the shim when it currently resolves to k and reports
// whether it did. Callers removing k must already hold k's lock.
func (m *Manager) DeactivateIf(ctx context.Context, k store.Key) (bool, error) {
	shimLock, err := m.installs.Lock(ctx, lock.NameShim)
	if err != nil {
		return false, err
	}
	defer shimLock.Release()

	current, ok := m.Current(ctx)
	if !ok || current.Key != k {
		return false, nil
	}
	if err := m.removeShim(); err != nil {
		return false, err
	}
	m.logger.Debug("deactivated version", "key", k.String())
	return true, nil
}

func (m *Manager) removeShim() error {
	if err := removeLink(m.ShimPath()); err != nil {
		return fmt.Errorf("deactivate: %w", err)
	}
	return nil
}

// LinkVersion creates the per-version command for iv.
func (m *Manager) LinkVersion(iv store.InstalledVersion) error {
	return replaceLink(m.VersionShimPath(iv.Key), iv.Executable)
}

// UnlinkVersion removes the per-version command for k, if present.
func (m *Manager) UnlinkVersion(k store.Key) error {
	return removeLink(m.VersionShimPath(k))
}

// readLink returns the absolute target of the symlink at path.
func readLink(path string) (string, error) {
	target, err := os.Readlink(path)
	if err != nil {
		return "", err
	}
	if !filepath.IsAbs(target) {
		target = filepath.Join(filepath.Dir(path), target)
	}
	return filepath.Clean(target), nil
}

// replaceLink atomically makes path a symlink to target: the new link is
// created under a temporary name and renamed over path.
func replaceLink(path, target string) error {
	if info, err := os.Lstat(path); err == nil && info.Mode()&fs.ModeSymlink == 0 {
		return fmt.Errorf("%w: %s", ErrShimConflict, path)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create shim directory: %w", err)
	}

	tmp := filepath.Join(dir, "."+filepath.Base(path)+".tmp-"+uuid.NewString())
	if err := os.Symlink(target, tmp); err != nil {
		return fmt.Errorf("create link: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace link: %w", err)
	}
	return nil
}

// removeLink deletes the symlink at path. Anything else at path is left
// alone and reported as a conflict.
func removeLink(path string) error {
	info, err := os.Lstat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if info.Mode()&fs.ModeSymlink == 0 {
		return fmt.Errorf("%w: %s", ErrShimConflict, path)
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
