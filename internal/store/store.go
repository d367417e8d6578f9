package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/ZebulonRouseFrantzich/govem/internal/atomicfile"
	"github.com/ZebulonRouseFrantzich/govem/internal/clock"
	"github.com/ZebulonRouseFrantzich/govem/internal/lock"
	"github.com/ZebulonRouseFrantzich/govem/internal/version"
)

const (
	// RegistryFile indexes installations under the data root.
	RegistryFile = "registry.json"

	registryFormat = 1
	locksDir       = ".locks"
)

type registryFile struct {
	Format        int        `json:"format"`
	Installations []Metadata `json:"installations"`
}

// Config configures a Store.
type Config struct {
	DataRoot    string
	LockTimeout time.Duration
	Clock       clock.Clock
	Logger      *slog.Logger
}

// Store owns the installation directories under a data root and the
// registry.json index of them. Writers serialize on per-key and registry
// file locks; reads reconcile the registry against the directories.
type Store struct {
	root        string
	lockTimeout time.Duration
	clock       clock.Clock
	logger      *slog.Logger
}

// New creates a Store rooted at cfg.DataRoot. Nothing is touched on disk
// until the first operation.
func New(cfg Config) *Store {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{
		root:        cfg.DataRoot,
		lockTimeout: cfg.LockTimeout,
		clock:       clock.OrReal(cfg.Clock),
		logger:      logger,
	}
}

// Root returns the data root.
func (s *Store) Root() string {
	return s.root
}

// Dir returns the install directory for k.
func (s *Store) Dir(k Key) string {
	return filepath.Join(s.root, k.String())
}

// Lock takes the advisory lock called name under data_root/.locks.
func (s *Store) Lock(ctx context.Context, name string) (*lock.Lock, error) {
	return lock.Acquire(ctx, filepath.Join(s.root, locksDir), name, s.lockTimeout)
}

// List returns all installations, newest version first, after reconciling
// the registry against the filesystem.
func (s *Store) List(ctx context.Context) ([]InstalledVersion, error) {
	installs, changed, err := s.load()
	if err != nil {
		return nil, err
	}

	if changed {
		// Persisting the reconciled index is an optimization. If another
		// invocation holds the registry it will write its own view.
		if l, err := lock.TryAcquire(filepath.Join(s.root, locksDir), lock.NameRegistry); err == nil {
			if fresh, _, err := s.load(); err == nil {
				installs = fresh
				if err := s.save(fresh); err != nil {
					s.logger.Warn("could not persist reconciled registry", "error", err)
				}
			}
			l.Release()
		}
	}

	out := make([]InstalledVersion, 0, len(installs))
	for _, m := range installs {
		out = append(out, newInstalledVersion(s.Dir(m.Key()), m))
	}
	return out, nil
}

// Get returns the installation for k, or an error wrapping ErrNotInstalled.
func (s *Store) Get(ctx context.Context, k Key) (InstalledVersion, error) {
	installs, err := s.List(ctx)
	if err != nil {
		return InstalledVersion{}, err
	}
	for _, iv := range installs {
		if iv.Key == k {
			return iv, nil
		}
	}
	return InstalledVersion{}, fmt.Errorf("%w: %s", ErrNotInstalled, k)
}

// FindByExecutable returns the installation whose executable is path.
func (s *Store) FindByExecutable(ctx context.Context, path string) (InstalledVersion, bool, error) {
	installs, err := s.List(ctx)
	if err != nil {
		return InstalledVersion{}, false, err
	}
	path = filepath.Clean(path)
	for _, iv := range installs {
		if filepath.Clean(iv.Executable) == path {
			return iv, true, nil
		}
	}
	return InstalledVersion{}, false, nil
}

// Register adds a promoted installation to the registry. The directory must
// already hold the metadata and executable.
func (s *Store) Register(ctx context.Context, m Metadata) (InstalledVersion, error) {
	k := m.Key()
	if err := m.validate(); err != nil {
		return InstalledVersion{}, err
	}
	dir := s.Dir(k)
	if !validInstall(dir, m) {
		return InstalledVersion{}, fmt.Errorf("register %s: installation directory is incomplete", k)
	}

	l, err := s.Lock(ctx, lock.NameRegistry)
	if err != nil {
		return InstalledVersion{}, err
	}
	defer l.Release()

	installs, _, err := s.load()
	if err != nil {
		return InstalledVersion{}, err
	}

	if i := slices.IndexFunc(installs, func(e Metadata) bool { return e.Key() == k }); i >= 0 {
		// load adopts a promoted directory with metadata, so the entry may
		// already be this very install.
		if installs[i].InstallID != m.InstallID {
			return InstalledVersion{}, fmt.Errorf("%w: %s", ErrAlreadyInstalled, k)
		}
		installs[i] = m
	} else {
		installs = append(installs, m)
	}

	if err := s.save(installs); err != nil {
		return InstalledVersion{}, err
	}
	s.logger.Debug("registered installation", "key", k.String(), "dir", dir)
	return newInstalledVersion(dir, m), nil
}

// Drop removes k from the registry. The directory must already be gone
// (see Trash); otherwise the next load would adopt it again. Dropping an
// absent key is a no-op.
func (s *Store) Drop(ctx context.Context, k Key) error {
	l, err := s.Lock(ctx, lock.NameRegistry)
	if err != nil {
		return err
	}
	defer l.Release()

	installs, _, err := s.load()
	if err != nil {
		return err
	}

	installs = slices.DeleteFunc(installs, func(e Metadata) bool { return e.Key() == k })
	if err := s.save(installs); err != nil {
		return err
	}
	s.logger.Debug("dropped installation", "key", k.String())
	return nil
}

// load reads the registry and reconciles it with the directories on disk.
// changed reports whether the result differs from the stored index.
func (s *Store) load() ([]Metadata, bool, error) {
	registry, err := s.readRegistry()
	if err != nil {
		s.logger.Warn("registry unreadable, rebuilding from install directories", "error", err)
		registry = nil
	}

	changed := false
	seen := make(map[Key]bool)
	var installs []Metadata

	for _, m := range registry {
		k := m.Key()
		if seen[k] {
			changed = true
			continue
		}
		if !validInstall(s.Dir(k), m) {
			s.logger.Debug("dropping registry entry without installation", "key", k.String())
			changed = true
			continue
		}
		seen[k] = true
		installs = append(installs, m)
	}

	entries, err := os.ReadDir(s.root)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, false, fmt.Errorf("read data root: %w", err)
	}
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		k, err := ParseKey(e.Name())
		if err != nil || seen[k] {
			continue
		}
		dir := filepath.Join(s.root, e.Name())
		m, err := ReadMetadata(dir)
		if err != nil || m.Key() != k || !validInstall(dir, *m) {
			continue
		}
		s.logger.Debug("adopting unregistered installation", "key", k.String())
		seen[k] = true
		installs = append(installs, *m)
		changed = true
	}

	sortInstalls(installs)
	return installs, changed, nil
}

func (s *Store) readRegistry() ([]Metadata, error) {
	data, err := os.ReadFile(filepath.Join(s.root, RegistryFile))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read registry: %w", err)
	}

	var r registryFile
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("unmarshal registry: %w", err)
	}
	if r.Format != registryFormat {
		return nil, fmt.Errorf("unsupported registry format %d", r.Format)
	}

	out := r.Installations[:0]
	for _, m := range r.Installations {
		if m.validate() == nil {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *Store) save(installs []Metadata) error {
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return fmt.Errorf("create data root: %w", err)
	}
	if installs == nil {
		installs = []Metadata{}
	}
	data, err := json.MarshalIndent(registryFile{Format: registryFormat, Installations: installs}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal registry: %w", err)
	}
	if err := atomicfile.Write(filepath.Join(s.root, RegistryFile), data, 0o644); err != nil {
		return fmt.Errorf("write registry: %w", err)
	}
	return nil
}

// validInstall reports whether dir exists and holds m's executable.
func validInstall(dir string, m Metadata) bool {
	info, err := os.Stat(filepath.Join(dir, m.Executable))
	return err == nil && info.Mode().IsRegular()
}

func sortInstalls(installs []Metadata) {
	slices.SortStableFunc(installs, func(a, b Metadata) int {
		if c := version.Compare(b.ID, a.ID); c != 0 {
			return c
		}
		return strings.Compare(b.Flavor, a.Flavor)
	})
}
