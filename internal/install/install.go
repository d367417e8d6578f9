package install

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/ZebulonRouseFrantzich/govem/internal/clock"
	"github.com/ZebulonRouseFrantzich/govem/internal/desktop"
	"github.com/ZebulonRouseFrantzich/govem/internal/platform"
	"github.com/ZebulonRouseFrantzich/govem/internal/store"
	"github.com/ZebulonRouseFrantzich/govem/internal/verify"
	"github.com/google/uuid"
)

// DefaultStaleAfter is how old a staging, trash or download entry must be
// before an install sweeps it.
const DefaultStaleAfter = time.Hour

// Config holds the installer's collaborators.
type Config struct {
	Store      *store.Store
	Downloader Downloader
	Activation Activation
	Platform   *platform.Info

	// Verifier defaults to checksum-only verification.
	Verifier *verify.Verifier
	// Publisher defaults to publishing nothing.
	Publisher desktop.Publisher

	VersionShims bool
	StaleAfter   time.Duration
	Clock        clock.Clock
	Logger       *slog.Logger
}

// Installer stages a downloaded or local Godot build, checks it, then
// promotes and registers it in the store. It also removes installations
// along with their shims and desktop entries.
type Installer struct {
	store        *store.Store
	downloader   Downloader
	activation   Activation
	platform     *platform.Info
	verifier     *verify.Verifier
	publisher    desktop.Publisher
	versionShims bool
	staleAfter   time.Duration
	clock        clock.Clock
	logger       *slog.Logger
}

// New creates an Installer.
func New(cfg Config) (*Installer, error) {
	if cfg.Store == nil {
		return nil, errors.New("install: Store is required")
	}
	if cfg.Downloader == nil {
		return nil, errors.New("install: Downloader is required")
	}
	if cfg.Activation == nil {
		return nil, errors.New("install: Activation is required")
	}
	if cfg.Platform == nil {
		return nil, errors.New("install: Platform is required")
	}

	i := &Installer{
		store:        cfg.Store,
		downloader:   cfg.Downloader,
		activation:   cfg.Activation,
		platform:     cfg.Platform,
		verifier:     cfg.Verifier,
		publisher:    cfg.Publisher,
		versionShims: cfg.VersionShims,
		staleAfter:   cfg.StaleAfter,
		clock:        clock.OrReal(cfg.Clock),
		logger:       cfg.Logger,
	}
	if i.verifier == nil {
		i.verifier = &verify.Verifier{}
	}
	if i.publisher == nil {
		i.publisher = desktop.Nop{}
	}
	if i.staleAfter <= 0 {
		i.staleAfter = DefaultStaleAfter
	}
	if i.logger == nil {
		i.logger = slog.New(slog.DiscardHandler)
	}
	return i, nil
}

// Install stages, verifies and registers the version described by req.
// It never activates; callers that want that call Activate once Install
// has returned and released the key lock.
func (i *Installer) Install(ctx context.Context, req Request) (store.InstalledVersion, error) {
	if err := req.validate(); err != nil {
		return store.InstalledVersion{}, err
	}
	k := req.key()

	l, err := i.store.Lock(ctx, k.String())
	if err != nil {
		return store.InstalledVersion{}, err
	}
	defer l.Release()

	i.sweep()

	if err := i.clearInstallDir(ctx, k); err != nil {
		return store.InstalledVersion{}, err
	}

	staging, err := i.store.NewStaging(k)
	if err != nil {
		return store.InstalledVersion{}, fmt.Errorf("%w: %w", ErrPartialWrite, err)
	}
	committed := false
	defer func() {
		if !committed {
			i.discard(staging)
		}
	}()

	var exe string
	if req.Path != "" {
		exe, err = copyLocal(req.Path, staging, i.platform.ExecutableSuffixes())
	} else {
		exe, err = i.fetch(ctx, &req, k, staging)
	}
	if err != nil {
		return store.InstalledVersion{}, err
	}

	if exe == "" {
		if exe, err = findExecutable(staging, i.platform); err != nil {
			return store.InstalledVersion{}, err
		}
	}
	if req.SelfContained {
		if err := writeMarker(staging, exe); err != nil {
			return store.InstalledVersion{}, fmt.Errorf("%w: write self-contained marker: %w", ErrPartialWrite, err)
		}
	}

	meta := store.Metadata{
		ID:            k.ID,
		Flavor:        k.Flavor,
		Executable:    exe,
		SelfContained: req.SelfContained,
		SourceKind:    req.sourceKind(),
		Source:        req.source(),
		InstallID:     uuid.NewString(),
		InstalledAt:   i.clock.Now().UTC(),
	}
	if err := store.WriteMetadata(staging, &meta); err != nil {
		return store.InstalledVersion{}, fmt.Errorf("%w: %w", ErrPartialWrite, err)
	}

	if _, err := i.store.Promote(staging, k); err != nil {
		if errors.Is(err, store.ErrAlreadyInstalled) {
			return store.InstalledVersion{}, err
		}
		return store.InstalledVersion{}, fmt.Errorf("%w: %w", ErrPartialWrite, err)
	}
	committed = true

	// The promoted directory carries its metadata, so a failed Register
	// is repaired by the next load adopting it.
	iv, err := i.store.Register(ctx, meta)
	if err != nil {
		return store.InstalledVersion{}, fmt.Errorf("register %s: %w", k, err)
	}
	i.logger.Info("installed", "key", k.String(), "executable", iv.Executable)

	i.integrate(ctx, iv)
	return iv, nil
}

// clearInstallDir fails if k is installed and moves anything else found at
// its install path to trash.
func (i *Installer) clearInstallDir(ctx context.Context, k store.Key) error {
	_, err := i.store.Get(ctx, k)
	if err == nil {
		return fmt.Errorf("%w: %s", store.ErrAlreadyInstalled, k)
	}
	if !errors.Is(err, store.ErrNotInstalled) {
		return err
	}

	if _, err := os.Lstat(i.store.Dir(k)); errors.Is(err, fs.ErrNotExist) {
		return nil
	} else if err != nil {
		return fmt.Errorf("%w: %w", ErrPartialWrite, err)
	}

	i.logger.Warn("replacing incomplete install directory", "path", i.store.Dir(k))
	trash, err := i.store.Trash(k)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPartialWrite, err)
	}
	i.discard(trash)
	return nil
}

// integrate publishes the optional extras of a registered install. The
// install has already succeeded, so failures are only logged.
func (i *Installer) integrate(ctx context.Context, iv store.InstalledVersion) {
	if i.versionShims {
		if err := i.activation.LinkVersion(iv); err != nil {
			i.logger.Warn("could not create version shim", "key", iv.Key.String(), "error", err)
		}
	}
	if err := i.publisher.Publish(ctx, iv); err != nil {
		i.logger.Warn("could not publish desktop entry", "key", iv.Key.String(), "error", err)
	}
}

// Remove deletes the installation for k. If k is active the shim is
// cleared first, so no observer sees a shim pointing at a deleted tree.
func (i *Installer) Remove(ctx context.Context, k store.Key) error {
	if err := k.Validate(); err != nil {
		return err
	}

	l, err := i.store.Lock(ctx, k.String())
	if err != nil {
		return err
	}
	defer l.Release()

	if _, err := i.store.Get(ctx, k); err != nil {
		return err
	}

	cleared, err := i.activation.DeactivateIf(ctx, k)
	if err != nil {
		return fmt.Errorf("clear active version: %w", err)
	}
	if cleared {
		i.logger.Info("deactivated", "key", k.String())
	}

	trash, err := i.store.Trash(k)
	if err != nil {
		return err
	}
	if err := i.store.Drop(ctx, k); err != nil {
		// The directory is gone, so the next load drops the entry anyway.
		i.logger.Warn("could not update registry", "key", k.String(), "error", err)
	}
	i.discard(trash)

	if err := i.activation.UnlinkVersion(k); err != nil {
		i.logger.Warn("could not remove version shim", "key", k.String(), "error", err)
	}
	if err := i.publisher.Unpublish(ctx, k); err != nil {
		i.logger.Warn("could not remove desktop entry", "key", k.String(), "error", err)
	}
	i.logger.Info("removed", "key", k.String())
	return nil
}

// Prune removes staging, trash and download leftovers older than the
// configured age and returns their names.
func (i *Installer) Prune() ([]string, error) {
	return i.store.Sweep(i.staleAfter)
}

func (i *Installer) sweep() {
	removed, err := i.store.Sweep(i.staleAfter)
	if err != nil {
		i.logger.Warn("could not sweep stale entries", "error", err)
	}
	if len(removed) > 0 {
		i.logger.Debug("swept stale entries", "count", len(removed))
	}
}

// discard removes a transient path, logging rather than failing; Sweep
// retries later.
func (i *Installer) discard(path string) {
	if _, err := os.Lstat(path); errors.Is(err, fs.ErrNotExist) {
		return
	}
	if err := i.store.Discard(path); err != nil {
		i.logger.Warn("could not clean up", "path", filepath.Base(path), "error", err)
	}
}
