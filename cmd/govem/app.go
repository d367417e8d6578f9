package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/ZebulonRouseFrantzich/govem/internal/activation"
	"github.com/ZebulonRouseFrantzich/govem/internal/catalog"
	"github.com/ZebulonRouseFrantzich/govem/internal/config"
	"github.com/ZebulonRouseFrantzich/govem/internal/desktop"
	"github.com/ZebulonRouseFrantzich/govem/internal/download"
	"github.com/ZebulonRouseFrantzich/govem/internal/install"
	"github.com/ZebulonRouseFrantzich/govem/internal/mirror"
	"github.com/ZebulonRouseFrantzich/govem/internal/platform"
	"github.com/ZebulonRouseFrantzich/govem/internal/store"
	"github.com/ZebulonRouseFrantzich/govem/internal/verify"
)

// app holds the components one invocation works with. They are built in
// setup, after flags are parsed.
type app struct {
	stdout   io.Writer
	stderr   io.Writer
	detector platform.Detector
	debug    bool

	settings   *config.Settings
	logger     *slog.Logger
	platform   *platform.Info
	store      *store.Store
	activation *activation.Manager
	catalog    *catalog.Catalog
	installer  *install.Installer
}

func newApp(stdout, stderr io.Writer) *app {
	return &app{stdout: stdout, stderr: stderr, detector: platform.NewDetector()}
}

func (a *app) setup(ctx context.Context) error {
	info, err := a.detector.Detect(ctx)
	if err != nil && (info == nil || !errors.Is(err, platform.ErrUnsupportedArch)) {
		return err
	}
	a.platform = info

	settings, err := config.Load(ctx, platform.Static{Info: info})
	if err != nil {
		return fmt.Errorf("%w: %s", errConfig, config.FormatError(err, a.debug))
	}
	a.settings = settings

	level := slog.LevelWarn
	if a.debug || settings.Debug {
		level = slog.LevelDebug
	}
	a.logger = slog.New(slog.NewTextHandler(a.stderr, &slog.HandlerOptions{Level: level}))
	a.logger.Debug("settings loaded", "data_dir", settings.DataRoot, "shim_dir", settings.ShimRoot, "mirror", settings.Mirror)
	if info.Arch == "" {
		// The catalog is empty and installs find no executable, but local
		// installations can still be listed and switched.
		a.logger.Warn("no Godot builds exist for this architecture", "arch", info.ArchRaw)
	}

	a.store = store.New(store.Config{DataRoot: settings.DataRoot, Logger: a.logger})
	a.activation = activation.New(activation.Config{
		Installations: a.store,
		ShimRoot:      settings.ShimRoot,
		Command:       settings.Command,
		Logger:        a.logger,
	})

	scraper, err := mirror.New(mirror.Config{
		BaseURL:   settings.Mirror,
		Platform:  info,
		UserAgent: settings.UserAgent,
		Logger:    a.logger,
	})
	if err != nil {
		return fmt.Errorf("%w: %w", errConfig, err)
	}
	a.catalog = catalog.New(catalog.Config{
		CachePath: settings.CatalogCachePath(),
		TTL:       settings.CatalogTTL,
		Source:    scraper,
		Logger:    a.logger,
	})

	verifier, err := verify.NewVerifier(settings.Keyring)
	if err != nil {
		return fmt.Errorf("%w: load keyring: %w", errConfig, err)
	}

	var publisher desktop.Publisher = desktop.Nop{}
	if settings.DesktopEntries {
		publisher = desktop.New(desktop.Config{Dir: settings.DesktopRoot, Logger: a.logger})
	}

	a.installer, err = install.New(install.Config{
		Store:        a.store,
		Downloader:   download.New(nil, settings.UserAgent),
		Activation:   a.activation,
		Platform:     info,
		Verifier:     verifier,
		Publisher:    publisher,
		VersionShims: settings.VersionShims,
		StaleAfter:   settings.StaleAfter,
		Logger:       a.logger,
	})
	return err
}

func (a *app) printf(format string, args ...any) {
	fmt.Fprintf(a.stdout, format, args...)
}

func (a *app) printError(err error) {
	fmt.Fprintf(a.stderr, "Error: %v\n", err)
	if hint := hintFor(err); hint != "" {
		fmt.Fprintln(a.stderr, hint)
	}
}
