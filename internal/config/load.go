package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/ZebulonRouseFrantzich/govem/internal/platform"
	"github.com/adrg/xdg"
)

// Default returns settings derived from the XDG base directories.
func Default() *Settings {
	return &Settings{
		ConfigRoot:     filepath.Join(xdg.ConfigHome, AppName),
		DataRoot:       filepath.Join(xdg.DataHome, AppName),
		ShimRoot:       xdg.BinHome,
		DesktopRoot:    filepath.Join(xdg.DataHome, "applications"),
		Mirror:         DefaultMirror,
		Command:        DefaultCommand,
		CatalogTTL:     DefaultCatalogTTL,
		StaleAfter:     DefaultStaleAfter,
		DesktopEntries: true,
		VersionShims:   true,
		UserAgent:      DefaultUserAgent,
	}
}

// Load resolves settings: defaults, then config.lua if present, then the
// GOVEM_* environment.
func Load(ctx context.Context, detector platform.Detector) (*Settings, error) {
	s := Default()

	if dir := os.Getenv(EnvConfigDir); dir != "" {
		s.ConfigRoot = absPath(dir)
	}

	err := NewParser(detector).ParseFile(ctx, s.FilePath(), s)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	ApplyEnv(s)

	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}
	return s, nil
}

// ApplyEnv overrides s from GOVEM_* environment variables.
func ApplyEnv(s *Settings) {
	if dir := os.Getenv(EnvConfigDir); dir != "" {
		s.ConfigRoot = absPath(dir)
	}
	if dir := os.Getenv(EnvDataDir); dir != "" {
		s.DataRoot = absPath(dir)
	}
	if dir := os.Getenv(EnvShimDir); dir != "" {
		s.ShimRoot = absPath(dir)
	}
	if dir := os.Getenv(EnvDesktopDir); dir != "" {
		s.DesktopRoot = absPath(dir)
	}
	if mirror := os.Getenv(EnvMirror); mirror != "" {
		s.Mirror = mirror
	}
	if v := os.Getenv(EnvDebug); v != "" {
		if debug, err := strconv.ParseBool(v); err == nil {
			s.Debug = debug
		}
	}
}

func absPath(path string) string {
	if abs, err := filepath.Abs(resolvePath(path, "")); err == nil {
		return abs
	}
	return path
}
