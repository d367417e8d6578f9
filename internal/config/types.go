package config

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"regexp"
	"time"
)

// Settings is the fully resolved govem configuration.
type Settings struct {
	// ConfigRoot holds config.lua and the release catalog cache.
	ConfigRoot string

	// DataRoot holds one directory per installation plus the registry.
	DataRoot string

	// ShimRoot is expected to be on PATH; the activation shim lives here.
	ShimRoot string

	// DesktopRoot receives .desktop menu entries.
	DesktopRoot string

	// Mirror is the base URL of the release directory index.
	Mirror string

	// Command is the stable shim name.
	Command string

	// CatalogTTL is how long a cached release listing counts as fresh.
	CatalogTTL time.Duration

	// StaleAfter is the age after which leftover staging and trash
	// directories are swept.
	StaleAfter time.Duration

	DesktopEntries bool
	VersionShims   bool

	// Keyring is an optional OpenPGP keyring file. When set, release
	// archives must carry a valid detached signature.
	Keyring string

	UserAgent string
	Debug     bool
}

var commandRegex = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// CatalogCachePath returns the location of the cached release listing.
func (s *Settings) CatalogCachePath() string {
	return filepath.Join(s.ConfigRoot, "release_catalog_cache")
}

// FilePath returns the location of the Lua settings file.
func (s *Settings) FilePath() string {
	return filepath.Join(s.ConfigRoot, FileName)
}

// Validate checks that the resolved settings are usable.
func (s *Settings) Validate() error {
	var errs []error

	dirs := []struct{ name, path string }{
		{"config dir", s.ConfigRoot},
		{"data dir", s.DataRoot},
		{"shim dir", s.ShimRoot},
		{"desktop dir", s.DesktopRoot},
	}
	for _, d := range dirs {
		if d.path == "" {
			errs = append(errs, fmt.Errorf("%s is empty", d.name))
		} else if !filepath.IsAbs(d.path) {
			errs = append(errs, fmt.Errorf("%s must be absolute: %s", d.name, d.path))
		}
	}

	if u, err := url.Parse(s.Mirror); err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
		errs = append(errs, fmt.Errorf("mirror must be an http(s) URL: %q", s.Mirror))
	}

	if !commandRegex.MatchString(s.Command) {
		errs = append(errs, fmt.Errorf("invalid command name: %q", s.Command))
	}

	if s.CatalogTTL < 0 {
		errs = append(errs, errors.New("catalog_ttl must not be negative"))
	}
	if s.StaleAfter <= 0 {
		errs = append(errs, errors.New("stale_after must be positive"))
	}

	return errors.Join(errs...)
}
