package catalog

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"slices"
	"time"

	"github.com/ZebulonRouseFrantzich/govem/internal/clock"
	"github.com/ZebulonRouseFrantzich/govem/internal/version"
)

// Config configures a Catalog.
type Config struct {
	CachePath string
	TTL       time.Duration
	Source    Source
	Clock     clock.Clock
	Logger    *slog.Logger
}

// Catalog serves the release listing from an on-disk cache, refreshing it
// from its Source once the cache is older than the TTL.
type Catalog struct {
	cachePath string
	ttl       time.Duration
	source    Source
	clock     clock.Clock
	logger    *slog.Logger
}

// New creates a Catalog.
func New(cfg Config) *Catalog {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Catalog{
		cachePath: cfg.CachePath,
		ttl:       cfg.TTL,
		source:    cfg.Source,
		clock:     clock.OrReal(cfg.Clock),
		logger:    logger,
	}
}

// Fetch returns the release listing, newest first. A cache younger than the
// TTL is returned without contacting the source unless force is set. When
// the refresh fails, a cached listing of any age is returned with Stale set;
// with no cache the error wraps ErrCatalogUnavailable.
func (c *Catalog) Fetch(ctx context.Context, force bool) (*Listing, error) {
	cached, cacheErr := readCache(c.cachePath)
	if cacheErr != nil && !errors.Is(cacheErr, fs.ErrNotExist) {
		c.logger.Warn("ignoring unreadable catalog cache", "path", c.cachePath, "error", cacheErr)
	}

	now := c.clock.Now()
	if !force && cached != nil && now.Sub(cached.FetchedAt) < c.ttl {
		c.logger.Debug("using cached release catalog", "fetched_at", cached.FetchedAt)
		return &Listing{Releases: cached.Releases, FetchedAt: cached.FetchedAt}, nil
	}

	releases, err := c.refresh(ctx)
	if err != nil {
		if cached == nil {
			return nil, fmt.Errorf("%w: %w", ErrCatalogUnavailable, err)
		}
		c.logger.Warn("release catalog refresh failed, using stale cache",
			"fetched_at", cached.FetchedAt, "error", err)
		return &Listing{
			Releases:  cached.Releases,
			FetchedAt: cached.FetchedAt,
			Stale:     true,
			Warning:   err,
		}, nil
	}

	fresh := &cacheFile{FetchedAt: now, Releases: releases}
	if err := writeCache(c.cachePath, fresh); err != nil {
		// The listing is still good for this invocation.
		c.logger.Warn("could not write catalog cache", "path", c.cachePath, "error", err)
	}

	return &Listing{Releases: releases, FetchedAt: now}, nil
}

func (c *Catalog) refresh(ctx context.Context) ([]ReleaseDescriptor, error) {
	if c.source == nil {
		return nil, errors.New("no release source configured")
	}

	releases, err := c.source.Releases(ctx)
	if err != nil {
		return nil, err
	}

	releases = slices.Clone(releases)
	for i := range releases {
		if releases[i].Channel == "" {
			releases[i].Channel = version.Channel(releases[i].ID)
		}
	}
	Sort(releases)
	return releases, nil
}

// Lookup finds the release with the given identifier and flavor, refreshing
// the listing only when the cache is past its TTL.
func (c *Catalog) Lookup(ctx context.Context, id, flavor string) (ReleaseDescriptor, error) {
	listing, err := c.Fetch(ctx, false)
	if err != nil {
		return ReleaseDescriptor{}, err
	}
	for _, r := range listing.Releases {
		if r.ID == id && r.Flavor == flavor {
			return r, nil
		}
	}
	return ReleaseDescriptor{}, fmt.Errorf("%w: %s (%s)", ErrReleaseNotFound, id, flavor)
}

// Sort orders releases newest first; standard builds precede mono builds of
// the same version.
func Sort(releases []ReleaseDescriptor) {
	slices.SortStableFunc(releases, func(a, b ReleaseDescriptor) int {
		if c := version.Compare(b.ID, a.ID); c != 0 {
			return c
		}
		return cmp.Compare(flavorRank(a.Flavor), flavorRank(b.Flavor))
	})
}

func flavorRank(f string) int {
	if f == version.FlavorStandard {
		return 0
	}
	return 1
}

// Filter returns the releases whose identifier starts with prefix. Unless
// unstable is set, only stable releases are kept.
func Filter(releases []ReleaseDescriptor, prefix string, unstable bool) []ReleaseDescriptor {
	var out []ReleaseDescriptor
	for _, r := range releases {
		if !unstable && r.Channel != version.ChannelStable {
			continue
		}
		if prefix != "" && !hasVersionPrefix(r.ID, prefix) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// hasVersionPrefix matches whole segments: "4.1" matches "4.1.3" but not
// "4.10".
func hasVersionPrefix(id, prefix string) bool {
	if len(id) < len(prefix) || id[:len(prefix)] != prefix {
		return false
	}
	if len(id) == len(prefix) {
		return true
	}
	switch id[len(prefix)] {
	case '.', '-':
		return true
	}
	return false
}
