// Package catalog caches the list of installable Godot releases.
//
// A Catalog answers from its cache file while the cache is younger than the
// configured TTL, refreshes through a Source otherwise, and falls back to a
// stale cache when the refresh fails.
package catalog

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrCatalogUnavailable means the remote listing could not be fetched
	// and no cached listing exists.
	ErrCatalogUnavailable = errors.New("release catalog unavailable")

	// ErrReleaseNotFound means the listing has no release with the
	// requested identifier and flavor.
	ErrReleaseNotFound = errors.New("release not found")
)

// ReleaseDescriptor identifies one remote, installable build.
type ReleaseDescriptor struct {
	ID      string `json:"id"`
	Flavor  string `json:"flavor"`
	URL     string `json:"url"`
	Channel string `json:"channel"`

	// SumsURL points at a SHA512-SUMS.txt covering URL, when the mirror
	// publishes one.
	SumsURL string `json:"sums_url,omitempty"`
}

// Key returns the installation key the release installs under.
func (d ReleaseDescriptor) Key() string {
	return d.ID + "-" + d.Flavor
}

// Source produces a fresh release listing, typically by scraping a mirror.
type Source interface {
	Releases(ctx context.Context) ([]ReleaseDescriptor, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) ([]ReleaseDescriptor, error)

// Releases calls f.
func (f SourceFunc) Releases(ctx context.Context) ([]ReleaseDescriptor, error) {
	return f(ctx)
}

// Listing is the result of Fetch.
type Listing struct {
	// Releases is sorted newest first.
	Releases  []ReleaseDescriptor
	FetchedAt time.Time

	// Stale is set when the cache was past its TTL and the refresh failed.
	// Warning then holds the refresh error.
	Stale   bool
	Warning error
}
