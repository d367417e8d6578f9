package catalog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ZebulonRouseFrantzich/govem/internal/clock"
	"github.com/google/go-cmp/cmp"
)

// countingSource returns canned releases and counts calls.
type countingSource struct {
	releases []ReleaseDescriptor
	err      error
	calls    int
}

func (s *countingSource) Releases(ctx context.Context) ([]ReleaseDescriptor, error) {
	s.calls++
	return s.releases, s.err
}

var remote = []ReleaseDescriptor{
	{ID: "4.1.0", Flavor: "standard", URL: "https://example.org/4.1.0.zip"},
	{ID: "4.2.1", Flavor: "mono", URL: "https://example.org/4.2.1_mono.zip"},
	{ID: "4.2.1", Flavor: "standard", URL: "https://example.org/4.2.1.zip"},
	{ID: "4.10.0", Flavor: "standard", URL: "https://example.org/4.10.0.zip"},
	{ID: "4.3-beta2", Flavor: "standard", URL: "https://example.org/4.3-beta2.zip"},
}

func newTestCatalog(t *testing.T, src Source) (*Catalog, *clock.Fixed, string) {
	t.Helper()
	clk := &clock.Fixed{Time: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	path := filepath.Join(t.TempDir(), "config", "release_catalog_cache")
	return New(Config{CachePath: path, TTL: time.Hour, Source: src, Clock: clk}), clk, path
}

func ids(releases []ReleaseDescriptor) []string {
	var out []string
	for _, r := range releases {
		out = append(out, r.Key())
	}
	return out
}

func TestCatalog_Fetch_SortsAndCaches(t *testing.T) {
	src := &countingSource{releases: remote}
	c, _, path := newTestCatalog(t, src)

	listing, err := c.Fetch(context.Background(), false)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	want := []string{"4.10.0-standard", "4.3-beta2-standard", "4.2.1-standard", "4.2.1-mono", "4.1.0-standard"}
	if diff := cmp.Diff(want, ids(listing.Releases)); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
	if listing.Releases[1].Channel != "beta" || listing.Releases[0].Channel != "stable" {
		t.Errorf("channels = %q, %q", listing.Releases[0].Channel, listing.Releases[1].Channel)
	}
	if listing.Stale {
		t.Error("fresh listing marked stale")
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("cache file not written: %v", err)
	}
}

func TestCatalog_Fetch_FreshCacheSkipsSource(t *testing.T) {
	src := &countingSource{releases: remote}
	c, clk, _ := newTestCatalog(t, src)
	ctx := context.Background()

	first, err := c.Fetch(ctx, false)
	if err != nil {
		t.Fatal(err)
	}

	clk.Advance(30 * time.Minute)
	second, err := c.Fetch(ctx, false)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if src.calls != 1 {
		t.Errorf("source calls = %d, want 1", src.calls)
	}
	if diff := cmp.Diff(first.Releases, second.Releases); diff != "" {
		t.Errorf("cached listing differs (-first +second):\n%s", diff)
	}

	if _, err := c.Fetch(ctx, true); err != nil {
		t.Fatal(err)
	}
	if src.calls != 2 {
		t.Errorf("source calls after force = %d, want 2", src.calls)
	}
}

func TestCatalog_Fetch_ExpiredCacheRefreshes(t *testing.T) {
	src := &countingSource{releases: remote[:1]}
	c, clk, _ := newTestCatalog(t, src)
	ctx := context.Background()

	if _, err := c.Fetch(ctx, false); err != nil {
		t.Fatal(err)
	}

	src.releases = remote
	clk.Advance(2 * time.Hour)
	listing, err := c.Fetch(ctx, false)
	if err != nil {
		t.Fatal(err)
	}
	if src.calls != 2 {
		t.Errorf("source calls = %d, want 2", src.calls)
	}
	if len(listing.Releases) != len(remote) {
		t.Errorf("releases = %d, want %d", len(listing.Releases), len(remote))
	}
	if !listing.FetchedAt.Equal(clk.Now()) {
		t.Errorf("FetchedAt = %v, want %v", listing.FetchedAt, clk.Now())
	}
}

func TestCatalog_Fetch_StaleFallback(t *testing.T) {
	src := &countingSource{releases: remote}
	c, clk, _ := newTestCatalog(t, src)
	ctx := context.Background()

	if _, err := c.Fetch(ctx, false); err != nil {
		t.Fatal(err)
	}
	fetchedAt := clk.Now()

	src.err = errors.New("connection refused")
	clk.Advance(48 * time.Hour)

	listing, err := c.Fetch(ctx, false)
	if err != nil {
		t.Fatalf("Fetch() error = %v, want stale fallback", err)
	}
	if !listing.Stale || listing.Warning == nil {
		t.Errorf("Stale = %v, Warning = %v, want stale with warning", listing.Stale, listing.Warning)
	}
	if !listing.FetchedAt.Equal(fetchedAt) {
		t.Errorf("FetchedAt = %v, want %v", listing.FetchedAt, fetchedAt)
	}
	if len(listing.Releases) != len(remote) {
		t.Errorf("releases = %d, want %d", len(listing.Releases), len(remote))
	}

	// force on a failing source also falls back
	listing, err = c.Fetch(ctx, true)
	if err != nil || !listing.Stale {
		t.Errorf("forced Fetch() = %+v, %v, want stale listing", listing, err)
	}
}

func TestCatalog_Fetch_Unavailable(t *testing.T) {
	src := &countingSource{err: errors.New("dns failure")}
	c, _, path := newTestCatalog(t, src)

	_, err := c.Fetch(context.Background(), false)
	if !errors.Is(err, ErrCatalogUnavailable) {
		t.Fatalf("Fetch() error = %v, want ErrCatalogUnavailable", err)
	}
	if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
		t.Errorf("cache file should not exist after failed fetch")
	}
}

func TestCatalog_Fetch_CorruptCache(t *testing.T) {
	src := &countingSource{err: errors.New("offline")}
	c, _, path := newTestCatalog(t, src)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := c.Fetch(context.Background(), false); !errors.Is(err, ErrCatalogUnavailable) {
		t.Fatalf("Fetch() error = %v, want ErrCatalogUnavailable", err)
	}

	src.err = nil
	src.releases = remote
	if _, err := c.Fetch(context.Background(), false); err != nil {
		t.Fatalf("Fetch() after recovery error = %v", err)
	}
	if _, err := readCache(path); err != nil {
		t.Errorf("cache not rewritten: %v", err)
	}
}

func TestCatalog_Lookup(t *testing.T) {
	c, _, _ := newTestCatalog(t, &countingSource{releases: remote})
	ctx := context.Background()

	got, err := c.Lookup(ctx, "4.2.1", "mono")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if got.URL != "https://example.org/4.2.1_mono.zip" {
		t.Errorf("URL = %q", got.URL)
	}

	if _, err := c.Lookup(ctx, "9.9", "standard"); !errors.Is(err, ErrReleaseNotFound) {
		t.Errorf("Lookup(missing) error = %v, want ErrReleaseNotFound", err)
	}
}

func TestFilter(t *testing.T) {
	releases := []ReleaseDescriptor{
		{ID: "4.10.0", Flavor: "standard", Channel: "stable"},
		{ID: "4.3-beta2", Flavor: "standard", Channel: "beta"},
		{ID: "4.1.3", Flavor: "standard", Channel: "stable"},
		{ID: "4.1", Flavor: "standard", Channel: "stable"},
		{ID: "3.5.3", Flavor: "standard", Channel: "stable"},
	}

	tests := []struct {
		name     string
		prefix   string
		unstable bool
		want     []string
	}{
		{"stable only", "", false, []string{"4.10.0-standard", "4.1.3-standard", "4.1-standard", "3.5.3-standard"}},
		{"with unstable", "4", true, []string{"4.10.0-standard", "4.3-beta2-standard", "4.1.3-standard", "4.1-standard"}},
		{"segment prefix", "4.1", false, []string{"4.1.3-standard", "4.1-standard"}},
		{"no match", "5", true, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ids(Filter(releases, tt.prefix, tt.unstable))
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Filter() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
