// Package mirror scrapes Godot release listings from a directory-index
// mirror such as downloads.tuxfamily.org/godotengine.
//
// The root page lists one directory per version ("4.2.1/"). A version
// directory holds the stable archives, a "mono/" directory with the mono
// archives, and one directory per pre-release ("rc1/", "beta2/") laid out
// the same way.
package mirror

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/ZebulonRouseFrantzich/govem/internal/catalog"
	"github.com/ZebulonRouseFrantzich/govem/internal/platform"
	"github.com/ZebulonRouseFrantzich/govem/internal/version"
	"golang.org/x/net/html"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultConcurrency bounds parallel page fetches.
	DefaultConcurrency = 4

	// DefaultTimeout bounds each page request when no client is given.
	DefaultTimeout = 30 * time.Second

	// SumsFile is the checksum file published next to release archives.
	SumsFile = "SHA512-SUMS.txt"

	maxPageSize = 4 << 20
)

var (
	versionDirRegex = regexp.MustCompile(`^\d+(\.\d+)+$`)
	preDirRegex     = regexp.MustCompile(`^(alpha|beta|rc|dev)\d+$`)
)

// Config configures a Scraper.
type Config struct {
	BaseURL     string
	Client      *http.Client
	Timeout     time.Duration // for the default client; ignored with Client
	Platform    *platform.Info
	UserAgent   string
	Concurrency int
	Logger      *slog.Logger
}

// Scraper implements catalog.Source over a directory-index mirror.
type Scraper struct {
	base        *url.URL
	client      *http.Client
	platform    *platform.Info
	userAgent   string
	concurrency int
	logger      *slog.Logger
}

var _ catalog.Source = (*Scraper)(nil)

// New creates a Scraper.
func New(cfg Config) (*Scraper, error) {
	raw := cfg.BaseURL
	if !strings.HasSuffix(raw, "/") {
		raw += "/"
	}
	base, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse mirror URL: %w", err)
	}
	if cfg.Platform == nil {
		return nil, fmt.Errorf("platform info is required")
	}

	s := &Scraper{
		base:        base,
		client:      cfg.Client,
		platform:    cfg.Platform,
		userAgent:   cfg.UserAgent,
		concurrency: cfg.Concurrency,
		logger:      cfg.Logger,
	}
	if s.client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		s.client = &http.Client{Timeout: timeout}
	}
	if s.concurrency <= 0 {
		s.concurrency = DefaultConcurrency
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	return s, nil
}

// Releases walks the mirror and returns every release with a build for
// the platform. Any page failure fails the whole walk so a partial listing
// is never cached.
func (s *Scraper) Releases(ctx context.Context) ([]catalog.ReleaseDescriptor, error) {
	root, err := s.index(ctx, s.base)
	if err != nil {
		return nil, err
	}

	var dirs []entry
	for _, e := range root {
		if e.dir && versionDirRegex.MatchString(e.name) {
			dirs = append(dirs, e)
		}
	}
	slices.SortFunc(dirs, func(a, b entry) int { return version.Compare(b.name, a.name) })
	s.logger.Debug("scraping release directories", "count", len(dirs), "mirror", s.base.String())

	results := make([][]catalog.ReleaseDescriptor, len(dirs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, dir := range dirs {
		g.Go(func() error {
			releases, err := s.versionReleases(ctx, dir)
			if err != nil {
				return fmt.Errorf("scrape %s: %w", dir.name, err)
			}
			results[i] = releases
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []catalog.ReleaseDescriptor
	for _, r := range results {
		all = append(all, r...)
	}
	return all, nil
}

// versionReleases collects the stable and pre-release builds of one version.
func (s *Scraper) versionReleases(ctx context.Context, dir entry) ([]catalog.ReleaseDescriptor, error) {
	u, err := url.Parse(dir.url)
	if err != nil {
		return nil, err
	}
	entries, err := s.index(ctx, u)
	if err != nil {
		return nil, err
	}

	releases, err := s.buildReleases(ctx, dir.name, version.ChannelStable, entries)
	if err != nil {
		return nil, err
	}

	for _, e := range entries {
		if !e.dir || !preDirRegex.MatchString(e.name) {
			continue
		}
		pu, err := url.Parse(e.url)
		if err != nil {
			return nil, err
		}
		preEntries, err := s.index(ctx, pu)
		if err != nil {
			return nil, err
		}
		pre, err := s.buildReleases(ctx, dir.name, e.name, preEntries)
		if err != nil {
			return nil, err
		}
		releases = append(releases, pre...)
	}

	return releases, nil
}

// buildReleases returns the standard and mono descriptors for one
// (version, pre-release) directory.
func (s *Scraper) buildReleases(ctx context.Context, ver, pre string, entries map[string]entry) ([]catalog.ReleaseDescriptor, error) {
	id := ver
	if pre != version.ChannelStable {
		id = ver + "-" + pre
	}

	var releases []catalog.ReleaseDescriptor

	if d, ok := s.descriptor(id, ver, pre, false, entries); ok {
		releases = append(releases, d)
	}

	if mono, ok := entries["mono"]; ok && mono.dir {
		mu, err := url.Parse(mono.url)
		if err != nil {
			return nil, err
		}
		monoEntries, err := s.index(ctx, mu)
		if err != nil {
			return nil, err
		}
		if d, ok := s.descriptor(id, ver, pre, true, monoEntries); ok {
			releases = append(releases, d)
		}
	}

	return releases, nil
}

func (s *Scraper) descriptor(id, ver, pre string, mono bool, entries map[string]entry) (catalog.ReleaseDescriptor, bool) {
	name, ok := Filename(ver, pre, mono, s.platform)
	if !ok {
		return catalog.ReleaseDescriptor{}, false
	}
	archive, ok := entries[name]
	if !ok || archive.dir {
		return catalog.ReleaseDescriptor{}, false
	}

	flavor := version.FlavorStandard
	if mono {
		flavor = version.FlavorMono
	}

	d := catalog.ReleaseDescriptor{
		ID:      id,
		Flavor:  flavor,
		URL:     archive.url,
		Channel: version.Channel(id),
	}
	if sums, ok := entries[SumsFile]; ok && !sums.dir {
		d.SumsURL = sums.url
	}
	return d, true
}

// index fetches and parses one directory page.
func (s *Scraper) index(ctx context.Context, u *url.URL) (map[string]entry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", u, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: unexpected status: %s", u, resp.Status)
	}

	doc, err := html.Parse(io.LimitReader(resp.Body, maxPageSize))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", u, err)
	}

	return parseIndex(doc, u), nil
}
