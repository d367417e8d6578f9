// Package install turns a release, an archive URL or a local file into a
// registered installation, and removes installations again.
//
// Every install stages content in a sibling of the final directory,
// verifies it, and promotes it with a single rename. Anything that fails
// before the rename leaves only a discardable staging directory; once the
// installation is registered, failures in menu entries or version shims
// are logged and ignored.
package install

import (
	"context"
	"errors"
	"path/filepath"

	"github.com/ZebulonRouseFrantzich/govem/internal/catalog"
	"github.com/ZebulonRouseFrantzich/govem/internal/download"
	"github.com/ZebulonRouseFrantzich/govem/internal/store"
)

var (
	// ErrCorruptArchive means the source did not contain exactly one
	// Godot executable for this platform, or failed verification.
	ErrCorruptArchive = errors.New("corrupt or incomplete archive")

	// ErrPartialWrite means staging or promotion failed on the local
	// filesystem (disk full, permission denied).
	ErrPartialWrite = errors.New("failed writing installation")
)

// SelfContainedMarker makes Godot keep its editor data beside the
// executable instead of in the user's config directory.
const SelfContainedMarker = "._sc_"

// Request describes one install. Exactly one of Release, URL and Path is
// set.
type Request struct {
	Release *catalog.ReleaseDescriptor
	URL     string
	Path    string

	// ID and Flavor name the installation for URL and Path sources. A
	// Release supplies its own flavor, and its identifier unless ID is set.
	ID     string
	Flavor string

	SelfContained bool
	Progress      download.ProgressFunc
}

func (r *Request) key() store.Key {
	k := store.Key{ID: r.ID, Flavor: r.Flavor}
	if r.Release != nil {
		if k.ID == "" {
			k.ID = r.Release.ID
		}
		k.Flavor = r.Release.Flavor
	}
	return k
}

func (r *Request) sourceKind() string {
	switch {
	case r.Release != nil:
		return store.SourceRelease
	case r.URL != "":
		return store.SourceURL
	}
	return store.SourceLocal
}

// Downloader fetches archives and their side files.
type Downloader interface {
	ToFile(ctx context.Context, url, destPath string, progress download.ProgressFunc) error
	Bytes(ctx context.Context, url string) ([]byte, error)
}

// Activation is the part of the activation manager the installer drives.
type Activation interface {
	DeactivateIf(ctx context.Context, k store.Key) (bool, error)
	LinkVersion(iv store.InstalledVersion) error
	UnlinkVersion(k store.Key) error
}

func (r *Request) source() string {
	switch {
	case r.Release != nil:
		return r.Release.URL
	case r.URL != "":
		return r.URL
	}
	if abs, err := filepath.Abs(r.Path); err == nil {
		return abs
	}
	return r.Path
}

func (r *Request) validate() error {
	n := 0
	for _, set := range []bool{r.Release != nil, r.URL != "", r.Path != ""} {
		if set {
			n++
		}
	}
	if n != 1 {
		return errors.New("install: exactly one of release, URL and path must be given")
	}
	return r.key().Validate()
}
