package install

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/ZebulonRouseFrantzich/govem/internal/archive"
	"github.com/ZebulonRouseFrantzich/govem/internal/download"
	"github.com/ZebulonRouseFrantzich/govem/internal/store"
	"github.com/ZebulonRouseFrantzich/govem/internal/verify"
)

// fetch downloads the archive for req into a transient path under the data
// root, verifies it, and unpacks it into staging. It returns the name of
// the executable when the download was a bare binary.
func (i *Installer) fetch(ctx context.Context, req *Request, k store.Key, staging string) (string, error) {
	src := req.URL
	if req.Release != nil {
		src = req.Release.URL
	}

	dl, err := i.store.NewDownloadPath(k)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrPartialWrite, err)
	}
	defer func() {
		i.discard(dl)
		i.discard(dl + ".tmp")
	}()

	i.logger.Debug("downloading", "url", src, "dest", dl)
	if err := i.downloader.ToFile(ctx, src, dl, req.Progress); err != nil {
		return "", fmt.Errorf("download %s: %w", src, err)
	}

	name := remoteName(src)
	if req.Release != nil && req.Release.SumsURL != "" {
		if err := i.checkSums(ctx, dl, name, req.Release.SumsURL); err != nil {
			return "", err
		}
	}
	if i.verifier.RequiresSignature() {
		if err := i.checkSignature(ctx, dl, src); err != nil {
			return "", err
		}
	}

	return unpack(dl, name, staging, req.Release != nil || archiveName(name), i.platform.ExecutableSuffixes())
}

func (i *Installer) checkSums(ctx context.Context, archivePath, name, sumsURL string) error {
	sums, err := i.downloader.Bytes(ctx, sumsURL)
	if errors.Is(err, download.ErrNotFound) {
		i.logger.Warn("release has no checksum file, skipping verification", "url", sumsURL)
		return nil
	}
	if err != nil {
		return fmt.Errorf("fetch checksums: %w", err)
	}
	if err := i.verifier.Checksum(archivePath, name, sums); err != nil {
		if errors.Is(err, verify.ErrMismatch) || errors.Is(err, verify.ErrNoChecksum) {
			return fmt.Errorf("%w: %w", ErrCorruptArchive, err)
		}
		return fmt.Errorf("%w: %w", ErrPartialWrite, err)
	}
	i.logger.Debug("checksum verified", "archive", name)
	return nil
}

func (i *Installer) checkSignature(ctx context.Context, archivePath, src string) error {
	sig, err := i.downloader.Bytes(ctx, src+".sig")
	if errors.Is(err, download.ErrNotFound) {
		return fmt.Errorf("%w: %w: no signature published at %s.sig", ErrCorruptArchive, verify.ErrMismatch, src)
	}
	if err != nil {
		return fmt.Errorf("fetch signature: %w", err)
	}
	if err := i.verifier.Signature(archivePath, sig); err != nil {
		if errors.Is(err, verify.ErrMismatch) {
			return fmt.Errorf("%w: %w", ErrCorruptArchive, err)
		}
		return fmt.Errorf("%w: %w", ErrPartialWrite, err)
	}
	i.logger.Debug("signature verified", "url", src)
	return nil
}

// copyLocal stages a local directory, archive or bare executable.
func copyLocal(src, staging string, suffixes []string) (string, error) {
	fi, err := os.Stat(src)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", src, err)
	}
	if fi.IsDir() {
		if err := copyTree(src, staging); err != nil {
			return "", fmt.Errorf("%w: copy %s: %w", ErrPartialWrite, src, err)
		}
		return "", nil
	}
	name := filepath.Base(src)
	return unpack(src, name, staging, archiveName(name), suffixes)
}

// archiveName reports whether name carries an archive extension.
func archiveName(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasSuffix(lower, ".zip") || strings.HasSuffix(lower, ".tar.gz") || strings.HasSuffix(lower, ".tgz")
}

// unpack extracts an archive into staging. Unless requireArchive is set, a
// file that is not an archive but is named like a Godot executable for
// suffixes is copied in as the executable and its name returned.
func unpack(src, name, staging string, requireArchive bool, suffixes []string) (string, error) {
	format, err := archive.Detect(src)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrPartialWrite, err)
	}

	if format == archive.FormatUnknown {
		if requireArchive {
			return "", fmt.Errorf("%w: %s is not a zip or tar.gz archive", ErrCorruptArchive, name)
		}
		if !isExecutableName(name, suffixes) {
			return "", fmt.Errorf("%w: %s is neither an archive nor a Godot executable for %s",
				ErrCorruptArchive, name, strings.Join(suffixes, "/"))
		}
		if err := copyFile(src, filepath.Join(staging, name), 0o755); err != nil {
			return "", fmt.Errorf("%w: %w", ErrPartialWrite, err)
		}
		return name, nil
	}

	if err := archive.Extract(src, staging); err != nil {
		if errors.Is(err, archive.ErrInvalid) {
			return "", fmt.Errorf("%w: %w", ErrCorruptArchive, err)
		}
		return "", fmt.Errorf("%w: %w", ErrPartialWrite, err)
	}
	return "", nil
}

// remoteName is the file name a URL points at, used to find the archive's
// line in a sums file.
func remoteName(raw string) string {
	if u, err := url.Parse(raw); err == nil && u.Path != "" {
		return path.Base(u.Path)
	}
	return path.Base(raw)
}

// copyTree copies src into dst, which must exist. Symlinks are copied as
// links; other special files are skipped.
func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		target := filepath.Join(dst, rel)

		switch {
		case d.IsDir():
			return os.MkdirAll(target, 0o755)
		case d.Type()&fs.ModeSymlink != 0:
			link, err := os.Readlink(p)
			if err != nil {
				return err
			}
			return os.Symlink(link, target)
		case d.Type().IsRegular():
			fi, err := d.Info()
			if err != nil {
				return err
			}
			return copyFile(p, target, fi.Mode().Perm())
		}
		return nil
	})
}

func copyFile(src, dst string, mode fs.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_EXCL, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	// OpenFile's mode is filtered by the umask.
	return os.Chmod(dst, mode)
}
