package archive

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// maxLinkTarget bounds symlink entries, whose content is the link target.
const maxLinkTarget = 4096

// ExtractZip extracts a .zip archive to a destination directory.
func ExtractZip(archivePath, destDir string) error {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("%w: zip: %w", ErrInvalid, err)
	}
	defer r.Close()

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("create dest dir: %w", err)
	}

	for _, f := range r.File {
		if err := extractZipEntry(f, destDir); err != nil {
			return err
		}
	}
	return nil
}

func extractZipEntry(f *zip.File, destDir string) error {
	path, err := target(destDir, f.Name)
	if err != nil {
		return err
	}

	mode := f.Mode()
	switch {
	case mode.IsDir():
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", path, err)
		}
		return nil

	case mode&os.ModeSymlink != 0:
		rc, err := f.Open()
		if err != nil {
			return fmt.Errorf("%w: open %s: %w", ErrInvalid, f.Name, err)
		}
		linkTarget, err := io.ReadAll(io.LimitReader(rc, maxLinkTarget))
		rc.Close()
		if err != nil {
			return fmt.Errorf("%w: read %s: %w", ErrInvalid, f.Name, err)
		}
		if err := checkLink(destDir, path, string(linkTarget)); err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("create parent dir for %s: %w", path, err)
		}
		if err := os.Symlink(string(linkTarget), path); err != nil {
			return fmt.Errorf("create symlink %s: %w", path, err)
		}
		return nil

	case mode.IsRegular():
		rc, err := f.Open()
		if err != nil {
			return fmt.Errorf("%w: open %s: %w", ErrInvalid, f.Name, err)
		}
		defer rc.Close()

		// Archives made on Windows carry no permission bits.
		perm := mode.Perm()
		if perm == 0 {
			perm = 0o644
		}
		if err := writeFile(path, rc, perm); err != nil {
			if isZipCorrupt(err) {
				return fmt.Errorf("%w: %w", ErrInvalid, err)
			}
			return err
		}
		return nil
	}

	return nil
}

func isZipCorrupt(err error) bool {
	return isCorruptRead(err) ||
		errors.Is(err, zip.ErrChecksum) ||
		errors.Is(err, zip.ErrFormat) ||
		errors.Is(err, zip.ErrAlgorithm)
}
