package archive

import (
	"archive/tar"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ExtractTarGz extracts a .tar.gz archive to a destination directory.
func ExtractTarGz(archivePath, destDir string) error {
	archiveFile, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer archiveFile.Close()

	gzipReader, err := gzip.NewReader(archiveFile)
	if err != nil {
		return fmt.Errorf("%w: gzip: %w", ErrInvalid, err)
	}
	defer gzipReader.Close()

	tarReader := tar.NewReader(gzipReader)

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("create dest dir: %w", err)
	}

	for {
		header, err := tarReader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("%w: read tar header: %w", ErrInvalid, err)
		}

		path, err := target(destDir, header.Name)
		if err != nil {
			return err
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(path, 0o755); err != nil {
				return fmt.Errorf("create directory %s: %w", path, err)
			}

		case tar.TypeReg:
			if err := writeFile(path, tarReader, os.FileMode(header.Mode)); err != nil {
				if isCorruptRead(err) {
					return fmt.Errorf("%w: %w", ErrInvalid, err)
				}
				return err
			}

		case tar.TypeSymlink:
			if err := checkLink(destDir, path, header.Linkname); err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return fmt.Errorf("create parent dir for %s: %w", path, err)
			}
			if err := os.Symlink(header.Linkname, path); err != nil {
				return fmt.Errorf("create symlink %s: %w", path, err)
			}

		default:
			// Hard links, devices and FIFOs have no place in a release.
			continue
		}
	}

	return nil
}

// isCorruptRead reports whether a copy failed on the archive side.
func isCorruptRead(err error) bool {
	return errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, gzip.ErrChecksum) ||
		errors.Is(err, gzip.ErrHeader) ||
		errors.Is(err, tar.ErrHeader)
}
