// Package archive unpacks release archives into a staging directory.
//
// Entries that would land outside the destination, through "..", absolute
// names or symlinks, are rejected. File modes are preserved so the Godot
// executable stays executable.
package archive

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrInvalid marks archives that are malformed, unsupported or unsafe.
// Errors without it are I/O failures on the destination.
var ErrInvalid = errors.New("invalid archive")

// Format identifies an archive container.
type Format int

const (
	FormatUnknown Format = iota
	FormatZip
	FormatTarGz
)

func (f Format) String() string {
	switch f {
	case FormatZip:
		return "zip"
	case FormatTarGz:
		return "tar.gz"
	default:
		return "unknown"
	}
}

var (
	zipMagic  = []byte("PK\x03\x04")
	gzipMagic = []byte{0x1f, 0x8b}
)

// Detect sniffs the container format from the first bytes of path.
func Detect(path string) (Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return FormatUnknown, fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()

	head := make([]byte, 4)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return FormatUnknown, fmt.Errorf("read archive header: %w", err)
	}
	head = head[:n]

	switch {
	case bytes.HasPrefix(head, zipMagic):
		return FormatZip, nil
	case bytes.HasPrefix(head, gzipMagic):
		return FormatTarGz, nil
	}
	return FormatUnknown, nil
}

// Extract unpacks the archive at path into destDir, sniffing its format.
func Extract(path, destDir string) error {
	format, err := Detect(path)
	if err != nil {
		return err
	}

	switch format {
	case FormatZip:
		return ExtractZip(path, destDir)
	case FormatTarGz:
		return ExtractTarGz(path, destDir)
	}
	return fmt.Errorf("%w: unrecognized format: %s", ErrInvalid, filepath.Base(path))
}

// target resolves an entry name inside destDir.
func target(destDir, name string) (string, error) {
	if filepath.IsAbs(name) || strings.HasPrefix(name, "/") {
		return "", fmt.Errorf("%w: absolute path: %s", ErrInvalid, name)
	}
	t := filepath.Join(destDir, name)
	if !within(destDir, t) {
		return "", fmt.Errorf("%w: illegal file path: %s", ErrInvalid, name)
	}
	return t, nil
}

// checkLink rejects symlinks whose target escapes destDir.
func checkLink(destDir, linkPath, linkTarget string) error {
	if filepath.IsAbs(linkTarget) {
		return fmt.Errorf("%w: absolute symlink: %s -> %s", ErrInvalid, linkPath, linkTarget)
	}
	if !within(destDir, filepath.Join(filepath.Dir(linkPath), linkTarget)) {
		return fmt.Errorf("%w: symlink escapes destination: %s -> %s", ErrInvalid, linkPath, linkTarget)
	}
	return nil
}

func within(root, path string) bool {
	root = filepath.Clean(root)
	path = filepath.Clean(path)
	return path == root || strings.HasPrefix(path, root+string(os.PathSeparator))
}

// writeFile copies r into path with mode, creating parents.
func writeFile(path string, r io.Reader, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create parent dir for %s: %w", path, err)
	}

	out, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode.Perm())
	if err != nil {
		return fmt.Errorf("create file %s: %w", path, err)
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return fmt.Errorf("write file %s: %w", path, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close file %s: %w", path, err)
	}
	// OpenFile applies the umask; archives carry the intended bits.
	return os.Chmod(path, mode.Perm())
}
