package install

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/ZebulonRouseFrantzich/govem/internal/platform"
)

// findExecutable returns the path, relative to root, of the one Godot
// executable for info's architecture. A candidate is a regular file with an
// execute bit whose name starts with "godot" and whose extension is one of
// the platform's executable suffixes ("x86_64", "64", ...).
func findExecutable(root string, info *platform.Info) (string, error) {
	suffixes := info.ExecutableSuffixes()
	if len(suffixes) == 0 {
		return "", fmt.Errorf("%w: no Godot builds exist for %s", ErrCorruptArchive, info.ArchRaw)
	}

	var candidates []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() || !isExecutableName(d.Name(), suffixes) {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return err
		}
		if fi.Mode().Perm()&0o111 == 0 {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		candidates = append(candidates, rel)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: scan staging: %w", ErrPartialWrite, err)
	}

	switch len(candidates) {
	case 1:
		return candidates[0], nil
	case 0:
		return "", fmt.Errorf("%w: no Godot executable for %s found", ErrCorruptArchive, strings.Join(suffixes, "/"))
	default:
		slices.Sort(candidates)
		return "", fmt.Errorf("%w: several Godot executables found: %s", ErrCorruptArchive, strings.Join(candidates, ", "))
	}
}

func isExecutableName(name string, suffixes []string) bool {
	lower := strings.ToLower(name)
	if !strings.HasPrefix(lower, "godot") {
		return false
	}
	i := strings.LastIndex(lower, ".")
	if i < 0 {
		return false
	}
	return slices.Contains(suffixes, lower[i+1:])
}

// writeMarker creates the zero-byte self-contained marker beside exe.
func writeMarker(root, exe string) error {
	path := filepath.Join(root, filepath.Dir(exe), SelfContainedMarker)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	return f.Close()
}
