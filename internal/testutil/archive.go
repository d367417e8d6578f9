package testutil

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

// Entry is one member of a fake archive. A non-empty Link makes it a
// symlink; a trailing slash on Name makes it a directory.
type Entry struct {
	Name string
	Body string
	Mode fs.FileMode
	Link string
}

// ExecutableName returns the name Godot 4 uses for a Linux build.
func ExecutableName(id, archTag string) string {
	return "Godot_v" + id + "-stable_linux." + archTag
}

// GodotEntries returns the members of a minimal standard Godot release: a
// single executable.
func GodotEntries(id, archTag string) []Entry {
	return []Entry{{Name: ExecutableName(id, archTag), Body: "#!/bin/sh\necho godot " + id + "\n", Mode: 0o755}}
}

// MonoEntries returns the members of a minimal mono release: a directory
// with the executable next to its GodotSharp assemblies.
func MonoEntries(id, archTag string) []Entry {
	dir := "Godot_v" + id + "-stable_mono_linux_" + archTag + "/"
	return []Entry{
		{Name: dir, Mode: fs.ModeDir | 0o755},
		{Name: dir + "Godot_v" + id + "-stable_mono_linux." + archTag, Body: "#!/bin/sh\n", Mode: 0o755},
		{Name: dir + "GodotSharp/Api/GodotSharp.dll", Body: "MZ", Mode: 0o644},
	}
}

// WriteZip writes entries to a zip archive at path.
func WriteZip(t *testing.T, path string, entries []Entry) string {
	t.Helper()

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create zip: %v", err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	for _, e := range entries {
		mode := e.Mode
		body := e.Body
		if e.Link != "" {
			mode = fs.ModeSymlink | 0o777
			body = e.Link
		}

		header := &zip.FileHeader{Name: e.Name, Method: zip.Deflate}
		header.SetMode(mode)

		w, err := zw.CreateHeader(header)
		if err != nil {
			t.Fatalf("create zip entry %s: %v", e.Name, err)
		}
		if !mode.IsDir() {
			if _, err := w.Write([]byte(body)); err != nil {
				t.Fatalf("write zip entry %s: %v", e.Name, err)
			}
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return path
}

// WriteTarGz writes entries to a gzip-compressed tarball at path.
func WriteTarGz(t *testing.T, path string, entries []Entry) string {
	t.Helper()

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create tarball: %v", err)
	}
	defer f.Close()

	gw := gzip.NewWriter(f)
	tw := tar.NewWriter(gw)
	for _, e := range entries {
		header := &tar.Header{Name: e.Name, Mode: int64(e.Mode.Perm())}
		switch {
		case e.Link != "":
			header.Typeflag = tar.TypeSymlink
			header.Linkname = e.Link
		case e.Mode.IsDir():
			header.Typeflag = tar.TypeDir
		default:
			header.Typeflag = tar.TypeReg
			header.Size = int64(len(e.Body))
		}

		if err := tw.WriteHeader(header); err != nil {
			t.Fatalf("write tar header %s: %v", e.Name, err)
		}
		if header.Typeflag == tar.TypeReg {
			if _, err := tw.Write([]byte(e.Body)); err != nil {
				t.Fatalf("write tar entry %s: %v", e.Name, err)
			}
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("close tar: %v", err)
	}
	if err := gw.Close(); err != nil {
		t.Fatalf("close gzip: %v", err)
	}
	return path
}

// WriteTree materializes entries under dir, as an unpacked local build.
func WriteTree(t *testing.T, dir string, entries []Entry) string {
	t.Helper()

	for _, e := range entries {
		path := filepath.Join(dir, e.Name)
		switch {
		case e.Link != "":
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				t.Fatal(err)
			}
			if err := os.Symlink(e.Link, path); err != nil {
				t.Fatalf("symlink %s: %v", path, err)
			}
		case e.Mode.IsDir():
			if err := os.MkdirAll(path, 0o755); err != nil {
				t.Fatal(err)
			}
		default:
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				t.Fatal(err)
			}
			if err := os.WriteFile(path, []byte(e.Body), e.Mode.Perm()); err != nil {
				t.Fatalf("write %s: %v", path, err)
			}
			if err := os.Chmod(path, e.Mode.Perm()); err != nil {
				t.Fatal(err)
			}
		}
	}
	return dir
}
