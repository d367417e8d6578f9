package archive

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/ZebulonRouseFrantzich/govem/internal/testutil"
)

var sampleEntries = []testutil.Entry{
	{Name: "Godot_v4.2.1-stable_mono_linux_x86_64/", Mode: fs.ModeDir | 0o755},
	{Name: "Godot_v4.2.1-stable_mono_linux_x86_64/Godot_v4.2.1-stable_mono_linux.x86_64", Body: "#!/bin/sh\n", Mode: 0o755},
	{Name: "Godot_v4.2.1-stable_mono_linux_x86_64/GodotSharp/Api/GodotSharp.dll", Body: "MZ", Mode: 0o644},
	{Name: "Godot_v4.2.1-stable_mono_linux_x86_64/godot", Link: "Godot_v4.2.1-stable_mono_linux.x86_64"},
}

type writer func(t *testing.T, path string, entries []testutil.Entry) string

var formats = []struct {
	name   string
	ext    string
	write  writer
	format Format
}{
	{"zip", ".zip", testutil.WriteZip, FormatZip},
	{"tar.gz", ".tar.gz", testutil.WriteTarGz, FormatTarGz},
}

func TestExtract(t *testing.T) {
	for _, f := range formats {
		t.Run(f.name, func(t *testing.T) {
			path := f.write(t, filepath.Join(t.TempDir(), "godot"+f.ext), sampleEntries)
			dest := filepath.Join(t.TempDir(), "staging")

			if got, err := Detect(path); err != nil || got != f.format {
				t.Fatalf("Detect() = %v, %v, want %v", got, err, f.format)
			}
			if err := Extract(path, dest); err != nil {
				t.Fatalf("Extract() error = %v", err)
			}

			exe := filepath.Join(dest, "Godot_v4.2.1-stable_mono_linux_x86_64", "Godot_v4.2.1-stable_mono_linux.x86_64")
			info, err := os.Stat(exe)
			if err != nil {
				t.Fatalf("executable missing: %v", err)
			}
			if info.Mode().Perm() != 0o755 {
				t.Errorf("executable mode = %v, want 0755", info.Mode().Perm())
			}

			dll := filepath.Join(dest, "Godot_v4.2.1-stable_mono_linux_x86_64", "GodotSharp", "Api", "GodotSharp.dll")
			if data, err := os.ReadFile(dll); err != nil || string(data) != "MZ" {
				t.Errorf("nested file = %q, %v", data, err)
			}

			link := filepath.Join(dest, "Godot_v4.2.1-stable_mono_linux_x86_64", "godot")
			if target, err := os.Readlink(link); err != nil || target != "Godot_v4.2.1-stable_mono_linux.x86_64" {
				t.Errorf("symlink = %q, %v", target, err)
			}
		})
	}
}

func TestExtract_RejectsUnsafeEntries(t *testing.T) {
	tests := []struct {
		name    string
		entries []testutil.Entry
	}{
		{"path traversal", []testutil.Entry{{Name: "../../evil", Body: "x", Mode: 0o644}}},
		{"nested traversal", []testutil.Entry{{Name: "a/../../evil", Body: "x", Mode: 0o644}}},
		{"absolute symlink", []testutil.Entry{{Name: "link", Link: "/etc/passwd"}}},
		{"escaping symlink", []testutil.Entry{{Name: "dir/link", Link: "../../outside"}}},
	}

	for _, f := range formats {
		for _, tt := range tests {
			t.Run(f.name+"/"+tt.name, func(t *testing.T) {
				path := f.write(t, filepath.Join(t.TempDir(), "bad"+f.ext), tt.entries)
				parent := t.TempDir()
				dest := filepath.Join(parent, "staging")

				err := Extract(path, dest)
				if !errors.Is(err, ErrInvalid) {
					t.Fatalf("Extract() error = %v, want ErrInvalid", err)
				}
				if _, err := os.Lstat(filepath.Join(parent, "evil")); !os.IsNotExist(err) {
					t.Error("file written outside destination")
				}
			})
		}
	}
}

func TestExtract_Invalid(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name string
		data []byte
	}{
		{"not an archive", []byte("hello world")},
		{"empty file", nil},
		{"truncated zip", []byte("PK\x03\x04\x14\x00\x00\x00")},
		{"truncated gzip", []byte{0x1f, 0x8b, 0x08}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name)
			if err := os.WriteFile(path, tt.data, 0o644); err != nil {
				t.Fatal(err)
			}
			if err := Extract(path, filepath.Join(t.TempDir(), "staging")); !errors.Is(err, ErrInvalid) {
				t.Errorf("Extract() error = %v, want ErrInvalid", err)
			}
		})
	}
}

func TestExtract_MissingFile(t *testing.T) {
	err := Extract(filepath.Join(t.TempDir(), "missing.zip"), t.TempDir())
	if err == nil || errors.Is(err, ErrInvalid) {
		t.Errorf("Extract() error = %v, want plain I/O error", err)
	}
}
