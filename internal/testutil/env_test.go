package testutil_test

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/ZebulonRouseFrantzich/govem/internal/testutil"
)

func TestSetupTestEnv(t *testing.T) {
	env := testutil.SetupTestEnv(t)

	vars := map[string]string{
		"GOVEM_CONFIG_DIR":  env.Config,
		"GOVEM_DATA_DIR":    env.Data,
		"GOVEM_SHIM_DIR":    env.Shims,
		"GOVEM_DESKTOP_DIR": env.Desktop,
	}
	for name, want := range vars {
		if got := os.Getenv(name); got != want {
			t.Errorf("%s = %q, want %q", name, got, want)
		}
		if info, err := os.Stat(want); err != nil || !info.IsDir() {
			t.Errorf("directory %s not created: %v", want, err)
		}
	}
}

func TestWriteZip_GodotEntries(t *testing.T) {
	path := testutil.WriteZip(t, filepath.Join(t.TempDir(), "godot.zip"), testutil.GodotEntries("4.2.1", "x86_64"))

	r, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("open zip: %v", err)
	}
	defer r.Close()

	if len(r.File) != 1 {
		t.Fatalf("entries = %d, want 1", len(r.File))
	}
	f := r.File[0]
	if f.Name != "Godot_v4.2.1-stable_linux.x86_64" {
		t.Errorf("name = %q", f.Name)
	}
	if f.Mode().Perm()&0o111 == 0 {
		t.Errorf("mode = %v, want executable", f.Mode())
	}
}
