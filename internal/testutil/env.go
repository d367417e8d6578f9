// Package testutil provides utilities for testing govem in isolation.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// Env holds the isolated directories created by SetupTestEnv.
type Env struct {
	Root    string
	Config  string
	Data    string
	Shims   string
	Desktop string
}

// SetupTestEnv creates isolated directories and points the GOVEM_*
// variables at them, so tests never touch the user's installations, shims
// or menu entries. Cleanup is handled by t.TempDir.
func SetupTestEnv(t *testing.T) *Env {
	t.Helper()

	tmpDir := t.TempDir()
	env := &Env{
		Root:    tmpDir,
		Config:  filepath.Join(tmpDir, "config"),
		Data:    filepath.Join(tmpDir, "data"),
		Shims:   filepath.Join(tmpDir, "bin"),
		Desktop: filepath.Join(tmpDir, "applications"),
	}

	t.Setenv("GOVEM_CONFIG_DIR", env.Config)
	t.Setenv("GOVEM_DATA_DIR", env.Data)
	t.Setenv("GOVEM_SHIM_DIR", env.Shims)
	t.Setenv("GOVEM_DESKTOP_DIR", env.Desktop)
	t.Setenv("GOVEM_MIRROR", "")
	t.Setenv("GOVEM_DEBUG", "")

	for _, dir := range []string{env.Config, env.Data, env.Shims, env.Desktop} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			t.Fatalf("failed to create test directory %s: %v", dir, err)
		}
	}

	return env
}
