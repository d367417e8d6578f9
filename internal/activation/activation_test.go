package activation

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ZebulonRouseFrantzich/govem/internal/store"
	"github.com/google/uuid"
)

type fixture struct {
	store   *store.Store
	manager *Manager
	shims   string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()
	s := store.New(store.Config{DataRoot: filepath.Join(root, "data"), LockTimeout: 200 * time.Millisecond})
	shims := filepath.Join(root, "bin")
	return &fixture{
		store:   s,
		manager: New(Config{Installations: s, ShimRoot: shims, Command: "godot"}),
		shims:   shims,
	}
}

// install registers a fake installation of id.
func (f *fixture) install(t *testing.T, id string) store.InstalledVersion {
	t.Helper()
	m := store.Metadata{
		ID:          id,
		Flavor:      "standard",
		Executable:  "Godot_v" + id + "-stable_linux.x86_64",
		SourceKind:  store.SourceLocal,
		Source:      "test",
		InstallID:   uuid.NewString(),
		InstalledAt: time.Now(),
	}
	staging, err := f.store.NewStaging(m.Key())
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(staging, m.Executable), []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := store.WriteMetadata(staging, &m); err != nil {
		t.Fatal(err)
	}
	if _, err := f.store.Promote(staging, m.Key()); err != nil {
		t.Fatal(err)
	}
	iv, err := f.store.Register(context.Background(), m)
	if err != nil {
		t.Fatal(err)
	}
	return iv
}

func TestManager_ActivateAndCurrent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, ok := f.manager.Current(ctx); ok {
		t.Fatal("Current() before any activation should be empty")
	}

	first := f.install(t, "4.2.1")
	second := f.install(t, "4.1.0")

	if _, err := f.manager.Activate(ctx, first.Key); err != nil {
		t.Fatalf("Activate() error = %v", err)
	}
	current, ok := f.manager.Current(ctx)
	if !ok || current.Key != first.Key {
		t.Fatalf("Current() = %v, %v, want %v", current.Key, ok, first.Key)
	}

	target, err := os.Readlink(f.manager.ShimPath())
	if err != nil {
		t.Fatal(err)
	}
	if target != first.Executable {
		t.Errorf("shim target = %q, want %q", target, first.Executable)
	}

	// Repointing replaces the link in place.
	if _, err := f.manager.Activate(ctx, second.Key); err != nil {
		t.Fatalf("Activate(second) error = %v", err)
	}
	if current, ok := f.manager.Current(ctx); !ok || current.Key != second.Key {
		t.Errorf("Current() = %v, %v, want %v", current.Key, ok, second.Key)
	}

	entries, err := os.ReadDir(f.shims)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("shim dir has %d entries, want only the shim (no temp links)", len(entries))
	}
}

func TestManager_Activate_NotInstalled(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.manager.Activate(ctx, store.Key{ID: "4.2.1", Flavor: "standard"})
	if !errors.Is(err, store.ErrNotInstalled) {
		t.Fatalf("Activate() error = %v, want ErrNotInstalled", err)
	}
	if _, err := os.Lstat(f.manager.ShimPath()); !os.IsNotExist(err) {
		t.Error("shim should not be created for a missing version")
	}
}

func TestManager_Current_SelfHealing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	iv := f.install(t, "4.2.1")

	if _, err := f.manager.Activate(ctx, iv.Key); err != nil {
		t.Fatal(err)
	}

	// Tampered shim pointing outside the store.
	if err := os.Remove(f.manager.ShimPath()); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink("/usr/bin/true", f.manager.ShimPath()); err != nil {
		t.Fatal(err)
	}
	if _, ok := f.manager.Current(ctx); ok {
		t.Error("Current() should ignore a shim pointing at an unregistered binary")
	}

	// Installation deleted behind our back.
	if _, err := f.manager.Activate(ctx, iv.Key); err != nil {
		t.Fatal(err)
	}
	if err := os.RemoveAll(iv.Dir); err != nil {
		t.Fatal(err)
	}
	if _, ok := f.manager.Current(ctx); ok {
		t.Error("Current() should ignore a dangling shim")
	}
}

func TestManager_Deactivate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	iv := f.install(t, "4.2.1")

	if _, err := f.manager.Activate(ctx, iv.Key); err != nil {
		t.Fatal(err)
	}
	if err := f.manager.Deactivate(ctx); err != nil {
		t.Fatalf("Deactivate() error = %v", err)
	}
	if _, ok := f.manager.Current(ctx); ok {
		t.Error("Current() after Deactivate should be empty")
	}
	if err := f.manager.Deactivate(ctx); err != nil {
		t.Errorf("second Deactivate() error = %v, want no-op", err)
	}
}

func TestManager_DeactivateIf(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	active := f.install(t, "4.2.1")
	other := f.install(t, "4.1.0")

	if _, err := f.manager.Activate(ctx, active.Key); err != nil {
		t.Fatal(err)
	}

	if done, err := f.manager.DeactivateIf(ctx, other.Key); err != nil || done {
		t.Errorf("DeactivateIf(other) = %v, %v, want false, nil", done, err)
	}
	if _, ok := f.manager.Current(ctx); !ok {
		t.Error("shim removed for a non-active key")
	}

	if done, err := f.manager.DeactivateIf(ctx, active.Key); err != nil || !done {
		t.Errorf("DeactivateIf(active) = %v, %v, want true, nil", done, err)
	}
	if _, ok := f.manager.Current(ctx); ok {
		t.Error("Current() after DeactivateIf should be empty")
	}
}

func TestManager_ShimConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	iv := f.install(t, "4.2.1")

	if err := os.MkdirAll(f.shims, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(f.manager.ShimPath(), []byte("user's own godot"), 0o755); err != nil {
		t.Fatal(err)
	}

	if _, err := f.manager.Activate(ctx, iv.Key); !errors.Is(err, ErrShimConflict) {
		t.Errorf("Activate() error = %v, want ErrShimConflict", err)
	}
	if err := f.manager.Deactivate(ctx); !errors.Is(err, ErrShimConflict) {
		t.Errorf("Deactivate() error = %v, want ErrShimConflict", err)
	}
	if data, _ := os.ReadFile(f.manager.ShimPath()); string(data) != "user's own godot" {
		t.Error("foreign file at shim path was modified")
	}
}

func TestManager_VersionShims(t *testing.T) {
	f := newFixture(t)
	iv := f.install(t, "4.2.1")

	if err := f.manager.LinkVersion(iv); err != nil {
		t.Fatalf("LinkVersion() error = %v", err)
	}
	path := filepath.Join(f.shims, "godot-4.2.1-standard")
	if target, err := os.Readlink(path); err != nil || target != iv.Executable {
		t.Errorf("version shim = %q, %v, want %q", target, err, iv.Executable)
	}

	if err := f.manager.UnlinkVersion(iv.Key); err != nil {
		t.Fatalf("UnlinkVersion() error = %v", err)
	}
	if _, err := os.Lstat(path); !os.IsNotExist(err) {
		t.Error("version shim still present")
	}
	if err := f.manager.UnlinkVersion(iv.Key); err != nil {
		t.Errorf("second UnlinkVersion() error = %v", err)
	}
}

func TestManager_Activate_WaitsForKeyLock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	iv := f.install(t, "4.2.1")

	held, err := f.store.Lock(ctx, iv.Key.String())
	if err != nil {
		t.Fatal(err)
	}
	defer held.Release()

	if _, err := f.manager.Activate(ctx, iv.Key); err == nil {
		t.Error("Activate() should fail while another invocation holds the key")
	}
}
