package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ZebulonRouseFrantzich/govem/internal/platform"
)

func baseSettings(t *testing.T) *Settings {
	t.Helper()
	s := Default()
	s.ConfigRoot = t.TempDir()
	return s
}

func TestParser_ParseString(t *testing.T) {
	s := baseSettings(t)
	luaCode := `
		govem = {
			mirror = "https://mirror.example.org/godot/",
			data_dir = "/opt/godot",
			shim_dir = "shims",
			command = "godot4",
			catalog_ttl = 60 * 60,
			stale_after = 90,
			desktop_entries = false,
			version_shims = false,
			user_agent = "govem-test",
		}
	`

	if err := NewParser(nil).ParseString(context.Background(), luaCode, s); err != nil {
		t.Fatalf("ParseString() error = %v", err)
	}

	if s.Mirror != "https://mirror.example.org/godot/" {
		t.Errorf("Mirror = %q", s.Mirror)
	}
	if s.DataRoot != "/opt/godot" {
		t.Errorf("DataRoot = %q, want /opt/godot", s.DataRoot)
	}
	if want := filepath.Join(s.ConfigRoot, "shims"); s.ShimRoot != want {
		t.Errorf("ShimRoot = %q, want %q", s.ShimRoot, want)
	}
	if s.Command != "godot4" {
		t.Errorf("Command = %q, want godot4", s.Command)
	}
	if s.CatalogTTL != time.Hour {
		t.Errorf("CatalogTTL = %v, want 1h", s.CatalogTTL)
	}
	if s.StaleAfter != 90*time.Second {
		t.Errorf("StaleAfter = %v, want 90s", s.StaleAfter)
	}
	if s.DesktopEntries || s.VersionShims {
		t.Errorf("DesktopEntries = %v, VersionShims = %v, want both false", s.DesktopEntries, s.VersionShims)
	}
	if s.UserAgent != "govem-test" {
		t.Errorf("UserAgent = %q", s.UserAgent)
	}
}

func TestParser_ParseString_KeepsUnsetFields(t *testing.T) {
	s := baseSettings(t)
	want := *s

	if err := NewParser(nil).ParseString(context.Background(), `govem = { }`, s); err != nil {
		t.Fatalf("ParseString() error = %v", err)
	}
	if *s != want {
		t.Errorf("settings changed: got %+v, want %+v", *s, want)
	}

	if err := NewParser(nil).ParseString(context.Background(), `local x = 1`, s); err != nil {
		t.Fatalf("ParseString() without govem table error = %v", err)
	}
}

func TestParser_ParseString_Platform(t *testing.T) {
	detector := platform.Static{Info: &platform.Info{OS: "linux", Arch: "arm64", ArchRaw: "arm64"}}
	s := baseSettings(t)

	luaCode := `
		govem = {
			data_dir = platform.is_arm64 and "/srv/godot-arm" or "/srv/godot",
			desktop_entries = platform.when(platform.os == "darwin", true),
		}
	`
	if err := NewParser(detector).ParseString(context.Background(), luaCode, s); err != nil {
		t.Fatalf("ParseString() error = %v", err)
	}
	if s.DataRoot != "/srv/godot-arm" {
		t.Errorf("DataRoot = %q, want /srv/godot-arm", s.DataRoot)
	}
	if !s.DesktopEntries {
		t.Error("DesktopEntries should keep its default when platform.when yields nil")
	}
}

func TestParser_ParseString_Errors(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		message string
	}{
		{"syntax error", `govem = {`, "Lua error"},
		{"runtime error", `error("boom")`, "Lua error"},
		{"sandboxed os", `govem = { data_dir = os.getenv("HOME") }`, "Lua error"},
		{"govem not a table", `govem = "yes"`, "invalid 'govem' table"},
		{"wrong field type", `govem = { catalog_ttl = "1h" }`, "invalid value for 'catalog_ttl'"},
		{"wrong bool type", `govem = { version_shims = 1 }`, "invalid value for 'version_shims'"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewParser(nil).ParseString(context.Background(), tt.code, baseSettings(t))
			var parseErr *ParseError
			if !errors.As(err, &parseErr) {
				t.Fatalf("error = %v, want *ParseError", err)
			}
			if !strings.Contains(parseErr.Message, tt.message) {
				t.Errorf("Message = %q, want substring %q", parseErr.Message, tt.message)
			}
		})
	}
}

func TestParser_ParseString_Timeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := NewParser(nil).ParseString(ctx, `while true do end`, baseSettings(t))
	if err == nil {
		t.Fatal("expected error for runaway settings file")
	}
}

func TestParser_ParseFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, []byte(`govem = { keyring = "keys/godot.asc" }`), 0o644); err != nil {
		t.Fatal(err)
	}

	s := baseSettings(t)
	if err := NewParser(nil).ParseFile(context.Background(), path, s); err != nil {
		t.Fatalf("ParseFile() error = %v", err)
	}
	if want := filepath.Join(dir, "keys", "godot.asc"); s.Keyring != want {
		t.Errorf("Keyring = %q, want %q", s.Keyring, want)
	}
}

func TestFormatError(t *testing.T) {
	err := &ParseError{Message: "Lua error in settings file", Detail: "line 1: boom\nstack traceback:\n\t[G]: in ?"}

	if got := FormatError(err, false); got != "Lua error in settings file: line 1: boom" {
		t.Errorf("FormatError(false) = %q", got)
	}
	if got := FormatError(err, true); !strings.Contains(got, "stack traceback") {
		t.Errorf("FormatError(true) = %q, want full detail", got)
	}
	if got := FormatError(errors.New("plain"), false); got != "plain" {
		t.Errorf("FormatError(plain) = %q", got)
	}
}
