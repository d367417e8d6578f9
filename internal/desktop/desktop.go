// Package desktop publishes application-menu entries for installations,
// following the freedesktop.org Desktop Entry specification.
//
// Publishing is best-effort: callers log ErrIntegration failures and carry
// on.
package desktop

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/ZebulonRouseFrantzich/govem/internal/atomicfile"
	"github.com/ZebulonRouseFrantzich/govem/internal/store"
)

// ErrIntegration wraps every publishing failure.
var ErrIntegration = errors.New("desktop integration failed")

// Publisher adds and removes desktop integration for an installation.
type Publisher interface {
	Publish(ctx context.Context, iv store.InstalledVersion) error
	Unpublish(ctx context.Context, k store.Key) error
}

// Nop publishes nothing. It is used when desktop entries are disabled.
type Nop struct{}

func (Nop) Publish(context.Context, store.InstalledVersion) error { return nil }
func (Nop) Unpublish(context.Context, store.Key) error            { return nil }

// databaseTool refreshes the MIME cache of an applications directory.
const databaseTool = "update-desktop-database"

var entryTemplate = template.Must(template.New("entry").Parse(`[Desktop Entry]
Type=Application
Version=1.5
Name={{.Name}}
Comment=Godot game engine {{.Version}}
Exec={{.Exec}} %f
Path={{.Path}}
Terminal=false
Categories=Development;IDE;
StartupWMClass=Godot
X-Govem-Key={{.Key}}
`))

// Config configures a Files publisher.
type Config struct {
	Dir    string
	Logger *slog.Logger

	// LookPath finds the database tool; nil uses exec.LookPath.
	LookPath func(string) (string, error)
}

// Files writes one .desktop file per installation into Dir.
type Files struct {
	dir      string
	logger   *slog.Logger
	lookPath func(string) (string, error)
}

var _ Publisher = (*Files)(nil)

// New creates a Files publisher.
func New(cfg Config) *Files {
	f := &Files{dir: cfg.Dir, logger: cfg.Logger, lookPath: cfg.LookPath}
	if f.logger == nil {
		f.logger = slog.New(slog.DiscardHandler)
	}
	if f.lookPath == nil {
		f.lookPath = exec.LookPath
	}
	return f
}

// EntryPath returns the .desktop file for k.
func (f *Files) EntryPath(k store.Key) string {
	return filepath.Join(f.dir, "govem-godot-"+k.String()+".desktop")
}

// Publish writes the menu entry for iv.
func (f *Files) Publish(ctx context.Context, iv store.InstalledVersion) error {
	var buf bytes.Buffer
	err := entryTemplate.Execute(&buf, map[string]string{
		"Name":    "Godot " + iv.Key.String(),
		"Version": iv.Key.ID,
		"Exec":    execQuote(iv.Executable),
		"Path":    iv.Dir,
		"Key":     iv.Key.String(),
	})
	if err != nil {
		return fmt.Errorf("%w: render entry: %w", ErrIntegration, err)
	}

	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return fmt.Errorf("%w: create %s: %w", ErrIntegration, f.dir, err)
	}
	if err := atomicfile.Write(f.EntryPath(iv.Key), buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("%w: write entry: %w", ErrIntegration, err)
	}

	f.logger.Debug("published desktop entry", "key", iv.Key.String(), "path", f.EntryPath(iv.Key))
	f.refreshDatabase(ctx)
	return nil
}

// Unpublish removes the menu entry for k. A missing entry is not an error.
func (f *Files) Unpublish(ctx context.Context, k store.Key) error {
	err := os.Remove(f.EntryPath(k))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: remove entry: %w", ErrIntegration, err)
	}

	f.logger.Debug("removed desktop entry", "key", k.String())
	f.refreshDatabase(ctx)
	return nil
}

// refreshDatabase runs update-desktop-database when it is installed. Menus
// pick up new entries without it, so failures only get logged.
func (f *Files) refreshDatabase(ctx context.Context) {
	tool, err := f.lookPath(databaseTool)
	if err != nil {
		return
	}
	if out, err := exec.CommandContext(ctx, tool, f.dir).CombinedOutput(); err != nil {
		f.logger.Debug("desktop database refresh failed", "error", err, "output", strings.TrimSpace(string(out)))
	}
}

// execQuote quotes an argument for the Exec key.
func execQuote(arg string) string {
	if !strings.ContainsAny(arg, " \t\n\"'\\><~|&;$*?#()`") {
		return arg
	}
	r := strings.NewReplacer(`\`, `\\\\`, `"`, `\\"`, "`", "\\\\`", `$`, `\\$`)
	return `"` + r.Replace(arg) + `"`
}
