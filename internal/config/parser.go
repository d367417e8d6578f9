package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ZebulonRouseFrantzich/govem/internal/platform"
	lua "github.com/yuin/gopher-lua"
)

// Parser evaluates settings files with platform detection.
type Parser struct {
	detector platform.Detector
}

// NewParser creates a parser. A nil detector skips the platform table.
func NewParser(detector platform.Detector) *Parser {
	return &Parser{detector: detector}
}

// ParseError represents a settings file error with a friendly message.
type ParseError struct {
	Message string // User-friendly message
	Detail  string // Technical details (raw Lua error)
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s", e.Message, e.Detail)
}

// ParseFile reads path and applies it to s. Relative paths inside the file
// resolve against the directory containing it.
func (p *Parser) ParseFile(ctx context.Context, path string, s *Settings) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.Size() > MaxFileSize {
		return &ParseError{
			Message: "settings file too large",
			Detail:  fmt.Sprintf("%s is %d bytes, limit is %d", path, info.Size(), MaxFileSize),
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read settings file: %w", err)
	}

	return p.parse(ctx, string(data), filepath.Dir(path), s)
}

// ParseString applies luaCode to s. Fields the code leaves unset keep their
// current values.
func (p *Parser) ParseString(ctx context.Context, luaCode string, s *Settings) error {
	return p.parse(ctx, luaCode, s.ConfigRoot, s)
}

func (p *Parser) parse(ctx context.Context, luaCode, baseDir string, s *Settings) error {
	L := newSandboxedVM()
	defer L.Close()

	if p.detector != nil {
		info, err := p.detector.Detect(ctx)
		if err != nil {
			return fmt.Errorf("platform detection failed: %w", err)
		}
		if err := platform.InjectPlatformTable(L, info); err != nil {
			return fmt.Errorf("inject platform table: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, ParseTimeout)
	defer cancel()
	L.SetContext(ctx)

	if err := L.DoString(luaCode); err != nil {
		return &ParseError{
			Message: "Lua error in settings file",
			Detail:  err.Error(),
		}
	}

	return extractSettings(L, baseDir, s)
}

// extractSettings copies fields from the global govem table into s. A
// missing table is not an error; the file may only compute locals.
func extractSettings(L *lua.LState, baseDir string, s *Settings) error {
	global := L.GetGlobal(luaGlobalGovem)
	if global.Type() == lua.LTNil {
		return nil
	}
	table, ok := global.(*lua.LTable)
	if !ok {
		return &ParseError{
			Message: "invalid 'govem' table",
			Detail:  fmt.Sprintf("expected table, got %s", global.Type()),
		}
	}

	x := extractor{table: table}

	x.str(luaFieldMirror, &s.Mirror)
	x.str(luaFieldCommand, &s.Command)
	x.str(luaFieldUserAgent, &s.UserAgent)
	x.dir(luaFieldDataDir, baseDir, &s.DataRoot)
	x.dir(luaFieldShimDir, baseDir, &s.ShimRoot)
	x.dir(luaFieldDesktopDir, baseDir, &s.DesktopRoot)
	x.dir(luaFieldKeyring, baseDir, &s.Keyring)
	x.seconds(luaFieldCatalogTTL, &s.CatalogTTL)
	x.seconds(luaFieldStaleAfter, &s.StaleAfter)
	x.boolean(luaFieldDesktop, &s.DesktopEntries)
	x.boolean(luaFieldVersionShims, &s.VersionShims)

	return x.err
}

// extractor reads typed fields and keeps the first type error.
type extractor struct {
	table *lua.LTable
	err   error
}

func (x *extractor) get(field string, want lua.LValueType) (lua.LValue, bool) {
	if x.err != nil {
		return nil, false
	}
	v := x.table.RawGetString(field)
	if v.Type() == lua.LTNil {
		return nil, false
	}
	if v.Type() != want {
		x.err = &ParseError{
			Message: fmt.Sprintf("invalid value for '%s'", field),
			Detail:  fmt.Sprintf("expected %s, got %s", want, v.Type()),
		}
		return nil, false
	}
	return v, true
}

func (x *extractor) str(field string, dst *string) {
	if v, ok := x.get(field, lua.LTString); ok {
		*dst = v.String()
	}
}

func (x *extractor) dir(field, baseDir string, dst *string) {
	if v, ok := x.get(field, lua.LTString); ok {
		*dst = resolvePath(v.String(), baseDir)
	}
}

func (x *extractor) seconds(field string, dst *time.Duration) {
	if v, ok := x.get(field, lua.LTNumber); ok {
		*dst = time.Duration(float64(lua.LVAsNumber(v)) * float64(time.Second))
	}
}

func (x *extractor) boolean(field string, dst *bool) {
	if v, ok := x.get(field, lua.LTBool); ok {
		*dst = lua.LVAsBool(v)
	}
}

// resolvePath expands a leading ~ and anchors relative paths at baseDir.
func resolvePath(path, baseDir string) string {
	if path == "" {
		return ""
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	if !filepath.IsAbs(path) && baseDir != "" {
		path = filepath.Join(baseDir, path)
	}
	return filepath.Clean(path)
}

// FormatError formats a ParseError for user display.
// In verbose mode, show the raw Lua error. Otherwise, show friendly message.
func FormatError(err error, verbose bool) string {
	if parseErr, ok := err.(*ParseError); ok {
		if verbose {
			return fmt.Sprintf("%s\n\nDetails:\n%s", parseErr.Message, parseErr.Detail)
		}
		detail := parseErr.Detail
		if idx := strings.Index(detail, "stack traceback"); idx > 0 {
			detail = strings.TrimSpace(detail[:idx])
		}
		return fmt.Sprintf("%s: %s", parseErr.Message, detail)
	}
	return err.Error()
}
