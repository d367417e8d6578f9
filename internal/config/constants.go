package config

import "time"

// Lua schema field names and globals
const (
	luaGlobalGovem       = "govem"
	luaFieldMirror       = "mirror"
	luaFieldDataDir      = "data_dir"
	luaFieldShimDir      = "shim_dir"
	luaFieldDesktopDir   = "desktop_dir"
	luaFieldCommand      = "command"
	luaFieldCatalogTTL   = "catalog_ttl"
	luaFieldStaleAfter   = "stale_after"
	luaFieldDesktop      = "desktop_entries"
	luaFieldVersionShims = "version_shims"
	luaFieldKeyring      = "keyring"
	luaFieldUserAgent    = "user_agent"
)

// Environment variables
const (
	EnvConfigDir  = "GOVEM_CONFIG_DIR"
	EnvDataDir    = "GOVEM_DATA_DIR"
	EnvShimDir    = "GOVEM_SHIM_DIR"
	EnvDesktopDir = "GOVEM_DESKTOP_DIR"
	EnvMirror     = "GOVEM_MIRROR"
	EnvDebug      = "GOVEM_DEBUG"
)

// Defaults
const (
	AppName           = "govem"
	FileName          = "config.lua"
	DefaultMirror     = "https://downloads.tuxfamily.org/godotengine/"
	DefaultCommand    = "godot"
	DefaultCatalogTTL = 24 * time.Hour
	DefaultStaleAfter = time.Hour
	DefaultUserAgent  = "govem"

	// MaxFileSize bounds the settings file read from disk.
	MaxFileSize = 1 << 20

	// ParseTimeout bounds execution of the settings file.
	ParseTimeout = 5 * time.Second
)
